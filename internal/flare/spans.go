package flare

import (
	"math"
	"regexp"
	"strings"
)

var wordChar = regexp.MustCompile(`[\p{L}\p{N}_]`)

// lowConfidenceSpans joins the tokens around every word-bearing token whose
// probability is below minProb. Each span runs numPad tokens past its last
// uncertain token; uncertain tokens closer than minGap to the previous one
// extend the current span instead of opening a new one.
func lowConfidenceSpans(tokens []string, logProbs []float64, minProb float64, minGap, numPad int) []string {
	var low []int
	for i, lp := range logProbs {
		if i >= len(tokens) {
			break
		}
		if math.Exp(lp) < minProb && wordChar.MatchString(tokens[i]) {
			low = append(low, i)
		}
	}
	if len(low) == 0 {
		return nil
	}

	type span struct{ start, end int }
	spans := []span{{low[0], low[0] + numPad + 1}}
	for i := 1; i < len(low); i++ {
		end := low[i] + numPad + 1
		if low[i]-low[i-1] < minGap {
			spans[len(spans)-1].end = end
		} else {
			spans = append(spans, span{low[i], end})
		}
	}

	out := make([]string, len(spans))
	for i, s := range spans {
		end := s.end
		if end > len(tokens) {
			end = len(tokens)
		}
		out[i] = strings.Join(tokens[s.start:end], "")
	}
	return out
}
