package flare

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func words(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = string(rune('a'+i)) + " "
	}
	return out
}

func TestLowConfidenceSpans(t *testing.T) {
	tests := []struct {
		name     string
		tokens   []string
		logProbs []float64
		want     []string
	}{
		{
			name:     "all confident",
			tokens:   words(4),
			logProbs: []float64{0, 0, 0, 0},
			want:     nil,
		},
		{
			name:     "single span padded",
			tokens:   words(6),
			logProbs: []float64{0, -3, 0, 0, 0, 0},
			want:     []string{"b c d "},
		},
		{
			name:     "close spans merge",
			tokens:   words(10),
			logProbs: []float64{0, -3, 0, -3, 0, 0, 0, 0, 0, 0},
			want:     []string{"b c d e f "},
		},
		{
			name:     "distant spans stay apart",
			tokens:   words(10),
			logProbs: []float64{0, -3, 0, 0, 0, 0, 0, 0, -3, 0},
			want:     []string{"b c d ", "i j "},
		},
		{
			name:     "punctuation ignored",
			tokens:   []string{"The", ".", " end"},
			logProbs: []float64{0, -5, 0},
			want:     nil,
		},
		{
			name:     "probability above threshold is confident",
			tokens:   words(3),
			logProbs: []float64{0, -1.0, 0},
			want:     nil,
		},
		{
			name:     "non-ascii letters count as words",
			tokens:   []string{"The", " accused", " 被告人", " was", " held"},
			logProbs: []float64{0, 0, -3, 0, 0},
			want:     []string{" 被告人 was held"},
		},
		{
			name:     "accented word",
			tokens:   []string{"per", " curiam", " déjà", " vu"},
			logProbs: []float64{0, 0, -3, 0},
			want:     []string{" déjà vu"},
		},
		{
			name:     "section sign is not a word",
			tokens:   []string{"under", " §", " 61"},
			logProbs: []float64{0, -3, 0},
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lowConfidenceSpans(tt.tokens, tt.logProbs, 0.3, 5, 2)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFinished(t *testing.T) {
	text, finished := parseFinished("  The answer is 12 years. FINISHED ")
	assert.True(t, finished)
	assert.Equal(t, "The answer is 12 years. ", text)

	text, finished = parseFinished(" partial ")
	assert.False(t, finished)
	assert.Equal(t, "partial", text)
}

func TestBuildPrompts(t *testing.T) {
	p := buildResponsePrompt("What sentence?", "ctx {response}", "So far")
	assert.Contains(t, p, ">>> CONTEXT: ctx {response}\n")
	assert.Contains(t, p, ">>> USER INPUT: What sentence?\n")
	assert.True(t, strings.HasSuffix(p, ">>> RESPONSE: So far"))

	q := buildQuestionPrompt("What sentence?", "It was 12 years", " 12 years")
	assert.Contains(t, q, `the term/entity/phrase " 12 years" is:`)
	assert.Contains(t, q, ">>> EXISTING PARTIAL RESPONSE: It was 12 years")
}
