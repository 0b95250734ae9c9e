package flare

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lawchat/backend/internal/llm"
	"github.com/lawchat/backend/internal/vector"
)

// scriptedGenerator replays generations in order and records every prompt.
type scriptedGenerator struct {
	generations   []*llm.Generation
	genPrompts    []string
	questions     []string
	questionCalls []string
	err           error
}

func (s *scriptedGenerator) GenerateWithLogProbs(ctx context.Context, prompt string, maxTokens int) (*llm.Generation, error) {
	s.genPrompts = append(s.genPrompts, prompt)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.generations) == 0 {
		return &llm.Generation{}, nil
	}
	g := s.generations[0]
	s.generations = s.generations[1:]
	return g, nil
}

func (s *scriptedGenerator) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.questionCalls = append(s.questionCalls, req.UserPrompt)
	q := "What was the sentence?"
	if len(s.questions) > 0 {
		q = s.questions[0]
		s.questions = s.questions[1:]
	}
	return &llm.CompletionResponse{Content: q}, nil
}

type fakeRetriever struct {
	docs    []vector.SearchResult
	queries []string
	err     error
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string) ([]vector.SearchResult, error) {
	f.queries = append(f.queries, query)
	return f.docs, f.err
}

func confident(tokens ...string) *llm.Generation {
	return &llm.Generation{Tokens: tokens, LogProbs: make([]float64, len(tokens))}
}

func TestRun_ConfidentDraftFinishes(t *testing.T) {
	gen := &scriptedGenerator{generations: []*llm.Generation{
		confident("The", " court", " held", " FINISHED"),
	}}
	ret := &fakeRetriever{}

	res, err := NewChain(gen, ret).Run(context.Background(), "What did the court hold?")
	require.NoError(t, err)

	assert.Equal(t, "The court held", res.Answer)
	assert.Equal(t, 1, res.Iterations)
	assert.True(t, res.Finished)
	assert.Empty(t, ret.queries)
	assert.Contains(t, gen.genPrompts[0], ">>> CONTEXT: \n")
}

func TestRun_UncertainSpanTriggersRetrieval(t *testing.T) {
	gen := &scriptedGenerator{generations: []*llm.Generation{
		{
			Tokens:   []string{"The", " sentence", " was", " 12", " years"},
			LogProbs: []float64{0, 0, 0, -3, 0},
		},
		confident("The sentence was 10 years. FINISHED"),
	}}
	ret := &fakeRetriever{docs: []vector.SearchResult{
		{Text: "Sentenced to 10 years."},
		{Text: "Non-parole period of 7 years."},
	}}

	res, err := NewChain(gen, ret).Run(context.Background(), "What was the sentence?")
	require.NoError(t, err)

	assert.Equal(t, "The sentence was 10 years.", res.Answer)
	assert.True(t, res.Finished)
	assert.Equal(t, 1, res.Iterations)

	require.Len(t, gen.questionCalls, 1)
	assert.Contains(t, gen.questionCalls[0], `phrase " 12 years" is:`)
	assert.Contains(t, gen.questionCalls[0], "EXISTING PARTIAL RESPONSE:  The sentence was 12 years")
	assert.Equal(t, []string{"What was the sentence?"}, ret.queries)

	require.Len(t, gen.genPrompts, 2)
	assert.Contains(t, gen.genPrompts[1], ">>> CONTEXT: Sentenced to 10 years.\n\nNon-parole period of 7 years.\n")
}

func TestRun_StopsAtMaxIter(t *testing.T) {
	gen := &scriptedGenerator{generations: []*llm.Generation{
		confident("a"), confident("a"), confident("a"), confident("a"),
	}}

	res, err := NewChain(gen, &fakeRetriever{}, WithMaxIter(3)).Run(context.Background(), "q")
	require.NoError(t, err)

	assert.Equal(t, "a a a", res.Answer)
	assert.Equal(t, 3, res.Iterations)
	assert.False(t, res.Finished)
	assert.Len(t, gen.genPrompts, 3)
	assert.Contains(t, gen.genPrompts[2], ">>> RESPONSE: a a")
}

func TestRun_EmptyDraftStops(t *testing.T) {
	gen := &scriptedGenerator{}

	res, err := NewChain(gen, &fakeRetriever{}).Run(context.Background(), "q")
	require.NoError(t, err)

	assert.Equal(t, "", res.Answer)
	assert.Equal(t, 1, res.Iterations)
}

func TestRun_GeneratorError(t *testing.T) {
	gen := &scriptedGenerator{err: errors.New("upstream 503")}

	_, err := NewChain(gen, &fakeRetriever{}).Run(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream 503")
}

func TestRun_RetrieverError(t *testing.T) {
	gen := &scriptedGenerator{generations: []*llm.Generation{
		{Tokens: []string{" uncertain"}, LogProbs: []float64{-4}},
	}}
	ret := &fakeRetriever{err: errors.New("store down")}

	_, err := NewChain(gen, ret).Run(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store down")
}

func TestNewChain_Options(t *testing.T) {
	c := NewChain(nil, nil,
		WithMaxGenerationLen(64),
		WithMinProb(0.5),
		WithMinTokenGap(3),
		WithNumPadTokens(0),
		WithMaxIter(4),
	)
	assert.Equal(t, 64, c.maxGenerationLen)
	assert.Equal(t, 0.5, c.minProb)
	assert.Equal(t, 3, c.minTokenGap)
	assert.Equal(t, 0, c.numPadTokens)
	assert.Equal(t, 4, c.maxIter)

	d := NewChain(nil, nil, WithMinProb(2), WithMaxIter(0))
	assert.Equal(t, DefaultMinProb, d.minProb)
	assert.Equal(t, DefaultMaxIter, d.maxIter)
}
