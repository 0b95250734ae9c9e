// Package flare implements forward-looking active retrieval: the model drafts
// an answer, and wherever it is unsure the draft is replaced by one grounded in
// retrieved case law.
package flare

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lawchat/backend/internal/llm"
	"github.com/lawchat/backend/internal/vector"
	"github.com/lawchat/backend/pkg/logger"
)

const (
	DefaultMaxGenerationLen = 164
	DefaultMinProb          = 0.3
	DefaultMinTokenGap      = 5
	DefaultNumPadTokens     = 2
	DefaultMaxIter          = 10
)

type Generator interface {
	GenerateWithLogProbs(ctx context.Context, prompt string, maxTokens int) (*llm.Generation, error)
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]vector.SearchResult, error)
}

type Result struct {
	Answer     string
	Iterations int
	Questions  []string
	Finished   bool
}

type Chain struct {
	generator        Generator
	retriever        Retriever
	maxGenerationLen int
	minProb          float64
	minTokenGap      int
	numPadTokens     int
	maxIter          int
}

type Option func(*Chain)

func WithMaxGenerationLen(n int) Option {
	return func(c *Chain) {
		if n > 0 {
			c.maxGenerationLen = n
		}
	}
}

func WithMinProb(p float64) Option {
	return func(c *Chain) {
		if p > 0 && p <= 1 {
			c.minProb = p
		}
	}
}

func WithMinTokenGap(n int) Option {
	return func(c *Chain) {
		if n > 0 {
			c.minTokenGap = n
		}
	}
}

func WithNumPadTokens(n int) Option {
	return func(c *Chain) {
		if n >= 0 {
			c.numPadTokens = n
		}
	}
}

func WithMaxIter(n int) Option {
	return func(c *Chain) {
		if n > 0 {
			c.maxIter = n
		}
	}
}

func NewChain(generator Generator, retriever Retriever, opts ...Option) *Chain {
	c := &Chain{
		generator:        generator,
		retriever:        retriever,
		maxGenerationLen: DefaultMaxGenerationLen,
		minProb:          DefaultMinProb,
		minTokenGap:      DefaultMinTokenGap,
		numPadTokens:     DefaultNumPadTokens,
		maxIter:          DefaultMaxIter,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run answers userInput. Each iteration drafts a continuation without
// context; confident drafts are kept as they are, uncertain ones trigger
// question generation, retrieval and a grounded regeneration.
func (c *Chain) Run(ctx context.Context, userInput string) (*Result, error) {
	result := &Result{}
	response := ""

	for i := 0; i < c.maxIter; i++ {
		result.Iterations = i + 1

		gen, err := c.generator.GenerateWithLogProbs(ctx, buildResponsePrompt(userInput, "", response), c.maxGenerationLen)
		if err != nil {
			return nil, fmt.Errorf("failed to generate draft: %w", err)
		}
		if len(gen.Tokens) == 0 {
			logger.Debug("Empty draft, stopping", zap.Int("iteration", result.Iterations))
			break
		}

		spans := lowConfidenceSpans(gen.Tokens, gen.LogProbs, c.minProb, c.minTokenGap, c.numPadTokens)
		initial := strings.TrimSpace(response) + " " + gen.Text()

		if len(spans) == 0 {
			response = initial
			if final, finished := parseFinished(response); finished {
				response = final
				result.Finished = true
				break
			}
			continue
		}

		logger.Debug("Low confidence spans",
			zap.Int("iteration", result.Iterations),
			zap.Strings("spans", spans),
		)

		marginal, finished, questions, err := c.retrieveAndRegenerate(ctx, userInput, response, initial, spans)
		if err != nil {
			return nil, err
		}
		result.Questions = append(result.Questions, questions...)

		response = strings.TrimSpace(response) + " " + marginal
		if finished {
			result.Finished = true
			break
		}
	}

	result.Answer = strings.TrimSpace(response)
	return result, nil
}

func (c *Chain) retrieveAndRegenerate(ctx context.Context, userInput, response, initial string, spans []string) (string, bool, []string, error) {
	questions := make([]string, 0, len(spans))
	for _, span := range spans {
		resp, err := c.generator.Complete(ctx, llm.CompletionRequest{
			UserPrompt: buildQuestionPrompt(userInput, initial, span),
		})
		if err != nil {
			return "", false, nil, fmt.Errorf("failed to generate question: %w", err)
		}
		questions = append(questions, resp.Content)
	}

	var pages []string
	for _, q := range questions {
		docs, err := c.retriever.Retrieve(ctx, q)
		if err != nil {
			return "", false, nil, fmt.Errorf("failed to retrieve context: %w", err)
		}
		for _, d := range docs {
			pages = append(pages, d.Text)
		}
	}

	gen, err := c.generator.GenerateWithLogProbs(ctx, buildResponsePrompt(userInput, strings.Join(pages, "\n\n"), response), c.maxGenerationLen)
	if err != nil {
		return "", false, nil, fmt.Errorf("failed to regenerate with context: %w", err)
	}

	marginal, finished := parseFinished(gen.Text())
	return marginal, finished, questions, nil
}
