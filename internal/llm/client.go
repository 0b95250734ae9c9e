package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/lawchat/backend/internal/metrics"
	"github.com/lawchat/backend/pkg/logger"
	"github.com/lawchat/backend/pkg/retry"
)

const defaultEmbeddingBatchSize = 100

type Config struct {
	APIKey             string
	BaseURL            string
	Model              string
	EmbeddingModel     string
	Temperature        float32
	EmbeddingBatchSize int
	Timeout            time.Duration
	MaxAttempts        int
}

type Client struct {
	client         *openai.Client
	model          string
	embeddingModel string
	temperature    float32
	batchSize      int
	timeout        time.Duration
	retryConfig    retry.Config
}

type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
}

type CompletionResponse struct {
	Content string
	Usage   Usage
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Generation is a completion split into the tokens the model sampled, each
// paired with its log-probability.
type Generation struct {
	Tokens   []string
	LogProbs []float64
}

func (g *Generation) Text() string {
	return strings.Join(g.Tokens, "")
}

func NewClient(cfg Config) *Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	if cfg.EmbeddingBatchSize <= 0 {
		cfg.EmbeddingBatchSize = defaultEmbeddingBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	retryConfig := retry.DefaultConfig()
	retryConfig.MaxAttempts = cfg.MaxAttempts
	retryConfig.Retryable = isRetryable
	retryConfig.Logger = logger.GetLogger()

	logger.Info("LLM client initialized",
		zap.String("model", cfg.Model),
		zap.String("embedding_model", cfg.EmbeddingModel),
		zap.Int("max_attempts", cfg.MaxAttempts),
	)

	return &Client{
		client:         openai.NewClientWithConfig(clientConfig),
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		temperature:    cfg.Temperature,
		batchSize:      cfg.EmbeddingBatchSize,
		timeout:        cfg.Timeout,
		retryConfig:    retryConfig,
	}
}

// requestTemperature maps zero to the smallest positive float so the field
// survives omitempty and the API does not fall back to its default of 1.
func (c *Client) requestTemperature() float32 {
	if c.temperature == 0 {
		return math.SmallestNonzeroFloat32
	}
	return c.temperature
}

func (c *Client) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.UserPrompt,
	})

	resp, err := retry.DoWithResult(ctx, c.retryConfig, func() (openai.ChatCompletionResponse, error) {
		return c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.model,
			Messages:    messages,
			Temperature: c.requestTemperature(),
			MaxTokens:   req.MaxTokens,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("completion returned no choices")
	}

	c.recordUsage(resp.Usage)

	logger.Debug("LLM completion generated",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return &CompletionResponse{
		Content: resp.Choices[0].Message.Content,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// GenerateWithLogProbs sends prompt as a single user message and returns the
// sampled tokens with their log-probabilities.
func (c *Client) GenerateWithLogProbs(ctx context.Context, prompt string, maxTokens int) (*Generation, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := retry.DoWithResult(ctx, c.retryConfig, func() (openai.ChatCompletionResponse, error) {
		return c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			Temperature: c.requestTemperature(),
			MaxTokens:   maxTokens,
			LogProbs:    true,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate with logprobs: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("completion returned no choices")
	}

	c.recordUsage(resp.Usage)

	choice := resp.Choices[0]
	gen := &Generation{}
	if choice.LogProbs != nil {
		gen.Tokens = make([]string, 0, len(choice.LogProbs.Content))
		gen.LogProbs = make([]float64, 0, len(choice.LogProbs.Content))
		for _, lp := range choice.LogProbs.Content {
			gen.Tokens = append(gen.Tokens, lp.Token)
			gen.LogProbs = append(gen.LogProbs, lp.LogProb)
		}
	} else if choice.Message.Content != "" {
		// Endpoints without logprob support: treat the whole message as one certain token.
		gen.Tokens = []string{choice.Message.Content}
		gen.LogProbs = []float64{0}
	}

	logger.Debug("LLM generation with logprobs",
		zap.Int("tokens", len(gen.Tokens)),
		zap.String("finish_reason", string(choice.FinishReason)),
	)

	return gen, nil
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := c.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(embeddings))
	}
	return embeddings[0], nil
}

// EmbedDocuments embeds texts in request batches and returns one vector per
// input, in input order.
func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	embeddings := make([][]float32, 0, len(texts))

	for i := 0; i < len(texts); i += c.batchSize {
		end := i + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := c.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		embeddings = append(embeddings, batch...)
	}

	logger.Debug("Batch embeddings generated", zap.Int("count", len(embeddings)))

	return embeddings, nil
}

func (c *Client) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := retry.DoWithResult(ctx, c.retryConfig, func() (openai.EmbeddingResponse, error) {
		return c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: batch,
			Model: openai.EmbeddingModel(c.embeddingModel),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate batch embeddings: %w", err)
	}
	metrics.LLMTokensUsed.WithLabelValues(c.embeddingModel, "embedding").Add(float64(resp.Usage.TotalTokens))

	if len(resp.Data) != len(batch) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, expected %d", len(resp.Data), len(batch))
	}

	out := make([][]float32, len(batch))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(batch) {
			return nil, fmt.Errorf("embedding index %d out of range", data.Index)
		}
		out[data.Index] = data.Embedding
	}

	return out, nil
}

func (c *Client) recordUsage(u openai.Usage) {
	metrics.LLMTokensUsed.WithLabelValues(c.model, "prompt").Add(float64(u.PromptTokens))
	metrics.LLMTokensUsed.WithLabelValues(c.model, "completion").Add(float64(u.CompletionTokens))
}

// isRetryable rejects client errors other than rate limiting.
func isRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError || code == 0
}
