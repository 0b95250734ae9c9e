// Package app builds the long-lived objects shared by the server and the CLI.
// Everything here is constructed once and only read afterwards.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/lawchat/backend/internal/chunker"
	"github.com/lawchat/backend/internal/flare"
	"github.com/lawchat/backend/internal/ingestion"
	"github.com/lawchat/backend/internal/llm"
	"github.com/lawchat/backend/internal/query"
	"github.com/lawchat/backend/internal/retriever"
	"github.com/lawchat/backend/internal/scraper"
	"github.com/lawchat/backend/internal/session"
	"github.com/lawchat/backend/internal/tokenizer"
	"github.com/lawchat/backend/pkg/config"
)

type App struct {
	Config    *config.Config
	Session   *session.Session
	LLM       *llm.Client
	Tokenizer *tokenizer.Tokenizer
	Retriever *retriever.Retriever
	Chain     *flare.Chain
	Engine    *query.Engine
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	tk, err := tokenizer.New(cfg.Ingestion.Encoding)
	if err != nil {
		return nil, err
	}

	sess, err := session.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}

	llmClient := NewLLMClient(cfg.LLM)
	ret := retriever.New(llmClient, sess.Store, cfg.Retrieval.TopK)
	chain := NewChain(llmClient, ret, cfg.Flare)

	return &App{
		Config:    cfg,
		Session:   sess,
		LLM:       llmClient,
		Tokenizer: tk,
		Retriever: ret,
		Chain:     chain,
		Engine:    query.NewEngine(chain),
	}, nil
}

func NewLLMClient(cfg config.LLMConfig) *llm.Client {
	return llm.NewClient(llm.Config{
		APIKey:             cfg.APIKey,
		BaseURL:            cfg.BaseURL,
		Model:              cfg.Model,
		EmbeddingModel:     cfg.EmbeddingModel,
		Temperature:        cfg.Temperature,
		EmbeddingBatchSize: cfg.EmbeddingBatchSize,
		Timeout:            time.Duration(cfg.TimeoutSec) * time.Second,
		MaxAttempts:        cfg.MaxAttempts,
	})
}

func NewChain(generator flare.Generator, ret flare.Retriever, cfg config.FlareConfig) *flare.Chain {
	return flare.NewChain(generator, ret,
		flare.WithMaxGenerationLen(cfg.MaxGenerationLen),
		flare.WithMinProb(cfg.MinProb),
		flare.WithMinTokenGap(cfg.MinTokenGap),
		flare.WithNumPadTokens(cfg.NumPadTokens),
		flare.WithMaxIter(cfg.MaxIter),
	)
}

// Pipeline wires the ingestion steps against this app's store and clients.
func (a *App) Pipeline() (*ingestion.Pipeline, error) {
	ing := a.Config.Ingestion

	splitter, err := chunker.New(a.Tokenizer,
		chunker.WithChunkSize(ing.ChunkSize),
		chunker.WithOverlap(ing.ChunkOverlap),
	)
	if err != nil {
		return nil, err
	}

	extractor := scraper.New(scraper.Config{
		UserAgent: ing.UserAgent,
		Selector:  ing.Selector,
		Timeout:   time.Duration(ing.FetchTimeoutSec) * time.Second,
	})

	return ingestion.NewPipeline(extractor, splitter, a.Tokenizer, a.LLM, a.Session.Store), nil
}

func (a *App) Close() error {
	return a.Session.Close()
}
