// Package retriever finds the stored chunks nearest to a question.
package retriever

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lawchat/backend/internal/metrics"
	"github.com/lawchat/backend/internal/vector"
	"github.com/lawchat/backend/pkg/logger"
)

const DefaultK = 2

type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type Retriever struct {
	embedder QueryEmbedder
	store    vector.Store
	k        int
}

func New(embedder QueryEmbedder, store vector.Store, k int) *Retriever {
	if k <= 0 {
		k = DefaultK
	}
	return &Retriever{embedder: embedder, store: store, k: k}
}

func (r *Retriever) K() int { return r.k }

func (r *Retriever) Retrieve(ctx context.Context, query string) ([]vector.SearchResult, error) {
	embedding, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := r.store.Search(ctx, embedding, r.k)
	if err != nil {
		return nil, fmt.Errorf("failed to search vector store: %w", err)
	}

	metrics.RetrievalResults.Observe(float64(len(results)))
	logger.Debug("Retrieved context", zap.String("query", query), zap.Int("results", len(results)))

	return results, nil
}
