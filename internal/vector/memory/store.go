// Package memory is an in-process vector store for local runs and tests.
// Nothing survives the process.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/lawchat/backend/internal/vector"
)

type row struct {
	id     string
	record vector.Record
}

type Store struct {
	mu   sync.RWMutex
	dim  int
	rows []row
}

func New(dim int) *Store {
	return &Store{dim: dim}
}

func (s *Store) EnsureSchema(ctx context.Context) error { return nil }

func (s *Store) Dimension() int { return s.dim }

func (s *Store) Close() error { return nil }

func (s *Store) Insert(ctx context.Context, records []vector.Record) error {
	if err := vector.CheckDimensions(records, s.dim); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		meta := make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			meta[k] = v
		}
		emb := make([]float32, len(r.Embedding))
		copy(emb, r.Embedding)

		s.rows = append(s.rows, row{
			id:     uuid.NewString(),
			record: vector.Record{Text: r.Text, Metadata: meta, Embedding: emb},
		})
	}

	return nil
}

// Search ranks every row by cosine similarity. Ties keep insertion order.
func (s *Store) Search(ctx context.Context, embedding []float32, k int) ([]vector.SearchResult, error) {
	if err := vector.CheckQuery(embedding, s.dim); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]vector.SearchResult, 0, len(s.rows))
	for _, r := range s.rows {
		results = append(results, vector.SearchResult{
			Text:     r.record.Text,
			Metadata: r.record.Metadata,
			Score:    cosine(embedding, r.record.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k >= 0 && k < len(results) {
		results = results[:k]
	}

	return results, nil
}

// Len reports how many records are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
