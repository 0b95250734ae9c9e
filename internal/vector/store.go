// Package vector defines the contract shared by the vector store backends.
package vector

import (
	"context"
	"errors"
	"fmt"
)

const (
	MetadataSource = "source"
	// MetadataChunk holds the chunk's position within its source document.
	MetadataChunk = "chunk"
)

var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Record is one embedded chunk. Backends assign the row id on insert.
type Record struct {
	Text      string
	Metadata  map[string]string
	Embedding []float32
}

type SearchResult struct {
	Text     string
	Metadata map[string]string
	Score    float32
}

// Store persists records and answers nearest-neighbour queries. Scores are
// similarities: higher means closer.
type Store interface {
	EnsureSchema(ctx context.Context) error
	Insert(ctx context.Context, records []Record) error
	Search(ctx context.Context, embedding []float32, k int) ([]SearchResult, error)
	Dimension() int
	Close() error
}

// CheckDimensions fails on the first record whose embedding length is not dim.
func CheckDimensions(records []Record, dim int) error {
	for i, r := range records {
		if len(r.Embedding) != dim {
			return fmt.Errorf("%w: record %d has %d values, store expects %d", ErrDimensionMismatch, i, len(r.Embedding), dim)
		}
	}
	return nil
}

func CheckQuery(embedding []float32, dim int) error {
	if len(embedding) != dim {
		return fmt.Errorf("%w: query has %d values, store expects %d", ErrDimensionMismatch, len(embedding), dim)
	}
	return nil
}
