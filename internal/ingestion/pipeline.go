// Package ingestion turns a list of judgment URLs into stored chunk vectors.
package ingestion

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/lawchat/backend/internal/chunker"
	"github.com/lawchat/backend/internal/metrics"
	"github.com/lawchat/backend/internal/normalize"
	"github.com/lawchat/backend/internal/vector"
	"github.com/lawchat/backend/pkg/logger"
)

type Extractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

type Splitter interface {
	Split(source, text string) []chunker.Chunk
}

type Counter interface {
	Count(text string) int
}

type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

type Document struct {
	Source  string
	Content string
}

type Result struct {
	Documents int
	Chunks    int
	Records   int
	Duration  time.Duration
}

type Pipeline struct {
	extractor Extractor
	splitter  Splitter
	counter   Counter
	embedder  Embedder
	store     vector.Store
}

func NewPipeline(extractor Extractor, splitter Splitter, counter Counter, embedder Embedder, store vector.Store) *Pipeline {
	return &Pipeline{
		extractor: extractor,
		splitter:  splitter,
		counter:   counter,
		embedder:  embedder,
		store:     store,
	}
}

// Run executes extract, normalize, chunk, embed and store in that order. The
// first failure aborts the run; nothing already written is rolled back.
func (p *Pipeline) Run(ctx context.Context, sources []string) (*Result, error) {
	start := time.Now()

	logger.Info("Ingestion started", zap.Int("sources", len(sources)))

	docs := make([]Document, 0, len(sources))
	for _, src := range sources {
		text, err := p.extractor.Extract(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("failed to extract %s: %w", src, err)
		}
		docs = append(docs, Document{Source: src, Content: text})
	}

	for i := range docs {
		docs[i].Content = normalize.Text(docs[i].Content)
	}

	if len(docs) > 0 && p.counter != nil {
		logger.Info("First document token count",
			zap.String("source", docs[0].Source),
			zap.Int("tokens", p.counter.Count(docs[0].Content)),
		)
	}

	var chunks []chunker.Chunk
	for _, doc := range docs {
		docChunks := p.splitter.Split(doc.Source, doc.Content)
		logger.Debug("Document chunked",
			zap.String("source", doc.Source),
			zap.Int("chunks", len(docChunks)),
		)
		chunks = append(chunks, docChunks...)
	}

	result := &Result{Documents: len(docs), Chunks: len(chunks)}

	if len(chunks) == 0 {
		logger.Warn("No chunks produced, nothing to store")
		result.Duration = time.Since(start)
		return result, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	embeddings, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, expected %d", len(embeddings), len(chunks))
	}

	records := make([]vector.Record, len(chunks))
	for i, c := range chunks {
		records[i] = vector.Record{
			Text: c.Text,
			Metadata: map[string]string{
				vector.MetadataSource: c.Source,
				vector.MetadataChunk:  strconv.Itoa(c.Index),
			},
			Embedding: embeddings[i],
		}
	}

	if err := vector.CheckDimensions(records, p.store.Dimension()); err != nil {
		return nil, err
	}

	if err := p.store.Insert(ctx, records); err != nil {
		return nil, fmt.Errorf("failed to store records: %w", err)
	}

	result.Records = len(records)
	result.Duration = time.Since(start)

	metrics.DocumentsIngested.Add(float64(result.Documents))
	metrics.ChunksStored.Add(float64(result.Records))

	logger.Info("Ingestion completed",
		zap.Int("documents", result.Documents),
		zap.Int("chunks", result.Chunks),
		zap.Int("records", result.Records),
		zap.Duration("duration", result.Duration),
	)

	return result, nil
}
