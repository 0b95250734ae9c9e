// Package weaviate stores vectors in a Weaviate class with externally
// supplied embeddings.
package weaviate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.uber.org/zap"

	"github.com/lawchat/backend/internal/vector"
	"github.com/lawchat/backend/pkg/logger"
)

const (
	batchSize = 200

	propText     = "text"
	propSource   = "source"
	propMetadata = "metadataJson"
)

type Config struct {
	Host      string
	APIKey    string
	Table     string
	VectorDim int
}

type Store struct {
	client    *weaviate.Client
	className string
	vectorDim int
}

// ClassName turns a table name into a Weaviate class name, which must start
// with an upper-case letter.
func ClassName(table string) string {
	r, size := utf8.DecodeRuneInString(table)
	if r == utf8.RuneError {
		return table
	}
	return string(unicode.ToUpper(r)) + table[size:]
}

func NewStore(cfg Config) (*Store, error) {
	scheme := "http"
	if strings.HasPrefix(cfg.Host, "https://") {
		scheme = "https"
	}
	host := strings.TrimPrefix(cfg.Host, scheme+"://")

	clientCfg := weaviate.Config{
		Host:   host,
		Scheme: scheme,
	}
	if cfg.APIKey != "" {
		clientCfg.AuthConfig = auth.ApiKey{Value: cfg.APIKey}
	}

	client, err := weaviate.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}

	logger.Info("Weaviate client initialized",
		zap.String("host", host),
		zap.String("class", ClassName(cfg.Table)),
	)

	return &Store{
		client:    client,
		className: ClassName(cfg.Table),
		vectorDim: cfg.VectorDim,
	}, nil
}

func (s *Store) Dimension() int { return s.vectorDim }

func (s *Store) Close() error { return nil }

func (s *Store) class() *models.Class {
	return &models.Class{
		Class:           s.className,
		Description:     "Case law chunk embeddings",
		Vectorizer:      "none",
		VectorIndexType: "hnsw",
		VectorIndexConfig: map[string]interface{}{
			"distance": "cosine",
		},
		Properties: []*models.Property{
			{Name: propText, DataType: []string{"text"}},
			{Name: propSource, DataType: []string{"text"}},
			{Name: propMetadata, DataType: []string{"text"}},
		},
	}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	schema, err := s.client.Schema().Getter().Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to get schema: %w", err)
	}

	for _, class := range schema.Classes {
		if class.Class == s.className {
			return nil
		}
	}

	if err := s.client.Schema().ClassCreator().WithClass(s.class()).Do(ctx); err != nil {
		return fmt.Errorf("failed to create class %s: %w", s.className, err)
	}

	logger.Info("Weaviate class created", zap.String("class", s.className))
	return nil
}

func (s *Store) Insert(ctx context.Context, records []vector.Record) error {
	if err := vector.CheckDimensions(records, s.vectorDim); err != nil {
		return err
	}

	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}

		batcher := s.client.Batch().ObjectsBatcher()
		for _, r := range records[start:end] {
			meta, err := json.Marshal(r.Metadata)
			if err != nil {
				return fmt.Errorf("failed to encode metadata: %w", err)
			}

			batcher = batcher.WithObjects(&models.Object{
				Class: s.className,
				Properties: map[string]interface{}{
					propText:     r.Text,
					propSource:   r.Metadata[vector.MetadataSource],
					propMetadata: string(meta),
				},
				Vector: r.Embedding,
			})
		}

		resp, err := batcher.Do(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert batch %d-%d: %w", start, end, err)
		}
		if err := batchError(resp); err != nil {
			return fmt.Errorf("failed to insert batch %d-%d: %w", start, end, err)
		}
	}

	logger.Info("Records inserted into weaviate", zap.Int("count", len(records)))
	return nil
}

func batchError(resp []models.ObjectsGetResponse) error {
	for _, r := range resp {
		if r.Result == nil || r.Result.Errors == nil {
			continue
		}
		for _, e := range r.Result.Errors.Error {
			if e != nil {
				return fmt.Errorf("object rejected: %s", e.Message)
			}
		}
	}
	return nil
}

func (s *Store) Search(ctx context.Context, embedding []float32, k int) ([]vector.SearchResult, error) {
	if err := vector.CheckQuery(embedding, s.vectorDim); err != nil {
		return nil, err
	}

	fields := []graphql.Field{
		{Name: propText},
		{Name: propMetadata},
		{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
	}

	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(embedding)

	result, err := s.client.GraphQL().Get().
		WithClassName(s.className).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(k).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("search failed: %s", result.Errors[0].Message)
	}

	return parseGetResponse(result.Data, s.className), nil
}

// parseGetResponse reads Get.<class>[] from a GraphQL payload. Score is
// 1 - cosine distance.
func parseGetResponse(data map[string]models.JSONObject, className string) []vector.SearchResult {
	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}
	items, ok := get[className].([]interface{})
	if !ok {
		return nil
	}

	results := make([]vector.SearchResult, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		text, _ := obj[propText].(string)
		meta := map[string]string{}
		if raw, ok := obj[propMetadata].(string); ok && raw != "" {
			if err := json.Unmarshal([]byte(raw), &meta); err != nil {
				logger.Warn("Discarding undecodable metadata", zap.Error(err))
			}
		}

		var score float32
		if additional, ok := obj["_additional"].(map[string]interface{}); ok {
			if d, ok := additional["distance"].(float64); ok {
				score = float32(1 - d)
			}
		}

		results = append(results, vector.SearchResult{Text: text, Metadata: meta, Score: score})
	}

	return results
}
