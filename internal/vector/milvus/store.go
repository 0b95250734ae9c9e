// Package milvus stores vectors in a Milvus (or Zilliz Cloud) collection.
package milvus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/lawchat/backend/internal/vector"
	"github.com/lawchat/backend/pkg/logger"
	"github.com/lawchat/backend/pkg/utils"
)

const (
	fieldID        = "row_id"
	fieldEmbedding = "embedding"
	fieldText      = "text"
	fieldMetadata  = "metadata"
)

type Store struct {
	client         client.Client
	collectionName string
	vectorDim      int
}

func NewStore(ctx context.Context, endpoint, collectionName string, vectorDim int) (*Store, error) {
	c, err := client.NewGrpcClient(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	logger.Info("Milvus client initialized",
		zap.String("endpoint", endpoint),
		zap.String("collection", collectionName),
	)

	return &Store{
		client:         c,
		collectionName: collectionName,
		vectorDim:      vectorDim,
	}, nil
}

func (m *Store) Dimension() int { return m.vectorDim }

func (m *Store) Close() error {
	return m.client.Close()
}

func (m *Store) schema() *entity.Schema {
	return &entity.Schema{
		CollectionName: m.collectionName,
		Description:    "Case law chunk embeddings",
		Fields: []*entity.Field{
			{
				Name:       fieldID,
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "128",
				},
			},
			{
				Name:     fieldEmbedding,
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": strconv.Itoa(m.vectorDim),
				},
			},
			{
				Name:     fieldText,
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "65535",
				},
			},
			{
				Name:     fieldMetadata,
				DataType: entity.FieldTypeJSON,
			},
		},
	}
}

func (m *Store) EnsureSchema(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if !has {
		if err := m.client.CreateCollection(ctx, m.schema(), entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}

		idx, err := entity.NewIndexIvfFlat(entity.COSINE, 1024)
		if err != nil {
			return fmt.Errorf("failed to build index params: %w", err)
		}
		if err := m.client.CreateIndex(ctx, m.collectionName, fieldEmbedding, idx, false); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}

		logger.Info("Collection created", zap.String("collection", m.collectionName))
	}

	if err := m.client.LoadCollection(ctx, m.collectionName, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	return nil
}

// rowID is stable across runs when the record carries its chunk position.
func rowID(r vector.Record) string {
	source := r.Metadata[vector.MetadataSource]
	if chunk, err := strconv.Atoi(r.Metadata[vector.MetadataChunk]); err == nil && source != "" {
		return utils.ChunkID(source, chunk)
	}
	return uuid.NewString()
}

func (m *Store) Insert(ctx context.Context, records []vector.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := vector.CheckDimensions(records, m.vectorDim); err != nil {
		return err
	}

	ids := make([]string, len(records))
	embeddings := make([][]float32, len(records))
	texts := make([]string, len(records))
	metadata := make([][]byte, len(records))

	for i, r := range records {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata: %w", err)
		}

		ids[i] = rowID(r)
		embeddings[i] = r.Embedding
		texts[i] = r.Text
		metadata[i] = meta
	}

	_, err := m.client.Insert(
		ctx,
		m.collectionName,
		"",
		entity.NewColumnVarChar(fieldID, ids),
		entity.NewColumnFloatVector(fieldEmbedding, m.vectorDim, embeddings),
		entity.NewColumnVarChar(fieldText, texts),
		entity.NewColumnJSONBytes(fieldMetadata, metadata),
	)
	if err != nil {
		return fmt.Errorf("failed to insert records: %w", err)
	}

	if err := m.client.Flush(ctx, m.collectionName, false); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	logger.Info("Records inserted into milvus", zap.Int("count", len(records)))

	return nil
}

func (m *Store) Search(ctx context.Context, embedding []float32, k int) ([]vector.SearchResult, error) {
	if err := vector.CheckQuery(embedding, m.vectorDim); err != nil {
		return nil, err
	}

	sp, err := entity.NewIndexIvfFlatSearchParam(16)
	if err != nil {
		return nil, fmt.Errorf("failed to build search params: %w", err)
	}

	searchResult, err := m.client.Search(
		ctx,
		m.collectionName,
		[]string{},
		"",
		[]string{fieldText, fieldMetadata},
		[]entity.Vector{entity.FloatVector(embedding)},
		fieldEmbedding,
		entity.COSINE,
		k,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]vector.SearchResult, 0, k)
	for _, sr := range searchResult {
		textCol := sr.Fields.GetColumn(fieldText)
		metaCol := sr.Fields.GetColumn(fieldMetadata)
		if textCol == nil || metaCol == nil {
			return nil, errors.New("search result missing output fields")
		}

		for i := 0; i < sr.ResultCount; i++ {
			rawText, err := textCol.Get(i)
			if err != nil {
				return nil, fmt.Errorf("failed to read text: %w", err)
			}
			text, _ := rawText.(string)

			raw, err := metaCol.Get(i)
			if err != nil {
				return nil, fmt.Errorf("failed to read metadata: %w", err)
			}

			results = append(results, vector.SearchResult{
				Text:     text,
				Metadata: decodeMetadata(raw),
				Score:    sr.Scores[i],
			})
		}
	}

	logger.Debug("Vector search completed",
		zap.Int("topK", k),
		zap.Int("results", len(results)),
	)

	return results, nil
}

func decodeMetadata(raw interface{}) map[string]string {
	b, ok := raw.([]byte)
	if !ok {
		return map[string]string{}
	}
	meta := map[string]string{}
	if err := json.Unmarshal(b, &meta); err != nil {
		logger.Warn("Discarding undecodable metadata", zap.Error(err))
		return map[string]string{}
	}
	return meta
}
