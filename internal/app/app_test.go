package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lawchat/backend/pkg/config"
)

func memoryConfig() *config.Config {
	return &config.Config{
		VectorStore: config.VectorStoreConfig{Backend: config.BackendMemory, TableName: "nswsc", VectorDim: 4},
		LLM: config.LLMConfig{
			APIKey:         "sk-test",
			BaseURL:        "http://127.0.0.1:1/v1",
			Model:          "gpt-3.5-turbo-16k",
			EmbeddingModel: "text-embedding-ada-002",
			MaxAttempts:    1,
		},
		Ingestion: config.IngestionConfig{
			Sources:      []string{"https://example.com/a"},
			ChunkSize:    500,
			ChunkOverlap: 50,
			Encoding:     "cl100k_base",
		},
		Retrieval: config.RetrievalConfig{TopK: 2},
		Flare:     config.FlareConfig{MaxGenerationLen: 164, MinProb: 0.3, MinTokenGap: 5, NumPadTokens: 2, MaxIter: 10},
	}
}

func TestNew_MemoryBackend(t *testing.T) {
	a, err := New(context.Background(), memoryConfig())
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Engine)
	assert.Equal(t, 2, a.Retriever.K())
	assert.Equal(t, 4, a.Session.Store.Dimension())

	p, err := a.Pipeline()
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestPipeline_InvalidChunking(t *testing.T) {
	cfg := memoryConfig()
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	cfg.Ingestion.ChunkOverlap = cfg.Ingestion.ChunkSize
	_, err = a.Pipeline()
	assert.Error(t, err)
}
