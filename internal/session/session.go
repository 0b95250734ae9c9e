// Package session opens the configured vector store.
package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lawchat/backend/internal/vector"
	"github.com/lawchat/backend/internal/vector/astra"
	"github.com/lawchat/backend/internal/vector/memory"
	"github.com/lawchat/backend/internal/vector/milvus"
	"github.com/lawchat/backend/internal/vector/weaviate"
	"github.com/lawchat/backend/pkg/config"
	"github.com/lawchat/backend/pkg/logger"
)

type Session struct {
	Store    vector.Store
	Keyspace string
	Backend  string
}

// Open connects to the backend named in cfg and ensures its schema exists.
// Failures are not retried.
func Open(ctx context.Context, cfg *config.Config) (*Session, error) {
	store, keyspace, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	logger.Info("Vector store ready",
		zap.String("backend", cfg.VectorStore.Backend),
		zap.String("table", cfg.VectorStore.TableName),
		zap.Int("dim", store.Dimension()),
	)

	return &Session{Store: store, Keyspace: keyspace, Backend: cfg.VectorStore.Backend}, nil
}

func openStore(ctx context.Context, cfg *config.Config) (vector.Store, string, error) {
	vs := cfg.VectorStore

	switch vs.Backend {
	case config.BackendAstra:
		cql, err := astra.NewSession(ctx, astra.SessionConfig{
			SecureBundlePath: cfg.Astra.SecureBundlePath,
			ApplicationToken: cfg.Astra.ApplicationToken,
			Keyspace:         cfg.Astra.Keyspace,
			ConnectTimeout:   time.Duration(cfg.Astra.ConnectTimeoutSec) * time.Second,
		})
		if err != nil {
			return nil, "", err
		}
		store, err := astra.NewStore(cql, cfg.Astra.Keyspace, vs.TableName, vs.VectorDim, cfg.Astra.BatchSize)
		if err != nil {
			cql.Close()
			return nil, "", err
		}
		return store, cfg.Astra.Keyspace, nil

	case config.BackendMilvus:
		store, err := milvus.NewStore(ctx, cfg.Milvus.Endpoint, vs.TableName, vs.VectorDim)
		if err != nil {
			return nil, "", err
		}
		return store, "", nil

	case config.BackendWeaviate:
		store, err := weaviate.NewStore(weaviate.Config{
			Host:      cfg.Weaviate.Host,
			APIKey:    cfg.Weaviate.APIKey,
			Table:     vs.TableName,
			VectorDim: vs.VectorDim,
		})
		if err != nil {
			return nil, "", err
		}
		return store, "", nil

	case config.BackendMemory:
		return memory.New(vs.VectorDim), "", nil

	default:
		return nil, "", fmt.Errorf("unknown vector store backend %q", vs.Backend)
	}
}

func (s *Session) Close() error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.Close()
}
