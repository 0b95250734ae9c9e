// Package astra stores vectors in DataStax Astra DB (Cassandra with SAI vector
// search) over CQL.
package astra

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"github.com/lawchat/backend/pkg/logger"
)

type SessionConfig struct {
	SecureBundlePath string
	ApplicationToken string
	Keyspace         string
	ConnectTimeout   time.Duration
}

// NewSession connects with the secure connect bundle, authenticating with the
// literal user "token" and the application token as password.
func NewSession(ctx context.Context, cfg SessionConfig) (*gocql.Session, error) {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	cluster, err := NewClusterFromBundle(ctx, cfg.SecureBundlePath, cfg.ApplicationToken, cfg.ConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to load secure connect bundle: %w", err)
	}

	cluster.Keyspace = cfg.Keyspace

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to astra: %w", err)
	}

	logger.Info("Astra session established", zap.String("keyspace", cfg.Keyspace))

	return session, nil
}
