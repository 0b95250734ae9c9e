package astra

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lawchat/backend/internal/vector"
	"github.com/lawchat/backend/pkg/logger"
)

const DefaultBatchSize = 20

var identifier = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,47}$`)

type Store struct {
	session   *gocql.Session
	keyspace  string
	table     string
	dim       int
	batchSize int
}

func NewStore(session *gocql.Session, keyspace, table string, dim, batchSize int) (*Store, error) {
	if !identifier.MatchString(keyspace) {
		return nil, fmt.Errorf("invalid keyspace name %q", keyspace)
	}
	if !identifier.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &Store{
		session:   session,
		keyspace:  keyspace,
		table:     table,
		dim:       dim,
		batchSize: batchSize,
	}, nil
}

func (s *Store) Dimension() int { return s.dim }

func (s *Store) Close() error {
	s.session.Close()
	return nil
}

func (s *Store) qualified() string {
	return s.keyspace + "." + s.table
}

func (s *Store) createTableCQL() string {
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (row_id text PRIMARY KEY, body_blob text, metadata_s map<text, text>, vector vector<float, %d>)",
		s.qualified(), s.dim,
	)
}

func (s *Store) createIndexCQL() string {
	return fmt.Sprintf(
		"CREATE CUSTOM INDEX IF NOT EXISTS %s_vector_idx ON %s (vector) USING 'StorageAttachedIndex' WITH OPTIONS = {'similarity_function': 'cosine'}",
		s.table, s.qualified(),
	)
}

func (s *Store) insertCQL(embedding []float32) string {
	return fmt.Sprintf(
		"INSERT INTO %s (row_id, body_blob, metadata_s, vector) VALUES (?, ?, ?, %s)",
		s.qualified(), vectorLiteral(embedding),
	)
}

func (s *Store) searchCQL(embedding []float32) string {
	lit := vectorLiteral(embedding)
	return fmt.Sprintf(
		"SELECT body_blob, metadata_s, similarity_cosine(vector, %s) FROM %s ORDER BY vector ANN OF %s LIMIT ?",
		lit, s.qualified(), lit,
	)
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if err := s.session.Query(s.createTableCQL()).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.qualified(), err)
	}
	if err := s.session.Query(s.createIndexCQL()).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("failed to create vector index on %s: %w", s.qualified(), err)
	}

	logger.Info("Astra table ready", zap.String("table", s.qualified()), zap.Int("dim", s.dim))
	return nil
}

// Insert writes records in unlogged batches of batchSize rows. A failed batch
// aborts the call; earlier batches stay written.
func (s *Store) Insert(ctx context.Context, records []vector.Record) error {
	if err := vector.CheckDimensions(records, s.dim); err != nil {
		return err
	}

	for start := 0; start < len(records); start += s.batchSize {
		end := start + s.batchSize
		if end > len(records) {
			end = len(records)
		}

		batch := s.session.NewBatch(gocql.UnloggedBatch).WithContext(ctx)
		for _, r := range records[start:end] {
			batch.Query(s.insertCQL(r.Embedding), uuid.NewString(), r.Text, r.Metadata)
		}

		if err := s.session.ExecuteBatch(batch); err != nil {
			return fmt.Errorf("failed to insert rows %d-%d: %w", start, end, err)
		}

		logger.Debug("Astra batch written", zap.Int("from", start), zap.Int("to", end))
	}

	logger.Info("Records inserted into astra", zap.Int("count", len(records)))
	return nil
}

func (s *Store) Search(ctx context.Context, embedding []float32, k int) ([]vector.SearchResult, error) {
	if err := vector.CheckQuery(embedding, s.dim); err != nil {
		return nil, err
	}

	iter := s.session.Query(s.searchCQL(embedding), k).WithContext(ctx).Iter()

	var (
		results []vector.SearchResult
		body    string
		meta    map[string]string
		score   float32
	)
	for iter.Scan(&body, &meta, &score) {
		results = append(results, vector.SearchResult{Text: body, Metadata: meta, Score: score})
		meta = nil
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", s.qualified(), err)
	}

	return results, nil
}

// vectorLiteral renders a CQL vector literal, e.g. [0.1, -2, 3e-05].
func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.Grow(len(v) * 12)
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
