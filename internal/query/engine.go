package query

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lawchat/backend/internal/flare"
	"github.com/lawchat/backend/internal/metrics"
	"github.com/lawchat/backend/pkg/logger"
)

const (
	SurfaceHTTP = "http"
	SurfaceCLI  = "cli"
)

type Chain interface {
	Run(ctx context.Context, userInput string) (*flare.Result, error)
}

type Engine struct {
	chain Chain
}

// Request is one question. Opts is carried through untouched.
type Request struct {
	Text    string
	Opts    string
	Surface string
}

type Response struct {
	ID         string
	Query      string
	Opts       string
	Answer     string
	Iterations int
	LatencyMS  int
}

func NewEngine(chain Chain) *Engine {
	return &Engine{chain: chain}
}

func (e *Engine) ProcessQuery(ctx context.Context, req Request) (*Response, error) {
	startTime := time.Now()
	queryID := uuid.New().String()

	surface := req.Surface
	if surface == "" {
		surface = SurfaceHTTP
	}

	logger.Info("Processing query",
		zap.String("query_id", queryID),
		zap.String("query", req.Text),
		zap.String("opts", req.Opts),
		zap.String("surface", surface),
	)

	result, err := e.chain.Run(ctx, req.Text)
	elapsed := time.Since(startTime)
	metrics.QueryDuration.WithLabelValues(surface).Observe(elapsed.Seconds())

	if err != nil {
		metrics.QueryTotal.WithLabelValues("error").Inc()
		logger.Error("Query failed",
			zap.String("query_id", queryID),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to answer query: %w", err)
	}

	metrics.QueryTotal.WithLabelValues("success").Inc()
	metrics.FlareIterations.Observe(float64(result.Iterations))

	latency := int(elapsed.Milliseconds())

	logger.Info("Query processed successfully",
		zap.String("query_id", queryID),
		zap.Int("iterations", result.Iterations),
		zap.Int("questions", len(result.Questions)),
		zap.Bool("finished", result.Finished),
		zap.Int("latency_ms", latency),
	)

	return &Response{
		ID:         queryID,
		Query:      req.Text,
		Opts:       req.Opts,
		Answer:     result.Answer,
		Iterations: result.Iterations,
		LatencyMS:  latency,
	}, nil
}
