package metrics

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lawchat_query_duration_seconds",
			Help:    "Query processing duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"surface"},
	)

	QueryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lawchat_query_total",
			Help: "Total number of queries processed",
		},
		[]string{"status"},
	)

	FlareIterations = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lawchat_flare_iterations",
			Help:    "Generate-then-verify iterations per answered query",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10},
		},
	)

	RetrievalResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lawchat_retrieval_results_count",
			Help:    "Number of vector results per retrieval",
			Buckets: []float64{0, 1, 2, 5, 10},
		},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lawchat_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"model", "type"},
	)

	DocumentsIngested = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lawchat_documents_ingested_total",
			Help: "Total documents scraped and ingested",
		},
	)

	ChunksStored = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lawchat_chunks_stored_total",
			Help: "Total chunk records written to the vector store",
		},
	)
)

var registerOnce sync.Once

// Init registers every collector with the default registry. Safe to call more
// than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			QueryDuration,
			QueryTotal,
			FlareIterations,
			RetrievalResults,
			LLMTokensUsed,
			DocumentsIngested,
			ChunksStored,
		)
	})
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
