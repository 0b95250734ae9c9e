package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/lawchat/backend/internal/query"
	"github.com/lawchat/backend/pkg/logger"
)

// QueryHandler serves the JSON variant of the form.
type QueryHandler struct {
	queryEngine QueryProcessor
}

func NewQueryHandler(queryEngine QueryProcessor) *QueryHandler {
	return &QueryHandler{
		queryEngine: queryEngine,
	}
}

func (h *QueryHandler) HandleQuery(c *fiber.Ctx) error {
	var req struct {
		Query string `json:"query"`
		Opts  string `json:"opts"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if strings.TrimSpace(req.Query) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query is required",
		})
	}

	response, err := h.queryEngine.ProcessQuery(c.UserContext(), query.Request{
		Text:    req.Query,
		Opts:    req.Opts,
		Surface: query.SurfaceHTTP,
	})
	if err != nil {
		logger.Error("Failed to process query", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process query",
		})
	}

	return c.JSON(fiber.Map{
		"id":         response.ID,
		"query":      response.Query,
		"opts":       response.Opts,
		"answer":     response.Answer,
		"iterations": response.Iterations,
		"latency_ms": response.LatencyMS,
	})
}
