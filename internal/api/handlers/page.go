package handlers

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/lawchat/backend/internal/query"
	"github.com/lawchat/backend/pkg/logger"
)

const defaultOpts = "v"

type QueryProcessor interface {
	ProcessQuery(ctx context.Context, req query.Request) (*query.Response, error)
}

type pageData struct {
	Text      string
	HasAnswer bool
	Lines     []string
}

type PageHandler struct {
	engine QueryProcessor
}

func NewPageHandler(engine QueryProcessor) *PageHandler {
	return &PageHandler{engine: engine}
}

// Index renders the empty query form.
func (h *PageHandler) Index(c *fiber.Ctx) error {
	return render(c, fiber.StatusOK, pageTemplate, pageData{})
}

// Ask runs the submitted question and renders the answer under the form.
func (h *PageHandler) Ask(c *fiber.Ctx) error {
	text := c.FormValue("text")
	opts := c.FormValue("opts", defaultOpts)

	resp, err := h.engine.ProcessQuery(c.UserContext(), query.Request{
		Text:    text,
		Opts:    opts,
		Surface: query.SurfaceHTTP,
	})
	if err != nil {
		return err
	}

	return render(c, fiber.StatusOK, pageTemplate, pageData{
		Text:      text,
		HasAnswer: true,
		Lines:     splitLines(resp.Answer),
	})
}

// ErrorPage is the fiber ErrorHandler. Only the failing request sees it.
func ErrorPage(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}

	logger.Error("Request failed",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", code),
		zap.Error(err),
	)

	return render(c, code, errorTemplate, struct{ Status int }{Status: code})
}

func render(c *fiber.Ctx, status int, tmpl *template.Template, data any) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(status).Send(buf.Bytes())
}

// splitLines splits on any line break and drops a trailing empty line.
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
