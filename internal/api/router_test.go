package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lawchat/backend/internal/flare"
	"github.com/lawchat/backend/internal/llm"
	"github.com/lawchat/backend/internal/query"
	"github.com/lawchat/backend/internal/retriever"
	"github.com/lawchat/backend/internal/vector/memory"
)

type fakeLLM struct {
	generations []*llm.Generation
	err         error
}

func (f *fakeLLM) GenerateWithLogProbs(ctx context.Context, prompt string, maxTokens int) (*llm.Generation, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.generations) == 0 {
		return &llm.Generation{}, nil
	}
	g := f.generations[0]
	f.generations = f.generations[1:]
	return g, nil
}

func (f *fakeLLM) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{Content: "Which guidelines apply?"}, nil
}

func (f *fakeLLM) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0, 0}, nil
}

func newTestRouter(t *testing.T, model *fakeLLM) *fiber.App {
	t.Helper()
	ret := retriever.New(model, memory.New(4), 2)
	engine := query.NewEngine(flare.NewChain(model, ret))
	return NewRouter(engine, RouterOptions{})
}

func do(t *testing.T, app *fiber.App, method, target string, form url.Values) (int, string) {
	t.Helper()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func TestIndex(t *testing.T) {
	status, body := do(t, newTestRouter(t, &fakeLLM{}), "GET", "/", nil)

	assert.Equal(t, 200, status)
	assert.Contains(t, body, "Query our catalogue using natural language")
	assert.Contains(t, body, `<form method="POST" action="/lawchat">`)
	assert.Contains(t, body, `name="text" value=""`)
	assert.Contains(t, body, `<input type="hidden" name="opts" value="v">`)
	assert.NotContains(t, body, "Vector Search Results")
	assert.True(t, strings.HasSuffix(body, "</div></body></html>"))
}

func TestAsk_EmptyStoreEchoesQuery(t *testing.T) {
	model := &fakeLLM{generations: []*llm.Generation{
		{Tokens: []string{"Section", " 21A"}, LogProbs: []float64{0, -3}},
		{Tokens: []string{"No relevant case law was found.\nPlease refine the question. FINISHED"}, LogProbs: []float64{0}},
	}}

	status, body := do(t, newTestRouter(t, model), "POST", "/lawchat", url.Values{"text": {"test query"}, "opts": {"v"}})

	assert.Equal(t, 200, status)
	assert.Contains(t, body, `value="test query"`)
	assert.Contains(t, body, "<h2>Vector Search Results</h2>No relevant case law was found.<p>Please refine the question.")
}

func TestAsk_EscapesInput(t *testing.T) {
	model := &fakeLLM{generations: []*llm.Generation{
		{Tokens: []string{"<b>bold</b> FINISHED"}, LogProbs: []float64{0}},
	}}

	status, body := do(t, newTestRouter(t, model), "POST", "/lawchat", url.Values{"text": {`"><script>alert(1)</script>`}, "opts": {"v"}})

	assert.Equal(t, 200, status)
	assert.NotContains(t, body, "<script>alert(1)</script>")
	assert.NotContains(t, body, "<b>bold</b>")
	assert.Contains(t, body, "&lt;b&gt;bold&lt;/b&gt;")
}

func TestAsk_EngineFailureRendersErrorPage(t *testing.T) {
	app := newTestRouter(t, &fakeLLM{err: errors.New("openai down")})

	status, body := do(t, app, "POST", "/lawchat", url.Values{"text": {"q"}, "opts": {"v"}})
	assert.Equal(t, 500, status)
	assert.Contains(t, body, "Something went wrong")
	assert.NotContains(t, body, "openai down")

	status, _ = do(t, app, "GET", "/", nil)
	assert.Equal(t, 200, status)
}

func TestUnknownRoute(t *testing.T) {
	status, body := do(t, newTestRouter(t, &fakeLLM{}), "GET", "/nope", nil)

	assert.Equal(t, 404, status)
	assert.Contains(t, body, "status 404")
}

func TestHealth(t *testing.T) {
	status, body := do(t, newTestRouter(t, &fakeLLM{}), "GET", "/health", nil)
	require.Equal(t, 200, status)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	assert.Equal(t, "healthy", payload["status"])
	assert.Contains(t, payload, "time")
}

func TestJSONQuery(t *testing.T) {
	model := &fakeLLM{generations: []*llm.Generation{
		{Tokens: []string{"Twelve years. FINISHED"}, LogProbs: []float64{0}},
	}}
	app := newTestRouter(t, model)

	req := httptest.NewRequest("POST", "/api/v1/query", strings.NewReader(`{"query":"What sentence?","opts":"v"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "Twelve years.", payload["answer"])
	assert.Equal(t, "v", payload["opts"])

	req = httptest.NewRequest("POST", "/api/v1/query", strings.NewReader(`{"query":"  "}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}
