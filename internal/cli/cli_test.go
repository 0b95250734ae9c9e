package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const judgmentPage = `<html><body>
<nav>Home</nav>
<article class="the-document">
  <h1>R v Smith [1998] NSWSC 423</h1>
  <p>The offender pleaded guilty.    The sentencing judge applied the guidelines.</p>
</article>
</body></html>`

// fakeBackend serves a judgment page and the subset of the OpenAI API the
// commands touch.
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/case.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(judgmentPage))
	})
	mux.HandleFunc("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float32{1, 0, 0, float32(i)},
			}
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data}))
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{
				"index": 0,
				"message": {"role": "assistant", "content": "Apply the guidelines FINISHED"},
				"logprobs": {"content": [
					{"token": "Apply", "logprob": -0.01},
					{"token": " the", "logprob": -0.01},
					{"token": " guidelines", "logprob": -0.02},
					{"token": " FINISHED", "logprob": -0.01}
				]},
				"finish_reason": "stop"
			}]
		}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func setSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("ASTRA_DB_KEYSPACE", "lawchat")
	t.Setenv("ASTRA_DB_SECURE_BUNDLE_PATH", "/tmp/secure-connect-lawchat.zip")
	t.Setenv("ASTRA_DB_APPLICATION_TOKEN", "AstraCS:test")
	t.Setenv("OPENAI_API_KEY", "sk-test")
}

func writeConfig(t *testing.T, srv *httptest.Server) string {
	t.Helper()

	yaml := fmt.Sprintf(`vectorStore:
  backend: memory
  vectorDim: 4
llm:
  baseURL: %s/v1
  timeoutSec: 5
ingestion:
  sources:
    - %s/case.html
query:
  defaultQuery: What are the sentencing guidelines to follow
logging:
  level: error
  outputPath: stderr
`, srv.URL, srv.URL)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestQueryText(t *testing.T) {
	assert.Equal(t, "default question", queryText(nil, "default question"))
	assert.Equal(t, "what was the sentence", queryText([]string{"what", "was", "the", "sentence"}, "default question"))
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, "What are the sentencing guidelines to follow", "Apply the guidelines")

	assert.Equal(t,
		"QUERY: What are the sentencing guidelines to follow\n\n\nFLARE RESULT:\n    Apply the guidelines\n\n\n",
		buf.String())
}

func TestQueryCommand_DefaultQuery(t *testing.T) {
	setSecrets(t)
	srv := fakeBackend(t)

	out, err := execute(t, "query", "--config", writeConfig(t, srv))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "QUERY: What are the sentencing guidelines to follow\n"))
	assert.Contains(t, out, "FLARE RESULT:\n    Apply the guidelines\n")
	assert.NotContains(t, out, "FINISHED")
}

func TestQueryCommand_JoinsArguments(t *testing.T) {
	setSecrets(t)
	srv := fakeBackend(t)

	out, err := execute(t, "query", "--config", writeConfig(t, srv), "was", "the", "plea", "accepted")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "QUERY: was the plea accepted\n"))
}

func TestIngestCommand(t *testing.T) {
	setSecrets(t)
	srv := fakeBackend(t)

	out, err := execute(t, "ingest", "--config", writeConfig(t, srv))
	require.NoError(t, err)
	assert.Contains(t, out, "Ingested 1 documents into 1 chunks (1 records)")
}

func TestIngestCommand_SourceOverrideFails(t *testing.T) {
	setSecrets(t)
	srv := fakeBackend(t)

	_, err := execute(t, "ingest", "--config", writeConfig(t, srv), "--source", srv.URL+"/missing.html")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingestion failed")
}

func TestMissingAstraToken(t *testing.T) {
	setSecrets(t)
	t.Setenv("ASTRA_DB_APPLICATION_TOKEN", "")
	srv := fakeBackend(t)

	_, err := execute(t, "query", "--config", writeConfig(t, srv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ASTRA_DB_APPLICATION_TOKEN")
}

func TestMissingAPIKey(t *testing.T) {
	setSecrets(t)
	t.Setenv("OPENAI_API_KEY", "")
	srv := fakeBackend(t)

	_, err := execute(t, "query", "--config", writeConfig(t, srv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}
