package llmstreamcmder

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func upstream(t *testing.T, status int, frames ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, f := range frames {
			_, _ = io.WriteString(w, f)
			w.(http.Flusher).Flush()
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func frame(content, finish string) string {
	reason := "null"
	if finish != "" {
		reason = `"` + finish + `"`
	}
	return fmt.Sprintf(`data: {"choices":[{"delta":{"content":%q},"finish_reason":%s}]}`+"\n\n", content, reason)
}

func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "llmstream.yml")
	cfg := fmt.Sprintf(`
logging:
  level: error
llm:
  base_url: %s/v1
  api_key: sk-test
  backoff:
    max_retries: 0
    initial_delay: 1ms
`, baseURL)
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewLLMStreamCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "dev") {
		t.Errorf("expected dev version, got %q", out)
	}
}

func TestAskCommand_StreamsTokens(t *testing.T) {
	srv := upstream(t, http.StatusOK, frame("Hel", ""), frame("lo", "stop"), "data: [DONE]\n\n")

	out, err := execute(t, "ask", "--config", writeConfig(t, srv.URL), "Say", "hello")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if out != "Hello\n" {
		t.Errorf("expected %q, got %q", "Hello\n", out)
	}
}

func TestAskCommand_Quiet(t *testing.T) {
	srv := upstream(t, http.StatusOK, frame("Hi", "stop"))

	out, err := execute(t, "ask", "-q", "--config", writeConfig(t, srv.URL), "hello")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if out != "Hi\n" {
		t.Errorf("expected %q, got %q", "Hi\n", out)
	}
}

func TestAskCommand_UpstreamUnavailable(t *testing.T) {
	srv := upstream(t, http.StatusServiceUnavailable)

	out, err := execute(t, "ask", "--config", writeConfig(t, srv.URL), "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	if out != "" {
		t.Errorf("expected no output, got %q", out)
	}
}

func TestAskCommand_RequiresPrompt(t *testing.T) {
	if _, err := execute(t, "ask"); err == nil {
		t.Fatal("expected argument error")
	}
}

func TestServeCommand_RejectsArgs(t *testing.T) {
	if _, err := execute(t, "serve", "extra"); err == nil {
		t.Fatal("expected argument error")
	}
}
