package sse

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/llmstream/errors"
	"github.com/kbukum/llmstream/httpclient"
	"github.com/kbukum/llmstream/llm"
	"github.com/kbukum/llmstream/llm/chunk"
	"github.com/kbukum/llmstream/logger"
	"github.com/kbukum/llmstream/resilience"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type chunkBody struct {
	chunks []string
	err    error
}

func (b *chunkBody) Read(p []byte) (int, error) {
	if len(b.chunks) == 0 {
		if b.err != nil {
			return 0, b.err
		}
		return 0, io.EOF
	}
	n := copy(p, b.chunks[0])
	b.chunks = b.chunks[1:]
	return n, nil
}

func (b *chunkBody) Close() error { return nil }

// upstream serves the same chunks on every call, or fails with err.
type upstream struct {
	chunks  []string
	readErr error
	err     error
}

func (u *upstream) DoStream(context.Context, httpclient.Request) (*httpclient.StreamResponse, error) {
	if u.err != nil {
		return nil, u.err
	}
	return &httpclient.StreamResponse{
		StatusCode: http.StatusOK,
		Body:       &chunkBody{chunks: append([]string(nil), u.chunks...), err: u.readErr},
	}, nil
}

func frame(content, finish string) string {
	reason := "null"
	if finish != "" {
		reason = `"` + finish + `"`
	}
	return `data: {"choices":[{"delta":{"content":"` + content + `"},"finish_reason":` + reason + `}]}` + "\n"
}

func newRouter(t *testing.T, u *upstream) *gin.Engine {
	t.Helper()
	client, err := llm.New(llm.Config{APIKey: "k", Backoff: &resilience.BackoffConfig{}},
		llm.WithTransport(u), llm.WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("llm.New: %v", err)
	}
	r := gin.New()
	NewRelay(client, logger.Nop()).Register(r)
	return r
}

type event struct {
	name string
	data string
}

func parseEvents(t *testing.T, body string) []event {
	t.Helper()
	var events []event
	for _, block := range strings.Split(body, "\n\n") {
		if strings.TrimSpace(block) == "" || strings.HasPrefix(block, ":") {
			continue
		}
		var ev event
		for _, line := range strings.Split(block, "\n") {
			switch {
			case strings.HasPrefix(line, "event: "):
				ev.name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				ev.data = strings.TrimPrefix(line, "data: ")
			}
		}
		events = append(events, ev)
	}
	return events
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rr, req)
	return rr
}

const helloBody = `{"messages":[{"role":"user","content":"hi"}]}`

func TestRelay_Stream(t *testing.T) {
	r := newRouter(t, &upstream{chunks: []string{frame("Hel", ""), frame("lo", "stop"), frame("late", "")}})

	rr := post(r, "/v1/stream", helloBody)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("unexpected content type %q", ct)
	}

	events := parseEvents(t, rr.Body.String())
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %+v", events)
	}

	want := []chunk.Record{{Data: "Hel"}, {Data: "lo", Finished: true}}
	for i, w := range want {
		if events[i].name != EventRecord {
			t.Fatalf("event %d: expected %q, got %q", i, EventRecord, events[i].name)
		}
		var rec chunk.Record
		if err := json.Unmarshal([]byte(events[i].data), &rec); err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
		if rec != w {
			t.Errorf("event %d: expected %+v, got %+v", i, w, rec)
		}
	}

	var done DoneEvent
	if events[2].name != EventDone {
		t.Fatalf("expected done event, got %q", events[2].name)
	}
	if err := json.Unmarshal([]byte(events[2].data), &done); err != nil {
		t.Fatalf("done: %v", err)
	}
	if !done.Finished || done.Records != 2 || done.RequestID == "" {
		t.Errorf("unexpected done %+v", done)
	}
}

func TestRelay_StreamEndedWithoutFinish(t *testing.T) {
	r := newRouter(t, &upstream{chunks: []string{frame("a", ""), "data: [DONE]\n"}})

	events := parseEvents(t, post(r, "/v1/stream", helloBody).Body.String())
	if len(events) != 3 || events[2].name != EventDone {
		t.Fatalf("unexpected events %+v", events)
	}
	var done DoneEvent
	_ = json.Unmarshal([]byte(events[2].data), &done)
	if done.Finished || done.Records != 2 {
		t.Errorf("unexpected done %+v", done)
	}
}

func TestRelay_StreamReadError(t *testing.T) {
	r := newRouter(t, &upstream{chunks: []string{frame("a", "")}, readErr: errors.New("reset")})

	events := parseEvents(t, post(r, "/v1/stream", helloBody).Body.String())
	if len(events) != 2 {
		t.Fatalf("unexpected events %+v", events)
	}
	if events[1].name != EventError {
		t.Fatalf("expected error event, got %q", events[1].name)
	}
	var body apperrors.ErrorBody
	_ = json.Unmarshal([]byte(events[1].data), &body)
	if body.Code != apperrors.ErrCodeStreamInterrupted {
		t.Errorf("unexpected error body %+v", body)
	}
}

func TestRelay_StreamUnavailable(t *testing.T) {
	r := newRouter(t, &upstream{err: errors.New("connection refused")})

	rr := post(r, "/v1/stream", helloBody)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rr.Code)
	}
	var resp apperrors.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Error.Code != apperrors.ErrCodeStreamUnavailable {
		t.Errorf("unexpected code %q", resp.Error.Code)
	}
	if !strings.Contains(resp.Error.Message, "connection refused") {
		t.Errorf("expected upstream message, got %q", resp.Error.Message)
	}
}

func TestRelay_InvalidRequest(t *testing.T) {
	r := newRouter(t, &upstream{})

	tests := []struct {
		name string
		body string
	}{
		{"not json", "nope"},
		{"no messages", `{"messages":[]}`},
		{"bad role", `{"messages":[{"role":"robot","content":"hi"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, path := range []string{"/v1/stream", "/v1/complete"} {
				rr := post(r, path, tt.body)
				if rr.Code != http.StatusBadRequest {
					t.Errorf("%s: expected 400, got %d", path, rr.Code)
				}
			}
		})
	}
}

func TestRelay_Complete(t *testing.T) {
	r := newRouter(t, &upstream{chunks: []string{frame("Hel", ""), frame("lo", "stop")}})

	rr := post(r, "/v1/complete", helloBody)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp CompletionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Content != "Hello" {
		t.Errorf("expected %q, got %q", "Hello", resp.Content)
	}
}

func TestWriter_NotFlusher(t *testing.T) {
	if _, err := NewWriter(struct{ http.ResponseWriter }{httptest.NewRecorder()}, logger.Nop()); err == nil {
		t.Error("expected error for non-flushing writer")
	}
}

// blockingCompleter holds every request until release is closed.
type blockingCompleter struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingCompleter) ResponseStream(context.Context, []llm.Message) (*llm.Stream, error) {
	return nil, errors.New("not used")
}

func (b *blockingCompleter) StreamSingleResponse(context.Context, []llm.Message, ...llm.ReceiveOption) (string, error) {
	b.entered <- struct{}{}
	<-b.release
	return "done", nil
}

func TestRelay_BulkheadRejectsWhenFull(t *testing.T) {
	completer := &blockingCompleter{entered: make(chan struct{}, 1), release: make(chan struct{})}
	r := gin.New()
	NewRelay(completer, logger.Nop(),
		WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 1})),
	).Register(r)

	body := `{"messages":[{"role":"user","content":"hi"}]}`
	first := make(chan *httptest.ResponseRecorder)
	go func() {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/complete", strings.NewReader(body)))
		first <- rec
	}()
	<-completer.entered

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/complete", strings.NewReader(body)))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp apperrors.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error.Code != apperrors.ErrCodeOverloaded {
		t.Errorf("expected OVERLOADED, got %s", resp.Error.Code)
	}

	close(completer.release)
	if got := <-first; got.Code != http.StatusOK {
		t.Errorf("expected first request to succeed, got %d", got.Code)
	}
}
