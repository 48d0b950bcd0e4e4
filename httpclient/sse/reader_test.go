package sse

import (
	"errors"
	"io"
	"strings"
	"testing"
)

// scriptedBody returns one scripted piece per Read call, like a transport
// delivering network packets.
type scriptedBody struct {
	pieces []string
	err    error
	closed bool
}

func (b *scriptedBody) Read(p []byte) (int, error) {
	if len(b.pieces) == 0 {
		if b.err != nil {
			return 0, b.err
		}
		return 0, io.EOF
	}
	n := copy(p, b.pieces[0])
	b.pieces[0] = b.pieces[0][n:]
	if b.pieces[0] == "" {
		b.pieces = b.pieces[1:]
	}
	return n, nil
}

func (b *scriptedBody) Close() error {
	b.closed = true
	return nil
}

func readAll(t *testing.T, r Reader) []string {
	t.Helper()
	var chunks []string
	for {
		chunk, err := r.Next()
		if err == io.EOF {
			return chunks
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		chunks = append(chunks, string(chunk))
	}
}

func TestReader_OneChunkPerRead(t *testing.T) {
	body := &scriptedBody{pieces: []string{
		"data: first\n\n",
		"data: second\n\ndata: third\n\n",
	}}
	r := NewReader(body)
	defer r.Close()

	got := readAll(t, r)
	want := []string{"data: first\n\n", "data: second\n\ndata: third\n\n"}
	if len(got) != len(want) {
		t.Fatalf("got %d chunks %q, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestReader_CarriesPartialLine(t *testing.T) {
	body := &scriptedBody{pieces: []string{
		"data: {\"a\":1}\ndata: {\"b\"",
		":2}\n",
	}}
	r := NewReader(body)

	got := readAll(t, r)
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks, got %q", got)
	}
	if got[0] != "data: {\"a\":1}\n" {
		t.Errorf("first chunk = %q", got[0])
	}
	if got[1] != "data: {\"b\":2}\n" {
		t.Errorf("second chunk = %q", got[1])
	}
}

func TestReader_WaitsForNewline(t *testing.T) {
	body := &scriptedBody{pieces: []string{"da", "ta: x", "\n"}}
	got := readAll(t, NewReader(body))
	if len(got) != 1 || got[0] != "data: x\n" {
		t.Errorf("expected a single joined chunk, got %q", got)
	}
}

func TestReader_FlushesTailAtEOF(t *testing.T) {
	body := &scriptedBody{pieces: []string{"data: a\ndata: [DO"}}
	got := readAll(t, NewReader(body))
	want := []string{"data: a\n", "data: [DO"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestReader_CompleteFrameWithoutNewline(t *testing.T) {
	tests := []struct {
		name   string
		pieces []string
		want   []string
	}{
		{
			name:   "json frames per read",
			pieces: []string{`data: {"a":1}`, `data: {"b":2}`},
			want:   []string{`data: {"a":1}`, `data: {"b":2}`},
		},
		{
			name:   "done marker",
			pieces: []string{"data: {\"a\":1}\ndata: [DONE]", "data: {\"b\":2}\n"},
			want:   []string{"data: {\"a\":1}\ndata: [DONE]", "data: {\"b\":2}\n"},
		},
		{
			name:   "object split across reads",
			pieces: []string{`data: {"a":`, `1}`},
			want:   []string{`data: {"a":1}`},
		},
		{
			name:   "scalar payload waits",
			pieces: []string{"data: 1", "2\n"},
			want:   []string{"data: 12\n"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := readAll(t, NewReader(&scriptedBody{pieces: tt.pieces}))
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReader_SmallBuffer(t *testing.T) {
	body := &scriptedBody{pieces: []string{"data: hello world\n"}}
	got := readAll(t, NewReaderSize(body, 4))
	if len(got) != 1 || got[0] != "data: hello world\n" {
		t.Errorf("got %q", got)
	}
}

func TestReader_EmptyStream(t *testing.T) {
	r := NewReader(&scriptedBody{})
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestReader_ReadErrorAfterTail(t *testing.T) {
	boom := errors.New("connection reset")
	body := &scriptedBody{pieces: []string{"data: a\ndata: partial"}, err: boom}
	r := NewReader(body)

	if chunk, err := r.Next(); err != nil || string(chunk) != "data: a\n" {
		t.Fatalf("first Next = %q, %v", chunk, err)
	}
	if chunk, err := r.Next(); err != nil || string(chunk) != "data: partial" {
		t.Fatalf("second Next = %q, %v", chunk, err)
	}
	if _, err := r.Next(); !errors.Is(err, boom) {
		t.Errorf("expected read error, got %v", err)
	}
	if _, err := r.Next(); !errors.Is(err, boom) {
		t.Errorf("error should be sticky, got %v", err)
	}
}

func TestReader_Close(t *testing.T) {
	body := &scriptedBody{}
	r := NewReader(body)
	if err := r.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !body.closed {
		t.Error("expected body to be closed")
	}
}
