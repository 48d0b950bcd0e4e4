// Package sse reads a server-sent-event response body as a sequence of raw
// transport chunks.
//
// A chunk is whatever the transport delivered, trimmed back to the last
// complete line. The incomplete tail is carried into the next chunk, so a
// data line is never split across two chunks. A tail that is already a
// whole frame (a data line carrying [DONE] or a complete JSON object) stays
// in its chunk even without a trailing newline. At end of stream any
// remaining tail is returned as a final chunk.
package sse

import (
	"bytes"
	"encoding/json"
	"io"
)

const defaultBufferSize = 32 << 10

// Reader yields raw chunks from a stream.
type Reader interface {
	// Next returns the next chunk. Returns io.EOF when the stream ends.
	Next() ([]byte, error)
	// Close releases the underlying resources.
	Close() error
}

type reader struct {
	body    io.ReadCloser
	buf     []byte
	pending []byte
	err     error
}

// NewReader creates a chunk reader over body.
func NewReader(body io.ReadCloser) Reader {
	return NewReaderSize(body, defaultBufferSize)
}

// NewReaderSize creates a chunk reader that reads at most size bytes per
// transport read.
func NewReaderSize(body io.ReadCloser, size int) Reader {
	if size <= 0 {
		size = defaultBufferSize
	}
	return &reader{
		body: body,
		buf:  make([]byte, size),
	}
}

// Next returns the next line-aligned chunk. Returns io.EOF when the stream ends.
func (r *reader) Next() ([]byte, error) {
	for {
		if r.err != nil {
			if len(r.pending) > 0 {
				chunk := r.pending
				r.pending = nil
				return chunk, nil
			}
			return nil, r.err
		}

		n, err := r.body.Read(r.buf)
		if n > 0 {
			r.pending = append(r.pending, r.buf[:n]...)
		}
		if err != nil {
			r.err = err
			continue
		}

		idx := bytes.LastIndexByte(r.pending, '\n')
		if completeFrame(r.pending[idx+1:]) {
			chunk := r.pending
			r.pending = nil
			return chunk, nil
		}
		if idx >= 0 {
			chunk := r.pending[:idx+1]
			rest := r.pending[idx+1:]
			r.pending = append([]byte(nil), rest...)
			return chunk, nil
		}
	}
}

var (
	dataPrefix = []byte("data: ")
	doneMarker = []byte("[DONE]")
)

// completeFrame reports whether an unterminated line is a whole data frame.
func completeFrame(line []byte) bool {
	line = bytes.TrimSpace(line)
	payload, ok := bytes.CutPrefix(line, dataPrefix)
	if !ok {
		return false
	}
	if bytes.Equal(payload, doneMarker) {
		return true
	}
	return len(payload) > 0 && payload[0] == '{' && json.Valid(payload)
}

// Close releases the underlying stream.
func (r *reader) Close() error {
	return r.body.Close()
}
