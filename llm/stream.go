package llm

import (
	"context"
	"io"
	"sync"

	"github.com/kbukum/llmstream/llm/chunk"
	"github.com/kbukum/llmstream/observability"
)

// Stream is one open completion stream. Records arrive in upstream order.
// A Stream is consumed by a single goroutine through either Chunks or Next,
// not both.
type Stream struct {
	ctx     context.Context
	cancel  context.CancelFunc
	id      string
	out     <-chan []byte
	pipeErr func() error
	metrics *observability.StreamMetrics

	dec       chunk.Decoder
	pending   []chunk.Record
	decodeErr error
	redecode  bool

	closeOnce sync.Once
}

func newStream(ctx context.Context, cancel context.CancelFunc, id string, pipe *chunk.Pipe, m *observability.StreamMetrics) *Stream {
	return &Stream{ctx: ctx, cancel: cancel, id: id, out: pipe.Out(), pipeErr: pipe.Err, metrics: m}
}

// RequestID identifies the request that opened the stream.
func (s *Stream) RequestID() string {
	return s.id
}

// Chunks returns the encoded records: each element is one JSON record
// followed by chunk.Separator. The channel is closed when the stream ends.
func (s *Stream) Chunks() <-chan []byte {
	return s.out
}

// Next returns the next record. It returns io.EOF once the upstream closed
// the stream, or the read error that ended it. A record that cannot be
// decoded is reported once, after the records decoded before it; the
// following call continues with the rest of the stream.
func (s *Stream) Next() (chunk.Record, error) {
	for len(s.pending) == 0 {
		if err := s.decodeErr; err != nil {
			s.decodeErr = nil
			return chunk.Record{}, err
		}
		var raw []byte
		if s.redecode {
			// Records buffered behind the undecodable one.
			s.redecode = false
		} else {
			var ok bool
			if raw, ok = <-s.out; !ok {
				if err := s.pipeErr(); err != nil {
					return chunk.Record{}, err
				}
				return chunk.Record{}, io.EOF
			}
		}
		recs, err := s.dec.Feed(raw)
		s.pending = append(s.pending, recs...)
		s.decodeErr = err
		s.redecode = err != nil
	}

	rec := s.pending[0]
	s.pending = s.pending[1:]
	s.metrics.RecordRecord(s.ctx, rec.Finished)
	return rec, nil
}

// Err returns the error that ended the stream, or nil when the upstream
// closed it normally. It is only meaningful after the stream has ended.
func (s *Stream) Err() error {
	return s.pipeErr()
}

// Close stops the stream and releases the response body. It waits for the
// pipeline goroutine to exit. Close is safe to call more than once.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		for range s.out {
		}
	})
	return nil
}
