package chunk

import (
	"context"
	"errors"
	"io"

	"github.com/kbukum/llmstream/httpclient/sse"
)

// Pipe carries encoded records produced from one source, in source order.
type Pipe struct {
	out chan []byte
	err error
}

// Pipe starts a goroutine that pulls chunks from src, transforms each one
// and sends exactly one encoded record per chunk on Out. The output channel
// is unbuffered, so the source is only read as fast as records are
// consumed. Out is closed and src is closed when src is exhausted, a read
// fails or ctx is done.
func (t *Transformer) Pipe(ctx context.Context, src sse.Reader) *Pipe {
	p := &Pipe{out: make(chan []byte)}
	go p.run(ctx, t, src)
	return p
}

func (p *Pipe) run(ctx context.Context, t *Transformer, src sse.Reader) {
	defer close(p.out)
	defer func() { _ = src.Close() }()

	for {
		raw, err := src.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				p.err = err
			}
			return
		}

		rec := t.Transform(raw)
		select {
		case p.out <- rec.Encode():
		case <-ctx.Done():
			p.err = ctx.Err()
			return
		}
	}
}

// Out returns the channel of encoded records.
func (p *Pipe) Out() <-chan []byte {
	return p.out
}

// Err returns the error that ended the pipe, or nil when the source ended
// normally. It is only meaningful after Out has been closed.
func (p *Pipe) Err() error {
	return p.err
}
