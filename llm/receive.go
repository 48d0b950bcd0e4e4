package llm

import (
	"context"
	stderrors "errors"
	"io"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	apperrors "github.com/kbukum/llmstream/errors"
	"github.com/kbukum/llmstream/logger"
	"github.com/kbukum/llmstream/observability"
)

// ReceiveOption configures StreamSingleResponse.
type ReceiveOption func(*receiveOptions)

type receiveOptions struct {
	onData func(string)
	onEnd  func()
}

// OnData registers fn to be called with the data of every record that
// carries text, in order.
func OnData(fn func(data string)) ReceiveOption {
	return func(o *receiveOptions) { o.onData = fn }
}

// OnEnd registers fn to be called once when the stream terminates, whether
// by a finish signal, by the upstream closing or by an error.
func OnEnd(fn func()) ReceiveOption {
	return func(o *receiveOptions) { o.onEnd = fn }
}

// StreamSingleResponse opens a stream for messages and concatenates the
// data of every record. It returns when a finished record is read or when
// the upstream closes the stream; both are successful terminations. If
// reading fails after the stream opened, the text received so far is
// returned together with a STREAM_INTERRUPTED error.
func (c *Client) StreamSingleResponse(ctx context.Context, messages []Message, opts ...ReceiveOption) (string, error) {
	var ro receiveOptions
	for _, o := range opts {
		o(&ro)
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanSingleResponse)
	defer span.End()

	stream, err := c.ResponseStream(ctx, messages)
	if err != nil {
		observability.SetSpanError(span, err)
		return "", err
	}
	defer func() { _ = stream.Close() }()

	log := c.log.WithFields(logger.Fields(logger.FieldRequestID, stream.RequestID()))
	end := func(termination string, records int) {
		span.SetAttributes(
			attribute.String(observability.AttrTerminated, termination),
			attribute.Int(observability.AttrRecords, records),
		)
		if ro.onEnd != nil {
			ro.onEnd()
		}
	}

	var (
		text    strings.Builder
		records int
	)
	for {
		rec, err := stream.Next()
		if err != nil {
			if stderrors.Is(err, io.EOF) {
				log.Debug("stream ended without finish signal", logger.Fields("records", records))
				end(observability.TerminationEnded, records)
				return text.String(), nil
			}
			log.Error("stream read failed", logger.ErrorFields("stream_single_response", err))
			observability.SetSpanError(span, err)
			end(observability.TerminationFailed, records)
			return text.String(), apperrors.StreamInterrupted(err)
		}

		records++
		if rec.Data != "" {
			text.WriteString(rec.Data)
			if ro.onData != nil {
				ro.onData(rec.Data)
			}
		}
		if rec.Finished {
			end(observability.TerminationStop, records)
			return text.String(), nil
		}
	}
}

// Complete sends a system prompt and a user prompt and returns the full
// response text. An empty system prompt is omitted.
func Complete(ctx context.Context, c *Client, system, user string) (string, error) {
	messages := make([]Message, 0, 2)
	if system != "" {
		messages = append(messages, System(system))
	}
	messages = append(messages, User(user))
	return c.StreamSingleResponse(ctx, messages)
}
