package sse

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/llmstream/errors"
	"github.com/kbukum/llmstream/llm"
	"github.com/kbukum/llmstream/llm/chunk"
	"github.com/kbukum/llmstream/logger"
	"github.com/kbukum/llmstream/resilience"
	"github.com/kbukum/llmstream/server"
)

const defaultKeepAlive = 30 * time.Second

// Completer is the part of *llm.Client the relay uses.
type Completer interface {
	ResponseStream(ctx context.Context, messages []llm.Message) (*llm.Stream, error)
	StreamSingleResponse(ctx context.Context, messages []llm.Message, opts ...llm.ReceiveOption) (string, error)
}

// CompletionRequest is the body accepted by both relay endpoints.
type CompletionRequest struct {
	Messages []Message `json:"messages" binding:"required,min=1,dive"`
}

// Message is one chat message in a relay request.
type Message struct {
	Role    string `json:"role" binding:"required,oneof=system user assistant"`
	Content string `json:"content"`
}

// CompletionResponse is the body returned by the complete endpoint.
type CompletionResponse struct {
	Content string `json:"content"`
}

// RelayOption configures a Relay.
type RelayOption func(*Relay)

// WithKeepAlive sets the interval between keep-alive comments while waiting
// for the upstream. Non-positive values keep the default.
func WithKeepAlive(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.keepAlive = d
		}
	}
}

// WithBulkhead caps the number of requests served at once. Requests that
// find no free slot get a 503 OVERLOADED response.
func WithBulkhead(b *resilience.Bulkhead) RelayOption {
	return func(r *Relay) { r.bulkhead = b }
}

// Relay exposes a Completer over HTTP.
type Relay struct {
	completer Completer
	log       *logger.Logger
	keepAlive time.Duration
	bulkhead  *resilience.Bulkhead
}

// NewRelay creates a Relay.
func NewRelay(c Completer, log *logger.Logger, opts ...RelayOption) *Relay {
	r := &Relay{
		completer: c,
		log:       log.WithComponent("sse"),
		keepAlive: defaultKeepAlive,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Register mounts POST /v1/stream and POST /v1/complete.
func (r *Relay) Register(routes gin.IRoutes) {
	routes.POST("/v1/stream", r.limit, r.Stream)
	routes.POST("/v1/complete", r.limit, r.Complete)
}

// limit holds a bulkhead slot for the rest of the handler chain.
func (r *Relay) limit(c *gin.Context) {
	release, err := r.bulkhead.Acquire(c.Request.Context())
	if err != nil {
		r.log.Warn("relay rejected request", logger.ErrorFields("acquire", err))
		server.RespondWithError(c, apperrors.Overloaded(err))
		c.Abort()
		return
	}
	defer release()
	c.Next()
}

func bindMessages(c *gin.Context) ([]llm.Message, bool) {
	var req CompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondWithError(c, apperrors.InvalidInput("messages", err.Error()))
		return nil, false
	}
	messages := make([]llm.Message, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = llm.Message{Role: m.Role, Content: m.Content}
	}
	return messages, true
}

// Complete handles POST /v1/complete.
func (r *Relay) Complete(c *gin.Context) {
	messages, ok := bindMessages(c)
	if !ok {
		return
	}

	content, err := r.completer.StreamSingleResponse(c.Request.Context(), messages)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, CompletionResponse{Content: content})
}

// Stream handles POST /v1/stream. Every record is sent as a record event in
// upstream order. The stream ends with a done event, or with an error event
// when reading the upstream fails. If no upstream stream can be opened the
// response is a JSON error instead.
func (r *Relay) Stream(c *gin.Context) {
	messages, ok := bindMessages(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	log := r.log.WithContext(ctx)

	stream, err := r.completer.ResponseStream(ctx, messages)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	defer func() { _ = stream.Close() }()

	w, err := NewWriter(c.Writer, log)
	if err != nil {
		log.Error("relay cannot stream", logger.ErrorFields("stream", err))
		server.RespondWithError(c, apperrors.Internal(err))
		return
	}

	done := DoneEvent{RequestID: stream.RequestID()}
	keepAlive := time.NewTicker(r.keepAlive)
	defer keepAlive.Stop()

	var dec chunk.Decoder
	chunks := stream.Chunks()
	for {
		select {
		case <-ctx.Done():
			log.Debug("relay client disconnected", logger.Fields(logger.FieldRequestID, done.RequestID))
			return

		case <-keepAlive.C:
			if err := w.KeepAlive(); err != nil {
				return
			}

		case raw, ok := <-chunks:
			if !ok {
				if err := stream.Err(); err != nil {
					log.Warn("upstream stream failed", logger.ErrorFields("stream", err))
					_ = w.Event(EventError, apperrors.StreamInterrupted(err).ToResponse().Error)
					return
				}
				_ = w.Event(EventDone, done)
				return
			}

			records, err := dec.Feed(raw)
			if err != nil {
				log.Warn("dropping undecodable record", logger.ErrorFields("stream", err))
			}
			for _, rec := range records {
				done.Records++
				if err := w.Event(EventRecord, rec); err != nil {
					return
				}
				if rec.Finished {
					done.Finished = true
					_ = w.Event(EventDone, done)
					return
				}
			}
		}
	}
}
