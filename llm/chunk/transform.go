package chunk

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kbukum/llmstream/logger"
)

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"
	stopReason   = "stop"
)

// ErrEmptyChoices is reported for a data line whose choices array is empty.
var ErrEmptyChoices = errors.New("chunk: completion frame has no choices")

// FrameError describes a data line that could not be used.
type FrameError struct {
	// Line is the payload after the "data: " prefix.
	Line string
	Err  error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("chunk: bad frame %q: %v", e.Line, e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }

// completionFrame is the subset of a chat.completion.chunk payload we read.
type completionFrame struct {
	Choices []struct {
		Delta struct {
			Role    string `json:"role,omitempty"`
			Content string `json:"content,omitempty"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithLogger sets the logger used for skipped frames.
func WithLogger(l *logger.Logger) Option {
	return func(t *Transformer) { t.log = l }
}

// WithFrameErrorHook registers fn to be called for every skipped frame.
func WithFrameErrorHook(fn func(*FrameError)) Option {
	return func(t *Transformer) { t.onFrameError = fn }
}

// Transformer converts raw transport chunks into Records. It holds no
// per-stream state and may be shared.
type Transformer struct {
	log          *logger.Logger
	onFrameError func(*FrameError)
}

// NewTransformer creates a Transformer.
func NewTransformer(opts ...Option) *Transformer {
	t := &Transformer{log: logger.Nop()}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Transform parses one raw chunk. It never fails: unusable lines are
// reported through the logger and the frame error hook.
func (t *Transformer) Transform(raw []byte) Record {
	var (
		content  strings.Builder
		finished bool
	)

	text := strings.TrimSpace(string(raw))
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		payload := strings.TrimPrefix(line, dataPrefix)
		if payload == doneSentinel {
			break
		}

		frame, err := parseFrame(payload)
		if err != nil {
			t.frameError(&FrameError{Line: payload, Err: err})
			continue
		}

		choice := frame.Choices[0]
		if choice.Delta.Content != "" {
			content.WriteString(choice.Delta.Content)
		}
		if choice.FinishReason != nil && *choice.FinishReason == stopReason {
			finished = true
		}
	}

	return Record{Data: content.String(), Finished: finished}
}

func parseFrame(payload string) (*completionFrame, error) {
	var frame completionFrame
	if err := json.Unmarshal([]byte(payload), &frame); err != nil {
		return nil, err
	}
	if len(frame.Choices) == 0 {
		return nil, ErrEmptyChoices
	}
	return &frame, nil
}

func (t *Transformer) frameError(fe *FrameError) {
	t.log.Warn("skipping malformed completion frame", logger.Fields(
		logger.FieldError, fe.Err.Error(),
		"frame", fe.Line,
	))
	if t.onFrameError != nil {
		t.onFrameError(fe)
	}
}
