package viz

import (
	"context"
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"go.viam.com/localplanner/logging"
)

// JSONSink writes messages as JSON lines.
type JSONSink struct {
	w      io.Writer
	enc    *json.Encoder
	logger logging.Logger
}

// NewJSONSink returns a sink writing to w.
func NewJSONSink(w io.Writer, logger logging.Logger) *JSONSink {
	return &JSONSink{w: w, enc: json.NewEncoder(w), logger: logger}
}

// Write encodes a single message.
func (s *JSONSink) Write(msg Message) error {
	return errors.Wrapf(s.enc.Encode(msg), "writing %s message", msg.Topic)
}

// Run writes every message received on messages until ctx is done or messages is closed. It is
// meant to be run as a background worker; encoding failures are logged and skipped.
func (s *JSONSink) Run(ctx context.Context, messages <-chan Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if err := s.Write(msg); err != nil {
				s.logger.CWarnw(ctx, "dropping diagnostic message", "error", err)
			}
		}
	}
}
