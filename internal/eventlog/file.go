package eventlog

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/proximity-lock/proximity-lock/internal/logger"
	"github.com/proximity-lock/proximity-lock/internal/proximity"
)

// FileSink appends events to a CBOR journal file.
type FileSink struct {
	ctx     context.Context //nolint:containedctx // The context only carries the scoped logger.
	file    *os.File
	encoder *cbor.Encoder
	mu      sync.Mutex
	closed  bool
	failed  bool
}

// OpenFile opens (or creates) the journal at path for appending.
func OpenFile(ctx context.Context, path string) (*FileSink, error) {
	//nolint:gosec // The journal path comes from the user's own configuration.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal %q: %w", path, err)
	}

	return &FileSink{
		ctx:     ctx,
		file:    f,
		encoder: newEncoder(f),
	}, nil
}

// Emit appends the event. Write errors are logged once and never reach the engine.
func (s *FileSink) Emit(event proximity.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	if err := s.encoder.Encode(event); err != nil && !s.failed {
		s.failed = true
		logger.ErrorKV(s.ctx, "failed to write event journal", "path", s.file.Name(), "error", err)
	}
}

// Close closes the journal. Later events are dropped.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	return s.file.Close()
}

var _ proximity.EventSink = (*FileSink)(nil)
