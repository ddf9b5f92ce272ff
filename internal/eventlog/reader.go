package eventlog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/proximity-lock/proximity-lock/internal/proximity"
)

// Filter selects journal events. Zero fields match everything.
type Filter struct {
	// Kinds keeps only the listed event kinds.
	Kinds []proximity.EventKind
	// Session keeps only events of one session.
	Session string
	// Since keeps events at or after this time.
	Since time.Time
	// Until keeps events strictly before this time.
	Until time.Time
}

func (f Filter) matches(event proximity.Event) bool {
	switch {
	case len(f.Kinds) > 0 && !slices.Contains(f.Kinds, event.Kind):
		return false
	case f.Session != "" && event.Session != f.Session:
		return false
	case !f.Since.IsZero() && event.Time.Before(f.Since):
		return false
	case !f.Until.IsZero() && !event.Time.Before(f.Until):
		return false
	}

	return true
}

// Reader iterates over a journal file.
type Reader struct {
	file    *os.File
	decoder *cbor.Decoder
	filter  Filter
}

// NewReader opens the journal at path.
func NewReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path) //nolint:gosec // Reading the user's own journal.
	if err != nil {
		return nil, fmt.Errorf("open journal %q: %w", path, err)
	}

	return &Reader{
		file:    f,
		decoder: newDecoder(f),
		filter:  filter,
	}, nil
}

// Next returns the next matching event, or io.EOF at the end of the journal.
// A record truncated by a crash also ends the journal.
func (r *Reader) Next() (proximity.Event, error) {
	for {
		var event proximity.Event

		err := r.decoder.Decode(&event)
		switch {
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return proximity.Event{}, io.EOF
		case err != nil:
			return proximity.Event{}, fmt.Errorf("decode journal event: %w", err)
		}

		if r.filter.matches(event) {
			return event, nil
		}
	}
}

// All reads every remaining matching event.
func (r *Reader) All() ([]proximity.Event, error) {
	var events []proximity.Event

	for {
		event, err := r.Next()
		if errors.Is(err, io.EOF) {
			return events, nil
		}

		if err != nil {
			return events, err
		}

		events = append(events, event)
	}
}

// Close closes the journal file.
func (r *Reader) Close() error {
	return r.file.Close()
}
