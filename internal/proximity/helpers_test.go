package proximity

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
)

type lockerMock struct {
	mock.Mock
}

func (m *lockerMock) Lock(ctx context.Context) (string, error) {
	args := m.Called(ctx)

	return args.String(0), args.Error(1)
}

// recordingSink collects events; safe for use from the loop and the test goroutine.
type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Emit(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, e)
}

func (s *recordingSink) kinds() []EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]EventKind, 0, len(s.events))
	for _, e := range s.events {
		if e.Kind == EventSampleProcessed {
			continue
		}

		out = append(out, e.Kind)
	}

	return out
}

func (s *recordingSink) count(kind EventKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0

	for _, e := range s.events {
		if e.Kind == kind {
			n++
		}
	}

	return n
}

func (s *recordingSink) last(kind EventKind) (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Kind == kind {
			return s.events[i], true
		}
	}

	return Event{}, false
}

func testSettings() Settings {
	s := DefaultSettings()
	s.TargetAddress = "AA:BB:CC:DD:EE:FF"

	return s
}
