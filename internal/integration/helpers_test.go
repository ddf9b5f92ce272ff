package integration

import (
	"context"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/proximity-lock/proximity-lock/internal/proximity"
)

// reservePort returns address on a free TCP port and closes it.
func reservePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	_ = l.Close()

	return addr
}

// scriptedScanner hands advertisements to the monitor on demand.
type scriptedScanner struct {
	mu      sync.Mutex
	handle  func(proximity.Advertisement)
	started chan struct{}
	stopped bool
}

func newScriptedScanner() *scriptedScanner {
	return &scriptedScanner{started: make(chan struct{})}
}

func (s *scriptedScanner) Start(_ context.Context, handle func(proximity.Advertisement)) error {
	s.mu.Lock()
	s.handle = handle
	s.mu.Unlock()

	close(s.started)

	return nil
}

func (s *scriptedScanner) Restart(context.Context) error { return nil }
func (s *scriptedScanner) Pause(context.Context) error   { return nil }
func (s *scriptedScanner) Resume(context.Context) error  { return nil }

func (s *scriptedScanner) Stop() error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	return nil
}

func (s *scriptedScanner) emit(adv proximity.Advertisement) {
	s.mu.Lock()
	handle := s.handle
	s.mu.Unlock()

	handle(adv)
}

// countingLocker records lock requests.
type countingLocker struct {
	mu    sync.Mutex
	locks int
}

func (l *countingLocker) Lock(context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.locks++

	return "counted", nil
}

func (l *countingLocker) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.locks
}

// unlockedScreen always reports an unlocked screen.
type unlockedScreen struct{}

func (unlockedScreen) IsLocked(context.Context) (bool, error) { return false, nil }
