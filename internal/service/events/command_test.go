package events

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/proximity-lock/proximity-lock/internal/eventlog"
	"github.com/proximity-lock/proximity-lock/internal/proximity"
)

// writeJournal stores a short session in a temporary journal.
func writeJournal(t *testing.T, base time.Time) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "events.cbor")

	sink, err := eventlog.OpenFile(context.Background(), path)
	require.NoError(t, err)

	distance := 3.5

	sink.Emit(proximity.Event{Kind: proximity.EventSampleProcessed, Time: base, RSSI: -70, Session: "old"})
	sink.Emit(proximity.Event{
		Kind:     proximity.EventAlertRaised,
		Time:     base.Add(time.Hour),
		State:    proximity.OutOfRange,
		Distance: &distance,
		Message:  "ran loginctl lock-session",
		Session:  "new",
	})
	sink.Emit(proximity.Event{
		Kind:    proximity.EventGraceStarted,
		Time:    base.Add(2 * time.Hour),
		State:   proximity.GraceSuppressed,
		Session: "new",
	})

	require.NoError(t, sink.Close())

	return path
}

// TestRun_RequiresJournal fails without a configured journal.
func TestRun_RequiresJournal(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), &Options{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})
	require.ErrorIs(t, err, ErrNoJournal)
}

// TestRun_RejectsUnknownKind validates --kind values.
func TestRun_RejectsUnknownKind(t *testing.T) {
	t.Parallel()

	path := writeJournal(t, time.Now())

	err := Run(context.Background(), &Options{File: path, Kinds: []string{"exploded"}})
	require.ErrorIs(t, err, ErrUnknownKind)
}

// TestRun_TextFilters prints the selected kinds of one session.
func TestRun_TextFilters(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	path := writeJournal(t, base)

	var output bytes.Buffer

	err := Run(context.Background(), &Options{
		File:    path,
		Session: "new",
		Kinds:   []string{"alert_raised", " grace_started"},
		Output:  &output,
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(output.String()), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "alert_raised")
	require.Contains(t, lines[0], "state=out_of_range")
	require.Contains(t, lines[0], "distance=3.50m")
	require.Contains(t, lines[0], "message=ran loginctl lock-session")
	require.Contains(t, lines[1], "grace_started")
}

// TestRun_JSONSince prints recent events as JSON lines.
func TestRun_JSONSince(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	path := writeJournal(t, base)

	var output bytes.Buffer

	err := Run(context.Background(), &Options{
		File:   path,
		Since:  90 * time.Minute,
		JSON:   true,
		Output: &output,
		Now:    func() time.Time { return base.Add(2 * time.Hour) },
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(output.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.Equal(t, "alert_raised", first["kind"])
	require.Equal(t, "out_of_range", first["state"])
	require.InDelta(t, 3.5, first["distance"], 1e-9)
	require.Equal(t, "new", first["session"])
}
