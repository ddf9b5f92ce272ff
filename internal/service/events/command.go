package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/proximity-lock/proximity-lock/internal/config"
	"github.com/proximity-lock/proximity-lock/internal/eventlog"
	"github.com/proximity-lock/proximity-lock/internal/logger"
	"github.com/proximity-lock/proximity-lock/internal/proximity"
)

var (
	// ErrNoJournal indicates that no journal file is configured.
	ErrNoJournal = errors.New("no event journal: set journal_file or pass --file")
	// ErrUnknownKind indicates a filter on an event kind that does not exist.
	ErrUnknownKind = errors.New("unknown event kind")
)

// knownKinds lists every kind accepted by --kind.
//
//nolint:gochecknoglobals // Read-only lookup table.
var knownKinds = []proximity.EventKind{
	proximity.EventSampleProcessed,
	proximity.EventAlertRaised,
	proximity.EventAlertCleared,
	proximity.EventGraceStarted,
	proximity.EventGraceEnded,
	proximity.EventLoopPaused,
	proximity.EventLoopResumed,
	proximity.EventScannerRestarted,
	proximity.EventScannerRecovered,
	proximity.EventHostLocked,
	proximity.EventHostUnlocked,
	proximity.EventHandlerReset,
	proximity.EventCallbackError,
}

// Options controls which journal events are printed and how.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// File overrides the configured journal path.
	File string
	// Kinds keeps only these event kinds.
	Kinds []string
	// Session keeps only events of one session.
	Session string
	// Since keeps events newer than this age; zero keeps everything.
	Since time.Duration
	// JSON prints one JSON object per line.
	JSON bool
	// Output receives the events; defaults to stdout.
	Output io.Writer
	// Now is the reference time for Since; defaults to time.Now.
	Now func() time.Time
}

// Run prints the matching journal events in order.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "events")

	path := opts.File
	if path == "" {
		// Load settings from configuration file.
		cfg, err := config.LoadOrDefault(opts.ConfigPath)
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		path = cfg.JournalFile
	}

	if path == "" {
		return ErrNoJournal
	}

	filter, err := buildFilter(opts)
	if err != nil {
		return err
	}

	reader, err := eventlog.NewReader(path, filter)
	if err != nil {
		return err
	}

	defer func() {
		_ = reader.Close()
	}()

	output := opts.Output
	if output == nil {
		output = os.Stdout
	}

	write := writeText
	if opts.JSON {
		write = writeJSON
	}

	count := 0

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return fmt.Errorf("read journal: %w", err)
		}

		if err = write(output, event); err != nil {
			return err
		}

		count++
	}

	logger.DebugKV(ctx, "Journal printed", "path", path, "events", count)

	return nil
}

func buildFilter(opts *Options) (eventlog.Filter, error) {
	filter := eventlog.Filter{Session: opts.Session}

	for _, raw := range opts.Kinds {
		kind := proximity.EventKind(strings.TrimSpace(raw))

		if !slices.Contains(knownKinds, kind) {
			return filter, fmt.Errorf("%w: %q", ErrUnknownKind, raw)
		}

		filter.Kinds = append(filter.Kinds, kind)
	}

	if opts.Since > 0 {
		now := time.Now
		if opts.Now != nil {
			now = opts.Now
		}

		filter.Since = now().Add(-opts.Since)
	}

	return filter, nil
}

// writeText prints the event as "time kind key=value ...".
func writeText(w io.Writer, event proximity.Event) error {
	var builder strings.Builder

	builder.WriteString(event.Time.Local().Format(time.DateTime))
	builder.WriteString("  ")
	fmt.Fprintf(&builder, "%-18s", event.Kind)

	kvs := eventlog.Fields(event)
	for i := 0; i+1 < len(kvs); i += 2 {
		fmt.Fprintf(&builder, " %v=%v", kvs[i], kvs[i+1])
	}

	_, err := fmt.Fprintln(w, builder.String())

	return err
}

// jsonEvent is the JSON shape of an event with the state spelled out.
type jsonEvent struct {
	proximity.Event

	State string `json:"state"`
}

func writeJSON(w io.Writer, event proximity.Event) error {
	contents, err := json.Marshal(jsonEvent{Event: event, State: event.State.String()})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	_, err = fmt.Fprintln(w, string(contents))

	return err
}
