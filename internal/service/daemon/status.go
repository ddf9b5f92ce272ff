package daemon

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/proximity-lock/proximity-lock/internal/config"
	domain "github.com/proximity-lock/proximity-lock/internal/domain/session"
	"github.com/proximity-lock/proximity-lock/internal/logger"
	repository "github.com/proximity-lock/proximity-lock/internal/repository/session"
	"github.com/proximity-lock/proximity-lock/internal/service/common"
	"github.com/proximity-lock/proximity-lock/internal/service/health"
)

// statusUnknown is reported for services that could not be queried.
const statusUnknown = "UNKNOWN"

// Report is the state of the background monitor.
type Report struct {
	// Running is true when a live monitor owns the session record.
	Running bool
	// Session is the session record of the running monitor.
	Session *domain.Session
	// Monitor is the health status of the monitor service.
	Monitor string
	// Scanner is the health status of the BLE scanner.
	Scanner string
	// HealthError describes why the health endpoint could not be queried.
	HealthError string
}

// Status prints the state of the background monitor.
func Status(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "daemon")

	// Load settings from configuration file.
	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	report, err := Inspect(ctx, repository.NewFileRepository(cfg.SessionPath()), cfg.Timeout)
	if err != nil {
		return err
	}

	output := opts.Output
	if output == nil {
		output = os.Stdout
	}

	if opts.JSON {
		return writeJSON(output, report, time.Now())
	}

	return writeText(output, report, time.Now())
}

// Inspect gathers the session record and, when the monitor is alive, its health.
func Inspect(ctx context.Context, repo repository.Repository, timeout time.Duration) (*Report, error) {
	record, err := activeSession(ctx, repo)
	if err != nil {
		return nil, err
	}

	if record == nil {
		return &Report{}, nil
	}

	report := &Report{
		Running: true,
		Session: record,
		Monitor: statusUnknown,
		Scanner: statusUnknown,
	}

	if record.HealthAddress == "" {
		report.HealthError = "health endpoint disabled"

		return report, nil
	}

	client, err := common.Dial(ctx, record.HealthAddress, common.WithCallTimeout(timeout))
	if err != nil {
		report.HealthError = err.Error()

		return report, nil
	}

	defer func() {
		_ = client.Close()
	}()

	for service, target := range map[string]*string{
		health.MonitorService: &report.Monitor,
		health.ScannerService: &report.Scanner,
	} {
		response, err := client.Check(ctx, service)
		if err != nil {
			report.HealthError = err.Error()

			continue
		}

		*target = response.GetStatus().String()
	}

	return report, nil
}

func writeText(w io.Writer, report *Report, now time.Time) error {
	if !report.Running {
		_, err := fmt.Fprintln(w, "proximity-lock is not running")

		return err
	}

	s := report.Session

	lines := []string{
		"proximity-lock is running",
		fmt.Sprintf("  session:  %s", s.ID),
		fmt.Sprintf("  pid:      %d", s.PID),
		fmt.Sprintf("  target:   %s", s.Target),
		fmt.Sprintf("  started:  %s by %s (up %s)", s.StartedAt.Format(time.RFC3339), s.StartedBy, s.Uptime(now)),
		fmt.Sprintf("  monitor:  %s", report.Monitor),
		fmt.Sprintf("  scanner:  %s", report.Scanner),
	}

	if s.LogFile != "" {
		lines = append(lines, fmt.Sprintf("  log file: %s", s.LogFile))
	}

	if report.HealthError != "" {
		lines = append(lines, fmt.Sprintf("  health:   %s", report.HealthError))
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	return nil
}

func writeJSON(w io.Writer, report *Report, now time.Time) error {
	fields := map[string]any{"running": report.Running}

	if report.Running {
		s := report.Session
		fields["session"] = s.ID
		fields["pid"] = s.PID
		fields["target"] = s.Target
		fields["started_at"] = s.StartedAt.Format(time.RFC3339)
		fields["started_by"] = s.StartedBy.String()
		fields["uptime_seconds"] = s.Uptime(now).Seconds()
		fields["log_file"] = s.LogFile
		fields["monitor"] = report.Monitor
		fields["scanner"] = report.Scanner

		if report.HealthError != "" {
			fields["health_error"] = report.HealthError
		}
	}

	message, err := structpb.NewStruct(fields)
	if err != nil {
		return fmt.Errorf("build status: %w", err)
	}

	contents, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}

	_, err = fmt.Fprintln(w, string(contents))

	return err
}
