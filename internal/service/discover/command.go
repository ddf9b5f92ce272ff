package discover

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/proximity-lock/proximity-lock/internal/bluetooth"
	"github.com/proximity-lock/proximity-lock/internal/config"
	"github.com/proximity-lock/proximity-lock/internal/logger"
	"github.com/proximity-lock/proximity-lock/internal/proximity"
)

const (
	// MinDuration is the shortest allowed scan.
	MinDuration = 5 * time.Second
	// MaxDuration is the longest allowed scan.
	MaxDuration = 60 * time.Second
	// DefaultDuration is used when no duration is given.
	DefaultDuration = 10 * time.Second
)

// ErrInvalidDuration indicates a scan duration outside [MinDuration, MaxDuration].
var ErrInvalidDuration = errors.New("scan duration out of range")

// Options controls a discovery scan.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// Duration is how long to scan.
	Duration time.Duration
	// Demo scans synthetic devices instead of the BLE adapter.
	Demo bool
	// Output receives the device table; defaults to stdout.
	Output io.Writer
	// Scanner replaces the platform scanner when set.
	Scanner proximity.Scanner
}

// Run scans for nearby devices and prints them strongest first.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "scan")

	if opts.Duration < MinDuration || opts.Duration > MaxDuration {
		return fmt.Errorf("%w: %s not in [%s, %s]", ErrInvalidDuration, opts.Duration, MinDuration, MaxDuration)
	}

	// Load path-loss parameters so the distances match what the monitor would compute.
	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	scanner := opts.Scanner
	if scanner == nil {
		if opts.Demo {
			scanner = bluetooth.NewMockScanner(bluetooth.MockOptions{Target: cfg.Target.Address, Neighbours: 6})
		} else {
			scanner = bluetooth.NewBLEScanner()
		}
	}

	output := opts.Output
	if output == nil {
		output = os.Stdout
	}

	logger.InfoKV(ctx, "Scanning for devices", "duration", opts.Duration.String())

	devices, err := bluetooth.Discover(ctx, scanner, opts.Duration, bluetooth.Estimation{
		ReferenceRSSI:    cfg.Proximity.TxPowerAt1m,
		PathLossExponent: cfg.Proximity.PathLossExponent,
	})
	if err != nil {
		return fmt.Errorf("discover devices: %w", err)
	}

	logger.InfoKV(ctx, "Scan finished", "devices", len(devices))

	return writeTable(output, devices, cfg.Target.Address)
}

// writeTable renders devices as an aligned table, marking the configured target.
func writeTable(w io.Writer, devices []bluetooth.Device, target string) error {
	if len(devices) == 0 {
		_, err := fmt.Fprintln(w, "No devices found.")

		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "\tADDRESS\tNAME\tRSSI\tDISTANCE\tSAMPLES")

	for _, device := range devices {
		marker := ""
		if device.Address == target {
			marker = "*"
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\t%s\t%d\n",
			marker,
			device.Address,
			device.DisplayName(),
			device.RSSI,
			device.Distance,
			device.Samples,
		)
	}

	return tw.Flush()
}
