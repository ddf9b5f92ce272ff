package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/proximity-lock/proximity-lock/internal/proximity"
)

// TestValidate_Defaults checks that an empty file gets every default.
func TestValidate_Defaults(t *testing.T) {
	t.Parallel()

	cfg := new(Config)
	require.NoError(t, Validate(cfg))

	require.InDelta(t, 2.0, cfg.Proximity.ThresholdMeters, 1e-9)
	require.InDelta(t, -59.0, cfg.Proximity.TxPowerAt1m, 1e-9)
	require.InDelta(t, 2.8, cfg.Proximity.PathLossExponent, 1e-9)
	require.Equal(t, 12, cfg.Proximity.SampleWindow)
	require.Equal(t, 30*time.Second, cfg.Safety.GracePeriod)
	require.Equal(t, 3, cfg.Safety.LockLoopThreshold)
	require.Equal(t, 2*time.Second, cfg.Watchdog.Interval)
	require.Equal(t, 120*time.Second, cfg.Watchdog.HealthTimeout)
	require.Equal(t, "info", cfg.Logging.Level)
	require.Empty(t, cfg.SessionFile)
	require.Equal(t, proximity.DefaultTiming(), cfg.Timing())
}

// TestValidate_Rejects covers values that cannot work.
func TestValidate_Rejects(t *testing.T) {
	t.Parallel()

	cases := map[string]*Config{
		"bad address":     {Target: TargetConfig{Address: "kitchen"}},
		"positive tx":     {Proximity: ProximityConfig{TxPowerAt1m: 4}},
		"negative window": {Proximity: ProximityConfig{SampleWindow: -1}},
		"negative grace":  {Safety: SafetyConfig{GracePeriod: -time.Second}},
		"log level":       {Logging: LoggingConfig{Level: "chatty"}},
		"backoff order":   {Watchdog: WatchdogConfig{BackoffBase: time.Minute, BackoffMax: time.Second}},
		"health address":  {HealthAddress: "bad:address"},
		"update folder":   {UpdateFolder: "not a url"},
	}

	for name, cfg := range cases {
		require.ErrorIs(t, Validate(cfg), ErrInvalidConfig, name)
	}

	require.Error(t, Validate(nil))
}

func TestNormalizeAddress(t *testing.T) {
	t.Parallel()

	address, err := NormalizeAddress(" aa:bb:cc:dd:ee:ff ")
	require.NoError(t, err)
	require.Equal(t, "AA:BB:CC:DD:EE:FF", address)

	address, err = NormalizeAddress("aa-bb-cc-dd-ee-ff")
	require.NoError(t, err)
	require.Equal(t, "AA:BB:CC:DD:EE:FF", address)

	address, err = NormalizeAddress("5a1c2f9e-0b8d-4c3a-9e51-7d2f6a4b8c10")
	require.NoError(t, err)
	require.Equal(t, "5A1C2F9E-0B8D-4C3A-9E51-7D2F6A4B8C10", address)

	_, err = NormalizeAddress("00:00:5e:00:53:01:02:03")
	require.ErrorIs(t, err, ErrInvalidConfig)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")

	cfg := &Config{
		Target:        TargetConfig{Address: "aa:bb:cc:dd:ee:ff", Name: "keys"},
		Proximity:     ProximityConfig{ThresholdMeters: 3.5, SampleWindow: 8},
		Safety:        SafetyConfig{GracePeriod: 45 * time.Second},
		UpdateFolder:  "https://updates.local/",
		HealthAddress: DefaultHealthAddress,
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)

	settings := loaded.Settings()
	require.Equal(t, "AA:BB:CC:DD:EE:FF", settings.TargetAddress)
	require.InDelta(t, 3.5, settings.Threshold, 1e-9)
	require.Equal(t, 8, settings.SampleWindow)
	require.Equal(t, 45*time.Second, settings.GracePeriod)
	require.NoError(t, settings.Validate())
}

// TestLoad_HandWritten checks duration strings and partial files.
func TestLoad_HandWritten(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "proximity-lock.yaml")
	contents := `
target:
  address: AA:BB:CC:DD:EE:FF
proximity:
  threshold_m: 1.5
safety:
  lock_loop_penalty: 5m
watchdog:
  health_timeout: 90s
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.InDelta(t, 1.5, cfg.Proximity.ThresholdMeters, 1e-9)
	require.Equal(t, 5*time.Minute, cfg.Safety.LockLoopPenalty)
	require.Equal(t, 90*time.Second, cfg.Timing().HealthTimeout)
	require.Equal(t, DefaultHealthAddress, cfg.HealthAddress)
	require.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	t.Parallel()

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Empty(t, cfg.Target.Address)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

// TestDefaultFiles_UnderHome keeps daemon files in one place whatever the working directory.
func TestDefaultFiles_UnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	cfg := Default()
	require.Equal(t, filepath.Join(home, DefaultSessionFilename), cfg.SessionPath())
	require.Equal(t, filepath.Join(home, DefaultLogFilename), DefaultLogFile())

	// Another working directory resolves to the same files.
	t.Chdir(t.TempDir())
	require.Equal(t, filepath.Join(home, DefaultSessionFilename), cfg.SessionPath())

	cfg.SessionFile = "custom-session.yaml"
	require.Equal(t, "custom-session.yaml", cfg.SessionPath())

	// Saved files keep the default implicit.
	path := filepath.Join(home, "proximity-lock.yaml")
	require.NoError(t, Save(path, Default()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(data), "session_file")
}
