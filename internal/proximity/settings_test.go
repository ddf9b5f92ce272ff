package proximity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSettings_Validate(t *testing.T) {
	t.Parallel()

	valid := DefaultSettings()
	valid.TargetAddress = "AA:BB:CC:DD:EE:FF"
	require.NoError(t, valid.Validate())

	cases := map[string]func(*Settings){
		"no target":        func(s *Settings) { s.TargetAddress = "" },
		"zero threshold":   func(s *Settings) { s.Threshold = 0 },
		"positive rssi":    func(s *Settings) { s.ReferenceRSSI = 3 },
		"zero exponent":    func(s *Settings) { s.PathLossExponent = 0 },
		"empty window":     func(s *Settings) { s.SampleWindow = 0 },
		"negative grace":   func(s *Settings) { s.GracePeriod = -1 },
		"zero loop count":  func(s *Settings) { s.LockLoopThreshold = 0 },
		"zero loop window": func(s *Settings) { s.LockLoopWindow = 0 },
	}

	for name, mutate := range cases {
		s := valid
		mutate(&s)
		require.ErrorIs(t, s.Validate(), ErrInvalidSettings, name)
	}
}

func TestTiming_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultTiming().Validate())

	tm := DefaultTiming()
	tm.BackoffMax = tm.BackoffBase / 2
	require.ErrorIs(t, tm.Validate(), ErrInvalidSettings)

	tm = DefaultTiming()
	tm.WatchdogInterval = 0
	require.ErrorIs(t, tm.Validate(), ErrInvalidSettings)

	tm = DefaultTiming()
	tm.ResumeAttempts = 0
	require.ErrorIs(t, tm.Validate(), ErrInvalidSettings)
}
