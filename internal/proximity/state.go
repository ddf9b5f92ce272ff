package proximity

// AlertState is the current monitoring state. Exactly one value is current at any time.
type AlertState uint8

const (
	// Monitoring is the initial state: the device is in range or its position is not yet known.
	Monitoring AlertState = iota
	// OutOfRange means the device crossed the threshold and the lock action already fired.
	OutOfRange
	// GraceSuppressed ignores out-of-range readings for a while after an unlock.
	GraceSuppressed
	// Paused suspends all alerting after a lock loop was detected.
	Paused
)

func (s AlertState) String() string {
	switch s {
	case Monitoring:
		return "monitoring"
	case OutOfRange:
		return "out_of_range"
	case GraceSuppressed:
		return "grace_suppressed"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}
