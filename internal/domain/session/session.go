package session

import "time"

// Actor identifies who performed an action in the system.
type Actor struct {
	// Hostname is the machine name where the action was performed.
	Hostname string `yaml:"hostname"`
	// Username is the system user who triggered the action.
	Username string `yaml:"username"`
}

// Clone returns a deep copy of the actor.
func (a *Actor) Clone() *Actor {
	if a == nil {
		return nil
	}

	cloned := *a

	return &cloned
}

func (a *Actor) String() string {
	if a == nil {
		return "unknown"
	}

	return a.Username + "@" + a.Hostname
}

// Session describes a monitor process started in the background.
type Session struct {
	// ID uniquely identifies the monitoring session; it is stamped on journal events.
	ID string `yaml:"id"`
	// PID is the process id of the monitor.
	PID int `yaml:"pid"`
	// StartedAt is when the monitor was started.
	StartedAt time.Time `yaml:"started_at"`
	// StartedBy is the user who started the monitor.
	StartedBy *Actor `yaml:"started_by,omitempty"`
	// Target is the tracked device address.
	Target string `yaml:"target"`
	// HealthAddress is the gRPC health endpoint of the monitor, if enabled.
	HealthAddress string `yaml:"health_addr,omitempty"`
	// LogFile is where the monitor writes its logs.
	LogFile string `yaml:"log_file,omitempty"`
}

// Clone returns a copy of the session to avoid leaking internal references.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}

	cloned := *s
	cloned.StartedBy = s.StartedBy.Clone()

	return &cloned
}

// Uptime returns how long the session has been running at now.
func (s *Session) Uptime(now time.Time) time.Duration {
	return now.Sub(s.StartedAt).Truncate(time.Second)
}
