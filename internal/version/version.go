package version

import (
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/mod/semver"
)

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "0.1.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit, build time and platform.
func Full() string {
	return fmt.Sprintf("version: %s, commit: %s, built at: %s, platform: %s/%s",
		Version, Commit, BuildTime, runtime.GOOS, runtime.GOARCH)
}

// Canonical returns v as a "vMAJOR.MINOR.PATCH" semver string, or "" if v is not a version.
func Canonical(v string) string {
	v = strings.TrimSpace(v)
	if v != "" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}

	return semver.Canonical(v)
}

// IsNewer reports whether candidate is a later release than current.
// An unparsable current version is older than any valid candidate.
func IsNewer(candidate, current string) bool {
	c := Canonical(candidate)
	if c == "" {
		return false
	}

	return semver.Compare(c, Canonical(current)) > 0
}
