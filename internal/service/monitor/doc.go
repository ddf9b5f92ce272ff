// Package monitor runs a proximity monitoring session: it loads the configuration,
// wires the scanner, locker, screen query and event sinks into a proximity.Monitor,
// and keeps the session record of background monitors up to date.
package monitor
