// Package session contains the domain types describing a running monitor.
//
// It defines Actor (who started the monitor) and Session (the running daemon and
// what it tracks) with Clone helpers to avoid leaking internal references.
package session
