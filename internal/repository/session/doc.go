// Package session implements persistence for the running monitor's Session record.
//
// The FileRepository stores the record as YAML next to the configuration so that
// the start, stop and status commands can find the background monitor.
package session
