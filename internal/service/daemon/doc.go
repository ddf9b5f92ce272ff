// Package daemon manages a monitor running in the background.
//
// A background monitor publishes a session record (PID, session id, target) when it
// starts and removes it when it exits. Start spawns a detached "monitor --daemon"
// process, Stop signals the recorded PID, and Status combines the record, the process
// table and the monitor's gRPC health endpoint.
package daemon
