// Package health exposes a running monitor over the standard gRPC health protocol.
//
// The overall server status is SERVING while the monitor runs. The ScannerService
// status follows the engine's scanner events: NOT_SERVING after a watchdog restart,
// SERVING again once advertisements flow.
package health
