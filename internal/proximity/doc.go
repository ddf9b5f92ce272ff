// Package proximity implements the proximity state engine:
//   - Smoother: a bounded rolling buffer of RSSI samples with a running mean,
//   - EstimateDistance: the log-distance path-loss model,
//   - Machine: the alert/grace/lock-loop state machine,
//   - ScannerHealth: stall detection with exponential restart backoff,
//   - Monitor: the single event loop tying them to a scanner, a locker and a screen query.
//
// All engine state is confined to the goroutine running Monitor.Run. Scanner callbacks,
// watchdog ticks and lock-handling reports reach it through channels, so none of the
// types in this package need their own locking.
package proximity
