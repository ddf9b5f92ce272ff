// Package bluetooth adapts BLE scanning to the proximity engine.
// BLEScanner drives the system adapter through tinygo.org/x/bluetooth, MockScanner
// produces synthetic advertisements for demo mode, and Discover collects a one-shot
// listing of nearby devices from either of them.
package bluetooth
