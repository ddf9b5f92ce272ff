// Package events prints the CBOR event journal written by monitors.
package events
