// Package power talks to the host session: it locks the screen and reports whether
// the screen is locked, using the tools each operating system ships with.
package power
