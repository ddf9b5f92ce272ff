// Package config defines the proximity-lock settings file and provides helpers to
// load, validate and save it in YAML format.
//
// Zero values are replaced by defaults during validation, so a file only needs the
// keys that differ from them. Settings and Timing convert the file into the immutable
// values the proximity engine is built from.
package config
