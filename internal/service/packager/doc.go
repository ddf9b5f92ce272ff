// Package packager prepares the release manifest consumed by the updater.
//
// It computes checksums for the platform binaries found in a dist folder and
// writes the manifest plus a configuration template pointing at the update
// folder. The folder contents are then uploaded where clients can fetch them.
package packager
