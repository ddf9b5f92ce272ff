// Package updater replaces the running binary with a newer published release.
//
// It downloads the release manifest from the configured update folder, compares
// versions, downloads the artifact for the current platform and applies it
// atomically with a SHA-512 checksum check. A background monitor is stopped
// before the swap and started again afterwards when requested.
package updater
