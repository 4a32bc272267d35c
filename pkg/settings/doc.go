// Package settings persists the device's network credentials, identity and
// hardware parameters as a YAML file.
//
// Store.Init is the boot-time entry point: a missing file is created with
// defaults, and a file that is unreadable or written by a newer version is
// erased and recreated rather than failing the boot.
package settings
