// Package discovery advertises the device on the local network via mDNS/DNS-SD.
//
// The device publishes a single record: an A/AAAA record for its hostname
// (e.g. "love.local") and an _http._tcp service instance pointing at the
// HTTP control surface. TXT records describe the available paths:
//
//	path=/         landing page
//	trigger=/open  actuation endpoint
//	version=...    build version (optional)
//
// Publishing is idempotent: a second Publish replaces the first record
// rather than adding another, so the connectivity layer can republish after
// every reconnection without accumulating stale entries.
package discovery
