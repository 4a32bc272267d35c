// Package log provides structured event capture for wingthing devices.
//
// This package defines the Logger interface and Event types for recording
// what the device did: connectivity state changes, HTTP exchanges, actuator
// updates, name advertisements, and errors. It is separate from operational
// logging (slog) - event capture is a complete machine-readable trace that
// can be inspected after the fact with the wingthing-log tool.
//
// # Basic Usage
//
// Components accept a Logger in their configuration:
//
//	// For development: log to console via slog
//	cfg.EventLogger = log.NewSlogAdapter(slog.Default())
//
//	// On a device: write to a file
//	cfg.EventLogger, _ = log.NewFileLogger("/var/lib/wingthing/events.wlog")
//
//	// Both: use MultiLogger
//	cfg.EventLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
// Each event carries exactly one payload:
//   - StateChangeEvent: connectivity state transitions
//   - ExchangeEvent: one HTTP request/response cycle
//   - ActuationEvent: a pulse width update on the actuator
//   - AdvertisementEvent: a hostname/service publication
//   - ErrorEventData: a logged failure at any component
//
// # File Format
//
// Log files (.wlog) are a stream of CBOR items with integer map keys. The
// first item is a FileHeader carrying a magic string and FormatVersion;
// every following item is one Event. FileLogger only appends to files whose
// header it recognizes. Reader treats a partially written last event as the
// end of the file.
package log
