package log

import (
	"context"
	"log/slog"
	"strings"
)

// SlogAdapter writes events to an slog.Logger.
// Useful for development when you want to see device events in the console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger. Errors are logged at Warn level,
// everything else at Debug.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("component", event.Component.String()),
		slog.String("category", event.Category.String()),
	}
	if event.EpochID != "" {
		attrs = append(attrs, slog.String("epoch_id", event.EpochID))
	}

	level := slog.LevelDebug

	switch {
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Trigger != "" {
			attrs = append(attrs, slog.String("trigger", event.StateChange.Trigger))
		}
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Exchange != nil:
		attrs = append(attrs,
			slog.String("exchange_id", event.Exchange.ExchangeID),
			slog.String("method", event.Exchange.Method),
			slog.String("path", event.Exchange.Path),
			slog.Int("status", event.Exchange.Status),
			slog.Int("body_size", event.Exchange.BodySize),
		)
		if event.Exchange.RemoteAddr != "" {
			attrs = append(attrs, slog.String("remote_addr", event.Exchange.RemoteAddr))
		}
		if event.Exchange.Duration > 0 {
			attrs = append(attrs, slog.Duration("duration", event.Exchange.Duration))
		}
	case event.Actuation != nil:
		attrs = append(attrs,
			slog.Uint64("requested_us", uint64(event.Actuation.Requested)),
			slog.Uint64("applied_us", uint64(event.Actuation.Applied)),
			slog.Bool("clamped", event.Actuation.Clamped),
		)
	case event.Advertisement != nil:
		attrs = append(attrs,
			slog.String("hostname", event.Advertisement.Hostname),
			slog.String("service_label", event.Advertisement.ServiceLabel),
			slog.Int("port", event.Advertisement.Port),
			slog.Bool("republish", event.Advertisement.Republish),
		)
		if len(event.Advertisement.Addrs) > 0 {
			attrs = append(attrs, slog.String("addrs", strings.Join(event.Advertisement.Addrs, ",")))
		}
	case event.Error != nil:
		level = slog.LevelWarn
		if event.Error.Fatal {
			level = slog.LevelError
		}
		attrs = append(attrs, slog.String("error_msg", event.Error.Message))
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("error_context", event.Error.Context))
		}
	}

	a.logger.LogAttrs(context.Background(), level, "event", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
