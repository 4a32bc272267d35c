package dispatch

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/wingthing/wingthing-go/pkg/actuator"
	"github.com/wingthing/wingthing-go/pkg/assets"
)

// Content types of the built-in routes.
const (
	ContentTypeHTML = "text/html"
	ContentTypeJPEG = "image/jpeg"
	ContentTypeText = "text/plain"
)

// TriggerResponse is the body returned by a successful trigger.
const TriggerResponse = "Open"

// Actuator is the part of the actuator driver the trigger route uses.
type Actuator interface {
	SetPulseWidth(us uint32) (uint32, error)
}

// StaticHandler serves payload with a fixed content type. It has no side
// effects, so repeated requests return identical responses.
func StaticHandler(payload []byte, contentType string) http.Handler {
	length := strconv.Itoa(len(payload))
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", length)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(payload)
	})
}

// TriggerHandler sets the actuator to pulse once per request and replies
// "Open". Until the actuator is configured it replies 503 without
// actuating.
func TriggerHandler(act Actuator, pulse uint32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if _, err := act.SetPulseWidth(pulse); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, actuator.ErrNotConfigured) {
				status = http.StatusServiceUnavailable
			}
			http.Error(w, http.StatusText(status), status)
			return
		}

		w.Header().Set("Content-Type", ContentTypeText)
		w.Header().Set("Content-Length", strconv.Itoa(len(TriggerResponse)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(TriggerResponse))
	})
}

// DefaultRoutes returns the device's route table.
func DefaultRoutes(bundle assets.Bundle, act Actuator, openPulse uint32) []Route {
	return []Route{
		{Method: http.MethodGet, Path: "/", Handler: StaticHandler(bundle.Index, ContentTypeHTML)},
		{Method: http.MethodGet, Path: "/us.jpg", Handler: StaticHandler(bundle.Image, ContentTypeJPEG)},
		{Method: http.MethodGet, Path: "/open", Handler: TriggerHandler(act, openPulse)},
	}
}
