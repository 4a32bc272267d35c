package dispatch

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wingthing/wingthing-go/pkg/log"
)

// ExchangeIDHeader carries the per-exchange ID on every response.
const ExchangeIDHeader = "X-Exchange-ID"

// Dispatcher errors.
var (
	ErrInvalidRoute   = errors.New("invalid route")
	ErrDuplicateRoute = errors.New("duplicate route")
	ErrFrozen         = errors.New("route table frozen")
)

// Route binds a method and exact path to a handler.
type Route struct {
	Method  string
	Path    string
	Handler http.Handler
}

// Exchange summarizes one request/response cycle. It is logged and then
// discarded.
type Exchange struct {
	ID         string
	Method     string
	Path       string
	Status     int
	BodySize   int
	RemoteAddr string
	Duration   time.Duration
}

// Config configures a Dispatcher.
type Config struct {
	// Logger receives one debug line per exchange. Nil disables logging.
	Logger *slog.Logger

	// EventLogger receives exchange events. Nil disables capture.
	EventLogger log.Logger

	// OnExchange, if set, is called after every exchange.
	OnExchange func(Exchange)
}

// Dispatcher is an http.Handler over an immutable route table.
type Dispatcher struct {
	mu     sync.RWMutex
	routes map[string]Route
	frozen bool

	logger     *slog.Logger
	events     log.Logger
	onExchange func(Exchange)
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(cfg Config) *Dispatcher {
	return &Dispatcher{
		routes:     make(map[string]Route),
		logger:     cfg.Logger,
		events:     log.OrNoop(cfg.EventLogger),
		onExchange: cfg.OnExchange,
	}
}

// Handle registers r. Paths must be absolute and unique.
func (d *Dispatcher) Handle(r Route) error {
	if r.Handler == nil || r.Method == "" || !strings.HasPrefix(r.Path, "/") {
		return fmt.Errorf("%w: %s %q", ErrInvalidRoute, r.Method, r.Path)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frozen {
		return ErrFrozen
	}
	if _, exists := d.routes[r.Path]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateRoute, r.Path)
	}
	d.routes[r.Path] = r
	return nil
}

// HandleAll registers every route, stopping at the first error.
func (d *Dispatcher) HandleAll(routes []Route) error {
	for _, r := range routes {
		if err := d.Handle(r); err != nil {
			return err
		}
	}
	return nil
}

// Freeze makes the route table immutable.
func (d *Dispatcher) Freeze() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frozen = true
}

// Routes returns the registered routes sorted by path.
func (d *Dispatcher) Routes() []Route {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Route, 0, len(d.routes))
	for _, r := range d.routes {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// ServeHTTP implements http.Handler.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := uuid.NewString()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	rec.Header().Set(ExchangeIDHeader, id)

	d.mu.RLock()
	route, ok := d.routes[r.URL.Path]
	d.mu.RUnlock()

	switch {
	case !ok:
		http.NotFound(rec, r)
	case r.Method != route.Method:
		rec.Header().Set("Allow", route.Method)
		http.Error(rec, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	default:
		route.Handler.ServeHTTP(rec, r)
	}

	d.record(Exchange{
		ID:         id,
		Method:     r.Method,
		Path:       r.URL.Path,
		Status:     rec.status,
		BodySize:   rec.size,
		RemoteAddr: r.RemoteAddr,
		Duration:   time.Since(start),
	})
}

func (d *Dispatcher) record(ex Exchange) {
	d.events.Log(log.Event{
		Timestamp: time.Now(),
		Component: log.ComponentDispatch,
		Category:  log.CategoryExchange,
		Exchange: &log.ExchangeEvent{
			ExchangeID: ex.ID,
			Method:     ex.Method,
			Path:       ex.Path,
			Status:     ex.Status,
			BodySize:   ex.BodySize,
			RemoteAddr: ex.RemoteAddr,
			Duration:   ex.Duration,
		},
	})
	if d.logger != nil {
		d.logger.Debug("http exchange",
			"exchange_id", ex.ID,
			"method", ex.Method,
			"path", ex.Path,
			"status", ex.Status,
			"bytes", ex.BodySize,
			"duration", ex.Duration,
		)
	}
	if d.onExchange != nil {
		d.onExchange(ex)
	}
}

// statusRecorder captures the status code and body size.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	size        int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}
