package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wingthing/wingthing-go/pkg/log"
)

// Store manages persistence of Settings to a YAML file.
type Store struct {
	mu   sync.Mutex
	path string

	logger *slog.Logger
	events log.Logger
}

// StoreConfig configures a Store.
type StoreConfig struct {
	// Path of the settings file.
	Path string

	// Logger receives debug output. Nil disables logging.
	Logger *slog.Logger

	// EventLogger receives erase events. Nil disables capture.
	EventLogger log.Logger
}

// NewStore creates a new settings store.
func NewStore(cfg StoreConfig) *Store {
	return &Store{
		path:   cfg.Path,
		logger: cfg.Logger,
		events: log.OrNoop(cfg.EventLogger),
	}
}

// Path returns the settings file path.
func (s *Store) Path() string {
	return s.path
}

// Init opens the store for boot. A missing file is created with defaults.
// An unparseable, unversioned or newer-version file is erased and replaced
// with defaults. Any other failure, including ErrInvalid, is returned and
// the file is left untouched.
func (s *Store) Init() (*Settings, error) {
	settings, err := s.Load()
	switch {
	case err == nil && settings != nil:
		return settings, nil
	case err == nil:
		s.debugLog("no settings file, writing defaults", "path", s.path)
	case errors.Is(err, ErrCorrupt), errors.Is(err, ErrNewerVersion):
		s.events.Log(log.Event{
			Timestamp: time.Now(),
			Component: log.ComponentSettings,
			Category:  log.CategoryError,
			Error:     &log.ErrorEventData{Message: err.Error(), Context: "erase"},
		})
		if s.logger != nil {
			s.logger.Warn("erasing settings", "path", s.path, "error", err)
		}
		if err := s.Erase(); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	settings = Default()
	if err := s.Save(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// Load reads the settings from disk. Fields absent from the file keep
// their defaults. Returns nil, nil if the file doesn't exist.
func (s *Store) Load() (*Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	settings := Default()
	settings.Version = 0
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if settings.Version < 1 {
		return nil, fmt.Errorf("%w: missing version", ErrCorrupt)
	}
	if settings.Version > CurrentVersion {
		return nil, fmt.Errorf("%w: version %d", ErrNewerVersion, settings.Version)
	}
	// Out-of-range values are left on disk for the operator to fix.
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}

	return settings, nil
}

// Save validates and persists the settings. The file is replaced
// atomically.
func (s *Store) Save(settings *Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	settings.Version = CurrentVersion
	settings.SavedAt = time.Now().UTC().Truncate(time.Second)

	data, err := yaml.Marshal(settings)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	// Credentials live in this file.
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	s.debugLog("settings saved", "path", s.path)
	return nil
}

// Update loads the settings, applies fn and saves the result.
func (s *Store) Update(fn func(*Settings)) (*Settings, error) {
	settings, err := s.Init()
	if err != nil {
		return nil, err
	}
	fn(settings)
	if err := s.Save(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// Erase removes the settings file.
func (s *Store) Erase() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *Store) debugLog(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
