package commands

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/wingthing/wingthing-go/pkg/log"
)

// ErrSameFile is returned when the filter output would overwrite its input.
var ErrSameFile = errors.New("output must differ from input")

// FilterOptions selects the events RunFilter copies. Times are RFC 3339.
type FilterOptions struct {
	Output    string
	EpochID   string
	TimeStart string
	TimeEnd   string
	Component string
	Category  string
}

// Filter converts the options into a log.Filter.
func (o FilterOptions) Filter() (log.Filter, error) {
	f := log.Filter{EpochID: o.EpochID}

	var err error
	if f.TimeStart, err = parseBound("time-start", o.TimeStart); err != nil {
		return f, err
	}
	if f.TimeEnd, err = parseBound("time-end", o.TimeEnd); err != nil {
		return f, err
	}
	if o.Component != "" {
		c, err := parseComponent(o.Component)
		if err != nil {
			return f, err
		}
		f.Component = &c
	}
	if o.Category != "" {
		c, err := parseCategory(o.Category)
		if err != nil {
			return f, err
		}
		f.Category = &c
	}
	return f, nil
}

func parseBound(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("-%s %q: %w", name, value, err)
	}
	return &t, nil
}

// RunFilter copies the events of path that match opts into a new event
// file at opts.Output and returns how many were written.
func RunFilter(path string, opts FilterOptions) (int, error) {
	if opts.Output == "" {
		return 0, ErrOutputRequired
	}
	if filepath.Clean(opts.Output) == filepath.Clean(path) {
		return 0, ErrSameFile
	}
	filter, err := opts.Filter()
	if err != nil {
		return 0, err
	}

	src, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer src.Close()

	dst, err := log.NewFileLogger(opts.Output)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", opts.Output, err)
	}

	copyErr := copyEvents(src, dst)
	closeErr := dst.Close()
	written, dropped := dst.Stats()
	switch {
	case copyErr != nil:
		return int(written), copyErr
	case closeErr != nil:
		return int(written), closeErr
	case dropped > 0:
		return int(written), fmt.Errorf("%d events could not be written to %s", dropped, opts.Output)
	}
	return int(written), nil
}

func copyEvents(src *log.Reader, dst log.Logger) error {
	for {
		event, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		dst.Log(event)
	}
}
