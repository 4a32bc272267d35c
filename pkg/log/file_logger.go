package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileLogger appends events to a CBOR event file. A new file starts with a
// FileHeader. It is safe for concurrent use.
type FileLogger struct {
	mu      sync.Mutex
	file    *os.File
	enc     *cbor.Encoder
	closed  bool
	written uint64
	dropped uint64
}

// NewFileLogger opens path for appending, creating it and any missing
// parent directories. An existing non-empty file must be an event log of a
// supported version.
func NewFileLogger(path string) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	l := &FileLogger{file: f, enc: eventCodec.enc.NewEncoder(f)}

	if info.Size() == 0 {
		if err := l.enc.Encode(newFileHeader()); err != nil {
			f.Close()
			return nil, fmt.Errorf("write event log header: %w", err)
		}
		return l, nil
	}

	var h FileHeader
	if err := eventCodec.dec.NewDecoder(io.NewSectionReader(f, 0, info.Size())).Decode(&h); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotEventLog, path)
	}
	if err := h.check(); err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// Log appends an event. Encoding failures are counted, not returned, so
// capture never disturbs the caller.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	if err := l.enc.Encode(event); err != nil {
		l.dropped++
		return
	}
	l.written++
}

// Stats returns how many events were written and dropped since open.
func (l *FileLogger) Stats() (written, dropped uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.written, l.dropped
}

// Sync flushes the file to stable storage.
func (l *FileLogger) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return errors.New("event log closed")
	}
	return l.file.Sync()
}

// Close closes the file. Further Log calls are ignored and a second Close
// returns nil.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}

// Compile-time interface satisfaction check.
var _ Logger = (*FileLogger)(nil)
