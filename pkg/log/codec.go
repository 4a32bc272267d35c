package log

import (
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// FormatVersion is the event file format written by FileLogger.
const FormatVersion = 1

// fileMagic identifies an event log file.
const fileMagic = "wingthing-events"

// Event file errors.
var (
	ErrNotEventLog        = errors.New("not a wingthing event log")
	ErrUnsupportedVersion = errors.New("unsupported event log version")
)

// FileHeader is the first item of every event log file.
type FileHeader struct {
	Magic   string    `cbor:"1,keyasint"`
	Version int       `cbor:"2,keyasint"`
	Created time.Time `cbor:"3,keyasint"`
}

func newFileHeader() FileHeader {
	return FileHeader{Magic: fileMagic, Version: FormatVersion, Created: time.Now().UTC()}
}

func (h FileHeader) check() error {
	if h.Magic != fileMagic {
		return ErrNotEventLog
	}
	if h.Version < 1 || h.Version > FormatVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	return nil
}

// codec holds the CBOR modes for event files: integer map keys, canonical
// key order and nanosecond RFC 3339 timestamps.
type codec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var eventCodec = mustCodec()

func mustCodec() codec {
	enc, err := cbor.EncOptions{
		Sort:          cbor.SortCoreDeterministic,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("log: event encoder: %v", err))
	}

	dec, err := cbor.DecOptions{
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
		IndefLength:     cbor.IndefLengthForbidden,
		MaxNestedLevels: 16,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("log: event decoder: %v", err))
	}

	return codec{enc: enc, dec: dec}
}

// Marshal encodes a single event.
func Marshal(event Event) ([]byte, error) {
	return eventCodec.enc.Marshal(event)
}

// Unmarshal decodes a single event.
func Unmarshal(data []byte) (Event, error) {
	var event Event
	if err := eventCodec.dec.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}
