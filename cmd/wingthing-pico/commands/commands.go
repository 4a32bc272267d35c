// Package commands implements the single-byte serial protocol spoken by the
// wingthing-pico firmware.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/wingthing/wingthing-go/pkg/actuator"
)

// ErrInvalidInput is returned for a malformed command argument.
var ErrInvalidInput = errors.New("invalid input")

// idlePoll is how long Run waits after an empty read.
const idlePoll = 10 * time.Millisecond

// Controller is the latch the commands act on.
type Controller interface {
	Open() (uint32, error)
	Close() (uint32, error)
	SetPulseWidth(us uint32) (uint32, error)
	Status() actuator.Status
}

// Command is one serial command: a flag byte followed by InputSize
// argument bytes.
type Command struct {
	Flag        byte
	InputSize   uint
	Run         func(Controller, []byte, io.Writer) error
	Description string
}

var (
	OpenCommand = &Command{
		Flag: 'O',
		Run: func(c Controller, _ []byte, w io.Writer) error {
			return report(w, "open")(c.Open())
		},
		Description: "Move the servo to the open position.",
	}
	CloseCommand = &Command{
		Flag: 'C',
		Run: func(c Controller, _ []byte, w io.Writer) error {
			return report(w, "close")(c.Close())
		},
		Description: "Move the servo to the closed position.",
	}
	PositionCommand = &Command{
		Flag:      'P',
		InputSize: 1,
		Run: func(c Controller, in []byte, w io.Writer) error {
			step, ok := digit(in[0])
			if !ok {
				return fmt.Errorf("%w: %q", ErrInvalidInput, in[0])
			}
			st := c.Status()
			us := st.MinPulse + (st.MaxPulse-st.MinPulse)*step/9
			return report(w, "position")(c.SetPulseWidth(us))
		},
		Description: "Move to a position between closed and open. Input: 0-9.",
	}
	StatusCommand = &Command{
		Flag: 'S',
		Run: func(c Controller, _ []byte, w io.Writer) error {
			st := c.Status()
			if !st.Configured {
				fmt.Fprintln(w, "status: not configured")
				return nil
			}
			fmt.Fprintf(w, "status: GPIO%d %d us (range %d-%d, period %d)\n",
				st.Pin, st.Current, st.MinPulse, st.MaxPulse, st.Period)
			return nil
		},
		Description: "Print the current pulse width.",
	}
	HelpCommand = &Command{
		Flag:        'H',
		Description: "Show all available commands and their descriptions.",
	}
)

// HelpCommand.Run is assigned here to break the initialization cycle
// HelpCommand -> commands -> HelpCommand.
func init() {
	HelpCommand.Run = func(_ Controller, _ []byte, w io.Writer) error {
		fmt.Fprintln(w, "Available Commands:")
		for _, cmd := range commands {
			fmt.Fprintf(w, "%c: %s\n", cmd.Flag, cmd.Description)
		}
		return nil
	}
}

var commands = []*Command{
	OpenCommand,
	CloseCommand,
	PositionCommand,
	StatusCommand,
	HelpCommand,
}

// Lookup returns the command for flag.
func Lookup(flag byte) (*Command, bool) {
	for _, cmd := range commands {
		if cmd.Flag == flag {
			return cmd, true
		}
	}
	return nil, false
}

// Run reads commands from r until ctx is done, executing each against c and
// writing replies to w. Unknown flags are ignored. Read errors are treated
// as an empty line and retried.
func Run(ctx context.Context, c Controller, r io.ByteReader, w io.Writer) {
	next := func() (byte, bool) {
		for {
			if ctx.Err() != nil {
				return 0, false
			}
			b, err := r.ReadByte()
			if err == nil {
				return b, true
			}
			time.Sleep(idlePoll)
		}
	}

	for {
		flag, ok := next()
		if !ok {
			return
		}

		cmd, found := Lookup(flag)
		if !found {
			continue
		}

		in := make([]byte, cmd.InputSize)
		for i := range in {
			if in[i], ok = next(); !ok {
				return
			}
		}

		if err := cmd.Run(c, in, w); err != nil {
			fmt.Fprintln(w, "error:", err.Error())
		}
	}
}

func report(w io.Writer, what string) func(uint32, error) error {
	return func(applied uint32, err error) error {
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s: %d us\n", what, applied)
		return nil
	}
}

func digit(b byte) (uint32, bool) {
	if b < '0' || b > '9' {
		return 0, false
	}
	return uint32(b - '0'), true
}
