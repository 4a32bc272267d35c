// Package interactive provides the operator console for wingthing.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/wingthing/wingthing-go/pkg/actuator"
	"github.com/wingthing/wingthing-go/pkg/connectivity"
	"github.com/wingthing/wingthing-go/pkg/supervisor"
)

// Device is the part of the supervisor the console drives.
type Device interface {
	Status() supervisor.Status
	Driver() *actuator.Driver
	Manager() *connectivity.Manager
}

// Console handles interactive mode for wingthing.
type Console struct {
	rl  *readline.Instance
	out io.Writer
	dev Device
}

// New creates a console bound to the terminal. Attach must be called before
// Run.
func New() (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "wingthing> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{rl: rl, out: rl.Stdout()}, nil
}

// Stdout returns a writer that coordinates with the readline prompt.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Stderr returns a writer that coordinates with the readline prompt.
// Use this for log output.
func (c *Console) Stderr() io.Writer {
	return c.rl.Stderr()
}

// Attach sets the device the console controls.
func (c *Console) Attach(dev Device) {
	c.dev = dev
}

// Run starts the command loop. It calls cancel when the operator quits.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if quit := c.exec(line); quit {
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}
	}
}

// exec runs one command line and reports whether the console should exit.
func (c *Console) exec(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()
	case "open", "o":
		c.actuate("open", func(d *actuator.Driver) (uint32, error) { return d.Open() })
	case "close", "c":
		c.actuate("close", func(d *actuator.Driver) (uint32, error) { return d.Close() })
	case "pulse", "p":
		c.cmdPulse(args)
	case "status", "s":
		c.cmdStatus()
	case "link":
		c.post(connectivity.Event{Type: connectivity.EventLinkStart, Reason: "console"})
	case "drop":
		c.post(connectivity.Event{Type: connectivity.EventDisconnected, Reason: "console"})
	case "quit", "exit", "q":
		return true
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
wingthing Commands:
  Actuator:
    open               - Move the servo to the open position
    close              - Move the servo to the closed position
    pulse <us>         - Latch a raw pulse width (clamped to the safe range)

  Network:
    link               - Request an association attempt
    drop               - Simulate loss of the link

  General:
    status             - Show device status
    help               - Show this help
    quit               - Exit`)
}

func (c *Console) actuate(what string, fn func(*actuator.Driver) (uint32, error)) {
	d := c.driver()
	if d == nil {
		return
	}
	applied, err := fn(d)
	if err != nil {
		fmt.Fprintf(c.out, "%s failed: %v\n", what, err)
		return
	}
	fmt.Fprintf(c.out, "%s: latched %d us\n", what, applied)
}

func (c *Console) cmdPulse(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: pulse <us>")
		return
	}
	us, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		fmt.Fprintf(c.out, "Invalid pulse width %q\n", args[0])
		return
	}
	c.actuate("pulse", func(d *actuator.Driver) (uint32, error) { return d.SetPulseWidth(uint32(us)) })
}

func (c *Console) cmdStatus() {
	if c.dev == nil {
		fmt.Fprintln(c.out, "No device attached")
		return
	}
	st := c.dev.Status()
	fmt.Fprintln(c.out, "\nDevice Status")
	fmt.Fprintln(c.out, "-------------------------------------------")
	fmt.Fprintf(c.out, "  Phase:          %s\n", st.Phase)
	fmt.Fprintf(c.out, "  Link:           %s\n", st.Link)
	if st.Epoch != "" {
		fmt.Fprintf(c.out, "  Epoch:          %s\n", st.Epoch)
	}
	if st.Addr != "" {
		fmt.Fprintf(c.out, "  Address:        %s\n", st.Addr)
	}
	if st.Relatch > 0 {
		fmt.Fprintf(c.out, "  Relatch in:     %s\n", st.Relatch.Round(time.Millisecond))
	}
	if st.ListenAddr != "" {
		fmt.Fprintf(c.out, "  Listening:      %s\n", st.ListenAddr)
	}
	if st.Actuator.Configured {
		fmt.Fprintf(c.out, "  Servo:          GPIO%d, %d us (range %d-%d)\n",
			st.Actuator.Pin, st.Actuator.Current, st.Actuator.MinPulse, st.Actuator.MaxPulse)
	} else {
		fmt.Fprintln(c.out, "  Servo:          not configured")
	}
	fmt.Fprintln(c.out)
}

func (c *Console) post(ev connectivity.Event) {
	if c.dev == nil || c.dev.Manager() == nil {
		fmt.Fprintln(c.out, "Connectivity not started")
		return
	}
	if err := c.dev.Manager().Post(ev); err != nil {
		fmt.Fprintf(c.out, "%s: %v\n", ev.Type, err)
		return
	}
	fmt.Fprintf(c.out, "%s posted\n", ev.Type)
}

func (c *Console) driver() *actuator.Driver {
	if c.dev == nil || c.dev.Driver() == nil {
		fmt.Fprintln(c.out, "Actuator not started")
		return nil
	}
	return c.dev.Driver()
}
