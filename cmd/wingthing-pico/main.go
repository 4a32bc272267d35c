//go:build tinygo && rp2040

// Command wingthing-pico is the servo latch firmware for TinyGo boards
// without a network stack. It drives the servo from single-byte commands on
// the USB serial console.
package main

import (
	"context"
	"machine"

	"github.com/wingthing/wingthing-go/cmd/wingthing-pico/commands"
	"github.com/wingthing/wingthing-go/pkg/actuator"
)

func main() {
	gen := &actuator.ServoGenerator{PWM: machine.PWM1}

	cfg := actuator.DefaultConfig()
	cfg.Pin = int(machine.GP18)

	d := actuator.NewDriver(gen, cfg)
	if err := d.Configure(); err != nil {
		panic(err)
	}

	commands.Run(context.Background(), d, machine.Serial, machine.Serial)
}
