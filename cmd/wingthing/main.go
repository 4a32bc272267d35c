// Command wingthing runs the network-triggered servo latch.
//
// The device joins the network, advertises itself as <hostname>.local and
// serves a small HTTP surface. GET /open moves the servo to its open
// position.
//
// Usage:
//
//	wingthing [flags]
//
// Flags:
//
//	-settings string    Settings file (default "wingthing.yaml")
//	-assets string      Directory with index.html and us.jpg (default: built-in)
//	-port int           HTTP port, overrides the settings file
//	-backend string     PWM backend: sim, periph (default "sim")
//	-pin int            Servo GPIO, overrides the settings file
//	-event-log string   Write a CBOR event log to this file
//	-log-level string   Log level: debug, info, warn, error (default "info")
//	-interactive        Start the interactive console
//	-ssid string        Store network SSID in the settings file
//	-passphrase string  Store the derived WPA key in the settings file (requires -ssid)
//
// Examples:
//
//	# Simulated servo on port 8080 with a console
//	wingthing -port 8080 -interactive
//
//	# Raspberry Pi hardware PWM on GPIO18
//	sudo wingthing -backend periph -pin 18 -event-log /var/log/wingthing.cbor
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/wingthing/wingthing-go/cmd/wingthing/interactive"
	"github.com/wingthing/wingthing-go/pkg/actuator"
	"github.com/wingthing/wingthing-go/pkg/assets"
	"github.com/wingthing/wingthing-go/pkg/connectivity"
	"github.com/wingthing/wingthing-go/pkg/log"
	"github.com/wingthing/wingthing-go/pkg/settings"
	"github.com/wingthing/wingthing-go/pkg/supervisor"
)

// shutdownTimeout bounds the graceful stop after a signal.
const shutdownTimeout = 5 * time.Second

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// Config holds the command-line configuration.
type Config struct {
	SettingsFile string
	AssetsDir    string
	Port         int
	Backend      string
	Pin          int
	EventLog     string
	LogLevel     string
	Interactive  bool
	SSID         string
	Passphrase   string
}

var config Config

func init() {
	flag.StringVar(&config.SettingsFile, "settings", "wingthing.yaml", "Settings file")
	flag.StringVar(&config.AssetsDir, "assets", "", "Directory with index.html and us.jpg (default: built-in)")
	flag.IntVar(&config.Port, "port", 0, "HTTP port, overrides the settings file")
	flag.StringVar(&config.Backend, "backend", "sim", "PWM backend: sim, periph")
	flag.IntVar(&config.Pin, "pin", -1, "Servo GPIO, overrides the settings file")
	flag.StringVar(&config.EventLog, "event-log", "", "Write a CBOR event log to this file")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.BoolVar(&config.Interactive, "interactive", false, "Start the interactive console")
	flag.StringVar(&config.SSID, "ssid", "", "Store network SSID in the settings file")
	flag.StringVar(&config.Passphrase, "passphrase", "", "Store the WPA key derived from this passphrase (requires -ssid)")
}

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "wingthing: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	level, err := parseLevel(config.LogLevel)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var console *interactive.Console
	var out io.Writer = os.Stderr
	if config.Interactive {
		console, err = interactive.New()
		if err != nil {
			return err
		}
		out = console.Stderr()
	}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))

	events, closeEvents, err := eventLogger(logger)
	if err != nil {
		return err
	}
	defer closeEvents()

	store := settings.NewStore(settings.StoreConfig{
		Path:        config.SettingsFile,
		Logger:      logger,
		EventLogger: events,
	})
	if err := applyOverrides(store); err != nil {
		return err
	}

	gen, err := newGenerator(config.Backend)
	if err != nil {
		return err
	}

	supCfg := supervisor.Config{
		Store:       store,
		Generator:   gen,
		Version:     version,
		Logger:      logger,
		EventLogger: events,
	}
	if config.Port > 0 {
		supCfg.ListenAddr = fmt.Sprintf(":%d", config.Port)
	}
	if config.AssetsDir != "" {
		bundle, err := assets.LoadDir(config.AssetsDir)
		if err != nil {
			return err
		}
		supCfg.Assets = &bundle
	}

	sup := supervisor.New(supCfg)
	logger.Info("wingthing starting", "version", version, "backend", config.Backend, "settings", config.SettingsFile)

	if err := sup.Boot(ctx); err != nil {
		return err
	}

	if sim, ok := gen.(*actuator.SimGenerator); ok {
		go func() { _ = sim.Run(ctx) }()
	}

	if console != nil {
		console.Attach(sup)
		go console.Run(ctx, cancel)
	}

	sup.Idle(ctx)
	logger.Info("shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	return sup.Shutdown(shutdownCtx)
}

// applyOverrides writes flag overrides into the settings file before boot.
// A passphrase is stored as the derived PSK, never in clear text.
func applyOverrides(store *settings.Store) error {
	if config.SSID == "" && config.Passphrase == "" && config.Pin < 0 {
		return nil
	}

	var psk string
	if config.Passphrase != "" {
		if config.SSID == "" {
			return errors.New("-passphrase requires -ssid")
		}
		key, err := connectivity.Credentials{
			SSID:        config.SSID,
			Passphrase:  config.Passphrase,
			MinAuthMode: connectivity.AuthWPA2PSK,
		}.PSK()
		if err != nil {
			return err
		}
		psk = hex.EncodeToString(key)
	}

	_, err := store.Update(func(s *settings.Settings) {
		if config.SSID != "" {
			s.Network.SSID = config.SSID
		}
		if psk != "" {
			s.Network.Passphrase = psk
		}
		if config.Pin >= 0 {
			s.Actuator.Pin = config.Pin
		}
	})
	return err
}

func eventLogger(logger *slog.Logger) (log.Logger, func(), error) {
	if config.EventLog == "" {
		return nil, func() {}, nil
	}
	fl, err := log.NewFileLogger(config.EventLog)
	if err != nil {
		return nil, nil, fmt.Errorf("open event log: %w", err)
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		multi := log.NewMultiLogger(fl, log.NewSlogAdapter(logger))
		return multi, func() { _ = multi.Close() }, nil
	}
	return fl, func() { _ = fl.Close() }, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
