package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"Go2NetTop/internal/capture"
	"Go2NetTop/internal/config"
	"Go2NetTop/internal/engine/manager"
	"Go2NetTop/internal/engine/nettop"
	"Go2NetTop/internal/model"
	"Go2NetTop/internal/pkg/logging"
	"Go2NetTop/internal/rater"
	"Go2NetTop/internal/terminal"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	showVersion := flag.Bool("version", false, "print the version and exit")
	overrides := config.RegisterFlags(flag.CommandLine)
	flag.Parse()

	if *showVersion {
		fmt.Println("NetTop", nettop.Version)
		return
	}

	// 1. Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	overrides.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logFile, err := logging.Setup(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	keyCfg, err := nettop.KeyConfigFrom(cfg.NetTop)
	if err != nil {
		log.Fatalf("Invalid nettop configuration: %v", err)
	}

	// 2. Build the engine and its sinks
	stdout := os.Stdout.Fd()
	plain := !terminal.IsTerminal(stdout)
	size := func() (int, int, error) { return terminal.Size(stdout) }
	if plain {
		cols := cfg.NetTop.Columns
		size = func() (int, int, error) { return cols, 0, nil }
	}
	top := nettop.New(nettop.NewSettings(keyCfg), nettop.NewRenderer(os.Stdout, plain), nettop.Options{
		Entries:  cfg.NetTop.NbEntries,
		MaxCells: cfg.NetTop.MaxCells,
		Size:     size,
	})
	sinks := []model.Sink{top}

	var rt *rater.Rater
	if cfg.Rater.Enabled {
		rt = rater.New(cfg.Rater)
		sinks = append(sinks, rt)
	}

	// 3. Open the capture source
	src, err := capture.Open(cfg.Capture, cfg.Probe)
	if err != nil {
		log.Fatalf("Failed to open capture source: %v", err)
	}
	defer src.Close()

	mgr := manager.NewManager(cfg.Engine, sinks...)
	mgr.Start()

	// 4. Keyboard control, when stdin is a terminal
	restore := func() error { return nil }
	var ctrl *nettop.Controller
	var quit <-chan struct{}
	if terminal.IsTerminal(os.Stdin.Fd()) {
		if r, err := terminal.EnableCbreak(int(os.Stdin.Fd())); err != nil {
			slog.Warn("Keystrokes will need Enter", "error", err)
		} else {
			restore = r
		}
		ctrl, err = nettop.NewController(os.Stdin, top)
		if err != nil {
			slog.Warn("Keyboard control disabled", "error", err)
		} else {
			ctrl.Start()
			quit = ctrl.Done()
		}
	}
	defer restore()

	// 5. Run until interrupted, quit, or out of packets
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srcDone := make(chan error, 1)
	go func() { srcDone <- src.Run(ctx, mgr.InputChannel()) }()
	slog.Info("Capture running", "source", src.Name())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	exhausted := false
	select {
	case sig := <-sigChan:
		slog.Info("Shutdown signal received", "signal", sig)
	case <-quit:
		slog.Info("Quit requested")
	case err := <-srcDone:
		exhausted = true
		if err != nil {
			slog.Error("Capture source failed", "source", src.Name(), "error", err)
		}
	}

	// 6. Ordered shutdown: no sender may outlive the manager's channel
	cancel()
	if !exhausted {
		<-srcDone
	}
	if ctrl != nil {
		ctrl.Stop()
	}
	if err := restore(); err != nil {
		slog.Warn("Failed to restore terminal", "error", err)
	}
	mgr.Stop()
	if exhausted {
		top.Flush()
	}
	if rt != nil {
		if err := rt.Close(); err != nil {
			slog.Warn("Failed to close rater file", "error", err)
		}
	}
	slog.Info("Shutdown complete")
}
