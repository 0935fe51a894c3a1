package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"Go2NetTop/internal/capture"
	"Go2NetTop/internal/config"
	"Go2NetTop/internal/engine/manager"
	"Go2NetTop/internal/engine/protocol"
	"Go2NetTop/internal/model"
	"Go2NetTop/internal/pkg/logging"
	"Go2NetTop/internal/probe"
)

func main() {
	// --- Command-Line Flag Parsing ---
	mode := flag.String("mode", "sub", "Operating mode: 'pub' to capture and publish, 'sub' to subscribe and print.")
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	overrides := config.RegisterFlags(flag.CommandLine)
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	overrides.Apply(cfg)
	logFile, err := logging.Setup(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	// --- Mode Dispatch ---
	switch *mode {
	case "pub":
		runProbe(cfg)
	case "sub":
		runSubscriber(cfg.Probe)
	default:
		fmt.Fprintf(os.Stderr, "Invalid mode: %s\n", *mode)
		flag.Usage()
		os.Exit(1)
	}
}

// runProbe captures frames and publishes them to NATS unchanged.
func runProbe(cfg *config.Config) {
	if cfg.Capture.Source == "nats" {
		log.Fatalf("Probe mode needs a local capture source")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	pub, err := probe.NewPublisher(cfg.Probe)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer pub.Close()

	src, err := capture.Open(cfg.Capture, cfg.Probe)
	if err != nil {
		log.Fatalf("Failed to open capture source: %v", err)
	}
	defer src.Close()

	mgr := manager.NewManager(cfg.Engine, pub)
	mgr.Start()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx, mgr.InputChannel()) }()
	slog.Info("Publishing frames", "source", src.Name(), "subject", cfg.Probe.Subject)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		slog.Info("Shutdown signal received, cleaning up...")
		cancel()
		<-done
	case err := <-done:
		cancel()
		if err != nil {
			slog.Error("Capture source failed", "error", err)
		}
	}
	mgr.Stop()
}

// runSubscriber prints a line for every frame received.
func runSubscriber(cfg config.ProbeConfig) {
	sub, err := probe.NewSubscriber(cfg)
	if err != nil {
		log.Fatalf("Failed to create subscriber: %v", err)
	}
	defer sub.Close()

	handler := func(frame *model.Frame) {
		last := protocol.Dissect(frame)
		slog.Info("Received frame",
			"ts", frame.CaptureInfo.Timestamp,
			"len", frame.CaptureInfo.Length,
			"dev_id", frame.CaptureInfo.InterfaceIndex,
			"stack", strings.Join(last.Names(), "/"))
	}
	if err := sub.Start(handler); err != nil {
		log.Fatalf("Subscriber failed to start: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	slog.Info("Shutdown signal received, cleaning up...")
}
