package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"Go2NetTop/internal/capture"
	"Go2NetTop/internal/config"
	"Go2NetTop/internal/engine/manager"
	"Go2NetTop/internal/engine/nettop"
	"Go2NetTop/internal/pkg/logging"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	overrides := config.RegisterFlags(flag.CommandLine)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options] <path_to_pcap_file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	// 1. Get pcap file path from command-line arguments
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	// 2. Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	overrides.Apply(cfg)
	cfg.Capture.Source = "file"
	cfg.Capture.File = flag.Arg(0)
	// Windows are cut on capture time, so frames must stay in file order.
	cfg.Engine.NumWorkers = 1
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

	// 3. Initialize modules
	cols := cfg.NetTop.Columns
	top := nettop.New(nettop.NewSettings(keyCfg), nettop.NewRenderer(os.Stdout, true), nettop.Options{
		Entries:  cfg.NetTop.NbEntries,
		MaxCells: cfg.NetTop.MaxCells,
		Size:     func() (int, int, error) { return cols, 0, nil },
	})
	src, err := capture.Open(cfg.Capture, cfg.Probe)
	if err != nil {
		log.Fatalf("Failed to open pcap file: %v", err)
	}
	defer src.Close()

	mgr := manager.NewManager(cfg.Engine, top)
	mgr.Start()

	// 4. Replay the file, then render what is left of the last window
	if err := src.Run(context.Background(), mgr.InputChannel()); err != nil {
		slog.Error("Failed to read pcap file", "error", err)
	}
	mgr.Stop()
	top.Flush()
	slog.Info("Finished reading all packets", "file", cfg.Capture.File)
}
