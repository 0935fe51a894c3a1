package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// CaptureConfig selects and tunes the packet source.
type CaptureConfig struct {
	Source      string `yaml:"source"` // file, pcap, afpacket or nats
	Interface   string `yaml:"interface"`
	File        string `yaml:"file"`
	Snaplen     int    `yaml:"snaplen"`
	Promiscuous bool   `yaml:"promiscuous"`
	Filter      string `yaml:"filter"`
	FrameSize   int    `yaml:"frame_size"`
	BlockSize   int    `yaml:"block_size"`
	NumBlocks   int    `yaml:"num_blocks"`
}

// EngineConfig sizes the ingestion worker pool.
type EngineConfig struct {
	NumWorkers          int `yaml:"num_workers"`
	SizeOfPacketChannel int `yaml:"size_of_packet_channel"`
}

// ProbeConfig holds the NATS connection used to ship raw frames between hosts.
type ProbeConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// NetTopConfig is the startup state of the top view. Key toggles can be
// changed live from the keyboard afterwards.
type NetTopConfig struct {
	Interval  string `yaml:"interval"` // seconds, fractional
	NbEntries int    `yaml:"nb_entries"`
	MaxCells  int    `yaml:"max_cells"`
	SortBy    string `yaml:"sort_by"`
	Columns   int    `yaml:"columns"` // used when stdout is not a terminal

	UseDev        bool `yaml:"use_dev"`
	UseVLAN       bool `yaml:"use_vlan"`
	UseMACSrc     bool `yaml:"use_src_mac"`
	UseMACDst     bool `yaml:"use_dst_mac"`
	UseMACProto   bool `yaml:"use_mac_proto"`
	UseIPSrc      bool `yaml:"use_src_ip"`
	UseIPDst      bool `yaml:"use_dst_ip"`
	UseIPProto    bool `yaml:"use_ip_proto"`
	UseIPVersion  bool `yaml:"use_ip_version"`
	UsePortSrc    bool `yaml:"use_src_port"`
	UsePortDst    bool `yaml:"use_dst_port"`
	UseProtoStack bool `yaml:"use_proto_stack"`
	ShortenStack  bool `yaml:"shorten_proto_stack"`
}

// RaterConfig drives the throughput gated capture writer.
type RaterConfig struct {
	Enabled    bool   `yaml:"enabled"`
	File       string `yaml:"file"`
	UpperBound uint64 `yaml:"upper_bound"` // bytes/sec
	LowerBound uint64 `yaml:"lower_bound"` // bytes/sec
	MaxPkts    uint64 `yaml:"max_pkts"`
	MaxSize    uint64 `yaml:"max_size"`
	MaxSecs    int    `yaml:"max_secs"`
	CapLen     int    `yaml:"caplen"`
	Rotation   int    `yaml:"rotation"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	LogLevel string        `yaml:"log_level"`
	LogFile  string        `yaml:"log_file"`
	Capture  CaptureConfig `yaml:"capture"`
	Engine   EngineConfig  `yaml:"engine"`
	Probe    ProbeConfig   `yaml:"probe"`
	NetTop   NetTopConfig  `yaml:"nettop"`
	Rater    RaterConfig   `yaml:"rater"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Capture: CaptureConfig{
			Source:      "pcap",
			Snaplen:     1600,
			Promiscuous: true,
			FrameSize:   4096,
			BlockSize:   4096 * 128,
			NumBlocks:   128,
		},
		Engine: EngineConfig{
			NumWorkers:          1,
			SizeOfPacketChannel: 10000,
		},
		Probe: ProbeConfig{
			NATSURL: "nats://127.0.0.1:4222",
			Subject: "gons.packets.raw",
		},
		NetTop: NetTopConfig{
			Interval:      "1",
			MaxCells:      262144,
			SortBy:        "volume",
			Columns:       120,
			UseMACProto:   true,
			UseIPSrc:      true,
			UseIPDst:      true,
			UseIPProto:    true,
			UseIPVersion:  true,
			UsePortSrc:    true,
			UsePortDst:    true,
			UseProtoStack: true,
			ShortenStack:  true,
		},
		Rater: RaterConfig{
			CapLen: 65535,
		},
	}
}

// LoadConfig reads the configuration from a YAML file over the defaults.
// A missing file is not an error.
func LoadConfig(filePath string) (*Config, error) {
	cfg := Default()
	if filePath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	return cfg, nil
}

// Validate rejects settings that cannot be started with.
func (c *Config) Validate() error {
	if _, err := ParseInterval(c.NetTop.Interval); err != nil {
		return err
	}
	switch c.NetTop.SortBy {
	case "packets", "volume":
	default:
		return fmt.Errorf("invalid sort order %q: want packets or volume", c.NetTop.SortBy)
	}
	if c.NetTop.NbEntries < 0 {
		return fmt.Errorf("nb_entries must not be negative")
	}
	switch c.Capture.Source {
	case "file":
		if c.Capture.File == "" {
			return fmt.Errorf("capture source 'file' needs capture.file")
		}
	case "pcap", "afpacket":
		if c.Capture.Interface == "" {
			return fmt.Errorf("capture source '%s' needs capture.interface", c.Capture.Source)
		}
	case "nats":
	default:
		return fmt.Errorf("unknown capture source %q", c.Capture.Source)
	}
	if c.Rater.Enabled {
		if c.Rater.File == "" {
			return fmt.Errorf("rater needs rater.file")
		}
		if c.Rater.LowerBound > c.Rater.UpperBound {
			return fmt.Errorf("rater lower_bound %d is above upper_bound %d", c.Rater.LowerBound, c.Rater.UpperBound)
		}
	}
	return nil
}

// ParseInterval parses a refresh interval given in fractional seconds. The
// result has microsecond resolution.
func ParseInterval(s string) (time.Duration, error) {
	d, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse interval %q: %w", s, err)
	}
	if !(d > 0) || d > 1e6 {
		return 0, fmt.Errorf("cannot parse interval %q: out of range", s)
	}
	interval := time.Duration(math.Round(d*1e6)) * time.Microsecond
	if interval <= 0 {
		return 0, fmt.Errorf("cannot parse interval %q: below one microsecond", s)
	}
	return interval, nil
}
