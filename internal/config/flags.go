package config

import (
	"flag"
	"fmt"
	"strconv"
)

// Overrides collects command-line options and applies them on top of a
// loaded configuration. Only flags given on the command line are applied.
type Overrides struct {
	setters []func(*Config)
}

// RegisterFlags binds the nettop and capture options to fs.
func RegisterFlags(fs *flag.FlagSet) *Overrides {
	o := &Overrides{}

	interval := func(v string) error {
		if _, err := ParseInterval(v); err != nil {
			return err
		}
		o.add(func(c *Config) { c.NetTop.Interval = v })
		return nil
	}
	fs.Func("interval", "update interval in seconds (default: 1)", interval)
	fs.Func("d", "shorthand for -interval", interval)

	entries := func(v string) error {
		n, err := strconv.ParseUint(v, 10, 31)
		if err != nil {
			return fmt.Errorf("invalid number of entries %q", v)
		}
		o.add(func(c *Config) { c.NetTop.NbEntries = int(n) })
		return nil
	}
	fs.Func("nb-entries", "number of entries to display (default: as many fit the screen)", entries)
	fs.Func("n", "shorthand for -nb-entries", entries)

	sortBy := func(v string) error {
		if v != "packets" && v != "volume" {
			return fmt.Errorf("want packets or volume")
		}
		o.add(func(c *Config) { c.NetTop.SortBy = v })
		return nil
	}
	fs.Func("sort-by", "packets|volume", sortBy)
	fs.Func("s", "shorthand for -sort-by", sortBy)

	o.boolFlag(fs, "use-dev", "use network device in the key", func(c *Config, v bool) { c.NetTop.UseDev = v })
	o.boolFlag(fs, "use-vlan", "use VLAN id in the key", func(c *Config, v bool) { c.NetTop.UseVLAN = v })
	o.boolFlag(fs, "use-src-mac", "use source MAC in the key", func(c *Config, v bool) { c.NetTop.UseMACSrc = v })
	o.boolFlag(fs, "use-dst-mac", "use dest MAC in the key", func(c *Config, v bool) { c.NetTop.UseMACDst = v })
	o.boolFlag(fs, "use-mac-proto", "use MAC protocol in the key", func(c *Config, v bool) { c.NetTop.UseMACProto = v })
	o.boolFlag(fs, "use-src-ip", "use source IP in the key", func(c *Config, v bool) { c.NetTop.UseIPSrc = v })
	o.boolFlag(fs, "use-dst-ip", "use dest IP in the key", func(c *Config, v bool) { c.NetTop.UseIPDst = v })
	o.boolFlag(fs, "use-ip-proto", "use IP protocol in the key", func(c *Config, v bool) { c.NetTop.UseIPProto = v })
	o.boolFlag(fs, "use-ip-version", "use IP version in the key", func(c *Config, v bool) { c.NetTop.UseIPVersion = v })
	o.boolFlag(fs, "use-src-port", "use source port in the key", func(c *Config, v bool) { c.NetTop.UsePortSrc = v })
	o.boolFlag(fs, "use-dst-port", "use dest port in the key", func(c *Config, v bool) { c.NetTop.UsePortDst = v })
	o.boolFlag(fs, "use-proto-stack", "use detected protocol stack in the key", func(c *Config, v bool) { c.NetTop.UseProtoStack = v })

	o.stringFlag(fs, "source", "capture source: file, pcap, afpacket or nats", func(c *Config, v string) { c.Capture.Source = v })
	o.stringFlag(fs, "iface", "interface to capture packets from", func(c *Config, v string) { c.Capture.Interface = v })
	o.stringFlag(fs, "file", "pcap file to read packets from", func(c *Config, v string) { c.Capture.File = v })
	o.stringFlag(fs, "filter", "BPF filter for live capture", func(c *Config, v string) { c.Capture.Filter = v })
	o.stringFlag(fs, "log-level", "debug, info, warn or error", func(c *Config, v string) { c.LogLevel = v })
	o.stringFlag(fs, "log-file", "write logs to this file instead of stderr", func(c *Config, v string) { c.LogFile = v })

	return o
}

func (o *Overrides) add(set func(*Config)) {
	o.setters = append(o.setters, set)
}

func (o *Overrides) boolFlag(fs *flag.FlagSet, name, usage string, set func(*Config, bool)) {
	fs.BoolFunc(name, usage, func(v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		o.add(func(c *Config) { set(c, b) })
		return nil
	})
}

func (o *Overrides) stringFlag(fs *flag.FlagSet, name, usage string, set func(*Config, string)) {
	fs.Func(name, usage, func(v string) error {
		o.add(func(c *Config) { set(c, v) })
		return nil
	})
}

// Apply writes the collected flag values into cfg, in command-line order.
func (o *Overrides) Apply(cfg *Config) {
	for _, set := range o.setters {
		set(cfg)
	}
}
