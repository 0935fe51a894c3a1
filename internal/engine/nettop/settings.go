package nettop

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"Go2NetTop/internal/config"
)

// MinRefresh is the floor applied when the refresh interval is halved.
const MinRefresh = time.Millisecond

// SortOrder selects the metric cells are ranked by.
type SortOrder int

const (
	SortByVolume SortOrder = iota
	SortByPackets
)

func (s SortOrder) String() string {
	if s == SortByPackets {
		return "Packets"
	}
	return "Volume"
}

// ParseSortOrder accepts "packets" or "volume".
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(s) {
	case "packets":
		return SortByPackets, nil
	case "volume":
		return SortByVolume, nil
	}
	return 0, fmt.Errorf("invalid sort order %q: want packets or volume", s)
}

// KeyConfig selects which packet attributes make up the grouping key, how
// cells are ranked and how often the view refreshes. Values are never
// modified once published through Settings.
type KeyConfig struct {
	UseDev        bool
	UseVLAN       bool
	UseMACSrc     bool
	UseMACDst     bool
	UseMACProto   bool
	UseIPSrc      bool
	UseIPDst      bool
	UseIPProto    bool
	UseIPVersion  bool
	UsePortSrc    bool
	UsePortDst    bool
	UseProtoStack bool
	ShortenStack  bool

	SortBy  SortOrder
	Refresh time.Duration
	Help    bool
}

// DefaultKeyConfig groups by addresses, ports and protocols, sorted by volume.
func DefaultKeyConfig() KeyConfig {
	return KeyConfig{
		UseMACProto:   true,
		UseIPSrc:      true,
		UseIPDst:      true,
		UseIPProto:    true,
		UseIPVersion:  true,
		UsePortSrc:    true,
		UsePortDst:    true,
		UseProtoStack: true,
		ShortenStack:  true,
		SortBy:        SortByVolume,
		Refresh:       time.Second,
	}
}

// KeyConfigFrom builds the startup key configuration.
func KeyConfigFrom(cfg config.NetTopConfig) (KeyConfig, error) {
	refresh, err := config.ParseInterval(cfg.Interval)
	if err != nil {
		return KeyConfig{}, err
	}
	sortBy, err := ParseSortOrder(cfg.SortBy)
	if err != nil {
		return KeyConfig{}, err
	}
	return KeyConfig{
		UseDev:        cfg.UseDev,
		UseVLAN:       cfg.UseVLAN,
		UseMACSrc:     cfg.UseMACSrc,
		UseMACDst:     cfg.UseMACDst,
		UseMACProto:   cfg.UseMACProto,
		UseIPSrc:      cfg.UseIPSrc,
		UseIPDst:      cfg.UseIPDst,
		UseIPProto:    cfg.UseIPProto,
		UseIPVersion:  cfg.UseIPVersion,
		UsePortSrc:    cfg.UsePortSrc,
		UsePortDst:    cfg.UsePortDst,
		UseProtoStack: cfg.UseProtoStack,
		ShortenStack:  cfg.ShortenStack,
		SortBy:        sortBy,
		Refresh:       refresh,
	}, nil
}

// Describe lists the fields packets are currently grouped by.
func (c *KeyConfig) Describe() string {
	var parts []string
	add := func(on bool, what string) {
		if on {
			parts = append(parts, what)
		}
	}
	add(c.UseDev, "device id")
	add(c.UseVLAN, "VLAN id")
	add(c.UseIPSrc, "src IP")
	add(c.UsePortSrc, "src port")
	add(c.UseMACSrc, "src MAC")
	add(c.UseIPDst, "dest IP")
	add(c.UsePortDst, "dest port")
	add(c.UseMACDst, "dest MAC")
	add(c.UseMACProto, "Ethernet protocol")
	add(c.UseIPProto, "IP protocol")
	add(c.UseIPVersion, "IP version")
	if c.UseProtoStack {
		if c.ShortenStack {
			parts = append(parts, "protocol names (short)")
		} else {
			parts = append(parts, "protocol names")
		}
	}
	if len(parts) == 0 {
		return "nothing"
	}
	return strings.Join(parts, ", ")
}

// Rank returns the rank function for the active sort order.
func (c *KeyConfig) Rank() RankFunc {
	if c.SortBy == SortByPackets {
		return ByPackets
	}
	return ByVolume
}

// Settings publishes KeyConfig snapshots. Readers get a consistent record
// without locking; writers copy, modify and swap.
type Settings struct {
	cur atomic.Pointer[KeyConfig]
}

func NewSettings(cfg KeyConfig) *Settings {
	s := &Settings{}
	s.cur.Store(&cfg)
	return s
}

// Load returns the current snapshot. Callers must not modify it.
func (s *Settings) Load() *KeyConfig {
	return s.cur.Load()
}

// Update applies fn to a copy of the current snapshot and publishes it,
// retrying if another writer got there first.
func (s *Settings) Update(fn func(*KeyConfig)) *KeyConfig {
	for {
		old := s.cur.Load()
		next := *old
		fn(&next)
		if s.cur.CompareAndSwap(old, &next) {
			return &next
		}
	}
}

func (s *Settings) ToggleSort() {
	s.Update(func(c *KeyConfig) {
		if c.SortBy == SortByVolume {
			c.SortBy = SortByPackets
		} else {
			c.SortBy = SortByVolume
		}
	})
}

// Faster halves the refresh interval, never going below MinRefresh.
func (s *Settings) Faster() {
	s.Update(func(c *KeyConfig) {
		c.Refresh = max(c.Refresh/2, MinRefresh)
	})
}

// Slower doubles the refresh interval.
func (s *Settings) Slower() {
	s.Update(func(c *KeyConfig) {
		if c.Refresh <= math.MaxInt64/2 {
			c.Refresh *= 2
		}
	})
}

// SetRefreshString sets the refresh interval from fractional seconds. A
// malformed value leaves the configuration unchanged.
func (s *Settings) SetRefreshString(v string) error {
	d, err := config.ParseInterval(v)
	if err != nil {
		return err
	}
	s.Update(func(c *KeyConfig) { c.Refresh = d })
	return nil
}
