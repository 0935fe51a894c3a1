package rater

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"Go2NetTop/internal/config"
	"Go2NetTop/internal/model"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

const (
	defaultCapLen  = 65535
	pcapFileHeader = 24
	pcapRecHeader  = 16
)

// Capfile writes frames to a pcap file that is closed once it reaches any
// of its limits. With a rotation of N the files are named path.0 to
// path.N-1 and reused in turn; without rotation writing stops after the
// first file.
type Capfile struct {
	mu sync.Mutex

	path     string
	maxPkts  uint64
	maxSize  uint64
	maxAge   time.Duration
	capLen   int
	rotation int

	file   *os.File
	w      *pcapgo.Writer
	pkts   uint64
	size   uint64
	opened time.Time
	seq    int
	done   bool
}

func NewCapfile(cfg config.RaterConfig) *Capfile {
	capLen := cfg.CapLen
	if capLen <= 0 {
		capLen = defaultCapLen
	}
	return &Capfile{
		path:     cfg.File,
		maxPkts:  cfg.MaxPkts,
		maxSize:  cfg.MaxSize,
		maxAge:   time.Duration(cfg.MaxSecs) * time.Second,
		capLen:   capLen,
		rotation: max(cfg.Rotation, 0),
	}
}

// FileName returns the name of the seq-th file.
func (c *Capfile) FileName(seq int) string {
	if c.rotation == 0 {
		return c.path
	}
	return fmt.Sprintf("%s.%d", c.path, seq)
}

// Write appends a frame, truncated to the configured capture length. The
// link type of the first frame is used for every file.
func (c *Capfile) Write(frame *model.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done {
		return nil
	}
	ts := frame.CaptureInfo.Timestamp

	if c.file != nil && c.full(ts) {
		if err := c.closeFile(); err != nil {
			return err
		}
		if c.rotation == 0 {
			c.done = true
			slog.Info("Capture file complete", "file", c.path)
			return nil
		}
		c.seq = (c.seq + 1) % c.rotation
	}
	if c.file == nil {
		if err := c.open(frame.LinkType, ts); err != nil {
			return err
		}
	}

	data := frame.Data
	if len(data) > c.capLen {
		data = data[:c.capLen]
	}
	ci := frame.CaptureInfo
	ci.CaptureLength = len(data)
	if ci.Length < ci.CaptureLength {
		ci.Length = ci.CaptureLength
	}
	if err := c.w.WritePacket(ci, data); err != nil {
		return fmt.Errorf("failed to write packet to %s: %w", c.file.Name(), err)
	}
	c.pkts++
	c.size += pcapRecHeader + uint64(len(data))
	return nil
}

func (c *Capfile) full(ts time.Time) bool {
	return (c.maxPkts > 0 && c.pkts >= c.maxPkts) ||
		(c.maxSize > 0 && c.size >= c.maxSize) ||
		(c.maxAge > 0 && ts.Sub(c.opened) >= c.maxAge)
}

func (c *Capfile) open(linkType layers.LinkType, ts time.Time) error {
	name := c.FileName(c.seq)
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create capture file: %w", err)
	}
	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(uint32(c.capLen), linkType); err != nil {
		f.Close()
		return fmt.Errorf("failed to write file header to %s: %w", name, err)
	}
	c.file, c.w = f, w
	c.pkts, c.size, c.opened = 0, pcapFileHeader, ts
	slog.Info("Opened capture file", "file", name)
	return nil
}

func (c *Capfile) closeFile() error {
	f := c.file
	c.file, c.w = nil, nil
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", f.Name(), err)
	}
	return nil
}

// Close closes the current file, if any.
func (c *Capfile) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.done = true
	if c.file == nil {
		return nil
	}
	return c.closeFile()
}
