// Package nettop aggregates packets into per-key counters over a refresh
// window and periodically renders the heaviest keys.
package nettop

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"Go2NetTop/internal/model"
)

// SizeFunc reports the terminal size.
type SizeFunc func() (cols, rows int, err error)

// Options tunes an engine.
type Options struct {
	// Entries is the number of rows shown; 0 fits the terminal height.
	Entries  int
	MaxCells int
	Size     SizeFunc
}

// NetTop is the aggregation engine. One mutex guards the table, the refresh
// gate and the running totals; the key configuration is read lock-free.
type NetTop struct {
	settings *Settings
	renderer *Renderer
	entries  int
	size     SizeFunc

	mu      sync.Mutex
	table   *Table
	gate    RefreshGate
	packets uint64
	bytes   uint64
	latest  time.Time

	quit atomic.Bool
}

func New(settings *Settings, renderer *Renderer, opts Options) *NetTop {
	size := opts.Size
	if size == nil {
		size = func() (int, int, error) { return 0, 0, nil }
	}
	return &NetTop{
		settings: settings,
		renderer: renderer,
		entries:  opts.Entries,
		size:     size,
		table:    NewTable(opts.MaxCells),
	}
}

func (t *NetTop) Name() string { return "nettop" }

func (t *NetTop) Settings() *Settings { return t.settings }

// Quit records shutdown intent.
func (t *NetTop) Quit() { t.quit.Store(true) }

func (t *NetTop) Quitting() bool { return t.quit.Load() }

// HandlePacket feeds a dissected frame to the engine.
func (t *NetTop) HandlePacket(frame *model.Frame, last *model.ProtoInfo) {
	now := frame.CaptureInfo.Timestamp
	if now.IsZero() {
		now = time.Now()
	}
	t.Observe(last, now)
}

// Observe counts one packet captured at now. A frame is rendered first when
// the refresh interval has elapsed, unless the help overlay is shown. Packets
// without a capture node are ignored.
func (t *NetTop) Observe(last *model.ProtoInfo, now time.Time) {
	cfg := t.settings.Load()

	t.mu.Lock()
	defer t.mu.Unlock()

	if now.After(t.latest) {
		t.latest = now
	}
	if !cfg.Help && t.gate.Check(now, cfg.Refresh) {
		t.display(now, cfg)
	}

	if last == nil {
		return
	}
	capNode := last.Capture()
	if capNode == nil {
		return
	}

	payload := uint64(max(capNode.Payload, 0))
	if err := t.table.Upsert(DeriveKey(last, cfg), payload); err != nil {
		return
	}
	t.packets++
	t.bytes += payload
}

// Flush renders the current window regardless of the refresh gate, stamped
// with the latest capture time seen.
func (t *NetTop) Flush() {
	cfg := t.settings.Load()

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.latest
	if now.IsZero() {
		now = time.Now()
	}
	t.gate.Mark(now)
	t.display(now, cfg)
}

// RenderHelp draws the help overlay for the current settings.
func (t *NetTop) RenderHelp() error {
	return t.renderer.Help(t.settings.Load())
}

// display drains the table into a frame and resets the running totals.
// Caller holds t.mu.
func (t *NetTop) display(now time.Time, cfg *KeyConfig) {
	cols, rows := t.terminalSize()
	n := t.entries
	if n == 0 {
		n = rows - headerRows
	}

	top := Select(t.table.DrainAll(), n, cfg.Rank())
	if dropped := t.table.TakeDropped(); dropped > 0 {
		slog.Warn("Counter table full, packets dropped", "dropped", dropped, "max_cells", t.table.maxCells)
	}

	err := t.renderer.Frame(top, cfg, FrameInfo{
		Now:     now,
		Packets: t.packets,
		Bytes:   t.bytes,
		Cols:    cols,
	})
	if err != nil {
		slog.Debug("Failed to render frame", "error", err)
	}
	t.packets, t.bytes = 0, 0
}

func (t *NetTop) terminalSize() (cols, rows int) {
	cols, rows, err := t.size()
	if err != nil || cols <= 0 {
		cols = fallbackCols
	}
	if err != nil || rows < headerRows {
		rows = fallbackRows
	}
	return cols, rows
}
