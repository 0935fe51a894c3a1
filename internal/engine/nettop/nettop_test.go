package nettop

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestDueToRender(t *testing.T) {
	tests := []struct {
		name     string
		now      time.Time
		last     time.Time
		interval time.Duration
		want     bool
	}{
		{"never rendered", t0, time.Time{}, time.Second, true},
		{"too early", t0.Add(999 * time.Millisecond), t0, time.Second, false},
		{"exactly due", t0.Add(time.Second), t0, time.Second, true},
		{"late", t0.Add(5 * time.Second), t0, time.Second, true},
		{"clock went back", t0.Add(-time.Second), t0, time.Second, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DueToRender(tt.now, tt.last, tt.interval); got != tt.want {
				t.Errorf("DueToRender() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNetTop_SingleFlow(t *testing.T) {
	// 1. First packet renders the initial (empty) frame
	top, out := newTestTop(DefaultKeyConfig(), Options{})
	last := tcpChain("10.0.0.1", 1234, "10.0.0.2", 80, 64)

	// 2. 100 packets within one window
	for i := 0; i < 100; i++ {
		top.Observe(last, t0.Add(time.Duration(i)*time.Millisecond))
	}
	top.Flush()

	// 3. One row with the totals
	frames := frameRows(out.String())
	if len(frames) != 2 {
		t.Fatalf("Expected 2 frames, got %d:\n%s", len(frames), out.String())
	}
	rows := frames[1]
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d: %q", len(rows), rows)
	}
	if !strings.HasPrefix(rows[0], "       100       6400 ") {
		t.Errorf("Unexpected counters in row %q", rows[0])
	}
	if !strings.Contains(rows[0], "10.0.0.1:1234 -> 10.0.0.2:80") || !strings.Contains(rows[0], " TCP ") {
		t.Errorf("Unexpected key rendering in row %q", rows[0])
	}
	if !strings.Contains(out.String(), "Packets: 100, Bytes: 6400") {
		t.Errorf("Running totals not printed:\n%s", out.String())
	}
}

func TestNetTop_MergedFlows(t *testing.T) {
	cfg := DefaultKeyConfig()
	cfg.UsePortDst = false
	top, out := newTestTop(cfg, Options{})

	for i := 0; i < 30; i++ {
		top.Observe(tcpChain("10.0.0.1", 1234, "10.0.0.2", 80, 100), t0)
	}
	for i := 0; i < 20; i++ {
		top.Observe(tcpChain("10.0.0.1", 1234, "10.0.0.2", 443, 50), t0)
	}
	top.Flush()

	frames := frameRows(out.String())
	rows := frames[len(frames)-1]
	if len(rows) != 1 {
		t.Fatalf("Expected a single merged row, got %q", rows)
	}
	if !strings.HasPrefix(rows[0], "        50       4000 ") {
		t.Errorf("Expected 50 packets and 4000 bytes, got %q", rows[0])
	}
}

func TestNetTop_RefreshGate(t *testing.T) {
	top, out := newTestTop(DefaultKeyConfig(), Options{})
	last := tcpChain("10.0.0.1", 1234, "10.0.0.2", 80, 10)

	top.Observe(last, t0) // initial frame
	top.Observe(last, t0.Add(200*time.Millisecond))
	top.Observe(last, t0.Add(900*time.Millisecond))
	if n := strings.Count(out.String(), "NetTop - Every"); n != 1 {
		t.Fatalf("Expected no render before the interval elapsed, got %d frames", n)
	}

	top.Observe(last, t0.Add(1100*time.Millisecond))
	if n := strings.Count(out.String(), "NetTop - Every"); n != 2 {
		t.Fatalf("Expected a render after the interval elapsed, got %d frames", n)
	}
	if !strings.Contains(out.String(), "Packets: 3, Bytes: 30") {
		t.Errorf("Expected the totals of the first window:\n%s", out.String())
	}

	// Totals restart with the packet that triggered the render.
	out.Reset()
	top.Flush()
	if !strings.Contains(out.String(), "Packets: 1, Bytes: 10") {
		t.Errorf("Expected totals reset after render:\n%s", out.String())
	}
}

func TestNetTop_WindowReset(t *testing.T) {
	top, out := newTestTop(DefaultKeyConfig(), Options{})
	last := tcpChain("10.0.0.1", 1234, "10.0.0.2", 80, 64)

	top.Observe(last, t0)
	top.Observe(last, t0)
	top.Flush()
	out.Reset()

	top.Observe(last, t0)
	top.Flush()

	rows := frameRows(out.String())[0]
	if len(rows) != 1 || !strings.HasPrefix(rows[0], "         1         64 ") {
		t.Errorf("Expected a fresh cell (1, 64), got %q", rows)
	}
}

func TestNetTop_HelpSuspendsRendering(t *testing.T) {
	cfg := DefaultKeyConfig()
	cfg.Help = true
	top, out := newTestTop(cfg, Options{})

	top.Observe(tcpChain("10.0.0.1", 1, "10.0.0.2", 2, 1), t0)
	top.Observe(tcpChain("10.0.0.1", 1, "10.0.0.2", 2, 1), t0.Add(time.Hour))

	if out.String() != "" {
		t.Errorf("Expected no frame while help is shown, got:\n%s", out.String())
	}
}

func TestNetTop_IgnoresPacketsWithoutCapture(t *testing.T) {
	top, out := newTestTop(DefaultKeyConfig(), Options{})
	orphan := tcpChain("10.0.0.1", 1, "10.0.0.2", 2, 1)
	orphan.Parent.Parent.Parent = nil // drop the capture node

	top.Observe(orphan, t0)
	top.Observe(nil, t0)
	top.Flush()

	for _, rows := range frameRows(out.String()) {
		if len(rows) != 0 {
			t.Errorf("Expected no rows, got %q", rows)
		}
	}
}

func TestNetTop_TableFullDropsPackets(t *testing.T) {
	top, out := newTestTop(DefaultKeyConfig(), Options{MaxCells: 1})

	top.Observe(tcpChain("10.0.0.1", 1, "10.0.0.2", 2, 10), t0)
	top.Observe(tcpChain("10.0.0.1", 3, "10.0.0.2", 4, 10), t0)
	top.Flush()

	if !strings.Contains(out.String(), "Packets: 1, Bytes: 10") {
		t.Errorf("Expected the second key to be dropped:\n%s", out.String())
	}
}

func TestNetTop_EntriesAndSize(t *testing.T) {
	// Entries caps the rows; without it the terminal height decides.
	top, out := newTestTop(DefaultKeyConfig(), Options{Entries: 3})
	for port := uint16(1); port <= 10; port++ {
		top.Observe(tcpChain("10.0.0.1", port, "10.0.0.2", 80, int(port)), t0)
	}
	top.Flush()
	frames := frameRows(out.String())
	if rows := frames[len(frames)-1]; len(rows) != 3 {
		t.Errorf("Expected 3 rows, got %d", len(rows))
	}

	small, out2 := newTestTop(DefaultKeyConfig(), Options{
		Size: func() (int, int, error) { return 0, 2, nil },
	})
	for port := uint16(1); port <= 30; port++ {
		small.Observe(tcpChain("10.0.0.1", port, "10.0.0.2", 80, 1), t0)
	}
	small.Flush()
	frames = frameRows(out2.String())
	if rows := frames[len(frames)-1]; len(rows) != fallbackRows-headerRows {
		t.Errorf("Expected %d rows with the fallback height, got %d", fallbackRows-headerRows, len(rows))
	}
}

func TestNetTop_ConcurrentIngestion(t *testing.T) {
	top, out := newTestTop(DefaultKeyConfig(), Options{})
	last := tcpChain("10.0.0.1", 1234, "10.0.0.2", 80, 1)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				top.Observe(last, t0)
			}
		}()
	}
	// Toggle settings concurrently with ingestion.
	for i := 0; i < 100; i++ {
		top.Settings().ToggleSort()
	}
	wg.Wait()
	top.Flush()

	if !strings.Contains(out.String(), "Packets: 8000, Bytes: 8000") {
		t.Errorf("Expected 8000 packets counted:\n%s", out.String())
	}
}
