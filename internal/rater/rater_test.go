package rater

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"Go2NetTop/internal/config"
	"Go2NetTop/internal/model"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

var t0 = time.Unix(1700000000, 0)

func frameAt(ts time.Time, size int) *model.Frame {
	return &model.Frame{
		Data:        make([]byte, size),
		CaptureInfo: gopacket.CaptureInfo{Timestamp: ts, CaptureLength: size, Length: size},
		LinkType:    layers.LinkTypeEthernet,
	}
}

// readAll returns the capture infos stored in a pcap file.
func readAll(t *testing.T, path string) []gopacket.CaptureInfo {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open %s: %v", path, err)
	}
	defer f.Close()
	r, err := pcapgo.NewReader(f)
	if err != nil {
		t.Fatalf("Failed to read header of %s: %v", path, err)
	}
	var infos []gopacket.CaptureInfo
	for {
		_, ci, err := r.ReadPacketData()
		if errors.Is(err, io.EOF) {
			return infos
		}
		if err != nil {
			t.Fatalf("Failed to read %s: %v", path, err)
		}
		infos = append(infos, ci)
	}
}

func TestGate_Hysteresis(t *testing.T) {
	g := NewGate(1000, 100)
	steps := []struct {
		offset  time.Duration
		payload uint64
		want    bool
	}{
		{0, 600, false},
		{500 * time.Millisecond, 600, false},
		{time.Second, 10, false},              // window not over yet
		{1100 * time.Millisecond, 10, true},   // 1210 bytes in the last window
		{1500 * time.Millisecond, 50, true},   // between the bounds
		{2200 * time.Millisecond, 500, false}, // 60 bytes in the last window
		{3300 * time.Millisecond, 10, false},  // 500 is not above the upper bound
		{3400 * time.Millisecond, 2000, false},
		{4400*time.Millisecond + 1, 0, true},
	}
	for i, s := range steps {
		if got := g.Observe(t0.Add(s.offset), s.payload); got != s.want {
			t.Fatalf("Step %d: Observe() = %v, want %v", i, got, s.want)
		}
	}
}

func TestCapfile_Rotation(t *testing.T) {
	// 1. Two files of two packets each
	path := filepath.Join(t.TempDir(), "heavy.pcap")
	c := NewCapfile(config.RaterConfig{File: path, MaxPkts: 2, Rotation: 2})

	// 2. Five packets: .0 gets 1-2, .1 gets 3-4, .0 is reused for 5
	for i := 0; i < 5; i++ {
		if err := c.Write(frameAt(t0.Add(time.Duration(i)*time.Millisecond), 60)); err != nil {
			t.Fatalf("Write %d failed: %v", i, err)
		}
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// 3. Check the content of both files
	first := readAll(t, c.FileName(0))
	second := readAll(t, c.FileName(1))
	if len(first) != 1 || !first[0].Timestamp.Equal(t0.Add(4*time.Millisecond)) {
		t.Errorf("Expected the reused file to hold the fifth packet, got %+v", first)
	}
	if len(second) != 2 {
		t.Errorf("Expected 2 packets in the second file, got %d", len(second))
	}
	if filepath.Base(c.FileName(1)) != "heavy.pcap.1" {
		t.Errorf("Unexpected file name %s", c.FileName(1))
	}
}

func TestCapfile_StopsWithoutRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "once.pcap")
	c := NewCapfile(config.RaterConfig{File: path, MaxSecs: 1})

	for _, offset := range []time.Duration{0, 500 * time.Millisecond, 2 * time.Second, 3 * time.Second} {
		if err := c.Write(frameAt(t0.Add(offset), 60)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	c.Close()

	if n := len(readAll(t, path)); n != 2 {
		t.Errorf("Expected writing to stop after one second, got %d packets", n)
	}
}

func TestCapfile_Truncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.pcap")
	c := NewCapfile(config.RaterConfig{File: path, CapLen: 14})

	if err := c.Write(frameAt(t0, 100)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	c.Close()

	infos := readAll(t, path)
	if len(infos) != 1 || infos[0].CaptureLength != 14 || infos[0].Length != 100 {
		t.Errorf("Expected a 14 byte capture of a 100 byte frame, got %+v", infos)
	}
}

func TestRater_WritesHeavyTraffic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rater.pcap")
	r := New(config.RaterConfig{File: path, UpperBound: 100, LowerBound: 10})

	feed := func(offset time.Duration, size int) {
		frame := frameAt(t0.Add(offset), size)
		last := &model.ProtoInfo{
			Name:    "Capture",
			Payload: size,
			Cap:     &model.CapInfo{Timestamp: frame.CaptureInfo.Timestamp, CapLen: size, WireLen: size},
		}
		r.HandlePacket(frame, last)
	}

	feed(0, 200)                    // measured, not written
	feed(1500*time.Millisecond, 60) // window had 200 bytes: start writing
	feed(1600*time.Millisecond, 60)
	r.HandlePacket(frameAt(t0, 10), nil)
	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if n := len(readAll(t, path)); n != 2 {
		t.Errorf("Expected 2 packets written, got %d", n)
	}
}
