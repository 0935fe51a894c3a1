package nettop

import (
	"bytes"
	"net"
	"net/netip"
	"strings"
	"sync"
	"time"

	"Go2NetTop/internal/model"
)

var (
	macA = net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	macB = net.HardwareAddr{0x00, 0x66, 0x77, 0x88, 0x99, 0xaa}
	t0   = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
)

// tcpChain builds Capture/Ethernet/IPv4/TCP carrying payload bytes.
func tcpChain(src string, sport uint16, dst string, dport uint16, payload int) *model.ProtoInfo {
	capNode := &model.ProtoInfo{Name: "Capture", Payload: payload, Cap: &model.CapInfo{DevID: 2, Timestamp: t0}}
	eth := &model.ProtoInfo{Name: "Ethernet", Parent: capNode, Eth: &model.EthInfo{VLAN: -1, Src: macA, Dst: macB, Protocol: 0x0800}}
	ip := &model.ProtoInfo{Name: "IPv4", Parent: eth, IP: &model.IPInfo{
		Version:  4,
		Src:      netip.MustParseAddr(src),
		Dst:      netip.MustParseAddr(dst),
		Protocol: 6,
	}}
	return &model.ProtoInfo{Name: "TCP", Parent: ip, Ports: &model.PortInfo{Src: sport, Dst: dport}}
}

// arpChain builds Capture/Ethernet/ARP.
func arpChain(payload int) *model.ProtoInfo {
	capNode := &model.ProtoInfo{Name: "Capture", Payload: payload, Cap: &model.CapInfo{DevID: 2, Timestamp: t0}}
	eth := &model.ProtoInfo{Name: "Ethernet", Parent: capNode, Eth: &model.EthInfo{VLAN: 7, Src: macA, Dst: macB, Protocol: 0x0806}}
	return &model.ProtoInfo{Name: "ARP", Parent: eth}
}

// syncBuffer is a bytes.Buffer safe for the renderer and the test to share.
type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func (s *syncBuffer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.b.Reset()
}

// newTestTop returns an engine rendering plain text on an 80x25 screen.
func newTestTop(cfg KeyConfig, opts Options) (*NetTop, *syncBuffer) {
	out := &syncBuffer{}
	if opts.Size == nil {
		opts.Size = func() (int, int, error) { return 80, 25, nil }
	}
	return New(NewSettings(cfg), NewRenderer(out, true), opts), out
}

// frameRows returns the data rows of every frame in out.
func frameRows(out string) [][]string {
	var frames [][]string
	var cur []string
	inRows := false
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.HasPrefix(line, "NetTop - Every"):
			if inRows {
				frames = append(frames, cur)
			}
			cur, inRows = nil, false
		case strings.HasPrefix(line, "   Packets     Volume"):
			inRows = true
		case inRows && line != "":
			cur = append(cur, line)
		}
	}
	if inRows {
		frames = append(frames, cur)
	}
	return frames
}
