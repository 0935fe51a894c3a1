package model

import (
	"net"
	"net/netip"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// MaxChainDepth bounds every walk over a protocol-info chain.
const MaxChainDepth = 64

// Frame is one captured link-layer frame as delivered by a capture source.
type Frame struct {
	Data        []byte
	CaptureInfo gopacket.CaptureInfo
	LinkType    layers.LinkType
}

// CapInfo carries the capture metadata of a frame.
type CapInfo struct {
	DevID     int
	Timestamp time.Time
	CapLen    int
	WireLen   int
}

// EthInfo carries Ethernet (and 802.1Q) fields.
type EthInfo struct {
	VLAN     int // -1 when untagged
	Src      net.HardwareAddr
	Dst      net.HardwareAddr
	Protocol uint16
}

// IPInfo carries IPv4 or IPv6 fields.
type IPInfo struct {
	Version  int
	Src      netip.Addr
	Dst      netip.Addr
	Protocol uint8
}

// PortInfo carries TCP or UDP ports.
type PortInfo struct {
	Src uint16
	Dst uint16
}

// ProtoInfo is one node of a dissected packet. Nodes are linked from the
// innermost recognized protocol up to the capture node through Parent.
// At most one of Cap, Eth, IP and Ports is set.
type ProtoInfo struct {
	Name    string
	Parent  *ProtoInfo
	Payload int

	Cap   *CapInfo
	Eth   *EthInfo
	IP    *IPInfo
	Ports *PortInfo
}

// Find returns the first node, starting at p and moving to parents, for which
// match returns true. The walk stops after MaxChainDepth nodes.
func (p *ProtoInfo) Find(match func(*ProtoInfo) bool) *ProtoInfo {
	for n, depth := p, 0; n != nil && depth < MaxChainDepth; n, depth = n.Parent, depth+1 {
		if match(n) {
			return n
		}
	}
	return nil
}

// Capture returns the nearest capture node at or above p.
func (p *ProtoInfo) Capture() *ProtoInfo {
	return p.Find(func(n *ProtoInfo) bool { return n.Cap != nil })
}

// Names returns the protocol names from the outermost node down to p.
func (p *ProtoInfo) Names() []string {
	var names []string
	for n, depth := p, 0; n != nil && depth < MaxChainDepth; n, depth = n.Parent, depth+1 {
		names = append(names, n.Name)
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return names
}
