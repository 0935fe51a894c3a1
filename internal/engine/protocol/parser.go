package protocol

import (
	"fmt"
	"net/netip"
	"strings"

	"Go2NetTop/internal/model"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// CaptureName is the name of the root node of every dissected chain.
const CaptureName = "Capture"

var decodeOptions = gopacket.DecodeOptions{Lazy: true, NoCopy: true}

// Dissect decodes a frame with gopacket and returns the innermost node of its
// protocol-info chain. The chain always starts with a capture node, so the
// result is never nil.
func Dissect(frame *model.Frame) *model.ProtoInfo {
	ci := frame.CaptureInfo
	wire := ci.Length
	if wire == 0 {
		wire = len(frame.Data)
	}
	capLen := ci.CaptureLength
	if capLen == 0 {
		capLen = len(frame.Data)
	}
	last := &model.ProtoInfo{
		Name:    CaptureName,
		Payload: wire,
		Cap: &model.CapInfo{
			DevID:     ci.InterfaceIndex,
			Timestamp: ci.Timestamp,
			CapLen:    capLen,
			WireLen:   wire,
		},
	}

	packet := gopacket.NewPacket(frame.Data, frame.LinkType, decodeOptions)

	var eth *model.EthInfo
	for _, layer := range packet.Layers() {
		node := &model.ProtoInfo{
			Name:    layer.LayerType().String(),
			Parent:  last,
			Payload: len(layer.LayerPayload()),
		}
		switch l := layer.(type) {
		case *layers.Ethernet:
			eth = &model.EthInfo{VLAN: -1, Src: l.SrcMAC, Dst: l.DstMAC, Protocol: uint16(l.EthernetType)}
			node.Eth = eth
		case *layers.Dot1Q:
			// The tag belongs to the Ethernet header it follows.
			if eth != nil {
				if eth.VLAN == -1 {
					eth.VLAN = int(l.VLANIdentifier)
				}
				eth.Protocol = uint16(l.Type)
				last.Payload = len(l.LayerPayload())
				continue
			}
		case *layers.IPv4:
			node.IP = &model.IPInfo{
				Version:  4,
				Src:      addrFrom(l.SrcIP),
				Dst:      addrFrom(l.DstIP),
				Protocol: uint8(l.Protocol),
			}
		case *layers.IPv6:
			node.IP = &model.IPInfo{
				Version:  6,
				Src:      addrFrom(l.SrcIP),
				Dst:      addrFrom(l.DstIP),
				Protocol: uint8(l.NextHeader),
			}
		case *layers.TCP:
			node.Ports = &model.PortInfo{Src: uint16(l.SrcPort), Dst: uint16(l.DstPort)}
		case *layers.UDP:
			node.Ports = &model.PortInfo{Src: uint16(l.SrcPort), Dst: uint16(l.DstPort)}
		case *gopacket.Payload, *gopacket.DecodeFailure:
			continue
		}
		last = node
	}
	return last
}

func addrFrom(ip []byte) netip.Addr {
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return netip.Addr{}
	}
	return addr.Unmap()
}

// IPProtoName returns the name of an IP protocol number.
func IPProtoName(proto int) string {
	if proto < 0 || proto > 255 {
		return fmt.Sprintf("proto-%d", proto)
	}
	name := layers.IPProtocol(proto).String()
	if name == "" || strings.HasPrefix(name, "Unknown") {
		return fmt.Sprintf("proto-%d", proto)
	}
	return name
}

// EtherTypeName returns the name of an Ethernet protocol number.
func EtherTypeName(proto int) string {
	if proto < 0 || proto > 0xffff {
		return fmt.Sprintf("0x%x", proto)
	}
	name := layers.EthernetType(proto).String()
	if name == "" || strings.HasPrefix(name, "Unknown") {
		return fmt.Sprintf("0x%04x", proto)
	}
	return name
}
