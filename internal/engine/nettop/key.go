package nettop

import (
	"net/netip"
	"strings"

	"Go2NetTop/internal/model"
)

// maxStackLen is the longest protocol stack kept in a key. Longer stacks are
// cut silently.
const maxStackLen = 127

// Key is the grouping key of a cell. Fields that are not part of the active
// key, or whose layer is missing from the packet, hold their sentinel: -1 for
// integers, the zero Addr for IP addresses and "" for strings.
type Key struct {
	DevID     int32
	VLAN      int32
	MACSrc    string
	MACDst    string
	MACProto  int32
	IPSrc     netip.Addr
	IPDst     netip.Addr
	IPProto   int32
	IPVersion int32
	PortSrc   int32
	PortDst   int32
	Stack     string
}

func emptyKey() Key {
	return Key{
		DevID:     -1,
		VLAN:      -1,
		MACProto:  -1,
		IPProto:   -1,
		IPVersion: -1,
		PortSrc:   -1,
		PortDst:   -1,
	}
}

// DeriveKey builds the grouping key of a packet from the innermost node of
// its protocol-info chain. It has no side effects.
func DeriveKey(last *model.ProtoInfo, cfg *KeyConfig) Key {
	k := emptyKey()
	if last == nil {
		return k
	}

	l4 := last.Find(func(n *model.ProtoInfo) bool { return n.Ports != nil })
	ipNode := from(l4, last).Find(func(n *model.ProtoInfo) bool { return n.IP != nil })
	ethNode := from(ipNode, last).Find(func(n *model.ProtoInfo) bool { return n.Eth != nil })
	capNode := from(ethNode, last).Capture()

	if cfg.UseDev && capNode != nil {
		k.DevID = int32(capNode.Cap.DevID)
	}
	if ethNode != nil {
		eth := ethNode.Eth
		if cfg.UseVLAN {
			k.VLAN = int32(eth.VLAN)
		}
		if cfg.UseMACSrc {
			k.MACSrc = string(eth.Src)
		}
		if cfg.UseMACDst {
			k.MACDst = string(eth.Dst)
		}
		if cfg.UseMACProto {
			k.MACProto = int32(eth.Protocol)
		}
	}
	if ipNode != nil {
		ip := ipNode.IP
		if cfg.UseIPSrc {
			k.IPSrc = ip.Src
		}
		if cfg.UseIPDst {
			k.IPDst = ip.Dst
		}
		if cfg.UseIPProto {
			k.IPProto = int32(ip.Protocol)
		}
		if cfg.UseIPVersion {
			k.IPVersion = int32(ip.Version)
		}
	}
	if l4 != nil {
		if cfg.UsePortSrc {
			k.PortSrc = int32(l4.Ports.Src)
		}
		if cfg.UsePortDst {
			k.PortDst = int32(l4.Ports.Dst)
		}
	}
	if cfg.UseProtoStack {
		k.Stack = protoStack(last)
	}
	return k
}

// from picks where the next upward search starts.
func from(found, last *model.ProtoInfo) *model.ProtoInfo {
	if found != nil {
		return found
	}
	return last
}

func protoStack(last *model.ProtoInfo) string {
	stack := strings.Join(last.Names(), "/")
	if len(stack) > maxStackLen {
		stack = stack[:maxStackLen]
	}
	return stack
}
