package nettop

import (
	"fmt"
	"net/netip"
	"strings"
	"testing"

	"Go2NetTop/internal/model"
)

func TestDeriveKey_Default(t *testing.T) {
	cfg := DefaultKeyConfig()
	last := tcpChain("10.0.0.1", 1234, "10.0.0.2", 80, 64)

	k := DeriveKey(last, &cfg)

	want := Key{
		DevID:     -1,
		VLAN:      -1,
		MACProto:  0x0800,
		IPSrc:     netip.MustParseAddr("10.0.0.1"),
		IPDst:     netip.MustParseAddr("10.0.0.2"),
		IPProto:   6,
		IPVersion: 4,
		PortSrc:   1234,
		PortDst:   80,
		Stack:     "Capture/Ethernet/IPv4/TCP",
	}
	if k != want {
		t.Errorf("DeriveKey() = %+v, want %+v", k, want)
	}
}

func TestDeriveKey_Deterministic(t *testing.T) {
	cfg := DefaultKeyConfig()
	cfg.UseDev, cfg.UseVLAN, cfg.UseMACSrc, cfg.UseMACDst = true, true, true, true
	last := tcpChain("192.168.1.1", 5555, "8.8.8.8", 53, 100)

	first := DeriveKey(last, &cfg)
	for i := 0; i < 10; i++ {
		if k := DeriveKey(last, &cfg); k != first {
			t.Fatalf("Call %d returned %+v, first call returned %+v", i, k, first)
		}
	}
	if first.DevID != 2 || first.MACSrc != string(macA) || first.MACDst != string(macB) {
		t.Errorf("Optional fields not filled: %+v", first)
	}
}

func TestDeriveKey_MissingLayers(t *testing.T) {
	cfg := DefaultKeyConfig()
	cfg.UseVLAN = true

	k := DeriveKey(arpChain(42), &cfg)

	if k.PortSrc != -1 || k.PortDst != -1 {
		t.Errorf("Expected port sentinels, got %d/%d", k.PortSrc, k.PortDst)
	}
	if k.IPSrc.IsValid() || k.IPDst.IsValid() || k.IPProto != -1 || k.IPVersion != -1 {
		t.Errorf("Expected IP sentinels, got %+v", k)
	}
	if k.VLAN != 7 || k.MACProto != 0x0806 {
		t.Errorf("Expected Ethernet fields, got vlan=%d proto=%#x", k.VLAN, k.MACProto)
	}
	if k.Stack != "Capture/Ethernet/ARP" {
		t.Errorf("Unexpected stack %q", k.Stack)
	}

	if k := DeriveKey(nil, &cfg); k != emptyKey() {
		t.Errorf("Expected an all-sentinel key for a nil chain, got %+v", k)
	}
}

func TestDeriveKey_DisabledFieldsUseSentinels(t *testing.T) {
	// Two flows differing only in destination port collapse once the port
	// leaves the key.
	cfg := DefaultKeyConfig()
	cfg.UsePortDst = false
	a := DeriveKey(tcpChain("10.0.0.1", 1234, "10.0.0.2", 80, 64), &cfg)
	b := DeriveKey(tcpChain("10.0.0.1", 1234, "10.0.0.2", 443, 64), &cfg)
	if a != b {
		t.Fatalf("Expected equal keys, got %+v and %+v", a, b)
	}
	if a.PortDst != -1 {
		t.Errorf("Expected dest port sentinel, got %d", a.PortDst)
	}

	// Everything off yields the all-sentinel key for any packet.
	off := KeyConfig{}
	if k := DeriveKey(tcpChain("1.1.1.1", 1, "2.2.2.2", 2, 10), &off); k != emptyKey() {
		t.Errorf("Expected the all-sentinel key, got %+v", k)
	}
}

func TestDeriveKey_StackTruncated(t *testing.T) {
	cfg := DefaultKeyConfig()
	last := &model.ProtoInfo{Name: "Capture", Cap: &model.CapInfo{}}
	for i := 0; i < 40; i++ {
		last = &model.ProtoInfo{Name: fmt.Sprintf("Layer%02d", i), Parent: last}
	}

	k := DeriveKey(last, &cfg)

	if len(k.Stack) != maxStackLen {
		t.Fatalf("Expected stack cut at %d bytes, got %d", maxStackLen, len(k.Stack))
	}
	if !strings.HasPrefix(k.Stack, "Capture/Layer00/Layer01") {
		t.Errorf("Expected the outermost layers to be kept, got %q", k.Stack)
	}
}

func TestDeriveKey_LongChainIsBounded(t *testing.T) {
	cfg := DefaultKeyConfig()
	cfg.UseDev = true
	last := &model.ProtoInfo{Name: "Capture", Cap: &model.CapInfo{DevID: 9}}
	for i := 0; i < 10000; i++ {
		last = &model.ProtoInfo{Name: "X", Parent: last}
	}

	k := DeriveKey(last, &cfg)

	if k.DevID != -1 {
		t.Errorf("Expected the capture node beyond the depth cap to be ignored, got dev %d", k.DevID)
	}
	if len(k.Stack) > maxStackLen {
		t.Errorf("Stack longer than %d bytes: %d", maxStackLen, len(k.Stack))
	}
}
