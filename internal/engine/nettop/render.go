package nettop

import (
	"fmt"
	"io"
	"net"
	"net/netip"
	"strings"
	"sync"
	"time"

	"Go2NetTop/internal/engine/protocol"
)

// Version is shown in the help overlay title.
const Version = "1.2.0"

const (
	fallbackCols = 80
	fallbackRows = 25
	headerRows   = 5
)

type escapes struct {
	topLeft, clear, normal, bright, reverse string
}

var (
	ansi = escapes{
		topLeft: "\x1b[1;1H",
		clear:   "\x1b[2J",
		normal:  "\x1b[0m",
		bright:  "\x1b[1m",
		reverse: "\x1b[7m",
	}
	plain = escapes{}
)

// FrameInfo carries what a frame shows besides the cells.
type FrameInfo struct {
	Now     time.Time
	Packets uint64
	Bytes   uint64
	Cols    int
}

// Renderer writes frames and the help overlay. Writes are serialized so the
// overlay drawn by the control loop never interleaves with a frame.
type Renderer struct {
	mu  sync.Mutex
	w   io.Writer
	esc escapes
}

// NewRenderer returns a renderer writing to w. With plainText set no escape
// sequences are emitted, for output that is not a terminal.
func NewRenderer(w io.Writer, plainText bool) *Renderer {
	r := &Renderer{w: w, esc: ansi}
	if plainText {
		r.esc = plain
	}
	return r
}

// Layout returns the protocol and per-side address column widths.
func Layout(cfg *KeyConfig, cols int) (protoLen, addrLen int) {
	protoLen = 10
	if cfg.UseProtoStack && !cfg.ShortenStack {
		protoLen += 30
	}
	addrsLen := cols - 23 - protoLen
	if cfg.UseVLAN {
		addrsLen -= 5
	}
	if cfg.UseDev {
		addrsLen -= 5
	}
	addrLen = max((addrsLen-3)/2, 0)
	return protoLen, addrLen
}

// Frame clears the screen and draws the header, the running totals and one
// row per cell.
func (r *Renderer) Frame(cells []Cell, cfg *KeyConfig, info FrameInfo) error {
	e := r.esc
	cols := info.Cols
	if cols <= 0 {
		cols = fallbackCols
	}

	var b strings.Builder
	b.WriteString(e.topLeft + e.clear)
	fmt.Fprintf(&b, "NetTop - Every %s%.2fs%s - %s%s%s\n",
		e.bright, cfg.Refresh.Seconds(), e.normal, e.bright, info.Now.Format(time.ANSIC), e.normal)
	fmt.Fprintf(&b, "Packets: %s%d%s, Bytes: %s%d%s\n\n",
		e.bright, info.Packets, e.normal, e.bright, info.Bytes, e.normal)

	protoLen, addrLen := Layout(cfg, cols)
	var h strings.Builder
	h.WriteString("   Packets     Volume ")
	if cfg.UseDev {
		h.WriteString("Dev ")
	}
	if cfg.UseVLAN {
		h.WriteString("Vlan ")
	}
	fmt.Fprintf(&h, "%*s", protoLen, "Protocol")
	fmt.Fprintf(&h, "%*s", addrLen+1, "Source")
	h.WriteString("   ")
	fmt.Fprintf(&h, "%-*s", addrLen, " Destination")
	if pad := cols - h.Len(); pad > 0 {
		h.WriteString(strings.Repeat(" ", pad))
	}
	b.WriteString(e.reverse + h.String() + e.normal + "\n")

	for _, cell := range cells {
		if cfg.SortBy == SortByPackets {
			fmt.Fprintf(&b, "%s%10d%s %10d", e.bright, cell.Packets, e.normal, cell.Volume)
		} else {
			fmt.Fprintf(&b, "%10d%s %10d%s", cell.Packets, e.bright, cell.Volume, e.normal)
		}
		b.WriteString(" " + KeyString(cell.Key, cfg, protoLen, addrLen) + "\n")
	}

	return r.write(b.String())
}

// Help draws the help overlay for cfg.
func (r *Renderer) Help(cfg *KeyConfig) error {
	e := r.esc
	var b strings.Builder
	b.WriteString(e.topLeft + e.clear)
	fmt.Fprintf(&b, "%sHelp for Interactive Commands%s - NetTop v%s\n\n", e.bright, e.normal, Version)
	b.WriteString("Most keys control what fields are used to group traffic.\n")
	fmt.Fprintf(&b, "Currently, packets are grouped by:\n   %s%s%s\n", e.bright, cfg.Describe(), e.normal)
	fmt.Fprintf(&b, "And sorted according to: %s%s%s\n", e.bright, cfg.SortBy, e.normal)
	fmt.Fprintf(&b, "Refresh rate is: %s%.2fs%s\n", e.bright, cfg.Refresh.Seconds(), e.normal)
	for _, group := range keys.helpGroups() {
		b.WriteString("\n")
		for _, binding := range group {
			help := binding.Help()
			fmt.Fprintf(&b, "%s%-5s%s %s\n", e.bright, help.Key, e.normal, help.Desc)
		}
	}
	return r.write(b.String())
}

func (r *Renderer) write(s string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := io.WriteString(r.w, s)
	return err
}

// column is a fixed size text buffer; text past its width is cut.
type column struct {
	b     []byte
	width int
}

func (c *column) add(s string) {
	room := c.width - len(c.b)
	if room <= 0 {
		return
	}
	if len(s) > room {
		s = s[:room]
	}
	c.b = append(c.b, s...)
}

func (c *column) String() string { return string(c.b) }

// KeyString renders a key on one line: device, VLAN, protocol summary,
// source side, arrow, destination side.
func KeyString(k Key, cfg *KeyConfig, protoLen, addrLen int) string {
	var s strings.Builder
	if cfg.UseDev {
		if k.DevID == -1 {
			s.WriteString("    ")
		} else {
			fmt.Fprintf(&s, " %3d", k.DevID)
		}
	}
	if cfg.UseVLAN {
		if k.VLAN == -1 {
			s.WriteString("     ")
		} else {
			fmt.Fprintf(&s, " %4d", k.VLAN)
		}
	}

	proto := column{width: protoLen}
	macProtoNeeded, ipProtoNeeded := true, true

	if cfg.UseProtoStack && k.Stack != "" {
		stack := k.Stack
		if cfg.ShortenStack {
			if i := strings.LastIndexByte(stack, '/'); i >= 0 {
				stack = stack[i+1:]
			}
		}
		proto.add(" " + stack)
		if cfg.UseIPProto && k.IPProto != -1 && hasComponent(stack, protocol.IPProtoName(int(k.IPProto))) {
			ipProtoNeeded = false
		}
	}
	if cfg.UseIPProto && ipProtoNeeded && k.IPProto != -1 {
		proto.add(" " + protocol.IPProtoName(int(k.IPProto)))
		macProtoNeeded = false
	}
	if cfg.UseIPVersion && !cfg.UseIPSrc && !cfg.UseIPDst && k.IPVersion != -1 {
		proto.add(fmt.Sprintf(" %d", k.IPVersion))
		macProtoNeeded = false
	}

	src := column{width: addrLen}
	if endpoint(&src, cfg.UseMACSrc, k.MACSrc, cfg.UseIPSrc, k.IPSrc, cfg.UsePortSrc, k.PortSrc) {
		macProtoNeeded = false
	}
	if cfg.UseMACProto && macProtoNeeded && k.MACProto != -1 {
		proto.add(" " + protocol.EtherTypeName(int(k.MACProto)))
	}

	dst := column{width: addrLen}
	endpoint(&dst, cfg.UseMACDst, k.MACDst, cfg.UseIPDst, k.IPDst, cfg.UsePortDst, k.PortDst)

	fmt.Fprintf(&s, "%*s %*s ->%-*s", protoLen, proto.String(), addrLen, src.String(), addrLen, dst.String())
	return s.String()
}

// endpoint renders one side of a key and reports whether an address or a
// port was printed.
func endpoint(c *column, useMAC bool, mac string, useIP bool, ip netip.Addr, usePort bool, port int32) bool {
	if useMAC && mac != "" {
		c.add(" " + net.HardwareAddr(mac).String())
	}
	showIP := useIP && ip.IsValid()
	showPort := usePort && port != -1
	switch {
	case showIP && showPort:
		c.add(" " + netip.AddrPortFrom(ip, uint16(port)).String())
	case showIP:
		c.add(" " + ip.String())
	case showPort:
		c.add(fmt.Sprintf(":%d", port))
	}
	return showIP || showPort
}

// hasComponent reports whether name is one of the "/" separated components
// of stack.
func hasComponent(stack, name string) bool {
	for part := range strings.SplitSeq(stack, "/") {
		if part == name {
			return true
		}
	}
	return false
}
