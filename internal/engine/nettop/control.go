package nettop

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/charmbracelet/bubbles/key"
	"github.com/muesli/cancelreader"
)

// keyPress is a single byte read from the terminal, named the way key
// bindings name keys.
type keyPress string

func (k keyPress) String() string { return string(k) }

func pressOf(b byte) keyPress {
	if b == 0x03 {
		return "ctrl+c"
	}
	return keyPress(string(rune(b)))
}

type keyMap struct {
	Dev       key.Binding
	VLAN      key.Binding
	SrcIP     key.Binding
	DstIP     key.Binding
	SrcPort   key.Binding
	DstPort   key.Binding
	SrcMAC    key.Binding
	DstMAC    key.Binding
	IPProto   key.Binding
	EthProto  key.Binding
	IPVersion key.Binding
	Stack     key.Binding
	Shorten   key.Binding
	Sort      key.Binding
	Faster    key.Binding
	Slower    key.Binding
	Help      key.Binding
	Back      key.Binding
	Quit      key.Binding
}

func (k keyMap) helpGroups() [][]key.Binding {
	return [][]key.Binding{
		{k.Dev, k.VLAN, k.SrcIP, k.DstIP, k.SrcPort, k.DstPort, k.SrcMAC, k.DstMAC,
			k.IPProto, k.EthProto, k.IPVersion, k.Stack, k.Shorten, k.Sort},
		{k.Faster, k.Slower, k.Help, k.Back, k.Quit},
	}
}

var keys = keyMap{
	Dev:       key.NewBinding(key.WithKeys("I"), key.WithHelp("I", "Toggle usage of device id")),
	VLAN:      key.NewBinding(key.WithKeys("V"), key.WithHelp("V", "Toggle usage of VLAN id")),
	SrcIP:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "Toggle usage of src IP")),
	DstIP:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "Toggle usage of dest IP")),
	SrcPort:   key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "Toggle usage of src port")),
	DstPort:   key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "Toggle usage of dest port")),
	SrcMAC:    key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "Toggle usage of src MAC")),
	DstMAC:    key.NewBinding(key.WithKeys("M"), key.WithHelp("M", "Toggle usage of dest MAC")),
	IPProto:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "Toggle usage of IP protocol")),
	EthProto:  key.NewBinding(key.WithKeys("P"), key.WithHelp("P", "Toggle usage of Ethernet protocol")),
	IPVersion: key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "Toggle usage of IP version")),
	Stack:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "Toggle usage of protocol stack")),
	Shorten:   key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "Display short protocol stack")),
	Sort:      key.NewBinding(key.WithKeys("k"), key.WithHelp("k", "Toggle sort field (volume or packets)")),
	Faster:    key.NewBinding(key.WithKeys("+"), key.WithHelp("+", "Refresh twice faster")),
	Slower:    key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "Refresh twice slower")),
	Help:      key.NewBinding(key.WithKeys("h", "H", "?"), key.WithHelp("h,H,?", "this help screen")),
	Back:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "return to main screen")),
	Quit:      key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("^C", "quit")),
}

// toggles maps the key field bindings to the field they flip.
var toggles = []struct {
	binding *key.Binding
	field   func(*KeyConfig) *bool
}{
	{&keys.Dev, func(c *KeyConfig) *bool { return &c.UseDev }},
	{&keys.VLAN, func(c *KeyConfig) *bool { return &c.UseVLAN }},
	{&keys.SrcIP, func(c *KeyConfig) *bool { return &c.UseIPSrc }},
	{&keys.DstIP, func(c *KeyConfig) *bool { return &c.UseIPDst }},
	{&keys.SrcPort, func(c *KeyConfig) *bool { return &c.UsePortSrc }},
	{&keys.DstPort, func(c *KeyConfig) *bool { return &c.UsePortDst }},
	{&keys.SrcMAC, func(c *KeyConfig) *bool { return &c.UseMACSrc }},
	{&keys.DstMAC, func(c *KeyConfig) *bool { return &c.UseMACDst }},
	{&keys.IPProto, func(c *KeyConfig) *bool { return &c.UseIPProto }},
	{&keys.EthProto, func(c *KeyConfig) *bool { return &c.UseMACProto }},
	{&keys.IPVersion, func(c *KeyConfig) *bool { return &c.UseIPVersion }},
	{&keys.Stack, func(c *KeyConfig) *bool { return &c.UseProtoStack }},
	{&keys.Shorten, func(c *KeyConfig) *bool { return &c.ShortenStack }},
	{&keys.Help, func(c *KeyConfig) *bool { return &c.Help }},
}

// Controller reads single keystrokes and applies them to the engine's
// settings. It never takes the engine lock.
type Controller struct {
	top  *NetTop
	in   cancelreader.CancelReader
	done chan struct{}
}

// NewController wraps in so that a pending read can be cancelled on shutdown.
func NewController(in io.Reader, top *NetTop) (*Controller, error) {
	cr, err := cancelreader.NewReader(in)
	if err != nil {
		return nil, fmt.Errorf("failed to set up control input: %w", err)
	}
	return &Controller{top: top, in: cr, done: make(chan struct{})}, nil
}

// Start launches the read loop.
func (c *Controller) Start() {
	go c.run()
}

// Done is closed when the read loop has exited.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Stop cancels a pending read and waits for the loop to exit. Readers that
// cannot be cancelled are abandoned.
func (c *Controller) Stop() {
	if c.in.Cancel() {
		<-c.done
	}
	c.in.Close()
}

func (c *Controller) run() {
	defer close(c.done)
	buf := make([]byte, 1)
	for !c.top.Quitting() {
		n, err := c.in.Read(buf)
		if err != nil {
			switch {
			case errors.Is(err, cancelreader.ErrCanceled):
				return
			case errors.Is(err, io.EOF):
				slog.Error("Cannot read control input: end of file")
			default:
				slog.Error("Cannot read control input", "error", err)
			}
			c.top.Quit()
			return
		}
		if n == 1 {
			c.Dispatch(buf[0])
		}
	}
}

// Dispatch applies one keystroke. Unknown keys are ignored. The help overlay,
// when shown, is redrawn afterwards.
func (c *Controller) Dispatch(b byte) {
	press := pressOf(b)
	settings := c.top.Settings()

	switch {
	case key.Matches(press, keys.Sort):
		settings.ToggleSort()
	case key.Matches(press, keys.Faster):
		settings.Faster()
	case key.Matches(press, keys.Slower):
		settings.Slower()
	case key.Matches(press, keys.Back):
		settings.Update(func(cfg *KeyConfig) { cfg.Help = false })
	case key.Matches(press, keys.Quit):
		c.top.Quit()
	default:
		for _, t := range toggles {
			if key.Matches(press, *t.binding) {
				settings.Update(func(cfg *KeyConfig) {
					f := t.field(cfg)
					*f = !*f
				})
				break
			}
		}
	}

	if cfg := settings.Load(); cfg.Help {
		if err := c.top.RenderHelp(); err != nil {
			slog.Debug("Failed to render help", "error", err)
		}
	}
}
