package nettop

import "time"

// DueToRender reports whether a new frame is due: never rendered yet, or at
// least interval elapsed since the last one.
func DueToRender(now, last time.Time, interval time.Duration) bool {
	return last.IsZero() || now.Sub(last) >= interval
}

// RefreshGate remembers when the last frame was rendered.
type RefreshGate struct {
	last time.Time
}

// Check reports whether a frame is due at now and, if so, records now as the
// last render time. The caller holds the engine lock.
func (g *RefreshGate) Check(now time.Time, interval time.Duration) bool {
	if !DueToRender(now, g.last, interval) {
		return false
	}
	g.last = now
	return true
}

// Mark records now as the last render time.
func (g *RefreshGate) Mark(now time.Time) {
	g.last = now
}
