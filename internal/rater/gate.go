package rater

import "time"

// Gate decides whether traffic is heavy enough to be recorded. The payload
// rate is measured over windows of one second of capture time: recording
// starts when a window exceeds the upper bound and stops when one falls
// below the lower bound.
type Gate struct {
	upper, lower uint64

	started bool
	start   time.Time
	payload uint64
	writing bool
}

func NewGate(upper, lower uint64) *Gate {
	return &Gate{upper: upper, lower: lower}
}

// Observe accounts for one packet and reports whether it should be written.
// The decision for a window is taken by the first packet past its end.
func (g *Gate) Observe(ts time.Time, payload uint64) bool {
	if !g.started {
		g.started = true
		g.start = ts
	}

	if ts.Sub(g.start) > time.Second {
		switch {
		case g.writing && g.payload < g.lower:
			g.writing = false
		case !g.writing && g.payload > g.upper:
			g.writing = true
		}
		g.start = ts
		g.payload = 0
	}

	g.payload += payload
	return g.writing
}

func (g *Gate) Writing() bool { return g.writing }
