// Package rater records traffic to pcap files while the throughput is high.
package rater

import (
	"log/slog"
	"sync"

	"Go2NetTop/internal/config"
	"Go2NetTop/internal/model"
)

// Rater is a sink that feeds every frame through a Gate and writes the
// frames it lets through to a Capfile.
type Rater struct {
	mu      sync.Mutex
	gate    *Gate
	capfile *Capfile
}

func New(cfg config.RaterConfig) *Rater {
	return &Rater{
		gate:    NewGate(cfg.UpperBound, cfg.LowerBound),
		capfile: NewCapfile(cfg),
	}
}

func (r *Rater) Name() string { return "rater" }

func (r *Rater) HandlePacket(frame *model.Frame, last *model.ProtoInfo) {
	if last == nil {
		return
	}
	root := last.Capture()
	if root == nil {
		return
	}

	r.mu.Lock()
	was := r.gate.Writing()
	writing := r.gate.Observe(root.Cap.Timestamp, uint64(root.Payload))
	r.mu.Unlock()

	if writing != was {
		slog.Debug("Rater state changed", "writing", writing)
	}
	if !writing {
		return
	}
	if err := r.capfile.Write(frame); err != nil {
		slog.Warn("Rater failed to write frame", "error", err)
	}
}

func (r *Rater) Close() error {
	return r.capfile.Close()
}
