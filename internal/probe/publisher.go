package probe

import (
	"fmt"
	"log/slog"

	"Go2NetTop/internal/config"
	"Go2NetTop/internal/model"

	"github.com/nats-io/nats.go"
)

// Publisher ships raw captured frames to a NATS subject.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher connects to the NATS server named in cfg.
func NewPublisher(cfg config.ProbeConfig) (*Publisher, error) {
	nc, err := nats.Connect(cfg.NATSURL, nats.Name("ns-probe publisher"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATSURL, err)
	}
	slog.Info("Connected to NATS server", "url", cfg.NATSURL, "subject", cfg.Subject)
	return &Publisher{nc: nc, subject: cfg.Subject}, nil
}

// Publish encodes the frame and publishes it.
func (p *Publisher) Publish(frame *model.Frame) error {
	return p.nc.Publish(p.subject, EncodeFrame(frame))
}

// HandlePacket lets the publisher sit behind the manager like any other sink.
func (p *Publisher) HandlePacket(frame *model.Frame, _ *model.ProtoInfo) {
	if err := p.Publish(frame); err != nil {
		slog.Warn("Failed to publish frame", "error", err)
	}
}

func (p *Publisher) Name() string { return "publisher" }

// Close drains pending messages and closes the connection.
func (p *Publisher) Close() {
	if p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		slog.Warn("Failed to drain NATS connection", "error", err)
	}
	slog.Info("NATS connection drained and closed")
}
