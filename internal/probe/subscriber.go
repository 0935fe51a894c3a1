package probe

import (
	"fmt"
	"log/slog"

	"Go2NetTop/internal/config"
	"Go2NetTop/internal/model"

	"github.com/nats-io/nats.go"
)

// FrameHandler processes one frame received from the bus.
type FrameHandler func(frame *model.Frame)

// Subscriber receives raw frames published by remote probes.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
}

// NewSubscriber connects to the NATS server named in cfg.
func NewSubscriber(cfg config.ProbeConfig) (*Subscriber, error) {
	nc, err := nats.Connect(cfg.NATSURL, nats.Name("ns-probe subscriber"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATSURL, err)
	}
	slog.Info("Connected to NATS server", "url", cfg.NATSURL)
	return &Subscriber{nc: nc, subject: cfg.Subject}, nil
}

// Start subscribes and hands every decodable frame to handler. Malformed
// envelopes are logged and skipped.
func (s *Subscriber) Start(handler FrameHandler) error {
	sub, err := s.nc.Subscribe(s.subject, func(msg *nats.Msg) {
		frame, err := DecodeFrame(msg.Data)
		if err != nil {
			slog.Warn("Dropping message", "subject", msg.Subject, "error", err)
			return
		}
		handler(frame)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.subject, err)
	}
	s.sub = sub
	slog.Info("Subscribed, waiting for frames", "subject", s.subject)
	return nil
}

// Close unsubscribes and closes the connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		if err := s.sub.Unsubscribe(); err != nil {
			slog.Warn("Failed to unsubscribe", "error", err)
		}
	}
	if s.nc != nil {
		s.nc.Close()
		slog.Info("NATS connection closed")
	}
}
