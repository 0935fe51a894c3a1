package capture

import (
	"context"
	"sync"

	"Go2NetTop/internal/config"
	"Go2NetTop/internal/model"
	"Go2NetTop/internal/probe"
)

// natsSource replays frames published by remote probes.
type natsSource struct {
	subject string
	sub     *probe.Subscriber
}

func openNATS(cfg config.ProbeConfig) (Source, error) {
	sub, err := probe.NewSubscriber(cfg)
	if err != nil {
		return nil, err
	}
	return &natsSource{subject: cfg.Subject, sub: sub}, nil
}

func (s *natsSource) Name() string { return "nats:" + s.subject }

// Run forwards received frames until ctx is cancelled. Callbacks still in
// flight at that point drop their frame.
func (s *natsSource) Run(ctx context.Context, out chan<- *model.Frame) error {
	var (
		mu      sync.Mutex
		stopped bool
	)
	err := s.sub.Start(func(frame *model.Frame) {
		mu.Lock()
		defer mu.Unlock()
		if stopped {
			return
		}
		select {
		case out <- frame:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return err
	}

	<-ctx.Done()
	mu.Lock()
	stopped = true
	mu.Unlock()
	return ctx.Err()
}

func (s *natsSource) Close() error {
	s.sub.Close()
	return nil
}
