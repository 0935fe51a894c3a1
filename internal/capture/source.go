// Package capture opens the packet sources the engine can read from.
package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Go2NetTop/internal/config"
	"Go2NetTop/internal/model"
)

// readTimeout bounds a single blocking read on live sources so that
// cancellation is noticed.
const readTimeout = 100 * time.Millisecond

var ErrUnknownSource = errors.New("unknown capture source")

// Source produces frames. Run blocks until the source is exhausted, in which
// case it returns nil, or until ctx is cancelled, in which case it returns
// ctx.Err(). Run never closes out; once it has returned nothing more is sent.
type Source interface {
	Name() string
	Run(ctx context.Context, out chan<- *model.Frame) error
	Close() error
}

// Open builds the source selected by cfg.Source.
func Open(cfg config.CaptureConfig, probeCfg config.ProbeConfig) (Source, error) {
	switch cfg.Source {
	case "file":
		return openFile(cfg.File)
	case "pcap":
		return openLive(cfg)
	case "afpacket":
		return openAFPacket(cfg)
	case "nats":
		return openNATS(probeCfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, cfg.Source)
	}
}
