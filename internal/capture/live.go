//go:build cgo

package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"Go2NetTop/internal/config"
	"Go2NetTop/internal/model"

	"github.com/google/gopacket/pcap"
)

type liveSource struct {
	iface  string
	devID  int
	handle *pcap.Handle
}

func openLive(cfg config.CaptureConfig) (Source, error) {
	handle, err := pcap.OpenLive(cfg.Interface, int32(cfg.Snaplen), cfg.Promiscuous, readTimeout)
	if err != nil {
		return nil, fmt.Errorf("error opening device %s: %w", cfg.Interface, err)
	}
	if cfg.Filter != "" {
		if err := handle.SetBPFFilter(cfg.Filter); err != nil {
			handle.Close()
			return nil, fmt.Errorf("invalid filter %q: %w", cfg.Filter, err)
		}
	}
	devID, err := deviceIndex(cfg.Interface)
	if err != nil {
		slog.Warn("Unknown device index", "interface", cfg.Interface, "error", err)
	}
	slog.Info("Live capture started", "interface", cfg.Interface, "dev_id", devID, "filter", cfg.Filter)
	return &liveSource{iface: cfg.Interface, devID: devID, handle: handle}, nil
}

func (s *liveSource) Name() string { return "pcap:" + s.iface }

func (s *liveSource) Run(ctx context.Context, out chan<- *model.Frame) error {
	linkType := s.handle.LinkType()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, ci, err := s.handle.ReadPacketData()
		switch {
		case errors.Is(err, pcap.NextErrorTimeoutExpired):
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return fmt.Errorf("failed to read from %s: %w", s.iface, err)
		}
		ci.InterfaceIndex = s.devID

		select {
		case out <- &model.Frame{Data: data, CaptureInfo: ci, LinkType: linkType}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *liveSource) Close() error {
	if stats, err := s.handle.Stats(); err == nil {
		slog.Info("Capture statistics", "interface", s.iface,
			"received", stats.PacketsReceived, "dropped", stats.PacketsDropped)
	}
	s.handle.Close()
	return nil
}
