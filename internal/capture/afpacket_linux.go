//go:build linux && cgo

package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"Go2NetTop/internal/config"
	"Go2NetTop/internal/model"

	"github.com/google/gopacket/afpacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"golang.org/x/net/bpf"
)

type afpacketSource struct {
	iface  string
	handle *afpacket.TPacket
}

func openAFPacket(cfg config.CaptureConfig) (Source, error) {
	handle, err := afpacket.NewTPacket(
		afpacket.OptInterface(cfg.Interface),
		afpacket.OptFrameSize(cfg.FrameSize),
		afpacket.OptBlockSize(cfg.BlockSize),
		afpacket.OptNumBlocks(cfg.NumBlocks),
		afpacket.OptPollTimeout(readTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AF_PACKET handle on %s: %w", cfg.Interface, err)
	}
	if cfg.Filter != "" {
		if err := setFilter(handle, cfg.Filter, cfg.Snaplen); err != nil {
			handle.Close()
			return nil, err
		}
	}
	slog.Info("AF_PACKET capture started", "interface", cfg.Interface,
		"frame_size", cfg.FrameSize, "block_size", cfg.BlockSize, "num_blocks", cfg.NumBlocks)
	return &afpacketSource{iface: cfg.Interface, handle: handle}, nil
}

// setFilter compiles expr with libpcap and attaches it to the ring.
func setFilter(handle *afpacket.TPacket, expr string, snaplen int) error {
	insns, err := pcap.CompileBPFFilter(layers.LinkTypeEthernet, snaplen, expr)
	if err != nil {
		return fmt.Errorf("invalid filter %q: %w", expr, err)
	}
	raw := make([]bpf.RawInstruction, len(insns))
	for i, in := range insns {
		raw[i] = bpf.RawInstruction{Op: in.Code, Jt: in.Jt, Jf: in.Jf, K: in.K}
	}
	if err := handle.SetBPF(raw); err != nil {
		return fmt.Errorf("failed to attach filter: %w", err)
	}
	return nil
}

func (s *afpacketSource) Name() string { return "afpacket:" + s.iface }

// Run reads from the ring. The kernel fills in the interface index.
func (s *afpacketSource) Run(ctx context.Context, out chan<- *model.Frame) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, ci, err := s.handle.ReadPacketData()
		switch {
		case errors.Is(err, afpacket.ErrTimeout), errors.Is(err, afpacket.ErrPoll):
			continue
		case err != nil:
			return fmt.Errorf("failed to read from %s: %w", s.iface, err)
		}

		select {
		case out <- &model.Frame{Data: data, CaptureInfo: ci, LinkType: layers.LinkTypeEthernet}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *afpacketSource) Close() error {
	if _, stats, err := s.handle.SocketStats(); err == nil {
		slog.Info("Capture statistics", "interface", s.iface,
			"received", stats.Packets(), "dropped", stats.Drops())
	}
	s.handle.Close()
	return nil
}
