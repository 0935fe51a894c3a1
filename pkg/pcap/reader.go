package pcap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"Go2NetTop/internal/model"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

// Reader reads frames from a pcap or pcapng file.
type Reader struct {
	file   *os.File
	source packetReader
}

// NewReader opens a capture file, accepting both the classic pcap and the
// pcapng formats.
func NewReader(filePath string) (*Reader, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}

	var source packetReader
	if r, err := pcapgo.NewReader(f); err == nil {
		source = r
	} else {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to rewind capture file: %w", err)
		}
		ng, ngErr := pcapgo.NewNgReader(f, pcapgo.DefaultNgReaderOptions)
		if ngErr != nil {
			f.Close()
			return nil, fmt.Errorf("not a pcap or pcapng file: %w", err)
		}
		source = ng
	}
	return &Reader{file: f, source: source}, nil
}

// LinkType returns the link type of the frames in the file.
func (r *Reader) LinkType() layers.LinkType {
	return r.source.LinkType()
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// ReadPackets sends every frame of the file to out. It returns nil at the end
// of the file, or the context error if ctx is cancelled first. out is not
// closed.
func (r *Reader) ReadPackets(ctx context.Context, out chan<- *model.Frame) error {
	linkType := r.source.LinkType()
	for {
		data, ci, err := r.source.ReadPacketData()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return fmt.Errorf("failed to read packet: %w", err)
		}
		frame := &model.Frame{Data: data, CaptureInfo: ci, LinkType: linkType}
		select {
		case out <- frame:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
