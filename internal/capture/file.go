package capture

import (
	"context"
	"fmt"
	"log/slog"

	"Go2NetTop/internal/model"
	pcapfile "Go2NetTop/pkg/pcap"
)

type fileSource struct {
	path   string
	reader *pcapfile.Reader
}

func openFile(path string) (Source, error) {
	if path == "" {
		return nil, fmt.Errorf("file source needs a file name")
	}
	r, err := pcapfile.NewReader(path)
	if err != nil {
		return nil, err
	}
	slog.Info("Reading packets from file", "file", path, "link_type", r.LinkType())
	return &fileSource{path: path, reader: r}, nil
}

func (s *fileSource) Name() string { return "file:" + s.path }

func (s *fileSource) Run(ctx context.Context, out chan<- *model.Frame) error {
	return s.reader.ReadPackets(ctx, out)
}

func (s *fileSource) Close() error { return s.reader.Close() }
