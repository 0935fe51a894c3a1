//go:build !linux || !cgo

package capture

import (
	"errors"

	"Go2NetTop/internal/config"
)

func openAFPacket(config.CaptureConfig) (Source, error) {
	return nil, errors.New("AF_PACKET capture requires a Linux cgo build")
}
