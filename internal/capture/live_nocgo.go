//go:build !cgo

package capture

import (
	"errors"

	"Go2NetTop/internal/config"
)

func openLive(config.CaptureConfig) (Source, error) {
	return nil, errors.New("live pcap capture requires a cgo build")
}
