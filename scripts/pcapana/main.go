package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"Go2NetTop/internal/engine/nettop"
	"Go2NetTop/internal/engine/protocol"
	"Go2NetTop/internal/model"
	"Go2NetTop/pkg/pcap"
)

// Prints the protocol chain and the full nettop key of the first packets of
// a capture file.
func main() {
	count := flag.Int("n", 5, "number of packets to show")
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Println("Usage: go run ./scripts/pcapana/main.go [-n count] <path_to_pcap_file>")
		os.Exit(1)
	}

	reader, err := pcap.NewReader(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	frames := make(chan *model.Frame)
	go func() {
		defer close(frames)
		if err := reader.ReadPackets(ctx, frames); err != nil && ctx.Err() == nil {
			log.Printf("Read error: %v", err)
		}
	}()

	cfg := nettop.KeyConfig{
		UseDev: true, UseVLAN: true, UseMACSrc: true, UseMACDst: true, UseMACProto: true,
		UseIPSrc: true, UseIPDst: true, UseIPProto: true, UseIPVersion: true,
		UsePortSrc: true, UsePortDst: true, UseProtoStack: true,
	}
	protoLen, addrLen := nettop.Layout(&cfg, 160)

	i := 0
	for frame := range frames {
		last := protocol.Dissect(frame)
		key := nettop.DeriveKey(last, &cfg)
		i++
		fmt.Printf("==== Packet %d [%s] len=%d ====\n", i,
			frame.CaptureInfo.Timestamp.Format("15:04:05.000"), frame.CaptureInfo.Length)
		fmt.Printf("Stack: %s\n", strings.Join(last.Names(), "/"))
		fmt.Printf("Key:   %s\n", strings.TrimRight(nettop.KeyString(key, &cfg, protoLen, addrLen), " "))
		if i >= *count {
			break
		}
	}
	cancel()
	for range frames {
	}
}
