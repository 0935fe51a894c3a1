package main

import (
	"flag"
	"log"
	"math/rand/v2"
	"net"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

type flow struct {
	srcIP, dstIP     net.IP
	srcPort, dstPort uint16
	udp              bool
}

func randomIP() net.IP {
	return net.IP{10, byte(rand.IntN(256)), byte(rand.IntN(256)), byte(1 + rand.IntN(254))}
}

func randomFlow() flow {
	return flow{
		srcIP:   randomIP(),
		dstIP:   randomIP(),
		srcPort: uint16(rand.IntN(65535-1024) + 1024),
		dstPort: []uint16{22, 53, 80, 443, 8080}[rand.IntN(5)],
		udp:     rand.IntN(4) == 0,
	}
}

func main() {
	outputFile := flag.String("o", "test.pcap", "Output pcap file path")
	packetCount := flag.Int("c", 1000, "Number of packets to generate")
	heavyFlows := flag.Int("flows", 5, "Number of heavy flows")
	heavyShare := flag.Float64("heavy", 0.8, "Share of the packets that belong to heavy flows")
	rate := flag.Int("rate", 1000, "Packets per second of capture time")
	vlan := flag.Int("vlan", -1, "Tag every frame with this VLAN id (-1 for none)")
	flag.Parse()

	f, err := os.Create(*outputFile)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()

	pcapWriter := pcapgo.NewWriter(f)
	if err := pcapWriter.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		log.Fatalf("Failed to write pcap header: %v", err)
	}

	heavy := make([]flow, max(*heavyFlows, 0))
	for i := range heavy {
		heavy[i] = randomFlow()
	}
	step := time.Second / time.Duration(max(*rate, 1))
	ts := time.Now()

	log.Printf("Generating %d packets into %s...", *packetCount, *outputFile)

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	for i := 0; i < *packetCount; i++ {
		if (i+1)%100000 == 0 {
			log.Printf("Generated %d packets...", i+1)
		}

		fl := randomFlow()
		if len(heavy) > 0 && rand.Float64() < *heavyShare {
			fl = heavy[rand.IntN(len(heavy))]
		}

		ethLayer := &layers.Ethernet{
			SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
			DstMAC:       net.HardwareAddr{0x00, 0x66, 0x77, 0x88, 0x99, 0xAA},
			EthernetType: layers.EthernetTypeIPv4,
		}
		ipLayer := &layers.IPv4{
			SrcIP:   fl.srcIP,
			DstIP:   fl.dstIP,
			Version: 4,
			TTL:     64,
		}
		stack := []gopacket.SerializableLayer{ethLayer}
		if *vlan >= 0 {
			ethLayer.EthernetType = layers.EthernetTypeDot1Q
			stack = append(stack, &layers.Dot1Q{VLANIdentifier: uint16(*vlan), Type: layers.EthernetTypeIPv4})
		}
		stack = append(stack, ipLayer)

		if fl.udp {
			ipLayer.Protocol = layers.IPProtocolUDP
			udpLayer := &layers.UDP{SrcPort: layers.UDPPort(fl.srcPort), DstPort: layers.UDPPort(fl.dstPort)}
			udpLayer.SetNetworkLayerForChecksum(ipLayer)
			stack = append(stack, udpLayer)
		} else {
			ipLayer.Protocol = layers.IPProtocolTCP
			tcpLayer := &layers.TCP{
				SrcPort: layers.TCPPort(fl.srcPort),
				DstPort: layers.TCPPort(fl.dstPort),
				Seq:     rand.Uint32(),
				ACK:     true,
				Window:  14600,
			}
			tcpLayer.SetNetworkLayerForChecksum(ipLayer)
			stack = append(stack, tcpLayer)
		}

		payload := make([]byte, rand.IntN(1400)+50)
		for j := range payload {
			payload[j] = byte(rand.Uint32())
		}
		stack = append(stack, gopacket.Payload(payload))

		if err := gopacket.SerializeLayers(buf, opts, stack...); err != nil {
			log.Fatalf("Failed to serialize layers: %v", err)
		}

		ci := gopacket.CaptureInfo{
			Timestamp:     ts,
			CaptureLength: len(buf.Bytes()),
			Length:        len(buf.Bytes()),
		}
		if err := pcapWriter.WritePacket(ci, buf.Bytes()); err != nil {
			log.Fatalf("Failed to write packet: %v", err)
		}
		ts = ts.Add(step)
	}

	log.Printf("Successfully generated %d packets into %s.", *packetCount, *outputFile)
}
