package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/rjdini/jaer-sub001/internal/monitoring"
)

// ReadPCAPFile replays AEUnicast datagrams recorded in a classic pcap
// file. Only UDP packets to udpPort are decoded; udpPort 0 accepts every
// UDP packet. Each datagram becomes one handler batch.
func ReadPCAPFile(ctx context.Context, path string, udpPort int, cfg UnicastConfig, h Handler, stats PacketCounter) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open PCAP file %s: %w", path, err)
	}
	defer f.Close()
	return ReadPCAP(ctx, f, udpPort, cfg, h, stats)
}

// ReadPCAP is ReadPCAPFile over an open stream.
func ReadPCAP(ctx context.Context, r io.Reader, udpPort int, cfg UnicastConfig, h Handler, stats PacketCounter) error {
	if stats == nil {
		stats = noopStats{}
	}
	reader, err := pcapgo.NewReader(r)
	if err != nil {
		return fmt.Errorf("failed to read PCAP header: %w", err)
	}

	dec := NewUnicastDecoder(cfg)
	var batch []Event
	packets := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, _, err := reader.ReadPacketData()
		if errors.Is(err, io.EOF) {
			monitoring.Logf("events: PCAP replay complete, %d datagrams", packets)
			return nil
		}
		if err != nil {
			return fmt.Errorf("PCAP packet %d: %w", packets+1, err)
		}

		pkt := gopacket.NewPacket(data, reader.LinkType(), gopacket.DecodeOptions{Lazy: true, NoCopy: true})
		udp, ok := pkt.Layer(layers.LayerTypeUDP).(*layers.UDP)
		if !ok || len(udp.Payload) == 0 {
			continue
		}
		if udpPort != 0 && int(udp.DstPort) != udpPort {
			continue
		}
		packets++
		stats.AddPacket(len(udp.Payload))

		before := dec.Dropped()
		batch, err = dec.Decode(batch[:0], udp.Payload)
		if err != nil {
			monitoring.Logf("events: PCAP datagram %d: %v", packets, err)
		}
		if d := dec.Dropped() - before; d > 0 {
			stats.AddDropped(d)
		}
		if len(batch) > 0 {
			stats.AddEvents(len(batch))
			if h != nil {
				h.HandleEvents(batch)
			}
		}
	}
}
