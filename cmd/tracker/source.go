package main

import (
	"context"
	"fmt"

	"github.com/rjdini/jaer-sub001/internal/events"
)

type sourceOptions struct {
	Kind      string
	Input     string
	UDPAddr   string
	UDPPort   int
	RcvBuf    int
	Serial    string
	Baud      int
	TextBatch int
	Unicast   events.UnicastConfig

	// Test hooks
	Sockets    events.UDPSocketFactory
	OpenSerial events.SerialPortOpener
}

// runSource streams events from the selected source into h until the
// source ends or ctx is cancelled.
func runSource(ctx context.Context, o sourceOptions, h events.Handler, stats events.PacketCounter) error {
	switch o.Kind {
	case "udp":
		l := events.NewUDPListener(events.UDPListenerConfig{
			Address: o.UDPAddr,
			RcvBuf:  o.RcvBuf,
			Unicast: o.Unicast,
			Handler: h,
			Stats:   stats,
			Sockets: o.Sockets,
		})
		return l.Start(ctx)
	case "serial":
		src := &events.SerialSource{
			Path:    o.Serial,
			Options: events.PortOptions{BaudRate: o.Baud},
			Open:    o.OpenSerial,
			Handler: h,
			Stats:   stats,
		}
		return src.Run(ctx)
	case "pcap":
		if o.Input == "" {
			return fmt.Errorf("-source pcap needs -input")
		}
		return events.ReadPCAPFile(ctx, o.Input, o.UDPPort, o.Unicast, h, stats)
	case "text":
		if o.Input == "" {
			return fmt.Errorf("-source text needs -input")
		}
		evs, err := events.ReadTextFile(o.Input)
		if err != nil {
			return err
		}
		for _, batch := range events.Batches(evs, o.TextBatch) {
			if err := ctx.Err(); err != nil {
				return err
			}
			stats.AddPacket(len(batch))
			stats.AddEvents(len(batch))
			h.HandleEvents(batch)
		}
		return nil
	default:
		return fmt.Errorf("unknown source %q (want udp, serial, pcap or text)", o.Kind)
	}
}
