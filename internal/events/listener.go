package events

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/rjdini/jaer-sub001/internal/monitoring"
)

// PacketCounter receives receive-path statistics.
type PacketCounter interface {
	AddPacket(bytes int)
	AddDropped(n uint64)
	AddEvents(n int)
	LogStats()
}

// PacketStats is a concurrency-safe PacketCounter that logs through
// monitoring.Logf.
type PacketStats struct {
	packets atomic.Uint64
	bytes   atomic.Uint64
	dropped atomic.Uint64
	events  atomic.Uint64
}

func (s *PacketStats) AddPacket(bytes int) {
	s.packets.Add(1)
	s.bytes.Add(uint64(bytes))
}

func (s *PacketStats) AddDropped(n uint64) { s.dropped.Add(n) }

func (s *PacketStats) AddEvents(n int) { s.events.Add(uint64(n)) }

// Snapshot returns the current counters.
func (s *PacketStats) Snapshot() (packets, bytes, dropped, events uint64) {
	return s.packets.Load(), s.bytes.Load(), s.dropped.Load(), s.events.Load()
}

func (s *PacketStats) LogStats() {
	p, b, d, e := s.Snapshot()
	monitoring.Logf("events: %d packets (%d bytes), %d dropped, %d events", p, b, d, e)
}

// noopStats is used when no counter is supplied.
type noopStats struct{}

func (noopStats) AddPacket(int)     {}
func (noopStats) AddDropped(uint64) {}
func (noopStats) AddEvents(int)     {}
func (noopStats) LogStats()         {}

// UDPListenerConfig contains configuration options for the UDP listener.
type UDPListenerConfig struct {
	Address     string // Default ":8991"
	RcvBuf      int    // Socket receive buffer, 0 keeps the OS default
	LogInterval time.Duration
	Unicast     UnicastConfig
	Handler     Handler
	Stats       PacketCounter
	Sockets     UDPSocketFactory // Default NetSocketFactory
}

// UDPListener receives AEUnicast datagrams and hands each decoded batch
// to a Handler.
type UDPListener struct {
	cfg     UDPListenerConfig
	decoder *UnicastDecoder
	stats   PacketCounter
	sockets UDPSocketFactory
	buf     []Event
}

// NewUDPListener creates a listener; nothing is opened until Start.
func NewUDPListener(cfg UDPListenerConfig) *UDPListener {
	if cfg.Address == "" {
		cfg.Address = fmt.Sprintf(":%d", DefaultUnicastPort)
	}
	if cfg.LogInterval == 0 {
		cfg.LogInterval = time.Minute
	}
	l := &UDPListener{
		cfg:     cfg,
		decoder: NewUnicastDecoder(cfg.Unicast),
		stats:   cfg.Stats,
		sockets: cfg.Sockets,
	}
	if l.stats == nil {
		l.stats = noopStats{}
	}
	if l.sockets == nil {
		l.sockets = NetSocketFactory{}
	}
	return l
}

// Start receives until ctx is cancelled, returning ctx.Err().
func (l *UDPListener) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", l.cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}
	conn, err := l.sockets.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address: %w", err)
	}
	defer conn.Close()

	if l.cfg.RcvBuf > 0 {
		if err := conn.SetReadBuffer(l.cfg.RcvBuf); err != nil {
			monitoring.Warnf("events: failed to set UDP receive buffer to %d: %v", l.cfg.RcvBuf, err)
		}
	}
	monitoring.Logf("events: UDP listener started on %s", conn.LocalAddr())

	ticker := time.NewTicker(l.cfg.LogInterval)
	defer ticker.Stop()

	datagram := make([]byte, 64*1024)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.stats.LogStats()
		default:
		}

		// Short deadline so cancellation is noticed on an idle socket.
		conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, from, err := conn.ReadFromUDP(datagram)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			monitoring.Logf("events: UDP read error: %v", err)
			continue
		}
		if err := l.handleDatagram(datagram[:n]); err != nil {
			monitoring.Logf("events: datagram from %v: %v", from, err)
		}
	}
}

func (l *UDPListener) handleDatagram(b []byte) error {
	l.stats.AddPacket(len(b))
	before := l.decoder.Dropped()
	events, err := l.decoder.Decode(l.buf[:0], b)
	if d := l.decoder.Dropped() - before; d > 0 {
		l.stats.AddDropped(d)
	}
	l.buf = events
	if len(events) > 0 {
		l.stats.AddEvents(len(events))
		if l.cfg.Handler != nil {
			l.cfg.Handler.HandleEvents(events)
		}
	}
	return err
}
