package events

import (
	"encoding/binary"
	"fmt"
)

// DefaultUnicastPort is the customary AEUnicast UDP port.
const DefaultUnicastPort = 8991

// AddressLayout describes how a raw 32-bit address encodes pixel and
// polarity.
type AddressLayout struct {
	Width, Height int
	XShift        uint
	XMask         uint32 // Applied after shifting
	YShift        uint
	YMask         uint32
	OffBit        uint32 // Set for OFF events
	FlipX         bool   // Sensor x runs right-to-left
}

// DVS128Layout is the address layout of the 128×128 DVS.
var DVS128Layout = AddressLayout{
	Width:  128,
	Height: 128,
	XShift: 1,
	XMask:  0x7f,
	YShift: 8,
	YMask:  0x7f,
	OffBit: 0x1,
	FlipX:  true,
}

// Decode unpacks addr.
func (l AddressLayout) Decode(addr uint32) (x, y int, on bool) {
	x = int((addr >> l.XShift) & l.XMask)
	y = int((addr >> l.YShift) & l.YMask)
	if l.FlipX {
		x = l.Width - 1 - x
	}
	return x, y, addr&l.OffBit == 0
}

// Encode is the inverse of Decode for in-range pixels.
func (l AddressLayout) Encode(x, y int, on bool) uint32 {
	if l.FlipX {
		x = l.Width - 1 - x
	}
	addr := (uint32(x)&l.XMask)<<l.XShift | (uint32(y)&l.YMask)<<l.YShift
	if !on {
		addr |= l.OffBit
	}
	return addr
}

// UnicastConfig selects the AEUnicast datagram framing.
type UnicastConfig struct {
	SequenceHeader bool // Datagrams start with a 4-byte sequence number
	LittleEndian   bool
	TimestampFirst bool // Each event is timestamp then address
	Layout         AddressLayout
}

// DefaultUnicastConfig returns big-endian address-first framing with a
// sequence header and the DVS128 layout.
func DefaultUnicastConfig() UnicastConfig {
	return UnicastConfig{SequenceHeader: true, Layout: DVS128Layout}
}

func (c UnicastConfig) order() interface {
	binary.ByteOrder
	binary.AppendByteOrder
} {
	if c.LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

const unicastEventSize = 8

// UnicastDecoder decodes AEUnicast datagrams and counts sequence gaps.
// It is not safe for concurrent use.
type UnicastDecoder struct {
	cfg     UnicastConfig
	lastSeq uint32
	seen    bool
	dropped uint64
}

// NewUnicastDecoder creates a decoder for cfg.
func NewUnicastDecoder(cfg UnicastConfig) *UnicastDecoder {
	return &UnicastDecoder{cfg: cfg}
}

// Dropped returns the number of datagrams missing from the sequence.
func (d *UnicastDecoder) Dropped() uint64 { return d.dropped }

// Decode appends the events in payload to dst. Trailing bytes that do not
// form a whole event are reported as ErrShortPacket after the complete
// events are decoded.
func (d *UnicastDecoder) Decode(dst []Event, payload []byte) ([]Event, error) {
	order := d.cfg.order()
	if d.cfg.SequenceHeader {
		if len(payload) < 4 {
			return dst, fmt.Errorf("%w: %d byte header", ErrShortPacket, len(payload))
		}
		seq := order.Uint32(payload)
		if d.seen && seq != d.lastSeq+1 && seq > d.lastSeq {
			d.dropped += uint64(seq - d.lastSeq - 1)
		}
		d.lastSeq, d.seen = seq, true
		payload = payload[4:]
	}

	n := len(payload) / unicastEventSize
	for i := 0; i < n; i++ {
		b := payload[i*unicastEventSize:]
		addr, ts := order.Uint32(b), order.Uint32(b[4:])
		if d.cfg.TimestampFirst {
			addr, ts = ts, addr
		}
		x, y, on := d.cfg.Layout.Decode(addr)
		dst = append(dst, Event{Timestamp: int64(int32(ts)), X: x, Y: y, On: on})
	}
	if rem := len(payload) % unicastEventSize; rem != 0 {
		return dst, fmt.Errorf("%w: %d trailing bytes", ErrShortPacket, rem)
	}
	return dst, nil
}

// EncodeUnicast builds one datagram carrying events. seq is ignored
// unless cfg.SequenceHeader is set.
func EncodeUnicast(cfg UnicastConfig, seq uint32, events []Event) []byte {
	order := cfg.order()
	size := len(events) * unicastEventSize
	if cfg.SequenceHeader {
		size += 4
	}
	buf := make([]byte, 0, size)
	if cfg.SequenceHeader {
		buf = order.AppendUint32(buf, seq)
	}
	for _, ev := range events {
		addr, ts := cfg.Layout.Encode(ev.X, ev.Y, ev.On), uint32(ev.Timestamp)
		if cfg.TimestampFirst {
			addr, ts = ts, addr
		}
		buf = order.AppendUint32(buf, addr)
		buf = order.AppendUint32(buf, ts)
	}
	return buf
}
