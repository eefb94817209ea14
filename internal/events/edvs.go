package events

// eDVS "E0" streaming format: two bytes per event, no timestamp.
//
//	byte 0: 1yyyyyyy   the set high bit marks the start of an event
//	byte 1: pxxxxxxx   p set for OFF events
//
// Serial streams can start mid-event or drop bytes. A first byte without
// the high bit cannot start an event and is skipped.

// eDVS control commands.
const (
	EDVSStartCommand  = "E+\n"
	EDVSStopCommand   = "E-\n"
	EDVSFormatCommand = "!E0\n"
)

// EDVSDecoder decodes an E0 byte stream fed in arbitrary chunks. It is not
// safe for concurrent use.
type EDVSDecoder struct {
	pending  byte
	has      bool
	skipped  uint64
	sequence int64
}

// Skipped returns the number of bytes discarded while resynchronising.
func (d *EDVSDecoder) Skipped() uint64 { return d.skipped }

// Feed appends the events completed by chunk to dst. The format carries
// no time, so events are stamped with a running event count.
func (d *EDVSDecoder) Feed(dst []Event, chunk []byte) []Event {
	for _, b := range chunk {
		if !d.has {
			if b&0x80 == 0 {
				d.skipped++
				continue
			}
			d.pending, d.has = b, true
			continue
		}
		y := int(d.pending & 0x7f)
		x := int(b & 0x7f)
		dst = append(dst, Event{Timestamp: d.sequence, X: x, Y: y, On: b&0x80 == 0})
		d.sequence++
		d.has = false
	}
	return dst
}

// EncodeEDVS renders events in E0 format.
func EncodeEDVS(events []Event) []byte {
	buf := make([]byte, 0, 2*len(events))
	for _, ev := range events {
		b1 := byte(ev.X & 0x7f)
		if !ev.On {
			b1 |= 0x80
		}
		buf = append(buf, 0x80|byte(ev.Y&0x7f), b1)
	}
	return buf
}
