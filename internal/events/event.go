package events

import "errors"

// Event is one address-event from the sensor.
type Event struct {
	Timestamp int64 // Microseconds, sensor clock
	X, Y      int   // Sensor pixel
	On        bool  // Polarity: brightness increase
}

// Handler consumes decoded event batches. Batches are not retained by the
// caller after HandleEvents returns.
type Handler interface {
	HandleEvents(events []Event)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(events []Event)

// HandleEvents calls f(events).
func (f HandlerFunc) HandleEvents(events []Event) { f(events) }

// ErrShortPacket reports a datagram whose length is not a whole number of
// events; the complete events before the fragment are still returned.
var ErrShortPacket = errors.New("events: truncated event in packet")
