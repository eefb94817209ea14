package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.bug.st/serial"

	"github.com/rjdini/jaer-sub001/internal/monitoring"
)

// SerialPorter is the minimal interface needed for a serial port.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// SerialPortOpener opens the port at path.
type SerialPortOpener func(path string, opts PortOptions) (SerialPorter, error)

// PortOptions describes the serial connection parameters.
type PortOptions struct {
	BaudRate int    `json:"baud_rate"`
	DataBits int    `json:"data_bits"`
	StopBits int    `json:"stop_bits"`
	Parity   string `json:"parity"`
}

// DefaultEDVSBaudRate is the eDVS factory setting.
const DefaultEDVSBaudRate = 4000000

// Normalize validates the options and applies defaults for unset values.
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o
	if opts.BaudRate <= 0 {
		opts.BaudRate = DefaultEDVSBaudRate
	}
	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}
	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}
	switch strings.TrimSpace(strings.ToUpper(opts.Parity)) {
	case "", "N", "NONE":
		opts.Parity = "N"
	case "E", "EVEN":
		opts.Parity = "E"
	case "O", "ODD":
		opts.Parity = "O"
	default:
		return opts, fmt.Errorf("unsupported parity %q: expected N, E, or O", opts.Parity)
	}
	return opts, nil
}

// SerialMode converts the options into the mode go.bug.st/serial opens
// a port with.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}
	mode := &serial.Mode{BaudRate: opts.BaudRate, DataBits: opts.DataBits}
	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	} else {
		mode.StopBits = serial.OneStopBit
	}
	switch opts.Parity {
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	default:
		mode.Parity = serial.NoParity
	}
	return mode, nil
}

// OpenSerialPort opens a real serial device.
func OpenSerialPort(path string, opts PortOptions) (SerialPorter, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}
	// A read timeout lets Run notice cancellation on a quiet sensor.
	if err := port.SetReadTimeout(200 * time.Millisecond); err != nil {
		monitoring.Warnf("events: failed to set read timeout on %s: %v", path, err)
	}
	return port, nil
}

// SerialSource streams eDVS events from a serial port.
type SerialSource struct {
	Path    string
	Options PortOptions
	Open    SerialPortOpener // Default OpenSerialPort
	Handler Handler
	Stats   PacketCounter
}

// Run opens the port, switches the sensor to E0 streaming and decodes
// until ctx is cancelled or the stream ends. The sensor is told to stop
// streaming before the port is closed.
func (s *SerialSource) Run(ctx context.Context) error {
	open := s.Open
	if open == nil {
		open = OpenSerialPort
	}
	stats := s.Stats
	if stats == nil {
		stats = noopStats{}
	}

	port, err := open(s.Path, s.Options)
	if err != nil {
		return err
	}
	defer port.Close()

	if _, err := io.WriteString(port, EDVSFormatCommand+EDVSStartCommand); err != nil {
		return fmt.Errorf("failed to start eDVS stream: %w", err)
	}
	defer io.WriteString(port, EDVSStopCommand)

	// Closing the port unblocks a Read that has no timeout.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			port.Close()
		case <-done:
		}
	}()

	var dec EDVSDecoder
	chunk := make([]byte, 4096)
	var batch []Event
	for {
		n, err := port.Read(chunk)
		if n > 0 {
			stats.AddPacket(n)
			batch = dec.Feed(batch[:0], chunk[:n])
			if len(batch) > 0 {
				stats.AddEvents(len(batch))
				if s.Handler != nil {
					s.Handler.HandleEvents(batch)
				}
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				monitoring.Logf("events: serial stream %s ended (%d bytes skipped resyncing)", s.Path, dec.Skipped())
				return nil
			}
			return fmt.Errorf("serial read: %w", err)
		}
	}
}
