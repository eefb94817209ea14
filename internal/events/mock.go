package events

import (
	"bytes"
	"io"
	"net"
	"sync"
	"time"
)

// MockUDPSocket implements UDPSocket for tests. Reads past the last
// datagram time out like an idle socket.
type MockUDPSocket struct {
	mu sync.Mutex

	Datagrams      [][]byte
	ReadIndex      int
	Closed         bool
	ReadBufferSize int
	ReadError      error // Returned once by the next read
	LocalAddress   *net.UDPAddr
}

// NewMockUDPSocket creates a socket that will deliver datagrams in order.
func NewMockUDPSocket(datagrams ...[]byte) *MockUDPSocket {
	return &MockUDPSocket{
		Datagrams:    datagrams,
		LocalAddress: &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: DefaultUnicastPort},
	}
}

// ReadFromUDP returns the next datagram.
func (m *MockUDPSocket) ReadFromUDP(b []byte) (int, *net.UDPAddr, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Closed {
		return 0, nil, net.ErrClosed
	}
	if m.ReadError != nil {
		err := m.ReadError
		m.ReadError = nil
		return 0, nil, err
	}
	if m.ReadIndex >= len(m.Datagrams) {
		return 0, nil, &net.OpError{Op: "read", Net: "udp", Err: timeoutError{}}
	}
	n := copy(b, m.Datagrams[m.ReadIndex])
	m.ReadIndex++
	return n, &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 40000}, nil
}

// SetReadBuffer records the buffer size.
func (m *MockUDPSocket) SetReadBuffer(bytes int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadBufferSize = bytes
	return nil
}

// SetReadDeadline is a no-op.
func (m *MockUDPSocket) SetReadDeadline(time.Time) error { return nil }

// Close marks the socket closed.
func (m *MockUDPSocket) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// LocalAddr returns the configured address.
func (m *MockUDPSocket) LocalAddr() net.Addr { return m.LocalAddress }

// Remaining returns the number of undelivered datagrams.
func (m *MockUDPSocket) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Datagrams) - m.ReadIndex
}

// MockSocketFactory hands out a fixed socket and records listen calls.
type MockSocketFactory struct {
	Socket  *MockUDPSocket
	Error   error
	Network string
	Addr    *net.UDPAddr
}

// ListenUDP returns the configured socket.
func (f *MockSocketFactory) ListenUDP(network string, laddr *net.UDPAddr) (UDPSocket, error) {
	f.Network, f.Addr = network, laddr
	if f.Error != nil {
		return nil, f.Error
	}
	return f.Socket, nil
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// MockSerialPort implements SerialPorter over an in-memory stream.
type MockSerialPort struct {
	mu      sync.Mutex
	r       io.Reader
	Written bytes.Buffer
	Closed  bool
}

// NewMockSerialPort returns a port whose reads drain data and then
// report io.EOF.
func NewMockSerialPort(data []byte) *MockSerialPort {
	return &MockSerialPort{r: bytes.NewReader(data)}
}

// Read reads from the scripted stream.
func (p *MockSerialPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Closed {
		return 0, io.ErrClosedPipe
	}
	return p.r.Read(b)
}

// Write records commands sent to the device.
func (p *MockSerialPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Written.Write(b)
}

// Close marks the port closed.
func (p *MockSerialPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Closed = true
	return nil
}

// Commands returns everything written to the port.
func (p *MockSerialPort) Commands() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Written.String()
}
