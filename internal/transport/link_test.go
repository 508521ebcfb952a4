package transport

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-rego6xx/internal/rego"
)

// chunk is one scripted read result.
type chunk struct {
	delay time.Duration
	data  []byte
}

// MockPort implements Port with scripted reads and recorded writes.
type MockPort struct {
	mu          sync.Mutex
	chunks      []chunk
	written     []byte
	readTimeout time.Duration
	writeErr    error
	shortWrite  bool
	resets      int
	closed      bool
}

func (m *MockPort) Read(p []byte) (int, error) {
	m.mu.Lock()
	timeout := m.readTimeout
	if len(m.chunks) == 0 {
		m.mu.Unlock()
		time.Sleep(timeout)
		return 0, nil
	}
	c := m.chunks[0]
	if c.delay > timeout {
		m.chunks[0].delay -= timeout
		m.mu.Unlock()
		time.Sleep(timeout)
		return 0, nil
	}
	m.mu.Unlock()
	time.Sleep(c.delay)

	m.mu.Lock()
	defer m.mu.Unlock()
	n := copy(p, c.data)
	if n < len(c.data) {
		m.chunks[0] = chunk{data: c.data[n:]}
	} else {
		m.chunks = m.chunks[1:]
	}
	return n, nil
}

func (m *MockPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	if m.shortWrite {
		return 0, nil
	}
	m.written = append(m.written, p...)
	return len(p), nil
}

func (m *MockPort) SetReadTimeout(t time.Duration) error {
	m.mu.Lock()
	m.readTimeout = t
	m.mu.Unlock()
	return nil
}

func (m *MockPort) ResetInputBuffer() error {
	m.mu.Lock()
	m.resets++
	m.mu.Unlock()
	return nil
}

func (m *MockPort) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func TestSendFrame(t *testing.T) {
	port := &MockPort{}
	link := NewLink(port, Options{})

	frame := rego.EncodeRequest(rego.CmdReadSystemRegister, rego.RegGT1, 0)
	if err := link.SendFrame(frame); err != nil {
		t.Fatalf("SendFrame() error = %v", err)
	}
	if !bytes.Equal(port.written, frame) {
		t.Errorf("written = % X, want % X", port.written, frame)
	}
	if port.resets != 1 {
		t.Errorf("ResetInputBuffer calls = %d, want 1", port.resets)
	}

	stats := link.Stats()
	if stats.FramesTx != 1 || stats.BytesTx != rego.RequestSize {
		t.Errorf("stats = %+v", stats)
	}
}

func TestSendFrameErrors(t *testing.T) {
	tests := []struct {
		name string
		port *MockPort
	}{
		{name: "write error", port: &MockPort{writeErr: errors.New("device gone")}},
		{name: "zero-byte write", port: &MockPort{shortWrite: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link := NewLink(tt.port, Options{})
			err := link.SendFrame([]byte{0x81})

			var ioErr *IOError
			if !errors.As(err, &ioErr) {
				t.Fatalf("SendFrame() error = %v, want *IOError", err)
			}
			if !errors.Is(err, ErrIO) {
				t.Error("IOError should match ErrIO")
			}
			if link.Stats().Errors != 1 {
				t.Errorf("Errors = %d, want 1", link.Stats().Errors)
			}
		})
	}

	link := NewLink(&MockPort{shortWrite: true}, Options{})
	if err := link.SendFrame([]byte{0x81}); !errors.Is(err, io.ErrShortWrite) {
		t.Errorf("error = %v, want io.ErrShortWrite in chain", err)
	}
}

func TestReceiveFrameComplete(t *testing.T) {
	resp := rego.EncodeValueResponse(215)
	port := &MockPort{chunks: []chunk{
		{data: resp[:2]},
		{delay: 2 * time.Millisecond, data: resp[2:]},
	}}
	link := NewLink(port, Options{InterByteGap: 50 * time.Millisecond})

	got, err := link.ReceiveFrame(rego.ValueResponseSize, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("ReceiveFrame() error = %v", err)
	}
	if !bytes.Equal(got, resp) {
		t.Errorf("ReceiveFrame() = % X, want % X", got, resp)
	}
	if link.Stats().FramesRx != 1 {
		t.Errorf("FramesRx = %d", link.Stats().FramesRx)
	}
}

func TestReceiveFrameTimeout(t *testing.T) {
	link := NewLink(&MockPort{}, Options{InterByteGap: 5 * time.Millisecond})

	start := time.Now()
	_, err := link.ReceiveFrame(rego.ValueResponseSize, 30*time.Millisecond)
	elapsed := time.Since(start)

	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("ReceiveFrame() error = %v, want *TimeoutError", err)
	}
	if !te.Timeout() || !errors.Is(err, ErrTimeout) {
		t.Error("TimeoutError should report Timeout() and match ErrTimeout")
	}
	if elapsed > 200*time.Millisecond {
		t.Errorf("ReceiveFrame blocked %v, beyond its bound", elapsed)
	}
	if link.Stats().Timeouts != 1 {
		t.Errorf("Timeouts = %d", link.Stats().Timeouts)
	}
}

func TestReceiveFrameInterByteGap(t *testing.T) {
	resp := rego.EncodeValueResponse(215)
	port := &MockPort{chunks: []chunk{{data: resp[:3]}}}
	link := NewLink(port, Options{InterByteGap: 10 * time.Millisecond})

	got, err := link.ReceiveFrame(rego.ValueResponseSize, time.Second)
	if err != nil {
		t.Fatalf("ReceiveFrame() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want the 3 partial bytes", len(got))
	}

	var short *rego.FrameTooShortError
	if _, err := rego.DecodeValue(got); !errors.As(err, &short) {
		t.Errorf("DecodeValue() error = %v, want *FrameTooShortError", err)
	}
}

func TestReceiveFrameKeepsPartialAcrossCalls(t *testing.T) {
	resp := rego.EncodeValueResponse(42)
	port := &MockPort{chunks: []chunk{
		{data: resp[:2]},
		{delay: 25 * time.Millisecond, data: resp[2:]},
	}}
	link := NewLink(port, Options{InterByteGap: 100 * time.Millisecond})

	if _, err := link.ReceiveFrame(rego.ValueResponseSize, 10*time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Fatalf("first call error = %v, want timeout", err)
	}

	got, err := link.ReceiveFrame(rego.ValueResponseSize, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("second call error = %v", err)
	}
	if !bytes.Equal(got, resp) {
		t.Errorf("ReceiveFrame() = % X, want % X", got, resp)
	}
}

func TestSendFrameDropsStaleInput(t *testing.T) {
	resp := rego.EncodeValueResponse(1)
	port := &MockPort{chunks: []chunk{{data: resp[:2]}}}
	link := NewLink(port, Options{InterByteGap: 100 * time.Millisecond})

	if _, err := link.ReceiveFrame(rego.ValueResponseSize, 5*time.Millisecond); err == nil {
		t.Fatal("expected timeout with partial frame")
	}
	if err := link.SendFrame(rego.EncodeRequest(rego.CmdReadSystemRegister, 0, 0)); err != nil {
		t.Fatalf("SendFrame() error = %v", err)
	}
	if len(link.rx) != 0 {
		t.Errorf("stale bytes kept after SendFrame: % X", link.rx)
	}
}

func TestClosedLink(t *testing.T) {
	port := &MockPort{}
	link := NewLink(port, Options{})

	if err := link.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := link.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if !port.closed {
		t.Error("port not closed")
	}
	if link.IsConnected() {
		t.Error("IsConnected() after Close")
	}
	if err := link.SendFrame([]byte{1}); !errors.Is(err, ErrClosed) {
		t.Errorf("SendFrame() error = %v, want ErrClosed", err)
	}
	if _, err := link.ReceiveFrame(1, time.Millisecond); !errors.Is(err, ErrClosed) {
		t.Errorf("ReceiveFrame() error = %v, want ErrClosed", err)
	}
}
