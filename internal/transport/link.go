package transport

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"

	"github.com/nerrad567/gray-logic-rego6xx/internal/infrastructure/config"
)

// Defaults for the Rego 6xx serial line.
const (
	// DefaultBaudRate is the only speed Rego 6xx controllers support.
	DefaultBaudRate = 19200

	// DefaultInterByteGap is the silence that ends a partially received frame.
	DefaultInterByteGap = 20 * time.Millisecond

	// minReadTimeout is the smallest read timeout the serial driver honours.
	minReadTimeout = time.Millisecond

	// readChunk bounds a single port read.
	readChunk = 64
)

// Port is the byte-stream device under a Link.
// go.bug.st/serial.Port and Simulator both satisfy it.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// Stats holds link counters. All fields are snapshots.
type Stats struct {
	FramesTx     uint64    `json:"frames_tx"`
	FramesRx     uint64    `json:"frames_rx"`
	BytesTx      uint64    `json:"bytes_tx"`
	BytesRx      uint64    `json:"bytes_rx"`
	Timeouts     uint64    `json:"timeouts"`
	Errors       uint64    `json:"errors"`
	LastActivity time.Time `json:"last_activity"`
	Connected    bool      `json:"connected"`
}

// Options configures a Link.
type Options struct {
	// Name identifies the link in logs and health messages.
	Name string

	// InterByteGap ends a frame early when no byte arrives for this long.
	// Default: 20ms.
	InterByteGap time.Duration
}

// Link frames byte-stream I/O for the Rego protocol.
//
// Thread Safety:
//   - SendFrame and ReceiveFrame must be called from a single goroutine
//     (the controller loop). Stats, IsConnected and Close are safe from any
//     goroutine.
type Link struct {
	port Port
	name string
	gap  time.Duration

	// rx holds bytes of a frame that has not completed yet.
	rx       []byte
	lastByte time.Time

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error

	framesTx     atomic.Uint64
	framesRx     atomic.Uint64
	bytesTx      atomic.Uint64
	bytesRx      atomic.Uint64
	timeouts     atomic.Uint64
	errorsTotal  atomic.Uint64
	lastActivity atomic.Int64
}

// NewLink wraps an already open port.
func NewLink(port Port, opts Options) *Link {
	gap := opts.InterByteGap
	if gap <= 0 {
		gap = DefaultInterByteGap
	}
	name := opts.Name
	if name == "" {
		name = "serial"
	}
	return &Link{
		port: port,
		name: name,
		gap:  gap,
	}
}

// Open opens the serial device described by cfg, or the in-memory
// simulator when cfg.Simulate is set.
//
// Parameters:
//   - cfg: Serial configuration from config.yaml
//
// Returns:
//   - *Link: Ready link
//   - error: ErrOpenFailed wrapping the driver error
func Open(cfg config.SerialConfig) (*Link, error) {
	opts := Options{Name: cfg.Device, InterByteGap: cfg.InterByteGap}

	if cfg.Simulate {
		opts.Name = "simulator"
		return NewLink(NewSimulator(), opts), nil
	}

	baud := cfg.BaudRate
	if baud <= 0 {
		baud = DefaultBaudRate
	}

	port, err := serial.Open(cfg.Device, &serial.Mode{
		BaudRate: baud,
		DataBits: 8, //nolint:mnd // 8N1
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpenFailed, cfg.Device, err)
	}

	return NewLink(port, opts), nil
}

// Name returns the device name.
func (l *Link) Name() string {
	return l.name
}

// SendFrame writes a complete frame. Stale input from an abandoned request
// is discarded first so it cannot be mistaken for the next response.
//
// Returns:
//   - error: *IOError if the port fails or accepts fewer bytes than given
func (l *Link) SendFrame(frame []byte) error {
	if l.closed.Load() {
		return ErrClosed
	}

	l.rx = l.rx[:0]
	if err := l.port.ResetInputBuffer(); err != nil {
		l.errorsTotal.Add(1)
		return &IOError{Op: "reset input", Err: err}
	}

	written := 0
	for written < len(frame) {
		n, err := l.port.Write(frame[written:])
		if err != nil {
			l.errorsTotal.Add(1)
			return &IOError{Op: "write", Err: err}
		}
		if n == 0 {
			l.errorsTotal.Add(1)
			return &IOError{Op: "write", Err: io.ErrShortWrite}
		}
		written += n
	}

	l.framesTx.Add(1)
	l.bytesTx.Add(uint64(written))
	l.touch()
	return nil
}

// ReceiveFrame reads until expectedLen bytes have arrived, the line goes
// quiet for longer than the inter-byte gap after at least one byte, or
// timeout elapses.
//
// A quiet line returns the short frame with a nil error so the codec can
// reject it. A timeout keeps any partial bytes for the next call, which lets
// the caller poll in short slices without losing data.
//
// Parameters:
//   - expectedLen: Size of the expected response frame
//   - timeout: Upper bound on how long this call may block
//
// Returns:
//   - []byte: Received frame (may be shorter than expectedLen, see above)
//   - error: *TimeoutError, *IOError or ErrClosed
func (l *Link) ReceiveFrame(expectedLen int, timeout time.Duration) ([]byte, error) {
	if l.closed.Load() {
		return nil, ErrClosed
	}

	start := time.Now()
	deadline := start.Add(timeout)
	var chunk [readChunk]byte

	for {
		if len(l.rx) >= expectedLen {
			return l.take(expectedLen), nil
		}

		now := time.Now()
		if len(l.rx) > 0 && now.Sub(l.lastByte) >= l.gap {
			return l.take(len(l.rx)), nil
		}

		remaining := deadline.Sub(now)
		if remaining <= 0 {
			l.timeouts.Add(1)
			return nil, &TimeoutError{Expected: expectedLen, Received: len(l.rx), After: now.Sub(start)}
		}

		wait := min(remaining, l.gap)
		if len(l.rx) > 0 {
			wait = min(wait, l.gap-now.Sub(l.lastByte))
		}
		wait = max(wait, minReadTimeout)

		if err := l.port.SetReadTimeout(wait); err != nil {
			l.errorsTotal.Add(1)
			return nil, &IOError{Op: "set read timeout", Err: err}
		}

		want := min(len(chunk), expectedLen-len(l.rx))
		n, err := l.port.Read(chunk[:want])
		if n > 0 {
			l.rx = append(l.rx, chunk[:n]...)
			l.lastByte = time.Now()
			l.bytesRx.Add(uint64(n))
		}
		if err != nil && !errors.Is(err, io.EOF) {
			l.errorsTotal.Add(1)
			return nil, &IOError{Op: "read", Err: err}
		}
	}
}

// take removes n bytes from the receive buffer.
func (l *Link) take(n int) []byte {
	frame := make([]byte, n)
	copy(frame, l.rx[:n])
	l.rx = append(l.rx[:0], l.rx[n:]...)
	l.framesRx.Add(1)
	l.touch()
	return frame
}

func (l *Link) touch() {
	l.lastActivity.Store(time.Now().UnixNano())
}

// Stats returns a snapshot of the link counters.
func (l *Link) Stats() Stats {
	s := Stats{
		FramesTx:  l.framesTx.Load(),
		FramesRx:  l.framesRx.Load(),
		BytesTx:   l.bytesTx.Load(),
		BytesRx:   l.bytesRx.Load(),
		Timeouts:  l.timeouts.Load(),
		Errors:    l.errorsTotal.Load(),
		Connected: l.IsConnected(),
	}
	if ns := l.lastActivity.Load(); ns != 0 {
		s.LastActivity = time.Unix(0, ns)
	}
	return s
}

// IsConnected reports whether the link is open.
func (l *Link) IsConnected() bool {
	return !l.closed.Load()
}

// Close closes the port. Safe to call more than once.
func (l *Link) Close() error {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		if err := l.port.Close(); err != nil {
			l.closeErr = fmt.Errorf("closing %s: %w", l.name, err)
		}
	})
	return l.closeErr
}
