package transport

import (
	"errors"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-rego6xx/internal/rego"
)

// Fault selects how the simulator mangles a response.
type Fault int

const (
	// FaultDrop swallows the response entirely.
	FaultDrop Fault = iota

	// FaultCorrupt flips a bit in the checksum byte.
	FaultCorrupt

	// FaultWrongAddress replaces the host address byte.
	FaultWrongAddress

	// FaultTruncate sends only the first byte.
	FaultTruncate
)

var errSimulatorClosed = errors.New("transport: simulator closed")

// simVersion is what a Rego 600 reports for CmdReadRegoVersion.
const simVersion = 600

type simKey struct {
	cmd  rego.Command
	addr uint16
}

type simError struct {
	id        byte
	timestamp string
}

// Simulator is an in-memory Rego 600 that answers requests written to it.
// It implements Port and is used for hardware-free runs and tests.
type Simulator struct {
	mu          sync.Mutex
	readTimeout time.Duration
	in          []byte
	out         []byte
	ready       chan struct{}
	closed      bool

	registers map[simKey]uint16
	display   [rego.DisplayRows]string
	lastErr   simError
	prevErr   simError

	faults   []Fault
	requests []rego.Request
}

// NewSimulator returns a simulator seeded with plausible heat-pump values.
func NewSimulator() *Simulator {
	s := &Simulator{
		ready:     make(chan struct{}, 1),
		registers: make(map[simKey]uint16),
		lastErr:   simError{id: rego.NoError},
		prevErr:   simError{id: rego.NoError},
	}

	seed := map[uint16]float64{
		rego.RegGT1:       30.2,
		rego.RegGT2:       -3.5,
		rego.RegGT3:       48.0,
		rego.RegGT4:       32.1,
		rego.RegGT5:       21.0,
		rego.RegGT6:       61.4,
		rego.RegGT8:       35.0,
		rego.RegGT9:       29.8,
		rego.RegGT10:      1.2,
		rego.RegGT11:      -1.9,
		rego.RegGT3X:      47.5,
		rego.RegGT1Target: 31.0,
		rego.RegGT3Target: 50.0,
		rego.RegHeatCurve: 4.0,
	}
	for addr, v := range seed {
		s.registers[simKey{rego.CmdReadSystemRegister, addr}] = rego.FromFloat(v)
	}
	s.registers[simKey{rego.CmdReadSystemRegister, rego.RegCompressor}] = 1
	s.registers[simKey{rego.CmdReadSystemRegister, rego.RegRadiatorPumpP1}] = 1
	s.registers[simKey{rego.CmdReadFrontPanel, rego.PanelLEDPower}] = 1

	s.display = [rego.DisplayRows]string{
		"IVT Greenline",
		"Heat pump running",
		"GT1 30.2 GT3 48.0",
		"",
	}

	return s
}

// SetRegister sets the raw value answered for a read command and address.
func (s *Simulator) SetRegister(cmd rego.Command, addr, raw uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registers[simKey{cmd, addr}] = raw
}

// Register returns the raw value stored for a read command and address.
func (s *Simulator) Register(cmd rego.Command, addr uint16) uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registers[simKey{cmd, addr}]
}

// SetDisplay sets the text of a display row.
func (s *Simulator) SetDisplay(row int, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row >= 0 && row < rego.DisplayRows {
		s.display[row] = text
	}
}

// RaiseError pushes a new entry into the error log.
func (s *Simulator) RaiseError(id byte, timestamp string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prevErr = s.lastErr
	s.lastErr = simError{id: id, timestamp: timestamp}
}

// InjectFaults queues faults applied to the next responses, one per response.
func (s *Simulator) InjectFaults(faults ...Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, faults...)
}

// Requests returns every request received so far.
func (s *Simulator) Requests() []rego.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]rego.Request(nil), s.requests...)
}

// Write accepts request bytes and queues the matching responses.
func (s *Simulator) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, errSimulatorClosed
	}

	s.in = append(s.in, p...)
	for len(s.in) >= rego.RequestSize {
		req, err := rego.ParseRequest(s.in[:rego.RequestSize])
		if err != nil {
			// Resynchronise on the next byte, as the controller would.
			s.in = s.in[1:]
			continue
		}
		s.in = s.in[rego.RequestSize:]
		s.requests = append(s.requests, req)
		s.respond(s.apply(s.answer(req)))
	}

	return len(p), nil
}

// answer computes the response for req. Caller holds mu.
func (s *Simulator) answer(req rego.Request) []byte {
	switch req.Command {
	case rego.CmdWriteFrontPanel, rego.CmdWriteSystemRegister, rego.CmdWriteTimerRegister, rego.CmdWriteRegister1B61:
		s.registers[simKey{req.Command - 1, req.Address}] = req.Data
		return rego.EncodeConfirmResponse()
	case rego.CmdReadDisplay:
		row := ""
		if int(req.Address) < rego.DisplayRows {
			row = s.display[req.Address]
		}
		return rego.EncodeTextResponse(row)
	case rego.CmdReadLastError:
		return rego.EncodeErrorLogResponse(s.lastErr.id, s.lastErr.timestamp)
	case rego.CmdReadPreviousError:
		return rego.EncodeErrorLogResponse(s.prevErr.id, s.prevErr.timestamp)
	case rego.CmdReadRegoVersion:
		return rego.EncodeValueResponse(simVersion)
	default:
		return rego.EncodeValueResponse(s.registers[simKey{req.Command, req.Address}])
	}
}

// apply mangles frame with the next queued fault. Caller holds mu.
func (s *Simulator) apply(frame []byte) []byte {
	if len(s.faults) == 0 {
		return frame
	}
	fault := s.faults[0]
	s.faults = s.faults[1:]

	switch fault {
	case FaultDrop:
		return nil
	case FaultCorrupt:
		frame[len(frame)-1] ^= 0x01
	case FaultWrongAddress:
		frame[0] = rego.AddrHeatPump
	case FaultTruncate:
		frame = frame[:1]
	}
	return frame
}

// respond queues bytes for Read. Caller holds mu.
func (s *Simulator) respond(frame []byte) {
	if len(frame) == 0 {
		return
	}
	s.out = append(s.out, frame...)
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// Read returns queued response bytes, waiting up to the read timeout.
func (s *Simulator) Read(p []byte) (int, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, errSimulatorClosed
	}
	if len(s.out) == 0 {
		timeout := s.readTimeout
		s.mu.Unlock()

		if timeout > 0 {
			timer := time.NewTimer(timeout)
			select {
			case <-s.ready:
			case <-timer.C:
			}
			timer.Stop()
		} else {
			<-s.ready
		}

		s.mu.Lock()
	}
	n := copy(p, s.out)
	s.out = s.out[n:]
	s.mu.Unlock()
	return n, nil
}

// SetReadTimeout sets how long Read waits for data. Non-positive blocks.
func (s *Simulator) SetReadTimeout(t time.Duration) error {
	s.mu.Lock()
	s.readTimeout = t
	s.mu.Unlock()
	return nil
}

// ResetInputBuffer drops unread response bytes.
func (s *Simulator) ResetInputBuffer() error {
	s.mu.Lock()
	s.out = nil
	s.mu.Unlock()
	return nil
}

// Close stops the simulator.
func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ready)
	}
	return nil
}
