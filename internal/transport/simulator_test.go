package transport

import (
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-rego6xx/internal/rego"
)

const simTimeout = 200 * time.Millisecond

func newSimLink(t *testing.T) (*Link, *Simulator) {
	t.Helper()
	sim := NewSimulator()
	link := NewLink(sim, Options{Name: "sim"})
	t.Cleanup(func() { link.Close() })
	return link, sim
}

func roundTrip(t *testing.T, link *Link, req []byte, size int) []byte {
	t.Helper()
	if err := link.SendFrame(req); err != nil {
		t.Fatalf("SendFrame() error = %v", err)
	}
	frame, err := link.ReceiveFrame(size, simTimeout)
	if err != nil {
		t.Fatalf("ReceiveFrame() error = %v", err)
	}
	return frame
}

func TestSimulatorReadRegister(t *testing.T) {
	link, sim := newSimLink(t)
	sim.SetRegister(rego.CmdReadSystemRegister, 0x0020, 215)

	frame := roundTrip(t, link, rego.EncodeRequest(rego.CmdReadSystemRegister, 0x0020, 0), rego.ValueResponseSize)
	raw, err := rego.DecodeValue(frame)
	if err != nil {
		t.Fatalf("DecodeValue() error = %v", err)
	}
	if got := rego.ToFloat(raw); got != 21.5 {
		t.Errorf("value = %v, want 21.5", got)
	}
}

func TestSimulatorWriteThenRead(t *testing.T) {
	link, sim := newSimLink(t)

	frame := roundTrip(t, link, rego.EncodeWrite(rego.CmdWriteSystemRegister, rego.RegGT1Target, 24.5), rego.ConfirmResponseSize)
	if err := rego.DecodeConfirm(frame); err != nil {
		t.Fatalf("DecodeConfirm() error = %v", err)
	}
	if got := sim.Register(rego.CmdReadSystemRegister, rego.RegGT1Target); rego.ToFloat(got) != 24.5 {
		t.Errorf("register = %v, want 24.5", rego.ToFloat(got))
	}
}

func TestSimulatorDisplayAndErrors(t *testing.T) {
	link, sim := newSimLink(t)
	sim.SetDisplay(1, "Hot water")
	sim.RaiseError(21, "250301 07:00:00")

	text, err := rego.DecodeText(roundTrip(t, link, rego.EncodeRequest(rego.CmdReadDisplay, 1, 0), rego.TextResponseSize))
	if err != nil || text != "Hot water" {
		t.Errorf("display row = %q, %v", text, err)
	}

	entry, err := rego.DecodeErrorLog(roundTrip(t, link, rego.EncodeRequest(rego.CmdReadLastError, 0, 0), rego.TextResponseSize))
	if err != nil {
		t.Fatalf("DecodeErrorLog() error = %v", err)
	}
	if entry.Description != "Power failure" {
		t.Errorf("Description = %q", entry.Description)
	}

	raw, err := rego.DecodeValue(roundTrip(t, link, rego.EncodeRequest(rego.CmdReadRegoVersion, 0, 0), rego.ValueResponseSize))
	if err != nil || raw != 600 {
		t.Errorf("version = %d, %v", raw, err)
	}
}

func TestSimulatorFaults(t *testing.T) {
	link, sim := newSimLink(t)
	req := rego.EncodeRequest(rego.CmdReadSystemRegister, rego.RegGT2, 0)

	sim.InjectFaults(FaultDrop)
	if err := link.SendFrame(req); err != nil {
		t.Fatal(err)
	}
	if _, err := link.ReceiveFrame(rego.ValueResponseSize, 30*time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Errorf("dropped response: error = %v, want timeout", err)
	}

	sim.InjectFaults(FaultCorrupt)
	var ce *rego.ChecksumError
	if _, err := rego.DecodeValue(roundTrip(t, link, req, rego.ValueResponseSize)); !errors.As(err, &ce) {
		t.Errorf("corrupt response: error = %v", err)
	}

	sim.InjectFaults(FaultWrongAddress)
	var ae *rego.UnexpectedAddressError
	if _, err := rego.DecodeValue(roundTrip(t, link, req, rego.ValueResponseSize)); !errors.As(err, &ae) {
		t.Errorf("wrong address: error = %v", err)
	}

	if n := len(sim.Requests()); n != 3 {
		t.Errorf("requests = %d, want 3", n)
	}
}
