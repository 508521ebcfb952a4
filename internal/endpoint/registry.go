package endpoint

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-rego6xx/internal/rego"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// entry is the mutable state kept per endpoint.
type entry struct {
	desc Descriptor

	value     Value
	hasValue  bool
	updatedAt time.Time

	pending    PendingWrite
	hasPending bool
}

// Registry holds the endpoints multiplexed over one serial link.
//
// Endpoints are registered during setup and the registry is then sealed;
// the set and order never change afterwards. Last values and pending writes
// are guarded by a mutex because MQTT and HTTP handlers call SetPendingWrite
// from their own goroutines.
//
// All public methods are thread-safe.
type Registry struct {
	mu      sync.RWMutex
	order   []*entry
	byID    map[string]*entry
	sealed  bool
	seq     uint64
	pub     Publisher
	logger  Logger
	nowFunc func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:    make(map[string]*entry),
		pub:     noopPublisher{},
		logger:  noopLogger{},
		nowFunc: time.Now,
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetPublisher sets where published values go. Use Publishers to fan out.
func (r *Registry) SetPublisher(p Publisher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p == nil {
		p = noopPublisher{}
	}
	r.pub = p
}

// Register validates d and appends it to the service order.
func (r *Registry) Register(d Descriptor) error {
	if err := ValidateDescriptor(&d); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("%w: %s", ErrRegistrySealed, d.ID)
	}
	if _, exists := r.byID[d.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, d.ID)
	}

	e := &entry{desc: d}
	r.order = append(r.order, e)
	r.byID[d.ID] = e

	r.logger.Debug("endpoint registered",
		"id", d.ID,
		"kind", d.Kind,
		"command", d.Command.String(),
		"address", fmt.Sprintf("0x%04X", d.Address),
	)
	return nil
}

// RegisterSensor registers a read-only numeric sensor.
func (r *Registry) RegisterSensor(d Descriptor) error {
	d.Kind = KindSensor
	return r.Register(d)
}

// RegisterBinarySensor registers a read-only on/off sensor.
func (r *Registry) RegisterBinarySensor(d Descriptor) error {
	d.Kind = KindBinarySensor
	return r.Register(d)
}

// RegisterNumber registers a read/write set-point.
func (r *Registry) RegisterNumber(d Descriptor) error {
	d.Kind = KindNumber
	return r.Register(d)
}

// RegisterTextSensor registers a display row or error log reader.
func (r *Registry) RegisterTextSensor(d Descriptor) error {
	d.Kind = KindTextSensor
	return r.Register(d)
}

// RegisterButton registers a write-only front-panel button.
func (r *Registry) RegisterButton(d Descriptor) error {
	d.Kind = KindButton
	return r.Register(d)
}

// Seal closes registration.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Len returns the number of registered endpoints.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Endpoints returns all descriptors in registration order.
func (r *Registry) Endpoints() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, len(r.order))
	for i, e := range r.order {
		out[i] = e.desc
	}
	return out
}

// Descriptor returns the descriptor for id.
func (r *Registry) Descriptor(id string) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byID[id]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrUnknownEndpoint, id)
	}
	return e.desc, nil
}

// Get returns the current state of id.
func (r *Registry) Get(id string) (State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byID[id]
	if !ok {
		return State{}, fmt.Errorf("%w: %s", ErrUnknownEndpoint, id)
	}
	return e.state(), nil
}

// Snapshot returns the state of every endpoint in registration order.
func (r *Registry) Snapshot() []State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]State, len(r.order))
	for i, e := range r.order {
		out[i] = e.state()
	}
	return out
}

func (e *entry) state() State {
	s := State{Descriptor: e.desc}
	if e.hasValue {
		v := e.value
		at := e.updatedAt
		s.Value = &v
		s.UpdatedAt = &at
	}
	if e.hasPending {
		p := e.pending.Value
		s.Pending = &p
	}
	return s
}

// Publish stores v as the latest value of id and forwards it to the publisher.
// The publisher is called outside the lock.
func (r *Registry) Publish(id string, v Value) error {
	r.mu.Lock()
	e, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownEndpoint, id)
	}
	e.value = v
	e.hasValue = true
	e.updatedAt = r.nowFunc()
	desc := e.desc
	pub := r.pub
	r.mu.Unlock()

	pub.Publish(desc, v)
	return nil
}

// SetPendingWrite queues a new value for a number endpoint.
//
// The value is checked against [Min, Max] and rounded to the nearest
// multiple of Step. A newer call replaces a value not yet transmitted.
//
// Parameters:
//   - id: Endpoint ID
//   - value: Requested value in physical units
//
// Returns:
//   - float64: The value that will be written after rounding
//   - error: *OutOfRangeError, ErrUnknownEndpoint or ErrNotWritable.
//     On error any previous pending value is left untouched.
func (r *Registry) SetPendingWrite(id string, value float64) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownEndpoint, id)
	}
	if e.desc.Kind != KindNumber {
		return 0, fmt.Errorf("%w: %s is a %s", ErrNotWritable, id, e.desc.Kind)
	}

	q, err := Quantize(e.desc, value)
	if err != nil {
		return 0, err
	}

	r.seq++
	e.pending = PendingWrite{Value: q, Raw: encodeNumber(e.desc, q), Seq: r.seq}
	e.hasPending = true

	r.logger.Debug("pending write set", "id", id, "requested", value, "value", q)
	return q, nil
}

// encodeNumber is the register value carrying v, the inverse of how the
// descriptor's decode rule reads it.
func encodeNumber(d Descriptor, v float64) uint16 {
	if d.Decode == DecodeRaw {
		return uint16(math.Round(v))
	}
	return rego.FromFloat(v)
}

// Press queues the fixed value of a button endpoint.
func (r *Registry) Press(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEndpoint, id)
	}
	if e.desc.Kind != KindButton {
		return fmt.Errorf("%w: %s is a %s", ErrNotWritable, id, e.desc.Kind)
	}

	r.seq++
	e.pending = PendingWrite{Value: float64(e.desc.ButtonValue), Raw: e.desc.ButtonValue, Seq: r.seq}
	e.hasPending = true

	r.logger.Debug("button pressed", "id", id)
	return nil
}

// Pending returns the queued write for id, if any.
func (r *Registry) Pending(id string) (PendingWrite, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byID[id]
	if !ok || !e.hasPending {
		return PendingWrite{}, false
	}
	return e.pending, true
}

// ClearPending removes the pending write of id if it is still w.
// Returns false when a newer value replaced w while it was in flight.
func (r *Registry) ClearPending(id string, w PendingWrite) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok || !e.hasPending || e.pending.Seq != w.Seq {
		return false
	}
	e.hasPending = false
	e.pending = PendingWrite{}
	return true
}
