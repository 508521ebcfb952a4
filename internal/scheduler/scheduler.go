package scheduler

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/nerrad567/gray-logic-rego6xx/internal/endpoint"
	"github.com/nerrad567/gray-logic-rego6xx/internal/rego"
)

// Link is the frame transport the scheduler drives.
// transport.Link satisfies it.
type Link interface {
	SendFrame(frame []byte) error
	ReceiveFrame(expectedLen int, timeout time.Duration) ([]byte, error)
}

// Logger defines the logging interface used by the Scheduler.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// State is the phase of the in-flight request.
type State int32

// Request states.
const (
	StateIdle State = iota
	StateSent
	StateAwaitingResponse
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSent:
		return "sent"
	case StateAwaitingResponse:
		return "awaiting_response"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// WriteResult reports the outcome of a write turn.
// Err is nil when the controller confirmed the write.
type WriteResult struct {
	ID       string
	Kind     endpoint.Kind
	Value    float64
	Attempts int
	Err      error
}

// Options configures a Scheduler.
type Options struct {
	Link     Link
	Registry *endpoint.Registry
	Config   Config
	Logger   Logger

	// OnWrite is called on the loop goroutine after every write turn.
	OnWrite func(WriteResult)

	// Clock returns the current time. Default: time.Now.
	Clock func() time.Time
}

// request is the single in-flight request.
type request struct {
	index    int
	desc     endpoint.Descriptor
	frame    []byte
	size     int
	write    bool
	pending  endpoint.PendingWrite
	attempts int
	deadline time.Time
	retryAt  time.Time
	backoff  time.Duration
}

// Scheduler services endpoints round-robin over one link, one request at a time.
//
// Thread Safety:
//   - Tick must only be called from one goroutine.
//   - Stats, State and Len are safe from any goroutine.
type Scheduler struct {
	link     Link
	registry *endpoint.Registry
	cfg      Config
	logger   Logger
	onWrite  func(WriteResult)
	now      func() time.Time
	limiter  *rate.Limiter

	endpoints []endpoint.Descriptor
	lastPoll  []time.Time
	next      int
	cur       *request

	state atomic.Int32
	stats counters
}

// New creates a scheduler over the endpoints of a sealed registry.
//
// Returns:
//   - *Scheduler: Ready to Tick
//   - error: ErrInvalidOptions or ErrRegistryNotSealed
func New(opts Options) (*Scheduler, error) {
	if opts.Link == nil || opts.Registry == nil {
		return nil, fmt.Errorf("%w: link and registry are required", ErrInvalidOptions)
	}
	if !opts.Registry.Sealed() {
		return nil, ErrRegistryNotSealed
	}

	cfg := opts.Config.withDefaults()

	s := &Scheduler{
		link:     opts.Link,
		registry: opts.Registry,
		cfg:      cfg,
		logger:   opts.Logger,
		onWrite:  opts.OnWrite,
		now:      opts.Clock,
	}
	if s.logger == nil {
		s.logger = noopLogger{}
	}
	if s.now == nil {
		s.now = time.Now
	}

	limit := rate.Inf
	if cfg.RequestPause > 0 {
		limit = rate.Every(cfg.RequestPause)
	}
	s.limiter = rate.NewLimiter(limit, 1)

	s.endpoints = opts.Registry.Endpoints()
	s.lastPoll = make([]time.Time, len(s.endpoints))

	return s, nil
}

// Len returns the number of endpoints in the queue.
func (s *Scheduler) Len() int {
	return len(s.endpoints)
}

// State returns the phase of the in-flight request.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

func (s *Scheduler) setState(st State) {
	s.state.Store(int32(st))
}

// Tick advances the state machine. It returns without I/O when there is
// nothing to do, and otherwise blocks for at most one poll quantum.
func (s *Scheduler) Tick() {
	if len(s.endpoints) == 0 {
		return
	}

	now := s.now()

	switch s.State() {
	case StateIdle, StateCompleted:
		if !s.start(now) {
			return
		}
	case StateFailed:
		if now.Before(s.cur.retryAt) {
			return
		}
		s.stats.retries.Add(1)
		if !s.transmit(now) {
			return
		}
	}

	if s.State() == StateAwaitingResponse {
		s.receive()
	}
}

// start picks the next due endpoint and sends its request.
// Endpoints that are not due are passed over without I/O.
func (s *Scheduler) start(now time.Time) bool {
	for range len(s.endpoints) {
		i := s.next
		d := s.endpoints[i]
		pw, hasPending := s.registry.Pending(d.ID)

		if s.due(i, d, hasPending, now) {
			if !s.limiter.AllowN(now, 1) {
				return false
			}
			s.cur = s.build(i, d, pw, hasPending)
			s.lastPoll[i] = now
			return s.transmit(now)
		}

		s.stats.skipped.Add(1)
		s.advance()
	}
	return false
}

func (s *Scheduler) due(i int, d endpoint.Descriptor, hasPending bool, now time.Time) bool {
	switch {
	case hasPending:
		return true
	case d.Kind == endpoint.KindButton:
		return false
	case s.lastPoll[i].IsZero(), d.UpdateInterval == 0:
		return true
	default:
		return now.Sub(s.lastPoll[i]) >= d.UpdateInterval
	}
}

func (s *Scheduler) build(i int, d endpoint.Descriptor, pw endpoint.PendingWrite, write bool) *request {
	r := &request{
		index:   i,
		desc:    d,
		write:   write,
		pending: pw,
		backoff: s.cfg.RetryBackoff,
	}

	switch {
	case write:
		r.frame = rego.EncodeRequest(d.WriteCommand, d.Address, pw.Raw)
		r.size = rego.ConfirmResponseSize
	case d.Decode.IsText():
		r.frame = rego.EncodeRequest(d.Command, d.Address, 0)
		r.size = rego.TextResponseSize
	default:
		r.frame = rego.EncodeRequest(d.Command, d.Address, 0)
		r.size = rego.ValueResponseSize
	}
	return r
}

// transmit sends the current request, first attempt or retry.
func (s *Scheduler) transmit(now time.Time) bool {
	s.setState(StateSent)

	if err := s.link.SendFrame(s.cur.frame); err != nil {
		s.fail(err)
		return false
	}

	s.cur.deadline = now.Add(s.cfg.ResponseTimeout)
	s.setState(StateAwaitingResponse)
	return true
}

// receive waits for the response, bounded by the quantum and the deadline.
func (s *Scheduler) receive() {
	wait := min(s.cfg.PollQuantum, s.cur.deadline.Sub(s.now()))
	if wait <= 0 {
		s.fail(&deadlineError{after: s.cfg.ResponseTimeout})
		return
	}

	frame, err := s.link.ReceiveFrame(s.cur.size, wait)
	if err != nil {
		if isTimeout(err) && s.now().Before(s.cur.deadline) {
			return
		}
		s.fail(err)
		return
	}

	if err := s.complete(frame); err != nil {
		s.fail(err)
	}
}

// complete decodes the response and publishes the result.
func (s *Scheduler) complete(frame []byte) error {
	r := s.cur

	if r.write {
		if err := rego.DecodeConfirm(frame); err != nil {
			return err
		}
		s.registry.ClearPending(r.desc.ID, r.pending)
		s.stats.writes.Add(1)

		if r.desc.Kind == endpoint.KindNumber {
			s.publish(r.desc.ID, endpoint.NumberValue(endpoint.KindNumber, r.pending.Value, r.pending.Raw))
		}
		s.logger.Info("write confirmed", "id", r.desc.ID, "value", r.pending.Value, "attempts", r.attempts+1)
		s.notifyWrite(nil, r.attempts+1)
	} else {
		v, err := decode(r.desc, frame)
		if err != nil {
			return err
		}
		s.stats.reads.Add(1)
		s.publish(r.desc.ID, v)
	}

	s.stats.completed.Add(1)
	s.finish()
	s.setState(StateCompleted)
	return nil
}

// fail counts a failed attempt and either schedules a retry or gives up.
func (s *Scheduler) fail(err error) {
	r := s.cur
	r.attempts++
	s.stats.count(err)

	if r.attempts <= s.cfg.MaxRetries {
		r.retryAt = s.now().Add(r.backoff)
		r.backoff = min(time.Duration(float64(r.backoff)*backoffFactor), s.cfg.MaxRetryBackoff)
		s.setState(StateFailed)

		s.logger.Debug("request failed, retrying",
			"id", r.desc.ID,
			"attempt", r.attempts,
			"error", err,
		)
		return
	}

	exhausted := &RetriesExhaustedError{ID: r.desc.ID, Attempts: r.attempts, Last: err}
	s.stats.exhausted.Add(1)
	s.logger.Warn("request abandoned", "id", r.desc.ID, "error", exhausted)

	if r.write {
		s.notifyWrite(exhausted, r.attempts)
	}

	s.finish()
	s.setState(StateIdle)
}

// finish moves the serviced endpoint to the back of the queue.
func (s *Scheduler) finish() {
	s.next = s.cur.index
	s.advance()
	s.cur = nil
}

func (s *Scheduler) advance() {
	s.next++
	if s.next >= len(s.endpoints) {
		s.next = 0
		s.stats.sweeps.Add(1)
	}
}

func (s *Scheduler) publish(id string, v endpoint.Value) {
	if err := s.registry.Publish(id, v); err != nil {
		s.logger.Error("publish failed", "id", id, "error", err)
	}
}

func (s *Scheduler) notifyWrite(err error, attempts int) {
	if s.onWrite == nil {
		return
	}
	s.onWrite(WriteResult{
		ID:       s.cur.desc.ID,
		Kind:     s.cur.desc.Kind,
		Value:    s.cur.pending.Value,
		Attempts: attempts,
		Err:      err,
	})
}

// decode turns a response frame into a Value using the endpoint's rule.
func decode(d endpoint.Descriptor, frame []byte) (endpoint.Value, error) {
	switch d.Decode {
	case endpoint.DecodeDisplay:
		text, err := rego.DecodeText(frame)
		if err != nil {
			return endpoint.Value{}, err
		}
		return endpoint.TextValue(text), nil

	case endpoint.DecodeErrorLog:
		entry, err := rego.DecodeErrorLog(frame)
		if err != nil {
			return endpoint.Value{}, err
		}
		return endpoint.TextValue(entry.String()), nil
	}

	raw, err := rego.DecodeValue(frame)
	if err != nil {
		return endpoint.Value{}, err
	}

	switch d.Decode {
	case endpoint.DecodeBool:
		return endpoint.BoolValue(rego.ToBool(raw), raw), nil
	case endpoint.DecodeRaw:
		return endpoint.NumberValue(d.Kind, float64(raw), raw), nil
	default:
		return endpoint.NumberValue(d.Kind, rego.ToFloat(raw), raw), nil
	}
}

// deadlineError is raised when the response deadline passes between ticks.
type deadlineError struct {
	after time.Duration
}

func (e *deadlineError) Error() string {
	return fmt.Sprintf("scheduler: no response within %v", e.after)
}

func (e *deadlineError) Timeout() bool { return true }

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
