package audit

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-rego6xx/internal/endpoint"
	"github.com/nerrad567/gray-logic-rego6xx/internal/scheduler"
)

// queueSize bounds entries waiting to be written. Entries beyond it are
// dropped so callers never block on SQLite.
const queueSize = 256

const writeTimeout = 5 * time.Second

// Logger is the logging interface used by the Recorder.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Recorder writes entries asynchronously through a single goroutine.
//
// Thread Safety:
//   - Record and RecordWrite are safe from any goroutine and never block.
type Recorder struct {
	repo    Repository
	queue   chan *Entry
	logger  Logger
	dropped atomic.Uint64
}

// NewRecorder creates a recorder. Call Run to start writing.
func NewRecorder(repo Repository, logger Logger) *Recorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Recorder{
		repo:   repo,
		queue:  make(chan *Entry, queueSize),
		logger: logger,
	}
}

// Record enqueues an entry, dropping it if the queue is full.
func (r *Recorder) Record(e Entry) {
	select {
	case r.queue <- &e:
	default:
		r.dropped.Add(1)
		r.logger.Warn("audit queue full, dropping entry",
			"endpoint_id", e.EndpointID,
			"status", e.Status,
		)
	}
}

// RecordWrite records the outcome of a write turn.
func (r *Recorder) RecordWrite(res scheduler.WriteResult) {
	e := Entry{
		Action:     ActionSet,
		EndpointID: res.ID,
		Source:     SourceController,
		Status:     StatusConfirmed,
		Attempts:   res.Attempts,
	}
	v := res.Value
	e.Value = &v
	if res.Kind == endpoint.KindButton {
		e.Action = ActionPress
	}
	if res.Err != nil {
		e.Status = StatusFailed
		e.Error = res.Err.Error()
	}
	r.Record(e)
}

// Dropped returns the number of entries lost to a full queue.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Run writes queued entries until ctx is cancelled, then drains the queue.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case e := <-r.queue:
			r.write(e)
		case <-ctx.Done():
			for {
				select {
				case e := <-r.queue:
					r.write(e)
				default:
					return nil
				}
			}
		}
	}
}

func (r *Recorder) write(e *Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := r.repo.Create(ctx, e); err != nil {
		r.logger.Error("audit write failed",
			"endpoint_id", e.EndpointID,
			"status", e.Status,
			"error", err,
		)
	}
}
