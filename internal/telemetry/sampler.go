// Package telemetry periodically writes serial link diagnostics to InfluxDB.
//
// Only link and scheduler counters are recorded. Sensor values are not
// persisted.
package telemetry

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-rego6xx/internal/controller"
	"github.com/nerrad567/gray-logic-rego6xx/internal/infrastructure/influxdb"
)

// DefaultInterval is used when the configured interval is not positive.
const DefaultInterval = time.Minute

// StatsSource supplies the counters to sample. *controller.Controller satisfies it.
type StatsSource interface {
	Stats() controller.Stats
	LinkName() string
}

// PointWriter records a sample. *influxdb.Client satisfies it.
type PointWriter interface {
	WriteLinkSample(s influxdb.LinkSample, ts time.Time)
}

// Logger is the logging interface used by the Sampler.
type Logger interface {
	Debug(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}

// Options configures a Sampler.
type Options struct {
	BridgeID string
	Source   StatsSource
	Writer   PointWriter
	Interval time.Duration
	Logger   Logger

	// Clock returns the sample timestamp. Default: time.Now.
	Clock func() time.Time
}

// Sampler writes one LinkSample per interval.
type Sampler struct {
	bridgeID string
	source   StatsSource
	writer   PointWriter
	interval time.Duration
	logger   Logger
	now      func() time.Time
}

// NewSampler creates a sampler. Call Run to start sampling.
func NewSampler(opts Options) *Sampler {
	s := &Sampler{
		bridgeID: opts.BridgeID,
		source:   opts.Source,
		writer:   opts.Writer,
		interval: opts.Interval,
		logger:   opts.Logger,
		now:      opts.Clock,
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	if s.logger == nil {
		s.logger = noopLogger{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Sample builds a LinkSample from the current counters.
func (s *Sampler) Sample() influxdb.LinkSample {
	st := s.source.Stats()
	return influxdb.LinkSample{
		BridgeID:  s.bridgeID,
		Port:      s.source.LinkName(),
		FramesTx:  st.Link.FramesTx,
		FramesRx:  st.Link.FramesRx,
		BytesTx:   st.Link.BytesTx,
		BytesRx:   st.Link.BytesRx,
		Completed: st.Scheduler.Completed,
		Retries:   st.Scheduler.Retries,
		Exhausted: st.Scheduler.Exhausted,
		Failures:  st.Scheduler.Failures(),
		Timeouts:  st.Scheduler.Timeouts,
		Checksum:  st.Scheduler.ChecksumErrors,
		Connected: st.Link.Connected,
	}
}

// Run writes a sample every interval until ctx is cancelled, and once more
// on the way out so the last counters are not lost.
func (s *Sampler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.write()
			return nil
		case <-ticker.C:
			s.write()
		}
	}
}

func (s *Sampler) write() {
	sample := s.Sample()
	s.writer.WriteLinkSample(sample, s.now())
	s.logger.Debug("link sample written",
		"frames_tx", sample.FramesTx,
		"frames_rx", sample.FramesRx,
		"failures", sample.Failures,
	)
}
