package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/gray-logic-rego6xx/internal/controller"
)

// StatsSource supplies link and scheduler counters. *controller.Controller satisfies it.
type StatsSource interface {
	Stats() controller.Stats
	LinkName() string
}

// LinkCollector reports link and scheduler counters at scrape time.
type LinkCollector struct {
	source StatsSource

	framesTx  *prometheus.Desc
	framesRx  *prometheus.Desc
	bytesTx   *prometheus.Desc
	bytesRx   *prometheus.Desc
	requests  *prometheus.Desc
	retries   *prometheus.Desc
	exhausted *prometheus.Desc
	failures  *prometheus.Desc
	connected *prometheus.Desc
	endpoints *prometheus.Desc
}

// NewLinkCollector creates a collector. Register it with reg.MustRegister.
func NewLinkCollector(namespace string, source StatsSource) *LinkCollector {
	ns := namespaceOr(namespace)
	port := []string{"port"}
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(ns, "", name), help, labels, nil)
	}

	return &LinkCollector{
		source:    source,
		framesTx:  desc("link_frames_sent_total", "Request frames written to the serial link.", port...),
		framesRx:  desc("link_frames_received_total", "Response frames read from the serial link.", port...),
		bytesTx:   desc("link_bytes_sent_total", "Bytes written to the serial link.", port...),
		bytesRx:   desc("link_bytes_received_total", "Bytes read from the serial link.", port...),
		requests:  desc("scheduler_requests_total", "Completed requests by type.", "type"),
		retries:   desc("scheduler_retries_total", "Requests re-sent after a failure."),
		exhausted: desc("scheduler_exhausted_total", "Requests abandoned after the retry budget."),
		failures:  desc("scheduler_failures_total", "Failed attempts by reason.", "reason"),
		connected: desc("link_connected", "1 while the serial link is open.", port...),
		endpoints: desc("endpoints", "Registered endpoints."),
	}
}

// Describe implements prometheus.Collector.
func (c *LinkCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.framesTx, c.framesRx, c.bytesTx, c.bytesRx,
		c.requests, c.retries, c.exhausted, c.failures,
		c.connected, c.endpoints,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *LinkCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.source.Stats()
	port := c.source.LinkName()
	link, sched := st.Link, st.Scheduler

	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}

	counter(c.framesTx, link.FramesTx, port)
	counter(c.framesRx, link.FramesRx, port)
	counter(c.bytesTx, link.BytesTx, port)
	counter(c.bytesRx, link.BytesRx, port)

	counter(c.requests, sched.Reads, "read")
	counter(c.requests, sched.Writes, "write")
	counter(c.retries, sched.Retries)
	counter(c.exhausted, sched.Exhausted)

	counter(c.failures, sched.ChecksumErrors, "checksum")
	counter(c.failures, sched.ShortFrames, "short_frame")
	counter(c.failures, sched.AddressErrors, "address")
	counter(c.failures, sched.Timeouts, "timeout")
	counter(c.failures, sched.IOErrors, "io")

	connected := 0.0
	if link.Connected {
		connected = 1
	}
	ch <- prometheus.MustNewConstMetric(c.connected, prometheus.GaugeValue, connected, port)
	ch <- prometheus.MustNewConstMetric(c.endpoints, prometheus.GaugeValue, float64(st.Endpoints))
}
