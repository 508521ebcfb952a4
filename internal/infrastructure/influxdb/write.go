package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementLink is the measurement holding serial link diagnostics.
const MeasurementLink = "rego_link"

// LinkSample is one snapshot of link and scheduler counters.
type LinkSample struct {
	BridgeID string
	Port     string

	FramesTx  uint64
	FramesRx  uint64
	BytesTx   uint64
	BytesRx   uint64
	Completed uint64
	Retries   uint64
	Exhausted uint64
	Failures  uint64
	Timeouts  uint64
	Checksum  uint64
	Connected bool
}

// WriteLinkSample records a link snapshot. Non-blocking.
func (c *Client) WriteLinkSample(s LinkSample, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(NewLinkPoint(s, ts))
}

// WritePoint writes a point with explicit tags and fields. Non-blocking.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, ts))
}

// NewLinkPoint builds the point written by WriteLinkSample.
func NewLinkPoint(s LinkSample, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementLink,
		map[string]string{
			"bridge_id": s.BridgeID,
			"port":      s.Port,
		},
		map[string]any{
			"frames_tx":       s.FramesTx,
			"frames_rx":       s.FramesRx,
			"bytes_tx":        s.BytesTx,
			"bytes_rx":        s.BytesRx,
			"completed":       s.Completed,
			"retries":         s.Retries,
			"exhausted":       s.Exhausted,
			"failures":        s.Failures,
			"timeouts":        s.Timeouts,
			"checksum_errors": s.Checksum,
			"connected":       s.Connected,
		},
		ts,
	)
}
