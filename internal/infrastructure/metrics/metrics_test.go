package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nerrad567/gray-logic-rego6xx/internal/controller"
	"github.com/nerrad567/gray-logic-rego6xx/internal/endpoint"
	"github.com/nerrad567/gray-logic-rego6xx/internal/scheduler"
	"github.com/nerrad567/gray-logic-rego6xx/internal/transport"
)

type fakeSource struct {
	stats controller.Stats
}

func (f *fakeSource) Stats() controller.Stats { return f.stats }
func (f *fakeSource) LinkName() string        { return "sim" }

func TestLinkCollector(t *testing.T) {
	src := &fakeSource{stats: controller.Stats{
		Link:      transport.Stats{FramesTx: 7, FramesRx: 6, BytesTx: 63, BytesRx: 30, Connected: true},
		Scheduler: scheduler.Stats{Reads: 5, Writes: 1, Retries: 2, Timeouts: 1, ChecksumErrors: 1},
		Endpoints: 3,
	}}
	c := NewLinkCollector("", src)

	want := `
# HELP rego_link_frames_sent_total Request frames written to the serial link.
# TYPE rego_link_frames_sent_total counter
rego_link_frames_sent_total{port="sim"} 7
# HELP rego_scheduler_requests_total Completed requests by type.
# TYPE rego_scheduler_requests_total counter
rego_scheduler_requests_total{type="read"} 5
rego_scheduler_requests_total{type="write"} 1
# HELP rego_scheduler_failures_total Failed attempts by reason.
# TYPE rego_scheduler_failures_total counter
rego_scheduler_failures_total{reason="address"} 0
rego_scheduler_failures_total{reason="checksum"} 1
rego_scheduler_failures_total{reason="io"} 0
rego_scheduler_failures_total{reason="short_frame"} 0
rego_scheduler_failures_total{reason="timeout"} 1
# HELP rego_link_connected 1 while the serial link is open.
# TYPE rego_link_connected gauge
rego_link_connected{port="sim"} 1
# HELP rego_endpoints Registered endpoints.
# TYPE rego_endpoints gauge
rego_endpoints 3
`
	err := testutil.CollectAndCompare(c, strings.NewReader(want),
		"rego_link_frames_sent_total",
		"rego_scheduler_requests_total",
		"rego_scheduler_failures_total",
		"rego_link_connected",
		"rego_endpoints",
	)
	if err != nil {
		t.Error(err)
	}

	if n := testutil.CollectAndCount(c); n != 16 {
		t.Errorf("collected %d metrics, want 16", n)
	}
}

func TestEndpointGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	g := NewEndpointGauges("heatpump", reg)

	gt1 := endpoint.Descriptor{ID: "gt1", Kind: endpoint.KindSensor, Unit: "°C"}
	p1 := endpoint.Descriptor{ID: "p1", Kind: endpoint.KindBinarySensor}
	row := endpoint.Descriptor{ID: "row0", Kind: endpoint.KindTextSensor}

	g.Publish(gt1, endpoint.NumberValue(endpoint.KindSensor, 30.2, 302))
	g.Publish(gt1, endpoint.NumberValue(endpoint.KindSensor, 30.4, 304))
	g.Publish(p1, endpoint.BoolValue(true, 1))
	g.Publish(row, endpoint.TextValue("IVT Greenline"))

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"gt1 value", testutil.ToFloat64(g.values.WithLabelValues("gt1", "sensor", "°C")), 30.4},
		{"p1 value", testutil.ToFloat64(g.values.WithLabelValues("p1", "binary_sensor", "")), 1},
		{"gt1 updates", testutil.ToFloat64(g.updates.WithLabelValues("gt1")), 2},
		{"row0 updates", testutil.ToFloat64(g.updates.WithLabelValues("row0")), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}

	// Text endpoints get no value series.
	if n := testutil.CollectAndCount(g.values); n != 2 {
		t.Errorf("value series = %d, want 2", n)
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(NewLinkCollector("rego", &fakeSource{}))

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	for _, name := range []string{"rego_link_connected", "go_goroutines", "rego_scheduler_retries_total"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("exposition missing %s", name)
		}
	}
}
