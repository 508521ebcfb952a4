package bridge

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-rego6xx/internal/controller"
	"github.com/nerrad567/gray-logic-rego6xx/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-rego6xx/internal/scheduler"
	"github.com/nerrad567/gray-logic-rego6xx/internal/transport"
)

func TestNewHealthReporterDefaults(t *testing.T) {
	h := NewHealthReporter(HealthReporterConfig{Stats: &MockStats{}})
	if h.interval != DefaultHealthInterval {
		t.Errorf("interval = %v, want %v", h.interval, DefaultHealthInterval)
	}
}

func TestDetermineStatus(t *testing.T) {
	tests := []struct {
		name       string
		stats      controller.Stats
		mqttUp     bool
		wantStatus HealthStatus
	}{
		{
			name:       "healthy",
			stats:      connectedStats(),
			mqttUp:     true,
			wantStatus: HealthHealthy,
		},
		{
			name:       "link closed",
			stats:      controller.Stats{},
			mqttUp:     true,
			wantStatus: HealthUnhealthy,
		},
		{
			name:       "mqtt down",
			stats:      connectedStats(),
			mqttUp:     false,
			wantStatus: HealthDegraded,
		},
		{
			name: "exhausted requests",
			stats: controller.Stats{
				Link:      transport.Stats{Connected: true},
				Scheduler: scheduler.Stats{Exhausted: 2},
			},
			mqttUp:     true,
			wantStatus: HealthDegraded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMockMQTTClient()
			m.connected = tt.mqttUp
			h := NewHealthReporter(HealthReporterConfig{
				Publisher: m,
				Stats:     &MockStats{stats: tt.stats},
			})

			status, reason := h.determineStatus()
			if status != tt.wantStatus {
				t.Errorf("status = %s (%s), want %s", status, reason, tt.wantStatus)
			}
			if status != HealthHealthy && reason == "" {
				t.Error("non-healthy status without a reason")
			}
		})
	}
}

func TestExhaustedOnlyDegradesUntilNextReport(t *testing.T) {
	src := &MockStats{stats: connectedStats()}
	h := NewHealthReporter(HealthReporterConfig{Publisher: NewMockMQTTClient(), Stats: src})

	st := connectedStats()
	st.Scheduler.Exhausted = 1
	src.set(st)

	if status, _ := h.determineStatus(); status != HealthDegraded {
		t.Errorf("first report = %s, want degraded", status)
	}
	if status, _ := h.determineStatus(); status != HealthHealthy {
		t.Errorf("second report = %s, want healthy", status)
	}
}

func TestPublishNow(t *testing.T) {
	m := NewMockMQTTClient()
	st := connectedStats()
	st.Scheduler.Retries = 5
	st.Scheduler.Timeouts = 2
	st.Link.LastActivity = time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)

	h := NewHealthReporter(HealthReporterConfig{
		BridgeID:  "rego-001",
		Version:   "1.2.3",
		Publisher: m,
		Stats:     &MockStats{stats: st},
	})

	if err := h.PublishNow(); err != nil {
		t.Fatalf("PublishNow() error = %v", err)
	}

	pubs := m.GetPublished()
	if len(pubs) != 1 {
		t.Fatalf("published = %d, want 1", len(pubs))
	}
	p := pubs[0]
	if p.Topic != (mqtt.Topics{}).Health() || !p.Retained || p.QoS != 1 {
		t.Errorf("publish = %s qos=%d retained=%v", p.Topic, p.QoS, p.Retained)
	}

	var msg HealthMessage
	if err := json.Unmarshal(p.Payload, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Bridge != "rego-001" || msg.Version != "1.2.3" || msg.Status != HealthHealthy {
		t.Errorf("message = %+v", msg)
	}
	if msg.DevicesManaged != 3 {
		t.Errorf("DevicesManaged = %d, want 3", msg.DevicesManaged)
	}
	if msg.Connection == nil || msg.Connection.Status != "connected" || msg.Connection.Address != "/dev/ttyUSB0" {
		t.Errorf("Connection = %+v", msg.Connection)
	}
	if msg.Connection.LastActivity == nil || !msg.Connection.LastActivity.Equal(st.Link.LastActivity) {
		t.Errorf("LastActivity = %v", msg.Connection.LastActivity)
	}
	if msg.Statistics == nil || msg.Statistics.MessagesSent != 4 || msg.Statistics.Retries != 5 || msg.Statistics.Errors != 2 {
		t.Errorf("Statistics = %+v", msg.Statistics)
	}
}

func TestStopPublishesStoppingOnce(t *testing.T) {
	m := NewMockMQTTClient()
	h := NewHealthReporter(HealthReporterConfig{
		Publisher: m,
		Stats:     &MockStats{stats: connectedStats()},
		Interval:  time.Hour,
	})

	h.Stop()
	h.Stop()

	var stopping int
	for _, p := range m.GetPublished() {
		var msg HealthMessage
		if err := json.Unmarshal(p.Payload, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if msg.Status == HealthStopping {
			stopping++
		}
	}
	if stopping != 1 {
		t.Errorf("stopping messages = %d, want 1", stopping)
	}
}
