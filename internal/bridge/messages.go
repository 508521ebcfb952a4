package bridge

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-rego6xx/internal/endpoint"
	"github.com/nerrad567/gray-logic-rego6xx/internal/infrastructure/mqtt"
)

// MQTT message types exchanged between Gray Logic Core and the Rego bridge.

// Commands accepted on graylogic/command/rego6xx/{endpoint_id}.
const (
	// CommandSet writes Parameters["value"] to a number endpoint.
	CommandSet = "set"

	// CommandPress triggers a button endpoint.
	CommandPress = "press"
)

// ParamValue is the parameter key carrying the value of a set command.
const ParamValue = "value"

// CommandMessage is sent from Core to the bridge to change an endpoint.
// Topic: graylogic/command/rego6xx/{endpoint_id}
type CommandMessage struct {
	// ID uniquely identifies this command for correlation with acknowledgments.
	ID string `json:"id"`

	// Timestamp is when the command was issued (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// EndpointID is taken from the topic when empty.
	EndpointID string `json:"endpoint_id"`

	// Command is "set" or "press".
	Command string `json:"command"`

	// Parameters holds {"value": 22.5} for set.
	Parameters map[string]any `json:"parameters,omitempty"`

	// Source indicates where the command originated.
	Source string `json:"source"`

	UserID string `json:"user_id,omitempty"`
}

// AckStatus represents the acknowledgment status of a command.
type AckStatus string

const (
	// AckQueued indicates the value is stored and waits for the endpoint's turn.
	AckQueued AckStatus = "queued"

	// AckAccepted indicates the heat pump confirmed the write.
	AckAccepted AckStatus = "accepted"

	// AckFailed indicates the command could not be executed.
	AckFailed AckStatus = "failed"

	// AckTimeout indicates the write was abandoned after its retries.
	AckTimeout AckStatus = "timeout"
)

// AckMessage acknowledges a command.
// Topic: graylogic/ack/rego6xx/{endpoint_id}
type AckMessage struct {
	CommandID  string    `json:"command_id"`
	Timestamp  time.Time `json:"timestamp"`
	EndpointID string    `json:"endpoint_id"`
	Status     AckStatus `json:"status"`
	Protocol   string    `json:"protocol"`

	// Address is the register, formatted as 0x0000.
	Address string `json:"address,omitempty"`

	// Value is the value that will be or was written, after rounding.
	Value *float64 `json:"value,omitempty"`

	// Error contains details if status is "failed" or "timeout".
	Error *AckError `json:"error,omitempty"`
}

// AckError contains error details for failed commands.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Retries int    `json:"retries,omitempty"`
}

// Error codes for command failures.
const (
	ErrCodeDeviceUnreachable = "DEVICE_UNREACHABLE"
	ErrCodeInvalidCommand    = "INVALID_COMMAND"
	ErrCodeInvalidParameters = "INVALID_PARAMETERS"
	ErrCodeTimeout           = "TIMEOUT"
	ErrCodeNotConfigured     = "NOT_CONFIGURED"
	ErrCodeSuperseded        = "SUPERSEDED"
	ErrCodeBridgeError       = "BRIDGE_ERROR"
)

// StateMessage carries the latest value of an endpoint.
// Topic: graylogic/state/rego6xx/{endpoint_id}
// QoS: 1, Retained: Yes
type StateMessage struct {
	EndpointID string        `json:"endpoint_id"`
	Timestamp  time.Time     `json:"timestamp"`
	Kind       endpoint.Kind `json:"kind"`

	// Value is a float64, bool or string depending on Kind.
	Value any    `json:"value"`
	Raw   uint16 `json:"raw"`
	Unit  string `json:"unit,omitempty"`

	Protocol string `json:"protocol"`
	Address  string `json:"address"`
}

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
	HealthStarting  HealthStatus = "starting"
	HealthStopping  HealthStatus = "stopping"
)

// HealthMessage reports the bridge's operational status.
// Topic: graylogic/health/rego6xx
// QoS: 1, Retained: Yes
type HealthMessage struct {
	Bridge         string            `json:"bridge"`
	Timestamp      time.Time         `json:"timestamp"`
	Status         HealthStatus      `json:"status"`
	Version        string            `json:"version"`
	UptimeSeconds  int64             `json:"uptime_seconds"`
	Connection     *ConnectionStatus `json:"connection,omitempty"`
	Statistics     *BridgeStatistics `json:"statistics,omitempty"`
	DevicesManaged int               `json:"devices_managed"`
	Reason         string            `json:"reason,omitempty"`
}

// ConnectionStatus describes the serial link.
type ConnectionStatus struct {
	// Status is "connected" or "disconnected".
	Status string `json:"status"`

	// Address is the serial device or "simulator".
	Address string `json:"address"`

	LastActivity *time.Time `json:"last_activity,omitempty"`
}

// BridgeStatistics contains link counters.
type BridgeStatistics struct {
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	Retries          uint64 `json:"retries"`
	Errors           uint64 `json:"errors"`
}

// MarshalJSON marshals a CommandMessage with an RFC3339 timestamp.
func (m *CommandMessage) MarshalJSON() ([]byte, error) {
	type Alias CommandMessage
	return json.Marshal(&struct {
		*Alias
		Timestamp string `json:"timestamp"`
	}{
		Alias:     (*Alias)(m),
		Timestamp: m.Timestamp.UTC().Format(time.RFC3339),
	})
}

// UnmarshalJSON unmarshals a CommandMessage. The timestamp is optional.
func (m *CommandMessage) UnmarshalJSON(data []byte) error {
	type Alias CommandMessage
	aux := &struct {
		*Alias
		Timestamp string `json:"timestamp"`
	}{
		Alias: (*Alias)(m),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return fmt.Errorf("unmarshal command message: %w", err)
	}
	if aux.Timestamp != "" {
		t, err := time.Parse(time.RFC3339, aux.Timestamp)
		if err != nil {
			return fmt.Errorf("parse timestamp: %w", err)
		}
		m.Timestamp = t
	}
	return nil
}

// Value extracts the numeric "value" parameter of a set command.
// JSON numbers decode as float64; integers from Go callers are accepted too.
func (m *CommandMessage) Value() (float64, bool) {
	raw, ok := m.Parameters[ParamValue]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// FormatAddress renders a register address for messages.
func FormatAddress(addr uint16) string {
	return fmt.Sprintf("0x%04X", addr)
}

// NewAckMessage creates an acknowledgment for a command.
func NewAckMessage(cmd CommandMessage, status AckStatus, address string) AckMessage {
	return AckMessage{
		CommandID:  cmd.ID,
		Timestamp:  time.Now().UTC(),
		EndpointID: cmd.EndpointID,
		Status:     status,
		Protocol:   mqtt.Protocol,
		Address:    address,
	}
}

// NewAckError creates an acknowledgment with error details.
// ErrCodeTimeout maps to AckTimeout, every other code to AckFailed.
func NewAckError(cmd CommandMessage, address, code, message string, retries int) AckMessage {
	status := AckFailed
	if code == ErrCodeTimeout {
		status = AckTimeout
	}
	ack := NewAckMessage(cmd, status, address)
	ack.Error = &AckError{
		Code:    code,
		Message: message,
		Retries: retries,
	}
	return ack
}

// NewStateMessage creates a state message for an endpoint value.
func NewStateMessage(d endpoint.Descriptor, v endpoint.Value) StateMessage {
	return StateMessage{
		EndpointID: d.ID,
		Timestamp:  time.Now().UTC(),
		Kind:       d.Kind,
		Value:      v.Payload(),
		Raw:        v.Raw,
		Unit:       d.Unit,
		Protocol:   mqtt.Protocol,
		Address:    FormatAddress(d.Address),
	}
}

// NewHealthMessage creates a health status message from link statistics.
func NewHealthMessage(bridgeID, version string, status HealthStatus, port string, stats LinkStats, startTime time.Time) HealthMessage {
	msg := HealthMessage{
		Bridge:         bridgeID,
		Timestamp:      time.Now().UTC(),
		Status:         status,
		Version:        version,
		UptimeSeconds:  int64(time.Since(startTime).Seconds()),
		DevicesManaged: stats.Endpoints,
	}

	msg.Connection = &ConnectionStatus{
		Status:  "disconnected",
		Address: port,
	}
	if stats.Link.Connected {
		msg.Connection.Status = "connected"
	}
	if !stats.Link.LastActivity.IsZero() {
		last := stats.Link.LastActivity
		msg.Connection.LastActivity = &last
	}

	msg.Statistics = &BridgeStatistics{
		MessagesReceived: stats.Link.FramesRx,
		MessagesSent:     stats.Link.FramesTx,
		Retries:          stats.Scheduler.Retries,
		Errors:           stats.Scheduler.Failures() + stats.Link.Errors,
	}

	return msg
}
