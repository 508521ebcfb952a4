package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-rego6xx/internal/audit"
	"github.com/nerrad567/gray-logic-rego6xx/internal/endpoint"
	"github.com/nerrad567/gray-logic-rego6xx/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-rego6xx/internal/scheduler"
)

// Bridge translates between MQTT and the endpoint registry.
// It handles:
//   - Receiving set and press commands and storing them as pending writes
//   - Publishing retained state whenever an endpoint value changes
//   - Acknowledging commands once the controller reports the write outcome
//   - Health reporting and graceful shutdown
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	bridgeID string
	mqtt     MQTTClient
	registry Registry
	audit    AuditRecorder
	health   *HealthReporter
	topics   mqtt.Topics

	// Commands waiting for a write result, by endpoint ID. inflightMu is
	// also held while a write is queued.
	inflight   map[string]trackedCommand
	inflightMu sync.Mutex

	// State cache for change detection
	stateCache   map[string]endpoint.Value
	stateCacheMu sync.Mutex

	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// trackedCommand is a queued command and the rounded value it will write.
type trackedCommand struct {
	cmd     CommandMessage
	value   float64
	address string
}

// MQTTClient is the subset of *mqtt.Client used by the bridge.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	IsConnected() bool
}

// Registry is the subset of *endpoint.Registry used for commands.
type Registry interface {
	Descriptor(id string) (endpoint.Descriptor, error)
	SetPendingWrite(id string, value float64) (float64, error)
	Press(id string) error
}

// AuditRecorder records accepted and rejected commands.
// *audit.Recorder satisfies it. Optional.
type AuditRecorder interface {
	Record(e audit.Entry)
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Options holds configuration for creating a bridge.
type Options struct {
	// BridgeID identifies this bridge in health messages.
	BridgeID string

	// Version is reported in health messages.
	Version string

	// HealthInterval defaults to 30 seconds.
	HealthInterval time.Duration

	MQTTClient MQTTClient
	Registry   Registry

	// Stats supplies link state for health reports.
	Stats StatsSource

	// Audit is optional.
	Audit AuditRecorder

	Logger Logger
}

// New creates a bridge. Call Start to subscribe to commands.
func New(opts Options) (*Bridge, error) {
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if opts.Stats == nil {
		return nil, fmt.Errorf("stats source is required")
	}

	b := &Bridge{
		bridgeID:   opts.BridgeID,
		mqtt:       opts.MQTTClient,
		registry:   opts.Registry,
		audit:      opts.Audit,
		inflight:   make(map[string]trackedCommand),
		stateCache: make(map[string]endpoint.Value),
		logger:     opts.Logger,
	}

	b.health = NewHealthReporter(HealthReporterConfig{
		BridgeID:  opts.BridgeID,
		Version:   opts.Version,
		Interval:  opts.HealthInterval,
		Publisher: opts.MQTTClient,
		Stats:     opts.Stats,
	})
	if opts.Logger != nil {
		b.health.SetLogger(opts.Logger)
	}

	return b, nil
}

// Start subscribes to command topics and starts health reporting.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.health.PublishStarting(); err != nil {
		b.logError("failed to publish starting status", err)
	}

	commandTopic := b.topics.Commands()
	if err := b.mqtt.Subscribe(commandTopic, 1, b.handleMQTTMessage); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.logInfo("subscribed to commands", "topic", commandTopic)

	b.health.Start(ctx)

	b.logInfo("bridge started", "bridge_id", b.bridgeID)
	return nil
}

// Stop stops health reporting and publishes a final "stopping" status.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.health.Stop()
		b.logInfo("bridge stopped")
	})
}

// Health returns the health reporter.
func (b *Bridge) Health() *HealthReporter {
	return b.health
}

// handleMQTTMessage routes incoming MQTT messages by topic category.
func (b *Bridge) handleMQTTMessage(topic string, payload []byte) error {
	category, id, ok := b.topics.Parse(topic)
	if !ok {
		return fmt.Errorf("invalid topic format: %s", topic)
	}

	switch category {
	case mqtt.CategoryCommand:
		return b.handleCommand(id, payload)
	default:
		return fmt.Errorf("unknown message type: %s", category)
	}
}

// handleCommand processes a command message from Core.
//
// The value is stored as a pending write and acknowledged as queued. The
// final acknowledgment follows from HandleWriteResult.
func (b *Bridge) handleCommand(id string, payload []byte) error {
	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("parse command: %w", err)
	}
	// The topic names the endpoint.
	cmd.EndpointID = id
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}

	b.logInfo("received command",
		"command_id", cmd.ID,
		"endpoint_id", cmd.EndpointID,
		"command", cmd.Command)

	desc, err := b.registry.Descriptor(id)
	if err != nil {
		b.reject(cmd, "", nil, ErrCodeNotConfigured, fmt.Sprintf("endpoint %s not configured", id))
		return nil
	}
	address := FormatAddress(desc.Address)

	var requested *float64
	var write func() (float64, error)
	switch cmd.Command {
	case CommandSet:
		v, ok := cmd.Value()
		if !ok {
			b.reject(cmd, address, nil, ErrCodeInvalidParameters, "parameter \"value\" must be a number")
			return nil
		}
		requested = &v
		write = func() (float64, error) { return b.registry.SetPendingWrite(id, v) }
	case CommandPress:
		write = func() (float64, error) { return float64(desc.ButtonValue), b.registry.Press(id) }
	default:
		b.reject(cmd, address, nil, ErrCodeInvalidCommand, fmt.Sprintf("unknown command: %s", cmd.Command))
		return nil
	}

	value, err := b.queueWrite(id, &trackedCommand{cmd: cmd, address: address}, write)
	if err != nil {
		b.reject(cmd, address, requested, codeFor(err), err.Error())
		return nil
	}

	b.record(cmd, audit.Entry{Status: audit.StatusAccepted, Value: &value})
	return nil
}

// codeFor maps registry errors to ack error codes.
func codeFor(err error) string {
	switch {
	case errors.Is(err, endpoint.ErrOutOfRange):
		return ErrCodeInvalidParameters
	case errors.Is(err, endpoint.ErrNotWritable):
		return ErrCodeInvalidCommand
	case errors.Is(err, endpoint.ErrUnknownEndpoint):
		return ErrCodeNotConfigured
	default:
		return ErrCodeBridgeError
	}
}

// queueWrite runs write and updates the command tracked for id while
// holding inflightMu, so a write result cannot be handled between storing
// the pending value and tracking it.
//
// With next set, the command is tracked with the value write returned and
// acknowledged as queued. With next nil the endpoint is left untracked. A
// command previously tracked for id is acknowledged as superseded. Nothing
// changes when write fails.
func (b *Bridge) queueWrite(id string, next *trackedCommand, write func() (float64, error)) (float64, error) {
	b.inflightMu.Lock()
	defer b.inflightMu.Unlock()

	value, err := write()
	if err != nil {
		return 0, err
	}

	prev, had := b.inflight[id]
	if next != nil {
		next.value = value
		b.inflight[id] = *next
	} else {
		delete(b.inflight, id)
	}

	// Acks are published under the lock so a queued ack always precedes
	// the accepted ack for the same command.
	if had {
		by := "a write from another source"
		if next != nil {
			by = "command " + next.cmd.ID
		}
		b.publishAck(NewAckError(prev.cmd, prev.address, ErrCodeSuperseded, "replaced by "+by, 0))
	}
	if next != nil {
		ack := NewAckMessage(next.cmd, AckQueued, next.address)
		ack.Value = &value
		b.publishAck(ack)
	}
	return value, nil
}

// SetPendingWrite queues a value written outside MQTT, such as from the
// HTTP API. A command still waiting for the endpoint is acknowledged as
// superseded.
func (b *Bridge) SetPendingWrite(id string, value float64) (float64, error) {
	return b.queueWrite(id, nil, func() (float64, error) {
		return b.registry.SetPendingWrite(id, value)
	})
}

// Press queues a button press from outside MQTT. See SetPendingWrite.
func (b *Bridge) Press(id string) error {
	_, err := b.queueWrite(id, nil, func() (float64, error) {
		return 0, b.registry.Press(id)
	})
	return err
}

// HandleWriteResult acknowledges the command behind a completed write turn.
// Pass it as the controller's OnWrite callback.
//
// A confirmed write publishes "accepted" and forgets the command. An
// exhausted write publishes "timeout" but keeps the command, since the
// value stays pending and a later turn may still confirm it.
func (b *Bridge) HandleWriteResult(res scheduler.WriteResult) {
	b.inflightMu.Lock()
	tc, ok := b.inflight[res.ID]
	if ok && tc.value != res.Value {
		// The result belongs to a value that has since been replaced.
		ok = false
	}
	if ok && res.Err == nil {
		delete(b.inflight, res.ID)
	}
	b.inflightMu.Unlock()

	if !ok {
		return
	}

	if res.Err != nil {
		retries := res.Attempts - 1
		if retries < 0 {
			retries = 0
		}
		b.publishAck(NewAckError(tc.cmd, tc.address, ErrCodeTimeout, res.Err.Error(), retries))
		return
	}

	ack := NewAckMessage(tc.cmd, AckAccepted, tc.address)
	v := res.Value
	ack.Value = &v
	b.publishAck(ack)
}

// Inflight returns the number of commands waiting for a write result.
func (b *Bridge) Inflight() int {
	b.inflightMu.Lock()
	defer b.inflightMu.Unlock()
	return len(b.inflight)
}

// Publish implements endpoint.Publisher. Unchanged values are not republished.
func (b *Bridge) Publish(d endpoint.Descriptor, v endpoint.Value) {
	if b.stateUnchanged(d.ID, v) {
		return
	}

	payload, err := json.Marshal(NewStateMessage(d, v))
	if err != nil {
		b.logError("failed to marshal state", err)
		return
	}

	if err := b.mqtt.Publish(b.topics.State(d.ID), payload, 1, true); err != nil {
		b.forgetState(d.ID)
		b.logDebug("state publish failed", "endpoint_id", d.ID, "error", err)
	}
}

// stateUnchanged reports whether v matches the cached value, caching it if not.
func (b *Bridge) stateUnchanged(id string, v endpoint.Value) bool {
	b.stateCacheMu.Lock()
	defer b.stateCacheMu.Unlock()

	if cached, ok := b.stateCache[id]; ok && cached == v {
		return true
	}
	b.stateCache[id] = v
	return false
}

func (b *Bridge) forgetState(id string) {
	b.stateCacheMu.Lock()
	delete(b.stateCache, id)
	b.stateCacheMu.Unlock()
}

// ClearStateCache forces every endpoint to be republished on its next read.
// Call it after an MQTT reconnect so a restarted broker gets fresh retained state.
func (b *Bridge) ClearStateCache() {
	b.stateCacheMu.Lock()
	defer b.stateCacheMu.Unlock()

	b.stateCache = make(map[string]endpoint.Value)
}

// publishAck publishes an acknowledgment (QoS 1, not retained).
func (b *Bridge) publishAck(ack AckMessage) {
	payload, err := json.Marshal(ack)
	if err != nil {
		b.logError("failed to marshal ack", err)
		return
	}

	if err := b.mqtt.Publish(b.topics.Ack(ack.EndpointID), payload, 1, false); err != nil {
		b.logError("failed to publish ack", err)
	}
}

// reject acknowledges a failed command and records it.
func (b *Bridge) reject(cmd CommandMessage, address string, requested *float64, code, message string) {
	b.publishAck(NewAckError(cmd, address, code, message, 0))
	b.record(cmd, audit.Entry{Status: audit.StatusRejected, Value: requested, Error: message})

	b.logWarn("command rejected",
		"command_id", cmd.ID,
		"endpoint_id", cmd.EndpointID,
		"code", code,
		"message", message)
}

func (b *Bridge) record(cmd CommandMessage, e audit.Entry) {
	if b.audit == nil {
		return
	}
	e.Action = audit.ActionSet
	if cmd.Command == CommandPress {
		e.Action = audit.ActionPress
	}
	e.EndpointID = cmd.EndpointID
	e.CommandID = cmd.ID
	e.Source = audit.SourceMQTT
	b.audit.Record(e)
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()

	b.health.SetLogger(logger)
}

func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

func (b *Bridge) logError(msg string, err error) {
	if logger := b.getLogger(); logger != nil {
		logger.Error(msg, "error", err)
	}
}

func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}
