package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-rego6xx/internal/endpoint"
	"github.com/nerrad567/gray-logic-rego6xx/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-rego6xx/internal/scheduler"
	"github.com/nerrad567/gray-logic-rego6xx/internal/transport"
)

// DefaultLoopInterval is used when the configured interval is not positive.
const DefaultLoopInterval = 10 * time.Millisecond

// Link is the serial link the controller owns. *transport.Link satisfies it.
type Link interface {
	scheduler.Link
	Name() string
	Stats() transport.Stats
	IsConnected() bool
	Close() error
}

// Logger defines the logging interface used by the Controller.
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

// Options configures a Controller.
type Options struct {
	// Link is required.
	Link Link

	// Registry is created when nil.
	Registry *endpoint.Registry

	// Config supplies scheduler timings and per-kind poll intervals.
	Config config.SchedulerConfig

	// Publisher receives every decoded value.
	Publisher endpoint.Publisher

	// OnWrite is called on the loop goroutine after each write turn.
	OnWrite func(scheduler.WriteResult)

	Logger Logger
}

// Stats combines link and scheduler counters.
type Stats struct {
	Link      transport.Stats `json:"link"`
	Scheduler scheduler.Stats `json:"scheduler"`
	Endpoints int             `json:"endpoints"`
	State     string          `json:"state"`
}

// Controller is the host-side owner of one Rego 6xx link.
//
// Thread Safety:
//   - Register* and Setup are called once during startup.
//   - Loop and Run must only be called from one goroutine.
//   - Stats and Registry are safe from any goroutine.
type Controller struct {
	link     Link
	registry *endpoint.Registry
	cfg      config.SchedulerConfig
	onWrite  func(scheduler.WriteResult)
	logger   Logger

	mu    sync.RWMutex
	sched *scheduler.Scheduler
}

// New creates a controller. Endpoints may be registered until Setup.
//
// Returns:
//   - *Controller: Ready for registration
//   - error: ErrNoLink if opts.Link is nil
func New(opts Options) (*Controller, error) {
	if opts.Link == nil {
		return nil, ErrNoLink
	}

	c := &Controller{
		link:     opts.Link,
		registry: opts.Registry,
		cfg:      opts.Config,
		onWrite:  opts.OnWrite,
		logger:   opts.Logger,
	}
	if c.logger == nil {
		c.logger = noopLogger{}
	}
	if c.registry == nil {
		c.registry = endpoint.NewRegistry()
		c.registry.SetLogger(c.logger)
	}
	if opts.Publisher != nil {
		c.registry.SetPublisher(opts.Publisher)
	}

	return c, nil
}

// Registry returns the endpoint registry shared with the MQTT and HTTP handlers.
func (c *Controller) Registry() *endpoint.Registry {
	return c.registry
}

// RegisterSensor registers a read-only numeric sensor.
func (c *Controller) RegisterSensor(d endpoint.Descriptor) error {
	return c.registry.RegisterSensor(d)
}

// RegisterBinarySensor registers a read-only on/off sensor.
func (c *Controller) RegisterBinarySensor(d endpoint.Descriptor) error {
	return c.registry.RegisterBinarySensor(d)
}

// RegisterNumber registers a writable set-point.
func (c *Controller) RegisterNumber(d endpoint.Descriptor) error {
	return c.registry.RegisterNumber(d)
}

// RegisterTextSensor registers a display row or error log reader.
func (c *Controller) RegisterTextSensor(d endpoint.Descriptor) error {
	return c.registry.RegisterTextSensor(d)
}

// RegisterButton registers a front-panel button.
func (c *Controller) RegisterButton(d endpoint.Descriptor) error {
	return c.registry.RegisterButton(d)
}

// Setup seals the registry, builds the scheduler and logs the endpoint table.
func (c *Controller) Setup() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sched != nil {
		return ErrAlreadySetup
	}

	c.registry.Seal()

	sched, err := scheduler.New(scheduler.Options{
		Link:     c.link,
		Registry: c.registry,
		Config:   SchedulerConfig(c.cfg),
		Logger:   c.logger,
		OnWrite:  c.onWrite,
	})
	if err != nil {
		return fmt.Errorf("building scheduler: %w", err)
	}
	c.sched = sched

	c.DumpConfig()
	return nil
}

// Loop runs one scheduler tick. It does nothing before Setup.
func (c *Controller) Loop() {
	c.mu.RLock()
	sched := c.sched
	c.mu.RUnlock()

	if sched != nil {
		sched.Tick()
	}
}

// Run calls Loop every LoopInterval until ctx is cancelled, then closes the link.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.RLock()
	ready := c.sched != nil
	c.mu.RUnlock()
	if !ready {
		return ErrNotSetup
	}

	interval := c.cfg.LoopInterval
	if interval <= 0 {
		interval = DefaultLoopInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.logger.Info("controller running", "link", c.link.Name(), "loop_interval", interval)

	for {
		select {
		case <-ctx.Done():
			if err := c.link.Close(); err != nil {
				c.logger.Warn("closing link", "error", err)
			}
			c.logger.Info("controller stopped", "link", c.link.Name())
			return nil
		case <-ticker.C:
			c.Loop()
		}
	}
}

// Stats returns link and scheduler counters.
func (c *Controller) Stats() Stats {
	s := Stats{
		Link:      c.link.Stats(),
		Endpoints: c.registry.Len(),
		State:     scheduler.StateIdle.String(),
	}

	c.mu.RLock()
	sched := c.sched
	c.mu.RUnlock()

	if sched != nil {
		s.Scheduler = sched.Stats()
		s.State = sched.State().String()
	}
	return s
}

// LinkName returns the name of the serial device.
func (c *Controller) LinkName() string {
	return c.link.Name()
}

// IsConnected reports whether the serial link is open.
func (c *Controller) IsConnected() bool {
	return c.link.IsConnected()
}

// DumpConfig logs every registered endpoint.
func (c *Controller) DumpConfig() {
	eps := c.registry.Endpoints()
	c.logger.Info("rego 6xx controller",
		"link", c.link.Name(),
		"endpoints", len(eps),
		"max_retries", c.cfg.MaxRetries,
		"response_timeout", c.cfg.ResponseTimeout,
		"request_pause", c.cfg.RequestPause,
	)

	for _, d := range eps {
		args := []any{
			"id", d.ID,
			"name", d.Name,
			"kind", d.Kind,
			"command", d.Command.String(),
			"address", fmt.Sprintf("0x%04X", d.Address),
			"decode", d.Decode,
			"update_interval", d.UpdateInterval,
		}
		switch d.Kind {
		case endpoint.KindNumber:
			args = append(args,
				"write_command", d.WriteCommand.String(),
				"min", d.Min, "max", d.Max, "step", d.Step,
			)
		case endpoint.KindButton:
			args = append(args, "write_command", d.WriteCommand.String(), "button_value", d.ButtonValue)
		}
		c.logger.Info("  endpoint", args...)
	}
}

// SchedulerConfig maps the scheduler section of config.yaml onto scheduler.Config.
func SchedulerConfig(cfg config.SchedulerConfig) scheduler.Config {
	return scheduler.Config{
		MaxRetries:      cfg.MaxRetries,
		ResponseTimeout: cfg.ResponseTimeout,
		RetryBackoff:    cfg.RetryBackoff,
		MaxRetryBackoff: cfg.MaxRetryBackoff,
		PollQuantum:     cfg.PollQuantum,
		RequestPause:    cfg.RequestPause,
	}
}
