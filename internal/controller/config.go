package controller

import (
	"fmt"
	"math"
	"time"

	"github.com/nerrad567/gray-logic-rego6xx/internal/endpoint"
	"github.com/nerrad567/gray-logic-rego6xx/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-rego6xx/internal/rego"
)

// VersionSensorID is the endpoint added when bridge.version_sensor is set.
const VersionSensorID = "rego_version"

// RegisterFromConfig registers the endpoints declared in cfg.
//
// Endpoints naming a sensor ("gt1" ... "gt3x") read that system register.
// Endpoints without an update interval get the per-kind default from the
// scheduler section.
//
// Parameters:
//   - cfg: Loaded configuration
//
// Returns:
//   - error: The first endpoint that failed to resolve or register
func (c *Controller) RegisterFromConfig(cfg *config.Config) error {
	for _, ep := range cfg.Endpoints {
		d, err := Descriptor(ep, cfg.Scheduler)
		if err != nil {
			return err
		}
		if err := c.registry.Register(d); err != nil {
			return fmt.Errorf("registering %s: %w", ep.ID, err)
		}
	}

	if cfg.Bridge.VersionSensor {
		err := c.RegisterSensor(endpoint.Descriptor{
			ID:             VersionSensorID,
			Name:           "Rego version",
			Command:        rego.CmdReadRegoVersion,
			Decode:         endpoint.DecodeRaw,
			UpdateInterval: cfg.Scheduler.SensorInterval,
		})
		if err != nil {
			return fmt.Errorf("registering %s: %w", VersionSensorID, err)
		}
	}

	return nil
}

// Descriptor turns one configured endpoint into a registry descriptor.
func Descriptor(ep config.EndpointConfig, sched config.SchedulerConfig) (endpoint.Descriptor, error) {
	if err := checkRanges(ep); err != nil {
		return endpoint.Descriptor{}, err
	}

	d := endpoint.Descriptor{
		ID:             ep.ID,
		Name:           ep.Name,
		Kind:           endpoint.Kind(ep.Kind),
		Decode:         endpoint.DecodeRule(ep.Decode),
		Command:        rego.Command(ep.Command),      //nolint:gosec // checked by checkRanges
		Address:        uint16(ep.Address),           //nolint:gosec // checked by checkRanges
		WriteCommand:   rego.Command(ep.WriteCommand), //nolint:gosec // checked by checkRanges
		ButtonValue:    uint16(ep.ButtonValue),       //nolint:gosec // checked by checkRanges
		Min:            ep.Min,
		Max:            ep.Max,
		Step:           ep.Step,
		UpdateInterval: ep.UpdateInterval,
		Unit:           ep.Unit,
	}

	if ep.Sensor != "" {
		addr, ok := rego.LookupSensorRegister(ep.Sensor)
		if !ok {
			return endpoint.Descriptor{}, fmt.Errorf("%w: %s: %q", ErrUnknownSensor, ep.ID, ep.Sensor)
		}
		d.Command = rego.CmdReadSystemRegister
		d.Address = addr
		if d.Unit == "" {
			d.Unit = "°C"
		}
	}

	if d.UpdateInterval == 0 {
		d.UpdateInterval = defaultInterval(d.Kind, sched)
	}
	return d, nil
}

func defaultInterval(kind endpoint.Kind, sched config.SchedulerConfig) time.Duration {
	switch kind {
	case endpoint.KindSensor, endpoint.KindNumber:
		return sched.SensorInterval
	case endpoint.KindBinarySensor:
		return sched.BinaryInterval
	case endpoint.KindTextSensor:
		return sched.TextInterval
	default:
		return 0
	}
}

// checkRanges rejects integers that would not survive conversion to the
// descriptor's narrower types.
func checkRanges(ep config.EndpointConfig) error {
	switch {
	case ep.Command < 0 || ep.Command > int(rego.MaxCommand):
		return fmt.Errorf("%w: %s: command %d out of range", ErrInvalidEndpoint, ep.ID, ep.Command)
	case ep.WriteCommand < 0 || ep.WriteCommand > int(rego.MaxCommand):
		return fmt.Errorf("%w: %s: write_command %d out of range", ErrInvalidEndpoint, ep.ID, ep.WriteCommand)
	case ep.Address < 0 || ep.Address > int(rego.MaxAddress):
		return fmt.Errorf("%w: %s: address 0x%X out of range", ErrInvalidEndpoint, ep.ID, ep.Address)
	case ep.ButtonValue < 0 || ep.ButtonValue > math.MaxUint16:
		return fmt.Errorf("%w: %s: button_value %d out of range", ErrInvalidEndpoint, ep.ID, ep.ButtonValue)
	}
	return nil
}
