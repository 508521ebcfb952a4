// Package mqtt provides the broker connection used by the Rego bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing with QoS and payload size checks
//   - Subscriptions that survive reconnects
//   - Online/offline status with a Last Will and Testament
//
// # Topics
//
// All topics follow graylogic/{category}/rego6xx/{endpoint_id}:
//
//	graylogic/state/rego6xx/gt1          retained endpoint state
//	graylogic/command/rego6xx/gt1_target set/press commands
//	graylogic/ack/rego6xx/gt1_target     command acknowledgements
//	graylogic/health/rego6xx             bridge health
//	graylogic/system/status              online/offline (LWT)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.Commands(), 1, handler)
package mqtt
