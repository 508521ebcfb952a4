// Package bridge connects the Rego 6xx endpoint registry to Gray Logic Core over MQTT.
//
// The bridge sits between the broker and the controller loop:
//
//	┌─────────────────┐          ┌─────────────────┐          ┌──────────────┐
//	│   Gray Logic    │   MQTT   │     Bridge      │ registry │  Controller  │ RS-232
//	│      Core       │◄────────►│   (this pkg)    │◄────────►│     loop     │◄──────► Rego 6xx
//	└─────────────────┘          └─────────────────┘          └──────────────┘
//
// Commands never touch the serial link directly. A "set" or "press" command
// is stored as a pending write and acknowledged as queued; the controller
// transmits it on the endpoint's next turn and HandleWriteResult publishes
// the final acknowledgment.
//
// # Topics
//
//	graylogic/command/rego6xx/{endpoint_id}   commands from Core
//	graylogic/ack/rego6xx/{endpoint_id}       acknowledgments
//	graylogic/state/rego6xx/{endpoint_id}     retained endpoint values
//	graylogic/health/rego6xx                  retained bridge health
//
// Example command:
//
//	{"id": "cmd-1", "command": "set", "parameters": {"value": 22.5}, "source": "api"}
package bridge
