package mqtt

import (
	"fmt"
	"strings"
)

// Topic layout for the bridge, using the flat Gray Logic scheme:
//
//	graylogic/{category}/{protocol}/{endpoint_id}
const (
	// TopicPrefix is the base for all topics.
	TopicPrefix = "graylogic"

	// Protocol is the protocol segment used by this bridge.
	Protocol = "rego6xx"

	// topicParts is the number of segments in an endpoint topic.
	topicParts = 4
)

// Topic categories.
const (
	CategoryState   = "state"
	CategoryCommand = "command"
	CategoryAck     = "ack"
	CategoryHealth  = "health"
)

// Topics provides builders for the bridge's MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.State("gt1")
//	// Returns: "graylogic/state/rego6xx/gt1"
type Topics struct{}

// State returns the retained state topic for an endpoint.
//
// Example: graylogic/state/rego6xx/gt1
func (Topics) State(id string) string {
	return endpointTopic(CategoryState, id)
}

// Command returns the command topic for an endpoint.
//
// Example: graylogic/command/rego6xx/gt1_target
func (Topics) Command(id string) string {
	return endpointTopic(CategoryCommand, id)
}

// Ack returns the command acknowledgement topic for an endpoint.
//
// Example: graylogic/ack/rego6xx/gt1_target
func (Topics) Ack(id string) string {
	return endpointTopic(CategoryAck, id)
}

// Health returns the retained bridge health topic.
//
// Example: graylogic/health/rego6xx
func (Topics) Health() string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefix, CategoryHealth, Protocol)
}

// Commands returns the subscription pattern for all endpoint commands.
//
// Pattern: graylogic/command/rego6xx/+
func (Topics) Commands() string {
	return endpointTopic(CategoryCommand, "+")
}

// SystemStatus returns the online/offline status topic.
//
// Example: graylogic/system/status
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// Parse splits an endpoint topic into its category and endpoint id.
// It returns false for topics outside this bridge's protocol.
func (Topics) Parse(topic string) (category, id string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != topicParts || parts[0] != TopicPrefix || parts[2] != Protocol || parts[3] == "" {
		return "", "", false
	}
	return parts[1], parts[3], true
}

func endpointTopic(category, id string) string {
	return fmt.Sprintf("%s/%s/%s/%s", TopicPrefix, category, Protocol, id)
}
