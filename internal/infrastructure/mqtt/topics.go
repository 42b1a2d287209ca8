package mqtt

import "fmt"

// Topic prefixes for the ADR control core.
//
// The core exposes a flat scheme under a single root: commands arrive on
// adr/request/{command}, replies go to adr/response/{request_id}, and
// lifecycle notifications fan out under adr/event/. One core process
// serves one fridge; the client ID distinguishes fridges that share a
// broker.
const (
	// TopicPrefix is the root of all core topics.
	TopicPrefix = "adr"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "adr/system"
)

// Event type segments used under adr/event/.
const (
	// EventState is published once per poll cycle, payload-free;
	// subscribers pull fresh values over the request surface.
	EventState = "state"

	// EventLog carries each appended log entry (message, alert).
	EventLog = "log"

	// EventMagUp and EventRegulation carry controller lifecycle
	// notifications: started, or stopped with reason done|cancel.
	EventMagUp      = "magup"
	EventRegulation = "regulation"
)

// Topics provides builders for core MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	topics.Request("mag-up")      // "adr/request/mag-up"
//	topics.Response("req-a1b2c3") // "adr/response/req-a1b2c3"
//	topics.Event(mqtt.EventLog)   // "adr/event/log"
type Topics struct{}

// Request returns the topic a client publishes a command to.
//
// Example: adr/request/regulate
func (Topics) Request(command string) string {
	return fmt.Sprintf("%s/request/%s", TopicPrefix, command)
}

// Response returns the topic the core replies on for one request.
//
// Example: adr/response/req-a1b2c3d4
func (Topics) Response(requestID string) string {
	return fmt.Sprintf("%s/response/%s", TopicPrefix, requestID)
}

// Event returns the topic for a lifecycle or state notification.
//
// Example: adr/event/magup
func (Topics) Event(eventType string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefix, eventType)
}

// SystemStatus returns the online/offline status topic. The broker
// publishes the LWT here if the core dies without disconnecting.
//
// Example: adr/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllRequests returns a pattern matching every command topic.
//
// Pattern: adr/request/+
func (Topics) AllRequests() string {
	return fmt.Sprintf("%s/request/+", TopicPrefix)
}

// AllEvents returns a pattern matching every event topic.
//
// Pattern: adr/event/+
func (Topics) AllEvents() string {
	return fmt.Sprintf("%s/event/+", TopicPrefix)
}

// AllTopics returns a pattern matching all core topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: adr/#
func (Topics) AllTopics() string {
	return "adr/#"
}
