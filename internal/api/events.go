package api

import (
	"encoding/json"

	"github.com/coldstage/adr-core/internal/control"
	"github.com/coldstage/adr-core/internal/eventlog"
	"github.com/coldstage/adr-core/internal/infrastructure/logging"
	"github.com/coldstage/adr-core/internal/infrastructure/mqtt"
	"github.com/coldstage/adr-core/internal/state"
)

// eventQoS is the QoS level for event notifications.
const eventQoS = 1

// EventPublisher pushes core notifications to the adr/event/ topics.
// It implements the controllers' Events interface; LogEntry additionally
// serves as the operator log's publish hook.
//
// Publishing is fire-and-forget: a failed publish is logged and dropped,
// never retried. Subscribers that miss an event re-sync by reading fresh
// state over the request surface.
type EventPublisher struct {
	broker Broker
	logger *logging.Logger
}

var _ control.Events = (*EventPublisher)(nil)

// NewEventPublisher creates the event fan-out.
func NewEventPublisher(broker Broker, logger *logging.Logger) *EventPublisher {
	return &EventPublisher{broker: broker, logger: logger}
}

// StateChanged announces a completed poll cycle. The payload is an
// empty object: subscribers pull whichever values they need.
func (p *EventPublisher) StateChanged(state.SystemState) {
	p.publish(mqtt.EventState, map[string]any{})
}

// MagUpStarted announces an accepted mag-up start.
func (p *EventPublisher) MagUpStarted() {
	p.publish(mqtt.EventMagUp, startedPayload())
}

// MagUpStopped announces the end of a mag-up run.
func (p *EventPublisher) MagUpStopped(reason string) {
	p.publish(mqtt.EventMagUp, stoppedPayload(reason))
}

// RegulationStarted announces an accepted regulation start.
func (p *EventPublisher) RegulationStarted() {
	p.publish(mqtt.EventRegulation, startedPayload())
}

// RegulationStopped announces the end of a regulation run.
func (p *EventPublisher) RegulationStopped(reason string) {
	p.publish(mqtt.EventRegulation, stoppedPayload(reason))
}

// LogEntry fans one operator log entry out to the log event topic.
// Wire it with elog.SetPublisher(publisher.LogEntry).
func (p *EventPublisher) LogEntry(e eventlog.Entry) {
	p.publish(mqtt.EventLog, map[string]any{
		"message": e.Message,
		"alert":   e.Alert,
	})
}

func startedPayload() map[string]any {
	return map[string]any{"event": "started"}
}

func stoppedPayload(reason string) map[string]any {
	return map[string]any{"event": "stopped", "reason": reason}
}

func (p *EventPublisher) publish(eventType string, payload map[string]any) {
	body, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("event payload marshal failed", "event", eventType, "error", err)
		return
	}
	if err := p.broker.Publish(mqtt.Topics{}.Event(eventType), body, eventQoS, false); err != nil {
		p.logger.Warn("event publish failed", "event", eventType, "error", err)
	}
}
