package control

import "github.com/coldstage/adr-core/internal/state"

// Stop reasons carried on mag-up and regulation stop notifications.
const (
	ReasonDone   = "done"
	ReasonCancel = "cancel"
)

// Events receives controller lifecycle notifications. The MQTT layer
// implements it to fan events out to dashboards; tests use stubs.
type Events interface {
	// StateChanged fires after every committed poll cycle with the
	// sample that was committed.
	StateChanged(s state.SystemState)

	// MagUpStarted and MagUpStopped bracket a ramp. The reason is
	// ReasonDone when the current limit was reached, ReasonCancel on an
	// operator cancel.
	MagUpStarted()
	MagUpStopped(reason string)

	// RegulationStarted and RegulationStopped bracket a regulation run.
	RegulationStarted()
	RegulationStopped(reason string)
}

// NopEvents discards all notifications.
type NopEvents struct{}

func (NopEvents) StateChanged(state.SystemState) {}
func (NopEvents) MagUpStarted()                  {}
func (NopEvents) MagUpStopped(string)            {}
func (NopEvents) RegulationStarted()             {}
func (NopEvents) RegulationStopped(string)       {}

// OperatorLog is the operator-facing event log the controllers write
// guard rejections and lifecycle messages to. *eventlog.Log satisfies it.
type OperatorLog interface {
	Log(message string)
	Alert(message string)
}
