package history

import (
	"errors"
	"time"
)

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("history: run not found")

// Kind distinguishes the two run types.
type Kind string

// Run kinds.
const (
	KindMagUp    Kind = "magup"
	KindRegulate Kind = "regulate"
)

// Run is one mag-up ramp or regulation run, from start to stop.
type Run struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`

	// Target is the current limit in amps for a mag-up run and the
	// temperature setpoint in kelvin for a regulation run.
	Target float64 `json:"target"`

	StartedAt time.Time  `json:"started_at"`
	StoppedAt *time.Time `json:"stopped_at,omitempty"`

	// Reason is "done" or "cancel". Nil while the run is active.
	Reason *string `json:"reason,omitempty"`

	// Supply current and FAA temperature at the endpoints. Nil when the
	// reading was NaN at the time.
	StartCurrent *float64 `json:"start_current,omitempty"`
	StopCurrent  *float64 `json:"stop_current,omitempty"`
	StartTemp    *float64 `json:"start_temp,omitempty"`
	StopTemp     *float64 `json:"stop_temp,omitempty"`
}

// Active reports whether the run has not stopped yet.
func (r *Run) Active() bool {
	return r.StoppedAt == nil
}

// StopInfo carries the endpoint readings written when a run finishes.
type StopInfo struct {
	StoppedAt   time.Time
	Reason      string
	StopCurrent *float64
	StopTemp    *float64
}
