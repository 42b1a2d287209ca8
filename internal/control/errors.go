package control

import "errors"

// Domain errors for the control package.
//
// Start rejections are also written to the operator event log with the
// full reason; these sentinels let the command layer map a rejection to
// an error response:
//
//	if errors.Is(err, control.ErrBusy) {
//	    // another loop owns the magnet
//	}
var (
	// ErrAlreadyRunning is returned when a start request repeats the
	// loop that is already active.
	ErrAlreadyRunning = errors.New("control: loop already running")

	// ErrBusy is returned when a start request conflicts with the other
	// loop (mag-up during regulation and vice versa).
	ErrBusy = errors.New("control: magnet owned by another loop")

	// ErrDevicesNotReady is returned when an essential instrument is
	// disconnected at start.
	ErrDevicesNotReady = errors.New("control: essential device not connected")
)
