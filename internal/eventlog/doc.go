// Package eventlog keeps the operator-facing log of the fridge: every
// guard rejection, mode change, and instrument transition, timestamped
// the way ADR operators have always read them.
//
// Entries live in an append-only in-memory sequence (queryable by
// "last N") and are mirrored line-by-line to a text file named for the
// process start time, e.g. log_260825_1430.txt. A publish hook fans each
// entry out to the event bus so log viewers update live.
//
// This log is for operators; process diagnostics go through the logging
// package instead. An entry's alert flag is a presentation hint for log
// viewers, not a separate channel.
//
// # Usage
//
//	elog, err := eventlog.New(cfg.ADR.DataDir, time.Now(), logger)
//	if err != nil {
//	    return err
//	}
//	defer elog.Close()
//
//	elog.SetPublisher(func(e eventlog.Entry) {
//	    bus.PublishLogChanged(e)
//	})
//
//	elog.Log("Beginning to mag up to 9 Amps.")
//	elog.Alert("Cannot mag up: At least one of the essential devices is not connected.")
package eventlog
