// Package history persists one record per mag-up or regulation run.
//
// Runs are written to the runs table in SQLite: a row is inserted when
// a controller starts and completed in place when it stops, with the
// supply current and FAA temperature captured at both endpoints. The
// command surface exposes the table through the get-runs command, which
// is how operators answer "when did the last cycle finish and how far
// did it get" without trawling the operator log.
//
// # Key Types
//
//   - Run: one ramp or regulation run, start to stop
//   - Repository: persistence interface; SQLiteRepository implements it
//   - Tracker: control.Events decorator that records runs and forwards
//     every event to the wrapped sink
//
// # Usage
//
//	repo := history.NewSQLiteRepository(db)
//	events := history.NewTracker(repo, store, settings, mqttEvents, log)
//	magup := control.NewMagUpController(store, devices, settings, elog, events, log)
package history
