// Package state holds the live view of the fridge: the current and
// previous poll-cycle snapshots, the controller mode, and the handful of
// operator-settable fields (Ruox channel selection, regulation target).
//
// # Architecture
//
// A single Store is created at startup and shared by the poller, the
// controllers, and the command surface. The poller is the only writer of
// sampled fields; it snapshots current into last at the top of each cycle
// and commits the new sample at the end. Controllers read snapshot pairs
// for their derivative terms and never write sampled fields.
//
// Mode is a tagged value {idle, magup, regulate} guarded by compare-and-swap,
// so two controllers can never own the magnet at once.
//
// # Usage
//
//	store := state.NewStore()
//
//	if !store.TryTransition(state.ModeIdle, state.ModeMagUp) {
//	    // someone else owns the magnet
//	}
//
//	cur, last := store.Snapshot()
//	didt := (cur.PSCurrent - last.PSCurrent) / cur.Time.Sub(last.Time).Seconds()
package state
