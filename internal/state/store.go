package state

import (
	"sync"
	"sync/atomic"
	"time"
)

// Store owns the live SystemState pair and the controller mode.
//
// All methods are safe for concurrent use. Snapshots are returned by
// value, so callers can never mutate the store through a read.
type Store struct {
	mu      sync.RWMutex
	current SystemState
	last    SystemState

	mode atomic.Int32
}

// NewStore creates a Store holding the startup snapshot: all readings
// NaN, everything disconnected, mode idle.
func NewStore() *Store {
	now := time.Now().UTC()
	return &Store{
		current: newSystemState(now),
		last:    newSystemState(now),
	}
}

// Current returns a copy of the latest snapshot.
func (s *Store) Current() SystemState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Snapshot returns copies of the latest and the previous snapshot.
// Controllers use the pair for their derivative terms.
func (s *Store) Snapshot() (current, last SystemState) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.last
}

// StartCycle rotates current into last and returns a working copy of
// current for the poller to fill in. Fields the poller does not touch
// this cycle (a skipped Ruox reading, for instance) keep their prior
// values in the working copy.
func (s *Store) StartCycle() SystemState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = s.current
	return s.current
}

// CommitCycle writes the poller's finished sample back as current.
//
// Only the sampled fields are taken from the sample; operator-settable
// fields (Ruox channel, regulation target, PID accumulator) keep
// whatever value the store holds now, so a channel switch or retarget
// that landed mid-cycle is not clobbered.
func (s *Store) CommitCycle(sample SystemState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := &s.current
	cur.Time = sample.Time
	cur.Cycle = sample.Cycle
	cur.T60K = sample.T60K
	cur.T3K = sample.T3K
	cur.TGGG = sample.TGGG
	cur.TFAA = sample.TFAA
	cur.MagnetV = sample.MagnetV
	cur.PSCurrent = sample.PSCurrent
	cur.PSVoltage = sample.PSVoltage
	cur.PSConnected = sample.PSConnected
	cur.DiodeConnected = sample.DiodeConnected
	cur.RuoxConnected = sample.RuoxConnected
	cur.MagnetVConnected = sample.MagnetVConnected
}

// Mode returns the controller mode.
func (s *Store) Mode() Mode {
	return Mode(s.mode.Load())
}

// TryTransition atomically moves the mode from one value to another.
// It reports whether the swap happened; a false return means some other
// controller got there first.
func (s *Store) TryTransition(from, to Mode) bool {
	return s.mode.CompareAndSwap(int32(from), int32(to))
}

// RuoxChannel returns the selected Ruox channel and when it was switched.
func (s *Store) RuoxChannel() (Channel, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.RuoxChan, s.current.RuoxChanSetAt
}

// SelectRuoxChannel switches the active Ruox channel and stamps the
// switch time. Selecting the already-active channel is a no-op so the
// settle clock is not restarted spuriously.
func (s *Store) SelectRuoxChannel(ch Channel, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current.RuoxChan == ch {
		return
	}
	s.current.RuoxChan = ch
	s.current.RuoxChanSetAt = now
}

// RegulationTemp returns the PID setpoint in kelvin.
func (s *Store) RegulationTemp() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.RegulationTemp
}

// SetRegulationTemp updates the PID setpoint.
func (s *Store) SetRegulationTemp(temp float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.RegulationTemp = temp
}

// SetPIDCumulativeError mirrors the regulation integral term into the
// snapshot so it is readable over the command surface.
func (s *Store) SetPIDCumulativeError(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.PIDCumulativeError = v
}
