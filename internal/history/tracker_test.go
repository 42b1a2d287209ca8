package history

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/coldstage/adr-core/internal/infrastructure/config"
	"github.com/coldstage/adr-core/internal/control"
	"github.com/coldstage/adr-core/internal/infrastructure/logging"
	"github.com/coldstage/adr-core/internal/state"
)

// memRepo records repository calls without touching a database.
type memRepo struct {
	mu       sync.Mutex
	startErr error
	starts   []Run
	stops    map[string]StopInfo
}

func (m *memRepo) Start(_ context.Context, run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return m.startErr
	}
	if run.ID == "" {
		run.ID = fmt.Sprintf("run-%d", len(m.starts)+1)
	}
	m.starts = append(m.starts, *run)
	return nil
}

func (m *memRepo) Finish(_ context.Context, id string, stop StopInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stops == nil {
		m.stops = make(map[string]StopInfo)
	}
	m.stops[id] = stop
	return nil
}

func (m *memRepo) Get(context.Context, string) (*Run, error) {
	return nil, ErrRunNotFound
}

func (m *memRepo) List(context.Context, int) ([]Run, error) {
	return nil, nil
}

func (m *memRepo) lastStart(t *testing.T) Run {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.starts) == 0 {
		t.Fatal("no runs were started")
	}
	return m.starts[len(m.starts)-1]
}

func (m *memRepo) stopFor(id string) (StopInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stop, ok := m.stops[id]
	return stop, ok
}

// forwardSink counts the notifications the tracker passes along.
type forwardSink struct {
	mu          sync.Mutex
	states      int
	magupStarts int
	regStarts   int
	magupStops  []string
	regStops    []string
}

func (s *forwardSink) StateChanged(state.SystemState) {
	s.mu.Lock()
	s.states++
	s.mu.Unlock()
}

func (s *forwardSink) MagUpStarted() {
	s.mu.Lock()
	s.magupStarts++
	s.mu.Unlock()
}

func (s *forwardSink) MagUpStopped(reason string) {
	s.mu.Lock()
	s.magupStops = append(s.magupStops, reason)
	s.mu.Unlock()
}

func (s *forwardSink) RegulationStarted() {
	s.mu.Lock()
	s.regStarts++
	s.mu.Unlock()
}

func (s *forwardSink) RegulationStopped(reason string) {
	s.mu.Lock()
	s.regStops = append(s.regStops, reason)
	s.mu.Unlock()
}

func newTrackerRig(repo Repository) (*Tracker, *state.Store, *forwardSink) {
	store := state.NewStore()
	cfg := config.SettingsConfig{CurrentLimit: 9, VoltageLimit: 2, StepLength: 0.75}
	sink := &forwardSink{}
	tracker := NewTracker(repo, store, control.NewSettings(cfg), sink, logging.Default())
	return tracker, store, sink
}

func primeStore(store *state.Store, psCurrent, tFAA float64) {
	sample := store.StartCycle()
	sample.PSCurrent = psCurrent
	sample.TFAA = tFAA
	store.CommitCycle(sample)
}

func TestTrackerRecordsMagUpRun(t *testing.T) {
	repo := &memRepo{}
	tracker, store, sink := newTrackerRig(repo)
	primeStore(store, 1.5, 0.3)

	tracker.MagUpStarted()

	run := repo.lastStart(t)
	if run.Kind != KindMagUp {
		t.Errorf("Kind = %q, want %q", run.Kind, KindMagUp)
	}
	if run.Target != 9 {
		t.Errorf("Target = %v, want current limit 9", run.Target)
	}
	if run.StartCurrent == nil || *run.StartCurrent != 1.5 {
		t.Errorf("StartCurrent = %v, want 1.5", run.StartCurrent)
	}
	if run.StartTemp == nil || *run.StartTemp != 0.3 {
		t.Errorf("StartTemp = %v, want 0.3", run.StartTemp)
	}
	if sink.magupStarts != 1 {
		t.Errorf("forwarded %d start events, want 1", sink.magupStarts)
	}

	primeStore(store, 9.0, 0.25)
	tracker.MagUpStopped(control.ReasonDone)

	stop, ok := repo.stopFor(run.ID)
	if !ok {
		t.Fatalf("run %s was never finished", run.ID)
	}
	if stop.Reason != control.ReasonDone {
		t.Errorf("stop reason = %q, want %q", stop.Reason, control.ReasonDone)
	}
	if stop.StopCurrent == nil || *stop.StopCurrent != 9.0 {
		t.Errorf("StopCurrent = %v, want 9", stop.StopCurrent)
	}
	if len(sink.magupStops) != 1 || sink.magupStops[0] != control.ReasonDone {
		t.Errorf("forwarded stops = %v, want [done]", sink.magupStops)
	}
}

func TestTrackerRecordsRegulationRun(t *testing.T) {
	repo := &memRepo{}
	tracker, store, sink := newTrackerRig(repo)
	primeStore(store, 8.5, 0.3)
	store.SetRegulationTemp(0.1)

	tracker.RegulationStarted()

	run := repo.lastStart(t)
	if run.Kind != KindRegulate {
		t.Errorf("Kind = %q, want %q", run.Kind, KindRegulate)
	}
	if run.Target != 0.1 {
		t.Errorf("Target = %v, want setpoint 0.1", run.Target)
	}

	tracker.RegulationStopped(control.ReasonCancel)

	stop, ok := repo.stopFor(run.ID)
	if !ok {
		t.Fatalf("run %s was never finished", run.ID)
	}
	if stop.Reason != control.ReasonCancel {
		t.Errorf("stop reason = %q, want %q", stop.Reason, control.ReasonCancel)
	}
	if len(sink.regStops) != 1 || sink.regStops[0] != control.ReasonCancel {
		t.Errorf("forwarded stops = %v, want [cancel]", sink.regStops)
	}
}

func TestTrackerNaNReadingsStoredAsNil(t *testing.T) {
	repo := &memRepo{}
	tracker, store, _ := newTrackerRig(repo)
	primeStore(store, math.NaN(), math.NaN())

	tracker.MagUpStarted()

	run := repo.lastStart(t)
	if run.StartCurrent != nil {
		t.Errorf("StartCurrent = %v, want nil for NaN reading", *run.StartCurrent)
	}
	if run.StartTemp != nil {
		t.Errorf("StartTemp = %v, want nil for NaN reading", *run.StartTemp)
	}
}

func TestTrackerStopWithoutStartStillForwards(t *testing.T) {
	repo := &memRepo{}
	tracker, _, sink := newTrackerRig(repo)

	tracker.MagUpStopped(control.ReasonCancel)

	repo.mu.Lock()
	stops := len(repo.stops)
	repo.mu.Unlock()
	if stops != 0 {
		t.Errorf("Finish called %d times with no open run, want 0", stops)
	}
	if len(sink.magupStops) != 1 {
		t.Errorf("forwarded %d stop events, want 1", len(sink.magupStops))
	}
}

func TestTrackerRepoFailureStillForwards(t *testing.T) {
	repo := &memRepo{startErr: errors.New("disk full")}
	tracker, store, sink := newTrackerRig(repo)
	primeStore(store, 1.0, 0.3)

	tracker.MagUpStarted()
	if sink.magupStarts != 1 {
		t.Errorf("forwarded %d start events, want 1", sink.magupStarts)
	}

	tracker.MagUpStopped(control.ReasonDone)

	repo.mu.Lock()
	stops := len(repo.stops)
	repo.mu.Unlock()
	if stops != 0 {
		t.Errorf("Finish called %d times after failed start, want 0", stops)
	}
	if len(sink.magupStops) != 1 {
		t.Errorf("forwarded %d stop events, want 1", len(sink.magupStops))
	}
}

func TestTrackerForwardsStateChanges(t *testing.T) {
	tracker, store, sink := newTrackerRig(&memRepo{})
	primeStore(store, 0.5, 0.3)

	tracker.StateChanged(store.Current())
	tracker.StateChanged(store.Current())

	if sink.states != 2 {
		t.Errorf("forwarded %d state changes, want 2", sink.states)
	}
}
