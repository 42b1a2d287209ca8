package history

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/coldstage/adr-core/internal/control"
	"github.com/coldstage/adr-core/internal/infrastructure/logging"
	"github.com/coldstage/adr-core/internal/state"
)

// writeTimeout bounds the repository write performed inside an event
// callback. The database is local SQLite; anything slower is broken.
const writeTimeout = 5 * time.Second

// Tracker records run history from controller lifecycle events and
// forwards every event to the wrapped sink. A failed history write is
// logged and dropped: run records never block or break a loop.
type Tracker struct {
	repo     Repository
	store    *state.Store
	settings *control.Settings
	next     control.Events
	logger   *logging.Logger

	mu         sync.Mutex
	magUpRunID string
	regRunID   string
}

// NewTracker wires the tracker between the controllers and the next
// event sink. A nil next sink is replaced with a no-op.
func NewTracker(repo Repository, store *state.Store, settings *control.Settings,
	next control.Events, logger *logging.Logger) *Tracker {
	if next == nil {
		next = control.NopEvents{}
	}
	return &Tracker{
		repo:     repo,
		store:    store,
		settings: settings,
		next:     next,
		logger:   logger,
	}
}

// StateChanged forwards poll cycle notifications unchanged.
func (t *Tracker) StateChanged(s state.SystemState) {
	t.next.StateChanged(s)
}

// MagUpStarted opens a mag-up run record.
func (t *Tracker) MagUpStarted() {
	id := t.startRun(KindMagUp, t.settings.Get().CurrentLimit)
	t.mu.Lock()
	t.magUpRunID = id
	t.mu.Unlock()
	t.next.MagUpStarted()
}

// MagUpStopped completes the open mag-up run record.
func (t *Tracker) MagUpStopped(reason string) {
	t.mu.Lock()
	id := t.magUpRunID
	t.magUpRunID = ""
	t.mu.Unlock()
	t.finishRun(id, reason)
	t.next.MagUpStopped(reason)
}

// RegulationStarted opens a regulation run record. The setpoint is read
// from the store, where the controller put it before publishing.
func (t *Tracker) RegulationStarted() {
	id := t.startRun(KindRegulate, t.store.RegulationTemp())
	t.mu.Lock()
	t.regRunID = id
	t.mu.Unlock()
	t.next.RegulationStarted()
}

// RegulationStopped completes the open regulation run record.
func (t *Tracker) RegulationStopped(reason string) {
	t.mu.Lock()
	id := t.regRunID
	t.regRunID = ""
	t.mu.Unlock()
	t.finishRun(id, reason)
	t.next.RegulationStopped(reason)
}

func (t *Tracker) startRun(kind Kind, target float64) string {
	cur := t.store.Current()
	run := &Run{
		Kind:         kind,
		Target:       target,
		StartedAt:    time.Now().UTC(),
		StartCurrent: validReading(cur.PSCurrent),
		StartTemp:    validReading(cur.TFAA),
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := t.repo.Start(ctx, run); err != nil {
		t.logger.Warn("run history write failed", "kind", kind, "error", err)
		return ""
	}
	return run.ID
}

func (t *Tracker) finishRun(id, reason string) {
	if id == "" {
		return
	}
	cur := t.store.Current()
	stop := StopInfo{
		StoppedAt:   time.Now().UTC(),
		Reason:      reason,
		StopCurrent: validReading(cur.PSCurrent),
		StopTemp:    validReading(cur.TFAA),
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := t.repo.Finish(ctx, id, stop); err != nil {
		t.logger.Warn("run history update failed", "run_id", id, "error", err)
	}
}

// validReading turns NaN into nil so the database stores NULL rather
// than a meaningless number.
func validReading(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
