package control

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/coldstage/adr-core/internal/infrastructure/config"
	"github.com/coldstage/adr-core/internal/instrument"
	"github.com/coldstage/adr-core/internal/state"
)

// testSettingsConfig returns the production defaults with a short step
// period so spawned loops spin fast in lifecycle tests.
func testSettingsConfig() config.SettingsConfig {
	return config.SettingsConfig{
		PIDKP:              2,
		PIDKI:              0,
		PIDKD:              70,
		MagUpDV:            0.003,
		MagnetVoltageLimit: 0.1,
		CurrentLimit:       9.0,
		VoltageLimit:       2.0,
		DVdTLimit:          0.008,
		DIdTMagUpLimit:     9.0 / (30 * 60),
		DIdTRegulateLimit:  9.0 / (40 * 60),
		StepLength:         0.01,
		GGGOutOfRange:      20.0,
		FAAOutOfRange:      45.0,
	}
}

func approx(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return math.Abs(a-b) <= 1e-9
}

// prime commits two consecutive samples so Snapshot returns the pair
// (newer, older).
func prime(t *testing.T, s *state.Store, older, newer state.SystemState) {
	t.Helper()
	s.StartCycle()
	s.CommitCycle(older)
	s.StartCycle()
	s.CommitCycle(newer)
}

// connectAll marks every instrument role connected in the registry.
func connectAll(r *instrument.Registry) {
	for _, role := range []instrument.Role{
		instrument.RolePowerSupply,
		instrument.RoleDiodeMonitor,
		instrument.RoleRuoxMonitor,
		instrument.RoleMagnetVoltage,
	} {
		r.SetConnected(role, true)
	}
}

// logSink captures operator log traffic.
type logSink struct {
	mu      sync.Mutex
	entries []string
	alerts  []string
}

func (l *logSink) Log(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, msg)
}

func (l *logSink) Alert(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.alerts = append(l.alerts, msg)
}

func (l *logSink) lastEntry() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return ""
	}
	return l.entries[len(l.entries)-1]
}

func (l *logSink) lastAlert() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.alerts) == 0 {
		return ""
	}
	return l.alerts[len(l.alerts)-1]
}

// eventSink captures controller lifecycle notifications.
type eventSink struct {
	mu           sync.Mutex
	stateChanges int
	magupStarts  int
	magupStops   []string
	regStarts    int
	regStops     []string
}

func (e *eventSink) StateChanged(state.SystemState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stateChanges++
}

func (e *eventSink) MagUpStarted() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.magupStarts++
}

func (e *eventSink) MagUpStopped(reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.magupStops = append(e.magupStops, reason)
}

func (e *eventSink) RegulationStarted() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.regStarts++
}

func (e *eventSink) RegulationStopped(reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.regStops = append(e.regStops, reason)
}

func (e *eventSink) counts() (stateChanges, magupStarts, regStarts int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateChanges, e.magupStarts, e.regStarts
}

func (e *eventSink) magupStopReasons() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.magupStops...)
}

func (e *eventSink) regStopReasons() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.regStops...)
}

// Stub instruments with injectable readings and failures.

type stubPS struct {
	mu         sync.Mutex
	current    float64
	voltage    float64
	currentErr error
	voltageErr error
	setErr     error
	writes     []float64
}

func (p *stubPS) Connect(context.Context) error { return nil }

func (p *stubPS) Current(context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.currentErr
}

func (p *stubPS) Voltage(context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.voltage, p.voltageErr
}

func (p *stubPS) SetVoltage(_ context.Context, v float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.setErr != nil {
		return p.setErr
	}
	p.writes = append(p.writes, v)
	return nil
}

func (p *stubPS) writeLog() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]float64(nil), p.writes...)
}

type stubDiode struct {
	mu   sync.Mutex
	t60K float64
	t3K  float64
	err  error
}

func (d *stubDiode) Connect(context.Context) error { return nil }

func (d *stubDiode) Temperatures(context.Context) (float64, float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.t60K, d.t3K, d.err
}

func (d *stubDiode) setErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

type stubRuox struct {
	mu        sync.Mutex
	tc        time.Duration
	temp      float64
	tcErr     error
	tempErr   error
	tempReads int
	selected  state.Channel
}

func (r *stubRuox) Connect(context.Context) error { return nil }

func (r *stubRuox) TimeConstant(context.Context) (time.Duration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tc, r.tcErr
}

func (r *stubRuox) Temperature(context.Context) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tempReads++
	return r.temp, r.tempErr
}

func (r *stubRuox) SelectChannel(_ context.Context, ch state.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selected = ch
	return nil
}

func (r *stubRuox) reads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tempReads
}

type stubMagnetV struct {
	mu  sync.Mutex
	v   float64
	err error
}

func (m *stubMagnetV) Connect(context.Context) error { return nil }

func (m *stubMagnetV) MagnetVoltage(context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.v, m.err
}

// stubSet assembles a full instrument set from the stubs.
func stubSet(ps *stubPS, d *stubDiode, r *stubRuox, m *stubMagnetV) instrument.Set {
	return instrument.Set{PowerSupply: ps, Diode: d, Ruox: r, MagnetV: m}
}
