package control

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coldstage/adr-core/internal/infrastructure/config"
	"github.com/coldstage/adr-core/internal/infrastructure/logging"
	"github.com/coldstage/adr-core/internal/instrument"
	"github.com/coldstage/adr-core/internal/state"
)

// supplySample builds a snapshot with the fields the ramp and PID loops
// read. TFAA defaults to a valid reading so regulation tests share it.
func supplySample(at time.Time, psCurrent, psVoltage, magnetV float64) state.SystemState {
	return state.SystemState{
		Time:      at,
		TFAA:      0.1,
		MagnetV:   magnetV,
		PSCurrent: psCurrent,
		PSVoltage: psVoltage,
	}
}

type magupRig struct {
	store  *state.Store
	reg    *instrument.Registry
	ps     *stubPS
	elog   *logSink
	events *eventSink
	ctl    *MagUpController
}

func newMagUpRig(t *testing.T, cfg config.SettingsConfig) *magupRig {
	t.Helper()

	rig := &magupRig{
		ps:     &stubPS{},
		elog:   &logSink{},
		events: &eventSink{},
	}
	rig.store = state.NewStore()
	rig.reg = instrument.NewRegistry(stubSet(rig.ps, &stubDiode{}, &stubRuox{}, &stubMagnetV{}))
	connectAll(rig.reg)

	rig.ctl = NewMagUpController(rig.store, rig.reg, NewSettings(cfg),
		rig.elog, rig.events, logging.Default())
	return rig
}

func TestMagUpStartRejectsWhileActive(t *testing.T) {
	tests := []struct {
		name    string
		mode    state.Mode
		wantErr error
		wantMsg string
	}{
		{
			name:    "already magging",
			mode:    state.ModeMagUp,
			wantErr: ErrAlreadyRunning,
			wantMsg: "Already magging up.",
		},
		{
			name:    "regulating",
			mode:    state.ModeRegulate,
			wantErr: ErrBusy,
			wantMsg: "Currently in PID control loop regulation. Please wait until finished.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rig := newMagUpRig(t, testSettingsConfig())
			rig.store.TryTransition(state.ModeIdle, tt.mode)

			err := rig.ctl.Start(context.Background())

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Start() error = %v, want %v", err, tt.wantErr)
			}
			if got := rig.elog.lastEntry(); got != tt.wantMsg {
				t.Errorf("log entry = %q, want %q", got, tt.wantMsg)
			}
			if _, starts, _ := rig.events.counts(); starts != 0 {
				t.Errorf("started events = %d, want 0", starts)
			}
		})
	}
}

func TestMagUpStartRejectsDisconnectedDevices(t *testing.T) {
	rig := newMagUpRig(t, testSettingsConfig())
	rig.reg.SetConnected(instrument.RolePowerSupply, false)

	err := rig.ctl.Start(context.Background())

	if !errors.Is(err, ErrDevicesNotReady) {
		t.Fatalf("Start() error = %v, want ErrDevicesNotReady", err)
	}
	want := "Cannot mag up: At least one of the essential devices is not connected. " +
		"Connections: Power Supply: false, Magnet Voltage Monitor: true."
	if got := rig.elog.lastAlert(); got != want {
		t.Errorf("alert = %q, want %q", got, want)
	}
	if rig.store.Mode() != state.ModeIdle {
		t.Errorf("mode = %v, want idle", rig.store.Mode())
	}
}

func TestMagUpStartAndCancel(t *testing.T) {
	rig := newMagUpRig(t, testSettingsConfig())
	t0 := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)

	// Back-EMF pinned at the limit so the spawned loop holds and the
	// assertions below race nothing.
	prime(t, rig.store,
		supplySample(t0, 1.2, 0.5, 0.2),
		supplySample(t0.Add(time.Second), 1.2, 0.5, 0.2))

	if err := rig.ctl.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if rig.store.Mode() != state.ModeMagUp {
		t.Fatalf("mode = %v, want magup", rig.store.Mode())
	}
	if _, starts, _ := rig.events.counts(); starts != 1 {
		t.Errorf("started events = %d, want 1", starts)
	}
	if got, want := rig.elog.lastEntry(), "Beginning to mag up to 9 Amps."; got != want {
		t.Errorf("log entry = %q, want %q", got, want)
	}

	rig.ctl.Cancel()

	if rig.store.Mode() != state.ModeIdle {
		t.Errorf("mode after cancel = %v, want idle", rig.store.Mode())
	}
	if got, want := rig.elog.lastEntry(), "Magging up stopped at a current of 1.2 Amps."; got != want {
		t.Errorf("log entry = %q, want %q", got, want)
	}
	if got := rig.events.magupStopReasons(); len(got) != 1 || got[0] != ReasonCancel {
		t.Errorf("stop reasons = %v, want [cancel]", got)
	}
}

func TestMagUpStepRaisesVoltage(t *testing.T) {
	rig := newMagUpRig(t, testSettingsConfig())
	rig.store.TryTransition(state.ModeIdle, state.ModeMagUp)
	t0 := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)

	prime(t, rig.store,
		supplySample(t0, 1.0, 0.5, 0.05),
		supplySample(t0.Add(time.Second), 1.001, 0.5, 0.05))

	if !rig.ctl.step(context.Background()) {
		t.Fatal("step() = false, want true while below the current limit")
	}
	writes := rig.ps.writeLog()
	if len(writes) != 1 || !approx(writes[0], 0.503) {
		t.Errorf("supply writes = %v, want [0.503]", writes)
	}
}

func TestMagUpStepHoldsVoltage(t *testing.T) {
	t0 := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		older state.SystemState
		newer state.SystemState
	}{
		{
			name:  "back-EMF at limit",
			older: supplySample(t0, 1.0, 0.5, 0.1),
			newer: supplySample(t0.Add(time.Second), 1.0, 0.5, 0.1),
		},
		{
			name:  "current rising too fast",
			older: supplySample(t0, 1.0, 0.5, 0.05),
			newer: supplySample(t0.Add(time.Second), 2.0, 0.5, 0.05),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rig := newMagUpRig(t, testSettingsConfig())
			rig.store.TryTransition(state.ModeIdle, state.ModeMagUp)
			prime(t, rig.store, tt.older, tt.newer)

			if !rig.ctl.step(context.Background()) {
				t.Fatal("step() = false, want true: holding is not stopping")
			}
			if writes := rig.ps.writeLog(); len(writes) != 0 {
				t.Errorf("supply writes = %v, want none while holding", writes)
			}
		})
	}
}

func TestMagUpStepClampsToVoltageLimit(t *testing.T) {
	rig := newMagUpRig(t, testSettingsConfig())
	rig.store.TryTransition(state.ModeIdle, state.ModeMagUp)
	t0 := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)

	prime(t, rig.store,
		supplySample(t0, 1.0, 1.999, 0.05),
		supplySample(t0.Add(time.Second), 1.0, 1.999, 0.05))

	rig.ctl.step(context.Background())

	writes := rig.ps.writeLog()
	if len(writes) != 1 || !approx(writes[0], 2.0) {
		t.Errorf("supply writes = %v, want [2] (clamped)", writes)
	}
}

func TestMagUpStepZeroDtGuard(t *testing.T) {
	rig := newMagUpRig(t, testSettingsConfig())
	rig.store.TryTransition(state.ModeIdle, state.ModeMagUp)
	t0 := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)

	// Identical timestamps: the epsilon guard keeps dI/dt finite.
	prime(t, rig.store,
		supplySample(t0, 1.0, 0.5, 0.05),
		supplySample(t0, 1.0, 0.5, 0.05))

	if !rig.ctl.step(context.Background()) {
		t.Fatal("step() = false, want true")
	}
	writes := rig.ps.writeLog()
	if len(writes) != 1 || !approx(writes[0], 0.503) {
		t.Errorf("supply writes = %v, want [0.503]", writes)
	}
}

func TestMagUpStepCompletesAtCurrentLimit(t *testing.T) {
	rig := newMagUpRig(t, testSettingsConfig())
	rig.store.TryTransition(state.ModeIdle, state.ModeMagUp)
	t0 := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)

	prime(t, rig.store,
		supplySample(t0, 8.99, 1.8, 0.05),
		supplySample(t0.Add(time.Second), 9.0, 1.8, 0.05))

	if rig.ctl.step(context.Background()) {
		t.Fatal("step() = true at the current limit, want false")
	}
	if rig.store.Mode() != state.ModeIdle {
		t.Errorf("mode = %v, want idle after completion", rig.store.Mode())
	}
	if got, want := rig.elog.lastEntry(), "Finished magging up. 9 Amps reached."; got != want {
		t.Errorf("log entry = %q, want %q", got, want)
	}
	if got := rig.events.magupStopReasons(); len(got) != 1 || got[0] != ReasonDone {
		t.Errorf("stop reasons = %v, want [done]", got)
	}
	if writes := rig.ps.writeLog(); len(writes) != 0 {
		t.Errorf("supply writes = %v, want none on the completion pass", writes)
	}
}

func TestMagUpCancelWhenIdle(t *testing.T) {
	rig := newMagUpRig(t, testSettingsConfig())

	rig.ctl.Cancel()

	if got, want := rig.elog.lastEntry(), "No mag up in progress."; got != want {
		t.Errorf("log entry = %q, want %q", got, want)
	}
	if got := rig.events.magupStopReasons(); len(got) != 0 {
		t.Errorf("stop reasons = %v, want none for an idle cancel", got)
	}
}

func TestMagUpStepStopsWhenModeCleared(t *testing.T) {
	rig := newMagUpRig(t, testSettingsConfig())

	// Mode is idle: a cancel landed between loop iterations.
	if rig.ctl.step(context.Background()) {
		t.Error("step() = true with mode idle, want false")
	}
	if writes := rig.ps.writeLog(); len(writes) != 0 {
		t.Errorf("supply writes = %v, want none", writes)
	}
}
