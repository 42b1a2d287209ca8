package control

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/coldstage/adr-core/internal/infrastructure/logging"
	"github.com/coldstage/adr-core/internal/instrument"
	"github.com/coldstage/adr-core/internal/state"
)

// MagUpController ramps the magnet to the configured current limit by
// raising the supply voltage in fixed increments, one per step period.
// Each step is gated on the measured back-EMF and the observed current
// slew: the back-EMF is the only observable proxy for magnetization
// rate, and a current spike can quench the magnet.
type MagUpController struct {
	store    *state.Store
	devices  *instrument.Registry
	settings *Settings
	elog     OperatorLog
	events   Events
	logger   *logging.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewMagUpController assembles the ramp controller.
func NewMagUpController(store *state.Store, devices *instrument.Registry, settings *Settings,
	elog OperatorLog, events Events, logger *logging.Logger) *MagUpController {
	return &MagUpController{
		store:    store,
		devices:  devices,
		settings: settings,
		elog:     elog,
		events:   events,
		logger:   logger,
	}
}

// Start begins a ramp toward the current limit. The request is rejected
// while a ramp or a regulation run is active, or while the power supply
// or the magnet voltage monitor is disconnected; every rejection leaves
// an operator log entry. The ramp itself runs in a background loop
// bound to ctx.
func (c *MagUpController) Start(ctx context.Context) error {
	switch c.store.Mode() {
	case state.ModeMagUp:
		c.elog.Log("Already magging up.")
		return ErrAlreadyRunning
	case state.ModeRegulate:
		c.elog.Log("Currently in PID control loop regulation. Please wait until finished.")
		return ErrBusy
	}

	if msg, ok := essentialDevices(c.devices, "Cannot mag up",
		instrument.RolePowerSupply, instrument.RoleMagnetVoltage); !ok {
		c.elog.Alert(msg)
		return ErrDevicesNotReady
	}

	if !c.store.TryTransition(state.ModeIdle, state.ModeMagUp) {
		// Lost the magnet to a concurrent regulation start.
		c.elog.Log("Currently in PID control loop regulation. Please wait until finished.")
		return ErrBusy
	}

	cfg := c.settings.Get()
	c.events.MagUpStarted()
	c.elog.Log(fmt.Sprintf("Beginning to mag up to %v Amps.", cfg.CurrentLimit))

	runCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	go func() {
		defer cancel()
		runEvery(runCtx, c.settings.StepPeriod, c.step)
	}()

	c.logger.Info("mag up started", "target_amps", cfg.CurrentLimit)
	return nil
}

// step performs one ramp iteration. It reports whether the loop should
// keep running.
func (c *MagUpController) step(ctx context.Context) bool {
	if c.store.Mode() != state.ModeMagUp {
		return false
	}
	cur, last := c.store.Snapshot()
	cfg := c.settings.Get()

	if cur.PSCurrent < cfg.CurrentLimit {
		dt := cur.Time.Sub(last.Time).Seconds()
		if dt == 0 {
			dt = dtEpsilon
		}
		dIdt := (cur.PSCurrent - last.PSCurrent) / dt

		// Hold the voltage while the back-EMF or the current slew is at
		// its limit; the gate reopens on a later cycle.
		if cur.MagnetV < cfg.MagnetVoltageLimit && math.Abs(dIdt) < cfg.DIdTMagUpLimit {
			next := cur.PSVoltage + cfg.MagUpDV
			if next > cfg.VoltageLimit {
				next = cfg.VoltageLimit
			}
			setSupplyVoltage(ctx, c.devices, c.logger, next)
		}
		return true
	}

	c.elog.Log(fmt.Sprintf("Finished magging up. %v Amps reached.", cur.PSCurrent))
	c.store.TryTransition(state.ModeMagUp, state.ModeIdle)
	c.events.MagUpStopped(ReasonDone)
	c.logger.Info("mag up finished", "amps", cur.PSCurrent)
	return false
}

// Cancel stops an active ramp. The loop exits before its next step. A
// cancel with no ramp running only leaves a log entry.
func (c *MagUpController) Cancel() {
	if !c.store.TryTransition(state.ModeMagUp, state.ModeIdle) {
		c.elog.Log("No mag up in progress.")
		return
	}
	cur := c.store.Current()
	c.elog.Log(fmt.Sprintf("Magging up stopped at a current of %v Amps.", cur.PSCurrent))
	c.events.MagUpStopped(ReasonCancel)
	c.stopLoop()
	c.logger.Info("mag up cancelled", "amps", cur.PSCurrent)
}

func (c *MagUpController) stopLoop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
