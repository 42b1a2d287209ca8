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

// RegulationController holds the FAA stage at a target temperature by
// running a PID loop on the supply voltage, one iteration per step
// period. Every proposed voltage step passes through a fixed clamp
// cascade: the hard current and voltage ceilings come first, then the
// back-EMF bounds, then the slew-rate smoothing, so a smoothed step can
// never ride past a safety bound.
type RegulationController struct {
	store    *state.Store
	devices  *instrument.Registry
	settings *Settings
	elog     OperatorLog
	events   Events
	logger   *logging.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewRegulationController assembles the PID controller.
func NewRegulationController(store *state.Store, devices *instrument.Registry, settings *Settings,
	elog OperatorLog, events Events, logger *logging.Logger) *RegulationController {
	return &RegulationController{
		store:    store,
		devices:  devices,
		settings: settings,
		elog:     elog,
		events:   events,
		logger:   logger,
	}
}

// Start begins regulating toward target kelvin. While a run is already
// active the call is a live retarget: the setpoint changes in place and
// the loop keeps running, integral term intact. A fresh start is
// rejected while magging up or while any essential instrument is
// disconnected, and begins with a zeroed integral term otherwise.
func (c *RegulationController) Start(ctx context.Context, target float64) error {
	switch c.store.Mode() {
	case state.ModeMagUp:
		c.elog.Log("Currently magging up. Please wait until finished.")
		return ErrBusy
	case state.ModeRegulate:
		c.store.SetRegulationTemp(target)
		c.elog.Log(fmt.Sprintf("Setting regulation temperature to %vK.", target))
		c.logger.Info("regulation retargeted", "target_kelvin", target)
		return nil
	}

	if msg, ok := essentialDevices(c.devices, "Cannot regulate",
		instrument.RolePowerSupply, instrument.RoleDiodeMonitor,
		instrument.RoleRuoxMonitor, instrument.RoleMagnetVoltage); !ok {
		c.elog.Alert(msg)
		return ErrDevicesNotReady
	}

	if !c.store.TryTransition(state.ModeIdle, state.ModeRegulate) {
		// Lost the magnet to a concurrent mag-up start.
		c.elog.Log("Currently magging up. Please wait until finished.")
		return ErrBusy
	}

	c.store.SetRegulationTemp(target)
	c.store.SetPIDCumulativeError(0)

	cur := c.store.Current()
	c.events.RegulationStarted()
	c.elog.Log(fmt.Sprintf("Starting regulation to %vK from %v Amps.", target, cur.PSCurrent))

	runCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	go func() {
		defer cancel()
		runEvery(runCtx, c.settings.StepPeriod, c.step)
	}()

	c.logger.Info("regulation started", "target_kelvin", target, "amps", cur.PSCurrent)
	return nil
}

// step performs one PID iteration. It reports whether the loop should
// keep running.
func (c *RegulationController) step(ctx context.Context) bool {
	if c.store.Mode() != state.ModeRegulate {
		return false
	}
	cur, last := c.store.Snapshot()
	cfg := c.settings.Get()

	// Control without a feedback signal is not control. Stop before any
	// PID math or supply write can happen on garbage.
	if math.IsNaN(cur.TFAA) {
		c.elog.Alert("FAA temp is not valid. Regulation cannot continue.")
		c.store.TryTransition(state.ModeRegulate, state.ModeIdle)
		c.elog.Log(fmt.Sprintf("PID Control stopped at a current of %v Amps.", cur.PSCurrent))
		c.events.RegulationStopped(ReasonCancel)
		c.logger.Warn("regulation stopped on invalid FAA reading", "amps", cur.PSCurrent)
		return false
	}

	dt := cur.Time.Sub(last.Time).Seconds()
	if dt == 0 {
		dt = dtEpsilon
	}

	target := c.store.RegulationTemp()
	tempErr := target - cur.TFAA
	cum := cur.PIDCumulativeError + tempErr
	c.store.SetPIDCumulativeError(cum)

	dV := cfg.PIDKP*tempErr + cfg.PIDKI*cum + cfg.PIDKD*(last.TFAA-cur.TFAA)/dt

	// Clamp cascade. Order matters: ceilings and interlocks first, slew
	// smoothing last.
	if cur.PSCurrent > cfg.CurrentLimit && dV > 0 {
		dV = 0
	}
	if cur.PSVoltage+dV > cfg.VoltageLimit {
		dV = cfg.VoltageLimit - cur.PSVoltage
	}
	if dV < 0 {
		if floor := cur.MagnetV - cfg.MagnetVoltageLimit; dV < floor {
			dV = floor
		}
		if dV > 0 {
			dV = 0
		}
	}
	if dV > 0 {
		if ceil := cfg.MagnetVoltageLimit - cur.MagnetV; dV > ceil {
			dV = ceil
		}
		if dV < 0 {
			dV = 0
		}
	}
	if math.Abs(dV/dt) > cfg.DVdTLimit {
		dV = math.Copysign(cfg.DVdTLimit*dt, dV)
	}
	dIdt := (cur.PSCurrent - last.PSCurrent) / dt
	if math.Abs(dIdt) > cfg.DIdTRegulateLimit {
		dV = 0
	}

	// Zero supply voltage at steady state means the magnet has fully
	// demagnetized: the cycle is over, not broken.
	next := cur.PSVoltage + dV
	if next <= 0 {
		setSupplyVoltage(ctx, c.devices, c.logger, 0)
		c.elog.Log("Regulation has completed. Mag up and try again.")
		c.store.TryTransition(state.ModeRegulate, state.ModeIdle)
		c.events.RegulationStopped(ReasonDone)
		c.logger.Info("regulation completed", "amps", cur.PSCurrent)
		return false
	}

	setSupplyVoltage(ctx, c.devices, c.logger, next)
	return true
}

// Cancel stops an active run. The loop exits before its next step. A
// cancel with no run active only leaves a log entry.
func (c *RegulationController) Cancel() {
	if !c.store.TryTransition(state.ModeRegulate, state.ModeIdle) {
		c.elog.Log("No regulation in progress.")
		return
	}
	cur := c.store.Current()
	c.elog.Log(fmt.Sprintf("PID Control stopped at a current of %v Amps.", cur.PSCurrent))
	c.events.RegulationStopped(ReasonCancel)
	c.stopLoop()
	c.logger.Info("regulation cancelled", "amps", cur.PSCurrent)
}

func (c *RegulationController) stopLoop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
