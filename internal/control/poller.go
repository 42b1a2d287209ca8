package control

import (
	"context"
	"math"
	"time"

	"github.com/coldstage/adr-core/internal/infrastructure/config"
	"github.com/coldstage/adr-core/internal/infrastructure/logging"
	"github.com/coldstage/adr-core/internal/instrument"
	"github.com/coldstage/adr-core/internal/state"
	"github.com/coldstage/adr-core/internal/telemetry"
)

// ruoxSettleFactor scales the Ruox bridge time constant into the
// minimum age a channel selection must reach before its reading is
// trusted. An earlier reading still carries the previous channel's
// signal through the filter.
const ruoxSettleFactor = 10

// Poller drives the instrument sampling cycle. Once per step period it
// reads every instrument into a fresh sample, commits the sample as the
// new current state, appends the temperatures to the binary series, and
// publishes the committed state.
//
// A failed read never stops the cycle: the affected readings become NaN
// and the instrument is marked disconnected. The next successful read
// marks it connected again.
type Poller struct {
	store    *state.Store
	devices  *instrument.Registry
	settings *Settings
	recorder *telemetry.Recorder
	events   Events
	logger   *logging.Logger

	clock func() time.Time
}

// NewPoller assembles the sampling loop. Run must be called for it to
// do anything.
func NewPoller(store *state.Store, devices *instrument.Registry, settings *Settings,
	recorder *telemetry.Recorder, events Events, logger *logging.Logger) *Poller {
	return &Poller{
		store:    store,
		devices:  devices,
		settings: settings,
		recorder: recorder,
		events:   events,
		logger:   logger,
		clock:    time.Now,
	}
}

// Run samples instruments until ctx is cancelled. It blocks; callers
// run it in a goroutine.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("state poller started", "period", p.settings.StepPeriod())
	runEvery(ctx, p.settings.StepPeriod, func(ctx context.Context) bool {
		p.cycle(ctx)
		return true
	})
	p.logger.Info("state poller stopped")
}

// cycle performs one full sampling pass.
func (p *Poller) cycle(ctx context.Context) {
	sample := p.store.StartCycle()
	cfg := p.settings.Get()

	p.readDiode(ctx, &sample)
	p.readRuox(ctx, &sample, cfg)

	sample.Time = p.clock()
	sample.Cycle++

	p.readMagnetVoltage(ctx, &sample)
	p.readPowerSupply(ctx, &sample)

	p.store.CommitCycle(sample)

	if err := p.recorder.Record(sample); err != nil {
		p.logger.Warn("temperature record write failed", "error", err)
	}
	p.events.StateChanged(p.store.Current())
}

// readDiode fills the 60K and 3K stage temperatures.
func (p *Poller) readDiode(ctx context.Context, s *state.SystemState) {
	t60K, t3K, err := p.devices.Diode().Temperatures(ctx)
	if err != nil {
		s.T60K, s.T3K = math.NaN(), math.NaN()
		s.DiodeConnected = false
		p.devices.SetConnected(instrument.RoleDiodeMonitor, false)
		return
	}
	s.T60K, s.T3K = t60K, t3K
	s.DiodeConnected = true
	p.devices.SetConnected(instrument.RoleDiodeMonitor, true)
}

// readRuox fills the GGG and FAA temperatures from whichever channel is
// selected. The inactive channel's temperature is NaN: the monitor
// multiplexes one channel at a time.
func (p *Poller) readRuox(ctx context.Context, s *state.SystemState, cfg config.SettingsConfig) {
	ruox := p.devices.Ruox()

	tc, err := ruox.TimeConstant(ctx)
	if err != nil {
		s.TGGG, s.TFAA = math.NaN(), math.NaN()
		s.RuoxConnected = false
		p.devices.SetConnected(instrument.RoleRuoxMonitor, false)
		return
	}
	s.RuoxConnected = true
	p.devices.SetConnected(instrument.RoleRuoxMonitor, true)

	// A reading taken too soon after a channel switch still shows the
	// previous channel. Hold the selected channel's prior value until
	// the filter settles; the deselected channel is no longer measured.
	if p.clock().Sub(s.RuoxChanSetAt) < ruoxSettleFactor*tc {
		switch s.RuoxChan {
		case state.ChannelGGG:
			s.TFAA = math.NaN()
		default:
			s.TGGG = math.NaN()
		}
		return
	}

	temp, err := ruox.Temperature(ctx)
	if err != nil {
		s.TGGG, s.TFAA = math.NaN(), math.NaN()
		s.RuoxConnected = false
		p.devices.SetConnected(instrument.RoleRuoxMonitor, false)
		return
	}

	switch s.RuoxChan {
	case state.ChannelGGG:
		s.TGGG, s.TFAA = temp, math.NaN()
	default:
		s.TFAA, s.TGGG = temp, math.NaN()
	}

	// The monitor reports a fixed out-of-range value for an unplugged
	// sensor; treat it as no reading.
	if s.TGGG == cfg.GGGOutOfRange {
		s.TGGG = math.NaN()
	}
	if s.TFAA == cfg.FAAOutOfRange {
		s.TFAA = math.NaN()
	}
}

// readMagnetVoltage fills the back-EMF reading.
func (p *Poller) readMagnetVoltage(ctx context.Context, s *state.SystemState) {
	v, err := p.devices.MagnetV().MagnetVoltage(ctx)
	if err != nil {
		s.MagnetV = math.NaN()
		s.MagnetVConnected = false
		p.devices.SetConnected(instrument.RoleMagnetVoltage, false)
		return
	}
	s.MagnetV = v
	s.MagnetVConnected = true
	p.devices.SetConnected(instrument.RoleMagnetVoltage, true)
}

// readPowerSupply fills the supply current and voltage. The pair is
// taken together: if either read fails, both become NaN, so the
// controllers never see a mixed-age pair.
func (p *Poller) readPowerSupply(ctx context.Context, s *state.SystemState) {
	fail := func() {
		s.PSCurrent, s.PSVoltage = math.NaN(), math.NaN()
		s.PSConnected = false
		p.devices.SetConnected(instrument.RolePowerSupply, false)
	}

	ps := p.devices.PowerSupply()
	current, err := ps.Current(ctx)
	if err != nil {
		fail()
		return
	}
	voltage, err := ps.Voltage(ctx)
	if err != nil {
		fail()
		return
	}
	s.PSCurrent, s.PSVoltage = current, voltage
	s.PSConnected = true
	p.devices.SetConnected(instrument.RolePowerSupply, true)
}
