package instrument

import (
	"context"
	"sync"
	"time"

	"github.com/coldstage/adr-core/internal/state"
)

// Sim model constants. Chosen so the stock settings (9 A limit, 2 V
// ceiling, 3 mV steps) drive the model through a full mag-up and
// regulation cycle in realistic time.
const (
	// simInductance is the magnet inductance in henries.
	simInductance = 30.0

	// simResistance is the lead resistance in ohms. 9 A at 2 V steady
	// state needs roughly 0.22 ohm.
	simResistance = 0.22

	// simMaxVoltage is the supply's hardware output ceiling in volts.
	simMaxVoltage = 10.0

	// simTimeConstant is the Ruox reader's filter time constant.
	simTimeConstant = 300 * time.Millisecond

	// Stage temperatures in kelvin. The outer stages sit at their base
	// values; the mixing stages track magnet current.
	sim60KBase   = 48.0
	sim3KBase    = 3.2
	simGGGBase   = 1.0
	simGGGPerAmp = 0.02
	simFAABase   = 0.05
	simFAAPerAmp = 0.05
)

// Sim models the magnet circuit and stage temperatures well enough to
// exercise every control path without hardware.
//
// Electrical model: the supply drives the magnet (inductance L, lead
// resistance R) in voltage mode. Current relaxes toward V/R, and the
// back-EMF across the leads is V - I*R, so it spikes when the voltage
// steps up and decays to zero as the current catches up.
//
// Thermal model: the FAA pill warms with magnet current (magnetization
// heat) and cools as current is removed, which gives the PID a real
// plant to regulate against.
//
// The model advances lazily: every read or write first integrates the
// circuit forward from the previous access. All methods are safe for
// concurrent use.
type Sim struct {
	mu       sync.Mutex
	clock    func() time.Time
	lastStep time.Time

	voltage float64 // commanded supply voltage
	current float64 // magnet current
	channel state.Channel
}

// NewSim creates a simulator at rest: zero volts, zero amps, FAA selected.
func NewSim() *Sim {
	now := time.Now()
	return &Sim{
		clock:    time.Now,
		lastStep: now,
		channel:  state.ChannelFAA,
	}
}

// step integrates the circuit forward to the current clock reading.
// Callers must hold mu.
func (s *Sim) step() {
	now := s.clock()
	dt := now.Sub(s.lastStep).Seconds()
	s.lastStep = now
	if dt <= 0 {
		return
	}

	// dI/dt = (V - I*R) / L, integrated in sub-steps so a long gap
	// between reads cannot overshoot the steady state.
	const maxSubStep = 0.5
	for dt > 0 {
		h := dt
		if h > maxSubStep {
			h = maxSubStep
		}
		dIdt := (s.voltage - s.current*simResistance) / simInductance
		s.current += dIdt * h
		if s.current < 0 {
			s.current = 0
		}
		dt -= h
	}
}

// backEMF returns the voltage across the magnet leads. Callers must hold mu.
func (s *Sim) backEMF() float64 {
	return s.voltage - s.current*simResistance
}

// tFAA returns the FAA pill temperature. Callers must hold mu.
func (s *Sim) tFAA() float64 {
	return simFAABase + simFAAPerAmp*s.current
}

// tGGG returns the GGG stage temperature. Callers must hold mu.
func (s *Sim) tGGG() float64 {
	return simGGGBase + simGGGPerAmp*s.current
}

// PowerSupply returns the simulated power supply.
func (s *Sim) PowerSupply() PowerSupply { return simPowerSupply{s} }

// Diode returns the simulated diode temperature monitor.
func (s *Sim) Diode() DiodeMonitor { return simDiode{s} }

// Ruox returns the simulated Ruox temperature monitor.
func (s *Sim) Ruox() RuoxMonitor { return simRuox{s} }

// MagnetV returns the simulated magnet voltage monitor.
func (s *Sim) MagnetV() MagnetVoltageMonitor { return simMagnetV{s} }

type simPowerSupply struct{ s *Sim }

func (p simPowerSupply) Connect(ctx context.Context) error { return ctx.Err() }

func (p simPowerSupply) Current(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	p.s.step()
	return p.s.current, nil
}

func (p simPowerSupply) Voltage(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	p.s.step()
	return p.s.voltage, nil
}

func (p simPowerSupply) SetVoltage(ctx context.Context, v float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	p.s.step()

	// The supply clamps rather than rejecting out-of-range programming.
	if v < 0 {
		v = 0
	}
	if v > simMaxVoltage {
		v = simMaxVoltage
	}
	p.s.voltage = v
	return nil
}

type simDiode struct{ s *Sim }

func (d simDiode) Connect(ctx context.Context) error { return ctx.Err() }

func (d simDiode) Temperatures(ctx context.Context) (float64, float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	d.s.step()
	// The 3K stage picks up a little compressor load as current rises.
	return sim60KBase, sim3KBase + 0.01*d.s.current, nil
}

type simRuox struct{ s *Sim }

func (r simRuox) Connect(ctx context.Context) error { return ctx.Err() }

func (r simRuox) TimeConstant(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return simTimeConstant, nil
}

func (r simRuox) Temperature(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.step()
	if r.s.channel == state.ChannelGGG {
		return r.s.tGGG(), nil
	}
	return r.s.tFAA(), nil
}

func (r simRuox) SelectChannel(ctx context.Context, ch state.Channel) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.channel = ch
	return nil
}

type simMagnetV struct{ s *Sim }

func (m simMagnetV) Connect(ctx context.Context) error { return ctx.Err() }

func (m simMagnetV) MagnetVoltage(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.step()
	return m.s.backEMF(), nil
}
