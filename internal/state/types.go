package state

import (
	"math"
	"time"
)

// Mode says which controller, if any, currently owns the magnet.
type Mode int32

// Controller modes. Exactly one is active at a time.
const (
	ModeIdle Mode = iota
	ModeMagUp
	ModeRegulate
)

// String returns the mode name used in status payloads and logs.
func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeMagUp:
		return "magup"
	case ModeRegulate:
		return "regulate"
	default:
		return "unknown"
	}
}

// Channel identifies a Ruox thermometer channel on the mixing stages.
type Channel string

// Ruox channels. The monitor multiplexes one at a time.
const (
	ChannelFAA Channel = "FAA"
	ChannelGGG Channel = "GGG"
)

// SystemState is one snapshot of everything the core knows about the
// fridge: the four stage temperatures, the magnet and supply readings,
// instrument connectivity, and the operator-settable fields.
//
// Temperatures and electrical readings are NaN when the backing
// instrument is disconnected or a read failed. Connectivity flags are
// stamped from the instrument registry each poll cycle, so a snapshot is
// internally coherent even if an instrument drops mid-cycle.
type SystemState struct {
	// Time is the wall-clock stamp of the poll cycle that produced this
	// snapshot.
	Time time.Time

	// Cycle increments once per completed poll cycle.
	Cycle uint64

	// Stage temperatures in kelvin. T60K and T3K come from the diode
	// monitor; TGGG and TFAA from the Ruox monitor.
	T60K float64
	T3K  float64
	TGGG float64
	TFAA float64

	// MagnetV is the back-EMF across the magnet leads, in volts.
	MagnetV float64

	// PSCurrent and PSVoltage are the power-supply output readings.
	PSCurrent float64
	PSVoltage float64

	// RuoxChan is the currently selected Ruox channel; RuoxChanSetAt is
	// when it was last switched. Readings taken before the sensor
	// electronics settle after a switch are skipped.
	RuoxChan      Channel
	RuoxChanSetAt time.Time

	// RegulationTemp is the PID setpoint in kelvin.
	RegulationTemp float64

	// PIDCumulativeError is the regulation integral term, mirrored here
	// so it is inspectable over the command surface.
	PIDCumulativeError float64

	// Instrument connectivity as of this snapshot.
	PSConnected      bool
	DiodeConnected   bool
	RuoxConnected    bool
	MagnetVConnected bool
}

// newSystemState returns the startup snapshot: all readings NaN, all
// instruments disconnected, FAA selected, 100 mK setpoint.
func newSystemState(now time.Time) SystemState {
	nan := math.NaN()
	return SystemState{
		Time:           now,
		T60K:           nan,
		T3K:            nan,
		TGGG:           nan,
		TFAA:           nan,
		MagnetV:        nan,
		PSCurrent:      nan,
		PSVoltage:      nan,
		RuoxChan:       ChannelFAA,
		RuoxChanSetAt:  now,
		RegulationTemp: 0.1,
	}
}

// Temperatures returns the four stage temperatures in wire order:
// 60K stage, 3K stage, GGG, FAA.
func (s SystemState) Temperatures() [4]float64 {
	return [4]float64{s.T60K, s.T3K, s.TGGG, s.TFAA}
}
