package instrument

import (
	"context"
	"time"

	"github.com/coldstage/adr-core/internal/state"
)

// Role names an instrument's job in the fridge. The strings match what
// operators see in the log.
type Role string

// The four instrument roles.
const (
	RolePowerSupply   Role = "Power Supply"
	RoleDiodeMonitor  Role = "Diode Temperature Monitor"
	RoleRuoxMonitor   Role = "Ruox Temperature Monitor"
	RoleMagnetVoltage Role = "Magnet Voltage Monitor"
)

// Device is the surface every instrument shares. Connect (re)establishes
// the session with the hardware; it is safe to call repeatedly.
type Device interface {
	Connect(ctx context.Context) error
}

// PowerSupply drives the magnet. Connect also runs the supply's
// initialization sequence (output on, current mode, zeroed setpoints).
type PowerSupply interface {
	Device

	// Current reads the supply output current in amps.
	Current(ctx context.Context) (float64, error)

	// Voltage reads the supply output voltage in volts.
	Voltage(ctx context.Context) (float64, error)

	// SetVoltage programs the supply output voltage.
	SetVoltage(ctx context.Context, v float64) error
}

// DiodeMonitor reads the two diode thermometers on the outer stages.
type DiodeMonitor interface {
	Device

	// Temperatures reads the 60K and 3K stage temperatures in kelvin.
	Temperatures(ctx context.Context) (t60K, t3K float64, err error)
}

// RuoxMonitor reads the multiplexed resistance thermometer on the
// mixing stages. One channel is active at a time; readings taken before
// the electronics settle after a switch are unreliable.
type RuoxMonitor interface {
	Device

	// TimeConstant reports the filter time constant of the reader.
	TimeConstant(ctx context.Context) (time.Duration, error)

	// Temperature reads the active channel's temperature in kelvin.
	Temperature(ctx context.Context) (float64, error)

	// SelectChannel switches the active channel.
	SelectChannel(ctx context.Context, ch state.Channel) error
}

// MagnetVoltageMonitor reads the back-EMF across the magnet leads.
type MagnetVoltageMonitor interface {
	Device

	// MagnetVoltage reads the lead-to-lead voltage in volts.
	MagnetVoltage(ctx context.Context) (float64, error)
}

// Set bundles one instrument per role, as produced by a backend.
type Set struct {
	PowerSupply PowerSupply
	Diode       DiodeMonitor
	Ruox        RuoxMonitor
	MagnetV     MagnetVoltageMonitor
}
