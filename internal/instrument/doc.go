// Package instrument defines the four instrument roles the core drives
// and tracks their live connectivity.
//
// # Architecture
//
// Each role is a narrow interface: the power supply, the diode
// temperature monitor, the Ruox temperature monitor, and the magnet
// voltage monitor. A backend (selected in config) provides concrete
// implementations; the in-tree "sim" backend models a magnet well enough
// to exercise every control path without hardware.
//
// The Registry owns the role-to-instrument wiring and the connectivity
// flags. Flags flip false when a read fails and true again on the next
// success, so they always reflect the most recent attempt. RefreshAll
// re-establishes sessions on demand, logging transitions to the operator
// log exactly once per state change.
//
// # Usage
//
//	set, err := instrument.New(cfg.Instruments)
//	if err != nil {
//	    return err
//	}
//	reg := instrument.NewRegistry(set)
//	reg.SetEventLogger(eventLog)
//	reg.RefreshAll(ctx)
//
//	if reg.Connected(instrument.RolePowerSupply) {
//	    v, err := reg.PowerSupply().Voltage(ctx)
//	    ...
//	}
package instrument
