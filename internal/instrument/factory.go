package instrument

import (
	"fmt"

	"github.com/coldstage/adr-core/internal/infrastructure/config"
)

// New creates the instrument set for the configured backend.
//
// The only in-tree backend is "sim". Hardware backends register here as
// they are written; an unrecognized name is a startup error rather than
// a silent fallback.
func New(cfg config.InstrumentsConfig) (Set, error) {
	switch cfg.Backend {
	case "sim":
		sim := NewSim()
		return Set{
			PowerSupply: sim.PowerSupply(),
			Diode:       sim.Diode(),
			Ruox:        sim.Ruox(),
			MagnetV:     sim.MagnetV(),
		}, nil
	default:
		return Set{}, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
