package control

import (
	"context"
	"fmt"
	"strings"

	"github.com/coldstage/adr-core/internal/infrastructure/logging"
	"github.com/coldstage/adr-core/internal/instrument"
)

// essentialDevices verifies every listed role is connected. When one is
// not, it returns an operator-facing message listing each role's status
// and false.
func essentialDevices(devices *instrument.Registry, prefix string, roles ...instrument.Role) (string, bool) {
	allUp := true
	parts := make([]string, 0, len(roles))
	for _, role := range roles {
		up := devices.Connected(role)
		if !up {
			allUp = false
		}
		parts = append(parts, fmt.Sprintf("%s: %t", role, up))
	}
	if allUp {
		return "", true
	}
	msg := fmt.Sprintf("%s: At least one of the essential devices is not connected. Connections: %s.",
		prefix, strings.Join(parts, ", "))
	return msg, false
}

// setSupplyVoltage programs the power supply, demoting it to
// disconnected when the write fails. The loops keep running on a write
// failure; the poller's NaN readings and the start guards take over
// from there.
func setSupplyVoltage(ctx context.Context, devices *instrument.Registry, logger *logging.Logger, v float64) {
	if err := devices.PowerSupply().SetVoltage(ctx, v); err != nil {
		devices.SetConnected(instrument.RolePowerSupply, false)
		logger.Warn("power supply voltage write failed", "volts", v, "error", err)
	}
}
