package instrument

import (
	"context"
	"sync"
)

// EventLogger records operator-facing log entries. The eventlog package
// satisfies this; tests use a stub.
type EventLogger interface {
	Log(message string)
	Alert(message string)
}

// noopEventLogger drops everything.
type noopEventLogger struct{}

func (noopEventLogger) Log(string)   {}
func (noopEventLogger) Alert(string) {}

// Registry wires the four instrument roles and tracks live connectivity.
//
// Connectivity flags reflect the most recent attempt against each
// instrument: the poller flips them on read success/failure, and
// RefreshAll flips them on reconnect attempts. All methods are
// thread-safe.
type Registry struct {
	set Set

	mu        sync.RWMutex
	connected map[Role]bool

	eventLog EventLogger
}

// NewRegistry creates a registry over a backend's instrument set.
// All roles start disconnected until RefreshAll or a successful read.
func NewRegistry(set Set) *Registry {
	return &Registry{
		set: set,
		connected: map[Role]bool{
			RolePowerSupply:   false,
			RoleDiodeMonitor:  false,
			RoleRuoxMonitor:   false,
			RoleMagnetVoltage: false,
		},
		eventLog: noopEventLogger{},
	}
}

// SetEventLogger routes connect/disconnect transitions to the operator log.
func (r *Registry) SetEventLogger(l EventLogger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.eventLog = l
}

// PowerSupply returns the power supply instrument.
func (r *Registry) PowerSupply() PowerSupply { return r.set.PowerSupply }

// Diode returns the diode temperature monitor.
func (r *Registry) Diode() DiodeMonitor { return r.set.Diode }

// Ruox returns the Ruox temperature monitor.
func (r *Registry) Ruox() RuoxMonitor { return r.set.Ruox }

// MagnetV returns the magnet voltage monitor.
func (r *Registry) MagnetV() MagnetVoltageMonitor { return r.set.MagnetV }

// Connected reports the live connectivity of one role.
func (r *Registry) Connected(role Role) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.connected[role]
}

// SetConnected records the outcome of an instrument call. The poller
// calls this after every read so the flags track reality.
func (r *Registry) SetConnected(role Role, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connected[role] = ok
}

// Status returns a copy of the role-to-connectivity mapping.
func (r *Registry) Status() map[Role]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := make(map[Role]bool, len(r.connected))
	for role, ok := range r.connected {
		status[role] = ok
	}
	return status
}

// RefreshAll re-establishes the session with every instrument.
//
// Each role is attempted independently; one failure never blocks the
// others. Transitions are logged once: a reconnect logs an info line, a
// failure logs an alert telling the operator what to check.
func (r *Registry) RefreshAll(ctx context.Context) {
	r.refresh(ctx, RolePowerSupply, r.set.PowerSupply, "Power Supply Connected and initialized.")
	r.refresh(ctx, RoleRuoxMonitor, r.set.Ruox, "Ruox Temperature Monitor Connected.")
	r.refresh(ctx, RoleDiodeMonitor, r.set.Diode, "Diode Temperature Monitor Connected.")
	r.refresh(ctx, RoleMagnetVoltage, r.set.MagnetV, "Magnet Voltage Monitor Connected.")
}

// refresh attempts one role's Connect and reconciles its flag.
func (r *Registry) refresh(ctx context.Context, role Role, dev Device, connectedMsg string) {
	if dev == nil {
		return
	}

	err := dev.Connect(ctx)

	r.mu.Lock()
	was := r.connected[role]
	r.connected[role] = err == nil
	log := r.eventLog
	r.mu.Unlock()

	if err != nil {
		log.Alert("Could not connect to " + string(role) + ". Check that it is turned on and the server is running.")
		return
	}
	if !was {
		log.Log(connectedMsg)
	}
}
