// Package control implements the three loops that run an ADR cycle:
// the state poller, the mag-up ramp, and the PID regulation loop.
//
// Architecture:
//
//	┌────────────────────────────────────────────────────────────┐
//	│                    Poller (poller.go)                       │
//	│  One pass per step period: read every instrument into a     │
//	│  fresh sample, commit it, record it, publish it.            │
//	│  ┌──────────────┐   ┌──────────────┐   ┌───────────────┐  │
//	│  │ state.Store  │◀──│  instrument  │   │  telemetry    │  │
//	│  │ current/last │   │  .Registry   │   │  .Recorder    │  │
//	│  └──────────────┘   └──────────────┘   └───────────────┘  │
//	│        ▲                                                    │
//	│        │ snapshots (current + last for derivatives)         │
//	│  ┌─────┴──────────────┐   ┌──────────────────────────┐    │
//	│  │  MagUpController   │   │  RegulationController     │    │
//	│  │  (magup.go)        │   │  (regulate.go)            │    │
//	│  │  fixed dV steps,   │   │  PID proposal through a   │    │
//	│  │  EMF + dI/dt gated │   │  fixed clamp cascade      │    │
//	│  └────────────────────┘   └──────────────────────────┘    │
//	└────────────────────────────────────────────────────────────┘
//
// # Key Types
//
//   - Poller: samples instruments once per step period
//   - MagUpController: ramps the magnet to the current limit
//   - RegulationController: holds the FAA stage at a setpoint
//   - Settings: live tunables (PID gains adjustable at runtime)
//   - Events: lifecycle notification sink, implemented by the MQTT layer
//
// # Mutual Exclusion
//
// The mag-up and regulation loops never run together. Both acquire the
// magnet by an atomic idle-to-active mode transition on the state store;
// the loser of a concurrent start is rejected with an operator log
// entry. The poller runs regardless of mode.
//
// # Failure Policy
//
// Instrument reads and writes never stop a loop by themselves: a failed
// call marks the instrument disconnected and substitutes NaN readings.
// Regulation is the exception in that a NaN feedback temperature stops
// the loop, since PID control without feedback is not control.
//
// # Usage
//
//	settings := control.NewSettings(cfg.ADR.Settings)
//	poller := control.NewPoller(store, devices, settings, recorder, events, log)
//	go poller.Run(ctx)
//
//	magup := control.NewMagUpController(store, devices, settings, elog, events, log)
//	if err := magup.Start(ctx); err != nil { ... }
package control
