package api

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/coldstage/adr-core/internal/infrastructure/config"
	"github.com/coldstage/adr-core/internal/instrument"
	"github.com/coldstage/adr-core/internal/state"
)

// defaultRegulateTemp is the setpoint used when a regulate request
// carries no temp parameter, in kelvin.
const defaultRegulateTemp = 0.1

// handleGetLog returns the last n operator log entries, oldest first.
// n = 0 (or absent) returns everything.
func (s *Server) handleGetLog(req RequestMessage) ResponseMessage {
	n, _, err := intParam(req.Params, "n")
	if err != nil {
		return errResponse(req.RequestID, ErrCodeInvalidParameters, err.Error())
	}
	return okResponse(req.RequestID, map[string]any{"entries": s.elog.LastN(n)})
}

// handleGetStateVar looks up one state variable by its operator name.
func (s *Server) handleGetStateVar(req RequestMessage) ResponseMessage {
	name, ok, err := stringParam(req.Params, "name")
	if err != nil {
		return errResponse(req.RequestID, ErrCodeInvalidParameters, err.Error())
	}
	if !ok {
		return errResponse(req.RequestID, ErrCodeInvalidParameters, "name is required")
	}

	value, err := s.store.Var(name)
	if err != nil {
		return errResponse(req.RequestID, ErrCodeInvalidParameters,
			fmt.Sprintf("unknown state variable: %s", name))
	}
	return okResponse(req.RequestID, map[string]any{"name": name, "value": jsonValue(value)})
}

// handleTemperatures returns the four stage temperatures in wire order:
// 60K, 3K, GGG, FAA.
func (s *Server) handleTemperatures(req RequestMessage) ResponseMessage {
	temps := s.store.Current().Temperatures()
	out := make([]any, len(temps))
	for i, v := range temps {
		out[i] = jsonFloat(v)
	}
	return okResponse(req.RequestID, map[string]any{"temperatures": out})
}

// handleRegulate starts regulation toward the requested setpoint, or
// retargets a live run.
func (s *Server) handleRegulate(req RequestMessage) ResponseMessage {
	temp, ok, err := floatParam(req.Params, "temp")
	if err != nil {
		return errResponse(req.RequestID, ErrCodeInvalidParameters, err.Error())
	}
	if !ok {
		temp = defaultRegulateTemp
	}

	if err := s.regulation.Start(s.ctx, temp); err != nil {
		return errResponse(req.RequestID, ErrCodeRejected, err.Error())
	}
	return okResponse(req.RequestID, map[string]any{"target": temp})
}

// handleMagUp starts the mag-up ramp.
func (s *Server) handleMagUp(req RequestMessage) ResponseMessage {
	if err := s.magup.Start(s.ctx); err != nil {
		return errResponse(req.RequestID, ErrCodeRejected, err.Error())
	}
	return okResponse(req.RequestID, nil)
}

// handleRefreshInstruments re-initializes every instrument handle and
// reports the resulting connectivity.
func (s *Server) handleRefreshInstruments(req RequestMessage) ResponseMessage {
	ctx, cancel := context.WithTimeout(s.ctx, refreshTimeout)
	defer cancel()

	s.devices.RefreshAll(ctx)
	return okResponse(req.RequestID, map[string]any{"connections": roleStatus(s.devices.Status())})
}

// handleAddToLog appends an operator-supplied message to the log.
// Blank messages are accepted and dropped, not logged.
func (s *Server) handleAddToLog(req RequestMessage) ResponseMessage {
	message, ok, err := stringParam(req.Params, "message")
	if err != nil {
		return errResponse(req.RequestID, ErrCodeInvalidParameters, err.Error())
	}
	if !ok {
		return errResponse(req.RequestID, ErrCodeInvalidParameters, "message is required")
	}

	if message != "" {
		s.elog.Log(message)
	}
	return okResponse(req.RequestID, nil)
}

// handleSetGain applies one PID gain setter. The setter logs the change.
func (s *Server) handleSetGain(req RequestMessage, set func(float64)) ResponseMessage {
	value, ok, err := floatParam(req.Params, "value")
	if err != nil {
		return errResponse(req.RequestID, ErrCodeInvalidParameters, err.Error())
	}
	if !ok {
		return errResponse(req.RequestID, ErrCodeInvalidParameters, "value is required")
	}

	set(value)
	return okResponse(req.RequestID, map[string]any{"value": value})
}

// handleGetSettings returns the live tunables under their config keys.
func (s *Server) handleGetSettings(req RequestMessage) ResponseMessage {
	return okResponse(req.RequestID, settingsData(s.settings.Get()))
}

// handleSelectRuoxChannel switches the monitor's active channel and
// stamps the settle clock, so readings are held until the electronics
// settle on the new channel.
func (s *Server) handleSelectRuoxChannel(req RequestMessage) ResponseMessage {
	name, ok, err := stringParam(req.Params, "channel")
	if err != nil {
		return errResponse(req.RequestID, ErrCodeInvalidParameters, err.Error())
	}
	if !ok {
		return errResponse(req.RequestID, ErrCodeInvalidParameters, "channel is required")
	}

	var ch state.Channel
	switch name {
	case string(state.ChannelGGG):
		ch = state.ChannelGGG
	case string(state.ChannelFAA):
		ch = state.ChannelFAA
	default:
		return errResponse(req.RequestID, ErrCodeInvalidParameters,
			`channel must be "GGG" or "FAA"`)
	}

	ctx, cancel := context.WithTimeout(s.ctx, requestTimeout)
	defer cancel()

	if err := s.devices.Ruox().SelectChannel(ctx, ch); err != nil {
		s.devices.SetConnected(instrument.RoleRuoxMonitor, false)
		return errResponse(req.RequestID, ErrCodeDeviceUnreachable,
			fmt.Sprintf("channel switch failed: %v", err))
	}

	s.store.SelectRuoxChannel(ch, time.Now())
	s.elog.Log(fmt.Sprintf("Ruox channel set to %s.", ch))
	return okResponse(req.RequestID, map[string]any{"channel": name})
}

// handleGetRuns returns the most recent mag-up and regulation runs.
func (s *Server) handleGetRuns(req RequestMessage) ResponseMessage {
	n, _, err := intParam(req.Params, "n")
	if err != nil {
		return errResponse(req.RequestID, ErrCodeInvalidParameters, err.Error())
	}

	ctx, cancel := context.WithTimeout(s.ctx, requestTimeout)
	defer cancel()

	runs, err := s.runs.List(ctx, n)
	if err != nil {
		s.logger.Error("run history read failed", "error", err)
		return errResponse(req.RequestID, ErrCodeInternal, "run history unavailable")
	}
	return okResponse(req.RequestID, map[string]any{"runs": runs})
}

// settingsData mirrors the config keys so a read-back matches what an
// operator would write in config.yaml.
func settingsData(cfg config.SettingsConfig) map[string]any {
	return map[string]any{
		"pid_kp":               cfg.PIDKP,
		"pid_ki":               cfg.PIDKI,
		"pid_kd":               cfg.PIDKD,
		"magup_dv":             cfg.MagUpDV,
		"magnet_voltage_limit": cfg.MagnetVoltageLimit,
		"current_limit":        cfg.CurrentLimit,
		"voltage_limit":        cfg.VoltageLimit,
		"dvdt_limit":           cfg.DVdTLimit,
		"didt_magup_limit":     cfg.DIdTMagUpLimit,
		"didt_regulate_limit":  cfg.DIdTRegulateLimit,
		"step_length":          cfg.StepLength,
		"ggg_out_of_range":     cfg.GGGOutOfRange,
		"faa_out_of_range":     cfg.FAAOutOfRange,
	}
}

// roleStatus flattens the registry's role map for JSON.
func roleStatus(status map[instrument.Role]bool) map[string]bool {
	out := make(map[string]bool, len(status))
	for role, up := range status {
		out[string(role)] = up
	}
	return out
}

// floatParam extracts a numeric parameter. The bool reports presence;
// a present value of the wrong type is an error.
func floatParam(params map[string]any, key string) (float64, bool, error) {
	raw, ok := params[key]
	if !ok {
		return 0, false, nil
	}
	v, ok := raw.(float64)
	if !ok {
		return 0, false, fmt.Errorf("parameter %q must be a number", key)
	}
	return v, true, nil
}

// intParam extracts an integer parameter. JSON numbers arrive as
// float64; the fraction is discarded.
func intParam(params map[string]any, key string) (int, bool, error) {
	v, ok, err := floatParam(params, key)
	return int(v), ok, err
}

// stringParam extracts a string parameter.
func stringParam(params map[string]any, key string) (string, bool, error) {
	raw, ok := params[key]
	if !ok {
		return "", false, nil
	}
	v, ok := raw.(string)
	if !ok {
		return "", false, fmt.Errorf("parameter %q must be a string", key)
	}
	return v, true, nil
}

// jsonFloat converts a reading for JSON encoding. NaN (no reading) and
// infinities have no JSON representation and travel as null.
func jsonFloat(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

// jsonValue applies the float conversion to state variable lookups,
// whose values arrive untyped.
func jsonValue(v any) any {
	if f, ok := v.(float64); ok {
		return jsonFloat(f)
	}
	return v
}
