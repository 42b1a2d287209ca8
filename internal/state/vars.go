package state

import "time"

// Var looks up a single state variable by name and returns a
// JSON-encodable value. The names are the ones ADR operators have always
// used, kept stable so existing client scripts keep working.
//
// Times are returned as RFC 3339 strings; the mode flags maggingUp and
// regulating derive from the tagged mode.
func (s *Store) Var(name string) (any, error) {
	cur := s.Current()
	mode := s.Mode()

	switch name {
	case "T_60K":
		return cur.T60K, nil
	case "T_3K":
		return cur.T3K, nil
	case "T_GGG":
		return cur.TGGG, nil
	case "T_FAA":
		return cur.TFAA, nil
	case "datetime":
		return cur.Time.Format(time.RFC3339), nil
	case "cycle":
		return cur.Cycle, nil
	case "magnetV":
		return cur.MagnetV, nil
	case "PSCurrent":
		return cur.PSCurrent, nil
	case "PSVoltage":
		return cur.PSVoltage, nil
	case "RuOxChan":
		return string(cur.RuoxChan), nil
	case "RuOxChanSetTime":
		return cur.RuoxChanSetAt.Format(time.RFC3339), nil
	case "regulationTemp":
		return cur.RegulationTemp, nil
	case "PID_cumulativeError":
		return cur.PIDCumulativeError, nil
	case "maggingUp":
		return mode == ModeMagUp, nil
	case "regulating":
		return mode == ModeRegulate, nil
	case "PSConnected":
		return cur.PSConnected, nil
	case "DiodeTempMonitorConnected":
		return cur.DiodeConnected, nil
	case "RuoxTempMonitorConnected":
		return cur.RuoxConnected, nil
	case "MagnetVMonitorConnected":
		return cur.MagnetVConnected, nil
	default:
		return nil, ErrUnknownVariable
	}
}
