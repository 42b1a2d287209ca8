package control

import (
	"fmt"
	"sync"
	"time"

	"github.com/coldstage/adr-core/internal/infrastructure/config"
)

// Settings holds the live control tunables. Values are seeded from the
// loaded configuration; the PID gains can additionally be changed at
// runtime over the command surface while the loops keep running.
type Settings struct {
	mu   sync.RWMutex
	cfg  config.SettingsConfig
	elog OperatorLog
}

// NewSettings seeds the live tunables from configuration.
func NewSettings(cfg config.SettingsConfig) *Settings {
	return &Settings{cfg: cfg, elog: nopOperatorLog{}}
}

// SetOperatorLog routes gain-change notices to the operator event log.
func (s *Settings) SetOperatorLog(l OperatorLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l != nil {
		s.elog = l
	}
}

// Get returns a coherent copy of the current tunables: every value in
// the copy was in effect at the same instant.
func (s *Settings) Get() config.SettingsConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// StepPeriod returns the control cycle period as a duration.
func (s *Settings) StepPeriod() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Duration(s.cfg.StepLength * float64(time.Second))
}

// SetPIDKP sets the proportional gain and notes the change in the
// operator log. Takes effect on the next regulation cycle.
func (s *Settings) SetPIDKP(k float64) {
	s.mu.Lock()
	s.cfg.PIDKP = k
	elog := s.elog
	s.mu.Unlock()
	elog.Log(fmt.Sprintf("PID_KP has been set to %v", k))
}

// SetPIDKI sets the integral gain and notes the change in the operator log.
func (s *Settings) SetPIDKI(k float64) {
	s.mu.Lock()
	s.cfg.PIDKI = k
	elog := s.elog
	s.mu.Unlock()
	elog.Log(fmt.Sprintf("PID_KI has been set to %v", k))
}

// SetPIDKD sets the derivative gain and notes the change in the operator log.
func (s *Settings) SetPIDKD(k float64) {
	s.mu.Lock()
	s.cfg.PIDKD = k
	elog := s.elog
	s.mu.Unlock()
	elog.Log(fmt.Sprintf("PID_KD has been set to %v", k))
}

// nopOperatorLog discards operator messages.
type nopOperatorLog struct{}

func (nopOperatorLog) Log(string)   {}
func (nopOperatorLog) Alert(string) {}
