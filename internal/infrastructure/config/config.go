package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the ADR control core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	ADR         ADRConfig         `yaml:"adr"`
	Instruments InstrumentsConfig `yaml:"instruments"`
	Database    DatabaseConfig    `yaml:"database"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	InfluxDB    InfluxDBConfig    `yaml:"influxdb"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ADRConfig identifies the fridge this core controls and where its
// data files live.
type ADRConfig struct {
	// Name distinguishes this ADR from others on the same broker
	// (e.g. "shasta"). Used in telemetry tags and the MQTT client ID.
	Name string `yaml:"name"`

	// DataDir is the directory for the append-only event log and the
	// binary temperature series. One pair of files is created per
	// process start, suffixed with the start date.
	DataDir string `yaml:"data_dir"`

	Settings SettingsConfig `yaml:"settings"`
}

// SettingsConfig holds the magnet ramp and regulation tunables.
//
// The defaults follow the HPD manual values this lab has run for years;
// they can be overridden per fridge in config.yaml, and the PID gains
// can additionally be changed at runtime over the command surface.
type SettingsConfig struct {
	PIDKP float64 `yaml:"pid_kp"`
	PIDKI float64 `yaml:"pid_ki"`
	PIDKD float64 `yaml:"pid_kd"`

	// MagUpDV is the voltage increment applied per mag-up cycle, in volts.
	MagUpDV float64 `yaml:"magup_dv"`

	// MagnetVoltageLimit is the back-EMF ceiling across the magnet leads,
	// in volts. Ramping pauses while the measured back-EMF is at or above
	// this value.
	MagnetVoltageLimit float64 `yaml:"magnet_voltage_limit"`

	// CurrentLimit is the mag-up target and the hard supply-current
	// ceiling during regulation, in amps.
	CurrentLimit float64 `yaml:"current_limit"`

	// VoltageLimit is the hard supply-voltage ceiling, in volts.
	VoltageLimit float64 `yaml:"voltage_limit"`

	// DVdTLimit caps the supply-voltage slew rate during regulation, V/s.
	DVdTLimit float64 `yaml:"dvdt_limit"`

	// DIdTMagUpLimit and DIdTRegulateLimit cap the observed current slew
	// rate, A/s. When exceeded the controller holds voltage for a cycle.
	DIdTMagUpLimit    float64 `yaml:"didt_magup_limit"`
	DIdTRegulateLimit float64 `yaml:"didt_regulate_limit"`

	// StepLength is the nominal control/poll cycle period in seconds.
	// Never set below 1.0: the diode monitor only measures once a second,
	// and faster cycles produce runaway voltages and currents.
	StepLength float64 `yaml:"step_length"`

	// GGGOutOfRange and FAAOutOfRange are sentinel readings the Ruox
	// monitor returns for an unplugged sensor; a reading equal to the
	// sentinel is treated as not-a-number. Tied to sensor wiring, hence
	// configurable per fridge.
	GGGOutOfRange float64 `yaml:"ggg_out_of_range"`
	FAAOutOfRange float64 `yaml:"faa_out_of_range"`
}

// InstrumentsConfig selects the instrument backend and addresses.
type InstrumentsConfig struct {
	// Backend selects the instrument driver set. "sim" runs the in-tree
	// magnet simulator; anything else is rejected at startup.
	Backend string `yaml:"backend"`

	PowerSupply          InstrumentConfig `yaml:"power_supply"`
	DiodeMonitor         InstrumentConfig `yaml:"diode_monitor"`
	RuoxMonitor          InstrumentConfig `yaml:"ruox_monitor"`
	MagnetVoltageMonitor InstrumentConfig `yaml:"magnet_voltage_monitor"`
}

// InstrumentConfig carries per-instrument connection details.
type InstrumentConfig struct {
	// Address is backend-specific (GPIB address, serial port, ...).
	// The sim backend ignores it.
	Address string `yaml:"address"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings for the optional
// time-series mirror of poll-cycle samples.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains process logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: ADRCORE_SECTION_KEY
// For example: ADRCORE_DATABASE_PATH, ADRCORE_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
//
// The ramp/regulation tunables default to the values the original HPD
// hardware has been run with: 9 A over 30 minutes magging up, 9 A over
// 40 minutes coming back down, 3 mV voltage steps, 0.1 V back-EMF ceiling.
func defaultConfig() *Config {
	return &Config{
		ADR: ADRConfig{
			Name:    "shasta",
			DataDir: "./data",
			Settings: SettingsConfig{
				PIDKP:              2,
				PIDKI:              0,
				PIDKD:              70,
				MagUpDV:            0.003,
				MagnetVoltageLimit: 0.1,
				CurrentLimit:       9,
				VoltageLimit:       2,
				DVdTLimit:          0.008,
				DIdTMagUpLimit:     9.0 / (30 * 60),
				DIdTRegulateLimit:  9.0 / (40 * 60),
				StepLength:         1.0,
				GGGOutOfRange:      20.0,
				FAAOutOfRange:      45.0,
			},
		},
		Instruments: InstrumentsConfig{
			Backend: "sim",
		},
		Database: DatabaseConfig{
			Path:        "./data/adrcore.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "adrcore",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: ADRCORE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// ADR
	if v := os.Getenv("ADRCORE_ADR_NAME"); v != "" {
		cfg.ADR.Name = v
	}
	if v := os.Getenv("ADRCORE_DATA_DIR"); v != "" {
		cfg.ADR.DataDir = v
	}

	// Database
	if v := os.Getenv("ADRCORE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("ADRCORE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("ADRCORE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("ADRCORE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("ADRCORE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// ADR identity
	if c.ADR.Name == "" {
		errs = append(errs, "adr.name is required")
	}
	if c.ADR.DataDir == "" {
		errs = append(errs, "adr.data_dir is required")
	}

	// Tunables. These guard the magnet: a zero or negative limit would
	// either freeze the ramp or remove a safety ceiling entirely.
	s := c.ADR.Settings
	if s.MagUpDV <= 0 {
		errs = append(errs, "adr.settings.magup_dv must be positive")
	}
	if s.MagnetVoltageLimit <= 0 {
		errs = append(errs, "adr.settings.magnet_voltage_limit must be positive")
	}
	if s.CurrentLimit <= 0 {
		errs = append(errs, "adr.settings.current_limit must be positive")
	}
	if s.VoltageLimit <= 0 {
		errs = append(errs, "adr.settings.voltage_limit must be positive")
	}
	if s.DVdTLimit <= 0 {
		errs = append(errs, "adr.settings.dvdt_limit must be positive")
	}
	if s.DIdTMagUpLimit <= 0 {
		errs = append(errs, "adr.settings.didt_magup_limit must be positive")
	}
	if s.DIdTRegulateLimit <= 0 {
		errs = append(errs, "adr.settings.didt_regulate_limit must be positive")
	}
	// The diode monitor measures once a second; cycling faster than that
	// feeds the controllers stale readings and produces runaway voltages.
	if s.StepLength < 1.0 {
		errs = append(errs, "adr.settings.step_length must be at least 1.0 seconds")
	}

	// Instruments
	if c.Instruments.Backend == "" {
		errs = append(errs, "instruments.backend is required")
	}

	// Database
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// StepPeriod returns the control/poll cycle period as a Duration.
func (c *Config) StepPeriod() time.Duration {
	return time.Duration(c.ADR.Settings.StepLength * float64(time.Second))
}
