package telemetry

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/coldstage/adr-core/internal/state"
)

// Record layout: timestamp then T_60K, T_3K, T_GGG, T_FAA, each a
// little-endian float64. The timestamp is fractional Unix seconds.
const (
	recordSize = 5 * 8

	// fileStampLayout renders "_260825_1430".
	fileStampLayout = "_060102_1504"

	filePermissions = 0644
	dirPermissions  = 0750
)

// Mirror receives each sample for time-series fan-out. The influxdb
// client satisfies this; a nil mirror disables it.
type Mirror interface {
	WriteCycleSample(adr string, at time.Time, readings map[string]float64)
}

// Recorder appends one binary record per poll cycle and optionally
// mirrors samples to a time-series store.
//
// All methods are safe for concurrent use.
type Recorder struct {
	mu   sync.Mutex
	file *os.File

	adr    string
	mirror Mirror
}

// NewRecorder opens the cycle-scoped record file in dataDir, named for
// the process start time (temperatures_260825_1430.temps).
func NewRecorder(dataDir string, start time.Time, adr string) (*Recorder, error) {
	if err := os.MkdirAll(dataDir, dirPermissions); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	name := "temperatures" + start.Format(fileStampLayout) + ".temps"
	f, err := os.OpenFile(filepath.Join(dataDir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePermissions)
	if err != nil {
		return nil, fmt.Errorf("opening temperature record: %w", err)
	}

	return &Recorder{file: f, adr: adr}, nil
}

// SetMirror attaches the time-series mirror.
func (r *Recorder) SetMirror(m Mirror) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mirror = m
}

// Record appends one sample to the binary file and mirrors it.
//
// The file write is the authoritative path; its error is returned so the
// poller can surface it. The mirror is fire-and-forget.
func (r *Recorder) Record(sample state.SystemState) error {
	buf := make([]byte, 0, recordSize)
	ts := float64(sample.Time.UnixNano()) / float64(time.Second)
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(ts))
	for _, t := range sample.Temperatures() {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(t))
	}

	r.mu.Lock()
	file := r.file
	mirror := r.mirror
	var err error
	if file != nil {
		_, err = file.Write(buf)
	}
	r.mu.Unlock()

	if mirror != nil {
		mirror.WriteCycleSample(r.adr, sample.Time, map[string]float64{
			"t_60k":      sample.T60K,
			"t_3k":       sample.T3K,
			"t_ggg":      sample.TGGG,
			"t_faa":      sample.TFAA,
			"magnet_v":   sample.MagnetV,
			"ps_current": sample.PSCurrent,
			"ps_voltage": sample.PSVoltage,
		})
	}

	if err != nil {
		return fmt.Errorf("writing temperature record: %w", err)
	}
	return nil
}

// Close closes the record file. Further Record calls only feed the mirror.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	if err != nil {
		return fmt.Errorf("closing temperature record: %w", err)
	}
	return nil
}
