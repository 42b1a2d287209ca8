package eventlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/coldstage/adr-core/internal/infrastructure/logging"
)

// Timestamp layouts. Entries carry the short operator-readable prefix;
// file names carry the process start stamp.
const (
	// entryStampLayout renders "[08/25/26 14:30:05] ".
	entryStampLayout = "[01/02/06 15:04:05] "

	// fileStampLayout renders "_260825_1430".
	fileStampLayout = "_060102_1504"

	// filePermissions for the mirrored log file.
	filePermissions = 0644

	// dirPermissions for the data directory.
	dirPermissions = 0750
)

// Entry is one operator log line. Message includes the timestamp prefix.
type Entry struct {
	Message string `json:"message"`
	Alert   bool   `json:"alert"`
}

// Publisher receives each appended entry for fan-out to the event bus.
type Publisher func(Entry)

// Log is the append-only operator log with a file mirror.
//
// All methods are safe for concurrent use. A failed file write degrades
// to a process-log warning; the in-memory sequence and the publish hook
// still see the entry.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	file    *os.File
	publish Publisher

	clock  func() time.Time
	logger *logging.Logger
}

// New creates the operator log, mirroring entries to a file in dataDir
// named for the process start time (log_260825_1430.txt).
func New(dataDir string, start time.Time, logger *logging.Logger) (*Log, error) {
	if err := os.MkdirAll(dataDir, dirPermissions); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	name := "log" + start.Format(fileStampLayout) + ".txt"
	f, err := os.OpenFile(filepath.Join(dataDir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePermissions)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	return &Log{
		file:   f,
		clock:  time.Now,
		logger: logger,
	}, nil
}

// SetPublisher installs the fan-out hook. Entries appended before this
// call are not replayed.
func (l *Log) SetPublisher(p Publisher) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.publish = p
}

// Log appends an informational entry.
func (l *Log) Log(message string) {
	l.append(message, false)
}

// Alert appends an entry flagged for operator attention.
func (l *Log) Alert(message string) {
	l.append(message, true)
}

// append stamps, stores, mirrors, and publishes one entry.
func (l *Log) append(message string, alert bool) {
	l.mu.Lock()

	entry := Entry{
		Message: l.clock().Format(entryStampLayout) + message,
		Alert:   alert,
	}
	l.entries = append(l.entries, entry)

	if l.file != nil {
		if _, err := l.file.WriteString(entry.Message + "\n"); err != nil {
			l.logger.Warn("log file write failed", "error", err)
		}
	}

	publish := l.publish
	l.mu.Unlock()

	if publish != nil {
		publish(entry)
	}
}

// LastN returns the most recent n entries in oldest-first order.
// n = 0 (or anything beyond the sequence length) returns everything.
func (l *Log) LastN(n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}

	out := make([]Entry, n)
	copy(out, l.entries[len(l.entries)-n:])
	return out
}

// Len returns the number of entries appended so far.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Close closes the file mirror. Further appends stay in memory only.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("closing log file: %w", err)
	}
	return nil
}
