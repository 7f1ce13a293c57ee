// Package audit writes the per-run migration log: plain progress lines for
// operators plus machine-readable records of every message that failed to
// migrate, carrying enough context for manual reprocessing.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/threadbridge/pkg/models"
)

const logDir = "migration_logs"

// FailedMessage is one audit record: a source message that could not be
// migrated, with everything needed to reprocess it by hand.
type FailedMessage struct {
	RoomID        string          `json:"room_id"`
	OrgExternalID string          `json:"org_external_id"`
	ThreadID      string          `json:"thread_id"`
	MessageID     string          `json:"message_id"`
	AuthorID      string          `json:"author_id"`
	Content       string          `json:"content"`
	Location      models.Location `json:"location"`
	Reason        string          `json:"reason"`
	Timestamp     time.Time       `json:"timestamp"`
}

// Log manages logging for a single migration run. A nil *Log is valid and
// drops everything, so callers never need to guard.
type Log struct {
	runID     string
	logFile   *os.File
	mutex     sync.Mutex
	startTime time.Time
}

// Start opens the log file for a new run under migration_logs/.
func Start(runID string) (*Log, error) {
	timestamp := time.Now().Format("20060102_150405")
	logPath := filepath.Join(logDir, fmt.Sprintf("migration_%s_%s.log", runID, timestamp))

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	l := &Log{
		runID:     runID,
		logFile:   logFile,
		startTime: time.Now(),
	}
	l.Printf("=== migration run %s started at %s ===", runID, l.startTime.Format(time.RFC3339))
	return l, nil
}

// RunID returns the run this log belongs to, or "" for a nil log.
func (l *Log) RunID() string {
	if l == nil {
		return ""
	}
	return l.runID
}

// Printf writes a timestamped progress line to the run log.
func (l *Log) Printf(format string, args ...interface{}) {
	if l == nil {
		return
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	elapsed := time.Since(l.startTime).Round(time.Millisecond)
	line := fmt.Sprintf("[%s +%v] %s\n",
		time.Now().Format("15:04:05.000"), elapsed, fmt.Sprintf(format, args...))
	l.logFile.WriteString(line)
}

// RecordFailure writes one failed-message audit record as a JSON line and
// mirrors it to the service log.
func (l *Log) RecordFailure(f FailedMessage) {
	if f.Timestamp.IsZero() {
		f.Timestamp = time.Now()
	}

	log.Warn().
		Str("room_id", f.RoomID).
		Str("org_external_id", f.OrgExternalID).
		Str("thread_id", f.ThreadID).
		Str("message_id", f.MessageID).
		Str("reason", f.Reason).
		Msg("message failed to migrate")

	if l == nil {
		return
	}

	encoded, err := json.Marshal(f)
	if err != nil {
		l.Printf("AUDIT-ENCODE-ERROR message=%s: %v", f.MessageID, err)
		return
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.logFile.WriteString("AUDIT " + string(encoded) + "\n")
}

// Close finishes the run log.
func (l *Log) Close() {
	if l == nil {
		return
	}

	l.Printf("=== migration run %s finished after %v ===", l.runID, time.Since(l.startTime).Round(time.Millisecond))

	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.logFile.Close()
}
