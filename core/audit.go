package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SamuelRCrider/piiguard-go/utils"
)

// AuditLogLevel defines the verbosity of audit logging
type AuditLogLevel string

const (
	// AuditLogLevelMinimal drops clean payloads and never persists detected text
	AuditLogLevelMinimal AuditLogLevel = "minimal"

	// AuditLogLevelStandard persists violations but not sanitized payloads
	AuditLogLevelStandard AuditLogLevel = "standard"

	// AuditLogLevelVerbose persists everything including sanitized payloads
	AuditLogLevelVerbose AuditLogLevel = "verbose"
)

// AuditLogSeverity defines the severity of audit log events
type AuditLogSeverity string

const (
	SeverityInfo     AuditLogSeverity = "info"
	SeverityWarning  AuditLogSeverity = "warning"
	SeverityCritical AuditLogSeverity = "critical"
)

// AuditRecord is one persisted inspection of a request or response body
type AuditRecord struct {
	ID            string             `json:"id"`
	Timestamp     time.Time          `json:"timestamp"`
	CorrelationID string             `json:"correlation_id,omitempty"`
	Direction     string             `json:"direction"`
	DataSource    string             `json:"data_source"`
	Severity      AuditLogSeverity   `json:"severity"`
	Violations    []utils.Violation  `json:"violations"`
	Enforcement   *EnforcementResult `json:"enforcement,omitempty"`
	Metadata      map[string]string  `json:"metadata,omitempty"`
}

// AuditConfig configures an AuditLogger
type AuditConfig struct {
	// Path of the JSONL file. Empty keeps records in memory only.
	Path string

	Level AuditLogLevel

	// Size in bytes after which the file is rotated
	RotationSize int64

	// Number of days rotated files are retained
	RetentionDays int

	// Capacity of the in-memory recent-records buffer
	RecentCapacity int

	EnableConsole bool
}

// DefaultAuditConfig returns the configuration used by the CLI
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		Path:           "audit.log",
		Level:          AuditLogLevelStandard,
		RotationSize:   100 * 1024 * 1024,
		RetentionDays:  90,
		RecentCapacity: 200,
	}
}

// AuditLogger writes an append-only JSONL audit trail and keeps the most
// recent records in memory.
type AuditLogger struct {
	mu          sync.Mutex
	config      AuditConfig
	file        *os.File
	writer      io.Writer
	currentSize int64
	closed      bool

	recent *recentBuffer
}

// NewAuditLogger opens (or creates) the audit file
func NewAuditLogger(config AuditConfig) (*AuditLogger, error) {
	if config.Level == "" {
		config.Level = AuditLogLevelStandard
	}
	if config.RecentCapacity <= 0 {
		config.RecentCapacity = 200
	}

	l := &AuditLogger{
		config: config,
		recent: newRecentBuffer(config.RecentCapacity),
	}
	if err := l.open(); err != nil {
		l.recent.close()
		return nil, err
	}
	return l, nil
}

func (l *AuditLogger) open() error {
	if l.config.Path == "" {
		if l.config.EnableConsole {
			l.writer = os.Stdout
		}
		return nil
	}

	dir := filepath.Dir(l.config.Path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create audit log directory: %w", err)
		}
	}

	f, err := os.OpenFile(l.config.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to stat audit log: %w", err)
	}

	l.file = f
	l.currentSize = info.Size()
	if l.config.EnableConsole {
		l.writer = io.MultiWriter(f, os.Stdout)
	} else {
		l.writer = f
	}
	return nil
}

// maybeRotate rotates the audit file once it reaches the configured size
func (l *AuditLogger) maybeRotate() error {
	if l.file == nil || l.config.RotationSize <= 0 || l.currentSize < l.config.RotationSize {
		return nil
	}

	l.file.Close()
	l.file = nil

	rotated := fmt.Sprintf("%s.%s", l.config.Path, time.Now().Format("20060102-150405.000"))
	if err := os.Rename(l.config.Path, rotated); err != nil {
		// keep appending to the original path
		if oerr := l.open(); oerr != nil {
			l.writer = nil
			return errors.Join(fmt.Errorf("failed to rotate audit log: %w", err), oerr)
		}
		return fmt.Errorf("failed to rotate audit log: %w", err)
	}

	l.cleanupOldLogs()
	return l.open()
}

// cleanupOldLogs removes rotated files older than the retention period
func (l *AuditLogger) cleanupOldLogs() {
	if l.config.RetentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -l.config.RetentionDays)

	files, err := filepath.Glob(l.config.Path + ".*")
	if err != nil {
		return
	}
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(file)
		}
	}
}

// Record persists an audit record, applying the level's filtering first
func (l *AuditLogger) Record(rec AuditRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if rec.Severity == "" {
		rec.Severity = severityFor(rec)
	}

	if l.config.Level == AuditLogLevelMinimal && rec.Severity == SeverityInfo {
		return nil
	}
	rec = l.filter(rec)

	l.recent.add(rec)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.writer == nil && l.config.Path != "" && !l.closed {
		// a failed rotation left no file open
		if err := l.open(); err != nil {
			return err
		}
	}
	if l.writer == nil {
		return nil
	}
	if err := l.maybeRotate(); err != nil {
		return err
	}

	entry, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal audit record: %w", err)
	}
	n, err := fmt.Fprintln(l.writer, string(entry))
	if err != nil {
		return fmt.Errorf("failed to write audit record: %w", err)
	}
	l.currentSize += int64(n)
	return nil
}

// filter strips content the configured level must not persist. The
// violations slice is copied so the caller's values are untouched.
func (l *AuditLogger) filter(rec AuditRecord) AuditRecord {
	if l.config.Level == AuditLogLevelVerbose {
		return rec
	}

	if rec.Enforcement != nil {
		enf := *rec.Enforcement
		enf.SanitizedData = nil
		rec.Enforcement = &enf
	}

	if l.config.Level == AuditLogLevelMinimal {
		stripped := make([]utils.Violation, len(rec.Violations))
		for i, v := range rec.Violations {
			v.DetectedText = "[redacted]"
			stripped[i] = v
		}
		rec.Violations = stripped
	}
	return rec
}

// Recent returns up to n of the most recent records, newest first
func (l *AuditLogger) Recent(n int) []AuditRecord {
	return l.recent.snapshot(n)
}

// Close flushes and closes the audit file
func (l *AuditLogger) Close() error {
	l.recent.close()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		l.writer = nil
		return err
	}
	return nil
}

func severityFor(rec AuditRecord) AuditLogSeverity {
	if rec.Enforcement != nil && rec.Enforcement.Blocked() {
		return SeverityCritical
	}
	if len(rec.Violations) > 0 {
		return SeverityWarning
	}
	return SeverityInfo
}

// recentBuffer is a bounded ring of audit records owned by a single
// goroutine. All access goes through its channels.
type recentBuffer struct {
	adds    chan AuditRecord
	queries chan recentQuery
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

type recentQuery struct {
	n     int
	reply chan []AuditRecord
}

func newRecentBuffer(capacity int) *recentBuffer {
	b := &recentBuffer{
		adds:    make(chan AuditRecord, 64),
		queries: make(chan recentQuery),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go b.run(capacity)
	return b
}

func (b *recentBuffer) run(capacity int) {
	defer close(b.stopped)

	ring := make([]AuditRecord, capacity)
	next, size := 0, 0
	push := func(rec AuditRecord) {
		ring[next] = rec
		next = (next + 1) % capacity
		if size < capacity {
			size++
		}
	}

	for {
		select {
		case rec := <-b.adds:
			push(rec)
		case q := <-b.queries:
			// drain pending adds so a reader sees its own writes
			for drained := false; !drained; {
				select {
				case rec := <-b.adds:
					push(rec)
				default:
					drained = true
				}
			}
			n := q.n
			if n <= 0 || n > size {
				n = size
			}
			out := make([]AuditRecord, 0, n)
			for i := 1; i <= n; i++ {
				out = append(out, ring[(next-i+capacity)%capacity])
			}
			q.reply <- out
		case <-b.done:
			return
		}
	}
}

func (b *recentBuffer) add(rec AuditRecord) {
	select {
	case b.adds <- rec:
	case <-b.done:
	}
}

func (b *recentBuffer) snapshot(n int) []AuditRecord {
	q := recentQuery{n: n, reply: make(chan []AuditRecord, 1)}
	select {
	case b.queries <- q:
		return <-q.reply
	case <-b.stopped:
		return nil
	}
}

func (b *recentBuffer) close() {
	b.once.Do(func() {
		close(b.done)
		<-b.stopped
	})
}
