// Package tracker owns the append-only activity log, the platform outcome
// CSV and the read-only activity filter exposed to the UI.
package tracker

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/models"
)

const (
	activityFileName = "activity_log.csv"
	timestampLayout  = "2006-01-02T15:04:05"
)

var activityHeader = []string{"row_id", "timestamp", "agent_name", "job_id", "type", "details", "status"}

// ActivityLog is the concurrency-safe append-only activity log. All writes
// serialise under a single mutex; rotation happens inside the critical
// section so callers never observe a half-rotated file.
type ActivityLog struct {
	mu          sync.Mutex
	dir         string
	maxFileSize int64
	logger      arbor.ILogger
	records     []models.ActivityRecord // All records written by this process
}

// NewActivityLog creates the log directory if needed and returns a tracker
// writing to <dir>/activity_log.csv with size-based rotation.
func NewActivityLog(dir string, maxFileSize int64, logger arbor.ILogger) (*ActivityLog, error) {
	if maxFileSize <= 0 {
		maxFileSize = common.DefaultMaxLogFileSize
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating activity log directory: %w", err)
	}
	return &ActivityLog{
		dir:         dir,
		maxFileSize: maxFileSize,
		logger:      logger,
	}, nil
}

// Path returns the primary log file path.
func (l *ActivityLog) Path() string {
	return filepath.Join(l.dir, activityFileName)
}

// LogActivity mints a fresh row id and timestamp, echoes the record to the
// terminal and appends it to the primary file, rotating first when the file
// has reached its size limit.
func (l *ActivityLog) LogActivity(activityType, details string, status models.ActivityStatus, agent, jobID string) {
	record := models.ActivityRecord{
		RowID:     common.NewRowID(),
		Timestamp: time.Now(),
		AgentName: agent,
		JobID:     jobID,
		Type:      activityType,
		Details:   details,
		Status:    status,
	}

	// Terminal echo before persisting
	l.logger.Info().
		Str("agent", agent).
		Str("type", activityType).
		Str("status", string(status)).
		Str("job_id", jobID).
		Msg(details)

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.rotateIfNeeded(); err != nil {
		l.logger.Warn().Err(err).Msg("Activity log rotation failed")
	}
	if err := l.appendRecord(record); err != nil {
		l.logger.Error().Err(err).Str("row_id", record.RowID).Msg("Failed to persist activity record")
		return
	}
	l.records = append(l.records, record)
}

// rotateIfNeeded renames the primary file with a timestamp suffix and starts
// a fresh one when its size has reached the limit. Must hold the mutex.
func (l *ActivityLog) rotateIfNeeded() error {
	path := l.Path()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Size() < l.maxFileSize {
		return nil
	}

	rotated := filepath.Join(l.dir, fmt.Sprintf("activity_log_%s.csv", time.Now().Format("20060102_150405")))
	if err := os.Rename(path, rotated); err != nil {
		return fmt.Errorf("renaming full activity log: %w", err)
	}

	l.logger.Info().
		Str("rotated_file", rotated).
		Int64("size", info.Size()).
		Msg("Activity log rotated")
	return nil
}

// appendRecord writes one CSV row, emitting the header when the file did not
// previously exist. Must hold the mutex.
func (l *ActivityLog) appendRecord(record models.ActivityRecord) error {
	path := l.Path()
	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening activity log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write(activityHeader); err != nil {
			return fmt.Errorf("writing activity log header: %w", err)
		}
	}
	if err := w.Write(recordToRow(record)); err != nil {
		return fmt.Errorf("writing activity record: %w", err)
	}
	w.Flush()
	return w.Error()
}

// GetActivities returns every record on disk in the primary file, optionally
// filtered by type. The read shares the writer mutex so it never observes a
// partial row.
func (l *ActivityLog) GetActivities(typeFilter ...string) ([]models.ActivityRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.readFile(l.Path())
	if err != nil {
		return nil, err
	}
	if len(typeFilter) == 0 {
		return records, nil
	}

	allowed := make(map[string]struct{}, len(typeFilter))
	for _, t := range typeFilter {
		allowed[t] = struct{}{}
	}
	filtered := records[:0]
	for _, r := range records {
		if _, ok := allowed[r.Type]; ok {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// GetRecent returns the union of in-memory and on-disk records inside the
// trailing window, filtered by type list and status.
func (l *ActivityLog) GetRecent(window time.Duration, typeFilter []string, statusFilter models.ActivityStatus) ([]models.ActivityRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	onDisk, err := l.readFile(l.Path())
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(onDisk))
	merged := make([]models.ActivityRecord, 0, len(onDisk)+len(l.records))
	for _, r := range onDisk {
		seen[r.RowID] = struct{}{}
		merged = append(merged, r)
	}
	for _, r := range l.records {
		if _, ok := seen[r.RowID]; !ok {
			merged = append(merged, r)
		}
	}

	cutoff := time.Now().Add(-window)
	allowed := make(map[string]struct{}, len(typeFilter))
	for _, t := range typeFilter {
		allowed[t] = struct{}{}
	}

	var out []models.ActivityRecord
	for _, r := range merged {
		if r.Timestamp.Before(cutoff) {
			continue
		}
		if len(allowed) > 0 {
			if _, ok := allowed[r.Type]; !ok {
				continue
			}
		}
		if statusFilter != "" && r.Status != statusFilter {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// readFile parses one activity CSV file. Missing files yield an empty slice.
func (l *ActivityLog) readFile(path string) ([]models.ActivityRecord, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening activity log for read: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(activityHeader)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading activity log: %w", err)
	}

	var records []models.ActivityRecord
	for i, row := range rows {
		if i == 0 && strings.EqualFold(row[0], "row_id") {
			continue
		}
		ts, err := time.ParseInLocation(timestampLayout, row[1], time.Local)
		if err != nil {
			l.logger.Warn().Str("row_id", row[0]).Str("timestamp", row[1]).Msg("Skipping activity row with bad timestamp")
			continue
		}
		records = append(records, models.ActivityRecord{
			RowID:     row[0],
			Timestamp: ts,
			AgentName: row[2],
			JobID:     row[3],
			Type:      row[4],
			Details:   row[5],
			Status:    models.ActivityStatus(row[6]),
		})
	}
	return records, nil
}

func recordToRow(r models.ActivityRecord) []string {
	return []string{
		r.RowID,
		r.Timestamp.Format(timestampLayout),
		r.AgentName,
		r.JobID,
		r.Type,
		r.Details,
		string(r.Status),
	}
}
