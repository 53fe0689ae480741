package tracker

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/models"
)

func newTestLog(t *testing.T, maxSize int64) *ActivityLog {
	t.Helper()
	log, err := NewActivityLog(t.TempDir(), maxSize, common.GetLogger())
	require.NoError(t, err)
	return log
}

func TestLogActivity_WriteThenRead(t *testing.T) {
	log := newTestLog(t, common.DefaultMaxLogFileSize)

	log.LogActivity("session", "session started", models.ActivityStatusSuccess, "controller", "")

	records, err := log.GetActivities()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "session", records[0].Type)
	assert.Equal(t, "session started", records[0].Details)
	assert.Equal(t, models.ActivityStatusSuccess, records[0].Status)
	assert.Equal(t, "controller", records[0].AgentName)
	assert.NotEmpty(t, records[0].RowID)
	assert.WithinDuration(t, time.Now(), records[0].Timestamp, 5*time.Second)
}

func TestLogActivity_RowIDsUnique(t *testing.T) {
	log := newTestLog(t, common.DefaultMaxLogFileSize)

	for i := 0; i < 200; i++ {
		log.LogActivity("task", "transition", models.ActivityStatusInfo, "task_manager", "")
	}

	records, err := log.GetActivities()
	require.NoError(t, err)
	require.Len(t, records, 200)

	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		_, dup := seen[r.RowID]
		assert.False(t, dup, "duplicate row id %s", r.RowID)
		seen[r.RowID] = struct{}{}
	}
}

func TestRotation_TriggersAndPreservesRows(t *testing.T) {
	// Small limit so a handful of rows force rotation.
	log := newTestLog(t, 512)

	const total = 50
	for i := 0; i < total; i++ {
		log.LogActivity("navigation", strings.Repeat("x", 40), models.ActivityStatusInfo, "navigator", "")
	}

	rotated, err := filepath.Glob(filepath.Join(log.dir, "activity_log_*.csv"))
	require.NoError(t, err)
	require.NotEmpty(t, rotated, "expected at least one rotated file")

	// Concatenation of rotated files plus the current file holds every row,
	// in order, with unique row ids.
	var rows int
	seen := make(map[string]struct{})
	files := append(rotated, log.Path())
	for _, path := range files {
		f, err := os.Open(path)
		require.NoError(t, err)
		all, err := csv.NewReader(f).ReadAll()
		f.Close()
		require.NoError(t, err)
		for _, row := range all {
			if row[0] == "row_id" {
				continue
			}
			rows++
			_, dup := seen[row[0]]
			assert.False(t, dup, "duplicate row id across rotation %s", row[0])
			seen[row[0]] = struct{}{}
		}
	}
	assert.Equal(t, total, rows)
}

func TestRotation_FreshFileHasOnlyHeaderPlusNewRow(t *testing.T) {
	log := newTestLog(t, 1)

	// Limit of 1 byte rotates before every write after the first, so the
	// primary file always holds exactly the header and the latest row.
	log.LogActivity("task", "first", models.ActivityStatusInfo, "t", "")
	log.LogActivity("task", "second", models.ActivityStatusInfo, "t", "")

	f, err := os.Open(log.Path())
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "row_id", rows[0][0])
	assert.Equal(t, "second", rows[1][5])
}

func TestGetRecent_Filters(t *testing.T) {
	log := newTestLog(t, common.DefaultMaxLogFileSize)

	log.LogActivity("navigation", "clicked jobs tab", models.ActivityStatusSuccess, "navigator", "")
	log.LogActivity("task", "task failed", models.ActivityStatusFailed, "task_manager", "")
	log.LogActivity("navigation", "navigate error", models.ActivityStatusError, "navigator", "")

	recent, err := log.GetRecent(time.Hour, []string{"navigation"}, "")
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	errors, err := log.GetRecent(time.Hour, []string{"navigation"}, models.ActivityStatusError)
	require.NoError(t, err)
	require.Len(t, errors, 1)
	assert.Equal(t, "navigate error", errors[0].Details)

	none, err := log.GetRecent(0, nil, "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetActivities_TypeFilter(t *testing.T) {
	log := newTestLog(t, common.DefaultMaxLogFileSize)

	log.LogActivity("session", "started", models.ActivityStatusSuccess, "controller", "")
	log.LogActivity("job_search_apply", "searching", models.ActivityStatusInfo, "linkedin", "")

	records, err := log.GetActivities("job_search_apply")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "searching", records[0].Details)
}
