package tracker

import (
	"encoding/csv"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/models"
)

func TestRecordJob_WritesHeaderOnceAndAppends(t *testing.T) {
	dir := t.TempDir()
	jobs, err := NewJobsCSV(dir, common.GetLogger())
	require.NoError(t, err)

	require.NoError(t, jobs.RecordJob(models.JobPosting{
		JobTitle:          "Software Engineer",
		Company:           "Example Corp",
		Location:          "Remote",
		IsEasyApply:       true,
		RecruiterName:     "Robin Recruiter",
		RecruiterLink:     "/in/recruiter",
		ApplicationStatus: models.ApplicationStatusApplied,
	}))
	require.NoError(t, jobs.RecordJob(models.JobPosting{
		JobTitle:          "Platform Engineer",
		Company:           "Other Corp",
		ApplicationStatus: models.ApplicationStatusSkipped,
	}))

	f, err := os.Open(jobs.Path())
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, jobsHeader, rows[0])
	assert.Equal(t, []string{"Software Engineer", "Example Corp", "Remote", "true", "Robin Recruiter", "/in/recruiter", "applied"}, rows[1])
	assert.Equal(t, "skipped", rows[2][6])
}

func TestRecordJob_FieldsWithCommasStayIntact(t *testing.T) {
	jobs, err := NewJobsCSV(t.TempDir(), common.GetLogger())
	require.NoError(t, err)

	require.NoError(t, jobs.RecordJob(models.JobPosting{
		JobTitle:          "Engineer, Platform",
		Company:           "Example, Inc.",
		ApplicationStatus: models.ApplicationStatusFailed,
	}))

	f, err := os.Open(jobs.Path())
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Engineer, Platform", rows[1][0])
	assert.Equal(t, "Example, Inc.", rows[1][1])
}
