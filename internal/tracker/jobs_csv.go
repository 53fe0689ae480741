package tracker

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/models"
)

const jobsFileName = "jobs_applied.csv"

var jobsHeader = []string{"job_title", "company", "location", "is_easy_apply", "recruiter_name", "recruiter_link", "application_status"}

// JobsCSV appends one row per handled job posting to jobs_applied.csv.
// Extraction and outcome recording are strictly paired by the platform agent;
// this writer only guarantees durable, ordered appends.
type JobsCSV struct {
	mu     sync.Mutex
	path   string
	logger arbor.ILogger
}

// NewJobsCSV creates the writer for <dir>/jobs_applied.csv.
func NewJobsCSV(dir string, logger arbor.ILogger) (*JobsCSV, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating jobs csv directory: %w", err)
	}
	return &JobsCSV{
		path:   filepath.Join(dir, jobsFileName),
		logger: logger,
	}, nil
}

// Path returns the CSV path.
func (j *JobsCSV) Path() string {
	return j.path
}

// RecordJob appends one outcome row.
func (j *JobsCSV) RecordJob(posting models.JobPosting) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, statErr := os.Stat(j.path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening jobs csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write(jobsHeader); err != nil {
			return fmt.Errorf("writing jobs csv header: %w", err)
		}
	}
	row := []string{
		posting.JobTitle,
		posting.Company,
		posting.Location,
		strconv.FormatBool(posting.IsEasyApply),
		posting.RecruiterName,
		posting.RecruiterLink,
		string(posting.ApplicationStatus),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("writing jobs csv row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	j.logger.Info().
		Str("job_title", posting.JobTitle).
		Str("company", posting.Company).
		Str("status", string(posting.ApplicationStatus)).
		Msg("Job outcome recorded")
	return nil
}
