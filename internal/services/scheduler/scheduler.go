// Package scheduler runs optional recurring job searches from configuration.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/interfaces"
	"github.com/ternarybob/peto/internal/models"
)

const schedulerName = "scheduler"

// SearchRunner dispatches one scheduled search. Satisfied by the controller.
type SearchRunner interface {
	RunSearch(ctx context.Context, platform, jobTitle, location string) ([]models.JobPosting, error)
}

// Scheduler drives the configured recurring searches on cron expressions.
// Overlapping fires of the same schedule are skipped rather than queued.
type Scheduler struct {
	cron    *cron.Cron
	runner  SearchRunner
	tracker interfaces.ActivityLogger
	logger  arbor.ILogger
	count   int
}

// New builds a scheduler from the configured schedule blocks. Invalid entries
// are logged and skipped; a scheduler with zero entries is valid and inert.
func New(schedules []common.ScheduleConfig, runner SearchRunner, tracker interfaces.ActivityLogger, logger arbor.ILogger) *Scheduler {
	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		runner:  runner,
		tracker: tracker,
		logger:  logger,
	}

	for _, schedule := range schedules {
		if schedule.Cron == "" || schedule.Title == "" {
			logger.Warn().
				Str("cron", schedule.Cron).
				Str("title", schedule.Title).
				Msg("Ignoring schedule with missing cron or title")
			continue
		}
		s.add(schedule)
	}
	return s
}

func (s *Scheduler) add(schedule common.ScheduleConfig) {
	title, location := schedule.Title, schedule.Location
	_, err := s.cron.AddFunc(schedule.Cron, func() {
		s.fire(title, location)
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("cron", schedule.Cron).Msg("Ignoring schedule with invalid cron expression")
		return
	}
	s.count++
	s.logger.Info().
		Str("cron", schedule.Cron).
		Str("title", title).
		Str("location", location).
		Msg("Registered recurring search")
}

func (s *Scheduler) fire(title, location string) {
	s.tracker.LogActivity("schedule",
		fmt.Sprintf("Scheduled search %q in %q starting", title, location),
		models.ActivityStatusInfo, schedulerName, "")

	outcomes, err := s.runner.RunSearch(context.Background(), "linkedin", title, location)
	if err != nil {
		s.tracker.LogActivity("schedule",
			fmt.Sprintf("Scheduled search %q failed: %v", title, err),
			models.ActivityStatusError, schedulerName, "")
		s.logger.Error().Err(err).Str("title", title).Msg("Scheduled search failed")
		return
	}

	s.tracker.LogActivity("schedule",
		fmt.Sprintf("Scheduled search %q finished, %d listings processed", title, len(outcomes)),
		models.ActivityStatusSuccess, schedulerName, "")
}

// Entries reports how many schedules were accepted.
func (s *Scheduler) Entries() int {
	return s.count
}

// Start begins firing schedules. No-op when nothing is registered.
func (s *Scheduler) Start() {
	if s.count == 0 {
		return
	}
	s.cron.Start()
	s.logger.Info().Int("schedules", s.count).Msg("Scheduler started")
}

// Stop halts the cron loop and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
