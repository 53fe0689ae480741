package tracker

import (
	"strings"
	"time"

	"github.com/ternarybob/peto/internal/models"
)

// categoryTypes maps UI categories to the activity types they cover. Types
// not listed anywhere fall into the Agents bucket.
var categoryTypes = map[models.ActivityCategory]map[string]struct{}{
	models.CategoryNavigation: {
		"navigation": {}, "click": {}, "scroll": {}, "screenshot": {}, "iframe": {},
	},
	models.CategoryData: {
		"cv_parse": {}, "profile": {}, "job_extract": {}, "job_record": {},
	},
	models.CategorySystem: {
		"session": {}, "task": {}, "config": {}, "rotation": {},
	},
}

// TimeRange is a named UI time window.
type TimeRange string

const (
	Range5Min   TimeRange = "5m"
	Range15Min  TimeRange = "15m"
	Range1Hour  TimeRange = "1h"
	RangeToday  TimeRange = "Today"
	RangeCustom TimeRange = "custom"
)

// FilterQuery describes one filter application over a loaded window of
// activity records.
type FilterQuery struct {
	Category models.ActivityCategory
	Agent    string
	Range    TimeRange
	From     time.Time // Used when Range == RangeCustom
	To       time.Time // Used when Range == RangeCustom
	Search   string    // Case-insensitive substring over details
}

// Filter is a read-only view over the activity log. It never mutates the
// underlying records and applies all predicates in a single O(n) pass, so
// applying the same query twice returns an identical view.
type Filter struct {
	now func() time.Time
}

// NewFilter creates a filter using wall-clock time for named ranges.
func NewFilter() *Filter {
	return &Filter{now: time.Now}
}

// Apply returns the records matching the query, preserving order.
func (f *Filter) Apply(records []models.ActivityRecord, q FilterQuery) []models.ActivityRecord {
	from, to := f.bounds(q)
	search := strings.ToLower(q.Search)

	out := make([]models.ActivityRecord, 0, len(records))
	for _, r := range records {
		if !f.matchCategory(r, q.Category) {
			continue
		}
		if q.Agent != "" && r.AgentName != q.Agent {
			continue
		}
		if !from.IsZero() && r.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && r.Timestamp.After(to) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(r.Details), search) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (f *Filter) bounds(q FilterQuery) (time.Time, time.Time) {
	now := f.now()
	switch q.Range {
	case Range5Min:
		return now.Add(-5 * time.Minute), time.Time{}
	case Range15Min:
		return now.Add(-15 * time.Minute), time.Time{}
	case Range1Hour:
		return now.Add(-time.Hour), time.Time{}
	case RangeToday:
		year, month, day := now.Date()
		return time.Date(year, month, day, 0, 0, 0, 0, now.Location()), time.Time{}
	case RangeCustom:
		return q.From, q.To
	}
	return time.Time{}, time.Time{}
}

func (f *Filter) matchCategory(r models.ActivityRecord, category models.ActivityCategory) bool {
	switch category {
	case "", models.CategoryAll:
		return true
	case models.CategoryErrorsOnly:
		return r.Status == models.ActivityStatusError || r.Status == models.ActivityStatusFailed
	case models.CategorySuccessOnly:
		return r.Status == models.ActivityStatusSuccess
	case models.CategoryAgents:
		// Agents is the catch-all for types no named category claims.
		for _, types := range categoryTypes {
			if _, ok := types[r.Type]; ok {
				return false
			}
		}
		return true
	default:
		types, ok := categoryTypes[category]
		if !ok {
			return false
		}
		_, match := types[r.Type]
		return match
	}
}
