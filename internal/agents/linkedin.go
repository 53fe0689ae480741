package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/interfaces"
	"github.com/ternarybob/peto/internal/learning"
	"github.com/ternarybob/peto/internal/models"
)

const (
	linkedInAgentName = "linkedin_agent"
	linkedInJobsURL   = "https://www.linkedin.com/jobs/"

	// Below this viewport width the search bar collapses behind a magnifier
	// icon that must be expanded before filling.
	narrowLayoutBreakpoint = 768
)

// Candidate selectors, tried in order. LinkedIn markup shifts between
// rollouts so every lookup carries fallbacks.
var (
	profileIndicators = []string{
		"img.global-nav__me-photo",
		"div.global-nav__me",
	}
	signInIndicators = []string{
		"a[href*='login']",
		"button[data-tracking-control-name*='sign-in']",
	}
	captchaIndicators = []string{
		"iframe[src*='captcha']",
		"div#captcha-internal",
		"img[alt*='captcha']",
	}
	jobsTabSelectors = []string{
		"a[href*='/jobs/'][data-link-to='jobs']",
		"a.global-nav__primary-link[href*='/jobs']",
	}
	jobsURLPatterns = []string{"/jobs", "/jobs/search"}

	titleInputSelectors = []string{
		"input[aria-label='Search by title, skill, or company']",
		"input.jobs-search-box__text-input[id*='keyword']",
		"input[id*='jobs-search-box-keyword']",
	}
	locationInputSelectors = []string{
		"input[aria-label='City, state, or zip code']",
		"input.jobs-search-box__text-input[id*='location']",
		"input[id*='jobs-search-box-location']",
	}
	searchSubmitSelectors = []string{
		"button.jobs-search-box__submit-button",
		"button[type='submit'][data-searchbar-type='JOBS']",
	}
	searchExpandSelectors = []string{
		"button[aria-label='Open search']",
		"button.search-global-typeahead__collapsed-search-button",
	}

	twoColumnContainer       = "div.jobs-search-two-pane__wrapper"
	listingContainerFallback = []string{
		"ul.jobs-search-results__list",
		"ul.jobs-search__results-list",
		"div.jobs-search-results-list",
	}
	listingCardSelectors = []string{
		"li.jobs-search-results__list-item",
		"div.job-card-container",
		"li.jobs-search__results-list-item",
	}

	detailsPaneSelector = "div.jobs-search__job-details--container, div.job-view-layout"
	easyApplySelector   = "button.jobs-apply-button"
	externalApplyLinks  = []string{
		"button.jobs-apply-button--external",
		"a[data-control-name='external_apply']",
	}
	modalDismissSelectors = []string{
		"button[aria-label='Dismiss']",
		"button.artdeco-modal__dismiss",
	}
)

// LinkedInAgent runs the platform flow: verify session, search, iterate
// listings, apply and record outcomes.
type LinkedInAgent struct {
	page        interfaces.Page
	nav         *NavigationAgent
	filler      *FormFiller
	credentials *CredentialsAgent
	tracker     interfaces.ActivityLogger
	jobs        interfaces.JobRecorder
	scorer      *learning.Scorer
	events      interfaces.EventService
	controls    *common.Controls
	pacer       *common.Pacer
	logger      arbor.ILogger

	maxJobs        int
	elementTimeout time.Duration
}

// NewLinkedInAgent wires the platform agent to its collaborators.
func NewLinkedInAgent(page interfaces.Page, nav *NavigationAgent, filler *FormFiller, credentials *CredentialsAgent, tracker interfaces.ActivityLogger, jobs interfaces.JobRecorder, scorer *learning.Scorer, events interfaces.EventService, controls *common.Controls, pacer *common.Pacer, config *common.LinkedInConfig, logger arbor.ILogger) *LinkedInAgent {
	maxJobs := config.MaxJobs
	if maxJobs < 0 {
		maxJobs = common.DefaultMaxJobs
	}
	return &LinkedInAgent{
		page:           page,
		nav:            nav,
		filler:         filler,
		credentials:    credentials,
		tracker:        tracker,
		jobs:           jobs,
		scorer:         scorer,
		events:         events,
		controls:       controls,
		pacer:          pacer,
		logger:         logger,
		maxJobs:        maxJobs,
		elementTimeout: config.ElementTimeout(),
	}
}

// SearchJobsAndApply runs the whole state machine and returns the postings
// that received an outcome. Logged-out and CAPTCHA states abort without
// retry.
func (a *LinkedInAgent) SearchJobsAndApply(ctx context.Context, jobTitle, location string, formData map[string]string) ([]models.JobPosting, error) {
	if err := a.verifySession(ctx); err != nil {
		return nil, err
	}
	if err := a.checkSessionHealth(ctx); err != nil {
		return nil, err
	}
	if err := a.navigateToJobs(ctx); err != nil {
		if !a.recoverFromError(ctx, "navigation") {
			return nil, err
		}
		if err := a.navigateToJobs(ctx); err != nil {
			return nil, err
		}
	}
	if err := a.search(ctx, jobTitle, location); err != nil {
		return nil, err
	}
	return a.iterateListings(ctx, formData)
}

// verifySession requires a logged-in indicator. A visible sign-in control
// means the session is gone and the flow must not retry.
func (a *LinkedInAgent) verifySession(ctx context.Context) error {
	for _, selector := range profileIndicators {
		present, err := a.page.Exists(ctx, selector, 2*time.Second)
		if err != nil {
			return err
		}
		if present {
			a.tracker.LogActivity("session", "Session verified", models.ActivityStatusSuccess, linkedInAgentName, "")
			return nil
		}
	}

	for _, selector := range signInIndicators {
		present, err := a.page.Exists(ctx, selector, time.Second)
		if err != nil {
			return err
		}
		if present {
			a.tracker.LogActivity("session", "User is logged out, re-login required.", models.ActivityStatusError, linkedInAgentName, "")
			return common.ErrLoggedOut
		}
	}

	a.tracker.LogActivity("session", "No session indicators found, continuing cautiously", models.ActivityStatusInfo, linkedInAgentName, "")
	return nil
}

// checkSessionHealth guards listing iteration: a visible CAPTCHA goes to the
// solver first, and only an unresolved challenge or lost login is a named
// abort.
func (a *LinkedInAgent) checkSessionHealth(ctx context.Context) error {
	for _, selector := range captchaIndicators {
		present, err := a.page.Exists(ctx, selector, time.Second)
		if err != nil {
			return err
		}
		if !present {
			continue
		}
		if a.resolveCaptcha(ctx, selector) {
			continue
		}
		a.tracker.LogActivity("session", "Captcha encountered, manual solve needed.", models.ActivityStatusError, linkedInAgentName, "")
		return fmt.Errorf("%w: %s visible", common.ErrCaptchaRequired, selector)
	}

	for _, selector := range signInIndicators {
		present, err := a.page.Exists(ctx, selector, time.Second)
		if err != nil {
			return err
		}
		if present {
			a.tracker.LogActivity("session", "User is logged out, re-login required.", models.ActivityStatusError, linkedInAgentName, "")
			return common.ErrLoggedOut
		}
	}
	return nil
}

// resolveCaptcha hands the visible challenge to the credentials agent and
// reports whether the indicator cleared. The solver's answer alone does not
// count; the element disappearing is the ground truth.
func (a *LinkedInAgent) resolveCaptcha(ctx context.Context, selector string) bool {
	if a.credentials == nil {
		return false
	}
	if _, err := a.credentials.HandleCaptcha(ctx, selector); err != nil {
		a.logger.Warn().Err(err).Str("selector", selector).Msg("Captcha solve attempt failed")
		return false
	}
	present, err := a.page.Exists(ctx, selector, time.Second)
	if err != nil || present {
		return false
	}
	a.tracker.LogActivity("session", "Captcha resolved, resuming flow", models.ActivityStatusSuccess, linkedInAgentName, "")
	return true
}

// navigateToJobs clicks the jobs tab first, falling back to direct
// navigation when the click route fails URL verification.
func (a *LinkedInAgent) navigateToJobs(ctx context.Context) error {
	for _, selector := range jobsTabSelectors {
		present, err := a.page.Exists(ctx, selector, 2*time.Second)
		if err != nil {
			return err
		}
		if !present {
			continue
		}
		if err := a.page.ScrollIntoView(ctx, selector); err != nil {
			continue
		}
		if err := a.page.Hover(ctx, selector); err != nil {
			continue
		}
		if err := a.pacer.Wait(ctx); err != nil {
			return err
		}
		if err := a.page.Click(ctx, selector); err != nil {
			continue
		}
		if ok, err := a.onJobsPage(ctx); err != nil {
			return err
		} else if ok {
			a.tracker.LogActivity("navigation", "Reached jobs tab via click", models.ActivityStatusSuccess, linkedInAgentName, "")
			return nil
		}
	}

	if err := a.nav.NavigateTo(ctx, linkedInJobsURL); err != nil {
		return err
	}
	if ok, err := a.onJobsPage(ctx); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: could not reach jobs page", common.ErrNavigationFailed)
	}
	a.tracker.LogActivity("navigation", "Reached jobs tab via direct navigation", models.ActivityStatusSuccess, linkedInAgentName, "")
	return nil
}

func (a *LinkedInAgent) onJobsPage(ctx context.Context) (bool, error) {
	url, err := a.page.CurrentURL(ctx)
	if err != nil {
		return false, err
	}
	for _, pattern := range jobsURLPatterns {
		if strings.Contains(url, pattern) {
			return true, nil
		}
	}
	return false, nil
}

// search fills the title and location inputs and fires the search. Narrow
// layouts are expanded first.
func (a *LinkedInAgent) search(ctx context.Context, jobTitle, location string) error {
	if err := a.expandNarrowLayout(ctx); err != nil {
		return err
	}

	titleFilled, err := a.fillFirst(ctx, titleInputSelectors, jobTitle)
	if err != nil {
		return err
	}
	locationFilled, err := a.fillFirst(ctx, locationInputSelectors, location)
	if err != nil {
		return err
	}
	if !titleFilled && !locationFilled {
		return fmt.Errorf("%w: no search inputs found", common.ErrElementNotFound)
	}

	for _, selector := range searchSubmitSelectors {
		present, err := a.page.Exists(ctx, selector, time.Second)
		if err != nil {
			return err
		}
		if present {
			if err := a.page.Click(ctx, selector); err == nil {
				a.tracker.LogActivity("navigation", fmt.Sprintf("Search submitted for %q in %q", jobTitle, location), models.ActivityStatusSuccess, linkedInAgentName, "")
				return nil
			}
		}
	}

	// No submit button; Enter in whichever field got filled.
	enterTargets := titleInputSelectors
	if !titleFilled {
		enterTargets = locationInputSelectors
	}
	for _, selector := range enterTargets {
		if err := a.page.PressEnter(ctx, selector); err == nil {
			a.tracker.LogActivity("navigation", fmt.Sprintf("Search submitted for %q in %q", jobTitle, location), models.ActivityStatusSuccess, linkedInAgentName, "")
			return nil
		}
	}
	return fmt.Errorf("%w: could not submit search", common.ErrNotInteractable)
}

func (a *LinkedInAgent) expandNarrowLayout(ctx context.Context) error {
	width, err := a.page.ViewportWidth(ctx)
	if err != nil {
		return err
	}

	narrow := width < narrowLayoutBreakpoint
	if !narrow {
		for _, selector := range searchExpandSelectors {
			present, err := a.page.Exists(ctx, selector, time.Second)
			if err != nil {
				return err
			}
			if present {
				narrow = true
				break
			}
		}
	}
	if !narrow {
		return nil
	}

	for _, selector := range searchExpandSelectors {
		if err := a.page.Click(ctx, selector); err == nil {
			a.tracker.LogActivity("navigation", "Expanded collapsed search bar", models.ActivityStatusInfo, linkedInAgentName, "")
			return nil
		}
	}
	return nil
}

func (a *LinkedInAgent) fillFirst(ctx context.Context, selectors []string, value string) (bool, error) {
	if value == "" {
		return false, nil
	}
	for _, selector := range selectors {
		present, err := a.page.Exists(ctx, selector, time.Second)
		if err != nil {
			return false, err
		}
		if !present {
			continue
		}
		if err := a.pacer.Wait(ctx); err != nil {
			return false, err
		}
		if err := a.page.Fill(ctx, selector, value); err != nil {
			continue
		}
		return true, nil
	}
	return false, nil
}

// iterateListings walks up to maxJobs cards. Every extracted job yields
// exactly one recorded outcome or an explicit skip entry.
func (a *LinkedInAgent) iterateListings(ctx context.Context, formData map[string]string) ([]models.JobPosting, error) {
	cardSelector, err := a.resolveListingLayout(ctx)
	if err != nil {
		return nil, err
	}

	var outcomes []models.JobPosting
	reloadUsed := false

	for index := 0; index < a.maxJobs; index++ {
		if err := a.controls.WaitIfPaused(ctx); err != nil {
			return outcomes, err
		}
		if err := a.checkSessionHealth(ctx); err != nil {
			return outcomes, err
		}

		available, err := a.page.Count(ctx, cardSelector)
		if err != nil {
			return outcomes, err
		}
		if index >= available {
			grew, err := a.loadMoreListings(ctx, cardSelector, available)
			if err != nil {
				return outcomes, err
			}
			if !grew {
				break
			}
		}

		posting, err := a.processListing(ctx, cardSelector, index, formData, &reloadUsed)
		if err != nil {
			return outcomes, err
		}
		if posting != nil {
			outcomes = append(outcomes, *posting)
		}

		if err := a.checkSessionHealth(ctx); err != nil {
			return outcomes, err
		}
	}

	return outcomes, nil
}

// resolveListingLayout prefers the two-column layout and falls back through
// the single-feed containers.
func (a *LinkedInAgent) resolveListingLayout(ctx context.Context) (string, error) {
	present, err := a.page.Exists(ctx, twoColumnContainer, 3*time.Second)
	if err != nil {
		return "", err
	}
	if present {
		a.tracker.LogActivity("navigation", "Two-column results layout detected", models.ActivityStatusInfo, linkedInAgentName, "")
		return listingCardSelectors[0], nil
	}

	for _, container := range listingContainerFallback {
		present, err := a.page.Exists(ctx, container, 2*time.Second)
		if err != nil {
			return "", err
		}
		if present {
			a.tracker.LogActivity("navigation", fmt.Sprintf("Single-feed layout via %s", container), models.ActivityStatusInfo, linkedInAgentName, "")
			return container + " li", nil
		}
	}
	return "", fmt.Errorf("%w: no job results container", common.ErrElementNotFound)
}

// loadMoreListings scrolls to the bottom and reports whether the result list
// grew.
func (a *LinkedInAgent) loadMoreListings(ctx context.Context, cardSelector string, before int) (bool, error) {
	if err := a.nav.ScrollToBottom(ctx, 600, 300*time.Millisecond); err != nil {
		return false, err
	}

	grew, err := a.nav.WaitForCondition(ctx, func(ctx context.Context) (bool, error) {
		count, err := a.page.Count(ctx, cardSelector)
		if err != nil {
			return false, err
		}
		return count > before, nil
	}, 5*time.Second, common.PollInterval)
	if err != nil {
		return false, err
	}
	return grew, nil
}

// processListing opens one card, extracts the posting and applies. A nil
// posting with nil error means the card was skipped with a log entry.
func (a *LinkedInAgent) processListing(ctx context.Context, cardSelector string, index int, formData map[string]string, reloadUsed *bool) (*models.JobPosting, error) {
	if err := a.openListing(ctx, cardSelector, index); err != nil {
		if !*reloadUsed {
			*reloadUsed = true
			a.tracker.LogActivity("navigation", fmt.Sprintf("Listing %d not clickable, reloading once", index+1), models.ActivityStatusInfo, linkedInAgentName, "")
			if err := a.page.Reload(ctx); err != nil {
				return nil, err
			}
			if err := a.openListing(ctx, cardSelector, index); err != nil {
				a.tracker.LogActivity("job_extract", fmt.Sprintf("Skipping listing %d after reload: %v", index+1, err), models.ActivityStatusError, linkedInAgentName, "")
				return nil, nil
			}
		} else {
			a.tracker.LogActivity("job_extract", fmt.Sprintf("Skipping listing %d: %v", index+1, err), models.ActivityStatusError, linkedInAgentName, "")
			return nil, nil
		}
	}

	posting, err := a.extractJob(ctx)
	if err != nil {
		a.tracker.LogActivity("job_extract", fmt.Sprintf("Skipping listing %d: %v", index+1, err), models.ActivityStatusError, linkedInAgentName, "")
		return nil, nil
	}

	a.tracker.LogActivity("job_extract", fmt.Sprintf("Extracted %q at %q", posting.JobTitle, posting.Company), models.ActivityStatusSuccess, linkedInAgentName, posting.JobID)

	status, err := a.applyToPosting(ctx, posting, formData)
	if err != nil {
		return nil, err
	}
	posting.ApplicationStatus = status

	if err := a.recordOutcome(ctx, posting); err != nil {
		return nil, err
	}
	return posting, nil
}

// openListing clicks the index-th card into the details pane.
func (a *LinkedInAgent) openListing(ctx context.Context, cardSelector string, index int) error {
	if err := a.pacer.Wait(ctx); err != nil {
		return err
	}

	js := fmt.Sprintf(`(function() {
		const cards = document.querySelectorAll(%q);
		if (cards.length <= %d) return false;
		cards[%d].scrollIntoView({block: "center"});
		cards[%d].click();
		return true;
	})()`, cardSelector, index, index, index)

	var clicked bool
	if err := a.page.Evaluate(ctx, js, &clicked); err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("%w: listing %d", common.ErrElementNotFound, index+1)
	}

	return a.page.WaitVisible(ctx, detailsPaneSelector, a.elementTimeout)
}

// extractJob parses the details pane. Title and company are mandatory;
// everything else tolerates absence.
func (a *LinkedInAgent) extractJob(ctx context.Context) (*models.JobPosting, error) {
	html, err := a.page.OuterHTML(ctx, detailsPaneSelector)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing job details: %w", err)
	}

	posting := &models.JobPosting{JobID: common.NewJobID()}
	posting.JobTitle = firstText(doc,
		"h1.jobs-unified-top-card__job-title",
		"h1.job-details-jobs-unified-top-card__job-title",
		"h1")
	posting.Company = firstText(doc,
		"a.jobs-unified-top-card__company-name",
		"div.job-details-jobs-unified-top-card__company-name",
		"span.jobs-unified-top-card__company-name")
	posting.Location = firstText(doc,
		"span.jobs-unified-top-card__bullet",
		"span.job-details-jobs-unified-top-card__bullet")
	posting.Description = firstText(doc,
		"div.jobs-description__content",
		"div.jobs-box__html-content")

	recruiter := doc.Find("div.hirer-card__hirer-information a").First()
	if recruiter.Length() > 0 {
		posting.RecruiterName = strings.TrimSpace(recruiter.Text())
		posting.RecruiterLink, _ = recruiter.Attr("href")
	}

	if posting.JobTitle == "" || posting.Company == "" {
		return nil, fmt.Errorf("%w: listing missing title or company", common.ErrElementNotFound)
	}

	easyApply, err := a.page.Exists(ctx, easyApplySelector, time.Second)
	if err != nil {
		return nil, err
	}
	posting.IsEasyApply = easyApply

	return posting, nil
}

// applyToPosting selects the apply route and maps it to an application
// status.
func (a *LinkedInAgent) applyToPosting(ctx context.Context, posting *models.JobPosting, formData map[string]string) (models.ApplicationStatus, error) {
	confidence := a.scorer.Compute(ctx, "job_apply", map[string]any{
		"job_title":     posting.JobTitle,
		"company":       posting.Company,
		"is_easy_apply": posting.IsEasyApply,
	})
	a.logger.Debug().Str("job_id", posting.JobID).Float64("confidence", confidence).Msg("Scored application")

	if posting.IsEasyApply {
		if err := a.page.Click(ctx, easyApplySelector); err != nil {
			a.tracker.LogActivity("job_apply", fmt.Sprintf("Easy-apply button unclickable: %v", err), models.ActivityStatusError, linkedInAgentName, posting.JobID)
			return models.ApplicationStatusFailed, nil
		}
		status, err := a.filler.FillEasyApply(ctx, formData)
		if err != nil {
			return models.ApplicationStatusFailed, err
		}
		if status == models.ApplicationStatusFailed {
			a.dismissModal(ctx)
		}
		return status, nil
	}

	for _, selector := range externalApplyLinks {
		present, err := a.page.Exists(ctx, selector, time.Second)
		if err != nil {
			return models.ApplicationStatusFailed, err
		}
		if !present {
			continue
		}
		return a.followExternalApply(ctx, posting, selector)
	}

	a.tracker.LogActivity("job_apply", "No apply route on listing, skipping", models.ActivityStatusInfo, linkedInAgentName, posting.JobID)
	return models.ApplicationStatusSkipped, nil
}

// followExternalApply clicks the external link and classifies the result:
// popup closed or same-tab navigation undone both count as redirected.
func (a *LinkedInAgent) followExternalApply(ctx context.Context, posting *models.JobPosting, selector string) (models.ApplicationStatus, error) {
	before, err := a.page.CurrentURL(ctx)
	if err != nil {
		return models.ApplicationStatusFailed, err
	}

	if err := a.pacer.Wait(ctx); err != nil {
		return models.ApplicationStatusFailed, err
	}
	if err := a.page.Click(ctx, selector); err != nil {
		return models.ApplicationStatusFailed, nil
	}

	popupCtx, cancel := context.WithTimeout(ctx, time.Second)
	opened, err := a.page.ConsumePopup(popupCtx)
	cancel()
	if err != nil && ctx.Err() != nil {
		return models.ApplicationStatusFailed, err
	}
	if opened {
		posting.ExternalApplyLink = selector
		return models.ApplicationStatusRedirected, nil
	}

	after, err := a.page.CurrentURL(ctx)
	if err != nil {
		return models.ApplicationStatusFailed, err
	}
	if after != before {
		if err := a.page.GoBack(ctx); err != nil {
			return models.ApplicationStatusFailed, err
		}
		posting.ExternalApplyLink = after
		return models.ApplicationStatusRedirected, nil
	}

	return models.ApplicationStatusFailed, nil
}

// recordOutcome appends the platform CSV row, the activity entry and the
// telemetry event.
func (a *LinkedInAgent) recordOutcome(ctx context.Context, posting *models.JobPosting) error {
	if err := a.jobs.RecordJob(*posting); err != nil {
		return err
	}

	status := models.ActivityStatusSuccess
	if posting.ApplicationStatus == models.ApplicationStatusFailed {
		status = models.ActivityStatusFailed
	}
	a.tracker.LogActivity("job_record",
		fmt.Sprintf("%s at %s: %s", posting.JobTitle, posting.Company, posting.ApplicationStatus),
		status, linkedInAgentName, posting.JobID)

	if a.events != nil {
		a.events.Publish(ctx, interfaces.Event{
			Type:      interfaces.EventJobOutcome,
			Timestamp: time.Now(),
			Payload: map[string]any{
				"job_id":    posting.JobID,
				"job_title": posting.JobTitle,
				"company":   posting.Company,
				"status":    string(posting.ApplicationStatus),
			},
		})
	}
	return nil
}

// ApplyToJobURL drives a single posting by URL outside the search flow.
func (a *LinkedInAgent) ApplyToJobURL(ctx context.Context, jobURL string, formData map[string]string) (*models.JobPosting, error) {
	if err := a.nav.NavigateTo(ctx, jobURL); err != nil {
		return nil, err
	}
	if err := a.checkSessionHealth(ctx); err != nil {
		return nil, err
	}

	posting, err := a.extractJob(ctx)
	if err != nil {
		return nil, err
	}

	status, err := a.applyToPosting(ctx, posting, formData)
	if err != nil {
		return nil, err
	}
	posting.ApplicationStatus = status

	if err := a.recordOutcome(ctx, posting); err != nil {
		return nil, err
	}
	return posting, nil
}

// recoverFromError runs a bounded recovery routine per failure kind and
// reports whether the flow may continue.
func (a *LinkedInAgent) recoverFromError(ctx context.Context, kind string) bool {
	a.tracker.LogActivity("session", fmt.Sprintf("Attempting %s recovery", kind), models.ActivityStatusInfo, linkedInAgentName, "")

	switch kind {
	case "navigation":
		if err := a.page.GoBack(ctx); err != nil {
			return false
		}
		return a.page.Reload(ctx) == nil

	case "modal":
		return a.dismissModal(ctx)

	case "session":
		if err := a.page.Reload(ctx); err != nil {
			return false
		}
		return a.verifySession(ctx) == nil

	default:
		return false
	}
}

func (a *LinkedInAgent) dismissModal(ctx context.Context) bool {
	for _, selector := range modalDismissSelectors {
		present, err := a.page.Exists(ctx, selector, time.Second)
		if err != nil || !present {
			continue
		}
		if err := a.page.Click(ctx, selector); err == nil {
			return true
		}
	}
	return false
}

// firstText returns the first non-empty trimmed text among the selectors.
func firstText(doc *goquery.Document, selectors ...string) string {
	for _, selector := range selectors {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
		if text != "" {
			return text
		}
	}
	return ""
}

// containsFold is a case-insensitive substring check.
func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
