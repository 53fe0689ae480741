package agents

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/interfaces"
	"github.com/ternarybob/peto/internal/models"
)

const (
	formFillerName      = "form_filler"
	coverLetterMaxWords = 200
	maxEasyApplySteps   = 10
)

// FieldType tags how a form control is driven.
type FieldType string

const (
	FieldText              FieldType = "text"
	FieldSelect            FieldType = "select"
	FieldCheckbox          FieldType = "checkbox"
	FieldRadio             FieldType = "radio"
	FieldUpload            FieldType = "upload"
	FieldCoverLetterText   FieldType = "cover_letter_text"
	FieldCoverLetterUpload FieldType = "cover_letter_upload"
)

// FieldMapping describes one form control.
type FieldMapping struct {
	Selector string
	Type     FieldType
	Required bool
}

// FormContext carries the job details cover-letter generation draws on.
type FormContext struct {
	JobTitle       string
	JobDescription string // May be HTML; converted to markdown for the model
}

// FormFiller drives heterogeneous form controls and the multi-step
// easy-apply loop.
type FormFiller struct {
	page     interfaces.Page
	tracker  interfaces.ActivityLogger
	controls *common.Controls
	pacer    *common.Pacer
	provider interfaces.LLMProvider
	prompter interfaces.Prompter
	logger   arbor.ILogger

	dataDir        string
	elementTimeout time.Duration
	raiseOnError   bool

	converter *md.Converter
}

// NewFormFiller wires the filler to its collaborators. provider and prompter
// may be nil, disabling cover-letter generation and operator fallbacks.
func NewFormFiller(page interfaces.Page, tracker interfaces.ActivityLogger, controls *common.Controls, pacer *common.Pacer, provider interfaces.LLMProvider, prompter interfaces.Prompter, dataDir string, elementTimeout time.Duration, raiseOnError bool, logger arbor.ILogger) *FormFiller {
	if elementTimeout <= 0 {
		elementTimeout = 10 * time.Second
	}
	return &FormFiller{
		page:           page,
		tracker:        tracker,
		controls:       controls,
		pacer:          pacer,
		provider:       provider,
		prompter:       prompter,
		logger:         logger,
		dataDir:        dataDir,
		elementTimeout: elementTimeout,
		raiseOnError:   raiseOnError,
		converter:      md.NewConverter("", true, nil),
	}
}

func (f *FormFiller) begin(ctx context.Context) error {
	if err := f.controls.WaitIfPaused(ctx); err != nil {
		return err
	}
	return f.pacer.Wait(ctx)
}

// FillForm drives every mapped field with its tagged handler. Per-field
// failures are logged and skipped unless raise_on_error is set.
func (f *FormFiller) FillForm(ctx context.Context, data map[string]string, mapping map[string]FieldMapping, formCtx FormContext) error {
	for name, field := range mapping {
		if err := f.begin(ctx); err != nil {
			return err
		}

		err := f.fillField(ctx, name, field, data[name], formCtx)
		if err == nil {
			continue
		}
		if f.raiseOnError {
			return fmt.Errorf("field %s: %w", name, err)
		}
		f.tracker.LogActivity("form_error", fmt.Sprintf("Field %s failed: %v", name, err), models.ActivityStatusError, formFillerName, "")
	}
	return nil
}

func (f *FormFiller) fillField(ctx context.Context, name string, field FieldMapping, value string, formCtx FormContext) error {
	switch field.Type {
	case FieldText:
		return f.page.Fill(ctx, field.Selector, value)

	case FieldSelect:
		return f.page.SelectOption(ctx, field.Selector, value)

	case FieldCheckbox:
		desired := value == "true" || value == "yes" || value == "1"
		current, err := f.page.Checked(ctx, field.Selector)
		if err != nil {
			return err
		}
		if current != desired {
			return f.page.Click(ctx, field.Selector)
		}
		return nil

	case FieldRadio:
		selector := fmt.Sprintf("%s[value='%s']", field.Selector, value)
		return f.page.Click(ctx, selector)

	case FieldUpload:
		return f.handleUpload(ctx, name, field, value)

	case FieldCoverLetterText:
		text, err := f.coverLetterText(ctx, name, field, formCtx)
		if err != nil || text == "" {
			return err
		}
		return f.page.Fill(ctx, field.Selector, text)

	case FieldCoverLetterUpload:
		text, err := f.coverLetterText(ctx, name, field, formCtx)
		if err != nil || text == "" {
			return err
		}
		return f.uploadCoverLetter(ctx, field.Selector, text)

	default:
		return fmt.Errorf("unknown field type %q", field.Type)
	}
}

// handleUpload validates the path first. A missing required file asks the
// operator for a replacement; a missing optional file is skipped with a log
// entry.
func (f *FormFiller) handleUpload(ctx context.Context, name string, field FieldMapping, path string) error {
	if _, err := os.Stat(path); err != nil {
		if !field.Required {
			f.tracker.LogActivity("form_field", fmt.Sprintf("Skipping optional upload %s, file missing: %s", name, path), models.ActivityStatusInfo, formFillerName, "")
			return nil
		}
		if f.prompter == nil {
			return fmt.Errorf("%w: %s", common.ErrFileNotFound, path)
		}
		replacement, promptErr := f.prompter.Prompt(fmt.Sprintf("File for %s not found (%s). Enter a new path or leave empty to skip: ", name, path))
		if promptErr != nil {
			return promptErr
		}
		replacement = strings.TrimSpace(replacement)
		if replacement == "" {
			f.tracker.LogActivity("form_field", fmt.Sprintf("Operator skipped upload %s", name), models.ActivityStatusInfo, formFillerName, "")
			return nil
		}
		path = replacement
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("%w: %s", common.ErrFileNotFound, path)
		}
	}
	return f.page.SetUploadFile(ctx, field.Selector, path)
}

// coverLetterText generates a letter, retrying once, then falls back to the
// operator for required fields. An empty return with nil error means skip.
func (f *FormFiller) coverLetterText(ctx context.Context, name string, field FieldMapping, formCtx FormContext) (string, error) {
	text, err := f.GenerateCoverLetter(ctx, formCtx.JobTitle, formCtx.JobDescription)
	if err != nil {
		f.logger.Warn().Err(err).Msg("Cover letter generation failed, retrying once")
		text, err = f.GenerateCoverLetter(ctx, formCtx.JobTitle, formCtx.JobDescription)
	}
	if err == nil {
		return text, nil
	}

	if !field.Required {
		f.tracker.LogActivity("form_field", fmt.Sprintf("Skipping optional cover letter %s: %v", name, err), models.ActivityStatusInfo, formFillerName, "")
		return "", nil
	}
	if f.prompter == nil {
		return "", err
	}

	manual, promptErr := f.prompter.Prompt("Cover letter generation failed. Enter text manually or leave empty to skip: ")
	if promptErr != nil {
		return "", promptErr
	}
	manual = strings.TrimSpace(manual)
	if manual == "" {
		f.tracker.LogActivity("form_error", fmt.Sprintf("Required cover letter %s skipped by operator", name), models.ActivityStatusError, formFillerName, "")
		return "", nil
	}
	return manual, nil
}

// GenerateCoverLetter asks the model for a short plain-text letter. HTML job
// descriptions are converted to markdown before prompting, and the output is
// capped at the word limit.
func (f *FormFiller) GenerateCoverLetter(ctx context.Context, jobTitle, jobDescription string) (string, error) {
	if f.provider == nil {
		return "", fmt.Errorf("%w: no provider configured", common.ErrLLMUnavailable)
	}

	description := jobDescription
	if strings.Contains(description, "<") {
		if converted, err := f.converter.ConvertString(description); err == nil {
			description = converted
		}
	}

	prompt := fmt.Sprintf(
		"Write a concise cover letter for the position %q. Plain text only, no salutation placeholders, at most %d words.\n\nJob description:\n%s",
		jobTitle, coverLetterMaxWords, description)

	text, err := f.provider.GenerateContent(ctx, &interfaces.CompletionRequest{
		Messages:  []interfaces.Message{{Role: "user", Content: prompt}},
		MaxTokens: 512,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrLLMUnavailable, err)
	}

	return capWords(strings.TrimSpace(text), coverLetterMaxWords), nil
}

// uploadCoverLetter writes the text into a temporary PDF, uploads it, then
// removes the file.
func (f *FormFiller) uploadCoverLetter(ctx context.Context, selector, text string) error {
	if err := os.MkdirAll(f.dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	path := filepath.Join(f.dataDir, fmt.Sprintf("cover_letter_%s.pdf", uuid.New().String()))

	doc := fpdf.New("P", "mm", "A4", "")
	doc.AddPage()
	doc.SetFont("Helvetica", "", 11)
	doc.MultiCell(0, 6, text, "", "L", false)
	if err := doc.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("writing cover letter pdf: %w", err)
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			f.logger.Warn().Err(err).Str("path", path).Msg("Failed to remove temp cover letter")
		}
	}()

	return f.page.SetUploadFile(ctx, selector, path)
}

// SubmitForm clicks the submit control and reports whether it was found.
func (f *FormFiller) SubmitForm(ctx context.Context, submitSelector string) (bool, error) {
	if err := f.begin(ctx); err != nil {
		return false, err
	}

	present, err := f.page.Exists(ctx, submitSelector, f.elementTimeout)
	if err != nil || !present {
		return false, err
	}
	if err := f.page.Click(ctx, submitSelector); err != nil {
		return false, err
	}
	f.tracker.LogActivity("form_submit", fmt.Sprintf("Submitted via %s", submitSelector), models.ActivityStatusSuccess, formFillerName, "")
	return true, nil
}

// Easy-apply modal selectors, tried in order.
var (
	easyApplySubmitSelectors = []string{
		"button[aria-label='Submit application']",
		"button[data-control-name='submit_unify']",
	}
	easyApplyNextSelectors = []string{
		"button[aria-label='Continue to next step']",
		"button[aria-label='Review your application']",
		"button[data-control-name='continue_unify']",
	}
	easyApplyFieldSelectors = map[string]FieldMapping{
		"phone": {Selector: "input[id*='phoneNumber']", Type: FieldText},
		"email": {Selector: "input[id*='email']", Type: FieldText},
	}
)

// FillEasyApply drives the multi-step modal: fill the visible fields, submit
// when possible, otherwise continue to the next step. A step with neither
// button fails the application.
func (f *FormFiller) FillEasyApply(ctx context.Context, data map[string]string) (models.ApplicationStatus, error) {
	for step := 0; step < maxEasyApplySteps; step++ {
		if err := f.begin(ctx); err != nil {
			return models.ApplicationStatusFailed, err
		}

		for name, field := range easyApplyFieldSelectors {
			value, ok := data[name]
			if !ok || value == "" {
				continue
			}
			present, err := f.page.Exists(ctx, field.Selector, time.Second)
			if err != nil {
				return models.ApplicationStatusFailed, err
			}
			if !present {
				continue
			}
			if err := f.page.Fill(ctx, field.Selector, value); err != nil {
				if f.raiseOnError {
					return models.ApplicationStatusFailed, err
				}
				f.tracker.LogActivity("form_error", fmt.Sprintf("Easy-apply field %s failed: %v", name, err), models.ActivityStatusError, formFillerName, "")
			}
		}

		if clicked, err := f.clickFirst(ctx, easyApplySubmitSelectors); err != nil {
			return models.ApplicationStatusFailed, err
		} else if clicked {
			f.tracker.LogActivity("form_submit", "Easy-apply application submitted", models.ActivityStatusSuccess, formFillerName, "")
			return models.ApplicationStatusApplied, nil
		}

		if clicked, err := f.clickFirst(ctx, easyApplyNextSelectors); err != nil {
			return models.ApplicationStatusFailed, err
		} else if clicked {
			continue
		}

		f.tracker.LogActivity("form_error", fmt.Sprintf("Easy-apply step %d has no submit or continue control", step+1), models.ActivityStatusError, formFillerName, "")
		return models.ApplicationStatusFailed, nil
	}

	f.tracker.LogActivity("form_error", "Easy-apply exceeded the step limit", models.ActivityStatusError, formFillerName, "")
	return models.ApplicationStatusFailed, nil
}

// clickFirst tries each selector in order and clicks the first present one.
func (f *FormFiller) clickFirst(ctx context.Context, selectors []string) (bool, error) {
	for _, selector := range selectors {
		present, err := f.page.Exists(ctx, selector, time.Second)
		if err != nil {
			return false, err
		}
		if !present {
			continue
		}
		if err := f.pacer.Wait(ctx); err != nil {
			return false, err
		}
		if err := f.page.Click(ctx, selector); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// capWords truncates text to at most n words.
func capWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) <= n {
		return text
	}
	return strings.Join(words[:n], " ")
}
