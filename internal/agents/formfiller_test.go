package agents

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/interfaces"
	"github.com/ternarybob/peto/internal/models"
)

func testFiller(t *testing.T, page interfaces.Page, tracker interfaces.ActivityLogger, provider interfaces.LLMProvider, prompter interfaces.Prompter, raiseOnError bool) *FormFiller {
	t.Helper()
	return NewFormFiller(page, tracker, common.NewControls(), fastPacer(), provider, prompter,
		t.TempDir(), 100*time.Millisecond, raiseOnError, common.GetLogger())
}

func TestFillForm_TextSelectAndRadio(t *testing.T) {
	page := newFakePage()
	page.existing["input#name"] = true
	page.existing["select#country"] = true
	page.existing["input[name='mode'][value='remote']"] = true

	filler := testFiller(t, page, &memoryTracker{}, nil, nil, true)
	err := filler.FillForm(context.Background(),
		map[string]string{"name": "Jane", "country": "AU", "mode": "remote"},
		map[string]FieldMapping{
			"name":    {Selector: "input#name", Type: FieldText},
			"country": {Selector: "select#country", Type: FieldSelect},
			"mode":    {Selector: "input[name='mode']", Type: FieldRadio},
		}, FormContext{})

	require.NoError(t, err)
	assert.Equal(t, "Jane", page.fills["input#name"])
	assert.Equal(t, "AU", page.fills["select#country"])
	assert.Contains(t, page.clicks, "input[name='mode'][value='remote']")
}

func TestFillForm_CheckboxTogglesOnlyOnMismatch(t *testing.T) {
	page := newFakePage()
	page.existing["input#subscribed"] = true
	page.existing["input#agreed"] = true
	page.checked["input#subscribed"] = true

	filler := testFiller(t, page, &memoryTracker{}, nil, nil, true)
	err := filler.FillForm(context.Background(),
		map[string]string{"subscribed": "true", "agreed": "true"},
		map[string]FieldMapping{
			"subscribed": {Selector: "input#subscribed", Type: FieldCheckbox},
			"agreed":     {Selector: "input#agreed", Type: FieldCheckbox},
		}, FormContext{})

	require.NoError(t, err)
	assert.NotContains(t, page.clicks, "input#subscribed", "already-checked box must not be toggled")
	assert.Contains(t, page.clicks, "input#agreed")
}

func TestFillForm_MissingOptionalUploadSkips(t *testing.T) {
	page := newFakePage()
	page.existing["input#cv"] = true
	tracker := &memoryTracker{}

	filler := testFiller(t, page, tracker, nil, nil, false)
	err := filler.FillForm(context.Background(),
		map[string]string{"cv": "/does/not/exist.pdf"},
		map[string]FieldMapping{"cv": {Selector: "input#cv", Type: FieldUpload, Required: false}},
		FormContext{})

	require.NoError(t, err)
	assert.Empty(t, page.uploads)
	assert.True(t, tracker.hasEntry("form_field", "file missing"))
}

func TestFillForm_MissingRequiredUploadPromptsForReplacement(t *testing.T) {
	page := newFakePage()
	page.existing["input#cv"] = true
	replacement := filepath.Join(t.TempDir(), "cv.txt")
	require.NoError(t, writeFile(replacement, "resume"))
	prompter := &recordingPrompter{responses: []string{replacement}}

	filler := testFiller(t, page, &memoryTracker{}, nil, prompter, true)
	err := filler.FillForm(context.Background(),
		map[string]string{"cv": "/does/not/exist.pdf"},
		map[string]FieldMapping{"cv": {Selector: "input#cv", Type: FieldUpload, Required: true}},
		FormContext{})

	require.NoError(t, err)
	assert.Len(t, prompter.prompts, 1)
	assert.Equal(t, replacement, page.uploads["input#cv"])
}

func TestCoverLetter_FallbackPromptsOperatorOnce(t *testing.T) {
	page := newFakePage()
	page.existing["textarea#cover"] = true
	provider := &failingProvider{failures: 2}
	prompter := &recordingPrompter{responses: []string{"My manually written letter."}}
	tracker := &memoryTracker{}

	filler := testFiller(t, page, tracker, provider, prompter, false)
	err := filler.FillForm(context.Background(),
		map[string]string{},
		map[string]FieldMapping{"cover": {Selector: "textarea#cover", Type: FieldCoverLetterText, Required: true}},
		FormContext{JobTitle: "Software Engineer"})

	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls, "generation retries exactly once")
	assert.Len(t, prompter.prompts, 1, "operator prompted exactly once")
	assert.Equal(t, "My manually written letter.", page.fills["textarea#cover"])
}

func TestCoverLetter_OperatorSkipLogsFormError(t *testing.T) {
	page := newFakePage()
	page.existing["textarea#cover"] = true
	provider := &failingProvider{failures: 2}
	prompter := &recordingPrompter{responses: []string{""}}
	tracker := &memoryTracker{}

	filler := testFiller(t, page, tracker, provider, prompter, false)
	err := filler.FillForm(context.Background(),
		map[string]string{},
		map[string]FieldMapping{"cover": {Selector: "textarea#cover", Type: FieldCoverLetterText, Required: true}},
		FormContext{JobTitle: "Software Engineer"})

	require.NoError(t, err)
	assert.True(t, tracker.hasEntry("form_error", "skipped by operator"))
	assert.Empty(t, page.fills["textarea#cover"])
}

func TestGenerateCoverLetter_CapsWordCount(t *testing.T) {
	longText := strings.Repeat("word ", 400)
	provider := &failingProvider{failures: 0, response: longText}

	filler := testFiller(t, newFakePage(), &memoryTracker{}, provider, nil, false)
	text, err := filler.GenerateCoverLetter(context.Background(), "Engineer", "Build things.")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(strings.Fields(text)), coverLetterMaxWords)
}

func TestGenerateCoverLetter_ConvertsHTMLDescription(t *testing.T) {
	provider := &failingProvider{failures: 0, response: "A short letter."}
	filler := testFiller(t, newFakePage(), &memoryTracker{}, provider, nil, false)

	text, err := filler.GenerateCoverLetter(context.Background(), "Engineer",
		"<div><h2>Role</h2><p>Build <b>services</b>.</p></div>")
	require.NoError(t, err)
	assert.Equal(t, "A short letter.", text)
}

func TestFillEasyApply_SubmitPresentReturnsApplied(t *testing.T) {
	page := newFakePage()
	page.existing["input[id*='phoneNumber']"] = true
	page.existing["button[aria-label='Submit application']"] = true
	tracker := &memoryTracker{}

	filler := testFiller(t, page, tracker, nil, nil, false)
	status, err := filler.FillEasyApply(context.Background(), map[string]string{"phone": "555-0100"})

	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusApplied, status)
	assert.Equal(t, "555-0100", page.fills["input[id*='phoneNumber']"])
	assert.True(t, tracker.hasEntry("form_submit", "submitted"))
}

func TestFillEasyApply_MultiStepThenSubmit(t *testing.T) {
	page := newFakePage()
	continueSel := "button[aria-label='Continue to next step']"
	page.existing[continueSel] = true

	// Clicking continue reveals the submit button on the next step.
	page.clickHook = func(selector string) {
		if selector == continueSel {
			delete(page.existing, continueSel)
			page.existing["button[aria-label='Submit application']"] = true
		}
	}
	filler := testFiller(t, page, &memoryTracker{}, nil, nil, false)

	status, err := filler.FillEasyApply(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusApplied, status)
}

func TestFillEasyApply_NoControlsFails(t *testing.T) {
	page := newFakePage()
	tracker := &memoryTracker{}

	filler := testFiller(t, page, tracker, nil, nil, false)
	status, err := filler.FillEasyApply(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusFailed, status)
	assert.True(t, tracker.hasEntry("form_error", "no submit or continue"))
}

func TestSubmitForm_ReportsAbsence(t *testing.T) {
	filler := testFiller(t, newFakePage(), &memoryTracker{}, nil, nil, false)
	submitted, err := filler.SubmitForm(context.Background(), "button#submit")
	require.NoError(t, err)
	assert.False(t, submitted)
}
