package common

import "errors"

// Error taxonomy. Agents wrap these sentinels with context via fmt.Errorf and
// callers classify with errors.Is.
var (
	// Configuration
	ErrConfigInvalid = errors.New("invalid configuration")

	// File I/O and validation
	ErrFileNotFound      = errors.New("file not found")
	ErrFileTooLarge      = errors.New("file exceeds maximum size")
	ErrFileUnreadable    = errors.New("file is not readable")
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// Network / DOM (retryable)
	ErrNavigationTimeout = errors.New("navigation timed out")
	ErrNavigationFailed  = errors.New("navigation failed")
	ErrElementNotFound   = errors.New("element not found")
	ErrNotInteractable   = errors.New("element not interactable")

	// Session (abort flow, no retry)
	ErrLoggedOut       = errors.New("user is logged out")
	ErrCaptchaRequired = errors.New("captcha encountered")

	// Tasks
	ErrTaskTimeout   = errors.New("task timed out")
	ErrTaskCancelled = errors.New("task cancelled")

	// External collaborators (non-critical, trigger fallback)
	ErrLLMUnavailable    = errors.New("llm provider error")
	ErrSolverUnavailable = errors.New("captcha solver error")
)

// IsRetryable reports whether an error should be retried by the controller's
// backoff loop. Session and validation errors are terminal for the flow.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrLoggedOut),
		errors.Is(err, ErrCaptchaRequired),
		errors.Is(err, ErrConfigInvalid),
		errors.Is(err, ErrTaskCancelled),
		errors.Is(err, ErrFileNotFound),
		errors.Is(err, ErrFileTooLarge),
		errors.Is(err, ErrUnsupportedFormat):
		return false
	}
	return true
}
