package interfaces

import "context"

// CaptchaSolver submits a CAPTCHA image and resolves it to text. The external
// HTTP implementation polls a solver service; the manual implementation
// prompts the operator.
type CaptchaSolver interface {
	// Solve takes raw PNG bytes and returns the solution text. Polling is
	// interruptible through the context.
	Solve(ctx context.Context, image []byte) (string, error)
}

// Prompter requests input from the operator. The CLI front-end reads stdin;
// tests use a canned implementation.
type Prompter interface {
	Prompt(message string) (string, error)
}
