// Package interfaces defines the narrow capability contracts shared between
// the controller, agents and external collaborators.
package interfaces

import (
	"context"
	"time"
)

// Page is the browser driver surface the core depends on. The chromedp
// implementation in internal/browser is the production backend; tests use a
// scriptable fake. All operations honour context cancellation.
type Page interface {
	// Navigation
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	GoBack(ctx context.Context) error
	Reload(ctx context.Context) error

	// Element interaction
	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, value string) error
	Type(ctx context.Context, selector, text string) error
	SelectOption(ctx context.Context, selector, value string) error
	SetUploadFile(ctx context.Context, selector, path string) error
	PressEnter(ctx context.Context, selector string) error
	Hover(ctx context.Context, selector string) error

	// Queries
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	Exists(ctx context.Context, selector string, timeout time.Duration) (bool, error)
	Text(ctx context.Context, selector string) (string, error)
	Attribute(ctx context.Context, selector, name string) (string, bool, error)
	OuterHTML(ctx context.Context, selector string) (string, error)
	Checked(ctx context.Context, selector string) (bool, error)
	Count(ctx context.Context, selector string) (int, error)

	// Scripting and viewport
	Evaluate(ctx context.Context, js string, result any) error
	ScrollIntoView(ctx context.Context, selector string) error
	ScrollBy(ctx context.Context, pixels int) error
	Screenshot(ctx context.Context, path string) error
	ScreenshotElement(ctx context.Context, selector, path string) error
	ViewportWidth(ctx context.Context) (int, error)

	// Frames. Iframe context is single level: SwitchToFrame replaces the
	// active frame pointer, SwitchToMainFrame restores the root.
	SwitchToFrame(ctx context.Context, selector string) error
	SwitchToMainFrame()

	// Drag and drop between two elements.
	DragAndDrop(ctx context.Context, sourceSelector, targetSelector string) error

	// Popups. ConsumePopup reports whether a new target opened since the
	// last call and closes it.
	ConsumePopup(ctx context.Context) (bool, error)

	Close() error
}
