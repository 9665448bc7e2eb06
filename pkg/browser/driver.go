package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Driver is the page automation surface the shopping flow depends on.
// *Session implements it on top of Playwright.
type Driver interface {
	// Goto navigates the page to url and waits for the load event.
	Goto(ctx context.Context, url string) error

	// CurrentURL returns the URL the page is currently showing.
	CurrentURL() string

	// WaitFixed pauses for d, returning early with ctx.Err() if ctx is done.
	WaitFixed(ctx context.Context, d time.Duration) error

	// ByText locates the control whose visible text matches label.
	ByText(label string) Control

	// Input locates the page's text input.
	Input() Control
}

// Control is a located element on the page.
type Control interface {
	Fill(text string) error
	Click() error
}

// ErrNavigation matches every *ActionError via errors.Is.
var ErrNavigation = errors.New("browser action failed")

// ActionError reports a navigation or interaction step the browser could not complete.
type ActionError struct {
	// Op is the step that failed: goto, click or fill.
	Op string

	// Target is the URL or element description the step acted on.
	Target string

	Err error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Op, e.Target, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrNavigation) match.
func (e *ActionError) Is(target error) bool {
	return target == ErrNavigation
}
