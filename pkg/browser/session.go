package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

var _ Driver = (*Session)(nil)

// NewSession wraps an existing Playwright page. Browser and Context may be nil
// when the caller owns their lifecycle.
func NewSession(page playwright.Page, opts SessionOptions) *Session {
	opts = opts.withDefaults()
	return &Session{
		Page:              page,
		Headless:          opts.Headless,
		InputSelector:     opts.InputSelector,
		NavigationTimeout: opts.Timeout,
	}
}

// Goto navigates the session's page to url and waits for the load event.
func (s *Session) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	opts := playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	}
	if s.NavigationTimeout > 0 {
		opts.Timeout = playwright.Float(s.NavigationTimeout)
	}

	if _, err := s.Page.Goto(url, opts); err != nil {
		return &ActionError{Op: "goto", Target: url, Err: err}
	}
	return nil
}

// CurrentURL returns the page URL.
func (s *Session) CurrentURL() string {
	return s.Page.URL()
}

// WaitFixed sleeps for d. A timer is used instead of page.WaitForTimeout so
// the pause can be cut short by ctx.
func (s *Session) WaitFixed(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ByText locates the element whose text matches label.
func (s *Session) ByText(label string) Control {
	return &locatorControl{
		locator: s.Page.GetByText(label),
		target:  fmt.Sprintf("text=%q", label),
	}
}

// Input locates the page's text input.
func (s *Session) Input() Control {
	return &locatorControl{
		locator: s.Page.Locator(s.InputSelector),
		target:  s.InputSelector,
	}
}

// locatorControl adapts a Playwright locator to Control.
type locatorControl struct {
	locator playwright.Locator
	target  string
}

func (c *locatorControl) Fill(text string) error {
	if err := c.locator.Fill(text); err != nil {
		return &ActionError{Op: "fill", Target: c.target, Err: err}
	}
	return nil
}

func (c *locatorControl) Click() error {
	if err := c.locator.Click(); err != nil {
		return &ActionError{Op: "click", Target: c.target, Err: err}
	}
	return nil
}
