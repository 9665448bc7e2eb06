package browser

import "github.com/playwright-community/playwright-go"

// Defaults applied by SessionOptions when a field is left zero.
const (
	DefaultTimeout        = 30000.0 // milliseconds
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	DefaultInputSelector  = "input"
)

// Session drives one Playwright page for the whole run. Browser and Context
// are owned by the Launcher that created the session and are nil for sessions
// built with NewSession.
type Session struct {
	Browser playwright.Browser
	Context playwright.BrowserContext
	Page    playwright.Page

	Headless bool

	// InputSelector is the locator Input resolves. The storefront has a
	// single text field per step, so one selector serves email and code.
	InputSelector string

	// NavigationTimeout bounds each Goto, in milliseconds.
	NavigationTimeout float64
}

// SessionOptions configures Launcher.Start and NewSession.
type SessionOptions struct {
	Headless bool
	Viewport *Viewport

	// Timeout is the page default timeout in milliseconds.
	Timeout float64

	InputSelector string
}

// Viewport is the page size in CSS pixels.
type Viewport struct {
	Width  int
	Height int
}

func (o SessionOptions) withDefaults() SessionOptions {
	if o.Viewport == nil {
		o.Viewport = &Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight}
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.InputSelector == "" {
		o.InputSelector = DefaultInputSelector
	}
	return o
}
