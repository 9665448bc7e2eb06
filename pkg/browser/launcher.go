package browser

import (
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// Launcher owns the Playwright driver process and the single browser session
// a shopping run uses.
type Launcher struct {
	mu          sync.Mutex
	playwright  *playwright.Playwright
	session     *Session
	initialized bool
	skipInstall bool
}

// LauncherOption configures a Launcher.
type LauncherOption func(*Launcher)

// WithSkipInstall skips the browser download step, for environments where
// Playwright's browsers are provisioned ahead of time.
func WithSkipInstall() LauncherOption {
	return func(l *Launcher) {
		l.skipInstall = true
	}
}

// NewLauncher creates a launcher. Initialize must be called before Start.
func NewLauncher(opts ...LauncherOption) *Launcher {
	l := &Launcher{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Initialize installs (unless skipped) and starts Playwright.
func (l *Launcher) Initialize() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.initialized {
		return nil
	}

	// Keep Playwright's progress output off the operator's terminal; the
	// one-time-code prompt shares it.
	opts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if !l.skipInstall {
		if err := playwright.Install(opts); err != nil {
			return fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	l.playwright = pw
	l.initialized = true
	return nil
}

// Start launches Chromium with one context and one page.
// Only one session may be active at a time.
func (l *Launcher) Start(opts SessionOptions) (*Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.initialized {
		return nil, fmt.Errorf("launcher not initialized")
	}
	if l.session != nil {
		return nil, fmt.Errorf("a browser session is already running")
	}

	opts = opts.withDefaults()

	browser, err := l.playwright.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	context, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
	})
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	page.SetDefaultTimeout(opts.Timeout)

	session := NewSession(page, opts)
	session.Browser = browser
	session.Context = context
	l.session = session
	return session, nil
}

// Shutdown closes the session and stops Playwright. Safe to call more than once.
func (l *Launcher) Shutdown() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error
	if s := l.session; s != nil {
		if s.Page != nil {
			if err := s.Page.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if s.Context != nil {
			if err := s.Context.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if s.Browser != nil {
			if err := s.Browser.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		l.session = nil
	}

	if l.initialized && l.playwright != nil {
		if err := l.playwright.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
		l.initialized = false
		l.playwright = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing browser: %v", errs)
	}
	return nil
}
