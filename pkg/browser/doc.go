// Package browser drives a single Chromium page through Playwright.
//
// The shopping flow only needs a small capability set, captured by Driver:
// navigate, read the current URL, pause, and locate controls either by their
// visible text or as the page's text input. *Session implements Driver over a
// playwright.Page, and Launcher manages the Playwright process, browser,
// context and page behind it.
//
// Every Playwright failure is returned as an *ActionError, which matches
// ErrNavigation under errors.Is.
//
// # Example Usage
//
//	launcher := browser.NewLauncher()
//	if err := launcher.Initialize(); err != nil {
//	    return err
//	}
//	defer launcher.Shutdown()
//
//	session, err := launcher.Start(browser.SessionOptions{Headless: false})
//	if err != nil {
//	    return err
//	}
//	if err := session.Goto(ctx, "https://app.onigo.club/shop"); err != nil {
//	    return err
//	}
//	err = session.ByText("ログイン").Click()
package browser
