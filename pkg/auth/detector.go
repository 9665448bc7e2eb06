package auth

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Detector decides from the page URL whether the session is signed in.
// The storefront exposes no explicit success signal, so the current URL is
// the only observable proxy.
type Detector interface {
	Authenticated(currentURL string) bool
}

// PrefixDetector reports signed in when the URL starts with Prefix.
type PrefixDetector struct {
	Prefix string
}

// Authenticated implements Detector.
func (p PrefixDetector) Authenticated(currentURL string) bool {
	return p.Prefix != "" && strings.HasPrefix(currentURL, p.Prefix)
}

// GlobDetector reports signed in when the URL matches a glob pattern such as
// "https://app.onigo.club/shop*".
type GlobDetector struct {
	pattern string
	g       glob.Glob
}

// NewGlobDetector compiles pattern.
func NewGlobDetector(pattern string) (*GlobDetector, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid auth pattern %q: %w", pattern, err)
	}
	return &GlobDetector{pattern: pattern, g: g}, nil
}

// Authenticated implements Detector.
func (d *GlobDetector) Authenticated(currentURL string) bool {
	return d.g.Match(currentURL)
}

func (d *GlobDetector) String() string {
	return d.pattern
}
