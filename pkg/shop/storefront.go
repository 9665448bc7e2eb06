package shop

import (
	"fmt"
	"net/url"
)

// DefaultBaseURL is the storefront root.
const DefaultBaseURL = "https://app.onigo.club/"

// homePath is the storefront home, relative to the root.
const homePath = "shop"

// Storefront builds page URLs relative to the storefront root.
type Storefront struct {
	base *url.URL
}

// NewStorefront parses the storefront root URL.
func NewStorefront(baseURL string) (Storefront, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return Storefront{}, fmt.Errorf("invalid storefront URL %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return Storefront{}, fmt.Errorf("storefront URL %q must be absolute", baseURL)
	}
	return Storefront{base: u}, nil
}

// DefaultStorefront returns the storefront at DefaultBaseURL.
func DefaultStorefront() Storefront {
	s, err := NewStorefront(DefaultBaseURL)
	if err != nil {
		panic(err)
	}
	return s
}

// BaseURL returns the storefront root.
func (s Storefront) BaseURL() string {
	if s.base == nil {
		return ""
	}
	return s.base.String()
}

// HomeURL returns the storefront home page. A signed-in session lands on it.
func (s Storefront) HomeURL() string {
	u, _ := s.URL(homePath)
	return u
}

// URL resolves a path such as "shop#お酒" against the root.
func (s Storefront) URL(path string) (string, error) {
	if s.base == nil {
		return "", fmt.Errorf("storefront has no base URL")
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid storefront path %q: %w", path, err)
	}
	return s.base.ResolveReference(ref).String(), nil
}

// DisplayURL returns rawURL with its fragment unescaped, so category URLs read
// as "shop#お酒" in logs. The result is for people; navigate with rawURL.
func DisplayURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Fragment == "" {
		return rawURL
	}
	frag := u.Fragment
	u.Fragment, u.RawFragment = "", ""
	return u.String() + "#" + frag
}
