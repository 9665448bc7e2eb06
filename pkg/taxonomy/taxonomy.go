// Package taxonomy provides the fixed storefront category list that items are
// matched against.
package taxonomy

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed categories.yaml
var defaultCategories []byte

// Entry is a single storefront category.
type Entry struct {
	Name string `yaml:"category" json:"category"`
	Path string `yaml:"path" json:"path"`
}

// Taxonomy is an ordered, immutable list of categories.
type Taxonomy struct {
	entries []Entry
	byPath  map[string]int
	byName  map[string]int
}

var (
	defaultOnce sync.Once
	defaultTax  *Taxonomy
)

// Default returns the taxonomy shipped with the binary.
// It panics if the embedded data is invalid, which only a broken build can cause.
func Default() *Taxonomy {
	defaultOnce.Do(func() {
		t, err := Parse(defaultCategories)
		if err != nil {
			panic(fmt.Sprintf("embedded taxonomy is invalid: %v", err))
		}
		defaultTax = t
	})
	return defaultTax
}

// Parse decodes a taxonomy from YAML of the form
//
//	categories:
//	  - category: お魚
//	    path: shop#お魚
func Parse(data []byte) (*Taxonomy, error) {
	var doc struct {
		Categories []Entry `yaml:"categories"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode taxonomy: %w", err)
	}
	return New(doc.Categories)
}

// New builds a taxonomy from entries, keeping their order.
func New(entries []Entry) (*Taxonomy, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("taxonomy has no categories")
	}

	t := &Taxonomy{
		entries: make([]Entry, 0, len(entries)),
		byPath:  make(map[string]int, len(entries)),
		byName:  make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		e.Name = strings.TrimSpace(e.Name)
		e.Path = strings.TrimSpace(e.Path)
		if e.Name == "" || e.Path == "" {
			return nil, fmt.Errorf("category %d has an empty name or path", i)
		}
		if _, dup := t.byPath[e.Path]; dup {
			return nil, fmt.Errorf("duplicate category path %q", e.Path)
		}
		t.byPath[e.Path] = len(t.entries)
		if _, dup := t.byName[e.Name]; !dup {
			t.byName[e.Name] = len(t.entries)
		}
		t.entries = append(t.entries, e)
	}
	return t, nil
}

// Entries returns a copy of the categories in order.
func (t *Taxonomy) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of categories.
func (t *Taxonomy) Len() int {
	return len(t.entries)
}

// Contains reports whether path is one of the category paths.
func (t *Taxonomy) Contains(path string) bool {
	_, ok := t.byPath[path]
	return ok
}

// LookupPath returns the category with the given path.
func (t *Taxonomy) LookupPath(path string) (Entry, bool) {
	i, ok := t.byPath[strings.TrimSpace(path)]
	if !ok {
		return Entry{}, false
	}
	return t.entries[i], true
}

// LookupName returns the first category with the given name.
func (t *Taxonomy) LookupName(name string) (Entry, bool) {
	i, ok := t.byName[strings.TrimSpace(name)]
	if !ok {
		return Entry{}, false
	}
	return t.entries[i], true
}

// PromptJSON renders the categories as the JSON document embedded in the
// category-matching prompt: {"categories":[{"category":...,"path":...},...]}.
func (t *Taxonomy) PromptJSON() string {
	doc := struct {
		Categories []Entry `json:"categories"`
	}{Categories: t.entries}

	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	// Encoding a slice of string pairs cannot fail.
	_ = enc.Encode(doc)
	return strings.TrimSpace(b.String())
}
