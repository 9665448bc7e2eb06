// Package shop walks the storefront: it signs in, resolves the request into
// items and categories, and visits each category page.
package shop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/entrhq/okaimono/pkg/browser"
	"github.com/entrhq/okaimono/pkg/logging"
	"github.com/entrhq/okaimono/pkg/taxonomy"
	"github.com/entrhq/okaimono/pkg/types"
)

// DefaultEmail is the identity used when none is configured.
const DefaultEmail = "example@example.com"

// DefaultSettleDelay is the wait after each category and home navigation.
const DefaultSettleDelay = time.Second

// Authenticator signs the session in. *auth.Sequencer implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, email string) error
}

// ItemResolver runs the two model stages. *resolve.Resolver implements it.
type ItemResolver interface {
	ResolveItems(ctx context.Context, query string) (types.ShoppingList, error)
	ResolveCategory(ctx context.Context, item string) (*types.ItemCategory, error)
}

// Session is the identity owned by one run.
type Session struct {
	Email string
}

// Visit records a category page the run navigated to. URL is the escaped form
// passed to the driver.
type Visit struct {
	Item     string
	Category types.ItemCategory
	URL      string
}

// DisplayURL returns the visit's URL with a readable fragment.
func (v Visit) DisplayURL() string {
	return DisplayURL(v.URL)
}

// Summary describes a completed run.
type Summary struct {
	Query   string
	Items   []string
	Visited []Visit
	Skipped []string
}

// Orchestrator composes sign-in, resolution and navigation for one run.
type Orchestrator struct {
	driver     browser.Driver
	auth       Authenticator
	resolver   ItemResolver
	storefront Storefront
	session    Session
	taxonomy   *taxonomy.Taxonomy
	reporter   Reporter
	settle     time.Duration
	logger     *logging.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStorefront sets the storefront being walked.
func WithStorefront(s Storefront) Option {
	return func(o *Orchestrator) {
		o.storefront = s
	}
}

// WithSession sets the identity used to sign in.
func WithSession(s Session) Option {
	return func(o *Orchestrator) {
		o.session = s
	}
}

// WithTaxonomy sets the categories navigation is restricted to.
func WithTaxonomy(t *taxonomy.Taxonomy) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.taxonomy = t
		}
	}
}

// WithReporter sets where progress is reported.
func WithReporter(r Reporter) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.reporter = r
		}
	}
}

// WithSettleDelay sets the fixed pause after each navigation.
func WithSettleDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.settle = d
	}
}

// WithLogger sets the orchestrator's logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewOrchestrator creates an orchestrator driving driver.
func NewOrchestrator(driver browser.Driver, authenticator Authenticator, resolver ItemResolver, opts ...Option) (*Orchestrator, error) {
	if driver == nil {
		return nil, errors.New("browser driver is required")
	}
	if authenticator == nil {
		return nil, errors.New("authenticator is required")
	}
	if resolver == nil {
		return nil, errors.New("item resolver is required")
	}

	o := &Orchestrator{
		driver:     driver,
		auth:       authenticator,
		resolver:   resolver,
		storefront: DefaultStorefront(),
		session:    Session{Email: DefaultEmail},
		taxonomy:   taxonomy.Default(),
		reporter:   nopReporter{},
		settle:     DefaultSettleDelay,
		logger:     logging.Discard("shop"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Run signs in once, derives the shopping list once, then resolves and visits
// each item's category in list order. Items without a category are skipped.
// Any other failure stops the run and is returned; no partial summary is
// produced.
func (o *Orchestrator) Run(ctx context.Context, query string) (*Summary, error) {
	o.logger.Infof("run started for %q as %s", query, o.session.Email)

	if err := o.auth.Authenticate(ctx, o.session.Email); err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	list, err := o.resolver.ResolveItems(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("resolve items: %w", err)
	}
	o.reporter.ItemsResolved(list.Items)

	summary := &Summary{Query: query, Items: list.Items}
	home := o.storefront.HomeURL()

	for _, item := range list.Items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cat, err := o.resolver.ResolveCategory(ctx, item)
		if err != nil {
			return nil, fmt.Errorf("resolve category for %q: %w", item, err)
		}
		o.reporter.CategoryResolved(item, cat)

		if cat == nil || !o.taxonomy.Contains(cat.CategoryPath) {
			o.logger.Infof("skipping %q", item)
			summary.Skipped = append(summary.Skipped, item)
			continue
		}

		visit, err := o.visit(ctx, item, *cat, home)
		if err != nil {
			return nil, err
		}
		summary.Visited = append(summary.Visited, visit)
	}

	o.logger.Infof("run finished: %d visited, %d skipped", len(summary.Visited), len(summary.Skipped))
	o.reporter.Done(summary)
	return summary, nil
}

func (o *Orchestrator) visit(ctx context.Context, item string, cat types.ItemCategory, home string) (Visit, error) {
	target, err := o.storefront.URL(cat.CategoryPath)
	if err != nil {
		return Visit{}, err
	}

	o.logger.Debugf("visiting %s for %q", DisplayURL(target), item)
	steps := []func() error{
		func() error { return o.driver.Goto(ctx, target) },
		func() error { return o.driver.WaitFixed(ctx, o.settle) },
		func() error { return o.driver.Goto(ctx, home) },
		func() error { return o.driver.WaitFixed(ctx, o.settle) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return Visit{}, fmt.Errorf("visit %s: %w", cat.CategoryPath, err)
		}
	}

	return Visit{Item: item, Category: cat, URL: target}, nil
}
