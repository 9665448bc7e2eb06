package shop

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/entrhq/okaimono/pkg/types"
)

// Reporter receives progress as the orchestrator runs.
type Reporter interface {
	// ItemsResolved is called once with the derived shopping list.
	ItemsResolved(items []string)

	// CategoryResolved is called for every item. cat is nil when the item
	// could not be placed in the taxonomy.
	CategoryResolved(item string, cat *types.ItemCategory)

	// Done is called after the last item has been handled.
	Done(summary *Summary)
}

type nopReporter struct{}

func (nopReporter) ItemsResolved([]string) {}

func (nopReporter) CategoryResolved(string, *types.ItemCategory) {}

func (nopReporter) Done(*Summary) {}

var (
	salmonPink = lipgloss.Color("#FFB3BA")
	mintGreen  = lipgloss.Color("#A8E6CF")
	mutedGray  = lipgloss.Color("#6B7280")
)

// ConsoleReporter prints one line per item to a writer.
type ConsoleReporter struct {
	mu       sync.Mutex
	w        io.Writer
	header   lipgloss.Style
	item     lipgloss.Style
	category lipgloss.Style
	skipped  lipgloss.Style
}

// NewConsoleReporter creates a reporter writing to w. Colors are used only
// when w is a terminal that supports them.
func NewConsoleReporter(w io.Writer) *ConsoleReporter {
	r := lipgloss.NewRenderer(w)
	return &ConsoleReporter{
		w:        w,
		header:   r.NewStyle().Foreground(salmonPink).Bold(true),
		item:     r.NewStyle().Bold(true),
		category: r.NewStyle().Foreground(mintGreen),
		skipped:  r.NewStyle().Foreground(mutedGray).Italic(true),
	}
}

// ItemsResolved implements Reporter.
func (c *ConsoleReporter) ItemsResolved(items []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, c.header.Render(fmt.Sprintf("%d item(s) to find", len(items))))
}

// CategoryResolved implements Reporter.
func (c *ConsoleReporter) CategoryResolved(item string, cat *types.ItemCategory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cat == nil {
		fmt.Fprintln(c.w, c.item.Render(item), c.skipped.Render("(no category, skipped)"))
		return
	}
	fmt.Fprintln(c.w, c.item.Render(item), c.category.Render(cat.String()))
}

// Done implements Reporter.
func (c *ConsoleReporter) Done(summary *Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, c.header.Render(fmt.Sprintf("visited %d categor(ies), skipped %d", len(summary.Visited), len(summary.Skipped))))
}
