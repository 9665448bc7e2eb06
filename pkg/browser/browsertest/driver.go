// Package browsertest provides an in-memory browser.Driver for tests.
package browsertest

import (
	"context"
	"sync"
	"time"

	"github.com/entrhq/okaimono/pkg/browser"
)

// Op names recorded in Call.Op.
const (
	OpGoto  = "goto"
	OpWait  = "wait"
	OpClick = "click"
	OpFill  = "fill"
)

// InputTarget is the Call.Target recorded for the page's text input.
const InputTarget = "input"

// Call is one recorded driver interaction.
type Call struct {
	Op     string
	Target string
	Value  string
}

// Driver records every interaction and simulates page URLs.
type Driver struct {
	mu    sync.Mutex
	url   string
	input string
	calls []Call

	// Redirects maps a requested URL to the URL the page lands on.
	Redirects map[string]string

	// OnClick runs after a click on a control located by text. It is called
	// without the driver lock held, so it may call SetURL or InputValue.
	OnClick func(d *Driver, label string)

	// Errors makes operations fail. Keys are an op name ("goto") or an op
	// and target joined by a colon ("click:送信", "fill:input").
	Errors map[string]error
}

var _ browser.Driver = (*Driver)(nil)

// New returns a driver showing about:blank.
func New() *Driver {
	return &Driver{url: "about:blank"}
}

func (d *Driver) record(c Call) error {
	d.calls = append(d.calls, c)
	if err, ok := d.Errors[c.Op+":"+c.Target]; ok {
		return err
	}
	if err, ok := d.Errors[c.Op]; ok {
		return err
	}
	return nil
}

// Goto implements browser.Driver.
func (d *Driver) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.record(Call{Op: OpGoto, Target: url}); err != nil {
		return &browser.ActionError{Op: OpGoto, Target: url, Err: err}
	}
	if to, ok := d.Redirects[url]; ok {
		d.url = to
	} else {
		d.url = url
	}
	return nil
}

// CurrentURL implements browser.Driver.
func (d *Driver) CurrentURL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url
}

// SetURL changes the simulated page URL.
func (d *Driver) SetURL(url string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.url = url
}

// InputValue returns the last text filled into the input.
func (d *Driver) InputValue() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.input
}

// WaitFixed implements browser.Driver without sleeping.
func (d *Driver) WaitFixed(ctx context.Context, dur time.Duration) error {
	d.mu.Lock()
	d.calls = append(d.calls, Call{Op: OpWait, Value: dur.String()})
	d.mu.Unlock()
	return ctx.Err()
}

// ByText implements browser.Driver.
func (d *Driver) ByText(label string) browser.Control {
	return &control{d: d, target: label, byText: true}
}

// Input implements browser.Driver.
func (d *Driver) Input() browser.Control {
	return &control{d: d, target: InputTarget}
}

// Calls returns a copy of the recorded interactions.
func (d *Driver) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// Count returns how many calls of op were recorded.
func (d *Driver) Count(op string) int {
	n := 0
	for _, c := range d.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Targets returns the targets of every call of op, in order.
func (d *Driver) Targets(op string) []string {
	var out []string
	for _, c := range d.Calls() {
		if c.Op == op {
			out = append(out, c.Target)
		}
	}
	return out
}

type control struct {
	d      *Driver
	target string
	byText bool
}

func (c *control) Fill(text string) error {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()

	if err := c.d.record(Call{Op: OpFill, Target: c.target, Value: text}); err != nil {
		return &browser.ActionError{Op: OpFill, Target: c.target, Err: err}
	}
	c.d.input = text
	return nil
}

func (c *control) Click() error {
	c.d.mu.Lock()
	err := c.d.record(Call{Op: OpClick, Target: c.target})
	onClick := c.d.OnClick
	c.d.mu.Unlock()

	if err != nil {
		return &browser.ActionError{Op: OpClick, Target: c.target, Err: err}
	}
	if onClick != nil && c.byText {
		onClick(c.d, c.target)
	}
	return nil
}
