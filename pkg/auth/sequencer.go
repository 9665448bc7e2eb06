// Package auth signs a session into the storefront, including the
// interactive one-time-code exchange.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/entrhq/okaimono/pkg/browser"
	"github.com/entrhq/okaimono/pkg/logging"
	"github.com/entrhq/okaimono/pkg/prompt"
)

// ErrStalled is returned when the retry policy runs out before the
// storefront accepts a code.
var ErrStalled = errors.New("authentication stalled")

// DefaultSettleDelay is the wait after navigation and credential submission.
const DefaultSettleDelay = time.Second

// State is a step of the sign-in handshake.
type State int

const (
	Unauthenticated State = iota
	AwaitingCredentialSubmission
	AwaitingOneTimeCode
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case AwaitingCredentialSubmission:
		return "awaiting-credential-submission"
	case AwaitingOneTimeCode:
		return "awaiting-one-time-code"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// RetryPolicy bounds the one-time-code loop. MaxAttempts counts submitted
// (non-empty) codes; zero means unbounded. Timeout covers the whole
// handshake; zero means none.
type RetryPolicy struct {
	MaxAttempts int
	Timeout     time.Duration
}

// DefaultRetryPolicy allows five codes and no overall timeout.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5}
}

// Labels are the visible texts of the login controls.
type Labels struct {
	Login    string
	Submit   string
	Complete string
}

// DefaultLabels returns the storefront's labels.
func DefaultLabels() Labels {
	return Labels{
		Login:    "ログイン",
		Submit:   "送信",
		Complete: "ログインする",
	}
}

// Sequencer drives the sign-in state machine against a browser.Driver.
type Sequencer struct {
	driver   browser.Driver
	prompter prompt.CodePrompter
	homeURL  string
	detector Detector
	policy   RetryPolicy
	labels   Labels
	settle   time.Duration
	logger   *logging.Logger
	state    State
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithDetector replaces the default home-URL prefix check.
func WithDetector(d Detector) Option {
	return func(s *Sequencer) {
		if d != nil {
			s.detector = d
		}
	}
}

// WithRetryPolicy sets the code loop bounds.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(s *Sequencer) {
		s.policy = p
	}
}

// WithLabels overrides the control labels. Empty fields keep their default.
func WithLabels(l Labels) Option {
	return func(s *Sequencer) {
		if l.Login != "" {
			s.labels.Login = l.Login
		}
		if l.Submit != "" {
			s.labels.Submit = l.Submit
		}
		if l.Complete != "" {
			s.labels.Complete = l.Complete
		}
	}
}

// WithSettleDelay sets the fixed pause after page-changing actions.
func WithSettleDelay(d time.Duration) Option {
	return func(s *Sequencer) {
		s.settle = d
	}
}

// WithLogger sets the logger used for state transitions.
func WithLogger(l *logging.Logger) Option {
	return func(s *Sequencer) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSequencer creates a sequencer that signs in at homeURL. Unless
// WithDetector is given, the session counts as signed in once the page URL
// starts with homeURL.
func NewSequencer(driver browser.Driver, prompter prompt.CodePrompter, homeURL string, opts ...Option) *Sequencer {
	s := &Sequencer{
		driver:   driver,
		prompter: prompter,
		homeURL:  homeURL,
		detector: PrefixDetector{Prefix: homeURL},
		policy:   DefaultRetryPolicy(),
		labels:   DefaultLabels(),
		settle:   DefaultSettleDelay,
		logger:   logging.Discard("auth"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the state reached by the last Authenticate call.
func (s *Sequencer) State() State {
	return s.state
}

func (s *Sequencer) transition(to State) {
	if s.state != to {
		s.logger.Infof("%s -> %s", s.state, to)
	}
	s.state = to
}

// Authenticate signs in as email. It returns nil once the detector accepts
// the page URL, which may happen before any credentials are entered.
func (s *Sequencer) Authenticate(ctx context.Context, email string) error {
	s.state = Unauthenticated

	parent := ctx
	if s.policy.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.policy.Timeout)
		defer cancel()
	}

	err := s.run(ctx, email)
	if err != nil && parent.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: not signed in within %s: %w", ErrStalled, s.policy.Timeout, err)
	}
	return err
}

func (s *Sequencer) run(ctx context.Context, email string) error {
	if err := s.driver.Goto(ctx, s.homeURL); err != nil {
		return err
	}
	if err := s.driver.WaitFixed(ctx, s.settle); err != nil {
		return err
	}

	if s.detector.Authenticated(s.driver.CurrentURL()) {
		s.logger.Infof("already signed in at %s", s.driver.CurrentURL())
		s.transition(Authenticated)
		return nil
	}

	s.transition(AwaitingCredentialSubmission)
	if err := s.driver.ByText(s.labels.Login).Click(); err != nil {
		return err
	}
	if err := s.driver.Input().Fill(email); err != nil {
		return err
	}
	if err := s.driver.WaitFixed(ctx, s.settle); err != nil {
		return err
	}
	if err := s.driver.ByText(s.labels.Submit).Click(); err != nil {
		return err
	}

	s.transition(AwaitingOneTimeCode)
	return s.codeLoop(ctx)
}

func (s *Sequencer) codeLoop(ctx context.Context) error {
	attempts := 0
	for {
		if s.policy.MaxAttempts > 0 && attempts >= s.policy.MaxAttempts {
			s.logger.Warnf("giving up after %d codes", attempts)
			return fmt.Errorf("%w: %d codes rejected", ErrStalled, attempts)
		}

		code, err := s.prompter.PromptCode(ctx)
		if err != nil {
			return fmt.Errorf("failed to read one-time code: %w", err)
		}
		code = strings.TrimSpace(code)
		if code == "" {
			s.logger.Debugf("empty code, prompting again")
			continue
		}
		attempts++

		if err := s.driver.Input().Fill(code); err != nil {
			return err
		}
		if err := s.driver.ByText(s.labels.Complete).Click(); err != nil {
			return err
		}
		if err := s.driver.WaitFixed(ctx, s.settle); err != nil {
			return err
		}

		if s.detector.Authenticated(s.driver.CurrentURL()) {
			s.logger.Infof("code accepted after %d attempt(s)", attempts)
			s.transition(Authenticated)
			return nil
		}
		s.logger.Warnf("code %d not accepted, still at %s", attempts, s.driver.CurrentURL())
	}
}
