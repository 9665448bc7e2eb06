package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	salmonPink = lipgloss.Color("#FFB3BA")
	mutedGray  = lipgloss.Color("#6B7280")

	labelStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Bold(true)

	hintStyle = lipgloss.NewStyle().
			Foreground(mutedGray)
)

// TerminalPrompter shows a single-line Bubble Tea input for the code.
type TerminalPrompter struct {
	in    io.Reader
	out   io.Writer
	label string
}

// NewTerminalPrompter creates a prompter bound to the given terminal streams.
func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: in, out: out, label: DefaultLabel}
}

// PromptCode runs the input program until the operator presses Enter.
// Ctrl+C and Esc return ErrAborted.
func (p *TerminalPrompter) PromptCode(ctx context.Context) (string, error) {
	program := tea.NewProgram(
		newCodeModel(p.label),
		tea.WithContext(ctx),
		tea.WithInput(p.in),
		tea.WithOutput(p.out),
	)

	final, err := program.Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if errors.Is(err, tea.ErrProgramKilled) {
			return "", ErrAborted
		}
		return "", fmt.Errorf("code prompt failed: %w", err)
	}

	m, ok := final.(codeModel)
	if !ok {
		return "", fmt.Errorf("code prompt returned unexpected model %T", final)
	}
	if m.aborted {
		return "", ErrAborted
	}
	return m.Code(), nil
}

// codeModel is the Bubble Tea model behind TerminalPrompter.
type codeModel struct {
	input     textinput.Model
	label     string
	submitted bool
	aborted   bool
}

func newCodeModel(label string) codeModel {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = "123456"
	ti.CharLimit = 32
	ti.Width = 16
	ti.Focus()

	return codeModel{input: ti, label: label}
}

func (m codeModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m codeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.submitted = true
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc:
			m.aborted = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m codeModel) View() string {
	if m.submitted || m.aborted {
		// Leave the label and answer on screen once the program exits.
		return labelStyle.Render(m.label) + m.input.Value() + "\n"
	}
	return labelStyle.Render(m.label) + m.input.View() + "\n" +
		hintStyle.Render("Enter to submit · Esc to cancel") + "\n"
}

// Code returns the trimmed input.
func (m codeModel) Code() string {
	return strings.TrimSpace(m.input.Value())
}
