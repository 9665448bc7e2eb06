// Package prompt asks the operator for the one-time login code.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// DefaultLabel is shown before each code request.
const DefaultLabel = "認証コードを入力してください："

var (
	// ErrAborted is returned when the operator cancels the prompt.
	ErrAborted = errors.New("code entry aborted")

	// ErrClosed is returned when the input stream ends before a line is read.
	ErrClosed = errors.New("code input closed")
)

// CodePrompter reads one code per call. An empty string is a valid answer;
// callers decide how to treat it.
type CodePrompter interface {
	PromptCode(ctx context.Context) (string, error)
}

// LinePrompter reads codes line by line from a plain reader. It is used when
// stdin is not a terminal.
//
// One goroutine owns the reader for the prompter's lifetime. A prompt that is
// canceled leaves the next line queued for the following prompt.
type LinePrompter struct {
	reader *bufio.Reader
	out    io.Writer
	label  string

	start sync.Once
	lines chan lineResult
}

// NewLinePrompter creates a prompter reading from in and writing the label to out.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{
		reader: bufio.NewReader(in),
		out:    out,
		label:  DefaultLabel,
		lines:  make(chan lineResult),
	}
}

type lineResult struct {
	line string
	err  error
}

// readLines feeds p.lines until the reader fails, then closes it. A final line
// without a newline is still delivered before the close.
func (p *LinePrompter) readLines() {
	defer close(p.lines)
	for {
		line, err := p.reader.ReadString('\n')
		if line != "" || err == nil {
			p.lines <- lineResult{line: line}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				p.lines <- lineResult{err: err}
			}
			return
		}
	}
}

// PromptCode writes the label and waits for the next line or for ctx.
func (p *LinePrompter) PromptCode(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.start.Do(func() { go p.readLines() })

	if p.out != nil {
		fmt.Fprint(p.out, p.label)
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-p.lines:
		if !ok {
			return "", ErrClosed
		}
		if res.err != nil {
			return "", fmt.Errorf("failed to read code: %w", res.err)
		}
		return strings.TrimSpace(res.line), nil
	}
}
