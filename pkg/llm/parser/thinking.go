// Package parser separates reasoning blocks from answer text in LLM streams.
package parser

import (
	"strings"

	"github.com/entrhq/okaimono/pkg/llm"
)

var (
	openTags  = []string{"<thinking>", "<think>"}
	closeTags = []string{"</thinking>", "</think>"}
)

// ThinkingParser splits streamed content into reasoning and message text.
// Both <thinking> and <think> (qwen and deepseek models) delimit reasoning.
// A tag cut between two chunks is held back until the next chunk decides it.
type ThinkingParser struct {
	pending    string
	inThinking bool
}

// NewThinkingParser creates a parser in message mode.
func NewThinkingParser() *ThinkingParser {
	return &ThinkingParser{}
}

// Parse consumes one chunk. thinking carries text inside reasoning tags,
// message carries the rest; either is nil when the chunk produced none.
func (p *ThinkingParser) Parse(content string) (thinking, message *llm.StreamChunk) {
	if content == "" {
		return nil, nil
	}

	var out splitter
	s := p.pending + content
	p.pending = ""

	for s != "" {
		i := strings.IndexByte(s, '<')
		if i < 0 {
			out.write(p.inThinking, s)
			break
		}
		out.write(p.inThinking, s[:i])
		s = s[i:]

		j := strings.IndexByte(s, '>')
		if j < 0 {
			if isTagPrefix(s) {
				p.pending = s
				break
			}
			out.write(p.inThinking, s[:1])
			s = s[1:]
			continue
		}

		switch tag := s[:j+1]; {
		case matches(tag, openTags):
			p.inThinking = true
			s = s[j+1:]
		case matches(tag, closeTags):
			p.inThinking = false
			s = s[j+1:]
		default:
			out.write(p.inThinking, s[:1])
			s = s[1:]
		}
	}

	return out.chunks()
}

// Flush emits text held back at the end of the stream.
func (p *ThinkingParser) Flush() (thinking, message *llm.StreamChunk) {
	var out splitter
	out.write(p.inThinking, p.pending)
	p.pending = ""
	return out.chunks()
}

// IsInThinking reports whether the parser is inside a reasoning block.
func (p *ThinkingParser) IsInThinking() bool {
	return p.inThinking
}

// Reset prepares the parser for a new stream.
func (p *ThinkingParser) Reset() {
	p.pending = ""
	p.inThinking = false
}

func matches(tag string, set []string) bool {
	for _, t := range set {
		if tag == t {
			return true
		}
	}
	return false
}

// isTagPrefix reports whether s could still grow into a reasoning tag.
func isTagPrefix(s string) bool {
	for _, set := range [][]string{openTags, closeTags} {
		for _, t := range set {
			if strings.HasPrefix(t, s) {
				return true
			}
		}
	}
	return false
}

type splitter struct {
	thinking strings.Builder
	message  strings.Builder
}

func (s *splitter) write(inThinking bool, text string) {
	if inThinking {
		s.thinking.WriteString(text)
	} else {
		s.message.WriteString(text)
	}
}

func (s *splitter) chunks() (thinking, message *llm.StreamChunk) {
	if s.thinking.Len() > 0 {
		thinking = &llm.StreamChunk{Content: s.thinking.String(), Type: llm.ContentTypeThinking}
	}
	if s.message.Len() > 0 {
		message = &llm.StreamChunk{Content: s.message.String(), Type: llm.ContentTypeMessage}
	}
	return thinking, message
}
