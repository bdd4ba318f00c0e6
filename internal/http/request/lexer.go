package request

import "strings"

// lexer splits a protocol line into whitespace separated tokens and hands
// them out in order.
type lexer struct {
	tokens []string
	pos    int
}

func lex(line string) *lexer {
	return &lexer{tokens: strings.Fields(line)}
}

func (l *lexer) count() int {
	return len(l.tokens)
}

func (l *lexer) remaining() int {
	return len(l.tokens) - l.pos
}

func (l *lexer) next() (string, bool) {
	if l.pos >= len(l.tokens) {
		return "", false
	}
	tok := l.tokens[l.pos]
	l.pos++
	return tok, true
}

func (l *lexer) peekRest() string {
	if l.pos >= len(l.tokens) {
		return ""
	}
	return strings.Join(l.tokens[l.pos:], " ")
}

// rest consumes every remaining token and joins them with single spaces.
func (l *lexer) rest() string {
	s := l.peekRest()
	l.pos = len(l.tokens)
	return s
}
