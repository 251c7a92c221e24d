package sexpr

import (
	"errors"
	"fmt"
	"unicode"
)

var (
	ErrEmptyInput    = errors.New("empty input")
	ErrUnbalanced    = errors.New("unbalanced parentheses")
	ErrTrailingInput = errors.New("unexpected input after expression")
)

// Tokenize splits text on whitespace and around parentheses.
func Tokenize(text string) []string {
	var tokens []string
	start := -1
	flush := func(end int) {
		if start >= 0 {
			tokens = append(tokens, text[start:end])
			start = -1
		}
	}
	for i, r := range text {
		switch {
		case r == '(' || r == ')':
			flush(i)
			tokens = append(tokens, string(r))
		case unicode.IsSpace(r):
			flush(i)
		case start < 0:
			start = i
		}
	}
	flush(len(text))
	return tokens
}

// Parse reads exactly one expression from text.
func Parse(text string) (Cell, error) {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return Cell{}, ErrEmptyInput
	}
	r := &reader{tokens: tokens}
	c, err := r.read()
	if err != nil {
		return Cell{}, err
	}
	if r.pos < len(r.tokens) {
		if r.tokens[r.pos] == ")" {
			return Cell{}, fmt.Errorf("%w: stray ')' at token %d", ErrUnbalanced, r.pos)
		}
		return Cell{}, fmt.Errorf("%w: %q", ErrTrailingInput, r.tokens[r.pos])
	}
	return c, nil
}

type reader struct {
	tokens []string
	pos    int
}

func (r *reader) read() (Cell, error) {
	if r.pos >= len(r.tokens) {
		return Cell{}, fmt.Errorf("%w: missing ')'", ErrUnbalanced)
	}
	tok := r.tokens[r.pos]
	r.pos++
	switch tok {
	case "(":
		list := List()
		for {
			if r.pos >= len(r.tokens) {
				return Cell{}, fmt.Errorf("%w: missing ')'", ErrUnbalanced)
			}
			if r.tokens[r.pos] == ")" {
				r.pos++
				return list, nil
			}
			c, err := r.read()
			if err != nil {
				return Cell{}, err
			}
			list.List = append(list.List, c)
		}
	case ")":
		return Cell{}, fmt.Errorf("%w: stray ')' at token %d", ErrUnbalanced, r.pos-1)
	default:
		return atom(tok), nil
	}
}

// atom classifies a token: a leading digit, or '-' followed by a digit, makes a
// Number; anything else is a Symbol.
func atom(tok string) Cell {
	if isDigit(tok[0]) || (len(tok) > 1 && tok[0] == '-' && isDigit(tok[1])) {
		return Number(tok)
	}
	return Symbol(tok)
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
