package sexpr

import (
	"fmt"

	"github.com/robbyt/go-polycalc/platform"
)

// Formula is a parsed "((param...) body)" function definition.
type Formula struct {
	Params []string
	Body   Cell
}

// NewFormula validates the shape of c and splits it into parameters and body.
func NewFormula(c Cell) (*Formula, error) {
	if c.Kind != KindList || len(c.List) != 2 {
		return nil, fmt.Errorf(
			"%w: function must be of form ((arg1 arg2 ...) (expression))",
			platform.ErrMalformedTree,
		)
	}
	decl := c.List[0]
	if decl.Kind != KindList {
		return nil, fmt.Errorf("%w: parameter list is a %s", platform.ErrMalformedTree, decl.Kind)
	}

	return Define(decl.List, c.List[1])
}

// Define builds a Formula from declared parameter cells and a body, applying
// the same validation as NewFormula.
func Define(decl []Cell, body Cell) (*Formula, error) {
	params := make([]string, 0, len(decl))
	seen := make(map[string]struct{}, len(decl))
	for i, p := range decl {
		if !p.IsSymbol() {
			return nil, fmt.Errorf(
				"%w: parameter %d is a %s, not a symbol",
				platform.ErrMalformedTree, i, p.Kind,
			)
		}
		if _, dup := seen[p.Val]; dup {
			return nil, fmt.Errorf("%w: duplicate parameter %q", platform.ErrMalformedTree, p.Val)
		}
		seen[p.Val] = struct{}{}
		params = append(params, p.Val)
	}
	return &Formula{Params: params, Body: body}, nil
}

// Symbols returns a symbol cell for each name.
func Symbols(names []string) []Cell {
	cells := make([]Cell, len(names))
	for i, n := range names {
		cells[i] = Symbol(n)
	}
	return cells
}

// ParseFormula reads and validates a formula from text.
func ParseFormula(text string) (*Formula, error) {
	c, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return NewFormula(c)
}

// Positions maps each parameter name to its index in the argument vector.
func (f *Formula) Positions() map[string]int {
	return Positions(f.Params)
}

func (f *Formula) String() string {
	return List(List(Symbols(f.Params)...), f.Body).String()
}

// Positions maps each name to its index in names.
func Positions(names []string) map[string]int {
	m := make(map[string]int, len(names))
	for i, n := range names {
		m[n] = i
	}
	return m
}
