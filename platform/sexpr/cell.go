// Package sexpr holds the expression tree shared by every engine and the reader
// that builds it from parenthesized prefix text such as "((x y) (+ (* x y) 10.5))".
package sexpr

import (
	"strings"
)

// Kind tags a Cell.
type Kind uint8

const (
	KindSymbol Kind = iota
	KindNumber
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindSymbol:
		return "Symbol"
	case KindNumber:
		return "Number"
	case KindList:
		return "List"
	default:
		return "Invalid"
	}
}

// Cell is a node of the expression tree. Number cells keep the literal's text;
// each engine parses it when it consumes the tree. A Cell is never modified
// after the reader returns it, so one tree may be shared by several engines.
type Cell struct {
	Kind Kind
	Val  string
	List []Cell
}

// Number returns a numeric literal cell.
func Number(text string) Cell {
	return Cell{Kind: KindNumber, Val: text}
}

// Symbol returns a symbol cell.
func Symbol(name string) Cell {
	return Cell{Kind: KindSymbol, Val: name}
}

// List returns a list cell holding cells in order.
func List(cells ...Cell) Cell {
	return Cell{Kind: KindList, List: cells}
}

// IsSymbol reports whether c is a symbol.
func (c Cell) IsSymbol() bool { return c.Kind == KindSymbol }

// String renders c as an s-expression.
func (c Cell) String() string {
	var b strings.Builder
	c.write(&b)
	return b.String()
}

func (c Cell) write(b *strings.Builder) {
	if c.Kind != KindList {
		b.WriteString(c.Val)
		return
	}
	b.WriteByte('(')
	for i, child := range c.List {
		if i > 0 {
			b.WriteByte(' ')
		}
		child.write(b)
	}
	b.WriteByte(')')
}
