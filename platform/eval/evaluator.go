// Package eval implements the tree walk shared by every engine. The walk is
// generic over the result representation R: the interpreter uses float64,
// the code generator uses handles to virtual registers, and the Starlark engine
// uses source fragments. Engines vary only in the three handlers they plug in.
package eval

import (
	"fmt"

	"github.com/robbyt/go-polycalc/platform"
	"github.com/robbyt/go-polycalc/platform/sexpr"
)

// NumberFunc builds an R from numeric literal text.
type NumberFunc[R any] func(text string) (R, error)

// SymbolFunc resolves a parameter name to an R.
type SymbolFunc[R any] func(name string) (R, error)

// Operation combines the evaluated operands of a list, in order.
type Operation[R any] func(args []R) (R, error)

// OperationTable maps operator names to operations.
type OperationTable[R any] map[string]Operation[R]

// Evaluator walks an expression tree post-order. It holds no state besides its
// handlers; any side effects belong to them.
type Evaluator[R any] struct {
	Number NumberFunc[R]

	// Symbol may be nil, in which case every bare symbol is unresolved.
	Symbol SymbolFunc[R]

	Ops OperationTable[R]
}

// Eval evaluates c. List operands are evaluated left to right before the
// operator is looked up.
func (e *Evaluator[R]) Eval(c sexpr.Cell) (R, error) {
	var zero R
	switch c.Kind {
	case sexpr.KindNumber:
		if e.Number == nil {
			return zero, fmt.Errorf("%w: %q", platform.ErrInvalidNumber, c.Val)
		}
		return e.Number(c.Val)

	case sexpr.KindSymbol:
		if e.Symbol == nil {
			return zero, fmt.Errorf("%w: %q", platform.ErrUnresolvedSymbol, c.Val)
		}
		return e.Symbol(c.Val)

	case sexpr.KindList:
		if len(c.List) == 0 {
			return zero, fmt.Errorf("%w: empty list", platform.ErrMalformedTree)
		}

		args := make([]R, len(c.List)-1)
		for i, child := range c.List[1:] {
			v, err := e.Eval(child)
			if err != nil {
				return zero, err
			}
			args[i] = v
		}

		head := c.List[0]
		if !head.IsSymbol() {
			return zero, fmt.Errorf("%w: operator %s is a %s", platform.ErrMalformedTree, head, head.Kind)
		}
		op, ok := e.Ops[head.Val]
		if !ok || op == nil {
			return zero, fmt.Errorf("%w: %q", platform.ErrUnknownOperation, head.Val)
		}
		r, err := op(args)
		if err != nil {
			return zero, fmt.Errorf("operation %q: %w", head.Val, err)
		}
		return r, nil
	}
	return zero, fmt.Errorf("%w: invalid cell kind %d", platform.ErrMalformedTree, c.Kind)
}

// Binary wraps a two-operand function. Fewer than two operands is an error;
// operands past the second were already evaluated and are ignored.
func Binary[R any](fn func(a, b R) (R, error)) Operation[R] {
	return func(args []R) (R, error) {
		if len(args) < 2 {
			var zero R
			return zero, fmt.Errorf("%w: want 2, got %d", platform.ErrOperandCount, len(args))
		}
		return fn(args[0], args[1])
	}
}

// Operators lists the names every engine's operation table provides.
var Operators = []string{"+", "-", "*", "/"}
