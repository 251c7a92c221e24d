// Package interp evaluates expression trees by walking them directly, with
// float64 as the result of every subexpression.
package interp

import (
	"fmt"
	"log/slog"

	"github.com/robbyt/go-polycalc/platform/eval"
	"github.com/robbyt/go-polycalc/platform/sexpr"
)

// Calculator evaluates expressions without parameters. Any bare symbol is
// unresolved.
type Calculator struct {
	evaluator *eval.Evaluator[float64]
	logger    *slog.Logger
}

// NewCalculator creates a Calculator.
func NewCalculator(opts ...FunctionalOption) (*Calculator, error) {
	cfg, err := newConfig("Calculator", opts)
	if err != nil {
		return nil, err
	}
	return &Calculator{
		evaluator: &eval.Evaluator[float64]{
			Number: numberFunc(cfg.permissive),
			Ops:    operations(),
		},
		logger: cfg.logger,
	}, nil
}

func (c *Calculator) String() string {
	return "interp.Calculator"
}

// Eval evaluates cell.
func (c *Calculator) Eval(cell sexpr.Cell) (float64, error) {
	v, err := c.evaluator.Eval(cell)
	if err != nil {
		c.logger.Debug("evaluation failed", "expr", cell.String(), "error", err)
		return 0, err
	}
	return v, nil
}

// EvalString parses and evaluates text.
func (c *Calculator) EvalString(text string) (float64, error) {
	cell, err := sexpr.Parse(text)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	return c.Eval(cell)
}

func numberFunc(permissive bool) eval.NumberFunc[float64] {
	return func(text string) (float64, error) {
		return eval.ParseNumber(text, permissive)
	}
}

// operations follows IEEE 754: division by zero yields an infinity or NaN.
func operations() eval.OperationTable[float64] {
	return eval.OperationTable[float64]{
		"+": eval.Binary(func(a, b float64) (float64, error) { return a + b, nil }),
		"-": eval.Binary(func(a, b float64) (float64, error) { return a - b, nil }),
		"*": eval.Binary(func(a, b float64) (float64, error) { return a * b, nil }),
		"/": eval.Binary(func(a, b float64) (float64, error) { return a / b, nil }),
	}
}
