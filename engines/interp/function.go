package interp

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/robbyt/go-polycalc/platform"
	"github.com/robbyt/go-polycalc/platform/eval"
	"github.com/robbyt/go-polycalc/platform/sexpr"
)

var _ platform.Function = (*Function)(nil)

// Function is a formula that re-walks its body on every call. It holds no
// per-call state, so concurrent calls are safe.
type Function struct {
	formula   *sexpr.Formula
	positions map[string]int
	number    eval.NumberFunc[float64]
	ops       eval.OperationTable[float64]
	logger    *slog.Logger
}

// New builds a Function over params and body. Every symbol in body must be one
// of params and every operator must be known; both are checked here rather
// than on the first call.
func New(params []string, body sexpr.Cell, opts ...FunctionalOption) (*Function, error) {
	formula, err := sexpr.Define(sexpr.Symbols(params), body)
	if err != nil {
		return nil, err
	}
	return FromFormula(formula, opts...)
}

// FromString parses a "((param...) body)" formula and builds a Function.
func FromString(text string, opts ...FunctionalOption) (*Function, error) {
	formula, err := sexpr.ParseFormula(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	return FromFormula(formula, opts...)
}

// FromFormula builds a Function from a parsed formula.
func FromFormula(formula *sexpr.Formula, opts ...FunctionalOption) (*Function, error) {
	cfg, err := newConfig("Function", opts)
	if err != nil {
		return nil, err
	}
	logger := cfg.logger.WithGroup("New")

	if err := eval.Check(formula.Body, formula.Params, eval.Operators, cfg.permissive); err != nil {
		logger.Warn("formula validation failed", "formula", formula.String(), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	logger.Debug("function ready", "formula", formula.String(), "params", len(formula.Params))
	return &Function{
		formula:   formula,
		positions: formula.Positions(),
		number:    numberFunc(cfg.permissive),
		ops:       operations(),
		logger:    cfg.logger,
	}, nil
}

func (f *Function) String() string {
	return f.formula.String()
}

// Params returns the declared parameter names.
func (f *Function) Params() []string {
	return slices.Clone(f.formula.Params)
}

// Call evaluates the body with args bound to the parameters in order.
func (f *Function) Call(_ context.Context, args []float64) (float64, error) {
	if len(args) != len(f.formula.Params) {
		return 0, fmt.Errorf(
			"%w: want %d, got %d",
			platform.ErrArgumentCount, len(f.formula.Params), len(args),
		)
	}

	e := eval.Evaluator[float64]{
		Number: f.number,
		Ops:    f.ops,
		Symbol: func(name string) (float64, error) {
			i, ok := f.positions[name]
			if !ok {
				return 0, fmt.Errorf("%w: %q", platform.ErrUnresolvedSymbol, name)
			}
			return args[i], nil
		},
	}
	return e.Eval(f.formula.Body)
}

// Close is a no-op; a Function owns no resources.
func (f *Function) Close(context.Context) error {
	return nil
}
