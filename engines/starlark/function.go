// Package starlark runs formulas as Starlark functions. The expression tree is
// translated once into Starlark source, compiled, and the resulting function is
// called with fresh threads.
package starlark

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/robbyt/go-polycalc/internal/helpers"
	"github.com/robbyt/go-polycalc/platform"
	"github.com/robbyt/go-polycalc/platform/sexpr"
	starlarkLib "go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

var _ platform.Function = (*Function)(nil)

// Function is a formula compiled to a Starlark function. Its globals are
// frozen after initialization, so concurrent calls are safe.
type Function struct {
	formula *sexpr.Formula
	source  string
	fn      *starlarkLib.Function
	logger  *slog.Logger
}

// New translates body over params and compiles it.
func New(params []string, body sexpr.Cell, opts ...FunctionalOption) (*Function, error) {
	formula, err := sexpr.Define(sexpr.Symbols(params), body)
	if err != nil {
		return nil, err
	}
	return FromFormula(formula, opts...)
}

// FromString parses a "((param...) body)" formula and compiles it.
func FromString(text string, opts ...FunctionalOption) (*Function, error) {
	formula, err := sexpr.ParseFormula(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	return FromFormula(formula, opts...)
}

// FromFormula compiles a parsed formula.
func FromFormula(formula *sexpr.Formula, opts ...FunctionalOption) (*Function, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	logger := cfg.logger.WithGroup("compile").With("id", helpers.ShortID(formula.String()))

	prog, err := transpile(formula, cfg.permissive)
	if err != nil {
		logger.Warn("translation failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrTranspileFailed, err)
	}
	logger.Debug("formula translated", "source", prog.source, "constants", len(prog.consts))

	predeclared := make(starlarkLib.StringDict, len(prog.consts)+1)
	for name, v := range prog.consts {
		predeclared[name] = v
	}
	predeclared[divName] = starlarkLib.NewBuiltin(divName, fdiv)

	fileOpts := &syntax.FileOptions{}
	f, err := fileOpts.Parse(entryName+".star", prog.source, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompileFailed, err)
	}
	compiled, err := starlarkLib.FileProgram(f, predeclared.Has)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompileFailed, err)
	}

	thread := &starlarkLib.Thread{Name: "init"}
	globals, err := compiled.Init(thread, predeclared)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompileFailed, err)
	}
	globals.Freeze()

	fn, ok := globals[entryName].(*starlarkLib.Function)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not defined", ErrCompileFailed, entryName)
	}

	return &Function{
		formula: formula,
		source:  prog.source,
		fn:      fn,
		logger:  cfg.logger.WithGroup("Function"),
	}, nil
}

func (f *Function) String() string {
	return f.formula.String()
}

// Source returns the generated Starlark source.
func (f *Function) Source() string {
	return f.source
}

// Params returns the declared parameter names.
func (f *Function) Params() []string {
	return slices.Clone(f.formula.Params)
}

// Call runs the Starlark function on a new thread. The thread is cancelled
// when ctx is done.
func (f *Function) Call(ctx context.Context, args []float64) (float64, error) {
	if len(args) != len(f.formula.Params) {
		return 0, fmt.Errorf(
			"%w: want %d, got %d",
			platform.ErrArgumentCount, len(f.formula.Params), len(args),
		)
	}

	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCallFailed, err)
	}

	tuple := make(starlarkLib.Tuple, len(args))
	for i, v := range args {
		tuple[i] = starlarkLib.Float(v)
	}

	thread := &starlarkLib.Thread{Name: entryName}
	stop := context.AfterFunc(ctx, func() {
		thread.Cancel(ctx.Err().Error())
	})
	defer stop()

	v, err := starlarkLib.Call(thread, f.fn, tuple, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCallFailed, err)
	}
	result, ok := starlarkLib.AsFloat(v)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrBadResult, v.Type())
	}
	return result, nil
}

// Close is a no-op; the compiled function is garbage collected.
func (f *Function) Close(context.Context) error {
	return nil
}
