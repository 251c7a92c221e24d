// Package compiler turns a formula into native code. The expression tree is
// walked once to emit a WebAssembly routine, which wazero compiles to machine
// code; calls then run the compiled routine directly.
package compiler

import (
	"context"
	"fmt"
	"time"

	"github.com/robbyt/go-polycalc/internal/helpers"
	"github.com/robbyt/go-polycalc/internal/pool"
	"github.com/robbyt/go-polycalc/platform/sexpr"
	"github.com/tetratelabs/wazero"
)

// New compiles body over params into a Function.
func New(
	ctx context.Context,
	params []string,
	body sexpr.Cell,
	opts ...FunctionalOption,
) (*Function, error) {
	formula, err := sexpr.Define(sexpr.Symbols(params), body)
	if err != nil {
		return nil, err
	}
	return FromFormula(ctx, formula, opts...)
}

// FromString parses a "((param...) body)" formula and compiles it.
func FromString(ctx context.Context, text string, opts ...FunctionalOption) (*Function, error) {
	formula, err := sexpr.ParseFormula(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	return FromFormula(ctx, formula, opts...)
}

// FromFormula compiles a parsed formula.
func FromFormula(
	ctx context.Context,
	formula *sexpr.Formula,
	opts ...FunctionalOption,
) (*Function, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	logger := cfg.logger.WithGroup("compile").With("id", helpers.ShortID(formula.String()))

	bin, emitted, err := buildModule(formula, cfg)
	if err != nil {
		logger.WarnContext(ctx, "code generation failed", "error", err)
		return nil, err
	}
	logger.DebugContext(ctx, "routine emitted", "instructions", emitted, "bytes", len(bin))

	start := time.Now()
	rt := wazero.NewRuntimeWithConfig(ctx, cfg.runtimeConfig)
	compiled, err := rt.CompileModule(ctx, bin)
	if err != nil {
		logger.ErrorContext(ctx, "native compilation failed", "error", err)
		if closeErr := rt.Close(ctx); closeErr != nil {
			logger.WarnContext(ctx, "failed to close runtime", "error", closeErr)
		}
		return nil, fmt.Errorf("%w: %w", ErrCompileFailed, err)
	}
	logger.DebugContext(ctx, "routine compiled", "duration", time.Since(start))

	f := &Function{
		formula:  formula,
		bin:      bin,
		emitted:  emitted,
		runtime:  rt,
		compiled: compiled,
		logger:   cfg.logger.WithGroup("Function"),
	}
	f.instances = pool.New(cfg.poolSize, f.instantiate, closeInstance)

	// Instantiate once up front so a module the runtime rejects fails here
	// rather than on the first call.
	inst, err := f.instances.Get(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "instantiation failed", "error", err)
		if closeErr := f.Close(ctx); closeErr != nil {
			logger.WarnContext(ctx, "failed to release routine", "error", closeErr)
		}
		return nil, err
	}
	if err := f.instances.Put(ctx, inst); err != nil {
		return nil, err
	}
	return f, nil
}
