// Package polycalc compiles arithmetic formulas written as s-expressions into
// functions that can be called many times, on any of several engines.
//
// A formula is a parameter list followed by a body:
//
//	((x y) (+ (* x y) 10.5))
//
// Every engine performs its analysis once at construction; calls only evaluate.
package polycalc

import (
	"context"
	"fmt"
	"slices"

	extismCompiler "github.com/robbyt/go-polycalc/engines/extism/compiler"
	"github.com/robbyt/go-polycalc/engines/interp"
	jitCompiler "github.com/robbyt/go-polycalc/engines/jit/compiler"
	"github.com/robbyt/go-polycalc/engines/starlark"
	"github.com/robbyt/go-polycalc/engines/types"
	"github.com/robbyt/go-polycalc/options"
	"github.com/robbyt/go-polycalc/platform"
	"github.com/robbyt/go-polycalc/platform/script/loader"
	"github.com/robbyt/go-polycalc/platform/sexpr"
)

// New loads a formula and builds it on the given engine.
func New(
	ctx context.Context,
	engine types.Type,
	ldr loader.Loader,
	opts ...options.Option,
) (platform.Function, error) {
	cfg, err := options.New(opts...)
	if err != nil {
		return nil, err
	}
	formula, err := loader.ReadFormula(ldr)
	if err != nil {
		return nil, err
	}
	return build(ctx, engine, formula, cfg)
}

// NewEvaluator loads a formula, builds it on the given engine and binds it to
// the configured data provider, so it can be called with named values.
func NewEvaluator(
	ctx context.Context,
	engine types.Type,
	ldr loader.Loader,
	opts ...options.Option,
) (*platform.Evaluator, error) {
	cfg, err := options.New(opts...)
	if err != nil {
		return nil, err
	}
	formula, err := loader.ReadFormula(ldr)
	if err != nil {
		return nil, err
	}
	fn, err := build(ctx, engine, formula, cfg)
	if err != nil {
		return nil, err
	}
	return platform.NewEvaluator(fn, cfg.GetDataProvider(), cfg.GetHandler()), nil
}

// FromInterpreterString builds formula text on the tree-walking interpreter.
func FromInterpreterString(text string, opts ...options.Option) (platform.Function, error) {
	return fromString(context.Background(), types.Interpreter, text, opts)
}

// FromJITString compiles formula text to native code.
func FromJITString(ctx context.Context, text string, opts ...options.Option) (platform.Function, error) {
	return fromString(ctx, types.JIT, text, opts)
}

// FromStarlarkString builds formula text as a Starlark function.
func FromStarlarkString(text string, opts ...options.Option) (platform.Function, error) {
	return fromString(context.Background(), types.Starlark, text, opts)
}

// FromExtismString packages formula text as an Extism plugin and loads it.
func FromExtismString(ctx context.Context, text string, opts ...options.Option) (platform.Function, error) {
	return fromString(ctx, types.Extism, text, opts)
}

// FromStringWithData builds formula text on engine and binds it to values,
// which values added to the context at evaluation time override.
func FromStringWithData(
	ctx context.Context,
	engine types.Type,
	text string,
	values map[string]any,
	opts ...options.Option,
) (*platform.Evaluator, error) {
	ldr, err := loader.NewFromString(text)
	if err != nil {
		return nil, err
	}
	return NewEvaluator(ctx, engine, ldr, append(slices.Clone(opts), options.WithStaticData(values))...)
}

func fromString(
	ctx context.Context,
	engine types.Type,
	text string,
	opts []options.Option,
) (platform.Function, error) {
	ldr, err := loader.NewFromString(text)
	if err != nil {
		return nil, err
	}
	return New(ctx, engine, ldr, opts...)
}

func build(
	ctx context.Context,
	engine types.Type,
	formula *sexpr.Formula,
	cfg *options.Config,
) (platform.Function, error) {
	switch engine {
	case types.Interpreter:
		opts := []interp.FunctionalOption{interp.WithLogHandler(cfg.GetHandler())}
		if cfg.Permissive() {
			opts = append(opts, interp.WithPermissiveNumbers())
		}
		return function(interp.FromFormula(formula, opts...))

	case types.JIT:
		opts := []jitCompiler.FunctionalOption{jitCompiler.WithLogHandler(cfg.GetHandler())}
		if cfg.Permissive() {
			opts = append(opts, jitCompiler.WithPermissiveNumbers())
		}
		if n := cfg.GetPoolSize(); n > 0 {
			opts = append(opts, jitCompiler.WithPoolSize(n))
		}
		if rc := cfg.GetRuntimeConfig(); rc != nil {
			opts = append(opts, jitCompiler.WithRuntimeConfig(rc))
		}
		return function(jitCompiler.FromFormula(ctx, formula, opts...))

	case types.Starlark:
		opts := []starlark.FunctionalOption{starlark.WithLogHandler(cfg.GetHandler())}
		if cfg.Permissive() {
			opts = append(opts, starlark.WithPermissiveNumbers())
		}
		return function(starlark.FromFormula(formula, opts...))

	case types.Extism:
		opts := []extismCompiler.FunctionalOption{extismCompiler.WithLogHandler(cfg.GetHandler())}
		if cfg.Permissive() {
			opts = append(opts, extismCompiler.WithPermissiveNumbers())
		}
		if n := cfg.GetPoolSize(); n > 0 {
			opts = append(opts, extismCompiler.WithPoolSize(n))
		}
		if rc := cfg.GetRuntimeConfig(); rc != nil {
			opts = append(opts, extismCompiler.WithRuntimeConfig(rc))
		}
		if ep := cfg.GetEntryPoint(); ep != "" {
			opts = append(opts, extismCompiler.WithEntryPoint(ep))
		}
		return function(extismCompiler.FromFormula(ctx, formula, opts...))

	default:
		return nil, fmt.Errorf("unsupported engine type: %q", engine)
	}
}

// function drops the concrete type so a failed build returns a nil interface.
func function[F platform.Function](fn F, err error) (platform.Function, error) {
	if err != nil {
		return nil, err
	}
	return fn, nil
}
