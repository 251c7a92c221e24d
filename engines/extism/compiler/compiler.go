// Package compiler packages a formula's native routine as an Extism plugin.
// The plugin is self-contained: any Extism host can call its entry point with
// the arguments as little-endian float64s and read the result back the same way.
package compiler

import (
	"context"
	"fmt"
	"time"

	"github.com/robbyt/go-polycalc/engines/extism/compiler/internal/compile"
	"github.com/robbyt/go-polycalc/internal/helpers"
	"github.com/robbyt/go-polycalc/internal/pool"
	"github.com/robbyt/go-polycalc/platform/sexpr"
)

// New builds body over params into a plugin and loads it.
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

// FromString parses a "((param...) body)" formula and loads it as a plugin.
func FromString(ctx context.Context, text string, opts ...FunctionalOption) (*Function, error) {
	formula, err := sexpr.ParseFormula(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	return FromFormula(ctx, formula, opts...)
}

// FromFormula builds a plugin for formula and loads it with the Extism SDK.
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

	bin, err := buildPlugin(formula, cfg)
	if err != nil {
		logger.WarnContext(ctx, "plugin build failed", "error", err)
		return nil, err
	}
	logger.DebugContext(ctx, "plugin built", "bytes", len(bin), "entryPoint", cfg.entryPoint)

	start := time.Now()
	plugin, err := compile.Plugin(ctx, bin, &compile.Settings{RuntimeConfig: cfg.runtimeConfig})
	if err != nil {
		logger.ErrorContext(ctx, "plugin compilation failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrCompileFailed, err)
	}
	logger.DebugContext(ctx, "plugin compiled", "duration", time.Since(start))

	f := &Function{
		formula:    formula,
		bin:        bin,
		entryPoint: cfg.entryPoint,
		plugin:     plugin,
		logger:     cfg.logger.WithGroup("Function"),
	}
	f.instances = pool.New(cfg.poolSize, f.instantiate, closeInstance)

	inst, err := f.instances.Get(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "instantiation failed", "error", err)
		if closeErr := f.Close(ctx); closeErr != nil {
			logger.WarnContext(ctx, "failed to release plugin", "error", closeErr)
		}
		return nil, err
	}
	if err := f.instances.Put(ctx, inst); err != nil {
		return nil, err
	}
	return f, nil
}
