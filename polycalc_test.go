package polycalc_test

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/robbyt/go-polycalc"
	"github.com/robbyt/go-polycalc/engines/types"
	"github.com/robbyt/go-polycalc/options"
	"github.com/robbyt/go-polycalc/platform"
	"github.com/robbyt/go-polycalc/platform/script/loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"
)

func quiet() options.Option {
	return options.WithLogHandler(slog.NewTextHandler(io.Discard, nil))
}

func mustNew(t testing.TB, engine types.Type, text string, opts ...options.Option) platform.Function {
	t.Helper()
	ldr, err := loader.NewFromString(text)
	require.NoError(t, err)
	fn, err := polycalc.New(context.Background(), engine, ldr, append([]options.Option{quiet()}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, fn.Close(context.Background())) })
	return fn
}

// Every engine must produce bit-identical results for the same formula.
func TestEnginesAgree(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name    string
		formula string
		args    [][]float64
	}{
		{"readme example", "((x y) (+ (* x y) 10.5))", [][]float64{{4, 2}, {0, 0}, {-1.25, 3e10}}},
		{"operand order", "((a b) (- (/ a b) (- b a)))", [][]float64{{1, 3}, {7, 0.5}, {-2, 8}}},
		{"ieee division", "((a b) (/ a b))", [][]float64{{1, 0}, {-1, 0}, {0, 0}}},
		{"constants", "(() (* 0.1 3))", [][]float64{nil}},
		{"extra operands", "((x) (+ x 1 (* x 100)))", [][]float64{{2}}},
		{"deep nesting", "((a b c) (/ (+ a (* b c)) (- c (- a b))))", [][]float64{{1, 2, 3}, {0.1, 0.2, 0.3}}},
		{"operator names as parameters", "((+ *) (* + *))", [][]float64{{3, 4}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fns := make(map[types.Type]platform.Function, len(types.All))
			for _, engine := range types.All {
				fns[engine] = mustNew(t, engine, tt.formula)
			}

			for _, args := range tt.args {
				want, err := fns[types.Interpreter].Call(ctx, args)
				require.NoError(t, err)
				for engine, fn := range fns {
					got, err := fn.Call(ctx, args)
					require.NoError(t, err, engine)
					if math.IsNaN(want) {
						assert.True(t, math.IsNaN(got), "%s: %v", engine, args)
						continue
					}
					assert.Equal(t, math.Float64bits(want), math.Float64bits(got), "%s: %v", engine, args)
				}
			}
		})
	}
}

func TestEnginesAgreeOnErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name    string
		formula string
		want    error
	}{
		{"unknown operation", "((x) (% x 2))", platform.ErrUnknownOperation},
		{"unresolved symbol", "((x) (+ x y))", platform.ErrUnresolvedSymbol},
		{"missing operand", "((x) (+ x))", platform.ErrOperandCount},
		{"invalid literal", "((x) (+ x 1.5abc))", platform.ErrInvalidNumber},
		{"empty list", "((x) ())", platform.ErrMalformedTree},
		{"duplicate parameter", "((x x) x)", platform.ErrMalformedTree},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ldr, err := loader.NewFromString(tt.formula)
			require.NoError(t, err)
			for _, engine := range types.All {
				_, err := polycalc.New(ctx, engine, ldr, quiet())
				require.ErrorIs(t, err, tt.want, engine)
			}
		})
	}

	t.Run("argument count", func(t *testing.T) {
		for _, engine := range types.All {
			fn := mustNew(t, engine, "((x y) (+ x y))")
			_, err := fn.Call(ctx, []float64{1})
			require.ErrorIs(t, err, platform.ErrArgumentCount, engine)
		}
	})
}

func TestPermissiveNumbers(t *testing.T) {
	t.Parallel()
	for _, engine := range types.All {
		fn := mustNew(t, engine, "((x) (+ x 1.5abc))", options.WithPermissiveNumbers())
		got, err := fn.Call(context.Background(), []float64{1})
		require.NoError(t, err, engine)
		assert.InDelta(t, 2.5, got, 0, engine)
	}
}

func TestFromStringConstructors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	const text = "((x y) (+ (* x y) 10.5))"

	constructors := map[string]func() (platform.Function, error){
		"interpreter": func() (platform.Function, error) { return polycalc.FromInterpreterString(text, quiet()) },
		"jit":         func() (platform.Function, error) { return polycalc.FromJITString(ctx, text, quiet()) },
		"starlark":    func() (platform.Function, error) { return polycalc.FromStarlarkString(text, quiet()) },
		"extism":      func() (platform.Function, error) { return polycalc.FromExtismString(ctx, text, quiet()) },
	}
	for name, newFn := range constructors {
		t.Run(name, func(t *testing.T) {
			fn, err := newFn()
			require.NoError(t, err)
			defer func() { require.NoError(t, fn.Close(ctx)) }()

			assert.Equal(t, []string{"x", "y"}, fn.Params())
			got, err := fn.Call(ctx, []float64{4, 2})
			require.NoError(t, err)
			assert.InDelta(t, 18.5, got, 0)
		})
	}

	t.Run("empty text", func(t *testing.T) {
		fn, err := polycalc.FromInterpreterString("  ", quiet())
		require.ErrorIs(t, err, loader.ErrFormulaNotAvailable)
		assert.Nil(t, fn)
	})

	t.Run("failed build returns nil", func(t *testing.T) {
		fn, err := polycalc.FromJITString(ctx, "((x) (+ x y))", quiet())
		require.Error(t, err)
		assert.Nil(t, fn)
	})
}

func TestNew_Options(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for _, engine := range []types.Type{types.JIT, types.Extism} {
		fn := mustNew(t, engine, "((x) (* x 3))",
			options.WithPoolSize(1),
			options.WithRuntimeConfig(wazero.NewRuntimeConfigInterpreter()),
		)
		got, err := fn.Call(ctx, []float64{2})
		require.NoError(t, err)
		assert.InDelta(t, 6.0, got, 0)
	}

	_, err := polycalc.New(ctx, types.Type("lua"), mustLoader(t, "((x) x)"), quiet())
	require.Error(t, err)

	_, err = polycalc.New(ctx, types.JIT, mustLoader(t, "((x) x)"), options.WithPoolSize(0))
	require.Error(t, err)
}

func mustLoader(t *testing.T, text string) loader.Loader {
	t.Helper()
	ldr, err := loader.NewFromString(text)
	require.NoError(t, err)
	return ldr
}

func TestEvaluator(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for _, engine := range types.All {
		t.Run(engine.String(), func(t *testing.T) {
			e, err := polycalc.FromStringWithData(ctx, engine,
				"((x y rate) (* (+ x y) rate))",
				map[string]any{"rate": 0.5, "y": 1},
				quiet(),
			)
			require.NoError(t, err)
			defer func() { require.NoError(t, e.Close(ctx)) }()

			evalCtx, err := e.AddDataToContext(ctx, map[string]any{"x": 9, "y": 3})
			require.NoError(t, err)
			got, err := e.Eval(evalCtx)
			require.NoError(t, err)
			assert.InDelta(t, 6.0, got, 0)

			plain, err := polycalc.NewEvaluator(ctx, engine, mustLoader(t, "((x) x)"), quiet())
			require.NoError(t, err)
			_, err = plain.Eval(ctx)
			require.ErrorIs(t, err, platform.ErrUnresolvedSymbol)
			require.NoError(t, plain.Close(ctx))
		})
	}

	t.Run("missing value", func(t *testing.T) {
		e, err := polycalc.NewEvaluator(ctx, types.Interpreter, mustLoader(t, "((x y) (+ x y))"), quiet())
		require.NoError(t, err)
		evalCtx, err := e.AddDataToContext(ctx, map[string]any{"x": 1})
		require.NoError(t, err)
		_, err = e.Eval(evalCtx)
		require.ErrorIs(t, err, platform.ErrUnresolvedSymbol)
	})
}

func BenchmarkEngines(b *testing.B) {
	const text = "((a b c) (/ (+ a (* b c)) (- c (- a b))))"
	args := []float64{1, 2, 3}
	ctx := context.Background()

	for _, engine := range types.All {
		b.Run(engine.String(), func(b *testing.B) {
			fn := mustNew(b, engine, text)
			for b.Loop() {
				if _, err := fn.Call(ctx, args); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
