package starlark

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/robbyt/go-polycalc/platform"
	"github.com/robbyt/go-polycalc/platform/sexpr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quiet() FunctionalOption {
	return WithLogHandler(slog.NewTextHandler(io.Discard, nil))
}

func TestTranspile(t *testing.T) {
	t.Parallel()

	formula, err := sexpr.ParseFormula("((x y) (+ (* x y) (/ 10.5 y)))")
	require.NoError(t, err)
	prog, err := transpile(formula, false)
	require.NoError(t, err)

	assert.Equal(t, "def formula(a0, a1):\n    return ((a0 * a1) + fdiv(k0, a1))\n", prog.source)
	require.Len(t, prog.consts, 1)
	assert.Equal(t, "10.5", prog.consts["k0"].String())
}

func TestFunction_Call(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name    string
		formula string
		args    []float64
		want    float64
	}{
		{"readme example", "((x y) (+ (* x y) 10.5))", []float64{4, 2}, 18.5},
		{"subtraction order", "((a b) (- a b))", []float64{1, 3}, -2},
		{"division", "((a b) (/ a b))", []float64{1, 4}, 0.25},
		{"parameter body", "((x) x)", []float64{7}, 7},
		{"constant body", "(() 4)", nil, 4},
		{"keyword parameter names", "((if def) (- if def))", []float64{5, 2}, 3},
		{"symbolic parameter names", "((x-1 y*) (* x-1 y*))", []float64{5, 2}, 10},
		{"extra operands ignored", "((x) (+ x 1 2))", []float64{5}, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f, err := FromString(tt.formula, quiet())
			require.NoError(t, err)
			got, err := f.Call(ctx, tt.args)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 0)
		})
	}

	t.Run("IEEE division", func(t *testing.T) {
		f, err := FromString("((a b) (/ a b))", quiet())
		require.NoError(t, err)

		got, err := f.Call(ctx, []float64{1, 0})
		require.NoError(t, err)
		assert.True(t, math.IsInf(got, 1))

		got, err = f.Call(ctx, []float64{0, 0})
		require.NoError(t, err)
		assert.True(t, math.IsNaN(got))
	})

	t.Run("argument count", func(t *testing.T) {
		f, err := FromString("((x y) (+ x y))", quiet())
		require.NoError(t, err)
		_, err = f.Call(ctx, []float64{1})
		require.ErrorIs(t, err, platform.ErrArgumentCount)
	})

	t.Run("cancelled context", func(t *testing.T) {
		f, err := FromString("((x) (+ x 1))", quiet())
		require.NoError(t, err)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err = f.Call(cctx, []float64{1})
		require.ErrorIs(t, err, ErrCallFailed)
	})

	t.Run("concurrent calls", func(t *testing.T) {
		f, err := FromString("((x y) (+ (* x y) 10.5))", quiet())
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				x := float64(i)
				for range 100 {
					got, err := f.Call(ctx, []float64{x, 2})
					assert.NoError(t, err)
					assert.InDelta(t, x*2+10.5, got, 0)
				}
			}()
		}
		wg.Wait()
	})
}

func TestFunction_ConstructionErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		formula string
		want    error
	}{
		{"((x) (% x x))", platform.ErrUnknownOperation},
		{"((x) (+ x y))", platform.ErrUnresolvedSymbol},
		{"((x) (* x))", platform.ErrOperandCount},
		{"((x) ())", platform.ErrMalformedTree},
		{"((x) (+ x 1q))", platform.ErrInvalidNumber},
		{"((x) (+ x 1)", ErrParseFailed},
	}
	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			_, err := FromString(tt.formula, quiet())
			require.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("permissive", func(t *testing.T) {
		f, err := FromString("((x) (+ x 1q))", quiet(), WithPermissiveNumbers())
		require.NoError(t, err)
		got, err := f.Call(context.Background(), []float64{1})
		require.NoError(t, err)
		assert.InDelta(t, 2.0, got, 0)
	})

	t.Run("invalid options", func(t *testing.T) {
		_, err := FromString("((x) x)", WithLogHandler(nil))
		require.Error(t, err)
		_, err = FromString("((x) x)", WithLogger(nil))
		require.Error(t, err)
	})
}

func TestFunction_Accessors(t *testing.T) {
	t.Parallel()

	body, err := sexpr.Parse("(- b a)")
	require.NoError(t, err)
	f, err := New([]string{"a", "b"}, body, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, f.Params())
	assert.Equal(t, "((a b) (- b a))", f.String())
	assert.Contains(t, f.Source(), "def formula(a0, a1):")
	require.NoError(t, f.Close(context.Background()))
}
