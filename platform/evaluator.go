package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/robbyt/go-polycalc/internal/helpers"
	"github.com/robbyt/go-polycalc/platform/data"
)

// Evaluator binds a Function to the provider its arguments come from, so a
// formula can be called with named values instead of a positional slice.
//
// Preparing the data and evaluating are separate steps: AddDataToContext
// stores values in a context, and Eval reads them back through the provider.
type Evaluator struct {
	fn       Function
	provider data.Provider
	logger   *slog.Logger
}

// NewEvaluator creates an Evaluator. A nil handler logs warnings to stderr.
func NewEvaluator(fn Function, provider data.Provider, handler slog.Handler) *Evaluator {
	_, logger := helpers.SetupLogger(handler, "platform", "Evaluator")
	return &Evaluator{
		fn:       fn,
		provider: provider,
		logger:   logger,
	}
}

// Function returns the bound function.
func (e *Evaluator) Function() Function {
	return e.fn
}

// Eval fetches the argument values from the provider, orders them by the
// function's parameters and calls it. A parameter with no value fails with
// ErrUnresolvedSymbol; values that are not numbers fail with
// ErrArgumentType. Names that match no parameter are ignored.
func (e *Evaluator) Eval(ctx context.Context) (float64, error) {
	logger := e.logger.WithGroup("Eval")
	if e.fn == nil {
		return 0, fmt.Errorf("function is nil")
	}
	if e.provider == nil {
		return 0, fmt.Errorf("no data provider available")
	}

	values, err := e.provider.GetData(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to get input data from provider", "error", err)
		return 0, fmt.Errorf("failed to get input data: %w", err)
	}

	params := e.fn.Params()
	args := make([]float64, len(params))
	for i, name := range params {
		v, ok := values[name]
		if !ok {
			return 0, fmt.Errorf("%w: no value for %q", ErrUnresolvedSymbol, name)
		}
		if args[i], err = ToFloat(v); err != nil {
			return 0, fmt.Errorf("parameter %q: %w", name, err)
		}
	}
	logger.DebugContext(ctx, "arguments resolved", "args", args)

	return e.fn.Call(ctx, args)
}

// AddDataToContext stores argument values for a later Eval.
func (e *Evaluator) AddDataToContext(
	ctx context.Context,
	d ...map[string]any,
) (context.Context, error) {
	return data.AddDataToContextHelper(ctx, e.logger.WithGroup("AddDataToContext"), e.provider, d...)
}

// Close closes the bound function.
func (e *Evaluator) Close(ctx context.Context) error {
	if e.fn == nil {
		return nil
	}
	return e.fn.Close(ctx)
}

// ToFloat converts an argument value to float64. Any Go integer or float kind
// is accepted, as is a json.Number.
func ToFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrArgumentType, err)
		}
		return f, nil
	case nil:
		return 0, fmt.Errorf("%w: nil", ErrArgumentType)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrArgumentType, v)
	}
}
