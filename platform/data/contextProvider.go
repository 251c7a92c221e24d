package data

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/robbyt/go-polycalc/platform/constants"
)

// ContextProvider stores argument values in the context under a key.
type ContextProvider struct {
	contextKey constants.ContextKey
}

// NewContextProvider creates a ContextProvider using contextKey, normally
// constants.Args.
func NewContextProvider(contextKey constants.ContextKey) *ContextProvider {
	return &ContextProvider{
		contextKey: contextKey,
	}
}

// GetData returns the values stored in ctx, or an empty map when there are none.
func (p *ContextProvider) GetData(ctx context.Context) (map[string]any, error) {
	if p.contextKey == "" {
		return nil, fmt.Errorf("context key is empty")
	}

	value := ctx.Value(p.contextKey)
	if value == nil {
		return make(map[string]any), nil
	}

	d, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("invalid input data type: expected map[string]any, got %T", value)
	}
	return d, nil
}

// AddDataToContext merges the maps over any values already in ctx. Empty
// names are rejected; the remaining values are still stored.
func (p *ContextProvider) AddDataToContext(
	ctx context.Context,
	data ...map[string]any,
) (context.Context, error) {
	if p.contextKey == "" {
		return ctx, fmt.Errorf("context key is empty")
	}

	var errz []error
	toStore := make(map[string]any)
	if existing, ok := ctx.Value(p.contextKey).(map[string]any); ok {
		maps.Copy(toStore, existing)
	}

	for _, dataMap := range data {
		for key, value := range dataMap {
			if key == "" {
				errz = append(errz, fmt.Errorf("empty keys are not allowed"))
				continue
			}
			toStore[key] = value
		}
	}

	return context.WithValue(ctx, p.contextKey, toStore), errors.Join(errz...)
}
