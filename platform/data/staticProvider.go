package data

import (
	"context"
	"errors"
	"maps"
)

// ErrStaticProviderNoRuntimeUpdates is returned by StaticProvider.AddDataToContext.
var ErrStaticProviderNoRuntimeUpdates = errors.New("static provider does not accept runtime data")

// StaticProvider returns the same values for every evaluation, such as
// constants fixed when the formula is loaded.
type StaticProvider struct {
	data map[string]any
}

// NewStaticProvider copies data into a new StaticProvider.
func NewStaticProvider(data map[string]any) *StaticProvider {
	if data == nil {
		data = make(map[string]any)
	}
	return &StaticProvider{data: maps.Clone(data)}
}

// GetData returns a copy of the static values.
func (p *StaticProvider) GetData(_ context.Context) (map[string]any, error) {
	return maps.Clone(p.data), nil
}

// AddDataToContext always fails with ErrStaticProviderNoRuntimeUpdates.
func (p *StaticProvider) AddDataToContext(
	ctx context.Context,
	_ ...map[string]any,
) (context.Context, error) {
	return ctx, ErrStaticProviderNoRuntimeUpdates
}
