package data

import (
	"context"
	"errors"
	"fmt"
	"maps"
)

// CompositeProvider combines providers, with later providers overriding
// values from earlier ones. A static provider followed by a context provider
// gives fixed defaults that each evaluation can override.
type CompositeProvider struct {
	providers []Provider
}

// NewCompositeProvider creates a provider that queries providers in order.
func NewCompositeProvider(providers ...Provider) *CompositeProvider {
	return &CompositeProvider{
		providers: providers,
	}
}

// GetData merges the values of every provider. The first failing provider
// aborts the merge.
func (p *CompositeProvider) GetData(ctx context.Context) (map[string]any, error) {
	result := make(map[string]any)
	for i, provider := range p.providers {
		if provider == nil {
			continue
		}
		d, err := provider.GetData(ctx)
		if err != nil {
			return nil, fmt.Errorf("error from provider %d: %w", i, err)
		}
		maps.Copy(result, d)
	}
	return result, nil
}

// AddDataToContext offers the data to every provider. Providers that refuse
// it, such as static providers, are skipped; it fails only when no provider
// accepted the data.
func (p *CompositeProvider) AddDataToContext(
	ctx context.Context,
	data ...map[string]any,
) (context.Context, error) {
	finalCtx := ctx
	var errs []error
	accepted := 0

	for i, provider := range p.providers {
		if provider == nil {
			continue
		}
		nextCtx, err := provider.AddDataToContext(finalCtx, data...)
		if err != nil {
			errs = append(errs, fmt.Errorf("error from provider %d: %w", i, err))
			continue
		}
		finalCtx = nextCtx
		accepted++
	}

	if accepted == 0 && len(errs) > 0 {
		return ctx, errors.Join(errs...)
	}
	return finalCtx, nil
}
