// Package data supplies the named argument values a formula is evaluated with.
package data

import (
	"context"
)

// Getter retrieves argument values by parameter name.
type Getter interface {
	GetData(ctx context.Context) (map[string]any, error)
}

// Setter stores argument values in a context for a later evaluation. Preparing
// the data and evaluating can happen in different places; only the context
// travels between them.
type Setter interface {
	// AddDataToContext returns a context carrying the merged maps. Later maps
	// override earlier ones for the same name.
	//
	// Example:
	//  ctx, err := evaluator.AddDataToContext(ctx, map[string]any{"x": 4, "y": 2})
	//  if err != nil {
	//      return err
	//  }
	//  result, err := evaluator.Eval(ctx)
	AddDataToContext(ctx context.Context, data ...map[string]any) (context.Context, error)
}

// Provider is both a Getter and a Setter.
type Provider interface {
	Getter
	Setter
}
