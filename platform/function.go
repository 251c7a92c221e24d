package platform

import (
	"context"
)

// Function is a formula constructed once by an engine and called many times.
//
// Construction performs all of the analysis the engine needs (parsing,
// validation, code generation), so Call only evaluates. Implementations are safe
// for concurrent calls unless documented otherwise.
type Function interface {
	// Call evaluates the formula with args bound to its parameters in declared
	// order. A length other than len(Params()) fails with ErrArgumentCount.
	Call(ctx context.Context, args []float64) (float64, error)

	// Params returns the declared parameter names in order.
	Params() []string

	// Close releases engine resources. Calls after Close fail with ErrClosed
	// for engines that own resources.
	Close(ctx context.Context) error
}
