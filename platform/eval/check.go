package eval

import (
	"fmt"

	"github.com/robbyt/go-polycalc/platform"
	"github.com/robbyt/go-polycalc/platform/sexpr"
)

// Check walks body without computing anything, reporting the first error a
// real evaluation with the same parameters and operators would hit.
func Check(body sexpr.Cell, params []string, operators []string, permissive bool) error {
	positions := sexpr.Positions(params)
	ops := make(OperationTable[struct{}], len(operators))
	for _, name := range operators {
		ops[name] = Binary(func(struct{}, struct{}) (struct{}, error) {
			return struct{}{}, nil
		})
	}

	checker := &Evaluator[struct{}]{
		Number: func(text string) (struct{}, error) {
			_, err := ParseNumber(text, permissive)
			return struct{}{}, err
		},
		Symbol: func(name string) (struct{}, error) {
			if _, ok := positions[name]; !ok {
				return struct{}{}, fmt.Errorf("%w: %q", platform.ErrUnresolvedSymbol, name)
			}
			return struct{}{}, nil
		},
		Ops: ops,
	}
	_, err := checker.Eval(body)
	return err
}
