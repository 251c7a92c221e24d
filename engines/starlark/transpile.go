package starlark

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/robbyt/go-polycalc/platform"
	"github.com/robbyt/go-polycalc/platform/eval"
	"github.com/robbyt/go-polycalc/platform/sexpr"
	starlarkLib "go.starlark.net/starlark"
)

const (
	entryName = "formula"

	// divName is the predeclared division builtin. Starlark's own / fails on
	// a zero divisor; formulas follow IEEE 754 instead.
	divName = "fdiv"
)

// program is a formula rendered as Starlark source, with the literal values it
// refers to.
type program struct {
	source string
	consts starlarkLib.StringDict
}

// transpile renders formula as a single Starlark function. Parameters become
// positional names a0, a1, ... so that any symbol is a valid parameter, and
// literals become predeclared constants k0, k1, ... holding the parsed value.
func transpile(formula *sexpr.Formula, permissive bool) (*program, error) {
	positions := formula.Positions()
	consts := make(starlarkLib.StringDict)

	e := &eval.Evaluator[string]{
		Number: func(text string) (string, error) {
			v, err := eval.ParseNumber(text, permissive)
			if err != nil {
				return "", err
			}
			name := "k" + strconv.Itoa(len(consts))
			consts[name] = starlarkLib.Float(v)
			return name, nil
		},
		Symbol: func(name string) (string, error) {
			pos, ok := positions[name]
			if !ok {
				return "", fmt.Errorf("%w: %q", platform.ErrUnresolvedSymbol, name)
			}
			return paramName(pos), nil
		},
		Ops: eval.OperationTable[string]{
			"+": infix("+"),
			"-": infix("-"),
			"*": infix("*"),
			"/": eval.Binary(func(a, b string) (string, error) {
				return divName + "(" + a + ", " + b + ")", nil
			}),
		},
	}

	expr, err := e.Eval(formula.Body)
	if err != nil {
		return nil, err
	}

	params := make([]string, len(formula.Params))
	for i := range params {
		params[i] = paramName(i)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "def %s(%s):\n", entryName, strings.Join(params, ", "))
	fmt.Fprintf(&b, "    return %s\n", expr)
	return &program{source: b.String(), consts: consts}, nil
}

func infix(op string) eval.Operation[string] {
	return eval.Binary(func(a, b string) (string, error) {
		return "(" + a + " " + op + " " + b + ")", nil
	})
}

func paramName(pos int) string {
	return "a" + strconv.Itoa(pos)
}

func fdiv(_ *starlarkLib.Thread, b *starlarkLib.Builtin, args starlarkLib.Tuple, kwargs []starlarkLib.Tuple) (starlarkLib.Value, error) {
	var x, y float64
	if err := starlarkLib.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &x, &y); err != nil {
		return nil, err
	}
	return starlarkLib.Float(x / y), nil
}
