package compiler

import (
	"fmt"
	"math"

	"github.com/robbyt/go-polycalc/engines/jit/asm"
	"github.com/robbyt/go-polycalc/platform"
	"github.com/robbyt/go-polycalc/platform/eval"
	"github.com/robbyt/go-polycalc/platform/sexpr"
)

const (
	// RoutineName is the export name of the generated routine.
	RoutineName = "eval"

	// MemoryName is the export name of the argument memory.
	MemoryName = "memory"

	// slotSize is the width of one argument in the argument buffer.
	slotSize = 8
)

// EmitFormula emits the routine eval(args i32) f64 for formula into m. The
// routine reads argument i as a little-endian float64 at args+8*i. The tree is
// walked exactly once; every literal, parameter load and operation becomes
// instructions in the routine.
func EmitFormula(m *asm.Module, formula *sexpr.Formula, permissive bool) (asm.FuncRef, error) {
	r, err := m.NewRoutine(RoutineName, []asm.Type{asm.Int32}, []asm.Type{asm.Float64}, true)
	if err != nil {
		return asm.FuncRef{}, err
	}
	args, err := r.Param(0)
	if err != nil {
		return asm.FuncRef{}, err
	}
	positions := formula.Positions()

	e := &eval.Evaluator[*asm.Reg]{
		// Floats are not loaded as immediates: the bit pattern goes through an
		// integer register first.
		Number: func(text string) (*asm.Reg, error) {
			v, err := eval.ParseNumber(text, permissive)
			if err != nil {
				return nil, err
			}
			gp, err := r.NewReg(asm.Int64)
			if err != nil {
				return nil, err
			}
			if err := r.Const(gp, int64(math.Float64bits(v))); err != nil {
				return nil, err
			}
			xmm, err := r.NewReg(asm.Float64)
			if err != nil {
				return nil, err
			}
			return xmm, r.Reinterpret(xmm, gp)
		},
		Symbol: func(name string) (*asm.Reg, error) {
			pos, ok := positions[name]
			if !ok {
				return nil, fmt.Errorf("%w: %q", platform.ErrUnresolvedSymbol, name)
			}
			xmm, err := r.NewReg(asm.Float64)
			if err != nil {
				return nil, err
			}
			return xmm, r.Load(xmm, args, uint32(pos*slotSize))
		},
		Ops: eval.OperationTable[*asm.Reg]{
			"+": arith(r, asm.Add),
			"-": arith(r, asm.Sub),
			"*": arith(r, asm.Mul),
			"/": arith(r, asm.Div),
		},
	}

	result, err := e.Eval(formula.Body)
	if err != nil {
		return asm.FuncRef{}, err
	}
	if err := r.Return(result); err != nil {
		return asm.FuncRef{}, err
	}
	if err := r.Close(); err != nil {
		return asm.FuncRef{}, err
	}
	return r.Ref(), nil
}

// arith combines the first two operands in place. Operands past the second
// were emitted but are never read, so their registers are released.
func arith(r *asm.Routine, op asm.Op) eval.Operation[*asm.Reg] {
	binary := eval.Binary(func(a, b *asm.Reg) (*asm.Reg, error) {
		return r.Arith(op, a, b)
	})
	return func(operands []*asm.Reg) (*asm.Reg, error) {
		res, err := binary(operands)
		if err != nil {
			return nil, err
		}
		for _, extra := range operands[2:] {
			if err := r.Release(extra); err != nil {
				return nil, err
			}
		}
		return res, nil
	}
}

// BuildModule emits formula as a standalone module exporting the routine and
// a memory large enough for its arguments.
func BuildModule(formula *sexpr.Formula, opts ...FunctionalOption) ([]byte, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	bin, _, err := buildModule(formula, cfg)
	return bin, err
}

// buildModule returns the encoded module and the number of instructions emitted.
func buildModule(formula *sexpr.Formula, cfg *config) ([]byte, int, error) {
	m := asm.NewModule("polycalc")
	m.SetEmitHook(cfg.emitHook)
	m.SetMemory(asm.PagesFor(len(formula.Params)*slotSize), MemoryName)

	if _, err := EmitFormula(m, formula, cfg.permissive); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrEmitFailed, err)
	}
	bin, err := m.Encode()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrEmitFailed, err)
	}
	return bin, m.Emitted(), nil
}
