package compiler

import (
	"fmt"

	"github.com/robbyt/go-polycalc/engines/jit/asm"
	jit "github.com/robbyt/go-polycalc/engines/jit/compiler"
	"github.com/robbyt/go-polycalc/platform/sexpr"
)

const (
	// kernelModule is the import module of the Extism runtime kernel.
	kernelModule = "extism:host/env"

	// ExitBadInput is the entry point's exit code when the plugin input is not
	// one little-endian float64 per parameter.
	ExitBadInput = 1

	slotSize = 8
)

// kernel holds the Extism kernel functions the entry point calls.
type kernel struct {
	inputLength  asm.FuncRef
	inputLoadU64 asm.FuncRef
	alloc        asm.FuncRef
	storeU64     asm.FuncRef
	outputSet    asm.FuncRef
}

func importKernel(m *asm.Module) (*kernel, error) {
	i64 := []asm.Type{asm.Int64}
	k := &kernel{}
	imports := []struct {
		ref     *asm.FuncRef
		name    string
		params  []asm.Type
		results []asm.Type
	}{
		{&k.inputLength, "input_length", nil, i64},
		{&k.inputLoadU64, "input_load_u64", i64, i64},
		{&k.alloc, "alloc", i64, i64},
		{&k.storeU64, "store_u64", []asm.Type{asm.Int64, asm.Int64}, nil},
		{&k.outputSet, "output_set", []asm.Type{asm.Int64, asm.Int64}, nil},
	}
	for _, imp := range imports {
		ref, err := m.ImportFunc(kernelModule, imp.name, imp.params, imp.results)
		if err != nil {
			return nil, err
		}
		*imp.ref = ref
	}
	return k, nil
}

// Compile packages formula as an Extism plugin and returns its bytes. The
// plugin exports the entry point (DefaultEntryPoint unless WithEntryPoint is
// given), which reads the arguments from the plugin input as little-endian
// float64s and sets the 8-byte result as the plugin output.
func Compile(formula *sexpr.Formula, opts ...FunctionalOption) ([]byte, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	return buildPlugin(formula, cfg)
}

func buildPlugin(formula *sexpr.Formula, cfg *config) ([]byte, error) {
	if cfg.entryPoint == jit.RoutineName {
		return nil, fmt.Errorf("%w: entry point %q collides with the routine", ErrBuildFailed, cfg.entryPoint)
	}
	m := asm.NewModule("polycalc")
	k, err := importKernel(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildFailed, err)
	}
	m.SetMemory(asm.PagesFor(len(formula.Params)*slotSize), jit.MemoryName)

	routine, err := jit.EmitFormula(m, formula, cfg.permissive)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildFailed, err)
	}
	if err := emitEntryPoint(m, k, routine, cfg.entryPoint, len(formula.Params)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildFailed, err)
	}

	bin, err := m.Encode()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildFailed, err)
	}
	return bin, nil
}

// emitEntryPoint emits name() i32: check the input length, copy the input to
// the argument buffer at offset 0, call the routine, and output its result.
func emitEntryPoint(m *asm.Module, k *kernel, routine asm.FuncRef, name string, params int) error {
	r, err := m.NewRoutine(name, nil, []asm.Type{asm.Int32}, true)
	if err != nil {
		return err
	}

	// Input length check.
	length, err := r.NewReg(asm.Int64)
	if err != nil {
		return err
	}
	if err := r.Call(k.inputLength, length); err != nil {
		return err
	}
	want, err := r.NewReg(asm.Int64)
	if err != nil {
		return err
	}
	if err := r.Const(want, int64(params*slotSize)); err != nil {
		return err
	}
	code, err := r.NewReg(asm.Int32)
	if err != nil {
		return err
	}
	if err := r.Const(code, ExitBadInput); err != nil {
		return err
	}
	if err := r.ExitUnlessEqual(length, want, code); err != nil {
		return err
	}
	for _, g := range []*asm.Reg{length, want, code} {
		if err := r.Release(g); err != nil {
			return err
		}
	}

	// Argument copy.
	args, err := r.NewReg(asm.Int32)
	if err != nil {
		return err
	}
	if err := r.Const(args, 0); err != nil {
		return err
	}
	for i := range params {
		offset, err := r.NewReg(asm.Int64)
		if err != nil {
			return err
		}
		if err := r.Const(offset, int64(i*slotSize)); err != nil {
			return err
		}
		word, err := r.NewReg(asm.Int64)
		if err != nil {
			return err
		}
		if err := r.Call(k.inputLoadU64, word, offset); err != nil {
			return err
		}
		if err := r.Store(args, uint32(i*slotSize), word); err != nil {
			return err
		}
		if err := r.Release(offset); err != nil {
			return err
		}
		if err := r.Release(word); err != nil {
			return err
		}
	}

	// Evaluation.
	result, err := r.NewReg(asm.Float64)
	if err != nil {
		return err
	}
	if err := r.Call(routine, result, args); err != nil {
		return err
	}
	if err := r.Release(args); err != nil {
		return err
	}
	bits, err := r.NewReg(asm.Int64)
	if err != nil {
		return err
	}
	if err := r.Reinterpret(bits, result); err != nil {
		return err
	}

	// Output.
	size, err := r.NewReg(asm.Int64)
	if err != nil {
		return err
	}
	if err := r.Const(size, slotSize); err != nil {
		return err
	}
	out, err := r.NewReg(asm.Int64)
	if err != nil {
		return err
	}
	if err := r.Call(k.alloc, out, size); err != nil {
		return err
	}
	if err := r.Call(k.storeU64, nil, out, bits); err != nil {
		return err
	}
	if err := r.Call(k.outputSet, nil, out, size); err != nil {
		return err
	}
	for _, g := range []*asm.Reg{bits, size, out} {
		if err := r.Release(g); err != nil {
			return err
		}
	}

	ok, err := r.NewReg(asm.Int32)
	if err != nil {
		return err
	}
	if err := r.Const(ok, 0); err != nil {
		return err
	}
	if err := r.Return(ok); err != nil {
		return err
	}
	return r.Close()
}
