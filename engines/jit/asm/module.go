// Package asm is a small code-generation context that emits WebAssembly
// functions through virtual registers. Registers are function locals handed
// out from per-type free lists; a handle is consumed at most once, after which
// its local may be reused. The encoded module is compiled to native code by the
// runtime that loads it.
package asm

import (
	"fmt"
	"slices"

	"github.com/tetratelabs/wabin/binary"
	"github.com/tetratelabs/wabin/wasm"
)

// Type is the value type of a register.
type Type = wasm.ValueType

const (
	Int32   Type = wasm.ValueTypeI32
	Int64   Type = wasm.ValueTypeI64
	Float64 Type = wasm.ValueTypeF64
)

// PageSize is the size of one page of linear memory.
const PageSize = 65536

// FuncRef identifies an imported or defined function of a Module.
type FuncRef struct {
	m     *Module
	index wasm.Index
	sig   *wasm.FunctionType
}

// Index is the function's position in the module's function index space.
func (f FuncRef) Index() uint32 { return f.index }

// Module collects imports, routines, a memory and exports, and encodes them to
// the WebAssembly binary format.
type Module struct {
	name    string
	types   []*wasm.FunctionType
	imports []*wasm.Import
	funcs   []wasm.Index
	codes   []*wasm.Code
	exports []*wasm.Export
	memory  *wasm.Memory
	names   wasm.NameMap

	open    *Routine
	hook    func(op string)
	emitted int
}

// NewModule returns an empty module. name is recorded in the name section.
func NewModule(name string) *Module {
	return &Module{name: name}
}

// SetEmitHook installs fn to be called with the name of every instruction
// emitted from now on.
func (m *Module) SetEmitHook(fn func(op string)) {
	m.hook = fn
}

// Emitted returns the number of instructions emitted so far.
func (m *Module) Emitted() int {
	return m.emitted
}

func (m *Module) typeIndex(params, results []Type) wasm.Index {
	for i, t := range m.types {
		if slices.Equal(t.Params, params) && slices.Equal(t.Results, results) {
			return wasm.Index(i)
		}
	}
	m.types = append(m.types, &wasm.FunctionType{
		Params:  slices.Clone(params),
		Results: slices.Clone(results),
	})
	return wasm.Index(len(m.types) - 1)
}

// ImportFunc declares a function provided by the host. Imports occupy the
// lowest function indices, so they must all be declared before the first
// routine is opened.
func (m *Module) ImportFunc(module, name string, params, results []Type) (FuncRef, error) {
	if len(m.funcs) > 0 || m.open != nil {
		return FuncRef{}, fmt.Errorf("%w: %s.%s", ErrImportOrder, module, name)
	}
	ti := m.typeIndex(params, results)
	m.imports = append(m.imports, &wasm.Import{
		Type:     wasm.ExternTypeFunc,
		Module:   module,
		Name:     name,
		DescFunc: ti,
	})
	idx := wasm.Index(len(m.imports) - 1)
	m.names = append(m.names, &wasm.NameAssoc{Index: idx, Name: name})
	return FuncRef{m: m, index: idx, sig: m.types[ti]}, nil
}

// SetMemory defines the module's linear memory with at least minPages pages,
// exported under exportName when it is not empty.
func (m *Module) SetMemory(minPages uint32, exportName string) {
	m.memory = &wasm.Memory{Min: minPages}
	m.exports = slices.DeleteFunc(m.exports, func(e *wasm.Export) bool {
		return e.Type == wasm.ExternTypeMemory
	})
	if exportName != "" {
		m.exports = append(m.exports, &wasm.Export{
			Type:  wasm.ExternTypeMemory,
			Name:  exportName,
			Index: 0,
		})
	}
}

// PagesFor returns the number of memory pages needed to hold n bytes, at least one.
func PagesFor(n int) uint32 {
	pages := (n + PageSize - 1) / PageSize
	return uint32(max(pages, 1))
}

// NewRoutine opens a function with the given signature. Only one routine may
// be open at a time; it is added to the module when closed. An exported
// routine is visible to the host under name.
func (m *Module) NewRoutine(name string, params, results []Type, export bool) (*Routine, error) {
	if m.open != nil {
		return nil, fmt.Errorf("%w: %s", ErrRoutineOpen, m.open.name)
	}
	ti := m.typeIndex(params, results)
	index := wasm.Index(len(m.imports) + len(m.funcs))
	m.funcs = append(m.funcs, ti)
	m.codes = append(m.codes, nil)
	m.names = append(m.names, &wasm.NameAssoc{Index: index, Name: name})
	if export {
		m.exports = append(m.exports, &wasm.Export{
			Type:  wasm.ExternTypeFunc,
			Name:  name,
			Index: index,
		})
	}

	r := &Routine{
		m:    m,
		name: name,
		ref:  FuncRef{m: m, index: index, sig: m.types[ti]},
		slot: len(m.codes) - 1,
		free: make(map[Type][]wasm.Index),
	}
	r.params = make([]*Reg, len(params))
	for i, t := range params {
		r.params[i] = &Reg{r: r, local: wasm.Index(i), typ: t}
	}
	m.open = r
	return r, nil
}

// Encode returns the module in the WebAssembly binary format.
func (m *Module) Encode() ([]byte, error) {
	if m.open != nil {
		return nil, fmt.Errorf("%w: %s", ErrRoutineOpen, m.open.name)
	}
	mod := &wasm.Module{
		TypeSection:     m.types,
		ImportSection:   m.imports,
		FunctionSection: m.funcs,
		MemorySection:   m.memory,
		ExportSection:   m.exports,
		CodeSection:     m.codes,
		NameSection: &wasm.NameSection{
			ModuleName:    m.name,
			FunctionNames: m.names,
		},
	}
	return binary.EncodeModule(mod), nil
}

func (m *Module) count(op wasm.Opcode) {
	m.emitted++
	if m.hook != nil {
		m.hook(wasm.InstructionName(op))
	}
}
