package asm

import (
	"fmt"

	"github.com/tetratelabs/wabin/leb128"
	"github.com/tetratelabs/wabin/wasm"
)

// Op is a binary floating-point operation.
type Op uint8

const (
	Add Op = iota
	Sub
	Mul
	Div
)

var arithOpcodes = [...]wasm.Opcode{
	Add: wasm.OpcodeF64Add,
	Sub: wasm.OpcodeF64Sub,
	Mul: wasm.OpcodeF64Mul,
	Div: wasm.OpcodeF64Div,
}

func (o Op) String() string {
	if int(o) < len(arithOpcodes) {
		return wasm.InstructionName(arithOpcodes[o])
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}

// blockTypeEmpty is the block type of a structured instruction that leaves
// nothing on the stack.
const blockTypeEmpty = 0x40

// Reg is a handle to a virtual register of an open routine.
type Reg struct {
	r        *Routine
	local    wasm.Index
	typ      Type
	consumed bool
}

// Type returns the register's value type.
func (g *Reg) Type() Type { return g.typ }

// Local returns the index of the function local backing the register.
func (g *Reg) Local() uint32 { return g.local }

// Consumed reports whether the handle was consumed.
func (g *Reg) Consumed() bool { return g.consumed }

func (g *Reg) String() string {
	return fmt.Sprintf("%s:%d", wasm.ValueTypeName(g.typ), g.local)
}

// Routine is a function being emitted. It is not safe for concurrent use.
//
// Instructions that combine or return registers consume their operands;
// instructions that only read an address or an argument borrow it. A consumed
// handle is rejected with ErrHandleConsumed, and all handles become invalid
// once the routine is closed.
type Routine struct {
	m      *Module
	name   string
	ref    FuncRef
	slot   int
	params []*Reg
	locals []Type
	free   map[Type][]wasm.Index
	body   []byte

	returned bool
	closed   bool
}

// Ref returns a reference that can be used to call this routine.
func (r *Routine) Ref() FuncRef { return r.ref }

// Name returns the routine's name.
func (r *Routine) Name() string { return r.name }

// Locals returns the number of locals allocated beyond the parameters.
func (r *Routine) Locals() int { return len(r.locals) }

// Param returns the handle of parameter i.
func (r *Routine) Param(i int) (*Reg, error) {
	if r.closed {
		return nil, ErrRoutineClosed
	}
	if i < 0 || i >= len(r.params) {
		return nil, fmt.Errorf("%w: %d", ErrBadParam, i)
	}
	p := r.params[i]
	if p.consumed {
		return nil, fmt.Errorf("%w: parameter %d", ErrHandleConsumed, i)
	}
	return p, nil
}

// NewReg allocates a register of type t, reusing a released local when one
// is free.
func (r *Routine) NewReg(t Type) (*Reg, error) {
	if r.closed {
		return nil, ErrRoutineClosed
	}
	switch t {
	case Int32, Int64, Float64:
	default:
		return nil, fmt.Errorf("%w: unsupported type %#x", ErrTypeMismatch, t)
	}
	if free := r.free[t]; len(free) > 0 {
		local := free[len(free)-1]
		r.free[t] = free[:len(free)-1]
		return &Reg{r: r, local: local, typ: t}, nil
	}
	local := wasm.Index(len(r.params) + len(r.locals))
	r.locals = append(r.locals, t)
	return &Reg{r: r, local: local, typ: t}, nil
}

// Release consumes g and returns its local to the free list.
func (r *Routine) Release(g *Reg) error {
	if err := r.check(g, 0); err != nil {
		return err
	}
	r.consume(g)
	return nil
}

// Const sets an integer register to v.
func (r *Routine) Const(dst *Reg, v int64) error {
	if err := r.check(dst, 0); err != nil {
		return err
	}
	switch dst.typ {
	case Int32:
		r.emit(wasm.OpcodeI32Const, leb128.EncodeInt32(int32(v))...)
	case Int64:
		r.emit(wasm.OpcodeI64Const, leb128.EncodeInt64(v)...)
	default:
		return fmt.Errorf("%w: constant into %s", ErrTypeMismatch, dst)
	}
	r.set(dst)
	return nil
}

// Reinterpret moves the bit pattern of src into dst, between a 64-bit integer
// and a 64-bit float register. src is consumed.
func (r *Routine) Reinterpret(dst, src *Reg) error {
	if err := r.check(dst, 0); err != nil {
		return err
	}
	if err := r.check(src, 0); err != nil {
		return err
	}
	var op wasm.Opcode
	switch {
	case src.typ == Int64 && dst.typ == Float64:
		op = wasm.OpcodeF64ReinterpretI64
	case src.typ == Float64 && dst.typ == Int64:
		op = wasm.OpcodeI64ReinterpretF64
	default:
		return fmt.Errorf("%w: reinterpret %s as %s", ErrTypeMismatch, src, dst)
	}
	r.get(src)
	r.emit(op)
	r.set(dst)
	r.consume(src)
	return nil
}

// Load reads the 64-bit value at base+offset into dst. base is borrowed.
func (r *Routine) Load(dst, base *Reg, offset uint32) error {
	if err := r.check(dst, 0); err != nil {
		return err
	}
	if err := r.check(base, Int32); err != nil {
		return err
	}
	var op wasm.Opcode
	switch dst.typ {
	case Float64:
		op = wasm.OpcodeF64Load
	case Int64:
		op = wasm.OpcodeI64Load
	default:
		return fmt.Errorf("%w: load into %s", ErrTypeMismatch, dst)
	}
	r.get(base)
	r.emit(op, memarg(offset)...)
	r.set(dst)
	return nil
}

// Store writes the 64-bit value of v to base+offset. Both are borrowed.
func (r *Routine) Store(base *Reg, offset uint32, v *Reg) error {
	if err := r.check(base, Int32); err != nil {
		return err
	}
	if err := r.check(v, 0); err != nil {
		return err
	}
	var op wasm.Opcode
	switch v.typ {
	case Float64:
		op = wasm.OpcodeF64Store
	case Int64:
		op = wasm.OpcodeI64Store
	default:
		return fmt.Errorf("%w: store from %s", ErrTypeMismatch, v)
	}
	r.get(base)
	r.get(v)
	r.emit(op, memarg(offset)...)
	return nil
}

// Arith combines two float registers in place. Both handles are consumed; the
// returned handle names a's local, which now holds the result, and b's local
// is freed.
func (r *Routine) Arith(op Op, a, b *Reg) (*Reg, error) {
	if int(op) >= len(arithOpcodes) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOp, op)
	}
	if err := r.check(a, Float64); err != nil {
		return nil, err
	}
	if err := r.check(b, Float64); err != nil {
		return nil, err
	}
	if a == b {
		return nil, fmt.Errorf("%w: %s used as both operands", ErrHandleConsumed, a)
	}
	r.get(a)
	r.get(b)
	r.emit(arithOpcodes[op])
	r.set(a)

	a.consumed = true
	r.consume(b)
	return &Reg{r: r, local: a.local, typ: Float64}, nil
}

// Call calls fn with args, which are borrowed. The result is stored in dst, or
// dropped when dst is nil.
func (r *Routine) Call(fn FuncRef, dst *Reg, args ...*Reg) error {
	if r.closed {
		return ErrRoutineClosed
	}
	if fn.m != r.m || fn.sig == nil {
		return fmt.Errorf("%w: function %d", ErrForeignHandle, fn.index)
	}
	if len(args) != len(fn.sig.Params) {
		return fmt.Errorf("%w: function %d takes %d arguments, got %d",
			ErrTypeMismatch, fn.index, len(fn.sig.Params), len(args))
	}
	for i, a := range args {
		if err := r.check(a, fn.sig.Params[i]); err != nil {
			return fmt.Errorf("argument %d: %w", i, err)
		}
	}
	switch {
	case dst != nil && len(fn.sig.Results) == 0:
		return fmt.Errorf("%w: function %d has no result", ErrTypeMismatch, fn.index)
	case dst != nil:
		if err := r.check(dst, fn.sig.Results[0]); err != nil {
			return err
		}
	}

	for _, a := range args {
		r.get(a)
	}
	r.emit(wasm.OpcodeCall, leb128.EncodeUint32(fn.index)...)
	switch {
	case dst != nil:
		r.set(dst)
	case len(fn.sig.Results) > 0:
		r.emit(wasm.OpcodeDrop)
	}
	return nil
}

// ExitUnlessEqual returns code from the routine when the 64-bit integers a
// and b differ. All three are borrowed.
func (r *Routine) ExitUnlessEqual(a, b, code *Reg) error {
	if err := r.check(a, Int64); err != nil {
		return err
	}
	if err := r.check(b, Int64); err != nil {
		return err
	}
	if err := r.checkResult(code); err != nil {
		return err
	}
	r.get(a)
	r.get(b)
	r.emit(wasm.OpcodeI64Ne)
	r.emit(wasm.OpcodeIf, blockTypeEmpty)
	r.get(code)
	r.emit(wasm.OpcodeReturn)
	r.emit(wasm.OpcodeEnd)
	return nil
}

// Return returns v from the routine and consumes it. v is nil for routines
// without a result.
func (r *Routine) Return(v *Reg) error {
	if err := r.checkResult(v); err != nil {
		return err
	}
	if v != nil {
		r.get(v)
		r.consume(v)
	}
	r.emit(wasm.OpcodeReturn)
	r.returned = true
	return nil
}

// Close ends the routine and adds it to the module. Every handle of the
// routine is invalid afterwards.
func (r *Routine) Close() error {
	if r.closed {
		return ErrRoutineClosed
	}
	if len(r.ref.sig.Results) > 0 && !r.returned {
		return fmt.Errorf("%w: %s", ErrMissingReturn, r.name)
	}
	r.emit(wasm.OpcodeEnd)
	r.m.codes[r.slot] = &wasm.Code{LocalTypes: r.locals, Body: r.body}
	r.m.open = nil
	r.closed = true
	r.free = nil
	return nil
}

func (r *Routine) checkResult(v *Reg) error {
	results := r.ref.sig.Results
	if len(results) == 0 {
		if v != nil {
			return fmt.Errorf("%w: %s returns nothing", ErrTypeMismatch, r.name)
		}
		if r.closed {
			return ErrRoutineClosed
		}
		return nil
	}
	if v == nil {
		return fmt.Errorf("%w: %s returns %s", ErrTypeMismatch, r.name, wasm.ValueTypeName(results[0]))
	}
	return r.check(v, results[0])
}

// check validates that g is a live handle of r, of type want when want is set.
func (r *Routine) check(g *Reg, want Type) error {
	switch {
	case r.closed:
		return ErrRoutineClosed
	case g == nil:
		return fmt.Errorf("%w: nil register", ErrForeignHandle)
	case g.r != r:
		return fmt.Errorf("%w: %s", ErrForeignHandle, g)
	case g.consumed:
		return fmt.Errorf("%w: %s", ErrHandleConsumed, g)
	case want != 0 && g.typ != want:
		return fmt.Errorf("%w: %s, want %s", ErrTypeMismatch, g, wasm.ValueTypeName(want))
	}
	return nil
}

func (r *Routine) consume(g *Reg) {
	g.consumed = true
	r.free[g.typ] = append(r.free[g.typ], g.local)
}

func (r *Routine) emit(op wasm.Opcode, immediates ...byte) {
	r.body = append(r.body, op)
	r.body = append(r.body, immediates...)
	r.m.count(op)
}

func (r *Routine) get(g *Reg) {
	r.emit(wasm.OpcodeLocalGet, leb128.EncodeUint32(g.local)...)
}

func (r *Routine) set(g *Reg) {
	r.emit(wasm.OpcodeLocalSet, leb128.EncodeUint32(g.local)...)
}

// memarg encodes the alignment and offset of a 64-bit memory access.
func memarg(offset uint32) []byte {
	return append(leb128.EncodeUint32(3), leb128.EncodeUint32(offset)...)
}
