package compiler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/robbyt/go-polycalc/internal/pool"
	"github.com/robbyt/go-polycalc/platform"
	"github.com/robbyt/go-polycalc/platform/sexpr"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

var _ platform.Function = (*Function)(nil)

// Function owns a compiled routine. Calls never walk the expression tree.
// It is safe for concurrent use: each concurrent call runs in its own instance
// of the routine, and all instances share the compiled code.
type Function struct {
	formula  *sexpr.Formula
	bin      []byte
	emitted  int
	runtime  wazero.Runtime
	compiled wazero.CompiledModule

	instances *pool.Pool[*instance]
	logger    *slog.Logger

	closed  atomic.Bool
	rwMutex sync.RWMutex
}

// instance is one instantiation of the routine with its argument memory.
type instance struct {
	mod   api.Module
	fn    api.Function
	mem   api.Memory
	stack []uint64
}

func (f *Function) instantiate(ctx context.Context) (*instance, error) {
	mod, err := f.runtime.InstantiateModule(ctx, f.compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInstantiateFailed, err)
	}
	fn := mod.ExportedFunction(RoutineName)
	mem := mod.ExportedMemory(MemoryName)
	if fn == nil || mem == nil {
		_ = mod.Close(ctx)
		return nil, fmt.Errorf("%w: missing %q or %q export", ErrInstantiateFailed, RoutineName, MemoryName)
	}
	return &instance{mod: mod, fn: fn, mem: mem, stack: make([]uint64, 1)}, nil
}

func closeInstance(ctx context.Context, inst *instance) error {
	return inst.mod.Close(ctx)
}

func (f *Function) String() string {
	return f.formula.String()
}

// Params returns the declared parameter names.
func (f *Function) Params() []string {
	return slices.Clone(f.formula.Params)
}

// Binary returns the WebAssembly module the routine was compiled from.
func (f *Function) Binary() []byte {
	return slices.Clone(f.bin)
}

// Emitted returns the number of instructions emitted at construction.
func (f *Function) Emitted() int {
	return f.emitted
}

// Call runs the compiled routine with args bound to the parameters in order.
func (f *Function) Call(ctx context.Context, args []float64) (float64, error) {
	if len(args) != len(f.formula.Params) {
		return 0, fmt.Errorf(
			"%w: want %d, got %d",
			platform.ErrArgumentCount, len(f.formula.Params), len(args),
		)
	}

	f.rwMutex.RLock()
	defer f.rwMutex.RUnlock()
	if f.closed.Load() {
		return 0, platform.ErrClosed
	}

	inst, err := f.instances.Get(ctx)
	if err != nil {
		return 0, err
	}
	for i, v := range args {
		if !inst.mem.WriteFloat64Le(uint32(i*slotSize), v) {
			_ = f.instances.Discard(ctx, inst)
			return 0, fmt.Errorf("%w: argument %d out of memory range", ErrCallFailed, i)
		}
	}

	inst.stack[0] = 0
	if err := inst.fn.CallWithStack(ctx, inst.stack); err != nil {
		if discardErr := f.instances.Discard(ctx, inst); discardErr != nil {
			f.logger.WarnContext(ctx, "failed to close routine instance", "error", discardErr)
		}
		return 0, fmt.Errorf("%w: %w", ErrCallFailed, err)
	}
	result := api.DecodeF64(inst.stack[0])

	if err := f.instances.Put(ctx, inst); err != nil {
		f.logger.WarnContext(ctx, "failed to close routine instance", "error", err)
	}
	return result, nil
}

// Close releases the native code and every routine instance. Only the first
// call does anything; later calls to Call fail with platform.ErrClosed.
func (f *Function) Close(ctx context.Context) error {
	f.rwMutex.Lock()
	defer f.rwMutex.Unlock()

	if !f.closed.CompareAndSwap(false, true) {
		return nil
	}
	return errors.Join(
		f.instances.Close(ctx),
		f.runtime.Close(ctx),
	)
}
