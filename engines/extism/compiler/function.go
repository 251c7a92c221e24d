package compiler

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/robbyt/go-polycalc/engines/extism/adapters"
	"github.com/robbyt/go-polycalc/engines/extism/compiler/internal/compile"
	"github.com/robbyt/go-polycalc/internal/pool"
	"github.com/robbyt/go-polycalc/platform"
	"github.com/robbyt/go-polycalc/platform/sexpr"
)

var _ platform.Function = (*Function)(nil)

// Function calls a formula plugin through the Extism SDK. It is safe for
// concurrent use; each concurrent call gets its own plugin instance.
type Function struct {
	formula    *sexpr.Formula
	bin        []byte
	entryPoint string
	plugin     adapters.CompiledPlugin

	instances *pool.Pool[adapters.PluginInstance]
	logger    *slog.Logger

	closed  atomic.Bool
	rwMutex sync.RWMutex
}

func (f *Function) instantiate(ctx context.Context) (adapters.PluginInstance, error) {
	inst, err := f.plugin.Instance(ctx, compile.InstanceConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInstantiateFailed, err)
	}
	if !inst.FunctionExists(f.entryPoint) {
		_ = inst.Close(ctx)
		return nil, fmt.Errorf("%w: entry point %q not exported", ErrInstantiateFailed, f.entryPoint)
	}
	return inst, nil
}

func closeInstance(ctx context.Context, inst adapters.PluginInstance) error {
	return inst.Close(ctx)
}

func (f *Function) String() string {
	return f.formula.String()
}

// Params returns the declared parameter names.
func (f *Function) Params() []string {
	return slices.Clone(f.formula.Params)
}

// Plugin returns the plugin bytes.
func (f *Function) Plugin() []byte {
	return slices.Clone(f.bin)
}

// EntryPoint returns the name of the export Call invokes.
func (f *Function) EntryPoint() string {
	return f.entryPoint
}

// Call encodes args as the plugin input, runs the entry point and decodes
// its output.
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

	input := make([]byte, len(args)*slotSize)
	for i, v := range args {
		binary.LittleEndian.PutUint64(input[i*slotSize:], math.Float64bits(v))
	}

	inst, err := f.instances.Get(ctx)
	if err != nil {
		return 0, err
	}
	exit, output, err := inst.CallWithContext(ctx, f.entryPoint, input)
	if err != nil || exit != 0 {
		if discardErr := f.instances.Discard(ctx, inst); discardErr != nil {
			f.logger.WarnContext(ctx, "failed to close plugin instance", "error", discardErr)
		}
		if err == nil {
			err = fmt.Errorf("exit code %d", exit)
		}
		return 0, fmt.Errorf("%w: %w", ErrCallFailed, err)
	}
	if err := f.instances.Put(ctx, inst); err != nil {
		f.logger.WarnContext(ctx, "failed to close plugin instance", "error", err)
	}

	if len(output) != slotSize {
		return 0, fmt.Errorf("%w: got %d bytes", ErrBadOutput, len(output))
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(output)), nil
}

// Close releases every plugin instance and the compiled plugin. Only the
// first call does anything.
func (f *Function) Close(ctx context.Context) error {
	f.rwMutex.Lock()
	defer f.rwMutex.Unlock()

	if !f.closed.CompareAndSwap(false, true) {
		return nil
	}
	return errors.Join(
		f.instances.Close(ctx),
		f.plugin.Close(ctx),
	)
}
