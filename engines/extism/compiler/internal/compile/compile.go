package compile

import (
	"context"
	"errors"
	"fmt"

	extismSDK "github.com/extism/go-sdk"
	"github.com/robbyt/go-polycalc/engines/extism/adapters"
)

var (
	ErrContentNil    = errors.New("plugin content is empty")
	ErrCompileFailed = errors.New("failed to compile plugin")
)

// Plugin compiles plugin bytes with the Extism SDK.
func Plugin(
	ctx context.Context,
	wasmBytes []byte,
	opts *Settings,
) (adapters.CompiledPlugin, error) {
	if len(wasmBytes) == 0 {
		return nil, ErrContentNil
	}
	if opts == nil {
		opts = DefaultSettings()
	}

	manifest := extismSDK.Manifest{
		Wasm: []extismSDK.Wasm{
			extismSDK.WasmData{Data: wasmBytes},
		},
	}
	config := extismSDK.PluginConfig{
		EnableWasi:    false,
		RuntimeConfig: opts.RuntimeConfig,
	}

	plugin, err := extismSDK.NewCompiledPlugin(ctx, manifest, config, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompileFailed, err)
	}
	return adapters.NewCompiledPlugin(plugin), nil
}
