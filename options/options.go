// Package options holds the engine-independent settings used by the
// top-level constructors. Each setting is translated into the chosen engine's
// own functional options.
package options

import (
	"fmt"
	"log/slog"

	"github.com/robbyt/go-polycalc/platform/data"
	"github.com/tetratelabs/wazero"
)

// Config holds the settings shared by every engine.
type Config struct {
	handler       slog.Handler
	provider      data.Provider
	permissive    bool
	poolSize      int
	runtimeConfig wazero.RuntimeConfig
	entryPoint    string
}

// Option is a function that modifies Config
type Option func(*Config) error

// WithLogHandler sets the log handler for the engine.
func WithLogHandler(handler slog.Handler) Option {
	return func(c *Config) error {
		if handler == nil {
			return fmt.Errorf("log handler cannot be nil")
		}
		c.handler = handler
		return nil
	}
}

// WithDataProvider sets where an Evaluator reads argument values from.
func WithDataProvider(provider data.Provider) Option {
	return func(c *Config) error {
		if provider == nil {
			return fmt.Errorf("data provider cannot be nil")
		}
		c.provider = provider
		return nil
	}
}

// WithStaticData gives an Evaluator fixed argument values that values added
// to the context at evaluation time override.
func WithStaticData(values map[string]any) Option {
	return func(c *Config) error {
		c.provider = data.NewCompositeProvider(
			data.NewStaticProvider(values),
			data.NewContextProvider(DefaultContextKey),
		)
		return nil
	}
}

// WithPermissiveNumbers accepts numeric literals with trailing garbage.
func WithPermissiveNumbers() Option {
	return func(c *Config) error {
		c.permissive = true
		return nil
	}
}

// WithPoolSize bounds the idle instances kept by the jit and extism engines.
// Other engines ignore it.
func WithPoolSize(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return fmt.Errorf("pool size must be positive, got %d", n)
		}
		c.poolSize = n
		return nil
	}
}

// WithRuntimeConfig sets the wazero runtime configuration of the jit and
// extism engines. Other engines ignore it.
func WithRuntimeConfig(rc wazero.RuntimeConfig) Option {
	return func(c *Config) error {
		if rc == nil {
			return fmt.Errorf("runtime config cannot be nil")
		}
		c.runtimeConfig = rc
		return nil
	}
}

// WithEntryPoint sets the export name of the extism engine's plugin.
func WithEntryPoint(name string) Option {
	return func(c *Config) error {
		if name == "" {
			return fmt.Errorf("entry point cannot be empty")
		}
		c.entryPoint = name
		return nil
	}
}

// GetHandler returns the configured log handler.
func (c *Config) GetHandler() slog.Handler {
	return c.handler
}

// GetDataProvider returns the configured data provider.
func (c *Config) GetDataProvider() data.Provider {
	return c.provider
}

// Permissive reports whether lenient literal parsing was requested.
func (c *Config) Permissive() bool {
	return c.permissive
}

// GetPoolSize returns the pool size, or 0 for the engine default.
func (c *Config) GetPoolSize() int {
	return c.poolSize
}

// GetRuntimeConfig returns the wazero runtime configuration, or nil for the
// engine default.
func (c *Config) GetRuntimeConfig() wazero.RuntimeConfig {
	return c.runtimeConfig
}

// GetEntryPoint returns the plugin entry point, or "" for the default.
func (c *Config) GetEntryPoint() string {
	return c.entryPoint
}
