package compiler

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/robbyt/go-polycalc/internal/helpers"
	"github.com/tetratelabs/wazero"
)

// DefaultEntryPoint is the export the plugin is called through unless
// WithEntryPoint names another.
const DefaultEntryPoint = "evaluate"

// FunctionalOption configures how a formula is packaged and run as a plugin.
type FunctionalOption func(*config) error

type config struct {
	logHandler    slog.Handler
	logger        *slog.Logger
	permissive    bool
	entryPoint    string
	runtimeConfig wazero.RuntimeConfig
	poolSize      int
}

// WithLogHandler sets the log handler. This is the preferred option for
// logging configuration.
func WithLogHandler(handler slog.Handler) FunctionalOption {
	return func(c *config) error {
		if handler == nil {
			return fmt.Errorf("log handler cannot be nil")
		}
		c.logHandler = handler
		c.logger = nil
		return nil
	}
}

// WithLogger sets a specific logger, keeping its group configuration.
func WithLogger(logger *slog.Logger) FunctionalOption {
	return func(c *config) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		c.logger = logger
		c.logHandler = nil
		return nil
	}
}

// WithPermissiveNumbers accepts numeric literals with trailing garbage, keeping
// the longest prefix that parses.
func WithPermissiveNumbers() FunctionalOption {
	return func(c *config) error {
		c.permissive = true
		return nil
	}
}

// WithEntryPoint sets the name the plugin exports its entry point under.
func WithEntryPoint(name string) FunctionalOption {
	return func(c *config) error {
		if name == "" {
			return fmt.Errorf("entry point cannot be empty")
		}
		c.entryPoint = name
		return nil
	}
}

// WithRuntimeConfig sets the wazero runtime configuration the plugin is
// compiled with.
func WithRuntimeConfig(rc wazero.RuntimeConfig) FunctionalOption {
	return func(c *config) error {
		if rc == nil {
			return fmt.Errorf("runtime config cannot be nil")
		}
		c.runtimeConfig = rc
		return nil
	}
}

// WithPoolSize bounds the number of idle plugin instances kept for
// concurrent callers.
func WithPoolSize(n int) FunctionalOption {
	return func(c *config) error {
		if n < 1 {
			return fmt.Errorf("pool size must be positive, got %d", n)
		}
		c.poolSize = n
		return nil
	}
}

func newConfig(opts []FunctionalOption) (*config, error) {
	c := &config{entryPoint: DefaultEntryPoint}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("error applying extism option: %w", err)
		}
	}
	if c.runtimeConfig == nil {
		c.runtimeConfig = wazero.NewRuntimeConfig()
	}
	if c.poolSize == 0 {
		c.poolSize = runtime.GOMAXPROCS(0)
	}
	if c.logger != nil {
		c.logHandler = c.logger.Handler()
	} else {
		c.logHandler, c.logger = helpers.SetupLogger(c.logHandler, "extism", "Compiler")
	}
	return c, nil
}
