package compiler

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/robbyt/go-polycalc/internal/helpers"
	"github.com/tetratelabs/wazero"
)

// FunctionalOption configures code generation and the runtime a Function
// runs in.
type FunctionalOption func(*config) error

type config struct {
	logHandler    slog.Handler
	logger        *slog.Logger
	permissive    bool
	runtimeConfig wazero.RuntimeConfig
	cache         wazero.CompilationCache
	emitHook      func(op string)
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
		// Clear logger if handler is explicitly set
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
		// Clear handler if logger is explicitly set
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

// WithRuntimeConfig sets the wazero runtime configuration, for example
// wazero.NewRuntimeConfigInterpreter() on platforms without a native compiler.
func WithRuntimeConfig(rc wazero.RuntimeConfig) FunctionalOption {
	return func(c *config) error {
		if rc == nil {
			return fmt.Errorf("runtime config cannot be nil")
		}
		c.runtimeConfig = rc
		return nil
	}
}

// WithCompilationCache shares native code between Functions built from the
// same formula.
func WithCompilationCache(cache wazero.CompilationCache) FunctionalOption {
	return func(c *config) error {
		if cache == nil {
			return fmt.Errorf("compilation cache cannot be nil")
		}
		c.cache = cache
		return nil
	}
}

// WithEmitHook calls fn with the name of each instruction as it is emitted.
func WithEmitHook(fn func(op string)) FunctionalOption {
	return func(c *config) error {
		c.emitHook = fn
		return nil
	}
}

// WithPoolSize bounds the number of idle routine instances kept for
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
	c := &config{}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("error applying compiler option: %w", err)
		}
	}
	c.applyDefaults()
	c.setupLogger()
	return c, nil
}

func (c *config) applyDefaults() {
	if c.runtimeConfig == nil {
		c.runtimeConfig = wazero.NewRuntimeConfig()
	}
	if c.cache != nil {
		c.runtimeConfig = c.runtimeConfig.WithCompilationCache(c.cache)
	}
	if c.poolSize == 0 {
		c.poolSize = runtime.GOMAXPROCS(0)
	}
}

func (c *config) setupLogger() {
	if c.logger != nil {
		c.logHandler = c.logger.Handler()
	} else {
		c.logHandler, c.logger = helpers.SetupLogger(c.logHandler, "jit", "Compiler")
	}
}
