package interp

import (
	"fmt"
	"log/slog"

	"github.com/robbyt/go-polycalc/internal/helpers"
)

// FunctionalOption configures a Calculator or Function.
type FunctionalOption func(*config) error

type config struct {
	logHandler slog.Handler
	logger     *slog.Logger
	permissive bool
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
// the longest prefix that parses ("1abc" reads as 1).
func WithPermissiveNumbers() FunctionalOption {
	return func(c *config) error {
		c.permissive = true
		return nil
	}
}

func newConfig(group string, opts []FunctionalOption) (*config, error) {
	cfg := &config{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("error applying option: %w", err)
		}
	}
	if cfg.logger != nil {
		cfg.logHandler = cfg.logger.Handler()
	} else {
		cfg.logHandler, cfg.logger = helpers.SetupLogger(cfg.logHandler, "interp", group)
	}
	return cfg, nil
}
