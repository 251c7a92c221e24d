package options

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/robbyt/go-polycalc/platform/constants"
	"github.com/robbyt/go-polycalc/platform/data"
)

// DefaultContextKey is where the default data provider keeps argument values.
const DefaultContextKey = constants.Args

// New applies opts over the defaults.
func New(opts ...Option) (*Config, error) {
	cfg := &Config{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("error applying option: %w", err)
		}
	}
	if err := WithDefaults()(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultHandler returns the default logging handler.
func DefaultHandler() slog.Handler {
	return slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})
}

// DefaultDataProvider returns the default data provider, which reads values
// added with AddDataToContext.
func DefaultDataProvider() data.Provider {
	return data.NewContextProvider(DefaultContextKey)
}

// WithDefaults fills in any setting that was not given.
func WithDefaults() Option {
	return func(c *Config) error {
		if c.handler == nil {
			c.handler = DefaultHandler()
		}
		if c.provider == nil {
			c.provider = DefaultDataProvider()
		}
		return nil
	}
}
