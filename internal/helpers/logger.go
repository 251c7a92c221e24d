package helpers

import (
	"log/slog"
	"os"
)

// SetupLogger creates the logger used by an engine component.
// If the provided handler is nil, a text handler writing warnings and errors to
// stderr is created and grouped under the engine name.
//
// Parameters:
//   - handler: The slog.Handler to use, or nil for defaults
//   - engineName: The name of the engine (e.g., "jit", "interp")
//   - groupName: Optional additional group name within the engine
//
// Returns:
//   - The configured handler
//   - A logger created from the handler
func SetupLogger(handler slog.Handler, engineName string, groupName string) (slog.Handler, *slog.Logger) {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}).
			WithGroup(engineName)
	}

	if groupName != "" {
		return handler, slog.New(handler.WithGroup(groupName))
	}
	return handler, slog.New(handler)
}
