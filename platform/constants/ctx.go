// Package constants holds keys shared between data providers and evaluators.
package constants

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// Args is the context key under which a ContextProvider stores argument
// values, a map from parameter name to value.
const Args ContextKey = "polycalc_args"
