package compiler

import "errors"

var (
	ErrParseFailed       = errors.New("extism: unable to parse formula")
	ErrBuildFailed       = errors.New("extism: unable to build plugin")
	ErrCompileFailed     = errors.New("extism: plugin compilation failed")
	ErrInstantiateFailed = errors.New("extism: unable to instantiate plugin")
	ErrCallFailed        = errors.New("extism: plugin call failed")
	ErrBadOutput         = errors.New("extism: plugin output is not a float64")
)
