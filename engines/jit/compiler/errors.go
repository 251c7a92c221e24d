package compiler

import "errors"

var (
	ErrParseFailed       = errors.New("jit: unable to parse formula")
	ErrEmitFailed        = errors.New("jit: code generation failed")
	ErrCompileFailed     = errors.New("jit: native compilation failed")
	ErrInstantiateFailed = errors.New("jit: unable to instantiate routine")
	ErrCallFailed        = errors.New("jit: routine call failed")
)
