package starlark

import "errors"

var (
	ErrParseFailed     = errors.New("starlark: unable to parse formula")
	ErrTranspileFailed = errors.New("starlark: formula translation failed")
	ErrCompileFailed   = errors.New("starlark: compilation failed")
	ErrCallFailed      = errors.New("starlark: call failed")
	ErrBadResult       = errors.New("starlark: result is not a number")
)
