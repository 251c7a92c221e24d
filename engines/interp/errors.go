package interp

import "errors"

var (
	ErrParseFailed      = errors.New("interp: unable to parse formula")
	ErrValidationFailed = errors.New("interp: formula validation error")
)
