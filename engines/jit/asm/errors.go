package asm

import "errors"

var (
	ErrRoutineClosed  = errors.New("routine is closed")
	ErrRoutineOpen    = errors.New("another routine is still open")
	ErrHandleConsumed = errors.New("register handle already consumed")
	ErrForeignHandle  = errors.New("register handle belongs to another routine")
	ErrTypeMismatch   = errors.New("register type mismatch")
	ErrImportOrder    = errors.New("imports must be declared before any routine")
	ErrMissingReturn  = errors.New("routine closed without a return")
	ErrBadParam       = errors.New("parameter index out of range")
	ErrUnknownOp      = errors.New("unknown arithmetic operation")
)
