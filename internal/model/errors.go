package model

import "errors"

// Failure kinds surfaced by the core. Callers inspect them with errors.Is.
var (
	ErrValidation               = errors.New("validation error")
	ErrInsufficientBalance      = errors.New("insufficient balance")
	ErrOrdering                 = errors.New("ordering error")
	ErrUnsupportedConfiguration = errors.New("unsupported configuration")
	ErrMismatchedSymbol         = errors.New("mismatched symbol")
	ErrNoData                   = errors.New("no data for interval")
)
