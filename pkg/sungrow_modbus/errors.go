package sungrow_modbus

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTable      error = errors.New("invalid register table")
	ErrUnknownDescriptor error = errors.New("unknown descriptor")
	ErrOutOfRange        error = errors.New("value out of range")
	ErrUnknownSymbol     error = errors.New("unrecognized symbolic value")
	ErrWrongClass        error = errors.New("operation not valid for register class")
	ErrWordCountMismatch error = errors.New("word count mismatch")
	ErrBadUnitId         error = errors.New("unit id out of range")
)

// UnknownSymbolError is returned when a raw register value has no
// enumerated label. The raw value is preserved so callers can report
// it instead of silently coercing to a default.
type UnknownSymbolError struct {
	Descriptor string
	Raw        int64
}

func (e *UnknownSymbolError) Error() string {
	return fmt.Sprintf("%s: %s: raw value 0x%X", ErrUnknownSymbol, e.Descriptor, e.Raw)
}

func (e *UnknownSymbolError) Unwrap() error {
	return ErrUnknownSymbol
}
