package sungrow_modbus

import (
	"fmt"
)

// RegisterClass identifies one of the four Modbus register spaces.
// The numeric values match the "type" field of the register map
// config file format.
type RegisterClass uint8

const (
	ClassCoil          RegisterClass = 0
	ClassDiscreteInput RegisterClass = 1
	ClassHolding       RegisterClass = 2
	ClassInput         RegisterClass = 3
)

func (c RegisterClass) String() string {
	switch c {
	case ClassCoil:
		return "coil"
	case ClassDiscreteInput:
		return "discrete_input"
	case ClassHolding:
		return "holding"
	case ClassInput:
		return "input"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// Writable reports whether a master may write to this register class.
func (c RegisterClass) Writable() bool {
	return c == ClassHolding || c == ClassCoil
}

// WordClass reports whether the class stores 16-bit words (as opposed
// to single bits).
func (c RegisterClass) WordClass() bool {
	return c == ClassHolding || c == ClassInput
}

// DataWidth is the fixed-width integer representation of a register
// value on the wire.
type DataWidth string

const (
	U16 DataWidth = "U16"
	S16 DataWidth = "S16"
	U32 DataWidth = "U32"
	S32 DataWidth = "S32"
)

// WordCount returns the number of 16-bit registers the width occupies.
func (w DataWidth) WordCount() uint16 {
	switch w {
	case U32, S32:
		return 2
	default:
		return 1
	}
}

func (w DataWidth) signed() bool {
	return w == S16 || w == S32
}

func (w DataWidth) valid() bool {
	switch w {
	case U16, S16, U32, S32:
		return true
	}
	return false
}

// RawRange is an inclusive bound on the raw (pre-scale) register value.
type RawRange struct {
	Min int64
	Max int64
}

func (r RawRange) contains(raw int64) bool {
	return raw >= r.Min && raw <= r.Max
}

// RegisterDescriptor maps a named quantity to its register location and
// wire representation. Descriptors are immutable once the table is
// built.
type RegisterDescriptor struct {
	Name        string
	Class       RegisterClass
	Address     uint16
	Width       DataWidth
	Scale       float64
	Default     int64
	Description string

	// SymbolicValues maps a domain label (e.g. "start") to its raw
	// register value. When set, the quantity is enumerated rather
	// than scaled.
	SymbolicValues map[string]int64

	// ValidRange, when set, bounds the raw value; writes outside it
	// are rejected.
	ValidRange *RawRange
}

// WordCount returns the number of 16-bit registers the descriptor
// occupies.
func (d *RegisterDescriptor) WordCount() uint16 {
	return d.Width.WordCount()
}

// Writable reports whether a Modbus master may write this register.
func (d *RegisterDescriptor) Writable() bool {
	return d.Class.Writable()
}

// Enumerated reports whether the descriptor carries symbolic values
// instead of a scaled quantity.
func (d *RegisterDescriptor) Enumerated() bool {
	return len(d.SymbolicValues) > 0
}

// covers reports whether addr falls inside the descriptor's register
// span (one or two words).
func (d *RegisterDescriptor) covers(addr uint16) bool {
	return addr >= d.Address && addr < d.Address+d.WordCount()
}

func (d *RegisterDescriptor) validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: descriptor with empty name", ErrInvalidTable)
	}
	if !d.Width.valid() {
		return fmt.Errorf("%w: %s: unknown data width %q", ErrInvalidTable, d.Name, d.Width)
	}
	if d.Scale <= 0 {
		return fmt.Errorf("%w: %s: scale must be positive, got %v", ErrInvalidTable, d.Name, d.Scale)
	}
	if !d.Class.WordClass() && d.WordCount() != 1 {
		return fmt.Errorf("%w: %s: bit class %s cannot hold a %s value", ErrInvalidTable, d.Name, d.Class, d.Width)
	}
	if d.ValidRange != nil && d.ValidRange.Min > d.ValidRange.Max {
		return fmt.Errorf("%w: %s: range min %d > max %d", ErrInvalidTable, d.Name, d.ValidRange.Min, d.ValidRange.Max)
	}
	return nil
}
