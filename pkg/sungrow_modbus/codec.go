package sungrow_modbus

import (
	"fmt"
	"math"
)

// Encode converts a domain value into the register words for the
// descriptor. The raw value is round(value / scale); for 32-bit widths
// the low word comes first. Signed widths wrap negatives into two's
// complement; unsigned widths reject negatives and saturate U16 at
// 0xFFFF.
func Encode(d *RegisterDescriptor, value float64) ([]uint16, error) {
	raw := int64(math.Round(value / d.Scale))
	if raw < 0 && !d.Width.signed() {
		return nil, fmt.Errorf("%w: %s: negative value %v for unsigned %s",
			ErrOutOfRange, d.Name, value, d.Width)
	}
	if d.ValidRange != nil && !d.ValidRange.contains(raw) {
		return nil, fmt.Errorf("%w: %s: raw %d outside [%d, %d]",
			ErrOutOfRange, d.Name, raw, d.ValidRange.Min, d.ValidRange.Max)
	}
	return rawToWords(d, raw), nil
}

// EncodeSymbol converts an enumerated label into its register word.
func EncodeSymbol(d *RegisterDescriptor, symbol string) ([]uint16, error) {
	if !d.Enumerated() {
		return nil, fmt.Errorf("%w: %s carries no symbolic values", ErrUnknownSymbol, d.Name)
	}
	raw, ok := d.SymbolicValues[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s: no raw value for label %q", ErrUnknownSymbol, d.Name, symbol)
	}
	return rawToWords(d, raw), nil
}

// Decode converts register words back to the domain value. The word
// count must match the descriptor width.
func Decode(d *RegisterDescriptor, words []uint16) (float64, error) {
	raw, err := wordsToRaw(d, words)
	if err != nil {
		return 0, err
	}
	return float64(raw) * d.Scale, nil
}

// DecodeSymbol converts register words to the enumerated label. A raw
// value with no label yields an UnknownSymbolError; it is never
// coerced to a default.
func DecodeSymbol(d *RegisterDescriptor, words []uint16) (string, error) {
	raw, err := wordsToRaw(d, words)
	if err != nil {
		return "", err
	}
	for symbol, v := range d.SymbolicValues {
		if v == raw {
			return symbol, nil
		}
	}
	return "", &UnknownSymbolError{Descriptor: d.Name, Raw: raw}
}

// ValidateWords checks register words against the descriptor's valid
// range without storing them. Used by the transport to reject a
// master's out-of-range write before it reaches the register bank.
func ValidateWords(d *RegisterDescriptor, words []uint16) error {
	raw, err := wordsToRaw(d, words)
	if err != nil {
		return err
	}
	if d.ValidRange != nil && !d.ValidRange.contains(raw) {
		return fmt.Errorf("%w: %s: raw %d outside [%d, %d]",
			ErrOutOfRange, d.Name, raw, d.ValidRange.Min, d.ValidRange.Max)
	}
	return nil
}

// rawToWords splits a raw value into register words, low word first.
func rawToWords(d *RegisterDescriptor, raw int64) []uint16 {
	switch d.Width {
	case U16:
		if raw > math.MaxUint16 {
			raw = math.MaxUint16
		}
		return []uint16{uint16(raw)}
	case S16:
		return []uint16{uint16(raw & 0xFFFF)}
	default:
		v := uint32(raw & 0xFFFFFFFF)
		return []uint16{uint16(v & 0xFFFF), uint16(v >> 16)}
	}
}

func wordsToRaw(d *RegisterDescriptor, words []uint16) (int64, error) {
	if len(words) != int(d.WordCount()) {
		return 0, fmt.Errorf("%w: %s: got %d words, want %d",
			ErrWordCountMismatch, d.Name, len(words), d.WordCount())
	}
	switch d.Width {
	case U16:
		return int64(words[0]), nil
	case S16:
		return int64(int16(words[0])), nil
	case U32:
		return int64(uint32(words[1])<<16 | uint32(words[0])), nil
	default:
		return int64(int32(uint32(words[1])<<16 | uint32(words[0]))), nil
	}
}
