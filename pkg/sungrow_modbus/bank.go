package sungrow_modbus

import (
	"fmt"
	"sync"
)

// RegisterBank is the mutable register state of one simulated device.
// All four register spaces are sparse maps; unset word addresses read
// as zero and unset bit addresses as false. Accesses are serialized by
// a single mutex, so a Modbus read that races a simulation update sees
// either the old or the new words, never a torn mix within one call.
type RegisterBank struct {
	mu       sync.Mutex
	holding  map[uint16]uint16
	input    map[uint16]uint16
	coils    map[uint16]bool
	discrete map[uint16]bool
}

// NewRegisterBank builds a bank seeded with each descriptor's default
// raw value.
func NewRegisterBank(table *Table) *RegisterBank {
	b := &RegisterBank{
		holding:  make(map[uint16]uint16),
		input:    make(map[uint16]uint16),
		coils:    make(map[uint16]bool),
		discrete: make(map[uint16]bool),
	}
	for _, d := range table.Descriptors() {
		if d.Class.WordClass() {
			b.storeWords(d.Class, d.Address, rawToWords(d, d.Default))
		} else {
			b.storeBits(d.Class, d.Address, []bool{d.Default != 0})
		}
	}
	return b
}

// ReadWords returns quantity registers starting at address from a word
// class.
func (b *RegisterBank) ReadWords(class RegisterClass, address uint16, quantity uint16) ([]uint16, error) {
	if !class.WordClass() {
		return nil, fmt.Errorf("%w: cannot read words from %s", ErrWrongClass, class)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	regs := b.wordSpace(class)
	out := make([]uint16, quantity)
	for i := uint16(0); i < quantity; i++ {
		out[i] = regs[address+i]
	}
	return out, nil
}

// WriteWords stores words starting at address in a word class. Input
// registers accept writes from the simulation side only; the Modbus
// adapter enforces master-side access rules before calling here.
func (b *RegisterBank) WriteWords(class RegisterClass, address uint16, words []uint16) error {
	if !class.WordClass() {
		return fmt.Errorf("%w: cannot write words to %s", ErrWrongClass, class)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.storeWords(class, address, words)
	return nil
}

// ReadBits returns quantity bits starting at address from a bit class.
func (b *RegisterBank) ReadBits(class RegisterClass, address uint16, quantity uint16) ([]bool, error) {
	if class.WordClass() {
		return nil, fmt.Errorf("%w: cannot read bits from %s", ErrWrongClass, class)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	bits := b.bitSpace(class)
	out := make([]bool, quantity)
	for i := uint16(0); i < quantity; i++ {
		out[i] = bits[address+i]
	}
	return out, nil
}

// WriteBits stores bits starting at address in a bit class.
func (b *RegisterBank) WriteBits(class RegisterClass, address uint16, bits []bool) error {
	if class.WordClass() {
		return fmt.Errorf("%w: cannot write bits to %s", ErrWrongClass, class)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.storeBits(class, address, bits)
	return nil
}

// ReadValue decodes the full register span of a descriptor into its
// domain value.
func (b *RegisterBank) ReadValue(d *RegisterDescriptor) (float64, error) {
	words, err := b.ReadWords(d.Class, d.Address, d.WordCount())
	if err != nil {
		return 0, err
	}
	return Decode(d, words)
}

// ReadSymbol decodes the register span of an enumerated descriptor
// into its label.
func (b *RegisterBank) ReadSymbol(d *RegisterDescriptor) (string, error) {
	words, err := b.ReadWords(d.Class, d.Address, d.WordCount())
	if err != nil {
		return "", err
	}
	return DecodeSymbol(d, words)
}

// WriteValue encodes a domain value and stores it over the full
// register span of the descriptor. On encode error the bank is left
// untouched.
func (b *RegisterBank) WriteValue(d *RegisterDescriptor, value float64) error {
	words, err := Encode(d, value)
	if err != nil {
		return err
	}
	return b.WriteWords(d.Class, d.Address, words)
}

// WriteSymbol encodes an enumerated label and stores it.
func (b *RegisterBank) WriteSymbol(d *RegisterDescriptor, symbol string) error {
	words, err := EncodeSymbol(d, symbol)
	if err != nil {
		return err
	}
	return b.WriteWords(d.Class, d.Address, words)
}

// WriteRaw stores a raw register value over the descriptor span
// without scale conversion or range checks.
func (b *RegisterBank) WriteRaw(d *RegisterDescriptor, raw int64) error {
	return b.WriteWords(d.Class, d.Address, rawToWords(d, raw))
}

func (b *RegisterBank) wordSpace(class RegisterClass) map[uint16]uint16 {
	if class == ClassHolding {
		return b.holding
	}
	return b.input
}

func (b *RegisterBank) bitSpace(class RegisterClass) map[uint16]bool {
	if class == ClassCoil {
		return b.coils
	}
	return b.discrete
}

func (b *RegisterBank) storeWords(class RegisterClass, address uint16, words []uint16) {
	regs := b.wordSpace(class)
	for i, w := range words {
		regs[address+uint16(i)] = w
	}
}

func (b *RegisterBank) storeBits(class RegisterClass, address uint16, bits []bool) {
	space := b.bitSpace(class)
	for i, v := range bits {
		space[address+uint16(i)] = v
	}
}
