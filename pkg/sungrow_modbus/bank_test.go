package sungrow_modbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBankSeededWithDefaults(t *testing.T) {

	assert := assert.New(t)

	table := DefaultTable()
	bank := NewRegisterBank(table)

	d, _ := table.Lookup(RegStartStop)
	symbol, err := bank.ReadSymbol(d)
	assert.NoError(err)
	assert.Equal(SymbolStop, symbol)

	d, _ = table.Lookup(RegPowerLimitationSetting)
	value, err := bank.ReadValue(d)
	assert.NoError(err)
	assert.InDelta(100.0, value, 1e-9)
}

func TestBankUnsetAddressReadsZero(t *testing.T) {

	assert := assert.New(t)

	bank := NewRegisterBank(DefaultTable())

	words, err := bank.ReadWords(ClassHolding, 4000, 3)
	assert.NoError(err)
	assert.Equal([]uint16{0, 0, 0}, words)

	bits, err := bank.ReadBits(ClassCoil, 10, 2)
	assert.NoError(err)
	assert.Equal([]bool{false, false}, bits)
}

func TestBankWriteValueRoundTrip(t *testing.T) {

	assert := assert.New(t)

	table := DefaultTable()
	bank := NewRegisterBank(table)

	d, _ := table.Lookup(RegTotalActivePower)
	assert.NoError(bank.WriteValue(d, -250000.0))

	value, err := bank.ReadValue(d)
	assert.NoError(err)
	assert.Equal(-250000.0, value)
}

func TestBankWriteValueOutOfRangeLeavesStateIntact(t *testing.T) {

	assert := assert.New(t)

	table := DefaultTable()
	bank := NewRegisterBank(table)

	d, _ := table.Lookup(RegPowerLimitationSetting)
	assert.NoError(bank.WriteValue(d, 50.0))

	err := bank.WriteValue(d, 200.0)
	assert.ErrorIs(err, ErrOutOfRange)

	value, err := bank.ReadValue(d)
	assert.NoError(err)
	assert.InDelta(50.0, value, 1e-9)
}

func TestBankClassMismatch(t *testing.T) {

	assert := assert.New(t)

	bank := NewRegisterBank(DefaultTable())

	_, err := bank.ReadWords(ClassCoil, 0, 1)
	assert.ErrorIs(err, ErrWrongClass)

	_, err = bank.ReadBits(ClassHolding, 0, 1)
	assert.ErrorIs(err, ErrWrongClass)

	err = bank.WriteWords(ClassDiscreteInput, 0, []uint16{1})
	assert.ErrorIs(err, ErrWrongClass)
}

func TestBankBitsRoundTrip(t *testing.T) {

	assert := assert.New(t)

	bank := NewRegisterBank(DefaultTable())

	assert.NoError(bank.WriteBits(ClassCoil, 5, []bool{true, false, true}))

	bits, err := bank.ReadBits(ClassCoil, 5, 3)
	assert.NoError(err)
	assert.Equal([]bool{true, false, true}, bits)
}

func TestBankIndependentPerDevice(t *testing.T) {

	assert := assert.New(t)

	table := DefaultTable()
	a := NewRegisterBank(table)
	b := NewRegisterBank(table)

	d, _ := table.Lookup(RegStartStop)
	assert.NoError(a.WriteSymbol(d, SymbolStart))

	symbol, err := b.ReadSymbol(d)
	assert.NoError(err)
	assert.Equal(SymbolStop, symbol)
}
