package sungrow_modbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultTableValid(t *testing.T) {

	assert := assert.New(t)

	table := DefaultTable()
	assert.NotEmpty(table.Descriptors())

	d, err := table.Lookup(RegTotalActivePower)
	assert.NoError(err)
	assert.Equal(ClassInput, d.Class)
	assert.Equal(uint16(5031), d.Address)
	assert.Equal(S32, d.Width)
}

func TestResolveCoversBothWordsOf32Bit(t *testing.T) {

	assert := assert.New(t)

	table := DefaultTable()

	low, ok := table.Resolve(ClassInput, 5004)
	assert.True(ok)
	high, ok := table.Resolve(ClassInput, 5005)
	assert.True(ok)

	assert.Equal(RegTotalYieldsPower, low.Name)
	assert.Same(low, high)
}

func TestSameAddressDifferentClass(t *testing.T) {

	assert := assert.New(t)

	table := DefaultTable()

	h, ok := table.Resolve(ClassHolding, 5006)
	assert.True(ok)
	i, ok := table.Resolve(ClassInput, 5006)
	assert.True(ok)

	assert.Equal(RegStartStop, h.Name)
	assert.Equal(RegTotalRunningTime, i.Name)
}

func TestResolveUnknownAddress(t *testing.T) {

	assert := assert.New(t)

	table := DefaultTable()
	_, ok := table.Resolve(ClassInput, 9999)

	assert.False(ok)
}

func TestOverlapRejected(t *testing.T) {

	assert := assert.New(t)

	_, err := NewTable([]RegisterDescriptor{
		{Name: "a", Class: ClassInput, Address: 100, Width: U32, Scale: 1},
		{Name: "b", Class: ClassInput, Address: 101, Width: U16, Scale: 1},
	})

	assert.ErrorIs(err, ErrInvalidTable)
}

func TestDuplicateNameRejected(t *testing.T) {

	assert := assert.New(t)

	_, err := NewTable([]RegisterDescriptor{
		{Name: "a", Class: ClassInput, Address: 100, Width: U16, Scale: 1},
		{Name: "a", Class: ClassHolding, Address: 200, Width: U16, Scale: 1},
	})

	assert.ErrorIs(err, ErrInvalidTable)
}

func TestParseTable(t *testing.T) {

	assert := assert.New(t)

	data := []byte(`{
		"grid_frequency": {
			"type": 3,
			"address": 5036,
			"description": "grid frequency",
			"scale": 0.1
		},
		"total_active_power": {
			"type": 3,
			"address": 5031,
			"data_type": "S32",
			"register_count": 2
		},
		"start_stop": {
			"type": 2,
			"address": 5006,
			"default": 206,
			"values": {"start": 207, "stop": 206}
		}
	}`)

	table, err := ParseTable(data)
	assert.NoError(err)

	d, err := table.Lookup("grid_frequency")
	assert.NoError(err)
	assert.Equal(U16, d.Width)
	assert.Equal(0.1, d.Scale)

	d, err = table.Lookup("total_active_power")
	assert.NoError(err)
	assert.Equal(S32, d.Width)
	assert.Equal(uint16(2), d.WordCount())
	assert.Equal(1.0, d.Scale)

	d, err = table.Lookup("start_stop")
	assert.NoError(err)
	assert.True(d.Enumerated())
	assert.Equal(int64(0xCE), d.Default)
}

func TestParseTableMissingType(t *testing.T) {

	assert := assert.New(t)

	_, err := ParseTable([]byte(`{"x": {"address": 1}}`))

	assert.ErrorIs(err, ErrInvalidTable)
}

func TestParseTableInconsistentCount(t *testing.T) {

	assert := assert.New(t)

	_, err := ParseTable([]byte(`{"x": {"type": 3, "address": 1, "data_type": "U32", "register_count": 1}}`))

	assert.ErrorIs(err, ErrInvalidTable)
}

func TestLoadTableMissingFileFallsBack(t *testing.T) {

	assert := assert.New(t)

	table, err := LoadTable("/nonexistent/registers.json")
	assert.NoError(err)

	_, err = table.Lookup(RegStartStop)
	assert.NoError(err)
}
