package modbusd

import (
	"math/rand"
	"testing"
	"time"

	"github.com/dcarrero/pvplant2modbus/internal/core/device"
	"github.com/dcarrero/pvplant2modbus/internal/core/sim"
	"github.com/dcarrero/pvplant2modbus/pkg/sungrow_modbus"

	"github.com/simonvetter/modbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testHandler(t *testing.T) (*Handler, *device.Fleet) {
	plant := sim.NewPlant(sim.DefaultPlantConfig(), rand.New(rand.NewSource(1)), zap.NewNop())
	table := sungrow_modbus.DefaultTable()
	fleet, err := device.NewFleet(plant, table, 1, 100*time.Millisecond, zap.NewNop())
	require.NoError(t, err)
	return NewHandler(fleet, table, zap.NewNop()), fleet
}

func TestUnknownUnitIDRejected(t *testing.T) {

	assert := assert.New(t)

	handler, _ := testHandler(t)

	_, err := handler.HandleInputRegisters(&modbus.InputRegistersRequest{
		UnitId: 99, Addr: 5036, Quantity: 1,
	})
	assert.ErrorIs(err, modbus.ErrIllegalDataAddress)

	_, err = handler.HandleHoldingRegisters(&modbus.HoldingRegistersRequest{
		UnitId: 0, Addr: 5006, Quantity: 1,
	})
	assert.ErrorIs(err, modbus.ErrIllegalDataAddress)
}

func TestReadInputRegistersServesTelemetry(t *testing.T) {

	assert := assert.New(t)

	handler, fleet := testHandler(t)
	fleet.Plant().TurnOnAll()
	fleet.Tick()

	// grid frequency: 60 Hz at scale 0.1
	words, err := handler.HandleInputRegisters(&modbus.InputRegistersRequest{
		UnitId: 1, Addr: 5036, Quantity: 1,
	})
	assert.NoError(err)
	assert.Equal([]uint16{600}, words)

	// 32-bit active power span reads as a coherent pair
	words, err = handler.HandleInputRegisters(&modbus.InputRegistersRequest{
		UnitId: 1, Addr: 5031, Quantity: 2,
	})
	assert.NoError(err)
	raw := int64(int32(uint32(words[1])<<16 | uint32(words[0])))
	dev, _ := fleet.Device(1)
	assert.InDelta(dev.Inverter().Monitoring().ActivePower*1000.0, float64(raw), 1.0)
}

func TestReadHoldingRegistersServesDefaults(t *testing.T) {

	assert := assert.New(t)

	handler, _ := testHandler(t)

	words, err := handler.HandleHoldingRegisters(&modbus.HoldingRegistersRequest{
		UnitId: 2, Addr: 5006, Quantity: 3,
	})
	assert.NoError(err)
	assert.Equal([]uint16{sungrow_modbus.RawInverterStop, sungrow_modbus.RawMPPTMode, 1000}, words)
}

func TestWriteHoldingRegisterApplied(t *testing.T) {

	assert := assert.New(t)

	handler, fleet := testHandler(t)

	_, err := handler.HandleHoldingRegisters(&modbus.HoldingRegistersRequest{
		UnitId: 1, Addr: 5006, Quantity: 1, IsWrite: true,
		Args: []uint16{sungrow_modbus.RawInverterStart},
	})
	assert.NoError(err)

	fleet.Tick()
	dev, _ := fleet.Device(1)
	assert.True(dev.Inverter().IsOn())
}

func TestWriteOutOfRangeRejectedWithoutMutation(t *testing.T) {

	assert := assert.New(t)

	handler, _ := testHandler(t)

	_, err := handler.HandleHoldingRegisters(&modbus.HoldingRegistersRequest{
		UnitId: 1, Addr: 5008, Quantity: 1, IsWrite: true,
		Args: []uint16{1500},
	})
	assert.ErrorIs(err, modbus.ErrIllegalDataValue)

	words, err := handler.HandleHoldingRegisters(&modbus.HoldingRegistersRequest{
		UnitId: 1, Addr: 5008, Quantity: 1,
	})
	assert.NoError(err)
	assert.Equal([]uint16{1000}, words)
}

func TestWriteMultiRegisterRangeCheckedAsWhole(t *testing.T) {

	assert := assert.New(t)

	handler, _ := testHandler(t)

	// one write spanning the mode switch and the bounded setting:
	// the whole request must be rejected, including the valid word
	_, err := handler.HandleHoldingRegisters(&modbus.HoldingRegistersRequest{
		UnitId: 1, Addr: 5007, Quantity: 2, IsWrite: true,
		Args: []uint16{sungrow_modbus.RawPowerControlMode, 2000},
	})
	assert.ErrorIs(err, modbus.ErrIllegalDataValue)

	words, err := handler.HandleHoldingRegisters(&modbus.HoldingRegistersRequest{
		UnitId: 1, Addr: 5007, Quantity: 2,
	})
	assert.NoError(err)
	assert.Equal([]uint16{sungrow_modbus.RawMPPTMode, 1000}, words)
}

func TestCoilsRoundTrip(t *testing.T) {

	assert := assert.New(t)

	handler, _ := testHandler(t)

	_, err := handler.HandleCoils(&modbus.CoilsRequest{
		UnitId: 1, Addr: 10, Quantity: 2, IsWrite: true, Args: []bool{true, false},
	})
	assert.NoError(err)

	bits, err := handler.HandleCoils(&modbus.CoilsRequest{
		UnitId: 1, Addr: 10, Quantity: 2,
	})
	assert.NoError(err)
	assert.Equal([]bool{true, false}, bits)
}

func TestDiscreteInputsReadDefaults(t *testing.T) {

	assert := assert.New(t)

	handler, _ := testHandler(t)

	bits, err := handler.HandleDiscreteInputs(&modbus.DiscreteInputsRequest{
		UnitId: 1, Addr: 0, Quantity: 4,
	})
	assert.NoError(err)
	assert.Equal([]bool{false, false, false, false}, bits)
}
