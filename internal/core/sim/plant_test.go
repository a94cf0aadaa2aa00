package sim

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func testPlant() *Plant {
	return NewPlant(DefaultPlantConfig(), rand.New(rand.NewSource(1)), zap.NewNop())
}

func TestPlantLayout(t *testing.T) {

	assert := assert.New(t)

	plant := testPlant()
	status := plant.Status()

	assert.Equal(4, plant.NumInverters())
	assert.Equal("PLANT_01", plant.ID())
	assert.Len(status.Inverters, 4)
	assert.Len(status.PVGenerators, 4)
	assert.Equal("INV_PLANT_01_01", status.Inverters[0].ID)
	assert.Equal("PV_PLANT_01_04", status.PVGenerators[3].ID)
	assert.Equal(900.0, status.TotalPower.TotalCapacityKW)
}

func TestPlantTotalPowerAggregation(t *testing.T) {

	assert := assert.New(t)

	plant := testPlant()
	plant.TurnOnAll()
	plant.Tick()
	total := plant.TotalPower()

	// 4 x 225 kW DC at 97% conversion
	assert.InDelta(900.0*0.97, total.TotalActivePowerKW, 900.0*0.03)
	assert.InDelta(900.0, total.TotalInputPowerKW, 900.0*0.03)
	assert.InDelta(total.TotalActivePowerKW/900.0*100.0, total.UtilizationPercent, 1e-9)
	assert.Equal(0.0, total.TotalReactivePowerKVA)
	assert.InDelta(total.TotalActivePowerKW, total.TotalApparentPowerKVA, 1e-9)
}

func TestPlantStoppedInverterDropsOutOfTotals(t *testing.T) {

	assert := assert.New(t)

	plant := testPlant()
	plant.TurnOnAll()
	plant.Tick()
	before := plant.TotalPower().TotalActivePowerKW

	assert.NoError(plant.TurnOffInverter(2))
	after := plant.TotalPower().TotalActivePowerKW

	assert.InDelta(before*3.0/4.0, after, before*0.03)
}

func TestPlantIndexOutOfRange(t *testing.T) {

	assert := assert.New(t)

	plant := testPlant()

	assert.ErrorIs(plant.TurnOnInverter(4), ErrIndexOutOfRange)
	assert.ErrorIs(plant.TurnOffInverter(-1), ErrIndexOutOfRange)
	assert.ErrorIs(plant.SetControlModeInverter(7, ControlModeMPPT), ErrIndexOutOfRange)
	assert.ErrorIs(plant.SetPControlPercentInverter(4, 50.0), ErrIndexOutOfRange)
	assert.ErrorIs(plant.SetIrradianceInverter(4, 800.0), ErrIndexOutOfRange)
	assert.ErrorIs(plant.SetTemperatureInverter(-1, 30.0), ErrIndexOutOfRange)
	_, err := plant.Inverter(10)
	assert.ErrorIs(err, ErrIndexOutOfRange)
}

func TestPlantPerIndexControl(t *testing.T) {

	assert := assert.New(t)

	plant := testPlant()
	assert.NoError(plant.TurnOnInverter(1))

	plant.Tick()
	total := plant.TotalPower()

	// only one of four producing
	assert.InDelta(225.0*0.97, total.TotalActivePowerKW, 225.0*0.03)

	inv0, _ := plant.Inverter(0)
	inv1, _ := plant.Inverter(1)
	assert.False(inv0.IsOn())
	assert.True(inv1.IsOn())
}

func TestPlantPerIndexEnvironment(t *testing.T) {

	assert := assert.New(t)

	plant := testPlant()
	assert.NoError(plant.SetIrradianceInverter(2, 500.0))
	assert.NoError(plant.SetTemperatureInverter(2, 45.0))

	inv2, _ := plant.Inverter(2)
	assert.Equal(500.0, inv2.Generator().BaseIrradiance())
	assert.Equal(45.0, inv2.Generator().BaseTemperature())

	// the other generators keep their defaults
	inv0, _ := plant.Inverter(0)
	assert.Equal(1000.0, inv0.Generator().BaseIrradiance())
	assert.Equal(25.0, inv0.Generator().BaseTemperature())
}

func TestPlantBroadcastControls(t *testing.T) {

	assert := assert.New(t)

	plant := testPlant()
	plant.TurnOnAll()
	plant.SetControlModeAll(ControlModePControl)
	assert.NoError(plant.SetPControlPercentAll(20.0))
	plant.SetIrradianceAll(1000.0)
	plant.SetTemperatureAll(25.0)
	plant.Tick()

	total := plant.TotalPower()
	assert.InDelta(900.0*0.2*0.97, total.TotalActivePowerKW, 900.0*0.2*0.03)

	for i := 0; i < plant.NumInverters(); i++ {
		inv, err := plant.Inverter(i)
		assert.NoError(err)
		assert.Equal(ControlModePControl, inv.Generator().ControlMode())
		assert.Equal(20.0, inv.Generator().PControlPercent())
	}
}

func TestPlantInvalidPercentRejectedForAll(t *testing.T) {

	assert := assert.New(t)

	plant := testPlant()
	assert.NoError(plant.SetPControlPercentAll(60.0))
	assert.ErrorIs(plant.SetPControlPercentAll(120.0), ErrInvalidPercent)

	inv, _ := plant.Inverter(0)
	assert.Equal(60.0, inv.Generator().PControlPercent())
}
