package sim

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func testInverter() *Inverter {
	gen := NewPVGenerator("PV_TEST_01", 225.0, rand.New(rand.NewSource(1)), zap.NewNop())
	return NewInverter("INV_TEST_01", 250.0, gen, zap.NewNop())
}

func TestInverterConversion(t *testing.T) {

	assert := assert.New(t)

	inv := testInverter()
	inv.TurnOn()
	inv.Tick()
	m := inv.Monitoring()

	assert.InDelta(m.InputPower*0.97, m.ActivePower, 1e-9)
	assert.InDelta(97.0, m.Efficiency, 1e-9)
	assert.Equal(380.0, m.OutputVoltage)
	assert.Equal(60.0, m.Frequency)
	assert.InDelta(m.ActivePower*1000.0/(1.732*380.0), m.OutputCurrent, 1e-9)
	assert.Equal(0.0, m.ReactivePower)
	assert.Equal(1.0, m.PowerFactor)
}

func TestInverterCappedAtRatedActivePower(t *testing.T) {

	assert := assert.New(t)

	// generator larger than the inverter rating
	gen := NewPVGenerator("PV_TEST_01", 300.0, rand.New(rand.NewSource(1)), zap.NewNop())
	inv := NewInverter("INV_TEST_01", 250.0, gen, zap.NewNop())
	inv.TurnOn()

	for i := 0; i < 50; i++ {
		inv.Tick()
		// 250 kVA at 0.9 power factor
		assert.LessOrEqual(inv.Monitoring().ActivePower, 225.0)
	}
}

func TestInverterOnCascadesToGenerator(t *testing.T) {

	assert := assert.New(t)

	inv := testInverter()
	inv.TurnOn()
	assert.True(inv.Generator().IsOn())

	inv.TurnOff()
	assert.False(inv.Generator().IsOn())
}

func TestInverterOffProducesNothing(t *testing.T) {

	assert := assert.New(t)

	inv := testInverter()
	inv.TurnOn()
	inv.Tick()
	assert.Greater(inv.Monitoring().ActivePower, 0.0)

	inv.TurnOff()
	inv.Tick()
	m := inv.Monitoring()
	assert.Equal(0.0, m.ActivePower)
	assert.Equal(0.0, m.InputPower)
	assert.Equal(0.0, m.OutputCurrent)
	assert.Equal(0.0, m.Efficiency)
	assert.Equal(0.0, m.PowerFactor)
}

func TestInverterControlForwarding(t *testing.T) {

	assert := assert.New(t)

	inv := testInverter()
	inv.SetControlMode(ControlModePControl)
	assert.NoError(inv.SetPControlPercent(30.0))

	assert.Equal(ControlModePControl, inv.Generator().ControlMode())
	assert.Equal(30.0, inv.Generator().PControlPercent())
}
