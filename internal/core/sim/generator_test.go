package sim

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func testGenerator(ratedKW float64) *PVGenerator {
	return NewPVGenerator("PV_TEST_01", ratedKW, rand.New(rand.NewSource(1)), zap.NewNop())
}

func TestGeneratorOffProducesNothing(t *testing.T) {

	assert := assert.New(t)

	gen := testGenerator(225.0)
	gen.Tick()
	m := gen.Monitoring()

	assert.Equal(0.0, m.ActivePower)
	assert.Equal(0.0, m.Voltage)
	assert.Equal(0.0, m.Current)
	assert.Equal(0.0, m.PowerFactor)
}

func TestGeneratorMPPTAtReferenceConditions(t *testing.T) {

	assert := assert.New(t)

	gen := testGenerator(225.0)
	gen.TurnOn()
	gen.Tick()
	m := gen.Monitoring()

	// 1000 W/m2 at 25 C yields rated power, within the tick jitter
	assert.InDelta(225.0, m.ActivePower, 225.0*0.03)
	assert.InDelta(800.0, m.Voltage, 800.0*0.02)
	assert.InDelta(m.ActivePower*1000.0/m.Voltage, m.Current, 1e-9)
	assert.Equal(1.0, m.PowerFactor)
	assert.Equal(0.0, m.ReactivePower)
}

func TestGeneratorPowerScalesWithIrradiance(t *testing.T) {

	assert := assert.New(t)

	gen := testGenerator(225.0)
	gen.TurnOn()
	gen.SetIrradiance(500.0)
	gen.Tick()
	m := gen.Monitoring()

	assert.InDelta(112.5, m.ActivePower, 112.5*0.03)
	// DC voltage drops below nominal at low irradiance
	assert.InDelta(750.0, m.Voltage, 750.0*0.02)
}

func TestGeneratorTemperatureDerating(t *testing.T) {

	assert := assert.New(t)

	gen := testGenerator(225.0)
	gen.TurnOn()
	gen.SetTemperature(45.0)
	gen.Tick()
	m := gen.Monitoring()

	// 20 C above reference derates by 20 * 0.4% = 8%
	assert.InDelta(225.0*0.92, m.ActivePower, 225.0*0.03)
}

func TestGeneratorNeverExceedsRatedPower(t *testing.T) {

	assert := assert.New(t)

	gen := testGenerator(225.0)
	gen.TurnOn()
	gen.SetIrradiance(1500.0)
	gen.SetTemperature(10.0)

	for i := 0; i < 50; i++ {
		gen.Tick()
		assert.LessOrEqual(gen.Monitoring().ActivePower, 225.0)
	}
}

func TestGeneratorPControl(t *testing.T) {

	assert := assert.New(t)

	gen := testGenerator(225.0)
	gen.TurnOn()
	gen.SetControlMode(ControlModePControl)
	assert.NoError(gen.SetPControlPercent(50.0))
	gen.Tick()
	m := gen.Monitoring()

	assert.InDelta(112.5, m.ActivePower, 112.5*0.03)
}

func TestGeneratorInvalidPercentKeepsPrevious(t *testing.T) {

	assert := assert.New(t)

	gen := testGenerator(225.0)
	assert.NoError(gen.SetPControlPercent(80.0))

	assert.ErrorIs(gen.SetPControlPercent(150.0), ErrInvalidPercent)
	assert.ErrorIs(gen.SetPControlPercent(-1.0), ErrInvalidPercent)
	assert.Equal(80.0, gen.PControlPercent())
}

func TestGeneratorNegativeIrradianceClampsToZero(t *testing.T) {

	assert := assert.New(t)

	gen := testGenerator(225.0)
	gen.TurnOn()
	gen.SetIrradiance(-100.0)
	gen.Tick()

	assert.Equal(0.0, gen.Monitoring().ActivePower)
}

func TestGeneratorTurnOffZeroesOutputs(t *testing.T) {

	assert := assert.New(t)

	gen := testGenerator(225.0)
	gen.TurnOn()
	gen.Tick()
	assert.Greater(gen.Monitoring().ActivePower, 0.0)

	gen.TurnOff()
	m := gen.Monitoring()
	assert.Equal(0.0, m.ActivePower)
	assert.Equal(0.0, m.Voltage)
	assert.Equal(0.0, m.Current)
}
