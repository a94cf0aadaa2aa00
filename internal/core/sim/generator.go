package sim

import (
	"fmt"
	"math"
	"math/rand"

	"go.uber.org/zap"
)

// ControlMode selects how a generator picks its output power.
type ControlMode string

const (
	// ControlModeMPPT tracks the maximum power point for the current
	// irradiance and temperature.
	ControlModeMPPT ControlMode = "MPPT"
	// ControlModePControl limits output to a percentage of the MPPT
	// power.
	ControlModePControl ControlMode = "P_CONTROL"
)

// ErrInvalidPercent is returned for output ratios outside 0..100.
var ErrInvalidPercent = fmt.Errorf("output percent must be between 0 and 100")

// thermal derating per degree above 25 C
const tempCoefficientPerDegC = 0.004

// PVMonitoring is a generator's electrical snapshot at the last tick.
type PVMonitoring struct {
	ID              string  `json:"id"`
	PowerGeneration float64 `json:"power_generation"`
	Voltage         float64 `json:"voltage"`
	Current         float64 `json:"current"`
	ActivePower     float64 `json:"active_power"`
	ReactivePower   float64 `json:"reactive_power"`
	PowerFactor     float64 `json:"power_factor"`
}

// PVGeneratorStatus is the full externally visible generator state.
type PVGeneratorStatus struct {
	ID              string       `json:"id"`
	IsOn            bool         `json:"is_on"`
	ControlMode     ControlMode  `json:"control_mode"`
	PControlPercent float64      `json:"p_control_percent"`
	RatedCapacityKW float64      `json:"rated_capacity_kw"`
	Monitoring      PVMonitoring `json:"monitoring"`
}

// PVGenerator models one DC solar array. It produces power from the
// configured base irradiance and temperature, with a +-1% random
// variation applied on every tick. Not safe for concurrent use; the
// owning plant serializes access.
type PVGenerator struct {
	id              string
	ratedCapacityKW float64

	on              bool
	controlMode     ControlMode
	pControlPercent float64

	baseIrradiance  float64
	irradiance      float64
	baseTemperature float64
	temperature     float64

	voltage       float64
	current       float64
	activePower   float64
	reactivePower float64

	rng    *rand.Rand
	logger *zap.Logger
}

// NewPVGenerator builds a generator that starts off, in MPPT mode, at
// 1000 W/m2 and 25 C. The random source is injected so simulations can
// be made deterministic.
func NewPVGenerator(id string, ratedCapacityKW float64, rng *rand.Rand, logger *zap.Logger) *PVGenerator {
	return &PVGenerator{
		id:              id,
		ratedCapacityKW: ratedCapacityKW,
		controlMode:     ControlModeMPPT,
		pControlPercent: 100.0,
		baseIrradiance:  1000.0,
		irradiance:      1000.0,
		baseTemperature: 25.0,
		temperature:     25.0,
		rng:             rng,
		logger:          logger.With(zap.String("generator", id)),
	}
}

func (g *PVGenerator) ID() string {
	return g.id
}

func (g *PVGenerator) IsOn() bool {
	return g.on
}

func (g *PVGenerator) ControlMode() ControlMode {
	return g.controlMode
}

func (g *PVGenerator) PControlPercent() float64 {
	return g.pControlPercent
}

// Temperature is the instantaneous module temperature including the
// tick jitter.
func (g *PVGenerator) Temperature() float64 {
	return g.temperature
}

// BaseIrradiance is the configured irradiance setpoint, before tick
// jitter.
func (g *PVGenerator) BaseIrradiance() float64 {
	return g.baseIrradiance
}

// BaseTemperature is the configured temperature setpoint, before tick
// jitter.
func (g *PVGenerator) BaseTemperature() float64 {
	return g.baseTemperature
}

func (g *PVGenerator) TurnOn() {
	g.on = true
	g.logger.Info("generator on")
}

// TurnOff stops production and zeroes the electrical outputs
// immediately.
func (g *PVGenerator) TurnOff() {
	g.on = false
	g.resetOutputs()
	g.logger.Info("generator off")
}

func (g *PVGenerator) SetControlMode(mode ControlMode) {
	g.controlMode = mode
	g.logger.Info("control mode changed", zap.String("mode", string(mode)))
}

// SetPControlPercent sets the P control output ratio. Values outside
// 0..100 are rejected and the previous ratio is kept.
func (g *PVGenerator) SetPControlPercent(percent float64) error {
	if percent < 0.0 || percent > 100.0 {
		return fmt.Errorf("%w: %v", ErrInvalidPercent, percent)
	}
	g.pControlPercent = percent
	g.logger.Info("p control percent changed", zap.Float64("percent", percent))
	return nil
}

// SetIrradiance sets the base irradiance in W/m2. Negative values
// clamp to zero.
func (g *PVGenerator) SetIrradiance(irradiance float64) {
	g.baseIrradiance = math.Max(0.0, irradiance)
	g.irradiance = g.baseIrradiance
}

// SetTemperature sets the base module temperature in degrees C.
func (g *PVGenerator) SetTemperature(temperature float64) {
	g.baseTemperature = temperature
	g.temperature = g.baseTemperature
}

func (g *PVGenerator) resetOutputs() {
	g.voltage = 0.0
	g.current = 0.0
	g.activePower = 0.0
	g.reactivePower = 0.0
}

// applyVariation jitters irradiance and temperature by +-1% of their
// base values.
func (g *PVGenerator) applyVariation() {
	g.irradiance = math.Max(0.0, g.baseIrradiance*(1.0+g.rng.Float64()*0.02-0.01))
	g.temperature = g.baseTemperature * (1.0 + g.rng.Float64()*0.02 - 0.01)
}

// mpptPower is the maximum power for the current conditions, derated
// for temperature and capped at the rated capacity.
func (g *PVGenerator) mpptPower() float64 {
	basePower := (g.irradiance / 1000.0) * g.ratedCapacityKW
	tempCoefficient := 1.0 - (g.temperature-25.0)*tempCoefficientPerDegC
	return math.Min(basePower*math.Max(0.0, tempCoefficient), g.ratedCapacityKW)
}

// Tick advances the generator one simulation step.
func (g *PVGenerator) Tick() {
	if !g.on {
		g.resetOutputs()
		return
	}

	g.applyVariation()

	targetPower := g.mpptPower()
	if g.controlMode == ControlModePControl {
		targetPower *= g.pControlPercent / 100.0
	}

	// DC bus voltage tracks irradiance around a 800 V nominal
	g.voltage = 800.0 + (g.irradiance/1000.0-1.0)*100.0
	if g.voltage > 0 {
		g.current = targetPower * 1000.0 / g.voltage
	} else {
		g.current = 0.0
	}
	g.activePower = targetPower
	g.reactivePower = 0.0
}

// Monitoring returns the electrical snapshot from the last tick.
func (g *PVGenerator) Monitoring() PVMonitoring {
	powerFactor := 0.0
	apparent := math.Hypot(g.activePower, g.reactivePower)
	if apparent > 0 {
		powerFactor = g.activePower / apparent
	}
	return PVMonitoring{
		ID:              g.id,
		PowerGeneration: g.activePower,
		Voltage:         g.voltage,
		Current:         g.current,
		ActivePower:     g.activePower,
		ReactivePower:   g.reactivePower,
		PowerFactor:     powerFactor,
	}
}

// Status returns the full generator state including monitoring.
func (g *PVGenerator) Status() PVGeneratorStatus {
	return PVGeneratorStatus{
		ID:              g.id,
		IsOn:            g.on,
		ControlMode:     g.controlMode,
		PControlPercent: g.pControlPercent,
		RatedCapacityKW: g.ratedCapacityKW,
		Monitoring:      g.Monitoring(),
	}
}
