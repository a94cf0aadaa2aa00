package sim

import (
	"math"

	"go.uber.org/zap"
)

const (
	inverterEfficiency     = 0.97
	inverterOutputVoltageV = 380.0 // AC line voltage, 3-phase
	inverterFrequencyHz    = 60.0
	assumedPowerFactor     = 0.9
	sqrt3                  = 1.732
)

// InverterMonitoring is an inverter's electrical snapshot at the last
// tick. Input side is the DC link from the generator, output side the
// 3-phase AC grid connection.
type InverterMonitoring struct {
	ID            string  `json:"id"`
	InputVoltage  float64 `json:"input_voltage"`
	InputCurrent  float64 `json:"input_current"`
	InputPower    float64 `json:"input_power"`
	OutputVoltage float64 `json:"output_voltage"`
	OutputCurrent float64 `json:"output_current"`
	ActivePower   float64 `json:"active_power"`
	ReactivePower float64 `json:"reactive_power"`
	PowerFactor   float64 `json:"power_factor"`
	Efficiency    float64 `json:"efficiency"`
	Frequency     float64 `json:"frequency"`
}

// InverterStatus is the full externally visible inverter state.
type InverterStatus struct {
	ID               string             `json:"id"`
	IsOn             bool               `json:"is_on"`
	RatedCapacityKVA float64            `json:"rated_capacity_kva"`
	PVGeneratorID    string             `json:"pv_generator_id"`
	Monitoring       InverterMonitoring `json:"monitoring"`
}

// Inverter converts the DC output of one PVGenerator to grid AC with a
// fixed conversion efficiency, capped at its rated active power.
// Turning the inverter on or off cascades to the connected generator.
type Inverter struct {
	id               string
	ratedCapacityKVA float64
	ratedCapacityKW  float64

	on        bool
	generator *PVGenerator

	inputVoltage  float64
	inputCurrent  float64
	inputPower    float64
	outputCurrent float64
	activePower   float64
	reactivePower float64

	logger *zap.Logger
}

// NewInverter builds an inverter connected to the given generator.
// Rated active power is derived from the kVA rating at an assumed 0.9
// power factor.
func NewInverter(id string, ratedCapacityKVA float64, generator *PVGenerator, logger *zap.Logger) *Inverter {
	return &Inverter{
		id:               id,
		ratedCapacityKVA: ratedCapacityKVA,
		ratedCapacityKW:  ratedCapacityKVA * assumedPowerFactor,
		generator:        generator,
		logger:           logger.With(zap.String("inverter", id)),
	}
}

func (inv *Inverter) ID() string {
	return inv.id
}

func (inv *Inverter) IsOn() bool {
	return inv.on
}

func (inv *Inverter) Generator() *PVGenerator {
	return inv.generator
}

// RatedCapacityKW is the rated active power derived from the kVA
// rating.
func (inv *Inverter) RatedCapacityKW() float64 {
	return inv.ratedCapacityKW
}

func (inv *Inverter) TurnOn() {
	inv.on = true
	inv.generator.TurnOn()
	inv.logger.Info("inverter on")
}

func (inv *Inverter) TurnOff() {
	inv.on = false
	inv.generator.TurnOff()
	inv.resetOutputs()
	inv.logger.Info("inverter off")
}

// SetControlMode forwards the control mode to the generator.
func (inv *Inverter) SetControlMode(mode ControlMode) {
	inv.generator.SetControlMode(mode)
}

// SetPControlPercent forwards the P control ratio to the generator.
func (inv *Inverter) SetPControlPercent(percent float64) error {
	return inv.generator.SetPControlPercent(percent)
}

func (inv *Inverter) resetOutputs() {
	inv.inputVoltage = 0.0
	inv.inputCurrent = 0.0
	inv.inputPower = 0.0
	inv.outputCurrent = 0.0
	inv.activePower = 0.0
	inv.reactivePower = 0.0
}

// Tick advances the generator one step and recomputes the AC side.
func (inv *Inverter) Tick() {
	if !inv.on {
		inv.resetOutputs()
		return
	}

	inv.generator.Tick()
	pv := inv.generator.Monitoring()

	inv.inputVoltage = pv.Voltage
	inv.inputCurrent = pv.Current
	inv.inputPower = pv.ActivePower

	inv.activePower = math.Min(inv.inputPower*inverterEfficiency, inv.ratedCapacityKW)
	inv.reactivePower = 0.0

	// P = sqrt(3) * V * I at unity power factor
	if inverterOutputVoltageV > 0 {
		inv.outputCurrent = inv.activePower * 1000.0 / (sqrt3 * inverterOutputVoltageV)
	} else {
		inv.outputCurrent = 0.0
	}
}

// Monitoring returns the electrical snapshot from the last tick.
func (inv *Inverter) Monitoring() InverterMonitoring {
	powerFactor := 0.0
	apparent := math.Hypot(inv.activePower, inv.reactivePower)
	if apparent > 0 {
		powerFactor = inv.activePower / apparent
	}
	efficiency := 0.0
	if inv.inputPower > 0 {
		efficiency = inv.activePower / inv.inputPower * 100.0
	}
	return InverterMonitoring{
		ID:            inv.id,
		InputVoltage:  inv.inputVoltage,
		InputCurrent:  inv.inputCurrent,
		InputPower:    inv.inputPower,
		OutputVoltage: inverterOutputVoltageV,
		OutputCurrent: inv.outputCurrent,
		ActivePower:   inv.activePower,
		ReactivePower: inv.reactivePower,
		PowerFactor:   powerFactor,
		Efficiency:    efficiency,
		Frequency:     inverterFrequencyHz,
	}
}

// Status returns the full inverter state including monitoring.
func (inv *Inverter) Status() InverterStatus {
	return InverterStatus{
		ID:               inv.id,
		IsOn:             inv.on,
		RatedCapacityKVA: inv.ratedCapacityKVA,
		PVGeneratorID:    inv.generator.ID(),
		Monitoring:       inv.Monitoring(),
	}
}
