package sim

import (
	"fmt"
	"math"
	"math/rand"

	"go.uber.org/zap"
)

// ErrIndexOutOfRange is returned for inverter indexes outside the
// plant.
var ErrIndexOutOfRange = fmt.Errorf("inverter index out of range")

// TotalPower is the plant-level power aggregate, recomputed from all
// inverters on demand.
type TotalPower struct {
	TotalActivePowerKW    float64 `json:"total_active_power_kw"`
	TotalReactivePowerKVA float64 `json:"total_reactive_power_kvar"`
	TotalApparentPowerKVA float64 `json:"total_apparent_power_kva"`
	TotalInputPowerKW     float64 `json:"total_input_power_kw"`
	TotalCapacityKW       float64 `json:"total_capacity_kw"`
	UtilizationPercent    float64 `json:"utilization_percent"`
}

// PlantStatus is the full externally visible plant state.
type PlantStatus struct {
	PlantID             string              `json:"plant_id"`
	TotalCapacityMVA    float64             `json:"total_capacity_mva"`
	NumInverters        int                 `json:"num_inverters"`
	InverterCapacityKVA float64             `json:"inverter_capacity_kva"`
	TotalPower          TotalPower          `json:"total_power"`
	Inverters           []InverterStatus    `json:"inverters"`
	PVGenerators        []PVGeneratorStatus `json:"pv_generators"`
}

// PlantConfig sizes a plant.
type PlantConfig struct {
	PlantID             string
	TotalCapacityMVA    float64
	NumInverters        int
	InverterCapacityKVA float64
}

// DefaultPlantConfig is a 1 MVA plant of four 250 kVA inverters.
func DefaultPlantConfig() PlantConfig {
	return PlantConfig{
		PlantID:             "PLANT_01",
		TotalCapacityMVA:    1.0,
		NumInverters:        4,
		InverterCapacityKVA: 250.0,
	}
}

// Plant aggregates a fixed set of inverters, each fed by its own
// generator. All per-index operations take 0-based indexes and reject
// out-of-range values without touching any inverter. Not safe for
// concurrent use; callers serialize access.
type Plant struct {
	cfg             PlantConfig
	totalCapacityKW float64

	inverters  []*Inverter
	generators []*PVGenerator

	logger *zap.Logger
}

// NewPlant builds the plant and its inverter/generator pairs. The
// random source drives every generator's per-tick variation.
func NewPlant(cfg PlantConfig, rng *rand.Rand, logger *zap.Logger) *Plant {
	p := &Plant{
		cfg:             cfg,
		totalCapacityKW: cfg.TotalCapacityMVA * 1000.0 * assumedPowerFactor,
		logger:          logger.With(zap.String("plant", cfg.PlantID)),
	}

	perUnitKW := p.totalCapacityKW / float64(cfg.NumInverters)
	for i := 0; i < cfg.NumInverters; i++ {
		pvID := fmt.Sprintf("PV_%s_%02d", cfg.PlantID, i+1)
		gen := NewPVGenerator(pvID, perUnitKW, rng, logger)
		p.generators = append(p.generators, gen)

		invID := fmt.Sprintf("INV_%s_%02d", cfg.PlantID, i+1)
		p.inverters = append(p.inverters, NewInverter(invID, cfg.InverterCapacityKVA, gen, logger))
	}

	p.logger.Info("plant initialized", zap.Int("inverters", cfg.NumInverters))
	return p
}

func (p *Plant) ID() string {
	return p.cfg.PlantID
}

func (p *Plant) NumInverters() int {
	return len(p.inverters)
}

func (p *Plant) inverter(index int) (*Inverter, error) {
	if index < 0 || index >= len(p.inverters) {
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	return p.inverters[index], nil
}

// Inverter returns the inverter at a 0-based index.
func (p *Plant) Inverter(index int) (*Inverter, error) {
	return p.inverter(index)
}

func (p *Plant) TurnOnAll() {
	for _, inv := range p.inverters {
		inv.TurnOn()
	}
	p.logger.Info("all inverters on")
}

func (p *Plant) TurnOffAll() {
	for _, inv := range p.inverters {
		inv.TurnOff()
	}
	p.logger.Info("all inverters off")
}

func (p *Plant) TurnOnInverter(index int) error {
	inv, err := p.inverter(index)
	if err != nil {
		return err
	}
	inv.TurnOn()
	return nil
}

func (p *Plant) TurnOffInverter(index int) error {
	inv, err := p.inverter(index)
	if err != nil {
		return err
	}
	inv.TurnOff()
	return nil
}

func (p *Plant) SetControlModeAll(mode ControlMode) {
	for _, inv := range p.inverters {
		inv.SetControlMode(mode)
	}
}

func (p *Plant) SetControlModeInverter(index int, mode ControlMode) error {
	inv, err := p.inverter(index)
	if err != nil {
		return err
	}
	inv.SetControlMode(mode)
	return nil
}

func (p *Plant) SetPControlPercentAll(percent float64) error {
	for _, inv := range p.inverters {
		if err := inv.SetPControlPercent(percent); err != nil {
			return err
		}
	}
	return nil
}

func (p *Plant) SetPControlPercentInverter(index int, percent float64) error {
	inv, err := p.inverter(index)
	if err != nil {
		return err
	}
	return inv.SetPControlPercent(percent)
}

// SetIrradianceAll sets the base irradiance on every generator.
func (p *Plant) SetIrradianceAll(irradiance float64) {
	for _, gen := range p.generators {
		gen.SetIrradiance(irradiance)
	}
}

// SetIrradianceInverter sets the base irradiance on one generator.
func (p *Plant) SetIrradianceInverter(index int, irradiance float64) error {
	inv, err := p.inverter(index)
	if err != nil {
		return err
	}
	inv.Generator().SetIrradiance(irradiance)
	return nil
}

// SetTemperatureAll sets the base temperature on every generator.
func (p *Plant) SetTemperatureAll(temperature float64) {
	for _, gen := range p.generators {
		gen.SetTemperature(temperature)
	}
}

// SetTemperatureInverter sets the base temperature on one generator.
func (p *Plant) SetTemperatureInverter(index int, temperature float64) error {
	inv, err := p.inverter(index)
	if err != nil {
		return err
	}
	inv.Generator().SetTemperature(temperature)
	return nil
}

// Tick advances every inverter one simulation step, in index order.
func (p *Plant) Tick() {
	for _, inv := range p.inverters {
		inv.Tick()
	}
}

// TotalPower aggregates power over all inverters. Totals are summed
// from scratch on each call so a stopped inverter immediately drops
// out of the aggregate.
func (p *Plant) TotalPower() TotalPower {
	var active, reactive, input float64
	for _, inv := range p.inverters {
		m := inv.Monitoring()
		active += m.ActivePower
		reactive += m.ReactivePower
		input += m.InputPower
	}

	utilization := 0.0
	if p.totalCapacityKW > 0 {
		utilization = active / p.totalCapacityKW * 100.0
	}
	return TotalPower{
		TotalActivePowerKW:    active,
		TotalReactivePowerKVA: reactive,
		TotalApparentPowerKVA: math.Hypot(active, reactive),
		TotalInputPowerKW:     input,
		TotalCapacityKW:       p.totalCapacityKW,
		UtilizationPercent:    utilization,
	}
}

// Status returns the full plant state with per-unit detail.
func (p *Plant) Status() PlantStatus {
	status := PlantStatus{
		PlantID:             p.cfg.PlantID,
		TotalCapacityMVA:    p.cfg.TotalCapacityMVA,
		NumInverters:        len(p.inverters),
		InverterCapacityKVA: p.cfg.InverterCapacityKVA,
		TotalPower:          p.TotalPower(),
	}
	for _, inv := range p.inverters {
		status.Inverters = append(status.Inverters, inv.Status())
	}
	for _, gen := range p.generators {
		status.PVGenerators = append(status.PVGenerators, gen.Status())
	}
	return status
}
