package device

import (
	"fmt"
	"time"

	"github.com/dcarrero/pvplant2modbus/internal/core/sim"
	"github.com/dcarrero/pvplant2modbus/pkg/sungrow_modbus"

	"go.uber.org/zap"
)

// Fleet binds every plant inverter to a Modbus slave on one shared
// bus. Slave ids are assigned sequentially from a base id, one per
// inverter in index order. Tick order is fixed: controls are applied
// first, then the plant advances, then telemetry is published, so a
// master's write is always visible in the same tick's telemetry.
type Fleet struct {
	plant   *sim.Plant
	devices []*Device
	byUnit  map[uint8]*Device

	tickInterval time.Duration

	dailyEnergyKWh float64
	totalEnergyKWh float64

	logger *zap.Logger
}

// NewFleet builds one device per inverter. Fails when any assigned
// unit id would leave the valid slave address range.
func NewFleet(plant *sim.Plant, table *sungrow_modbus.Table, baseUnitID uint8, tickInterval time.Duration, logger *zap.Logger) (*Fleet, error) {
	f := &Fleet{
		plant:        plant,
		byUnit:       make(map[uint8]*Device, plant.NumInverters()),
		tickInterval: tickInterval,
		logger:       logger.With(zap.String("plant", plant.ID())),
	}
	for i := 0; i < plant.NumInverters(); i++ {
		inv, err := plant.Inverter(i)
		if err != nil {
			return nil, err
		}
		unitID := baseUnitID + uint8(i)
		if unitID < baseUnitID {
			// uint8 wraparound
			return nil, sungrow_modbus.ErrBadUnitId
		}
		dev, err := NewDevice(unitID, inv, table, logger)
		if err != nil {
			return nil, err
		}
		f.devices = append(f.devices, dev)
		f.byUnit[unitID] = dev
	}
	f.logger.Info("fleet initialized",
		zap.Int("devices", len(f.devices)), zap.Uint8("base_unit_id", baseUnitID))
	return f, nil
}

func (f *Fleet) Plant() *sim.Plant {
	return f.plant
}

// Device finds the slave registered under a unit id. The map is
// immutable after construction, so lookups are safe from the
// transport goroutines.
func (f *Fleet) Device(unitID uint8) (*Device, bool) {
	dev, ok := f.byUnit[unitID]
	return dev, ok
}

// Devices returns all slaves in inverter index order.
func (f *Fleet) Devices() []*Device {
	return f.devices
}

func (f *Fleet) deviceByIndex(index int) (*Device, error) {
	if index < 0 || index >= len(f.devices) {
		return nil, fmt.Errorf("%w: %d", sim.ErrIndexOutOfRange, index)
	}
	return f.devices[index], nil
}

// CommandPower requests an inverter on or off by writing its
// start/stop holding register. The state change happens at the next
// tick, exactly as if a Modbus master had written the register.
func (f *Fleet) CommandPower(index int, on bool) error {
	dev, err := f.deviceByIndex(index)
	if err != nil {
		return err
	}
	return dev.commandPower(on)
}

// CommandPowerAll requests every inverter on or off.
func (f *Fleet) CommandPowerAll(on bool) error {
	for _, dev := range f.devices {
		if err := dev.commandPower(on); err != nil {
			return err
		}
	}
	return nil
}

// CommandControlMode requests a control mode change through the mode
// switch holding register.
func (f *Fleet) CommandControlMode(index int, mode sim.ControlMode) error {
	dev, err := f.deviceByIndex(index)
	if err != nil {
		return err
	}
	return dev.commandControlMode(mode)
}

// CommandControlModeAll requests a control mode change on every
// inverter.
func (f *Fleet) CommandControlModeAll(mode sim.ControlMode) error {
	for _, dev := range f.devices {
		if err := dev.commandControlMode(mode); err != nil {
			return err
		}
	}
	return nil
}

// CommandPControlPercent requests a P control output ratio through
// the limitation setting holding register. Out-of-range ratios are
// rejected without touching the register.
func (f *Fleet) CommandPControlPercent(index int, percent float64) error {
	dev, err := f.deviceByIndex(index)
	if err != nil {
		return err
	}
	return dev.commandPControlPercent(percent)
}

// CommandPControlPercentAll requests the ratio on every inverter.
func (f *Fleet) CommandPControlPercentAll(percent float64) error {
	for _, dev := range f.devices {
		if err := dev.commandPControlPercent(percent); err != nil {
			return err
		}
	}
	return nil
}

// Tick runs one simulation step: buffered control writes first, then
// the plant physics, then telemetry out. Also integrates plant energy
// over the tick interval for the monitoring surface.
func (f *Fleet) Tick() {
	for _, dev := range f.devices {
		dev.ApplyControls()
	}
	f.plant.Tick()

	elapsed := f.tickInterval.Seconds()
	for _, dev := range f.devices {
		dev.PublishTelemetry(elapsed)
	}

	energyKWh := f.plant.TotalPower().TotalActivePowerKW * elapsed / 3600.0
	f.dailyEnergyKWh += energyKWh
	f.totalEnergyKWh += energyKWh
}

// DailyEnergyKWh is the plant energy integrated since the last daily
// reset. Unlike the per-device yield registers, this is a true
// accumulator.
func (f *Fleet) DailyEnergyKWh() float64 {
	return f.dailyEnergyKWh
}

// TotalEnergyKWh is the plant energy integrated since process start.
func (f *Fleet) TotalEnergyKWh() float64 {
	return f.totalEnergyKWh
}

// ResetDailyEnergy zeroes the daily accumulator. Scheduled at
// midnight by the host.
func (f *Fleet) ResetDailyEnergy() {
	f.logger.Info("daily energy reset", zap.Float64("daily_kwh", f.dailyEnergyKWh))
	f.dailyEnergyKWh = 0.0
}
