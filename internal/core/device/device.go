package device

import (
	"fmt"
	"math"
	"slices"

	"github.com/dcarrero/pvplant2modbus/internal/core/sim"
	"github.com/dcarrero/pvplant2modbus/pkg/sungrow_modbus"

	"go.uber.org/zap"
)

// Modbus slave address bounds. 0 is the broadcast address and
// 248..255 are reserved.
const (
	MinUnitID = 1
	MaxUnitID = 247
)

// telemetryBinding ties one register descriptor to the function that
// produces its domain value. Bindings are resolved once at device
// construction so the tick path never does name lookups.
type telemetryBinding struct {
	descriptor *sungrow_modbus.RegisterDescriptor
	read       func() float64
}

// controlBinding ties one writable register to the function that
// applies its content to the inverter. lastWords is the register
// content as of the last application; a control acts only on change,
// so a master's write takes effect exactly once and state changed
// through the plant API is never reverted by a stale register.
type controlBinding struct {
	descriptor *sungrow_modbus.RegisterDescriptor
	lastWords  []uint16
	apply      func(*sungrow_modbus.RegisterDescriptor, []uint16)
}

// Device is one Modbus slave: an inverter plus the register bank a
// master polls. Telemetry flows inverter -> input registers on every
// tick; control flows holding registers -> inverter at the start of
// the next tick.
type Device struct {
	unitID   uint8
	inverter *sim.Inverter
	table    *sungrow_modbus.Table
	bank     *sungrow_modbus.RegisterBank
	bindings []telemetryBinding
	controls []*controlBinding

	runningSeconds float64

	logger *zap.Logger
}

// NewDevice builds a slave for the given inverter. Unit ids outside
// 1..247 are rejected. Telemetry quantities missing from a custom
// register table are skipped, narrowing the published set.
func NewDevice(unitID uint8, inverter *sim.Inverter, table *sungrow_modbus.Table, logger *zap.Logger) (*Device, error) {
	if unitID < MinUnitID || unitID > MaxUnitID {
		return nil, fmt.Errorf("%w: %d", sungrow_modbus.ErrBadUnitId, unitID)
	}
	d := &Device{
		unitID:   unitID,
		inverter: inverter,
		table:    table,
		bank:     sungrow_modbus.NewRegisterBank(table),
		logger:   logger.With(zap.Uint8("unit_id", unitID), zap.String("inverter", inverter.ID())),
	}
	d.bindings = d.resolveBindings()
	d.controls = d.resolveControls()
	return d, nil
}

func (d *Device) UnitID() uint8 {
	return d.unitID
}

func (d *Device) Inverter() *sim.Inverter {
	return d.inverter
}

// Bank is the register store the Modbus transport serves.
func (d *Device) Bank() *sungrow_modbus.RegisterBank {
	return d.bank
}

// resolveBindings maps each telemetry quantity to its register
// descriptor. Cumulative-energy registers intentionally mirror the
// instantaneous active power; they are approximations, not true kWh
// integrators.
func (d *Device) resolveBindings() []telemetryBinding {
	inv := d.inverter
	gen := inv.Generator()

	sources := []struct {
		name string
		read func() float64
	}{
		{sungrow_modbus.RegNominalActivePower, inv.RatedCapacityKW},
		{sungrow_modbus.RegDailyYieldsPower, func() float64 {
			return inv.Monitoring().ActivePower
		}},
		{sungrow_modbus.RegTotalYieldsPower, func() float64 {
			return inv.Monitoring().ActivePower
		}},
		{sungrow_modbus.RegTotalRunningTime, func() float64 {
			return d.runningSeconds / 3600.0
		}},
		{sungrow_modbus.RegInternalTemperature, gen.Temperature},
		{sungrow_modbus.RegTotalApparentPower, func() float64 {
			m := inv.Monitoring()
			return math.Hypot(m.ActivePower, m.ReactivePower) * 1000.0
		}},
		{sungrow_modbus.RegMPPT1Voltage, func() float64 {
			return gen.Monitoring().Voltage
		}},
		{sungrow_modbus.RegMPPT1Current, func() float64 {
			return gen.Monitoring().Current
		}},
		{sungrow_modbus.RegTotalDCPower, func() float64 {
			return inv.Monitoring().InputPower * 1000.0
		}},
		{sungrow_modbus.RegACLineVoltageAB, func() float64 {
			return inv.Monitoring().OutputVoltage
		}},
		{sungrow_modbus.RegACLineVoltageBC, func() float64 {
			return inv.Monitoring().OutputVoltage
		}},
		{sungrow_modbus.RegACLineVoltageCA, func() float64 {
			return inv.Monitoring().OutputVoltage
		}},
		{sungrow_modbus.RegPhaseACurrent, func() float64 {
			return inv.Monitoring().OutputCurrent
		}},
		{sungrow_modbus.RegPhaseBCurrent, func() float64 {
			return inv.Monitoring().OutputCurrent
		}},
		{sungrow_modbus.RegPhaseCCurrent, func() float64 {
			return inv.Monitoring().OutputCurrent
		}},
		{sungrow_modbus.RegTotalActivePower, func() float64 {
			return inv.Monitoring().ActivePower * 1000.0
		}},
		{sungrow_modbus.RegTotalReactivePower, func() float64 {
			return inv.Monitoring().ReactivePower * 1000.0
		}},
		{sungrow_modbus.RegPowerFactor, func() float64 {
			return inv.Monitoring().PowerFactor
		}},
		{sungrow_modbus.RegGridFrequency, func() float64 {
			return inv.Monitoring().Frequency
		}},
		{sungrow_modbus.RegWorkState1, func() float64 {
			if inv.IsOn() {
				return float64(sungrow_modbus.RawWorkStateRun)
			}
			return float64(sungrow_modbus.RawWorkStateStop)
		}},
	}

	bindings := make([]telemetryBinding, 0, len(sources))
	for _, src := range sources {
		descriptor, err := d.table.Lookup(src.name)
		if err != nil {
			d.logger.Debug("telemetry quantity not in register table, skipping",
				zap.String("name", src.name))
			continue
		}
		bindings = append(bindings, telemetryBinding{descriptor: descriptor, read: src.read})
	}
	return bindings
}

// commandPower writes the start/stop holding register. All control
// paths funnel through the holding registers so register contents and
// inverter state never disagree for more than one tick.
func (d *Device) commandPower(on bool) error {
	descriptor, err := d.table.Lookup(sungrow_modbus.RegStartStop)
	if err != nil {
		return err
	}
	symbol := sungrow_modbus.SymbolStop
	if on {
		symbol = sungrow_modbus.SymbolStart
	}
	return d.bank.WriteSymbol(descriptor, symbol)
}

func (d *Device) commandControlMode(mode sim.ControlMode) error {
	descriptor, err := d.table.Lookup(sungrow_modbus.RegPowerLimitationSwitch)
	if err != nil {
		return err
	}
	symbol := sungrow_modbus.SymbolMPPT
	if mode == sim.ControlModePControl {
		symbol = sungrow_modbus.SymbolPowerControl
	}
	return d.bank.WriteSymbol(descriptor, symbol)
}

func (d *Device) commandPControlPercent(percent float64) error {
	if percent < 0.0 || percent > 100.0 {
		return fmt.Errorf("%w: %v", sim.ErrInvalidPercent, percent)
	}
	descriptor, err := d.table.Lookup(sungrow_modbus.RegPowerLimitationSetting)
	if err != nil {
		return err
	}
	return d.bank.WriteValue(descriptor, percent)
}

// resolveControls binds each writable control register present in the
// table and records its current content as the applied baseline, so a
// fresh device does not replay register defaults over its inverter.
func (d *Device) resolveControls() []*controlBinding {
	specs := []struct {
		name  string
		apply func(*sungrow_modbus.RegisterDescriptor, []uint16)
	}{
		{sungrow_modbus.RegStartStop, d.applyStartStop},
		{sungrow_modbus.RegPowerLimitationSwitch, d.applyControlMode},
		{sungrow_modbus.RegPowerLimitationSetting, d.applyPControlPercent},
	}

	controls := make([]*controlBinding, 0, len(specs))
	for _, spec := range specs {
		descriptor, err := d.table.Lookup(spec.name)
		if err != nil {
			d.logger.Debug("control register not in register table, skipping",
				zap.String("name", spec.name))
			continue
		}
		words, err := d.bank.ReadWords(descriptor.Class, descriptor.Address, descriptor.WordCount())
		if err != nil {
			continue
		}
		controls = append(controls, &controlBinding{
			descriptor: descriptor,
			lastWords:  words,
			apply:      spec.apply,
		})
	}
	return controls
}

// ApplyControls applies every control register whose content changed
// since it was last applied. Called at the start of every tick so a
// master's write takes effect within one tick interval, exactly once.
// Unrecognized raw values are reported and ignored; they never coerce
// the inverter state.
func (d *Device) ApplyControls() {
	for _, c := range d.controls {
		words, err := d.bank.ReadWords(c.descriptor.Class, c.descriptor.Address, c.descriptor.WordCount())
		if err != nil {
			continue
		}
		if slices.Equal(words, c.lastWords) {
			continue
		}
		c.lastWords = words
		c.apply(c.descriptor, words)
	}
}

func (d *Device) applyStartStop(descriptor *sungrow_modbus.RegisterDescriptor, words []uint16) {
	symbol, err := sungrow_modbus.DecodeSymbol(descriptor, words)
	switch {
	case err != nil:
		d.logger.Warn("unrecognized start/stop register value", zap.Error(err))
	case symbol == sungrow_modbus.SymbolStart:
		d.inverter.TurnOn()
	case symbol == sungrow_modbus.SymbolStop:
		d.inverter.TurnOff()
	}
}

func (d *Device) applyControlMode(descriptor *sungrow_modbus.RegisterDescriptor, words []uint16) {
	symbol, err := sungrow_modbus.DecodeSymbol(descriptor, words)
	switch {
	case err != nil:
		d.logger.Warn("unrecognized control mode register value", zap.Error(err))
	case symbol == sungrow_modbus.SymbolPowerControl:
		d.inverter.SetControlMode(sim.ControlModePControl)
	case symbol == sungrow_modbus.SymbolMPPT:
		d.inverter.SetControlMode(sim.ControlModeMPPT)
	}
}

func (d *Device) applyPControlPercent(descriptor *sungrow_modbus.RegisterDescriptor, words []uint16) {
	percent, err := sungrow_modbus.Decode(descriptor, words)
	if err != nil {
		d.logger.Warn("cannot decode power limitation setting", zap.Error(err))
		return
	}
	if err := d.inverter.SetPControlPercent(percent); err != nil {
		d.logger.Warn("rejected power limitation setting", zap.Error(err))
	}
}

// PublishTelemetry encodes every bound quantity into the input
// registers. Accumulates running time while the inverter is on;
// elapsedSeconds is the tick interval.
func (d *Device) PublishTelemetry(elapsedSeconds float64) {
	if d.inverter.IsOn() {
		d.runningSeconds += elapsedSeconds
	}
	for _, b := range d.bindings {
		words, err := sungrow_modbus.Encode(b.descriptor, b.read())
		if err != nil {
			d.logger.Warn("cannot encode telemetry",
				zap.String("register", b.descriptor.Name), zap.Error(err))
			continue
		}
		if err := d.bank.WriteWords(b.descriptor.Class, b.descriptor.Address, words); err != nil {
			d.logger.Warn("cannot store telemetry",
				zap.String("register", b.descriptor.Name), zap.Error(err))
		}
	}
}
