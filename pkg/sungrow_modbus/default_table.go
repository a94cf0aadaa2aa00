package sungrow_modbus

// control state raw values
const (
	RawInverterStart    = 0xCF
	RawInverterStop     = 0xCE
	RawPowerControlMode = 0xAA
	RawMPPTMode         = 0x55
)

// control state labels
const (
	SymbolStart        = "start"
	SymbolStop         = "stop"
	SymbolPowerControl = "p_control"
	SymbolMPPT         = "mppt"
)

// work_state_1 values
const (
	RawWorkStateRun  = 0x0
	RawWorkStateStop = 0x8000
)

// well-known descriptor names
const (
	RegStartStop              = "start_stop"
	RegPowerLimitationSwitch  = "power_limitation_switch"
	RegPowerLimitationSetting = "power_limitation_setting"
	RegActivePowerSetpoint    = "active_power_regulation_setpoint"
	RegReactivePowerSetpoint  = "reactive_power_regulation_setpoint"
	RegPowerFactorSetpoint    = "power_factor_setpoint"
	RegNominalActivePower     = "nominal_active_power"
	RegDailyYieldsPower       = "daily_yields_power"
	RegTotalYieldsPower       = "total_yields_power"
	RegTotalRunningTime       = "total_running_time"
	RegInternalTemperature    = "internal_temperature"
	RegTotalApparentPower     = "total_apparent_power"
	RegMPPT1Voltage           = "mppt1_voltage"
	RegMPPT1Current           = "mppt1_current"
	RegMPPT2Voltage           = "mppt2_voltage"
	RegMPPT2Current           = "mppt2_current"
	RegMPPT3Voltage           = "mppt3_voltage"
	RegMPPT3Current           = "mppt3_current"
	RegTotalDCPower           = "total_dc_power"
	RegACLineVoltageAB        = "ac_line_voltage_ab"
	RegACLineVoltageBC        = "ac_line_voltage_bc"
	RegACLineVoltageCA        = "ac_line_voltage_ca"
	RegPhaseACurrent          = "phase_a_current"
	RegPhaseBCurrent          = "phase_b_current"
	RegPhaseCCurrent          = "phase_c_current"
	RegTotalActivePower       = "total_active_power"
	RegTotalReactivePower     = "total_reactive_power"
	RegPowerFactor            = "power_factor"
	RegGridFrequency          = "grid_frequency"
	RegWorkState1             = "work_state_1"
	RegWorkState2             = "work_state_2"
)

// DefaultTable returns the built-in register map, modeled on the
// Sungrow inverter Modbus RTU protocol. Used whenever no external
// register map file is configured.
func DefaultTable() *Table {
	t, err := NewTable(defaultDescriptors())
	if err != nil {
		// the built-in table is validated by tests; an error here is
		// a programming bug
		panic(err)
	}
	return t
}

func defaultDescriptors() []RegisterDescriptor {
	return []RegisterDescriptor{
		// control registers (holding, read/write)
		{
			Name: RegStartStop, Class: ClassHolding, Address: 5006,
			Width: U16, Scale: 1, Default: RawInverterStop,
			Description: "inverter start/stop (0xCF: start, 0xCE: stop)",
			SymbolicValues: map[string]int64{
				SymbolStart: RawInverterStart,
				SymbolStop:  RawInverterStop,
			},
		},
		{
			Name: RegPowerLimitationSwitch, Class: ClassHolding, Address: 5007,
			Width: U16, Scale: 1, Default: RawMPPTMode,
			Description: "control mode switch (0xAA: P control, 0x55: MPPT)",
			SymbolicValues: map[string]int64{
				SymbolPowerControl: RawPowerControlMode,
				SymbolMPPT:         RawMPPTMode,
			},
		},
		{
			Name: RegPowerLimitationSetting, Class: ClassHolding, Address: 5008,
			Width: U16, Scale: 0.1, Default: 1000,
			Description: "P control output ratio (0-1000, scale 0.1%)",
			ValidRange:  &RawRange{Min: 0, Max: 1000},
		},
		{
			Name: RegActivePowerSetpoint, Class: ClassHolding, Address: 5077,
			Width: U32, Scale: 1, Default: 0,
			Description: "active power regulation setpoint (W)",
		},
		{
			Name: RegReactivePowerSetpoint, Class: ClassHolding, Address: 5079,
			Width: S32, Scale: 1, Default: 0,
			Description: "reactive power regulation setpoint (Var)",
		},
		{
			Name: RegPowerFactorSetpoint, Class: ClassHolding, Address: 5125,
			Width: S16, Scale: 0.001, Default: 1000,
			Description: "power factor setpoint (scale 0.001)",
			ValidRange:  &RawRange{Min: -1000, Max: 1000},
		},

		// monitoring registers (input, read only)
		{
			Name: RegNominalActivePower, Class: ClassInput, Address: 5001,
			Width: U16, Scale: 0.1,
			Description: "nominal active power (kW)",
		},
		{
			Name: RegDailyYieldsPower, Class: ClassInput, Address: 5003,
			Width: U16, Scale: 0.1,
			Description: "daily yields (kWh)",
		},
		{
			Name: RegTotalYieldsPower, Class: ClassInput, Address: 5004,
			Width: U32, Scale: 1,
			Description: "total yields (kWh)",
		},
		{
			Name: RegTotalRunningTime, Class: ClassInput, Address: 5006,
			Width: U32, Scale: 1,
			Description: "total running time (h)",
		},
		{
			Name: RegInternalTemperature, Class: ClassInput, Address: 5008,
			Width: S16, Scale: 0.1,
			Description: "internal temperature (deg C)",
		},
		{
			Name: RegTotalApparentPower, Class: ClassInput, Address: 5009,
			Width: U32, Scale: 1,
			Description: "total apparent power (VA)",
		},
		{
			Name: RegMPPT1Voltage, Class: ClassInput, Address: 5011,
			Width: U16, Scale: 0.1,
			Description: "MPPT 1 voltage (V)",
		},
		{
			Name: RegMPPT1Current, Class: ClassInput, Address: 5012,
			Width: U16, Scale: 0.1,
			Description: "MPPT 1 current (A)",
		},
		{
			Name: RegMPPT2Voltage, Class: ClassInput, Address: 5013,
			Width: U16, Scale: 0.1,
			Description: "MPPT 2 voltage (V)",
		},
		{
			Name: RegMPPT2Current, Class: ClassInput, Address: 5014,
			Width: U16, Scale: 0.1,
			Description: "MPPT 2 current (A)",
		},
		{
			Name: RegMPPT3Voltage, Class: ClassInput, Address: 5015,
			Width: U16, Scale: 0.1,
			Description: "MPPT 3 voltage (V)",
		},
		{
			Name: RegMPPT3Current, Class: ClassInput, Address: 5016,
			Width: U16, Scale: 0.1,
			Description: "MPPT 3 current (A)",
		},
		{
			Name: RegTotalDCPower, Class: ClassInput, Address: 5017,
			Width: U32, Scale: 1,
			Description: "total DC power (W)",
		},
		{
			Name: RegACLineVoltageAB, Class: ClassInput, Address: 5019,
			Width: U16, Scale: 0.1,
			Description: "A-B line voltage (V)",
		},
		{
			Name: RegACLineVoltageBC, Class: ClassInput, Address: 5020,
			Width: U16, Scale: 0.1,
			Description: "B-C line voltage (V)",
		},
		{
			Name: RegACLineVoltageCA, Class: ClassInput, Address: 5021,
			Width: U16, Scale: 0.1,
			Description: "C-A line voltage (V)",
		},
		{
			Name: RegPhaseACurrent, Class: ClassInput, Address: 5022,
			Width: U16, Scale: 0.1,
			Description: "phase A current (A)",
		},
		{
			Name: RegPhaseBCurrent, Class: ClassInput, Address: 5023,
			Width: U16, Scale: 0.1,
			Description: "phase B current (A)",
		},
		{
			Name: RegPhaseCCurrent, Class: ClassInput, Address: 5024,
			Width: U16, Scale: 0.1,
			Description: "phase C current (A)",
		},
		{
			Name: RegTotalActivePower, Class: ClassInput, Address: 5031,
			Width: S32, Scale: 1,
			Description: "total active power (W)",
		},
		{
			Name: RegTotalReactivePower, Class: ClassInput, Address: 5033,
			Width: S32, Scale: 1,
			Description: "total reactive power (Var)",
		},
		{
			Name: RegPowerFactor, Class: ClassInput, Address: 5035,
			Width: S16, Scale: 0.001,
			Description: "power factor (scale 0.001, >0 leading, <0 lagging)",
		},
		{
			Name: RegGridFrequency, Class: ClassInput, Address: 5036,
			Width: U16, Scale: 0.1,
			Description: "grid frequency (Hz)",
		},
		{
			Name: RegWorkState1, Class: ClassInput, Address: 5038,
			Width: U16, Scale: 1,
			Description: "work state 1 (0x0: run, 0x8000: stop)",
		},
		{
			Name: RegWorkState2, Class: ClassInput, Address: 5081,
			Width: U32, Scale: 1,
			Description: "work state 2",
		},
	}
}
