package events

import (
	. "github.com/dcarrero/pvplant2modbus/internal/core/domain"
	"github.com/dcarrero/pvplant2modbus/internal/core/sim"
)

func TotalPowerToUpdateEvents(tp *sim.TotalPower) []any {
	var events []any

	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_PLANT_ACTIVE_POWER,
		},
		Value:    tp.TotalActivePowerKW,
		Decimals: 2,
	})
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_PLANT_REACTIVE_POWER,
		},
		Value:    tp.TotalReactivePowerKVA,
		Decimals: 2,
	})
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_PLANT_UTILIZATION,
		},
		Value:    tp.UtilizationPercent,
		Decimals: 1,
	})
	events = append(events, BinarySensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_PLANT_PRODUCING,
		},
		Value: tp.TotalActivePowerKW > 0,
	})

	return events
}

func PlantEnergyToUpdateEvents(dailyKWh, totalKWh float64) []any {
	var events []any

	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_PLANT_DAILY_ENERGY,
		},
		Value:    dailyKWh,
		Decimals: 3,
	})
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_PLANT_TOTAL_ENERGY,
		},
		Value:    totalKWh,
		Decimals: 3,
	})

	return events
}

func InverterStatusToUpdateEvents(index int, st *sim.InverterStatus) []any {
	var events []any

	// AC active power
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: InverterActivePowerSensorId(index),
		},
		Value:    st.Monitoring.ActivePower,
		Decimals: 2,
	})
	// on/off switch state
	events = append(events, SwitchSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: InverterPowerSwitchId(index),
		},
		Value: st.IsOn,
	})

	return events
}

func GeneratorStatusToUpdateEvents(index int, st *sim.PVGeneratorStatus) []any {
	var events []any

	// control mode
	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: InverterControlModeSensorId(index),
		},
		Value: string(st.ControlMode),
	})
	// P control ratio
	events = append(events, InputNumberSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: InverterPControlNumberId(index),
		},
		Value:    st.PControlPercent,
		Decimals: 0,
	})

	return events
}

func EnvironmentToUpdateEvents(irradiance, temperature float64) []any {
	var events []any

	events = append(events, InputNumberSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: INPUT_NUMBER_ID_IRRADIANCE,
		},
		Value:    irradiance,
		Decimals: 1,
	})
	events = append(events, InputNumberSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: INPUT_NUMBER_ID_TEMPERATURE,
		},
		Value:    temperature,
		Decimals: 1,
	})

	return events
}
