package domain

import (
	"fmt"
	"regexp"
	"strconv"
)

// Plant-level sensor ids published on the event stream.
const (
	SENSOR_ID_PLANT_ACTIVE_POWER   = "plant_active_power"
	SENSOR_ID_PLANT_REACTIVE_POWER = "plant_reactive_power"
	SENSOR_ID_PLANT_UTILIZATION    = "plant_utilization"
	SENSOR_ID_PLANT_DAILY_ENERGY   = "plant_daily_energy"
	SENSOR_ID_PLANT_TOTAL_ENERGY   = "plant_total_energy"
	SENSOR_ID_PLANT_PRODUCING      = "plant_producing"
)

// Environment input numbers, settable over MQTT.
const (
	INPUT_NUMBER_ID_IRRADIANCE  = "plant_irradiance"
	INPUT_NUMBER_ID_TEMPERATURE = "plant_temperature"
)

// Per-inverter ids carry the 0-based inverter index. "all" fans a
// command out to the whole plant.
func InverterPowerSwitchId(index int) string {
	return fmt.Sprintf("inverter_%d_power", index)
}

func InverterPControlNumberId(index int) string {
	return fmt.Sprintf("inverter_%d_p_control", index)
}

func InverterActivePowerSensorId(index int) string {
	return fmt.Sprintf("inverter_%d_active_power", index)
}

func InverterControlModeSensorId(index int) string {
	return fmt.Sprintf("inverter_%d_control_mode", index)
}

var (
	inverterPowerSwitchRegexp    = regexp.MustCompile(`^inverter_(\d+|all)_power$`)
	inverterPControlNumberRegexp = regexp.MustCompile(`^inverter_(\d+|all)_p_control$`)
)

func parseInverterDeviceId(re *regexp.Regexp, deviceId string) (int, bool) {
	matches := re.FindStringSubmatch(deviceId)
	if len(matches) != 2 {
		return 0, false
	}
	if matches[1] == "all" {
		return InverterAll, true
	}
	index, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, false
	}
	return index, true
}

// ParseInverterPowerSwitchId extracts the inverter index from a power
// switch device id.
func ParseInverterPowerSwitchId(deviceId string) (int, bool) {
	return parseInverterDeviceId(inverterPowerSwitchRegexp, deviceId)
}

// ParseInverterPControlNumberId extracts the inverter index from a P
// control input number device id.
func ParseInverterPControlNumberId(deviceId string) (int, bool) {
	return parseInverterDeviceId(inverterPControlNumberRegexp, deviceId)
}
