package domain

import (
	"time"

	"github.com/dcarrero/pvplant2modbus/internal/core/sim"
)

const (
	ACTOR_ID_MASTER    = "master"
	ACTOR_ID_SIMULATOR = "simulator"
	ACTOR_ID_MODBUS    = "modbus"
	ACTOR_ID_MQTT      = "mqtt"
)

// InverterAll addresses every inverter in per-inverter control
// requests.
const InverterAll = -1

// TimeseriesPoint is one 1 Hz sample of plant active power.
type TimeseriesPoint struct {
	Timestamp time.Time `json:"timestamp"`
	PowerKW   float64   `json:"power_kw"`
}

// HourlyEnergyBucket is the energy produced during one wall-clock
// hour.
type HourlyEnergyBucket struct {
	Hour      string  `json:"hour"`
	EnergyKWh float64 `json:"energy_kwh"`
}

type GetPlantStatusRequest struct {
	ActorRequestMixIn
}

type GetPlantStatusResponse struct {
	ActorResponseMixIn
	Status         *sim.PlantStatus
	DailyEnergyKWh float64
	TotalEnergyKWh float64
}

type GetTotalPowerRequest struct {
	ActorRequestMixIn
}

type GetTotalPowerResponse struct {
	ActorResponseMixIn
	TotalPower     *sim.TotalPower
	DailyEnergyKWh float64
	TotalEnergyKWh float64
}

type GetTimeseriesRequest struct {
	ActorRequestMixIn
}

type GetTimeseriesResponse struct {
	ActorResponseMixIn
	Points []TimeseriesPoint
}

type GetHourlyEnergyRequest struct {
	ActorRequestMixIn
}

type GetHourlyEnergyResponse struct {
	ActorResponseMixIn
	Buckets []HourlyEnergyBucket
}

// SetInverterPowerRequest turns one inverter (or all of them, with
// Index == InverterAll) on or off. The change is buffered in the
// start/stop holding register and takes effect on the next tick.
type SetInverterPowerRequest struct {
	ActorRequestMixIn
	Index int
	On    bool
}

type SetInverterPowerResponse struct {
	ActorResponseMixIn
}

type SetControlModeRequest struct {
	ActorRequestMixIn
	Index int
	Mode  sim.ControlMode
}

type SetControlModeResponse struct {
	ActorResponseMixIn
}

type SetPControlPercentRequest struct {
	ActorRequestMixIn
	Index   int
	Percent float64
}

type SetPControlPercentResponse struct {
	ActorResponseMixIn
}

// SetIrradianceRequest sets the base irradiance in W/m2 on one
// generator, or on all of them with Index == InverterAll.
type SetIrradianceRequest struct {
	ActorRequestMixIn
	Index      int
	Irradiance float64
}

type SetIrradianceResponse struct {
	ActorResponseMixIn
	Irradiance float64
}

// SetTemperatureRequest sets the base module temperature in degrees C
// on one generator, or on all of them with Index == InverterAll.
type SetTemperatureRequest struct {
	ActorRequestMixIn
	Index       int
	Temperature float64
}

type SetTemperatureResponse struct {
	ActorResponseMixIn
	Temperature float64
}

// ResetDailyEnergy zeroes the daily energy accumulator. Sent by the
// midnight cron job.
type ResetDailyEnergy struct {
}

type GetModbusStatusRequest struct {
	ActorRequestMixIn
}

type GetModbusStatusResponse struct {
	ActorResponseMixIn
	Listening bool
	URL       string
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
