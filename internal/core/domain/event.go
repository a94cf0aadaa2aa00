package domain

import "fmt"

// SensorUpdateEvent is a plant observation published on the event
// stream, one per sensor id. The MQTT adapter subscribes and turns
// each event into a state topic publish; sensor ids map 1:1 to the
// discovery entities in the mqtt package.
type SensorUpdateEvent interface {
	SensorUpdateEvent() string
	SensorId() string
}

type SensorUpdateEventMixIn struct {
	Id string
}

func (e SensorUpdateEventMixIn) SensorUpdateEvent() string {
	return fmt.Sprintf("%T", e)
}

func (e SensorUpdateEventMixIn) SensorId() string {
	return e.Id
}

// FloatSensorUpdateEvent carries a numeric reading, such as plant
// active power or accumulated energy. Decimals bounds the rendered
// precision so MQTT payloads stay stable between samples.
type FloatSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value    float64
	Decimals uint
}

// BinarySensorUpdateEvent carries a read-only yes/no observation,
// such as whether the plant is currently producing.
type BinarySensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

// SwitchSensorUpdateEvent reports the state of a controllable switch,
// such as an inverter's on/off state.
type SwitchSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

// TextSensorUpdateEvent carries an enumerated string, such as a
// generator's control mode.
type TextSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value string
}

// BridgeStateUpdateEvent reports simulator availability on the MQTT
// bridge topic.
type BridgeStateUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

// InputNumberSensorUpdateEvent echoes the current value of a
// writable number, such as irradiance or the P control percent.
type InputNumberSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value    float64
	Decimals uint
}
