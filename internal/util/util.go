package util

import (
	"github.com/dcarrero/pvplant2modbus/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Plant: config.PlantConfig{
			Id:                  "PLANT_01",
			TotalCapacityMVA:    1.0,
			NumInverters:        4,
			InverterCapacityKVA: 250.0,
		},
		Modbus: config.ModbusConfig{
			URL:        "tcp://127.0.0.1:15502",
			BaseUnitId: 1,
			MaxClients: 5,
		},
		Simulation: config.SimulationConfig{
			TickIntervalMillis: 100,
			StartOn:            true,
		},
		MQTT: config.MQTTConfig{
			Enable:    false,
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "pvplant",
		},
		Port: 8080,
	}
}
