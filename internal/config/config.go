package config

import (
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel   zapcore.Level
	Plant      PlantConfig      `mapstructure:"plant"`
	Modbus     ModbusConfig     `mapstructure:"modbus"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	MQTT       MQTTConfig       `mapstructure:"mqtt"`
	Port       uint             `mapstructure:"port"`
	HttpLog    bool             `mapstructure:"http_log"`
}

type PlantConfig struct {
	Id                  string  `mapstructure:"id"`
	TotalCapacityMVA    float64 `mapstructure:"total_capacity_mva"`
	NumInverters        int     `mapstructure:"num_inverters"`
	InverterCapacityKVA float64 `mapstructure:"inverter_capacity_kva"`
}

type ModbusConfig struct {
	// URL of the Modbus TCP listener, tcp://host:port.
	URL           string `mapstructure:"url"`
	BaseUnitId    uint   `mapstructure:"base_unit_id"`
	MaxClients    uint   `mapstructure:"max_clients"`
	TimeoutMillis uint32 `mapstructure:"timeout_millis"`
}

type SimulationConfig struct {
	TickIntervalMillis uint32 `mapstructure:"tick_interval_millis"`
	RegisterMapFile    string `mapstructure:"register_map_file"`
	// StartOn powers every inverter up on boot.
	StartOn bool `mapstructure:"start_on"`
}

type MQTTConfig struct {
	Enable    bool   `mapstructure:"enable"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	BaseTopic string `mapstructure:"base_topic"`
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
