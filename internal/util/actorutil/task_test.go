package actorutil

import (
	"fmt"
	"testing"

	"github.com/dcarrero/pvplant2modbus/internal/core/domain"
	"github.com/dcarrero/pvplant2modbus/internal/mqtt"

	"github.com/stretchr/testify/assert"
)

func TestBackgroundTaskRunsOnCallerGoroutine(t *testing.T) {

	assert := assert.New(t)

	var got int
	NewBackgroundTask(nil, func() (*int, error) {
		v := 42
		return &v, nil
	}).OnSuccess(func(v int) {
		got = v
	}).Run()

	// Run evaluates synchronously; the hook fired before it returned
	assert.Equal(42, got)
}

func TestBackgroundTaskRecover(t *testing.T) {

	assert := assert.New(t)

	var got int
	NewBackgroundTask(nil, func() (*int, error) {
		return nil, fmt.Errorf("boom")
	}).Recover(func(error) int {
		return -1
	}).OnSuccess(func(v int) {
		got = v
	}).Run()

	assert.Equal(-1, got)
}

func TestParsedMQTTCommandEnvironmentBroadcasts(t *testing.T) {

	assert := assert.New(t)

	cmd, err := ParsedMQTTCommandToCommand(mqtt.ParsedMQTTCommand{
		DeviceId: domain.INPUT_NUMBER_ID_IRRADIANCE,
		Payload:  "750",
	})
	assert.NoError(err)
	irr, ok := cmd.(domain.SetIrradianceRequest)
	assert.True(ok)
	assert.Equal(domain.InverterAll, irr.Index)
	assert.Equal(750.0, irr.Irradiance)

	cmd, err = ParsedMQTTCommandToCommand(mqtt.ParsedMQTTCommand{
		DeviceId: domain.INPUT_NUMBER_ID_TEMPERATURE,
		Payload:  "31.5",
	})
	assert.NoError(err)
	temp, ok := cmd.(domain.SetTemperatureRequest)
	assert.True(ok)
	assert.Equal(domain.InverterAll, temp.Index)
	assert.Equal(31.5, temp.Temperature)
}
