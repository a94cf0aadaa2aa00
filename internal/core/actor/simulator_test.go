package actor

import (
	"math/rand"
	"testing"
	"time"

	"github.com/dcarrero/pvplant2modbus/internal/config"
	"github.com/dcarrero/pvplant2modbus/internal/core/device"
	"github.com/dcarrero/pvplant2modbus/internal/core/domain"
	"github.com/dcarrero/pvplant2modbus/internal/core/sim"
	"github.com/dcarrero/pvplant2modbus/internal/util"
	"github.com/dcarrero/pvplant2modbus/pkg/sungrow_modbus"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testFleet(t *testing.T, cfg config.Config) *device.Fleet {
	plant := sim.NewPlant(sim.PlantConfig{
		PlantID:             cfg.Plant.Id,
		TotalCapacityMVA:    cfg.Plant.TotalCapacityMVA,
		NumInverters:        cfg.Plant.NumInverters,
		InverterCapacityKVA: cfg.Plant.InverterCapacityKVA,
	}, rand.New(rand.NewSource(1)), zap.NewNop())
	fleet, err := device.NewFleet(plant, sungrow_modbus.DefaultTable(), uint8(cfg.Modbus.BaseUnitId),
		time.Duration(cfg.Simulation.TickIntervalMillis)*time.Millisecond, zap.NewNop())
	require.NoError(t, err)
	return fleet
}

func spawnSimulator(t *testing.T, cfg config.Config) (*actor.ActorSystem, *actor.PID, *device.Fleet) {
	as := actor.NewActorSystem()
	fleet := testFleet(t, cfg)
	es := &eventstream.EventStream{}

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewSimulatorActor(&cfg, fleet, es, zap.NewNop())
	})
	pid, err := as.Root.SpawnNamed(props, domain.ACTOR_ID_SIMULATOR)
	require.NoError(t, err)
	return as, pid, fleet
}

func TestSimulatorActorTicksAndReportsStatus(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	as, pid, _ := spawnSimulator(t, cfg)
	defer as.Shutdown()

	// let a few ticks run
	time.Sleep(500 * time.Millisecond)

	res, err := as.Root.RequestFuture(pid, domain.GetPlantStatusRequest{}, 2*time.Second).Result()
	assert.NoError(err)
	resp, ok := res.(domain.GetPlantStatusResponse)
	assert.True(ok)
	assert.False(resp.HasResponseError())
	assert.Equal("PLANT_01", resp.Status.PlantID)
	assert.Len(resp.Status.Inverters, 4)

	// boot powered every inverter on; production should be flowing
	assert.Greater(resp.Status.TotalPower.TotalActivePowerKW, 0.0)
	assert.Greater(resp.DailyEnergyKWh, 0.0)
}

func TestSimulatorActorControlRequests(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	as, pid, fleet := spawnSimulator(t, cfg)
	defer as.Shutdown()

	res, err := as.Root.RequestFuture(pid, domain.SetInverterPowerRequest{Index: 0, On: false}, 2*time.Second).Result()
	assert.NoError(err)
	powerResp, ok := res.(domain.SetInverterPowerResponse)
	assert.True(ok)
	assert.False(powerResp.HasResponseError())

	// the register write applies on the next tick
	time.Sleep(500 * time.Millisecond)
	dev, _ := fleet.Device(1)
	assert.False(dev.Inverter().IsOn())

	res, err = as.Root.RequestFuture(pid, domain.SetPControlPercentRequest{Index: domain.InverterAll, Percent: 50.0}, 2*time.Second).Result()
	assert.NoError(err)
	percentResp, ok := res.(domain.SetPControlPercentResponse)
	assert.True(ok)
	assert.False(percentResp.HasResponseError())

	// invalid requests surface the error
	res, err = as.Root.RequestFuture(pid, domain.SetPControlPercentRequest{Index: 0, Percent: 150.0}, 2*time.Second).Result()
	assert.NoError(err)
	percentResp, ok = res.(domain.SetPControlPercentResponse)
	assert.True(ok)
	assert.ErrorIs(percentResp.GetResponseError(), sim.ErrInvalidPercent)

	res, err = as.Root.RequestFuture(pid, domain.SetInverterPowerRequest{Index: 9, On: true}, 2*time.Second).Result()
	assert.NoError(err)
	powerResp, ok = res.(domain.SetInverterPowerResponse)
	assert.True(ok)
	assert.ErrorIs(powerResp.GetResponseError(), sim.ErrIndexOutOfRange)
}

func TestSimulatorActorTimeseries(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	as, pid, _ := spawnSimulator(t, cfg)
	defer as.Shutdown()

	// at least two 1 Hz samples
	time.Sleep(2500 * time.Millisecond)

	res, err := as.Root.RequestFuture(pid, domain.GetTimeseriesRequest{}, 2*time.Second).Result()
	assert.NoError(err)
	tsResp, ok := res.(domain.GetTimeseriesResponse)
	assert.True(ok)
	assert.GreaterOrEqual(len(tsResp.Points), 2)
	assert.Greater(tsResp.Points[0].PowerKW, 0.0)

	res, err = as.Root.RequestFuture(pid, domain.GetHourlyEnergyRequest{}, 2*time.Second).Result()
	assert.NoError(err)
	hourResp, ok := res.(domain.GetHourlyEnergyResponse)
	assert.True(ok)
	assert.GreaterOrEqual(len(hourResp.Buckets), 1)
	assert.Greater(hourResp.Buckets[0].EnergyKWh, 0.0)
}

func TestSimulatorActorEnvironmentAndDailyReset(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	as, pid, _ := spawnSimulator(t, cfg)
	defer as.Shutdown()

	res, err := as.Root.RequestFuture(pid, domain.SetIrradianceRequest{Index: domain.InverterAll, Irradiance: -50.0}, 2*time.Second).Result()
	assert.NoError(err)
	irrResp, ok := res.(domain.SetIrradianceResponse)
	assert.True(ok)
	// negative irradiance clamps to zero
	assert.Equal(0.0, irrResp.Irradiance)

	time.Sleep(500 * time.Millisecond)
	res, err = as.Root.RequestFuture(pid, domain.GetPlantStatusRequest{}, 2*time.Second).Result()
	assert.NoError(err)
	statusResp, ok := res.(domain.GetPlantStatusResponse)
	assert.True(ok)
	assert.InDelta(0.0, statusResp.Status.TotalPower.TotalActivePowerKW, 1e-9)

	as.Root.Send(pid, domain.ResetDailyEnergy{})
	time.Sleep(200 * time.Millisecond)

	res, err = as.Root.RequestFuture(pid, domain.GetTotalPowerRequest{}, 2*time.Second).Result()
	assert.NoError(err)
	totalResp, ok := res.(domain.GetTotalPowerResponse)
	assert.True(ok)
	assert.Equal(0.0, totalResp.DailyEnergyKWh)
}

func TestSimulatorActorPerInverterEnvironment(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	as, pid, fleet := spawnSimulator(t, cfg)
	defer as.Shutdown()

	res, err := as.Root.RequestFuture(pid, domain.SetIrradianceRequest{Index: 1, Irradiance: 500.0}, 2*time.Second).Result()
	assert.NoError(err)
	irrResp, ok := res.(domain.SetIrradianceResponse)
	assert.True(ok)
	assert.False(irrResp.HasResponseError())

	res, err = as.Root.RequestFuture(pid, domain.SetTemperatureRequest{Index: 1, Temperature: 45.0}, 2*time.Second).Result()
	assert.NoError(err)
	tempResp, ok := res.(domain.SetTemperatureResponse)
	assert.True(ok)
	assert.False(tempResp.HasResponseError())

	inv1, _ := fleet.Plant().Inverter(1)
	assert.Equal(500.0, inv1.Generator().BaseIrradiance())
	assert.Equal(45.0, inv1.Generator().BaseTemperature())
	inv0, _ := fleet.Plant().Inverter(0)
	assert.Equal(1000.0, inv0.Generator().BaseIrradiance())

	// out-of-range indexes surface the error
	res, err = as.Root.RequestFuture(pid, domain.SetIrradianceRequest{Index: 9, Irradiance: 500.0}, 2*time.Second).Result()
	assert.NoError(err)
	irrResp, ok = res.(domain.SetIrradianceResponse)
	assert.True(ok)
	assert.ErrorIs(irrResp.GetResponseError(), sim.ErrIndexOutOfRange)

	res, err = as.Root.RequestFuture(pid, domain.SetTemperatureRequest{Index: -2, Temperature: 30.0}, 2*time.Second).Result()
	assert.NoError(err)
	tempResp, ok = res.(domain.SetTemperatureResponse)
	assert.True(ok)
	assert.ErrorIs(tempResp.GetResponseError(), sim.ErrIndexOutOfRange)
}

func TestSimulatorHourlyEnergyScalesWithSampleGap(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	fleet := testFleet(t, cfg)
	fleet.Plant().TurnOnAll()
	fleet.Tick()

	act := NewSimulatorActor(&cfg, fleet, &eventstream.EventStream{}, zap.NewNop())
	base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	act.lastSample = base

	// a 5 s gap must contribute 5 s worth of energy, not 1 s
	act.sample(base.Add(5 * time.Second))

	tp := fleet.Plant().TotalPower()
	var total float64
	for _, kwh := range act.hourly {
		total += kwh
	}
	assert.InDelta(tp.TotalActivePowerKW*5.0/3600.0, total, 1e-9)
	assert.Equal(base.Add(5*time.Second), act.lastSample)
}
