package actor

import (
	"fmt"
	"math"
	"time"

	"github.com/dcarrero/pvplant2modbus/internal/config"
	"github.com/dcarrero/pvplant2modbus/internal/core/device"
	"github.com/dcarrero/pvplant2modbus/internal/core/domain"
	"github.com/dcarrero/pvplant2modbus/internal/core/events"
	"github.com/dcarrero/pvplant2modbus/internal/core/sim"
	. "github.com/dcarrero/pvplant2modbus/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// One hour of 1 Hz samples. Older points fall off the front.
const maxTimeseriesPoints = 3600

const hourlyBucketFormat = "2006-01-02 15:00"

// SimulatorActor owns the fleet. Every mutation of plant state goes
// through its mailbox, so the simulation itself never needs a lock;
// only the register banks are shared with the Modbus transport
// goroutines. Each tick applies buffered control writes, advances the
// physics and refreshes telemetry registers. Once per second the
// plant aggregate is sampled into the timeseries buffer and published
// on the event stream.
type SimulatorActor struct {
	behavior  actor.Behavior
	stash     *Stash
	scheduler *scheduler.TimerScheduler

	config      *config.Config
	fleet       *device.Fleet
	eventStream *eventstream.EventStream

	tickInterval time.Duration
	lastSample   time.Time
	points       []domain.TimeseriesPoint
	hourly       map[string]float64
	hourlyOrder  []string

	logger *zap.Logger
}

type simulatorTick struct {
}

func NewSimulatorActor(config *config.Config, fleet *device.Fleet, eventStream *eventstream.EventStream, logger *zap.Logger) *SimulatorActor {
	act := &SimulatorActor{
		config:       config,
		fleet:        fleet,
		eventStream:  eventStream,
		behavior:     actor.NewBehavior(),
		stash:        &Stash{},
		tickInterval: time.Duration(config.Simulation.TickIntervalMillis) * time.Millisecond,
		hourly:       make(map[string]float64),
		logger:       ActorLogger(domain.ACTOR_ID_SIMULATOR, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *SimulatorActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *SimulatorActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("simulator@starting started")

		// boot powers the fleet through the start/stop registers, like
		// any other control path
		if state.config.Simulation.StartOn {
			if err := state.fleet.CommandPowerAll(true); err != nil {
				state.logger.Error("simulator@starting power on failed", zap.Error(err))
			}
		}

		state.lastSample = time.Now()
		state.scheduler = scheduler.NewTimerScheduler(ctx)
		state.scheduler.RequestOnce(state.tickInterval, ctx.Self(), simulatorTick{})

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
	default:
		state.logger.Debug("simulator@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *SimulatorActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("simulator@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_SIMULATOR,
			Healthy: true,
			State:   "running",
		})
	case simulatorTick:
		state.fleet.Tick()

		if now := time.Now(); now.Sub(state.lastSample) >= time.Second {
			state.sample(now)
		}

		// schedule next tick
		state.scheduler.RequestOnce(state.tickInterval, ctx.Self(), simulatorTick{})
	case domain.GetPlantStatusRequest:
		state.logger.Debug("simulator@default GetPlantStatusRequest")
		status := state.fleet.Plant().Status()
		ForRequest(msg).Respond(ctx, domain.GetPlantStatusResponse{
			Status:         &status,
			DailyEnergyKWh: state.fleet.DailyEnergyKWh(),
			TotalEnergyKWh: state.fleet.TotalEnergyKWh(),
		})
	case domain.GetTotalPowerRequest:
		state.logger.Debug("simulator@default GetTotalPowerRequest")
		tp := state.fleet.Plant().TotalPower()
		ForRequest(msg).Respond(ctx, domain.GetTotalPowerResponse{
			TotalPower:     &tp,
			DailyEnergyKWh: state.fleet.DailyEnergyKWh(),
			TotalEnergyKWh: state.fleet.TotalEnergyKWh(),
		})
	case domain.GetTimeseriesRequest:
		points := make([]domain.TimeseriesPoint, len(state.points))
		copy(points, state.points)
		ForRequest(msg).Respond(ctx, domain.GetTimeseriesResponse{Points: points})
	case domain.GetHourlyEnergyRequest:
		buckets := make([]domain.HourlyEnergyBucket, 0, len(state.hourlyOrder))
		for _, hour := range state.hourlyOrder {
			buckets = append(buckets, domain.HourlyEnergyBucket{
				Hour:      hour,
				EnergyKWh: state.hourly[hour],
			})
		}
		ForRequest(msg).Respond(ctx, domain.GetHourlyEnergyResponse{Buckets: buckets})
	case domain.SetInverterPowerRequest:
		state.logger.Debug("simulator@default SetInverterPowerRequest",
			zap.Int("index", msg.Index), zap.Bool("on", msg.On))
		var err error
		if msg.Index == domain.InverterAll {
			err = state.fleet.CommandPowerAll(msg.On)
		} else {
			err = state.fleet.CommandPower(msg.Index, msg.On)
		}
		ForRequest(msg).Respond(ctx, domain.SetInverterPowerResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
		})
	case domain.SetControlModeRequest:
		state.logger.Debug("simulator@default SetControlModeRequest",
			zap.Int("index", msg.Index), zap.String("mode", string(msg.Mode)))
		var err error
		if msg.Index == domain.InverterAll {
			err = state.fleet.CommandControlModeAll(msg.Mode)
		} else {
			err = state.fleet.CommandControlMode(msg.Index, msg.Mode)
		}
		ForRequest(msg).Respond(ctx, domain.SetControlModeResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
		})
	case domain.SetPControlPercentRequest:
		state.logger.Debug("simulator@default SetPControlPercentRequest",
			zap.Int("index", msg.Index), zap.Float64("percent", msg.Percent))
		var err error
		if msg.Index == domain.InverterAll {
			err = state.fleet.CommandPControlPercentAll(msg.Percent)
		} else {
			err = state.fleet.CommandPControlPercent(msg.Index, msg.Percent)
		}
		ForRequest(msg).Respond(ctx, domain.SetPControlPercentResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
		})
	case domain.SetIrradianceRequest:
		state.logger.Info("simulator@default SetIrradianceRequest",
			zap.Int("index", msg.Index), zap.Float64("irradiance", msg.Irradiance))
		var err error
		if msg.Index == domain.InverterAll {
			state.fleet.Plant().SetIrradianceAll(msg.Irradiance)
		} else {
			err = state.fleet.Plant().SetIrradianceInverter(msg.Index, msg.Irradiance)
		}
		state.publishEnvironment()
		ForRequest(msg).Respond(ctx, domain.SetIrradianceResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
			Irradiance:         math.Max(0.0, msg.Irradiance),
		})
	case domain.SetTemperatureRequest:
		state.logger.Info("simulator@default SetTemperatureRequest",
			zap.Int("index", msg.Index), zap.Float64("temperature", msg.Temperature))
		var err error
		if msg.Index == domain.InverterAll {
			state.fleet.Plant().SetTemperatureAll(msg.Temperature)
		} else {
			err = state.fleet.Plant().SetTemperatureInverter(msg.Index, msg.Temperature)
		}
		state.publishEnvironment()
		ForRequest(msg).Respond(ctx, domain.SetTemperatureResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
			Temperature:        msg.Temperature,
		})
	case domain.ResetDailyEnergy:
		state.fleet.ResetDailyEnergy()
	default:
		state.logger.Debug("simulator@default stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

// sample records one timeseries point and publishes the plant
// aggregate on the event stream. Energy is integrated over the actual
// gap since the previous sample, so ticks slower than 1 Hz still
// account for the full interval.
func (state *SimulatorActor) sample(now time.Time) {
	elapsed := now.Sub(state.lastSample).Seconds()
	state.lastSample = now

	tp := state.fleet.Plant().TotalPower()

	state.points = append(state.points, domain.TimeseriesPoint{
		Timestamp: now,
		PowerKW:   tp.TotalActivePowerKW,
	})
	if len(state.points) > maxTimeseriesPoints {
		state.points = state.points[len(state.points)-maxTimeseriesPoints:]
	}

	// accumulate the elapsed interval's energy into the wall-clock
	// hour bucket
	hour := now.Format(hourlyBucketFormat)
	if _, ok := state.hourly[hour]; !ok {
		state.hourlyOrder = append(state.hourlyOrder, hour)
	}
	state.hourly[hour] += tp.TotalActivePowerKW * elapsed / 3600.0

	for _, ev := range events.TotalPowerToUpdateEvents(&tp) {
		state.eventStream.Publish(ev)
	}
	for _, ev := range events.PlantEnergyToUpdateEvents(state.fleet.DailyEnergyKWh(), state.fleet.TotalEnergyKWh()) {
		state.eventStream.Publish(ev)
	}
	for i, dev := range state.fleet.Devices() {
		invStatus := dev.Inverter().Status()
		for _, ev := range events.InverterStatusToUpdateEvents(i, &invStatus) {
			state.eventStream.Publish(ev)
		}
		genStatus := dev.Inverter().Generator().Status()
		for _, ev := range events.GeneratorStatusToUpdateEvents(i, &genStatus) {
			state.eventStream.Publish(ev)
		}
	}
}

func (state *SimulatorActor) publishEnvironment() {
	gen := state.firstGenerator()
	if gen == nil {
		return
	}
	for _, ev := range events.EnvironmentToUpdateEvents(gen.BaseIrradiance(), gen.BaseTemperature()) {
		state.eventStream.Publish(ev)
	}
}

func (state *SimulatorActor) firstGenerator() *sim.PVGenerator {
	inv, err := state.fleet.Plant().Inverter(0)
	if err != nil {
		return nil
	}
	return inv.Generator()
}
