package actor

import (
	"errors"
	"fmt"
	"log"
	"time"

	adactor "github.com/dcarrero/pvplant2modbus/internal/adapter/actor"
	"github.com/dcarrero/pvplant2modbus/internal/config"
	"github.com/dcarrero/pvplant2modbus/internal/core/device"
	"github.com/dcarrero/pvplant2modbus/internal/core/domain"
	. "github.com/dcarrero/pvplant2modbus/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

type MQTTActorProvider func(*eventstream.EventStream) *adactor.MQTTActor

type ModbusServerActorProvider func() *adactor.ModbusServerActor

// MasterActor supervises the simulator, the Modbus endpoint and the
// optional MQTT bridge. It routes control and query requests to the
// simulator and fans health checks out to every child.
type MasterActor struct {
	config   config.Config
	fleet    *device.Fleet
	behavior actor.Behavior
	stash    *Stash

	currentHealthCheck  healthCheckResult
	eventStream         *eventstream.EventStream
	simulatorActor      *actor.PID
	modbusActor         *actor.PID
	mqttActor           *actor.PID
	modbusActorProvider ModbusServerActorProvider
	mqttActorProvider   MQTTActorProvider
	logger              *zap.Logger
}

type healthCheckResult struct {
	simulatorActorHealthy bool
	modbusActorHealthy    bool
	mqttActorHealthy      bool
	mqttEnabled           bool
	checksReceived        int
	checksExpected        int
	respondTo             *actor.PID
}

func NewMasterActor(config config.Config, fleet *device.Fleet, modbusActorProvider ModbusServerActorProvider, mqttActorProvider MQTTActorProvider, logger *zap.Logger) *MasterActor {
	act := &MasterActor{
		config:              config,
		fleet:               fleet,
		behavior:            actor.NewBehavior(),
		stash:               &Stash{},
		logger:              ActorLogger(domain.ACTOR_ID_MASTER, logger),
		eventStream:         &eventstream.EventStream{},
		modbusActorProvider: modbusActorProvider,
		mqttActorProvider:   mqttActorProvider,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		state.currentHealthCheck = healthCheckResult{mqttEnabled: state.config.MQTT.Enable}
		state.currentHealthCheck.reset()

		// start Modbus endpoint child
		modbusActorPID, err := state.startModbusActor(ctx)
		if err != nil {
			panic(err)
		}
		state.modbusActor = modbusActorPID

		// start simulator child
		simulatorActorPID, err := state.startSimulatorActor(ctx)
		if err != nil {
			panic(err)
		}
		state.simulatorActor = simulatorActorPID

		// start MQTT child
		if state.config.MQTT.Enable {
			mqttActorPID, err := state.startMQTTActor(ctx)
			if err != nil {
				panic(err)
			}
			state.mqttActor = mqttActorPID
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset()
		state.currentHealthCheck.respondTo = ctx.Sender()
		// simulator request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.simulatorActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_SIMULATOR,
				Healthy: false,
			}
		})
		// Modbus endpoint request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.modbusActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MODBUS,
				Healthy: false,
			}
		})
		// MQTT request
		if state.mqttActor != nil {
			PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
				return domain.ActorHealthResponse{
					Id:      domain.ACTOR_ID_MQTT,
					Healthy: false,
				}
			})
		}

		ctx.SetReceiveTimeout(1 * time.Second)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case domain.GetPlantStatusRequest:
		ctx.Forward(state.simulatorActor)
	case domain.GetTotalPowerRequest:
		ctx.Forward(state.simulatorActor)
	case domain.GetTimeseriesRequest:
		ctx.Forward(state.simulatorActor)
	case domain.GetHourlyEnergyRequest:
		ctx.Forward(state.simulatorActor)
	case domain.SetInverterPowerRequest:
		ctx.Forward(state.simulatorActor)
	case domain.SetControlModeRequest:
		ctx.Forward(state.simulatorActor)
	case domain.SetPControlPercentRequest:
		ctx.Forward(state.simulatorActor)
	case domain.SetIrradianceRequest:
		ctx.Forward(state.simulatorActor)
	case domain.SetTemperatureRequest:
		ctx.Forward(state.simulatorActor)
	case domain.ResetDailyEnergy:
		ctx.Send(state.simulatorActor, msg)
	case domain.GetModbusStatusRequest:
		ctx.Forward(state.modbusActor)
	case adactor.ParsedCommand:
		// translate MQTT command and redirect to the simulator
		state.logger.Debug("master@default parsedCommand", zap.Any("command", msg.Command))
		if msg.Command != nil {
			cmd, err := ParsedMQTTCommandToCommand(*msg.Command)
			if err == nil && cmd != nil {
				ctx.Send(state.simulatorActor, cmd)
			}
		}
	case *actor.Terminated:
		// if the Modbus endpoint fails on boot, terminate
		if msg.Who.Id == fmt.Sprintf("%s/%s", domain.ACTOR_ID_MASTER, domain.ACTOR_ID_MODBUS) {
			state.logger.Error("master@default modbus terminated")
			panic(errors.New("modbus endpoint terminated"))
		}
	default:
		state.logger.Debug("master@default stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// an unresponsive child counts as unhealthy
		state.currentHealthCheck.respond(ctx)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.checksReceived++
		if msg.Healthy {
			switch msg.Id {
			case domain.ACTOR_ID_SIMULATOR:
				state.currentHealthCheck.simulatorActorHealthy = true
			case domain.ACTOR_ID_MODBUS:
				state.currentHealthCheck.modbusActorHealthy = true
			case domain.ACTOR_ID_MQTT:
				state.currentHealthCheck.mqttActorHealthy = true
			}
		}
		if state.currentHealthCheck.allReceived() {

			state.currentHealthCheck.respond(ctx)

			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		} else {
			ctx.SetReceiveTimeout(1 * time.Second)
		}
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterActor) startModbusActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	modbusProps := actor.PropsFromProducer(func() actor.Actor {
		return state.modbusActorProvider()
	}, actor.WithSupervisor(supervisor))
	modbusActorPID, err := ctx.SpawnNamed(modbusProps, domain.ACTOR_ID_MODBUS)
	if err != nil {
		return nil, err
	}

	return modbusActorPID, nil
}

func (state *MasterActor) startSimulatorActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	simulatorProps := actor.PropsFromProducer(func() actor.Actor {
		return NewSimulatorActor(&state.config, state.fleet, state.eventStream, state.logger)
	}, actor.WithSupervisor(supervisor))
	simulatorActorPID, err := ctx.SpawnNamed(simulatorProps, domain.ACTOR_ID_SIMULATOR)
	if err != nil {
		return nil, err
	}

	return simulatorActorPID, nil
}

func (state *MasterActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider(state.eventStream)
	}, actor.WithSupervisor(supervisor))
	mqttActorPID, err := ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
	if err != nil {
		return nil, err
	}

	return mqttActorPID, nil
}

func (state *healthCheckResult) reset() {
	state.simulatorActorHealthy = false
	state.modbusActorHealthy = false
	state.mqttActorHealthy = false
	state.checksReceived = 0
	state.checksExpected = 2
	if state.mqttEnabled {
		state.checksExpected = 3
	}
}

func (state *healthCheckResult) allReceived() bool {
	return state.checksReceived == state.checksExpected
}

func (state *healthCheckResult) allHealthy() bool {
	healthy := state.simulatorActorHealthy && state.modbusActorHealthy
	if state.mqttEnabled {
		healthy = healthy && state.mqttActorHealthy
	}
	return healthy
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: state.allHealthy(),
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
