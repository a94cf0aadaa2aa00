package actor

import (
	"fmt"
	"time"

	"github.com/dcarrero/pvplant2modbus/internal/adapter/modbusd"
	"github.com/dcarrero/pvplant2modbus/internal/core/domain"
	"github.com/dcarrero/pvplant2modbus/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// ModbusServerActor owns the slave-side Modbus endpoint lifecycle. The
// listener itself serves requests on its own goroutines straight from
// the register banks; the actor only starts it, stops it and answers
// status queries.
type ModbusServerActor struct {
	behavior actor.Behavior
	stash    *actorutil.Stash

	server *modbusd.Server
	url    string

	listening bool

	logger *zap.Logger
}

type serverStartResult struct {
	err error
}

func NewModbusServerActor(server *modbusd.Server, url string, logger *zap.Logger) *ModbusServerActor {
	act := &ModbusServerActor{
		server:   server,
		url:      url,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger(domain.ACTOR_ID_MODBUS, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *ModbusServerActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *ModbusServerActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("modbus@starting started")

		actorutil.NewBackgroundTaskNoError(ctx, func() *serverStartResult {
			return &serverStartResult{err: state.server.Start()}
		}).WithTimeout(10 * time.Second).Recover(func(err error) serverStartResult {
			return serverStartResult{err: err}
		}).PipeTo(ctx.Self())
	case serverStartResult:
		if msg.err != nil {
			state.logger.Error("modbus@starting listen failed", zap.Error(msg.err))
			panic(msg.err)
		}
		state.listening = true
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.stop()
	default:
		state.logger.Debug("modbus@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *ModbusServerActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("modbus@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MODBUS,
			Healthy: state.listening,
			State:   "listening",
		})
	case domain.GetModbusStatusRequest:
		state.logger.Debug("modbus@default GetModbusStatusRequest")
		actorutil.ForRequest(msg).Respond(ctx, domain.GetModbusStatusResponse{
			Listening: state.listening,
			URL:       state.url,
		})
	case *actor.Restarting:
		state.stop()
	case *actor.Stopping:
		state.stop()
	default:
		state.logger.Debug("modbus@default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *ModbusServerActor) stop() {
	if !state.listening {
		return
	}
	state.listening = false
	if err := state.server.Stop(); err != nil {
		state.logger.Error("modbus: stop failed", zap.Error(err))
	}
}
