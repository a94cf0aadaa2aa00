package actorutil

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/dcarrero/pvplant2modbus/internal/core/domain"
	"github.com/dcarrero/pvplant2modbus/internal/mqtt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
	"go.uber.org/zap"
)

func PipeToSelfWithRecover(ctx actor.Context, future *actor.Future, mapFn func(error) any) {
	ctx.ReenterAfter(future, func(msg any, err error) {
		if err != nil {
			ctx.Send(ctx.Self(), mapFn(err))
			return
		}
		ctx.Send(ctx.Self(), msg)
	})
}

func NewActorSystemWithZapLogger(logger *zap.Logger) *actor.ActorSystem {
	stdOutLogger := zap.NewStdLog(logger)

	var slogLevel slog.Level = slog.LevelInfo

	switch logger.Level() {
	case zap.DebugLevel:
		slogLevel = slog.LevelDebug
	case zap.InfoLevel:
		slogLevel = slog.LevelInfo
	case zap.WarnLevel:
		slogLevel = slog.LevelWarn
	case zap.ErrorLevel:
		slogLevel = slog.LevelError
	case zap.PanicLevel:
		slogLevel = slog.LevelError
	}

	return actor.NewActorSystem(actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {
		return slog.New(tint.NewHandler(stdOutLogger.Writer(), &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.DateTime,
		}))
	}))
}

func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	return logger.With(zap.String("actor", actorName))
}

// ParsedMQTTCommandToCommand translates a parsed MQTT command into a
// simulator control request. Unknown device ids and malformed payloads
// map to (nil, nil) so the caller can drop them silently.
func ParsedMQTTCommandToCommand(cmd mqtt.ParsedMQTTCommand) (domain.ActorRequest, error) {
	if index, ok := domain.ParseInverterPowerSwitchId(cmd.DeviceId); ok {
		return domain.SetInverterPowerRequest{
			Index: index,
			On:    cmd.Payload == mqtt.MQTT_PAYLOAD_ON,
		}, nil
	}
	if index, ok := domain.ParseInverterPControlNumberId(cmd.DeviceId); ok {
		percent, err := strconv.ParseFloat(cmd.Payload, 64)
		if err != nil {
			return nil, err
		}
		return domain.SetPControlPercentRequest{
			Index:   index,
			Percent: percent,
		}, nil
	}
	if cmd.DeviceId == domain.INPUT_NUMBER_ID_IRRADIANCE {
		value, err := strconv.ParseFloat(cmd.Payload, 64)
		if err != nil {
			return nil, err
		}
		return domain.SetIrradianceRequest{Index: domain.InverterAll, Irradiance: value}, nil
	}
	if cmd.DeviceId == domain.INPUT_NUMBER_ID_TEMPERATURE {
		value, err := strconv.ParseFloat(cmd.Payload, 64)
		if err != nil {
			return nil, err
		}
		return domain.SetTemperatureRequest{Index: domain.InverterAll, Temperature: value}, nil
	}
	return nil, nil
}
