package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adactor "github.com/dcarrero/pvplant2modbus/internal/adapter/actor"
	"github.com/dcarrero/pvplant2modbus/internal/adapter/modbusd"
	"github.com/dcarrero/pvplant2modbus/internal/config"
	"github.com/dcarrero/pvplant2modbus/internal/core/actor"
	"github.com/dcarrero/pvplant2modbus/internal/core/device"
	"github.com/dcarrero/pvplant2modbus/internal/core/domain"
	"github.com/dcarrero/pvplant2modbus/internal/core/sim"
	"github.com/dcarrero/pvplant2modbus/internal/server"
	"github.com/dcarrero/pvplant2modbus/internal/util/actorutil"
	"github.com/dcarrero/pvplant2modbus/pkg/sungrow_modbus"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/carlmjohnson/versioninfo"
	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())

	logger.Info("pvplant2modbus", zap.String("version", versioninfo.Short()))

	// build the simulated plant and its register banks
	fleet, table, err := buildFleet(cfg, logger)
	if err != nil {
		logger.Error("fleet init error", zap.Error(err))
		return
	}

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	defer logger.Sync()

	// init Modbus slave actor provider
	modbusProv, err := modbusActorProvider(cfg, fleet, table, logger)
	if err != nil {
		panic(err)
	}

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterActor(*cfg, fleet, modbusProv, mqttActorProvider(cfg, logger), logger)
	})
	pid, err := ctx.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		return
	}

	// daily energy counters reset at midnight
	sched, err := startDailyResetScheduler(ctx, pid)
	if err != nil {
		logger.Error("scheduler init error", zap.Error(err))
		return
	}

	server := server.NewServer(*cfg, ctx, pid)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	sched.Stop()
	ctx.Stop(pid)
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => PVSIM_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("PVSIM_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("pvsim")
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check bounds
	if cfg.Plant.NumInverters <= 0 {
		return nil, errors.New("config param plant.num_inverters should be > 0")
	}
	if cfg.Plant.InverterCapacityKVA <= 0 {
		return nil, errors.New("config param plant.inverter_capacity_kva should be > 0")
	}
	if cfg.Simulation.TickIntervalMillis < 10 {
		return nil, errors.New("config param simulation.tick_interval_millis should be >= 10")
	}
	if cfg.Modbus.BaseUnitId < 1 || cfg.Modbus.BaseUnitId > 247 {
		return nil, errors.New("config param modbus.base_unit_id should be in [1, 247]")
	}
	if cfg.Modbus.BaseUnitId+uint(cfg.Plant.NumInverters)-1 > 247 {
		return nil, errors.New("unit ids exceed 247. lower modbus.base_unit_id or plant.num_inverters")
	}

	return &cfg, nil
}

func buildFleet(cfg *config.Config, logger *zap.Logger) (*device.Fleet, *sungrow_modbus.Table, error) {

	plant := sim.NewPlant(sim.PlantConfig{
		PlantID:             cfg.Plant.Id,
		TotalCapacityMVA:    cfg.Plant.TotalCapacityMVA,
		NumInverters:        cfg.Plant.NumInverters,
		InverterCapacityKVA: cfg.Plant.InverterCapacityKVA,
	}, rand.New(rand.NewSource(time.Now().UnixNano())), logger)

	table := sungrow_modbus.DefaultTable()
	if cfg.Simulation.RegisterMapFile != "" {
		var err error
		table, err = sungrow_modbus.LoadTable(cfg.Simulation.RegisterMapFile)
		if err != nil {
			return nil, nil, err
		}
	}

	fleet, err := device.NewFleet(plant, table, uint8(cfg.Modbus.BaseUnitId),
		time.Duration(cfg.Simulation.TickIntervalMillis)*time.Millisecond, logger)
	if err != nil {
		return nil, nil, err
	}
	return fleet, table, nil
}

func modbusActorProvider(cfg *config.Config, fleet *device.Fleet, table *sungrow_modbus.Table, logger *zap.Logger) (actor.ModbusServerActorProvider, error) {

	srv, err := modbusd.NewServer(modbusd.ServerConfig{
		URL:        cfg.Modbus.URL,
		MaxClients: cfg.Modbus.MaxClients,
		Timeout:    time.Duration(cfg.Modbus.TimeoutMillis) * time.Millisecond,
	}, fleet, table, logger)
	if err != nil {
		return nil, err
	}

	return func() *adactor.ModbusServerActor {
		return adactor.NewModbusServerActor(srv, cfg.Modbus.URL, logger)
	}, nil
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(es *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, es, logger)
	}
}

func startDailyResetScheduler(ctx *pactor.RootContext, master *pactor.PID) (quartz.Scheduler, error) {

	trigger, err := quartz.NewCronTrigger("0 0 0 * * *")
	if err != nil {
		return nil, err
	}

	resetJob := job.NewFunctionJob(func(_ context.Context) (bool, error) {
		ctx.Send(master, domain.ResetDailyEnergy{})
		return true, nil
	})

	sched := quartz.NewStdScheduler()
	sched.Start(context.Background())
	err = sched.ScheduleJob(quartz.NewJobDetail(resetJob, quartz.NewJobKey("daily_energy_reset")), trigger)
	if err != nil {
		return nil, err
	}

	return sched, nil
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("plant.id", "PLANT_01")
	viper.SetDefault("plant.total_capacity_mva", 1.0)
	viper.SetDefault("plant.num_inverters", 4)
	viper.SetDefault("plant.inverter_capacity_kva", 250.0)
	viper.SetDefault("modbus.url", "tcp://0.0.0.0:5020")
	viper.SetDefault("modbus.base_unit_id", 1)
	viper.SetDefault("modbus.max_clients", 5)
	viper.SetDefault("modbus.timeout_millis", 30000)
	viper.SetDefault("simulation.tick_interval_millis", 1000)
	viper.SetDefault("simulation.start_on", true)
	viper.SetDefault("mqtt.enable", false)
	viper.SetDefault("mqtt.host", "localhost")
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.base_topic", "pvplant")
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
