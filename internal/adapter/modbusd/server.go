package modbusd

import (
	"time"

	"github.com/dcarrero/pvplant2modbus/internal/core/device"
	"github.com/dcarrero/pvplant2modbus/pkg/sungrow_modbus"

	"github.com/simonvetter/modbus"
	"go.uber.org/zap"
)

// ServerConfig configures the slave-side Modbus endpoint. The
// underlying library only serves Modbus TCP, so URL is always of the
// form tcp://host:port.
type ServerConfig struct {
	URL        string
	MaxClients uint
	Timeout    time.Duration
}

// Server exposes the fleet over Modbus. A transport fault is reported
// to the operator but never stops the simulation; the fleet keeps
// ticking with no master attached.
type Server struct {
	server *modbus.ModbusServer
	logger *zap.Logger
	url    string
}

func NewServer(cfg ServerConfig, fleet *device.Fleet, table *sungrow_modbus.Table, logger *zap.Logger) (*Server, error) {
	handler := NewHandler(fleet, table, logger)

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	maxClients := cfg.MaxClients
	if maxClients == 0 {
		maxClients = 5
	}
	server, err := modbus.NewServer(&modbus.ServerConfiguration{
		URL:        cfg.URL,
		Timeout:    timeout,
		MaxClients: maxClients,
	}, handler)
	if err != nil {
		return nil, err
	}
	return &Server{
		server: server,
		logger: logger.With(zap.String("adapter", "modbus")),
		url:    cfg.URL,
	}, nil
}

func (s *Server) Start() error {
	if err := s.server.Start(); err != nil {
		return err
	}
	s.logger.Info("modbus server listening", zap.String("url", s.url))
	return nil
}

func (s *Server) Stop() error {
	s.logger.Info("modbus server stopping")
	return s.server.Stop()
}
