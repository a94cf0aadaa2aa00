package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dcarrero/pvplant2modbus/internal/core/domain"
	"github.com/dcarrero/pvplant2modbus/internal/core/sim"

	"github.com/carlmjohnson/versioninfo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const requestTimeout = 5 * time.Second

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)

	api := e.Group("/api")
	api.GET("/status", s.StatusHandler)
	api.GET("/timeseries", s.TimeseriesHandler)
	api.GET("/hourly", s.HourlyEnergyHandler)
	api.GET("/modbus/status", s.ModbusStatusHandler)

	api.POST("/inverter/:index/on", s.InverterPowerHandler(true))
	api.POST("/inverter/:index/off", s.InverterPowerHandler(false))
	api.POST("/inverter/:index/control-mode", s.ControlModeHandler)
	api.POST("/inverter/:index/p-control", s.PControlHandler)
	api.POST("/inverter/:index/irradiance", s.IrradianceHandler)
	api.POST("/inverter/:index/temperature", s.TemperatureHandler)

	// plant-level aliases for the environment controls
	api.POST("/environment/irradiance", s.IrradianceHandler)
	api.POST("/environment/temperature", s.TemperatureHandler)

	return e
}

func (s *Server) request(req any) (any, error) {
	return s.rootContext.RequestFuture(s.masterActor, req, requestTimeout).Result()
}

// parseInverterIndex accepts a 0-based index or "all". Routes without
// an index segment address the whole plant.
func parseInverterIndex(c echo.Context) (int, error) {
	param := c.Param("index")
	if param == "" || param == "all" {
		return domain.InverterAll, nil
	}
	index, err := strconv.Atoi(param)
	if err != nil || index < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid inverter index")
	}
	return index, nil
}

func controlErrorStatus(err error) int {
	switch {
	case errors.Is(err, sim.ErrIndexOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, sim.ErrInvalidPercent):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.request(domain.ActorHealthRequest{})
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) StatusHandler(c echo.Context) error {
	res, err := s.request(domain.GetPlantStatusRequest{})
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	resp, ok := res.(domain.GetPlantStatusResponse)
	if !ok || resp.HasResponseError() {
		return echo.NewHTTPError(http.StatusInternalServerError, "status unavailable")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"plant":            resp.Status,
		"daily_energy_kwh": resp.DailyEnergyKWh,
		"total_energy_kwh": resp.TotalEnergyKWh,
		"version":          versioninfo.Short(),
	})
}

func (s *Server) TimeseriesHandler(c echo.Context) error {
	res, err := s.request(domain.GetTimeseriesRequest{})
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	resp, ok := res.(domain.GetTimeseriesResponse)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "timeseries unavailable")
	}
	return c.JSON(http.StatusOK, echo.Map{"points": resp.Points})
}

func (s *Server) HourlyEnergyHandler(c echo.Context) error {
	res, err := s.request(domain.GetHourlyEnergyRequest{})
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	resp, ok := res.(domain.GetHourlyEnergyResponse)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "hourly energy unavailable")
	}
	return c.JSON(http.StatusOK, echo.Map{"hours": resp.Buckets})
}

func (s *Server) ModbusStatusHandler(c echo.Context) error {
	res, err := s.request(domain.GetModbusStatusRequest{})
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	resp, ok := res.(domain.GetModbusStatusResponse)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "modbus status unavailable")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"listening": resp.Listening,
		"url":       resp.URL,
	})
}

func (s *Server) InverterPowerHandler(on bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		index, err := parseInverterIndex(c)
		if err != nil {
			return err
		}
		res, err := s.request(domain.SetInverterPowerRequest{Index: index, On: on})
		if err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		}
		resp, ok := res.(domain.SetInverterPowerResponse)
		if !ok {
			return echo.NewHTTPError(http.StatusInternalServerError, "unexpected response")
		}
		if resp.HasResponseError() {
			return echo.NewHTTPError(controlErrorStatus(resp.GetResponseError()), resp.GetResponseError().Error())
		}
		return c.JSON(http.StatusOK, echo.Map{"on": on})
	}
}

func (s *Server) ControlModeHandler(c echo.Context) error {
	index, err := parseInverterIndex(c)
	if err != nil {
		return err
	}
	var body struct {
		Mode string `json:"mode"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	mode := sim.ControlMode(body.Mode)
	if mode != sim.ControlModeMPPT && mode != sim.ControlModePControl {
		return echo.NewHTTPError(http.StatusBadRequest, "mode must be MPPT or P_CONTROL")
	}
	res, err := s.request(domain.SetControlModeRequest{Index: index, Mode: mode})
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	resp, ok := res.(domain.SetControlModeResponse)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "unexpected response")
	}
	if resp.HasResponseError() {
		return echo.NewHTTPError(controlErrorStatus(resp.GetResponseError()), resp.GetResponseError().Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"mode": mode})
}

func (s *Server) PControlHandler(c echo.Context) error {
	index, err := parseInverterIndex(c)
	if err != nil {
		return err
	}
	var body struct {
		Percent float64 `json:"percent"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	res, err := s.request(domain.SetPControlPercentRequest{Index: index, Percent: body.Percent})
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	resp, ok := res.(domain.SetPControlPercentResponse)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "unexpected response")
	}
	if resp.HasResponseError() {
		return echo.NewHTTPError(controlErrorStatus(resp.GetResponseError()), resp.GetResponseError().Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"percent": body.Percent})
}

func (s *Server) IrradianceHandler(c echo.Context) error {
	index, err := parseInverterIndex(c)
	if err != nil {
		return err
	}
	var body struct {
		Irradiance float64 `json:"irradiance"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	res, err := s.request(domain.SetIrradianceRequest{Index: index, Irradiance: body.Irradiance})
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	resp, ok := res.(domain.SetIrradianceResponse)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "unexpected response")
	}
	if resp.HasResponseError() {
		return echo.NewHTTPError(controlErrorStatus(resp.GetResponseError()), resp.GetResponseError().Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"irradiance": resp.Irradiance})
}

func (s *Server) TemperatureHandler(c echo.Context) error {
	index, err := parseInverterIndex(c)
	if err != nil {
		return err
	}
	var body struct {
		Temperature float64 `json:"temperature"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	res, err := s.request(domain.SetTemperatureRequest{Index: index, Temperature: body.Temperature})
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	resp, ok := res.(domain.SetTemperatureResponse)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "unexpected response")
	}
	if resp.HasResponseError() {
		return echo.NewHTTPError(controlErrorStatus(resp.GetResponseError()), resp.GetResponseError().Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"temperature": resp.Temperature})
}
