package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/CristiGvl/picoFanCtl/api"
	"github.com/CristiGvl/picoFanCtl/internal/config"
	"github.com/CristiGvl/picoFanCtl/internal/fan"
	"github.com/CristiGvl/picoFanCtl/internal/gpu"
	"github.com/CristiGvl/picoFanCtl/internal/temps"
	"github.com/CristiGvl/picoFanCtl/internal/thermal"
)

type backend struct {
	source thermal.TemperatureSource
	sink   thermal.ActuatorSink
	device string
}

// openGPIO is swapped in tests.
var openGPIO = func(pin int) (thermal.ActuatorSink, error) {
	g, err := fan.OpenGPIO(pin)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func openBackend(cfg config.Config) (backend, error) {
	switch cfg.Backend {
	case config.BackendNvidia:
		d := gpu.NewNvidiaDevice(cfg.GPUID)
		return backend{source: d, sink: d, device: fmt.Sprintf("gpu%d", cfg.GPUID)}, nil
	case config.BackendHwmon:
		return backend{
			source: temps.NewSensorSource(cfg.Sensor),
			sink:   fan.NewPWMActuator(cfg.PWMPath),
			device: cfg.PWMPath,
		}, nil
	case config.BackendGPIO:
		sink, err := openGPIO(cfg.GPIOPin)
		if err != nil {
			return backend{}, err
		}
		return backend{
			source: temps.NewSensorSource(cfg.Sensor),
			sink:   sink,
			device: fmt.Sprintf("gpio%d", cfg.GPIOPin),
		}, nil
	}
	return backend{}, fmt.Errorf("unknown backend %q", cfg.Backend)
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}

// startAPI serves the status API in the background and returns its shutdown.
func startAPI(logger *slog.Logger, bind string, opts api.Options) func() {
	server := api.NewServer(opts)
	go func() {
		if err := server.Start(bind); err != nil {
			logger.Error("api server stopped", "err", err)
		}
	}()
	logger.Info("serving status api", "bind", bind)
	return func() {
		if err := server.Shutdown(); err != nil {
			logger.Error("api server shutdown", "err", err)
		}
	}
}
