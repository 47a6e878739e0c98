package api

import (
	"context"
	"time"

	"github.com/CristiGvl/picoFanCtl/internal/thermal"
	"github.com/gofiber/fiber/v2"
)

const readTimeout = 10 * time.Second

type curveResponse struct {
	Points     []thermal.CurvePoint `json:"points"`
	Floor      int                  `json:"floor_percent"`
	Ceiling    int                  `json:"ceiling_percent"`
	Hysteresis int                  `json:"hysteresis_celsius"`
	Smoothing  bool                 `json:"smoothing"`
	MaxStep    int                  `json:"max_step_percent"`
	DwellSecs  float64              `json:"dwell_seconds"`
}

func unavailable(c *fiber.Ctx, what string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": what + " not available"})
}

func (s *Server) getStatus(c *fiber.Ctx) error {
	if s.opts.Status == nil {
		return unavailable(c, "controller")
	}
	return c.JSON(s.opts.Status.Snapshot())
}

func (s *Server) getCurve(c *fiber.Ctx) error {
	if s.opts.Status == nil {
		return unavailable(c, "controller")
	}
	settings := s.opts.Status.Settings()
	return c.JSON(curveResponse{
		Points:     s.opts.Status.Curve().Points(),
		Floor:      settings.Floor,
		Ceiling:    settings.Ceiling,
		Hysteresis: settings.Hysteresis,
		Smoothing:  settings.Smoothing,
		MaxStep:    settings.MaxStep,
		DwellSecs:  settings.Dwell.Seconds(),
	})
}

// Temperature endpoint
func (s *Server) getTemps(c *fiber.Ctx) error {
	if s.opts.Temps == nil {
		return unavailable(c, "temperature sensors")
	}
	ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
	defer cancel()

	info, err := s.opts.Temps.GetInfo(ctx)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(info)
}

// GPU endpoint
func (s *Server) getGPU(c *fiber.Ctx) error {
	if s.opts.GPU == nil {
		return unavailable(c, "gpu")
	}
	ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
	defer cancel()

	info, err := s.opts.GPU.GetInfo(ctx)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(info)
}

// Fan endpoint
func (s *Server) getFans(c *fiber.Ctx) error {
	if s.opts.Fans == nil {
		return unavailable(c, "fan listing")
	}
	ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
	defer cancel()

	fans, err := s.opts.Fans.GetFans(ctx)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fans)
}
