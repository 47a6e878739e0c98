package api

import (
	"net/http"
	"time"

	"github.com/CristiGvl/picoFanCtl/internal/daemon"
	"github.com/CristiGvl/picoFanCtl/internal/fan"
	"github.com/CristiGvl/picoFanCtl/internal/gpu"
	"github.com/CristiGvl/picoFanCtl/internal/platform"
	"github.com/CristiGvl/picoFanCtl/internal/temps"
	"github.com/CristiGvl/picoFanCtl/internal/thermal"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

// StatusProvider exposes the running controller.
type StatusProvider interface {
	Snapshot() daemon.Snapshot
	Curve() thermal.Curve
	Settings() thermal.Settings
}

// Options wires the server. Nil readers disable their endpoints.
type Options struct {
	Status  StatusProvider
	GPU     gpu.Reader
	Temps   temps.Reader
	Fans    fan.Lister
	Metrics http.Handler
	// Quiet disables request logging.
	Quiet bool
}

// Server represents the API server
type Server struct {
	app  *fiber.App
	opts Options
}

// NewServer creates the status server.
func NewServer(opts Options) *Server {
	app := fiber.New(fiber.Config{
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		IdleTimeout:           120 * time.Second,
		ServerHeader:          "picofanctl",
		AppName:               "picofanctl",
		DisableStartupMessage: true,
	})

	if !opts.Quiet {
		app.Use(logger.New())
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,OPTIONS",
		MaxAge:       86400,
	}))

	s := &Server{app: app, opts: opts}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.app.Group("/api")

	api.Get("/health", s.healthCheck)
	api.Get("/status", s.getStatus)
	api.Get("/curve", s.getCurve)

	// host readings
	api.Get("/temps", s.getTemps)
	api.Get("/gpu", s.getGPU)
	api.Get("/fan", s.getFans)

	if s.opts.Metrics != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(s.opts.Metrics))
	}
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App { return s.app }

// Start starts the API server
func (s *Server) Start(address string) error {
	return s.app.Listen(address)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) healthCheck(c *fiber.Ctx) error {
	body := fiber.Map{
		"status":    "ok",
		"platform":  platform.GetOS(),
		"timestamp": time.Now().Unix(),
	}
	if s.opts.Status != nil && s.opts.Status.Snapshot().FailSafe {
		body["status"] = "fail_safe"
		return c.Status(fiber.StatusServiceUnavailable).JSON(body)
	}
	return c.JSON(body)
}
