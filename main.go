package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/CristiGvl/picoFanCtl/api"
	"github.com/CristiGvl/picoFanCtl/internal/config"
	"github.com/CristiGvl/picoFanCtl/internal/daemon"
	"github.com/CristiGvl/picoFanCtl/internal/fan"
	"github.com/CristiGvl/picoFanCtl/internal/gpu"
	"github.com/CristiGvl/picoFanCtl/internal/lock"
	"github.com/CristiGvl/picoFanCtl/internal/platform"
	"github.com/CristiGvl/picoFanCtl/internal/telemetry"
	"github.com/CristiGvl/picoFanCtl/internal/temps"
	"github.com/CristiGvl/picoFanCtl/internal/thermal"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var (
	configFile string
	logLevel   string
	apiBind    string
	runOnce    bool
)

var rootCmd = &cobra.Command{
	Use:   "picofanctl",
	Short: "Drive a fan from a temperature sensor using a configurable curve.",
	Long: `picofanctl reads a temperature sensor every global_delay seconds, smooths the
readings, picks a fan level from the configured curve and commands the fan.
NVIDIA GPUs, hwmon PWM channels and GPIO switched fans are supported.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVarP(&configFile, "file", "f", "", "configuration file (default: $PICOFANCTL_CONFIG, /etc or ~/.config)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	rootCmd.Flags().StringVar(&apiBind, "api", "", "serve the status API on this address, overriding [api]")
	rootCmd.Flags().BoolVar(&runOnce, "once", false, "run a single control cycle, print the snapshot and exit")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		atexit.Fatal(err)
	}
	atexit.Exit(0)
}

func run(cmd *cobra.Command, _ []string) error {
	if err := config.LoadEnv(); err != nil {
		log.Printf("Ignoring .env file: %v", err)
	}

	path, err := config.ResolvePath(configFile)
	if err != nil {
		return err
	}
	cfg, created, err := config.LoadOrCreate(path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	if created {
		log.Printf("Wrote default configuration to %s", path)
	}

	logger, err := newLogger(logLevel)
	if err != nil {
		return err
	}

	if err := platform.ValidateBackend(cfg.Backend); err != nil {
		return err
	}

	if !runOnce {
		guard, err := lock.Acquire(lock.DefaultPath)
		if err != nil {
			return err
		}
		atexit.Register(func() { _ = guard.Release() })
	}

	b, err := openBackend(cfg)
	if err != nil {
		return err
	}
	curve, err := cfg.Curve()
	if err != nil {
		return err
	}
	ctrl, err := thermal.New(cfg.Settings(), curve, b.source, b.sink)
	if err != nil {
		return err
	}

	metrics := telemetry.NewMetrics()
	reporters := []daemon.Reporter{metrics}
	if cfg.MQTT.Enable && !runOnce {
		pub, err := telemetry.NewMQTTPublisher(cfg.MQTT)
		if err != nil {
			logger.Warn("mqtt disabled", "err", err)
		} else {
			atexit.Register(pub.Close)
			reporters = append(reporters, pub)
		}
	}

	svc := daemon.New(daemon.Config{
		Device:        b.device,
		Interval:      cfg.TickInterval(),
		FailSafeAfter: cfg.FailSafeAfter,
	}, ctrl, b.sink, logger, reporters...)

	if runOnce {
		_, tickErr := svc.Tick(cmd.Context())
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(svc.Snapshot()); err != nil {
			return err
		}
		return tickErr
	}

	// Hand the fan back on any exit path that goes through atexit.
	atexit.Register(func() { _ = svc.Release(context.Background()) })

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bind := cfg.API.Bind
	if apiBind != "" {
		bind = apiBind
	}
	if cfg.API.Enable || apiBind != "" {
		if !platform.IsSupported() {
			logger.Warn("host readings are not available on this platform", "os", platform.GetOS())
		}
		stopAPI := startAPI(logger, bind, api.Options{
			Status:  svc,
			GPU:     gpu.NewReader(),
			Temps:   temps.NewReader(),
			Fans:    fan.NewLister(),
			Metrics: metrics.Handler(),
		})
		defer stopAPI()
	}

	logger.Info("starting picofanctl", "device", b.device, "config", path)
	return svc.Run(ctx)
}
