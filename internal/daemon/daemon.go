// Package daemon schedules a thermal.Controller: it owns the tick loop,
// backs off while the sensor fails, forces the fan to a safe level when
// readings stay unavailable and hands fan control back on shutdown.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/CristiGvl/picoFanCtl/internal/thermal"
)

// Acquirer is implemented by sinks that must be switched to manual control
// before the first write.
type Acquirer interface {
	Acquire(ctx context.Context) error
}

// Releaser is implemented by sinks that can hand control back to the
// firmware or driver.
type Releaser interface {
	Release(ctx context.Context) error
}

// Reporter receives a snapshot after every tick.
type Reporter interface {
	Report(ctx context.Context, snap Snapshot) error
}

// Error kinds recorded in Snapshot.ErrorKind.
const (
	ErrorSensor        = "sensor"
	ErrorActuatorRead  = "actuator_read"
	ErrorActuatorWrite = "actuator_write"
)

// Snapshot is the externally visible state of a Service.
type Snapshot struct {
	Device    string             `json:"device"`
	State     thermal.State      `json:"state"`
	LastTick  thermal.TickResult `json:"last_tick"`
	Phase     thermal.Phase      `json:"phase"`
	Ticks     uint64             `json:"ticks"`
	Failures  int                `json:"consecutive_failures"`
	FailSafe  bool               `json:"fail_safe"`
	LastError string             `json:"last_error,omitempty"`
	ErrorKind string             `json:"error_kind,omitempty"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Config tunes the scheduler.
type Config struct {
	// Device names the managed device in logs and snapshots.
	Device string
	// Interval is the tick period.
	Interval time.Duration
	// IOTimeout bounds each tick's sensor and actuator calls.
	IOTimeout time.Duration
	// FailSafeAfter is the number of consecutive read failures after which
	// SafeLevel is written. Zero disables the fail-safe.
	FailSafeAfter int
	// SafeLevel is written on fail-safe and on panic.
	SafeLevel int
	// Backoff applies while reads fail. MinInterval defaults to Interval.
	Backoff Backoff
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 2 * time.Second
	}
	if c.IOTimeout <= 0 {
		c.IOTimeout = 10 * time.Second
	}
	if c.FailSafeAfter < 0 {
		c.FailSafeAfter = 0
	}
	if c.SafeLevel <= 0 || c.SafeLevel > 100 {
		c.SafeLevel = 100
	}
	if c.Backoff.MinInterval <= 0 {
		c.Backoff.MinInterval = c.Interval
	}
	if c.Backoff.MaxInterval <= 0 {
		c.Backoff.MaxInterval = 30 * time.Second
	}
	return c
}

// Service runs one controller.
type Service struct {
	cfg       Config
	ctrl      *thermal.Controller
	sink      thermal.ActuatorSink
	log       *slog.Logger
	reporters []Reporter
	now       func() time.Time

	// mu serializes ticks; the controller is not safe for concurrent use.
	mu       sync.Mutex
	failures int
	failSafe bool

	snapMu sync.RWMutex
	snap   Snapshot

	releaseOnce sync.Once
	releaseErr  error

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New wires a controller to its sink. sink must be the actuator the
// controller was built with.
func New(cfg Config, ctrl *thermal.Controller, sink thermal.ActuatorSink, logger *slog.Logger, reporters ...Reporter) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &Service{
		cfg:       cfg,
		ctrl:      ctrl,
		sink:      sink,
		log:       logger.With("device", cfg.Device),
		reporters: reporters,
		now:       time.Now,
		snap:      Snapshot{Device: cfg.Device, State: ctrl.State(), Phase: thermal.PhaseIdle},
		stopCh:    make(chan struct{}),
	}
}

// Settings returns the controller settings.
func (s *Service) Settings() thermal.Settings { return s.ctrl.Settings() }

// Curve returns the controller curve. Curves are immutable.
func (s *Service) Curve() thermal.Curve { return s.ctrl.Curve() }

// Snapshot returns the state after the last tick.
func (s *Service) Snapshot() Snapshot {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snap
}

// Stop ends Run. It is safe to call more than once.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Run takes manual control of the sink and ticks until ctx is done or Stop
// is called, then releases the sink. A panic in the loop writes SafeLevel
// before propagating.
func (s *Service) Run(ctx context.Context) error {
	if a, ok := s.sink.(Acquirer); ok {
		actx, cancel := context.WithTimeout(ctx, s.cfg.IOTimeout)
		err := a.Acquire(actx)
		cancel()
		if err != nil {
			return fmt.Errorf("acquire fan control: %w", err)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("control loop panicked, forcing safe level", "panic", r, "level", s.cfg.SafeLevel)
			s.writeSafeLevel(context.Background())
			panic(r)
		}
		if err := s.Release(context.Background()); err != nil {
			s.log.Error("release fan control", "err", err)
		}
	}()

	s.log.Info("control loop started", "interval", s.cfg.Interval, "fail_safe_after", s.cfg.FailSafeAfter)
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("control loop stopped", "reason", ctx.Err())
			return nil
		case <-s.stopCh:
			s.log.Info("control loop stopped")
			return nil
		case <-timer.C:
		}

		_, _ = s.Tick(ctx)
		timer.Reset(s.nextWait())
	}
}

// Tick runs one control cycle, applies the fail-safe policy and notifies
// reporters. It returns the controller's result and error.
func (s *Service) Tick(ctx context.Context) (thermal.TickResult, error) {
	s.mu.Lock()
	tctx, cancel := context.WithTimeout(ctx, s.cfg.IOTimeout)
	res, err := s.ctrl.Tick(tctx)
	cancel()

	kind := errorKind(err)
	switch kind {
	case ErrorSensor, ErrorActuatorRead:
		s.failures++
		s.log.Warn("read failed", "err", err, "consecutive", s.failures)
		if s.cfg.FailSafeAfter > 0 && s.failures >= s.cfg.FailSafeAfter && !s.failSafe {
			s.log.Error("readings unavailable, forcing safe level", "level", s.cfg.SafeLevel, "failures", s.failures)
			s.failSafe = s.writeSafeLevel(ctx)
		}
	case ErrorActuatorWrite:
		s.failures = 0
		s.log.Error("fan command failed", "err", err, "level", res.Commanded)
	default:
		if s.failSafe {
			s.log.Info("readings recovered, resuming control")
		}
		s.failures, s.failSafe = 0, false
		if res.Actuated {
			s.log.Info("fan level changed", "from", res.Current, "to", res.Commanded,
				"target", res.Target, "estimate", res.Estimate)
		} else if res.Suppressed {
			s.log.Debug("fan change held back by dwell time", "target", res.Commanded, "current", res.Current)
		}
	}

	now := s.now()
	snap := Snapshot{
		Device:    s.cfg.Device,
		State:     s.ctrl.State(),
		LastTick:  res,
		Phase:     s.ctrl.Phase(now),
		Failures:  s.failures,
		FailSafe:  s.failSafe,
		ErrorKind: kind,
		UpdatedAt: now,
	}
	if err != nil {
		snap.LastError = err.Error()
	}
	s.mu.Unlock()

	s.snapMu.Lock()
	snap.Ticks = s.snap.Ticks + 1
	s.snap = snap
	s.snapMu.Unlock()

	for _, r := range s.reporters {
		if rerr := r.Report(ctx, snap); rerr != nil {
			s.log.Warn("report failed", "err", rerr)
		}
	}
	return res, err
}

// Release hands control of the sink back, once.
func (s *Service) Release(ctx context.Context) error {
	s.releaseOnce.Do(func() {
		r, ok := s.sink.(Releaser)
		if !ok {
			return
		}
		rctx, cancel := context.WithTimeout(ctx, s.cfg.IOTimeout)
		defer cancel()
		s.releaseErr = r.Release(rctx)
		if s.releaseErr == nil {
			s.log.Info("fan control released")
		}
	})
	return s.releaseErr
}

func (s *Service) nextWait() time.Duration {
	s.mu.Lock()
	failures := s.failures
	s.mu.Unlock()
	return max(s.cfg.Interval, s.cfg.Backoff.Interval(failures))
}

func (s *Service) writeSafeLevel(ctx context.Context) bool {
	wctx, cancel := context.WithTimeout(ctx, s.cfg.IOTimeout)
	defer cancel()
	if err := s.sink.WriteLevel(wctx, s.cfg.SafeLevel); err != nil {
		s.log.Error("write safe level", "err", err)
		return false
	}
	return true
}

func errorKind(err error) string {
	var (
		sensorErr *thermal.SensorReadError
		readErr   *thermal.ActuatorReadError
		writeErr  *thermal.ActuatorWriteError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &sensorErr):
		return ErrorSensor
	case errors.As(err, &readErr):
		return ErrorActuatorRead
	case errors.As(err, &writeErr):
		return ErrorActuatorWrite
	}
	return "unknown"
}
