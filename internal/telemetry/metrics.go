// Package telemetry exports controller snapshots as Prometheus metrics and
// MQTT messages.
package telemetry

import (
	"context"
	"net/http"

	"github.com/CristiGvl/picoFanCtl/internal/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "picofanctl"

// Metrics is a daemon.Reporter backed by its own registry.
type Metrics struct {
	registry *prometheus.Registry

	temperature *prometheus.GaugeVec
	estimate    *prometheus.GaugeVec
	level       *prometheus.GaugeVec
	target      *prometheus.GaugeVec
	failSafe    *prometheus.GaugeVec
	ticks       *prometheus.CounterVec
	errors      *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	gauge := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, []string{"device"})
	}

	m := &Metrics{
		registry:    prometheus.NewRegistry(),
		temperature: gauge("temperature_celsius", "Last raw temperature reading."),
		estimate:    gauge("temperature_estimate_celsius", "Weighted moving average of recent readings."),
		level:       gauge("fan_level_percent", "Fan level observed on the device."),
		target:      gauge("fan_target_percent", "Fan level commanded by the controller."),
		failSafe:    gauge("fail_safe", "1 while the fan is forced to the safe level."),
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Control cycles by outcome.",
		}, []string{"device", "outcome"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Control cycle errors by kind.",
		}, []string{"device", "kind"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.temperature,
		m.estimate,
		m.level,
		m.target,
		m.failSafe,
		m.ticks,
		m.errors,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Report updates the collectors from a snapshot.
func (m *Metrics) Report(_ context.Context, snap daemon.Snapshot) error {
	dev := snap.Device
	m.ticks.WithLabelValues(dev, outcome(snap)).Inc()

	if snap.FailSafe {
		m.failSafe.WithLabelValues(dev).Set(1)
	} else {
		m.failSafe.WithLabelValues(dev).Set(0)
	}

	if snap.ErrorKind != "" {
		m.errors.WithLabelValues(dev, snap.ErrorKind).Inc()
	}
	switch snap.ErrorKind {
	case daemon.ErrorSensor, daemon.ErrorActuatorRead:
		// keep the last good readings
		return nil
	}

	m.temperature.WithLabelValues(dev).Set(float64(snap.State.Temperature))
	m.estimate.WithLabelValues(dev).Set(float64(snap.State.Estimate))
	m.level.WithLabelValues(dev).Set(float64(snap.State.CurrentLevel))
	m.target.WithLabelValues(dev).Set(float64(snap.State.TargetLevel))
	return nil
}

func outcome(snap daemon.Snapshot) string {
	switch {
	case snap.ErrorKind != "":
		return "error"
	case snap.LastTick.Actuated:
		return "actuated"
	case snap.LastTick.Suppressed:
		return "suppressed"
	}
	return "unchanged"
}
