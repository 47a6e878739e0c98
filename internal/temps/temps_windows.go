//go:build windows

package temps

import (
	"context"
	"fmt"

	"github.com/StackExchange/wmi"
)

// WindowsReader reads probes and thermal zones through WMI. Neither class is
// populated on most consumer boards.
type WindowsReader struct{}

func newPlatformReader() Reader {
	return &WindowsReader{}
}

// Win32_TemperatureProbe represents WMI temperature probe data
type Win32_TemperatureProbe struct {
	DeviceID        string
	Name            string
	Description     string
	CurrentReading  *uint32
	NominalReading  *uint32
	MaxReadableHigh *uint32
}

// Win32_PerfRawData_Counters_ThermalZoneInformation represents thermal zone data
type Win32_PerfRawData_Counters_ThermalZoneInformation struct {
	Name        string
	Temperature uint64
}

// GetInfo returns temperature information
func (r *WindowsReader) GetInfo(ctx context.Context) (*Info, error) {
	info := newInfo()

	if err := r.getTemperatureProbes(info); err == nil && !info.empty() {
		return info, nil
	}
	if err := r.getThermalZones(info); err == nil && !info.empty() {
		return info, nil
	}

	return nil, fmt.Errorf("no temperature sensors exposed through WMI")
}

// WMI reports tenths of a kelvin.
func fromDeciKelvin(v float64) float64 {
	return v/10.0 - 273.15
}

func (r *WindowsReader) getTemperatureProbes(info *Info) error {
	var probes []Win32_TemperatureProbe
	q := "SELECT DeviceID, Name, Description, CurrentReading, NominalReading, MaxReadableHigh FROM Win32_TemperatureProbe"
	if err := wmi.Query(q, &probes); err != nil {
		return err
	}

	for _, p := range probes {
		if p.CurrentReading == nil {
			continue
		}
		sensor := &Sensor{
			Name:        p.DeviceID,
			Label:       p.Name,
			Temperature: fromDeciKelvin(float64(*p.CurrentReading)),
			Critical:    85,
			Max:         70,
		}
		if p.Description != "" {
			sensor.Label = p.Description
		}
		if p.MaxReadableHigh != nil {
			sensor.Critical = fromDeciKelvin(float64(*p.MaxReadableHigh))
		}
		if p.NominalReading != nil {
			sensor.Max = fromDeciKelvin(float64(*p.NominalReading))
		}
		info.add(sensor)
	}
	return nil
}

func (r *WindowsReader) getThermalZones(info *Info) error {
	var zones []Win32_PerfRawData_Counters_ThermalZoneInformation
	if err := wmi.Query("SELECT Name, Temperature FROM Win32_PerfRawData_Counters_ThermalZoneInformation", &zones); err != nil {
		return err
	}

	for _, z := range zones {
		celsius := fromDeciKelvin(float64(z.Temperature))
		if celsius < -50 || celsius > 150 {
			continue
		}
		// thermal zones are board level
		info.System = append(info.System, &Sensor{
			Name:        z.Name,
			Label:       fmt.Sprintf("Thermal Zone %s", z.Name),
			Temperature: celsius,
			Critical:    85,
			Max:         70,
		})
	}
	return nil
}
