package temps

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type staticReader struct {
	info *Info
	err  error
}

func (r staticReader) GetInfo(context.Context) (*Info, error) {
	return r.info, r.err
}

func testInfo() *Info {
	info := newInfo()
	for _, s := range []*Sensor{
		{Name: "coretemp_package_id_0", Temperature: 61.6},
		{Name: "amdgpu_edge", Temperature: 48.2},
		{Name: "nvme_composite", Temperature: 39},
		{Name: "acpitz", Temperature: 27.9},
	} {
		info.add(s)
	}
	return info
}

func TestInfo_Categorizes(t *testing.T) {
	info := testInfo()
	require.Len(t, info.CPU, 1)
	require.Len(t, info.GPU, 1)
	require.Len(t, info.Drives, 1)
	require.Len(t, info.System, 1)
	require.Equal(t, "coretemp_package_id_0", info.All()[0].Name)
	require.Len(t, info.All(), 4)
}

func TestSensorSource_MatchesKeyIgnoringCase(t *testing.T) {
	src := &SensorSource{Key: "AMDGPU", Reader: staticReader{info: testInfo()}}
	temp, err := src.ReadTemperature(context.Background())
	require.NoError(t, err)
	require.Equal(t, 48, temp)

	src.Key = "coretemp"
	temp, err = src.ReadTemperature(context.Background())
	require.NoError(t, err)
	require.Equal(t, 62, temp)
}

func TestSensorSource_NotFound(t *testing.T) {
	src := &SensorSource{Key: "ipmi", Reader: staticReader{info: testInfo()}}
	_, err := src.ReadTemperature(context.Background())
	require.ErrorIs(t, err, ErrSensorNotFound)
}

func TestSensorSource_ReaderError(t *testing.T) {
	boom := errors.New("sysfs unavailable")
	src := &SensorSource{Key: "coretemp", Reader: staticReader{err: boom}}
	_, err := src.ReadTemperature(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestSensorSource_NoSensorsOnHost(t *testing.T) {
	src := &SensorSource{Key: "coretemp", Reader: noSensors{goos: "plan9"}}
	_, err := src.ReadTemperature(context.Background())
	require.ErrorIs(t, err, errors.ErrUnsupported)
	require.Contains(t, err.Error(), "plan9")
}
