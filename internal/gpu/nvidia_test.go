package gpu

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	name string
	args []string
}

type fakeRunner struct {
	calls  []recordedCall
	output map[string]string
	err    error
}

func (f *fakeRunner) run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, recordedCall{name: name, args: args})
	if f.err != nil {
		return nil, f.err
	}
	for key, out := range f.output {
		for _, a := range args {
			if strings.Contains(a, key) {
				return []byte(out), nil
			}
		}
	}
	return nil, nil
}

func newTestDevice(root bool, r *fakeRunner) *NvidiaDevice {
	return &NvidiaDevice{ID: 1, run: r.run, isRoot: func() bool { return root }}
}

func TestNvidiaDevice_ReadTemperature(t *testing.T) {
	r := &fakeRunner{output: map[string]string{"temperature.gpu": "67\n"}}
	d := newTestDevice(true, r)

	temp, err := d.ReadTemperature(context.Background())
	require.NoError(t, err)
	require.Equal(t, 67, temp)
	require.Equal(t, "nvidia-smi", r.calls[0].name)
	require.Equal(t, []string{"--id=1", "--query-gpu=temperature.gpu", "--format=csv,noheader"}, r.calls[0].args)
}

func TestNvidiaDevice_ReadLevel(t *testing.T) {
	r := &fakeRunner{output: map[string]string{"fan.speed": "55 %\n"}}
	level, err := newTestDevice(true, r).ReadLevel(context.Background())
	require.NoError(t, err)
	require.Equal(t, 55, level)
}

func TestNvidiaDevice_ReadLevelNotAvailable(t *testing.T) {
	r := &fakeRunner{output: map[string]string{"fan.speed": "[N/A]\n"}}
	_, err := newTestDevice(true, r).ReadLevel(context.Background())
	require.Error(t, err)
}

func TestNvidiaDevice_CommandError(t *testing.T) {
	boom := errors.New("exit status 9")
	_, err := newTestDevice(true, &fakeRunner{err: boom}).ReadTemperature(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestNvidiaDevice_WriteLevelAsRoot(t *testing.T) {
	r := &fakeRunner{}
	require.NoError(t, newTestDevice(true, r).WriteLevel(context.Background(), 72))

	require.Len(t, r.calls, 1)
	require.Equal(t, "nvidia-settings", r.calls[0].name)
	require.Equal(t, []string{
		"-c", "1",
		"-a", "GPUFanControlState=1",
		"-a", "GPUTargetFanSpeed=72",
	}, r.calls[0].args)
}

func TestNvidiaDevice_UsesSudoWhenUnprivileged(t *testing.T) {
	r := &fakeRunner{}
	d := newTestDevice(false, r)
	require.NoError(t, d.Release(context.Background()))

	require.Equal(t, "sudo", r.calls[0].name)
	require.Equal(t, []string{"nvidia-settings", "-c", "1", "-a", "GPUFanControlState=0"}, r.calls[0].args)
}

func TestNvidiaDevice_Acquire(t *testing.T) {
	r := &fakeRunner{}
	require.NoError(t, newTestDevice(true, r).Acquire(context.Background()))
	require.Equal(t, []string{"-c", "1", "-a", "GPUFanControlState=1"}, r.calls[0].args)
}

const smiLog = `<?xml version="1.0" ?>
<nvidia_smi_log>
	<gpu id="00000000:01:00.0">
		<product_name>NVIDIA GeForce RTX 3080</product_name>
		<fan_speed>48 %</fan_speed>
		<fb_memory_usage>
			<total>10240 MiB</total>
		</fb_memory_usage>
		<utilization>
			<gpu_util>12 %</gpu_util>
		</utilization>
		<temperature>
			<gpu_temp>61 C</gpu_temp>
		</temperature>
		<power_readings>
			<power_draw>N/A</power_draw>
		</power_readings>
	</gpu>
</nvidia_smi_log>`

func TestParseNvidiaSMILog(t *testing.T) {
	gpus, err := parseNvidiaSMILog([]byte(smiLog))
	require.NoError(t, err)
	require.Len(t, gpus, 1)

	g := gpus[0]
	require.Equal(t, NVIDIA, g.Vendor)
	require.Equal(t, "NVIDIA GeForce RTX 3080", g.Model)
	require.Equal(t, uint64(10240), g.VRAM)
	require.Equal(t, 12.0, g.Usage)
	require.Equal(t, 61.0, g.Temperature)
	require.Equal(t, 48.0, g.FanSpeed)
	require.Zero(t, g.PowerUsage)
}

func TestParseNvidiaSMILog_Garbage(t *testing.T) {
	_, err := parseNvidiaSMILog([]byte("<nvidia_smi_log"))
	require.Error(t, err)
}
