package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/CristiGvl/picoFanCtl/internal/thermal"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.Equal(t, BackendNvidia, cfg.Backend)
	require.Equal(t, 0, cfg.GPUID)
	require.Equal(t, []int{40, 50, 60, 78, 84}, cfg.TempThresholds)
	require.Equal(t, []int{46, 55, 62, 80, 100}, cfg.FanSpeeds)
	require.Equal(t, 46, cfg.FanSpeedFloor)
	require.Equal(t, 100, cfg.FanSpeedCeiling)
	require.Equal(t, 10, cfg.SamplingWindowSize)
	require.Equal(t, 3, cfg.Hysteresis)
	require.Equal(t, 2, cfg.GlobalDelay)
	require.Equal(t, 10, cfg.FanDwellTime)
	require.True(t, cfg.SmoothMode)
	require.Equal(t, 1.0, cfg.SmoothModeIncrWeight)
	require.Equal(t, 1.0, cfg.SmoothModeDecrWeight)
	require.Equal(t, 5, cfg.SmoothModeMaxFanStep)
	require.Equal(t, 5, cfg.FailSafeAfter)
	require.NoError(t, cfg.Validate())
}

type fixedSensor int

func (s fixedSensor) ReadTemperature(context.Context) (int, error) { return int(s), nil }

type recordingFan struct {
	level  int
	writes []int
}

func (f *recordingFan) ReadLevel(context.Context) (int, error) { return f.level, nil }

func (f *recordingFan) WriteLevel(_ context.Context, level int) error {
	f.level = level
	f.writes = append(f.writes, level)
	return nil
}

func TestDefault_RampDownConvergesAtMaxStep(t *testing.T) {
	cfg := Default()
	curve, err := cfg.Curve()
	require.NoError(t, err)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fan := &recordingFan{level: 100}
	ctrl, err := thermal.New(cfg.Settings(), curve, fixedSensor(35), fan,
		thermal.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	ticks := 0
	for fan.level != cfg.FanSpeedFloor {
		before := fan.level
		_, err := ctrl.Tick(context.Background())
		require.NoError(t, err)
		require.LessOrEqual(t, before-fan.level, cfg.SmoothModeMaxFanStep)
		now = now.Add(cfg.Settings().Dwell)
		ticks++
		require.Less(t, ticks, 60, "stalled at %d", fan.level)
	}
	// ceil((100-46)/5)
	require.Equal(t, 11, ticks)
	require.Len(t, fan.writes, 11)
}

func TestLoad_TOML(t *testing.T) {
	p := writeTemp(t, "picofanctl.toml", `
gpu_id = 1
temp_thresholds = [45, 65]
fan_speeds = [40, 90]
fan_speed_floor = 35
global_delay = 5
fan_dwell_time = 20
smooth_mode = false

[api]
enable = true
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, 1, cfg.GPUID)
	require.Equal(t, []int{45, 65}, cfg.TempThresholds)
	require.Equal(t, []int{40, 90}, cfg.FanSpeeds)
	require.Equal(t, 35, cfg.FanSpeedFloor)
	require.False(t, cfg.SmoothMode)
	require.True(t, cfg.API.Enable)
	require.Equal(t, "127.0.0.1:8737", cfg.API.Bind)
	// untouched keys keep their defaults
	require.Equal(t, 100, cfg.FanSpeedCeiling)
	require.Equal(t, 3, cfg.Hysteresis)
	require.Equal(t, 5*time.Second, cfg.TickInterval())

	s := cfg.Settings()
	require.Equal(t, 20*time.Second, s.Dwell)
	require.Equal(t, 35, s.Floor)
	require.False(t, s.Smoothing)
}

func TestLoad_YAML(t *testing.T) {
	p := writeTemp(t, "picofanctl.yaml", `
backend: hwmon
sensor: coretemp
pwm_path: /sys/class/hwmon/hwmon2/pwm1
temp_thresholds: [50, 70]
fan_speeds: [30, 100]
mqtt:
  enable: true
  topic: lab/fan
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, BackendHwmon, cfg.Backend)
	require.Equal(t, "coretemp", cfg.Sensor)
	require.Equal(t, []int{50, 70}, cfg.TempThresholds)
	require.True(t, cfg.MQTT.Enable)
	require.Equal(t, "lab/fan", cfg.MQTT.Topic)
	require.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
}

func TestLoad_MismatchedArrays(t *testing.T) {
	p := writeTemp(t, "mismatched.toml", `
temp_thresholds = [40, 50, 60]
fan_speeds = [46, 55]
`)
	_, err := Load(p)
	require.True(t, errors.Is(err, ErrMismatchedArrays), "err=%v", err)
}

func TestLoad_InvalidTOML(t *testing.T) {
	p := writeTemp(t, "invalid.toml", "invalid = toml [ content")
	_, err := Load(p)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.ErrorIs(t, err, ErrMissingFile)
}

func TestLoad_BackendValidation(t *testing.T) {
	cases := map[string]string{
		"unknown": `backend = "ipmi"`,
		"hwmon":   `backend = "hwmon"`,
		"gpio":    `backend = "gpio"`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeTemp(t, "c.toml", body))
			require.Error(t, err)
		})
	}
}

func TestLoadOrCreate_WritesDefaultsWhenMissing(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "dir", "picofanctl.toml")

	cfg, created, err := LoadOrCreate(p)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, Default(), cfg)
	require.FileExists(t, p)

	cfg, created, err = LoadOrCreate(p)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, Default().FanSpeeds, cfg.FanSpeeds)
}

func TestLoadOrCreate_ReplacesUnparsableFile(t *testing.T) {
	p := writeTemp(t, "broken.toml", "fan_speeds = [")

	cfg, created, err := LoadOrCreate(p)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, Default().TempThresholds, cfg.TempThresholds)

	_, err = Load(p)
	require.NoError(t, err)
}

func TestLoadOrCreate_KeepsValidationErrors(t *testing.T) {
	p := writeTemp(t, "mismatched.toml", "temp_thresholds = [1]\nfan_speeds = []\n")
	_, created, err := LoadOrCreate(p)
	require.ErrorIs(t, err, ErrMismatchedArrays)
	require.False(t, created)
}

func TestWrite_RoundTripYAML(t *testing.T) {
	p := filepath.Join(t.TempDir(), "c.yml")
	want := Default()
	want.Hysteresis = 7
	require.NoError(t, Write(p, want))

	got, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, 7, got.Hysteresis)
	require.Equal(t, want.FanSpeeds, got.FanSpeeds)
}

func TestExpandTilde(t *testing.T) {
	t.Setenv("HOME", "/home/test")

	cases := []struct {
		in, want string
	}{
		{"~/config.toml", "/home/test/config.toml"},
		{"~/dir/config.toml", "/home/test/dir/config.toml"},
		{"/absolute/path/config.toml", "/absolute/path/config.toml"},
		{"relative/path/config.toml", "relative/path/config.toml"},
	}
	for _, tc := range cases {
		got, err := ExpandTilde(tc.in)
		require.NoError(t, err)
		require.Equal(t, tc.want, got)
	}

	t.Setenv("HOME", "")
	_, err := ExpandTilde("~/x.toml")
	require.ErrorIs(t, err, ErrMissingHomeDir)
}

func TestResolvePath_Precedence(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvConfigPath, filepath.Join(dir, "env.toml"))

	got, err := ResolvePath(filepath.Join(dir, "flag.toml"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "flag.toml"), got)

	got, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "env.toml"), got)
}

func TestResolvePath_HomeDefault(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root resolves to /etc")
	}
	home := t.TempDir()
	t.Setenv(EnvConfigPath, "")
	t.Setenv("HOME", home)

	got, err := ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "picofanctl.toml"), got)
}

func TestCurveFromConfig(t *testing.T) {
	c, err := Default().Curve()
	require.NoError(t, err)
	require.Equal(t, 5, c.Len())
}
