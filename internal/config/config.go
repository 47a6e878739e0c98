package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/CristiGvl/picoFanCtl/internal/thermal"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable holding the config path.
const EnvConfigPath = "PICOFANCTL_CONFIG"

const (
	fileName     = "picofanctl.toml"
	rootPath     = "/etc/" + fileName
	fallbackPath = "/tmp/" + fileName
)

// Supported backends.
const (
	BackendNvidia = "nvidia"
	BackendHwmon  = "hwmon"
	BackendGPIO   = "gpio"
)

var (
	ErrMissingHomeDir   = errors.New("HOME environment variable not set")
	ErrMissingFile      = errors.New("missing configuration file")
	ErrMismatchedArrays = errors.New("temp_thresholds and fan_speeds must be the same length")
)

type Config struct {
	Backend string `toml:"backend" yaml:"backend"`
	GPUID   int    `toml:"gpu_id" yaml:"gpu_id"`
	Sensor  string `toml:"sensor" yaml:"sensor"`
	PWMPath string `toml:"pwm_path" yaml:"pwm_path"`
	GPIOPin int    `toml:"gpio_pin" yaml:"gpio_pin"`

	TempThresholds     []int `toml:"temp_thresholds" yaml:"temp_thresholds"`
	FanSpeeds          []int `toml:"fan_speeds" yaml:"fan_speeds"`
	FanSpeedFloor      int   `toml:"fan_speed_floor" yaml:"fan_speed_floor"`
	FanSpeedCeiling    int   `toml:"fan_speed_ceiling" yaml:"fan_speed_ceiling"`
	Hysteresis         int   `toml:"hysteresis" yaml:"hysteresis"`
	SamplingWindowSize int   `toml:"sampling_window_size" yaml:"sampling_window_size"`
	// GlobalDelay is the tick period in seconds.
	GlobalDelay int `toml:"global_delay" yaml:"global_delay"`
	// FanDwellTime is the minimum number of seconds between fan commands.
	FanDwellTime int `toml:"fan_dwell_time" yaml:"fan_dwell_time"`

	SmoothMode           bool    `toml:"smooth_mode" yaml:"smooth_mode"`
	// SmoothModeIncrWeight and SmoothModeDecrWeight divide the max fan step
	// per direction. The defaults of 1.0 ramp at the full step both ways.
	SmoothModeIncrWeight float64 `toml:"smooth_mode_incr_weight" yaml:"smooth_mode_incr_weight"`
	SmoothModeDecrWeight float64 `toml:"smooth_mode_decr_weight" yaml:"smooth_mode_decr_weight"`
	SmoothModeMaxFanStep int     `toml:"smooth_mode_max_fan_step" yaml:"smooth_mode_max_fan_step"`

	// FailSafeAfter is the number of consecutive failed readings after which
	// the fan is forced to 100%. Zero disables it.
	FailSafeAfter int `toml:"fail_safe_after" yaml:"fail_safe_after"`

	API  APIConfig  `toml:"api" yaml:"api"`
	MQTT MQTTConfig `toml:"mqtt" yaml:"mqtt"`
}

type APIConfig struct {
	Enable bool   `toml:"enable" yaml:"enable"`
	Bind   string `toml:"bind" yaml:"bind"`
}

type MQTTConfig struct {
	Enable   bool   `toml:"enable" yaml:"enable"`
	Broker   string `toml:"broker" yaml:"broker"`
	Topic    string `toml:"topic" yaml:"topic"`
	Username string `toml:"username" yaml:"username"`
	Password string `toml:"password" yaml:"password"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Backend:              BackendNvidia,
		GPUID:                0,
		TempThresholds:       []int{40, 50, 60, 78, 84},
		FanSpeeds:            []int{46, 55, 62, 80, 100},
		FanSpeedFloor:        46,
		FanSpeedCeiling:      100,
		Hysteresis:           3,
		SamplingWindowSize:   10,
		GlobalDelay:          2,
		FanDwellTime:         10,
		SmoothMode:           true,
		SmoothModeIncrWeight: 1.0,
		SmoothModeDecrWeight: 1.0,
		SmoothModeMaxFanStep: 5,
		FailSafeAfter:        5,
		API: APIConfig{
			Bind: "127.0.0.1:8737",
		},
		MQTT: MQTTConfig{
			Broker: "tcp://localhost:1883",
			Topic:  "picofanctl/state",
		},
	}
}

// TickInterval returns the control loop period.
func (c Config) TickInterval() time.Duration {
	return time.Duration(c.GlobalDelay) * time.Second
}

// Settings converts the file settings into controller settings.
func (c Config) Settings() thermal.Settings {
	return thermal.Settings{
		Floor:          c.FanSpeedFloor,
		Ceiling:        c.FanSpeedCeiling,
		Hysteresis:     c.Hysteresis,
		WindowSize:     c.SamplingWindowSize,
		Dwell:          time.Duration(c.FanDwellTime) * time.Second,
		Smoothing:      c.SmoothMode,
		MaxStep:        c.SmoothModeMaxFanStep,
		IncreaseWeight: c.SmoothModeIncrWeight,
		DecreaseWeight: c.SmoothModeDecrWeight,
	}
}

// Curve builds the controller curve.
func (c Config) Curve() (thermal.Curve, error) {
	return thermal.NewCurve(c.TempThresholds, c.FanSpeeds)
}

// Validate rejects configurations the controller cannot run with.
func (c Config) Validate() error {
	if len(c.TempThresholds) != len(c.FanSpeeds) {
		return ErrMismatchedArrays
	}
	switch c.Backend {
	case BackendNvidia:
		if c.GPUID < 0 {
			return fmt.Errorf("gpu_id must be >= 0")
		}
	case BackendHwmon:
		if c.Sensor == "" {
			return fmt.Errorf("sensor is required when backend is %q", BackendHwmon)
		}
		if c.PWMPath == "" {
			return fmt.Errorf("pwm_path is required when backend is %q", BackendHwmon)
		}
	case BackendGPIO:
		if c.GPIOPin <= 0 {
			return fmt.Errorf("gpio_pin is required when backend is %q", BackendGPIO)
		}
		if c.Sensor == "" {
			return fmt.Errorf("sensor is required when backend is %q", BackendGPIO)
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.MQTT.Enable && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt.enable is true")
	}
	return nil
}

// Load reads and validates the configuration at path. Keys missing from the
// file keep their default values.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, ErrMissingFile
		}
		return Config{}, err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return Config{}, &ParseError{Path: path, Err: errors.New("file is empty")}
	}

	cfg := Default()
	if isYAML(path) {
		err = yaml.Unmarshal(b, &cfg)
	} else {
		_, err = toml.Decode(string(b), &cfg)
	}
	if err != nil {
		return Config{}, &ParseError{Path: path, Err: err}
	}

	if cfg.GlobalDelay <= 0 {
		cfg.GlobalDelay = 2
	}
	if cfg.FanDwellTime < 0 {
		cfg.FanDwellTime = 0
	}
	if cfg.FailSafeAfter < 0 {
		cfg.FailSafeAfter = 0
	}
	if cfg.API.Bind == "" {
		cfg.API.Bind = Default().API.Bind
	}
	if cfg.MQTT.Topic == "" {
		cfg.MQTT.Topic = Default().MQTT.Topic
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseError reports a file that could not be decoded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// LoadOrCreate loads path and falls back to the defaults when the file is
// missing or cannot be parsed. The defaults are written to path in that case
// and created is true. Validation errors are returned as is.
func LoadOrCreate(path string) (cfg Config, created bool, err error) {
	cfg, err = Load(path)
	if err == nil {
		return cfg, false, nil
	}

	var parseErr *ParseError
	if !errors.Is(err, ErrMissingFile) && !errors.As(err, &parseErr) {
		return Config{}, false, err
	}

	cfg = Default()
	if werr := Write(path, cfg); werr != nil {
		return Config{}, false, fmt.Errorf("write default config: %w", werr)
	}
	return cfg, true, nil
}

// Write stores cfg at path, creating parent directories.
func Write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	var b []byte
	if isYAML(path) {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		b = out
	} else {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return err
		}
		b = buf.Bytes()
	}
	return os.WriteFile(path, b, 0o644)
}

// LoadEnv loads a .env file from the working directory if one exists.
func LoadEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// ExpandTilde replaces a leading "~/" with the home directory.
func ExpandTilde(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home := os.Getenv("HOME")
	if home == "" {
		return "", ErrMissingHomeDir
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}

// ResolvePath picks the configuration file. An explicit path wins, then the
// PICOFANCTL_CONFIG environment variable, then /etc/picofanctl.toml for root
// or ~/.config/picofanctl.toml otherwise. When the default directory cannot
// be created /tmp/picofanctl.toml is used.
func ResolvePath(explicit string) (string, error) {
	path := explicit
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		expanded, err := ExpandTilde(path)
		if err != nil {
			return "", err
		}
		return filepath.Abs(expanded)
	}

	if os.Geteuid() == 0 {
		path = rootPath
	} else {
		home := os.Getenv("HOME")
		if home == "" {
			return "", ErrMissingHomeDir
		}
		path = filepath.Join(home, ".config", fileName)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fallbackPath, nil
	}
	return path, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
