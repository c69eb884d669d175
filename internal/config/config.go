// Package config loads panel and simulator configuration.
//
// Precedence, lowest first: built-in defaults, the YAML file named by
// EV3PANEL_CONFIG (or passed explicitly), environment variables, and finally
// command-line flags applied by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-ev3panel/pkg/arbiter"
	"github.com/teslashibe/go-ev3panel/pkg/input"
	"github.com/teslashibe/go-ev3panel/pkg/robot"
)

// Defaults.
const (
	DefaultAddr           = ":8080"
	DefaultSimAddr        = ":8081"
	DefaultRobotURL       = "http://127.0.0.1:8081"
	DefaultQueueSize      = 32
	DefaultRequestTimeout = 3 * time.Second
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the panel configuration.
type Config struct {
	Addr           string        `env:"EV3PANEL_ADDR" yaml:"addr"`
	RobotURL       string        `env:"EV3PANEL_ROBOT_URL" yaml:"robot_url"`
	LogLevel       string        `env:"EV3PANEL_LOG_LEVEL" yaml:"log_level"`
	LogFormat      string        `env:"EV3PANEL_LOG_FORMAT" yaml:"log_format"`
	DefaultSpeed   int           `env:"EV3PANEL_DEFAULT_SPEED" yaml:"default_speed"`
	QueueSize      int           `env:"EV3PANEL_QUEUE_SIZE" yaml:"queue_size"`
	RequestTimeout time.Duration `env:"EV3PANEL_REQUEST_TIMEOUT" yaml:"request_timeout"`

	// File is the YAML file the config was loaded from, if any.
	File string `env:"EV3PANEL_CONFIG" yaml:"-"`

	Keys     KeysConfig            `yaml:"keys"`
	Movement *robot.MovementConfig `yaml:"movement"`
}

// KeysConfig holds keyboard bindings. Entries are key names ("ArrowUp", "w")
// or decimal key codes ("38"). An empty list keeps the default for that control.
type KeysConfig struct {
	Forward  []string `yaml:"forward"`
	Backward []string `yaml:"backward"`
	Left     []string `yaml:"left"`
	Right    []string `yaml:"right"`
	Halt     []string `yaml:"halt"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:           DefaultAddr,
		RobotURL:       DefaultRobotURL,
		LogLevel:       "info",
		LogFormat:      "text",
		DefaultSpeed:   arbiter.DefaultSpeed,
		QueueSize:      DefaultQueueSize,
		RequestTimeout: DefaultRequestTimeout,
	}
}

// Load builds the configuration. When path is empty EV3PANEL_CONFIG is used;
// when both are empty no file is read.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("EV3PANEL_CONFIG")
	}
	if path != "" {
		if err := loadFile(&cfg, path); err != nil {
			return Config{}, err
		}
		cfg.File = path
	}

	if ip := os.Getenv("ROBOT_IP"); ip != "" {
		cfg.RobotURL = RobotURL(ip)
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// RobotURL turns a bare host or host:port into an API base URL.
func RobotURL(host string) string {
	host = strings.TrimSpace(host)
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return strings.TrimRight(host, "/")
	}
	return "http://" + host
}

// Validate checks field ranges.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is empty"))
	}
	if c.RobotURL == "" {
		errs = append(errs, errors.New("robot_url is empty"))
	}
	if c.DefaultSpeed < arbiter.MinSpeed || c.DefaultSpeed > arbiter.MaxSpeed {
		errs = append(errs, fmt.Errorf("default_speed %d outside %d..%d", c.DefaultSpeed, arbiter.MinSpeed, arbiter.MaxSpeed))
	}
	if c.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("queue_size %d must be positive", c.QueueSize))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request_timeout %s must be positive", c.RequestTimeout))
	}
	if c.Movement != nil {
		for _, side := range []robot.SideConfig{c.Movement.Left, c.Movement.Right} {
			if side.Type != "" && side.Type != robot.MotorLarge && side.Type != robot.MotorMedium {
				errs = append(errs, fmt.Errorf("movement motor type %q", side.Type))
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// Bindings merges the configured keys over input.DefaultBindings.
func (c Config) Bindings() input.Bindings {
	b := input.DefaultBindings()
	overrides := map[arbiter.InputCode][]string{
		arbiter.KeyForward:  c.Keys.Forward,
		arbiter.KeyBackward: c.Keys.Backward,
		arbiter.KeyLeft:     c.Keys.Left,
		arbiter.KeyRight:    c.Keys.Right,
	}
	for code, keys := range overrides {
		if len(keys) > 0 {
			b.Keys[code] = keys
		}
	}
	if len(c.Keys.Halt) > 0 {
		b.Halt = c.Keys.Halt
	}
	return b
}
