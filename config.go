package exttask

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/petrijr/exttask/pkg/backoff"
)

// Config is the file-based counterpart of ClientBuilder, for deployments
// that configure the worker from YAML:
//
//	baseUrl: http://localhost:8080/engine-rest
//	workerId: invoice-worker
//	maxTasks: 10
//	lockDuration: 30s
//	asyncResponseTimeout: 20s
//	backoff:
//	  initialDelay: 500ms
//	  factor: 2
//	  maxDelay: 60s
type Config struct {
	BaseURL              string        `yaml:"baseUrl"`
	WorkerID             string        `yaml:"workerId,omitempty"`
	MaxTasks             int           `yaml:"maxTasks,omitempty"`
	UsePriority          bool          `yaml:"usePriority,omitempty"`
	LockDuration         Duration      `yaml:"lockDuration,omitempty"`
	AsyncResponseTimeout Duration      `yaml:"asyncResponseTimeout,omitempty"`
	Backoff              BackoffConfig `yaml:"backoff,omitempty"`
}

// BackoffConfig configures the exponential backoff strategy. Zero values
// fall back to the strategy defaults; Disabled removes backoff entirely.
type BackoffConfig struct {
	Disabled     bool     `yaml:"disabled,omitempty"`
	InitialDelay Duration `yaml:"initialDelay,omitempty"`
	Factor       float64  `yaml:"factor,omitempty"`
	MaxDelay     Duration `yaml:"maxDelay,omitempty"`
}

// Duration wraps time.Duration so config files can use values like "30s";
// yaml.v3 has no native support for duration strings.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("%w: duration must be a string like \"30s\"", ErrConfigFileUnmarshallable)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfigFileUnmarshallable, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

var (
	ErrConfigFileUnreadable     = errors.New("config file is unreadable")
	ErrConfigFileUnmarshallable = errors.New("config file is unmarshallable")
	ErrBaseURLMissing           = errors.New("baseUrl is missing in config")
)

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfigFileUnreadable, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfigFileUnmarshallable, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the config for required fields.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return ErrBaseURLMissing
	}
	return nil
}

// NewClient builds a Client from the config.
func (c Config) NewClient() (*Client, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	b := NewClient(c.BaseURL).
		WorkerID(c.WorkerID).
		MaxTasks(c.MaxTasks).
		UsePriority(c.UsePriority).
		LockDuration(c.LockDuration.Std()).
		AsyncResponseTimeout(c.AsyncResponseTimeout.Std())

	if c.Backoff.Disabled {
		b = b.DisableBackoff()
	} else if c.Backoff != (BackoffConfig{}) {
		b = b.BackoffStrategy(backoff.NewExponential(
			c.Backoff.InitialDelay.Std(),
			c.Backoff.Factor,
			c.Backoff.MaxDelay.Std(),
		))
	}

	return b.Build()
}
