package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds account and transport parameters for the CLI.
type Config struct {
	// Username is the Yale Smart Living account login.
	Username string `yaml:"username"`
	// Password is the Yale Smart Living account password.
	Password string `yaml:"password"`
	// AreaID is the panel area addressed by arm/disarm requests.
	AreaID int `yaml:"area_id"`
	// BaseURL overrides the API root, mostly for testing against a fake server.
	BaseURL string `yaml:"base_url,omitempty"`
	// Timeout bounds every single API call.
	Timeout time.Duration `yaml:"timeout"`
	// RequestsPerSecond enables a client-side rate limit when positive.
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"`
	// Burst is the rate limiter bucket size.
	Burst int `yaml:"burst,omitempty"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level,omitempty"`
	// WatchInterval is the polling period of the watch command.
	WatchInterval time.Duration `yaml:"watch_interval,omitempty"`
	// StateFile keeps the last published state of the watch command.
	// Empty disables persistence.
	StateFile string `yaml:"state_file,omitempty"`
	// MQTT configures where watch publishes state changes.
	MQTT MQTT `yaml:"mqtt,omitempty"`
}

// MQTT describes the optional broker used by the watch command.
type MQTT struct {
	// Broker is the broker URL, e.g. tcp://localhost:1883. Empty disables MQTT.
	Broker string `yaml:"broker,omitempty"`
	// ClientID identifies this process to the broker.
	ClientID string `yaml:"client_id,omitempty"`
	// Username is the broker login.
	Username string `yaml:"username,omitempty"`
	// Password is the broker password.
	Password string `yaml:"password,omitempty"`
	// Topic is the prefix state messages are published under.
	Topic string `yaml:"topic,omitempty"`
	// QoS is the MQTT quality of service level (0-2).
	QoS byte `yaml:"qos,omitempty"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "yale-alarm.yaml"

	// DefaultAreaID is the panel area used when none is configured.
	DefaultAreaID = 1

	// DefaultTimeout is the default duration of a single API call.
	DefaultTimeout = 5 * time.Second

	// DefaultWatchInterval is the default polling period of the watch command.
	DefaultWatchInterval = 30 * time.Second

	// DefaultMQTTTopic is the default topic prefix for published state.
	DefaultMQTTTopic = "yale-alarm"

	// DefaultMQTTClientID is the default MQTT client identifier.
	DefaultMQTTClientID = "yale-alarm"

	// DefaultFilePermissions restricts the settings file, it holds a password.
	DefaultFilePermissions = 0o600

	// maxQoS is the highest MQTT QoS level.
	maxQoS = 2
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errCredentialsRequired is returned when username or password is missing.
	errCredentialsRequired = errors.New("username and password must be provided")
	// errInvalidArea is returned for a negative area identifier.
	errInvalidArea = errors.New("area_id must be positive")
	// errInvalidRateLimit is returned for a negative request rate.
	errInvalidRateLimit = errors.New("requests_per_second must not be negative")
	// errInvalidQoS is returned for an MQTT QoS above 2.
	errInvalidQoS = errors.New("mqtt qos must be 0, 1 or 2")
)

// Load reads configuration from the provided path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes cfg to the provided path with owner-only permissions.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and fills in defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.Username == "" || cfg.Password == "" {
		return errCredentialsRequired
	}

	switch {
	case cfg.AreaID < 0:
		return errInvalidArea
	case cfg.AreaID == 0:
		cfg.AreaID = DefaultAreaID
	}

	if cfg.BaseURL != "" {
		if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
			return fmt.Errorf("invalid base URL: %w", err)
		}
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.RequestsPerSecond < 0 {
		return errInvalidRateLimit
	}

	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	if cfg.WatchInterval <= 0 {
		cfg.WatchInterval = DefaultWatchInterval
	}

	return validateMQTT(&cfg.MQTT)
}

// validateMQTT checks the broker section, which is optional as a whole.
func validateMQTT(m *MQTT) error {
	if m.Broker == "" {
		return nil
	}

	if _, err := url.ParseRequestURI(m.Broker); err != nil {
		return fmt.Errorf("invalid mqtt broker: %w", err)
	}

	if m.QoS > maxQoS {
		return errInvalidQoS
	}

	if m.Topic == "" {
		m.Topic = DefaultMQTTTopic
	}

	if m.ClientID == "" {
		m.ClientID = DefaultMQTTClientID
	}

	return nil
}
