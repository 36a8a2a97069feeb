package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the process configuration for the wirehub servers and the
// client CLI. It is loaded once at startup and read-only afterwards.
type Config struct {
	// Service ports
	TCPPort     int    `yaml:"tcp_port"`
	UDPPort     int    `yaml:"udp_port"`
	BindAddress string `yaml:"bind_address"`

	// Request handling
	Handler    string        `yaml:"handler"` // "echo" or "norm"
	Codec      string        `yaml:"codec"`   // "raw" or "json"
	LatencyMax time.Duration `yaml:"latency_max"`

	// Monitoring
	MetricsEnabled bool `yaml:"metrics_enabled"`
	MetricsPort    int  `yaml:"metrics_port"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Client
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
}

// defaultConfig is the baseline both loaders start from.
func defaultConfig() *Config {
	return &Config{
		TCPPort:        8888,
		UDPPort:        8888,
		BindAddress:    "0.0.0.0",
		Handler:        "echo",
		Codec:          "raw",
		LatencyMax:     0,
		MetricsEnabled: false,
		MetricsPort:    9090,
		LogLevel:       "info",
		LogFormat:      "json",
		ConnectTimeout: 3 * time.Second,
		ReadTimeout:    3 * time.Second,
	}
}

// Load reads configuration from environment variables, with a best-effort
// .env file load first.
func Load() (*Config, error) {
	// A missing .env file is fine, system env vars still apply.
	_ = godotenv.Load(".env")

	defaults := defaultConfig()
	config := &Config{}

	if err := loadEnvInt(&config.TCPPort, "TCP_PORT", defaults.TCPPort); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.UDPPort, "UDP_PORT", defaults.UDPPort); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.BindAddress, "BIND_ADDRESS", defaults.BindAddress); err != nil {
		return nil, err
	}

	if err := loadEnvString(&config.Handler, "HANDLER", defaults.Handler); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.Codec, "CODEC", defaults.Codec); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.LatencyMax, "LATENCY_MAX", defaults.LatencyMax); err != nil {
		return nil, err
	}

	if err := loadEnvBool(&config.MetricsEnabled, "METRICS_ENABLED", defaults.MetricsEnabled); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.MetricsPort, "METRICS_PORT", defaults.MetricsPort); err != nil {
		return nil, err
	}

	if err := loadEnvString(&config.LogLevel, "LOG_LEVEL", defaults.LogLevel); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.LogFormat, "LOG_FORMAT", defaults.LogFormat); err != nil {
		return nil, err
	}

	if err := loadEnvDuration(&config.ConnectTimeout, "CONNECT_TIMEOUT", defaults.ConnectTimeout); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.ReadTimeout, "READ_TIMEOUT", defaults.ReadTimeout); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadFile reads configuration from a YAML file, then validates it. The
// file overlays the defaults, so a partial file is enough.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := defaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// UnmarshalYAML overlays the file's fields onto the config it is called
// on; absent keys keep their current values. Duration fields are accepted
// in Go duration notation ("500ms", "3s") which yaml.v3 cannot map onto
// time.Duration by itself.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	type rawConfig struct {
		TCPPort        int    `yaml:"tcp_port"`
		UDPPort        int    `yaml:"udp_port"`
		BindAddress    string `yaml:"bind_address"`
		Handler        string `yaml:"handler"`
		Codec          string `yaml:"codec"`
		LatencyMax     string `yaml:"latency_max"`
		MetricsEnabled *bool  `yaml:"metrics_enabled"`
		MetricsPort    int    `yaml:"metrics_port"`
		LogLevel       string `yaml:"log_level"`
		LogFormat      string `yaml:"log_format"`
		ConnectTimeout string `yaml:"connect_timeout"`
		ReadTimeout    string `yaml:"read_timeout"`
	}

	var raw rawConfig
	if err := value.Decode(&raw); err != nil {
		return err
	}

	if raw.TCPPort != 0 {
		c.TCPPort = raw.TCPPort
	}
	if raw.UDPPort != 0 {
		c.UDPPort = raw.UDPPort
	}
	if raw.BindAddress != "" {
		c.BindAddress = raw.BindAddress
	}
	if raw.Handler != "" {
		c.Handler = raw.Handler
	}
	if raw.Codec != "" {
		c.Codec = raw.Codec
	}
	if raw.MetricsEnabled != nil {
		c.MetricsEnabled = *raw.MetricsEnabled
	}
	if raw.MetricsPort != 0 {
		c.MetricsPort = raw.MetricsPort
	}
	if raw.LogLevel != "" {
		c.LogLevel = raw.LogLevel
	}
	if raw.LogFormat != "" {
		c.LogFormat = raw.LogFormat
	}

	for _, field := range []struct {
		name   string
		source string
		target *time.Duration
	}{
		{"latency_max", raw.LatencyMax, &c.LatencyMax},
		{"connect_timeout", raw.ConnectTimeout, &c.ConnectTimeout},
		{"read_timeout", raw.ReadTimeout, &c.ReadTimeout},
	} {
		if field.source == "" {
			continue
		}
		parsed, err := time.ParseDuration(field.source)
		if err != nil {
			return fmt.Errorf("invalid duration for %s: %v", field.name, err)
		}
		*field.target = parsed
	}

	return nil
}

// TCPAddr returns the stream server bind address as host:port.
func (c *Config) TCPAddr() string {
	return fmt.Sprintf("%s:%d", c.BindAddress, c.TCPPort)
}

// UDPAddr returns the datagram server bind address as host:port.
func (c *Config) UDPAddr() string {
	return fmt.Sprintf("%s:%d", c.BindAddress, c.UDPPort)
}

// MetricsAddr returns the metrics endpoint bind address.
func (c *Config) MetricsAddr() string {
	return fmt.Sprintf("%s:%d", c.BindAddress, c.MetricsPort)
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	var errs []string

	if c.TCPPort < 1 || c.TCPPort > 65535 {
		errs = append(errs, "TCP_PORT must be between 1 and 65535")
	}
	if c.UDPPort < 1 || c.UDPPort > 65535 {
		errs = append(errs, "UDP_PORT must be between 1 and 65535")
	}
	if c.BindAddress == "" {
		errs = append(errs, "BIND_ADDRESS cannot be empty")
	}

	switch c.Handler {
	case "echo", "norm":
	default:
		errs = append(errs, fmt.Sprintf("HANDLER must be 'echo' or 'norm', got '%s'", c.Handler))
	}

	switch c.Codec {
	case "raw", "json":
	default:
		errs = append(errs, fmt.Sprintf("CODEC must be 'raw' or 'json', got '%s'", c.Codec))
	}

	if c.LatencyMax < 0 {
		errs = append(errs, "LATENCY_MAX cannot be negative")
	}

	if c.MetricsEnabled && (c.MetricsPort < 1 || c.MetricsPort > 65535) {
		errs = append(errs, "METRICS_PORT must be between 1 and 65535")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL must be one of: %s", strings.Join(validLogLevels, ", ")))
	}

	validLogFormats := []string{"text", "json"}
	if !contains(validLogFormats, c.LogFormat) {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT must be one of: %s", strings.Join(validLogFormats, ", ")))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Helper functions for type conversion and validation
func loadEnvString(target *string, key, defaultValue string) error {
	if value := os.Getenv(key); value != "" {
		*target = value
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvInt(target *int, key string, defaultValue int) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvBool(target *bool, key string, defaultValue bool) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvDuration(target *time.Duration, key string, defaultValue time.Duration) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
