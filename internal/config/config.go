// Package config loads the bridge configuration from an optional YAML file.
// The command line validates and overrides individual values; the core
// components consume the resulting struct as already-validated input.
package config

import (
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/trackside-data/lapbridge/internal/serialmux"
)

// Config is the full bridge configuration.
type Config struct {
	Redis   RedisConfig  `yaml:"redis"`
	Serial  SerialConfig `yaml:"serial"`
	LogFile string       `yaml:"log_file"`
}

// RedisConfig locates the pub/sub bus. Addr holds either a unix socket path
// or a host:port pair.
type RedisConfig struct {
	Addr string `yaml:"addr"`
}

// SerialConfig locates and configures the timing hardware port.
type SerialConfig struct {
	Device  string                `yaml:"device"`
	Options serialmux.PortOptions `yaml:"options"`
}

// Default returns the built-in configuration: a local unix-socket Redis, the
// platform's usual USB serial adapter at 9600 baud, and a log file next to
// the binary.
func Default() *Config {
	return &Config{
		Redis:   RedisConfig{Addr: "./redis.sock"},
		Serial:  SerialConfig{Device: DefaultSerialDevice(), Options: serialmux.PortOptions{BaudRate: 9600}},
		LogFile: "lapbridge.log",
	}
}

// Load reads the YAML file at path over the defaults. A missing file is an
// error; call Default directly when no file is configured.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultSerialDevice returns the usual device path for the lap-tracking
// hardware's USB serial adapter on this platform.
func DefaultSerialDevice() string {
	if runtime.GOOS == "darwin" {
		return "/dev/tty.usbserial-AB0KLIK2"
	}
	return "/dev/ttyUSB0"
}
