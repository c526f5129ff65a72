// Package config loads configuration for the relink-probe tool.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// ProbeConfig is the root configuration for relink-probe.
type ProbeConfig struct {
	Endpoint   EndpointConfig   `yaml:"endpoint"`
	Connection ConnectionConfig `yaml:"connection"`
	Log        LogConfig        `yaml:"log"`
}

// EndpointConfig identifies the peer to probe.
type EndpointConfig struct {
	URL string `yaml:"url"` // ws:// or wss:// endpoint
}

// ConnectionConfig holds state-machine and transport settings.
type ConnectionConfig struct {
	InitialReconnectDelay Duration `yaml:"initial_reconnect_delay"`
	MaxReconnectDelay     Duration `yaml:"max_reconnect_delay"`
	MaxReconnectAttempts  int      `yaml:"max_reconnect_attempts"`
	HeartbeatInterval     Duration `yaml:"heartbeat_interval"`
	ConnectionTimeout     Duration `yaml:"connection_timeout"`
	MaxBufferedMessages   int      `yaml:"max_buffered_messages"`
	WriteTimeout          Duration `yaml:"write_timeout"`
}

// Duration is a time.Duration that unmarshals from YAML strings like "30s"
// (plain integers are taken as nanoseconds).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("invalid duration %q: %w", s, perr)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}
	return fmt.Errorf("invalid duration %q", value.Value)
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}
