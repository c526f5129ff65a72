package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *ProbeConfig) Validate() error {
	if c.Endpoint.URL == "" {
		return errors.New("endpoint.url is required")
	}
	if !strings.HasPrefix(c.Endpoint.URL, "ws://") && !strings.HasPrefix(c.Endpoint.URL, "wss://") {
		return fmt.Errorf("endpoint.url must be a ws:// or wss:// URL, got %q", c.Endpoint.URL)
	}

	if c.Connection.InitialReconnectDelay < 0 {
		return errors.New("connection.initial_reconnect_delay must be >= 0")
	}
	if c.Connection.MaxReconnectDelay < c.Connection.InitialReconnectDelay {
		return fmt.Errorf("connection.max_reconnect_delay (%v) cannot be below initial_reconnect_delay (%v)",
			c.Connection.MaxReconnectDelay, c.Connection.InitialReconnectDelay)
	}
	if c.Connection.MaxReconnectAttempts < 1 {
		return errors.New("connection.max_reconnect_attempts must be >= 1")
	}
	if c.Connection.MaxBufferedMessages < 1 {
		return errors.New("connection.max_buffered_messages must be >= 1")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}

	return nil
}
