package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultInitialReconnectDelay = 1 * time.Second
	DefaultMaxReconnectDelay     = 30 * time.Second
	DefaultMaxReconnectAttempts  = 10
	DefaultHeartbeatInterval     = 15 * time.Second
	DefaultConnectionTimeout     = 10 * time.Second
	DefaultMaxBufferedMessages   = 1024
	DefaultWriteTimeout          = 5 * time.Second
	DefaultLogLevel              = "info"
)

func (c *ProbeConfig) applyDefaults() {
	if c.Connection.InitialReconnectDelay == 0 {
		c.Connection.InitialReconnectDelay = Duration(DefaultInitialReconnectDelay)
	}
	if c.Connection.MaxReconnectDelay == 0 {
		c.Connection.MaxReconnectDelay = Duration(DefaultMaxReconnectDelay)
	}
	if c.Connection.MaxReconnectAttempts == 0 {
		c.Connection.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.Connection.HeartbeatInterval == 0 {
		c.Connection.HeartbeatInterval = Duration(DefaultHeartbeatInterval)
	}
	if c.Connection.ConnectionTimeout == 0 {
		c.Connection.ConnectionTimeout = Duration(DefaultConnectionTimeout)
	}
	if c.Connection.MaxBufferedMessages == 0 {
		c.Connection.MaxBufferedMessages = DefaultMaxBufferedMessages
	}
	if c.Connection.WriteTimeout == 0 {
		c.Connection.WriteTimeout = Duration(DefaultWriteTimeout)
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}
