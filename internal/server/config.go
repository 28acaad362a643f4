package server

import (
	"time"

	"hostlink/internal/keepalive"
	"hostlink/internal/transport"
)

// Config controls a Server.
type Config struct {
	// Host is the bind address for both instances.
	Host    string
	TCPPort int
	UDPPort int
	// AdvertiseHost is the name handed to hosts on discovery. Empty means
	// the TCP bind address, or loopback when bound to all interfaces.
	AdvertiseHost string

	MaxConnections   int
	HandshakeTimeout time.Duration
	ResponseTimeout  time.Duration
	WriteTimeout     time.Duration
	MaxFrame         int

	KeepAlive keepalive.Config

	// StatePath and ConfigPath are recorded in server_info.
	StatePath  string
	ConfigPath string
}

// Defaults for zero Config fields.
const (
	DefaultMaxConnections   = 100
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultResponseTimeout  = 10 * time.Second
	DefaultWriteTimeout     = 10 * time.Second
)

func (c Config) withDefaults() Config {
	if c.MaxConnections <= 0 {
		c.MaxConnections = DefaultMaxConnections
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.ResponseTimeout <= 0 {
		c.ResponseTimeout = DefaultResponseTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.MaxFrame <= 0 {
		c.MaxFrame = transport.DefaultMaxFrame
	}
	c.KeepAlive = c.KeepAlive.WithDefaults()
	return c
}
