package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"hostlink/internal/keepalive"
	"hostlink/internal/server"
)

// DefaultConfigFile is read when no --config flag is given.
const DefaultConfigFile = "hostlink.toml"

// PassphraseEnv names the environment variable holding the key passphrase.
const PassphraseEnv = "HOSTLINK_KEY_PASSPHRASE"

// Config holds runtime wiring options for building the app.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Timeouts  TimeoutConfig   `toml:"timeouts"`
	KeepAlive KeepAliveConfig `toml:"keepalive"`
	Storage   StorageConfig   `toml:"storage"`
	Log       LogConfig       `toml:"log"`

	// Path is the file the config was read from, empty for defaults.
	Path string `toml:"-"`
	// Passphrase unlocks the key file; taken from PassphraseEnv.
	Passphrase string `toml:"-"`
}

type ServerConfig struct {
	Host           string `toml:"host"`
	TCPPort        int    `toml:"tcp_port"`
	UDPPort        int    `toml:"udp_port"`
	AdvertiseHost  string `toml:"advertise_host"`
	MaxConnections int    `toml:"max_connections"`
	MaxFrame       int    `toml:"max_frame"`
}

type TimeoutConfig struct {
	Handshake time.Duration `toml:"handshake"`
	Response  time.Duration `toml:"response"`
	Write     time.Duration `toml:"write"`
}

type KeepAliveConfig struct {
	Interval     time.Duration `toml:"interval"`
	Timeout      time.Duration `toml:"timeout"`
	InitialDelay time.Duration `toml:"initial_delay"`
}

type StorageConfig struct {
	StatePath string `toml:"state_path"`
	// KeyFile enables a persistent server key. Empty means ephemeral keys.
	KeyFile string `toml:"key_file"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // auto, console or json
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			TCPPort:        8520,
			UDPPort:        8521,
			MaxConnections: server.DefaultMaxConnections,
		},
		Timeouts: TimeoutConfig{
			Handshake: server.DefaultHandshakeTimeout,
			Response:  server.DefaultResponseTimeout,
			Write:     server.DefaultWriteTimeout,
		},
		KeepAlive: KeepAliveConfig{
			Interval:     keepalive.DefaultInterval,
			Timeout:      keepalive.DefaultTimeout,
			InitialDelay: keepalive.DefaultInitialDelay,
		},
		Storage: StorageConfig{StatePath: "server_state.json"},
		Log:     LogConfig{Level: "info", Format: "auto"},
	}
}

// LoadConfig decodes path over Defaults. A missing file is only an error
// when required is set.
func LoadConfig(path string, required bool) (Config, error) {
	cfg := Defaults()
	cfg.Passphrase = os.Getenv(PassphraseEnv)
	if path == "" {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, &cfg)
	if errors.Is(err, os.ErrNotExist) && !required {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return Config{}, fmt.Errorf("config %s: unknown key %q", path, undec[0].String())
	}
	cfg.Path = path
	return cfg, cfg.Validate()
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	if c.Server.TCPPort < 0 || c.Server.TCPPort > 65535 {
		return fmt.Errorf("config: tcp_port %d out of range", c.Server.TCPPort)
	}
	if c.Server.UDPPort < 0 || c.Server.UDPPort > 65535 {
		return fmt.Errorf("config: udp_port %d out of range", c.Server.UDPPort)
	}
	if c.Server.MaxConnections < 0 {
		return fmt.Errorf("config: max_connections must not be negative")
	}
	if c.Storage.StatePath == "" {
		return fmt.Errorf("config: state_path is required")
	}
	return nil
}

// ServerConfig maps the file layout onto server.Config. An initial_delay of
// zero in the file disables the delay.
func (c Config) ServerConfig() server.Config {
	initialDelay := c.KeepAlive.InitialDelay
	if initialDelay == 0 {
		initialDelay = -1
	}
	return server.Config{
		Host:             c.Server.Host,
		TCPPort:          c.Server.TCPPort,
		UDPPort:          c.Server.UDPPort,
		AdvertiseHost:    c.Server.AdvertiseHost,
		MaxConnections:   c.Server.MaxConnections,
		HandshakeTimeout: c.Timeouts.Handshake,
		ResponseTimeout:  c.Timeouts.Response,
		WriteTimeout:     c.Timeouts.Write,
		MaxFrame:         c.Server.MaxFrame,
		KeepAlive: keepalive.Config{
			Interval:     c.KeepAlive.Interval,
			Timeout:      c.KeepAlive.Timeout,
			InitialDelay: initialDelay,
		},
		StatePath:  c.Storage.StatePath,
		ConfigPath: c.Path,
	}
}
