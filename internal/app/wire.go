package app

import (
	"io"

	"github.com/rs/zerolog"

	"hostlink/internal/crypto"
	"hostlink/internal/domain"
	"hostlink/internal/logging"
	"hostlink/internal/registry"
	"hostlink/internal/server"
	"hostlink/internal/services/identity"
	"hostlink/internal/store"
)

// Wire bundles the stores, services and server for the CLI.
type Wire struct {
	Config   Config
	Log      zerolog.Logger
	State    domain.StateStore
	Identity *identity.Service
	Keys     crypto.KeyPair
	Registry *registry.Registry
	Server   *server.Server
}

// NewWire constructs the dependency graph from cfg. Logs go to logOut.
func NewWire(cfg Config, logOut io.Writer) (*Wire, error) {
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format, logOut)
	if err != nil {
		return nil, err
	}

	var keyStore domain.KeyStore
	if cfg.Storage.KeyFile != "" {
		keyStore = store.NewKeyFileStore(cfg.Storage.KeyFile)
	}
	ids := identity.New(keyStore)
	keys, created, err := ids.LoadOrGenerate(cfg.Passphrase)
	if err != nil {
		return nil, err
	}
	log.Info().
		Bool("ephemeral", ids.Ephemeral()).
		Bool("created", created).
		Str("fingerprint", identity.Fingerprint(keys)).
		Msg("server key ready")

	state := store.NewStateFileStore(cfg.Storage.StatePath)
	if _, err := state.Load(); err != nil {
		log.Warn().Err(err).Str("path", cfg.Storage.StatePath).Msg("state file unreadable; starting without prior state")
	}

	reg := registry.New(cfg.Server.MaxConnections)
	srv := server.New(cfg.ServerConfig(), server.Deps{
		Keys:     keys,
		Registry: reg,
		Store:    state,
		Log:      log,
	})

	return &Wire{
		Config:   cfg,
		Log:      log,
		State:    state,
		Identity: ids,
		Keys:     keys,
		Registry: reg,
		Server:   srv,
	}, nil
}

// Close wipes key material held by the wire.
func (w *Wire) Close() { w.Keys.Wipe() }
