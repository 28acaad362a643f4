package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"hostlink/internal/crypto"
	"hostlink/internal/dispatch"
	"hostlink/internal/domain"
	"hostlink/internal/registry"
	"hostlink/internal/transport"
)

var (
	// ErrUnknownSession is returned for IDs not in the registry.
	ErrUnknownSession = errors.New("server: unknown session")
	// ErrSessionClosed is returned when a session closes while a caller waits on it.
	ErrSessionClosed = errors.New("server: session closed")
	// ErrStarted is returned by a second Start.
	ErrStarted = errors.New("server: already started")
)

// Deps are the collaborators of a Server.
type Deps struct {
	Sockets  transport.Sockets
	Keys     crypto.KeyPair
	Registry *registry.Registry
	// Store may be nil; persistence is then skipped.
	Store domain.StateStore
	Log   zerolog.Logger
	// NewEnrollmentID defaults to random UUIDs.
	NewEnrollmentID func() string
}

// Server is the connection lifecycle manager.
type Server struct {
	cfg   Config
	sock  transport.Sockets
	keys  crypto.KeyPair
	reg   *registry.Registry
	store domain.StateStore
	log   zerolog.Logger
	disp  *dispatch.Dispatcher
	newID func() string

	tcp Instance
	udp Instance

	mu      sync.Mutex
	started bool
	ln      net.Listener
	pc      net.PacketConn
	ctx     context.Context
	cancel  context.CancelFunc

	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// New builds a server. Nothing is bound until Start.
func New(cfg Config, deps Deps) *Server {
	cfg = cfg.withDefaults()
	if deps.Sockets == nil {
		deps.Sockets = &transport.NetSockets{}
	}
	if deps.Registry == nil {
		deps.Registry = registry.New(cfg.MaxConnections)
	}
	if deps.NewEnrollmentID == nil {
		deps.NewEnrollmentID = uuid.NewString
	}
	s := &Server{
		cfg:   cfg,
		sock:  deps.Sockets,
		keys:  deps.Keys,
		reg:   deps.Registry,
		store: deps.Store,
		log:   deps.Log.With().Str("component", "server").Logger(),
		newID: deps.NewEnrollmentID,
	}
	s.disp = dispatch.New(s, deps.Log)
	return s
}

// Start binds both instances and launches the accept and discovery loops.
// The loops stop when ctx ends or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrStarted
	}

	ln, err := s.sock.Listen(ctx, "tcp", net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.TCPPort)))
	if err != nil {
		return fmt.Errorf("server: listen tcp: %w", err)
	}
	pc, err := s.sock.ListenPacket(ctx, "udp", net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.UDPPort)))
	if err != nil {
		_ = ln.Close()
		return fmt.Errorf("server: listen udp: %w", err)
	}

	s.ln, s.pc = ln, pc
	s.tcp.bind(domain.ProtoTCP, ln.Addr())
	s.udp.bind(domain.ProtoUDP, pc.LocalAddr())
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true

	s.wg.Add(3)
	go func() {
		defer s.wg.Done()
		s.acceptLoop()
	}()
	go func() {
		defer s.wg.Done()
		s.udpLoop()
	}()
	go func() {
		defer s.wg.Done()
		<-s.ctx.Done()
		s.Shutdown()
	}()

	s.log.Info().
		Stringer("tcp", ln.Addr()).
		Stringer("udp", pc.LocalAddr()).
		Str("key", crypto.Fingerprint(s.keys.Public)).
		Int("max_connections", s.cfg.MaxConnections).
		Msg("server started")
	s.persist()
	return nil
}

// TCP returns the TCP instance.
func (s *Server) TCP() *Instance { return &s.tcp }

// UDP returns the UDP instance.
func (s *Server) UDP() *Instance { return &s.udp }

// Shutdown stops both instances, persists state and closes every session.
// It is safe to call more than once.
func (s *Server) Shutdown() {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return
	}
	s.shutdownOnce.Do(func() {
		s.tcp.stop()
		s.udp.stop()
		s.cancel()
		_ = s.ln.Close()
		_ = s.pc.Close()

		s.persist()
		for _, sess := range s.reg.Snapshot() {
			sess.Close()
			s.reg.Remove(sess.ID())
		}
		s.log.Info().Msg("server stopped")
	})
}

// Wait blocks until every server goroutine has returned.
func (s *Server) Wait() { s.wg.Wait() }

// serverInfo describes the running server for the state file.
func (s *Server) serverInfo(connections int) domain.ServerInfo {
	return domain.ServerInfo{
		Connections:      connections,
		MaxConnections:   s.cfg.MaxConnections,
		ServerStatePath:  s.cfg.StatePath,
		ServerConfigPath: s.cfg.ConfigPath,
		UDPPort:          s.udp.Port(),
		TCPPort:          s.tcp.Port(),
		DomainName:       s.cfg.AdvertiseHost,
	}
}

// persist writes the registry snapshot plus any departed records. Failures
// are logged only.
func (s *Server) persist(departed ...domain.ClientRecord) {
	if s.store == nil {
		return
	}
	snap := s.reg.Snapshot()
	records := make([]domain.ClientRecord, 0, len(snap)+len(departed))
	for _, sess := range snap {
		records = append(records, sess.Record())
	}
	records = append(records, departed...)
	if err := s.store.Save(s.serverInfo(len(snap)), records); err != nil {
		s.log.Error().Err(err).Msg("persist state")
	}
}
