package peer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"hostlink/internal/crypto"
	"hostlink/internal/dispatch"
	"hostlink/internal/domain"
	"hostlink/internal/secure"
	"hostlink/internal/transport"
)

// ErrDisconnected is returned by Serve when the server sends Disconnect.
var ErrDisconnected = errors.New("peer: disconnected by server")

// DefaultTimeout bounds handshake steps and requests.
const DefaultTimeout = 10 * time.Second

// Handler answers a command with a response code. It is called only for
// commands the peer does not handle itself.
type Handler func(cmd domain.Message) domain.ResponseCode

// Config describes the host.
type Config struct {
	HostName  string
	MachineID string
	Timeout   time.Duration
	// Keys defaults to a fresh pair.
	Keys *crypto.KeyPair
	// SkipIdentity leaves out the host name and machine ID frames.
	SkipIdentity bool
	Handler      Handler
	Sockets      transport.Sockets
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Sockets == nil {
		c.Sockets = &transport.NetSockets{}
	}
	return c
}

// Peer is one connected host.
type Peer struct {
	cfg       Config
	ch        *secure.Channel
	serverKey crypto.PublicKey

	echo      atomic.Bool
	echoed    atomic.Int64
	responses chan domain.Message
	commands  chan domain.Message

	closeOnce sync.Once
}

// Discover asks the UDP instance at addr for the TCP endpoint.
func Discover(ctx context.Context, sock transport.Sockets, addr string, timeout time.Duration) (domain.Endpoint, error) {
	if sock == nil {
		sock = &transport.NetSockets{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	to, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return domain.Endpoint{}, fmt.Errorf("peer: resolve %s: %w", addr, err)
	}
	pc, err := sock.ListenPacket(ctx, "udp", ":0")
	if err != nil {
		return domain.Endpoint{}, fmt.Errorf("peer: listen udp: %w", err)
	}
	defer pc.Close()

	if err := secure.SendDatagram(pc, to, domain.NewRequest(domain.ActionConnect, 0, nil)); err != nil {
		return domain.Endpoint{}, err
	}
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := pc.SetReadDeadline(deadline); err != nil {
		return domain.Endpoint{}, err
	}
	m, _, err := secure.ReceiveDatagram(pc)
	if err != nil {
		return domain.Endpoint{}, fmt.Errorf("peer: discovery: %w", err)
	}
	return dispatch.DecodeEndpoint(m)
}

// Dial connects to addr, exchanges keys and sends the identity frames.
func Dial(ctx context.Context, addr string, cfg Config) (*Peer, error) {
	cfg = cfg.withDefaults()
	kp := cfg.Keys
	if kp == nil {
		fresh, err := crypto.GenerateKeyPair()
		if err != nil {
			return nil, err
		}
		kp = &fresh
	}

	conn, err := cfg.Sockets.Dial(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("peer: dial %s: %w", addr, err)
	}
	ch := secure.New(conn, *kp, 0)
	serverKey, err := ch.ExchangeKeys(cfg.Timeout)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}

	p := &Peer{
		cfg:       cfg,
		ch:        ch,
		serverKey: serverKey,
		responses: make(chan domain.Message, 16),
		commands:  make(chan domain.Message, 16),
	}
	p.echo.Store(true)

	if !cfg.SkipIdentity {
		for _, field := range []string{cfg.HostName, cfg.MachineID} {
			if err := ch.Send([]byte(field), cfg.Timeout); err != nil {
				_ = ch.Close()
				return nil, fmt.Errorf("peer: send identity: %w", err)
			}
		}
	}
	return p, nil
}

// ServerKey returns the key received during the exchange.
func (p *Peer) ServerKey() crypto.PublicKey { return p.serverKey }

// SetEchoKeepAlive turns probe echoing on or off.
func (p *Peer) SetEchoKeepAlive(on bool) { p.echo.Store(on) }

// Echoed returns the number of keep-alive probes echoed so far.
func (p *Peer) Echoed() int64 { return p.echoed.Load() }

// Responses delivers response frames from the server.
func (p *Peer) Responses() <-chan domain.Message { return p.responses }

// Commands delivers commands the peer did not handle itself.
func (p *Peer) Commands() <-chan domain.Message { return p.commands }

// Send seals m to the server.
func (p *Peer) Send(m domain.Message) error { return p.ch.Send(m, p.cfg.Timeout) }

// Request sends a request and waits for its response. Serve must be
// running.
func (p *Peer) Request(ctx context.Context, action domain.Action, payload []byte) (domain.Message, error) {
	if err := p.Send(domain.NewRequest(action, 0, payload)); err != nil {
		return domain.Message{}, err
	}
	timer := time.NewTimer(p.cfg.Timeout)
	defer timer.Stop()
	for {
		select {
		case m := <-p.responses:
			if m.Action == action {
				return m, nil
			}
		case <-timer.C:
			return domain.Message{}, fmt.Errorf("peer: %s: %w", action, context.DeadlineExceeded)
		case <-ctx.Done():
			return domain.Message{}, ctx.Err()
		}
	}
}

// Serve reads frames until the connection ends or the server disconnects
// the peer.
func (p *Peer) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = p.Close() })
	defer stop()

	for {
		m, err := p.ch.ReceiveMessage(0)
		if err != nil {
			if errors.Is(err, secure.ErrInvalidFrame) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		switch m.Kind {
		case domain.KindKeepAlive:
			if p.echo.Load() {
				if err := p.Send(m); err != nil {
					return err
				}
				p.echoed.Add(1)
			}
		case domain.KindResponse:
			select {
			case p.responses <- m:
			default:
			}
		case domain.KindCommand:
			if err := p.command(m); err != nil {
				return err
			}
		}
	}
}

func (p *Peer) command(m domain.Message) error {
	switch m.Action {
	case domain.ActionDisconnect:
		_ = p.Close()
		return ErrDisconnected
	case domain.ActionPing:
		if m.Flags.Has(domain.FlagRespondWithStatus) {
			return p.Send(domain.NewResponse(m.Action, domain.CodeOK, nil))
		}
		return nil
	}

	code := domain.CodeUnsupported
	if p.cfg.Handler != nil {
		code = p.cfg.Handler(m)
	}
	select {
	case p.commands <- m:
	default:
	}
	if m.Flags.Has(domain.FlagRespondWithStatus) {
		return p.Send(domain.NewResponse(m.Action, code, nil))
	}
	return nil
}

// Close closes the connection.
func (p *Peer) Close() error {
	var err error
	p.closeOnce.Do(func() { err = p.ch.Close() })
	return err
}
