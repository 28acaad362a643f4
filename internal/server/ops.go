package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"hostlink/internal/crypto"
	"hostlink/internal/dispatch"
	"hostlink/internal/domain"
	"hostlink/internal/secure"
	"hostlink/internal/session"
)

// Evict closes sess, removes it and persists the registry together with the
// departing host's record. Only the first call for a session does anything;
// it reports whether this call evicted.
func (s *Server) Evict(sess *session.Session, reason string) bool {
	if !sess.Close() {
		return false
	}
	rec := sess.Record()
	s.reg.Remove(sess.ID())
	s.persist(rec)
	host, _ := sess.Identity()
	s.log.Info().Uint64("session_id", sess.ID()).Str("host", host).Str("reason", reason).Msg("session evicted")
	return true
}

// Session looks up a live session.
func (s *Server) Session(id uint64) (*session.Session, bool) { return s.reg.Lookup(id) }

// PublicKey returns the server public key.
func (s *Server) PublicKey() crypto.PublicKey { return s.keys.Public }

// Record returns the persisted record for machineID.
func (s *Server) Record(machineID string) (domain.ClientRecord, bool, error) {
	if s.store == nil {
		return domain.ClientRecord{}, false, nil
	}
	return s.store.Lookup(machineID)
}

// Reply sends m sealed to the session's peer.
func (s *Server) Reply(sess *session.Session, m domain.Message) error {
	return sess.Channel().Send(m, s.cfg.WriteTimeout)
}

// ReplyDatagram sends m in plain over the UDP instance.
func (s *Server) ReplyDatagram(to net.Addr, m domain.Message) error {
	return secure.SendDatagram(s.pc, to, m)
}

// Advertised returns the TCP endpoint hosts should dial.
func (s *Server) Advertised(ctx context.Context) (domain.Endpoint, error) {
	port := s.tcp.Port()
	if h := s.cfg.AdvertiseHost; h != "" {
		if ip := net.ParseIP(h); ip != nil {
			return domain.Endpoint{Host: ip.String(), Port: port}, nil
		}
		addrs, err := net.DefaultResolver.LookupHost(ctx, h)
		if err != nil {
			return domain.Endpoint{}, fmt.Errorf("server: resolve %s: %w", h, err)
		}
		if len(addrs) == 0 {
			return domain.Endpoint{}, fmt.Errorf("server: resolve %s: no addresses", h)
		}
		return domain.Endpoint{Host: addrs[0], Port: port}, nil
	}
	if a, ok := s.tcp.Addr().(*net.TCPAddr); ok && a.IP != nil && !a.IP.IsUnspecified() {
		return domain.Endpoint{Host: a.IP.String(), Port: port}, nil
	}
	return domain.Endpoint{Host: "127.0.0.1", Port: port}, nil
}

// SendCommand sends a command to one session. When the command carries
// FlagRespondWithStatus the call waits for the host's response.
func (s *Server) SendCommand(ctx context.Context, id uint64, cmd domain.Message) (domain.Message, error) {
	sess, ok := s.reg.Lookup(id)
	if !ok {
		return domain.Message{}, fmt.Errorf("%w: %d", ErrUnknownSession, id)
	}
	return s.request(ctx, sess, cmd)
}

func (s *Server) request(ctx context.Context, sess *session.Session, cmd domain.Message) (domain.Message, error) {
	wait := cmd.Flags.Has(domain.FlagRespondWithStatus)
	var slot <-chan domain.Message
	if wait {
		slot = sess.ExpectResponse(cmd.Action)
	}
	if err := s.Reply(sess, cmd); err != nil {
		if wait {
			sess.CancelResponse(cmd.Action, slot)
		}
		s.Evict(sess, "send: "+err.Error())
		return domain.Message{}, err
	}
	if !wait {
		return domain.Message{}, nil
	}

	timer := time.NewTimer(s.cfg.ResponseTimeout)
	defer timer.Stop()
	select {
	case m := <-slot:
		return m, nil
	case <-timer.C:
		sess.CancelResponse(cmd.Action, slot)
		return domain.NewResponse(cmd.Action, domain.CodeTimeout, nil), nil
	case <-sess.Done():
		return domain.Message{}, ErrSessionClosed
	case <-ctx.Done():
		sess.CancelResponse(cmd.Action, slot)
		return domain.Message{}, ctx.Err()
	}
}

// Ping measures the round trip of a ping command.
func (s *Server) Ping(ctx context.Context, id uint64) (domain.ResponseCode, time.Duration, error) {
	start := time.Now()
	resp, err := s.SendCommand(ctx, id, domain.NewCommand(domain.ActionPing, domain.FlagRespondWithStatus, nil))
	if err != nil {
		return domain.CodeNone, 0, err
	}
	return resp.Code, time.Since(start), nil
}

// Broadcast sends cmd to every live session and evicts those that fail.
// It returns the number of sessions reached.
func (s *Server) Broadcast(cmd domain.Message) int {
	cmd.Flags |= domain.FlagBroadcast
	var failed []*session.Session
	sent := 0
	s.reg.ForEach(func(_ uint64, sess *session.Session) {
		if err := sess.Channel().Send(cmd, s.cfg.WriteTimeout); err != nil {
			failed = append(failed, sess)
			return
		}
		sent++
	})
	for _, sess := range failed {
		s.Evict(sess, "broadcast send failed")
	}
	return sent
}

// Kick tells the host to disconnect, then evicts it.
func (s *Server) Kick(id uint64) error {
	sess, ok := s.reg.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSession, id)
	}
	if err := s.Reply(sess, domain.NewCommand(domain.ActionDisconnect, 0, nil)); err != nil {
		s.log.Debug().Err(err).Uint64("session_id", id).Msg("disconnect command")
	}
	s.Evict(sess, "kicked by operator")
	return nil
}

// KickAll kicks every live session and returns how many were kicked.
func (s *Server) KickAll() int {
	n := 0
	for _, sess := range s.reg.Snapshot() {
		if s.Kick(sess.ID()) == nil {
			n++
		}
	}
	return n
}

// Info is an operator view of a session.
type Info struct {
	ID           uint64
	Addr         string
	HostName     string
	MachineID    string
	EnrollmentID string
	Phase        session.Phase
	LastSeen     time.Time
}

// Sessions lists live sessions ordered by ID.
func (s *Server) Sessions() []Info {
	snap := s.reg.Snapshot()
	out := make([]Info, 0, len(snap))
	for _, sess := range snap {
		host, mid := sess.Identity()
		out = append(out, Info{
			ID:           sess.ID(),
			Addr:         sess.Addr().String(),
			HostName:     host,
			MachineID:    mid,
			EnrollmentID: sess.EnrollmentID(),
			Phase:        sess.Phase(),
			LastSeen:     sess.LastSeen(),
		})
	}
	return out
}

var _ dispatch.Server = (*Server)(nil)
