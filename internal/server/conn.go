package server

import (
	"errors"
	"net"
	"time"

	"github.com/rs/zerolog"

	"hostlink/internal/domain"
	"hostlink/internal/keepalive"
	"hostlink/internal/secure"
	"hostlink/internal/session"
	"hostlink/internal/transport"
)

func (s *Server) acceptLoop() {
	log := s.log.With().Stringer("proto", domain.ProtoTCP).Logger()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || s.ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Msg("accept")
			select {
			case <-s.ctx.Done():
				return
			case <-time.After(50 * time.Millisecond):
			}
			continue
		}
		if !s.tcp.Accepting() || s.reg.Full() {
			log.Warn().Stringer("remote", conn.RemoteAddr()).Int("max_connections", s.cfg.MaxConnections).
				Msg("connection refused: registry full")
			_ = conn.Close()
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn)
		}()
	}
}

// handle drives one connection from accept to eviction.
func (s *Server) handle(conn net.Conn) {
	sess := session.New(secure.New(conn, s.keys, s.cfg.MaxFrame))
	id, err := s.reg.Insert(sess)
	if err != nil {
		s.log.Warn().Err(err).Stringer("remote", conn.RemoteAddr()).Msg("connection refused")
		sess.Close()
		return
	}
	if s.ctx.Err() != nil {
		sess.Close()
		s.reg.Remove(id)
		return
	}
	log := s.log.With().Uint64("session_id", id).Stringer("remote", conn.RemoteAddr()).Logger()
	log.Debug().Msg("connection accepted")

	if _, err := sess.Channel().ExchangeKeys(s.cfg.HandshakeTimeout); err != nil {
		log.Warn().Err(err).Msg("key exchange failed")
		sess.Close()
		s.reg.Remove(id)
		return
	}
	sess.Advance(session.PhaseKeyExchanged)

	if !s.identify(log, sess) {
		sess.Close()
		s.reg.Remove(id)
		return
	}
	s.restore(log, sess)

	sess.Advance(session.PhaseActive)
	sess.Touch()
	s.persist()
	host, machineID := sess.Identity()
	log.Info().Str("host", host).Str("machine_id", machineID).Msg("session active")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		keepalive.Run(s.ctx, s.cfg.KeepAlive, sess,
			func(timeout time.Duration) error {
				return sess.Channel().Send(domain.KeepAliveProbe(), timeout)
			},
			func(reason string) { s.Evict(sess, reason) },
		)
	}()

	s.receiveLoop(log, sess)
}

// identify reads the sealed host name then the sealed machine ID. Either
// may be missing and the session continues without it. It returns false
// when the stream can no longer be trusted to sit on a frame boundary.
func (s *Server) identify(log zerolog.Logger, sess *session.Session) bool {
	ch := sess.Channel()
	host, err := ch.ReceiveSealed(s.cfg.HandshakeTimeout)
	if err != nil {
		if !skippable(err) {
			log.Warn().Err(err).Msg("identity read failed")
			return false
		}
		log.Warn().Err(err).Msg("host name not received")
	}
	machineID, err := ch.ReceiveSealed(s.cfg.HandshakeTimeout)
	if err != nil {
		if !skippable(err) {
			log.Warn().Err(err).Msg("identity read failed")
			return false
		}
		log.Warn().Err(err).Msg("machine id not received")
	}
	sess.SetIdentity(string(host), string(machineID))
	sess.Advance(session.PhaseIdentityResolved)
	return true
}

// skippable reports whether an identity read failed on a frame boundary: a
// whole frame that did not open, or a deadline that expired before any byte
// of the next frame arrived.
func skippable(err error) bool {
	if errors.Is(err, secure.ErrInvalidFrame) {
		return true
	}
	return transport.IsTimeout(err) && !errors.Is(err, transport.ErrPartialFrame)
}

// restore merges the persisted record for the machine ID, and enrolls hosts
// seen for the first time.
func (s *Server) restore(log zerolog.Logger, sess *session.Session) {
	_, machineID := sess.Identity()
	if machineID == "" {
		return
	}
	if s.store != nil {
		rec, ok, err := s.store.Lookup(machineID)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("state unreadable; treating host as new")
		case ok:
			sess.Restore(rec)
			sess.Advance(session.PhaseStateRestored)
			log.Debug().Str("enrollment_id", rec.EnrollmentID).Msg("state restored")
		}
	}
	if sess.EnrollmentID() == "" {
		sess.SetEnrollmentID(s.newID())
	}
}

// receiveLoop is the only reader of the session socket.
func (s *Server) receiveLoop(log zerolog.Logger, sess *session.Session) {
	ch := sess.Channel()
	for {
		raw, err := ch.ReceiveRaw(0)
		if err != nil {
			if sess.Alive() {
				s.Evict(sess, "read: "+err.Error())
			}
			return
		}
		m, err := ch.OpenMessage(raw)
		if err != nil {
			log.Debug().Err(err).Msg("frame discarded")
			continue
		}
		sess.Touch()

		switch m.Kind {
		case domain.KindKeepAlive:
			if !sess.DeliverEcho(m) {
				log.Debug().Msg("stale keep-alive echo")
			}
		case domain.KindResponse:
			if !sess.DeliverResponse(m) {
				log.Debug().Stringer("action", m.Action).Msg("unsolicited response")
			}
		case domain.KindRequest:
			s.disp.Perform(s.ctx, m, domain.ProtoTCP, sess.ID(), nil)
		default:
			log.Debug().Stringer("kind", m.Kind).Msg("unexpected frame kind")
		}
	}
}
