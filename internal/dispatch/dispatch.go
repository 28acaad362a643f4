package dispatch

import (
	"context"
	"net"

	"github.com/rs/zerolog"

	"hostlink/internal/crypto"
	"hostlink/internal/domain"
	"hostlink/internal/session"
)

// Server is the part of the lifecycle manager the dispatcher drives.
type Server interface {
	Session(id uint64) (*session.Session, bool)
	Evict(s *session.Session, reason string) bool
	Advertised(ctx context.Context) (domain.Endpoint, error)
	ReplyDatagram(to net.Addr, m domain.Message) error
	Reply(s *session.Session, m domain.Message) error
	PublicKey() crypto.PublicKey
	Record(machineID string) (domain.ClientRecord, bool, error)
}

// Dispatcher routes requests to handlers.
type Dispatcher struct {
	srv Server
	log zerolog.Logger
}

// New returns a dispatcher driving srv.
func New(srv Server, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{srv: srv, log: log.With().Str("component", "dispatch").Logger()}
}

// Perform handles req received over proto. sessionID is zero for UDP; src
// is the datagram source and nil for TCP. It reports whether the request
// was acted upon.
func (d *Dispatcher) Perform(ctx context.Context, req domain.Message, proto domain.Protocol, sessionID uint64, src net.Addr) bool {
	if !req.Valid {
		return false
	}
	log := d.log.With().Stringer("action", req.Action).Stringer("proto", proto).Uint64("session_id", sessionID).Int("payload", req.PayloadLen()).Logger()

	if proto == domain.ProtoUDP {
		if req.Action != domain.ActionConnect || src == nil {
			log.Debug().Msg("request not accepted over udp")
			return false
		}
		return d.connect(ctx, log, src)
	}

	s, ok := d.srv.Session(sessionID)
	if !ok || !s.Alive() {
		log.Debug().Msg("request for missing session")
		return false
	}

	switch req.Action {
	case domain.ActionDisconnect:
		return d.disconnect(log, s, req)
	case domain.ActionRequestPublicKey:
		pub := d.srv.PublicKey()
		return d.reply(log, s, domain.NewResponse(req.Action, domain.CodeOK, pub.Slice()))
	case domain.ActionRequestEnrollmentID:
		return d.enrollmentID(log, s, req)
	case domain.ActionQueryStatus:
		return d.status(log, s, req)
	case domain.ActionPing:
		return d.reply(log, s, domain.NewResponse(req.Action, domain.CodeOK, nil))
	default:
		log.Debug().Msg("unhandled action")
		return false
	}
}

func (d *Dispatcher) connect(ctx context.Context, log zerolog.Logger, src net.Addr) bool {
	ep, err := d.srv.Advertised(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("resolve advertised endpoint")
		return false
	}
	if err := d.srv.ReplyDatagram(src, connectResponse(ep)); err != nil {
		log.Warn().Err(err).Stringer("to", src).Msg("send endpoint")
		return false
	}
	log.Info().Stringer("to", src).Str("endpoint", ep.String()).Msg("endpoint sent")
	return true
}

func (d *Dispatcher) disconnect(log zerolog.Logger, s *session.Session, req domain.Message) bool {
	if req.Flags.Has(domain.FlagRespondWithStatus) {
		if err := d.srv.Reply(s, domain.NewResponse(req.Action, domain.CodeOK, nil)); err != nil {
			log.Debug().Err(err).Msg("disconnect acknowledgement")
		}
	}
	d.srv.Evict(s, "host requested disconnect")
	return true
}

func (d *Dispatcher) enrollmentID(log zerolog.Logger, s *session.Session, req domain.Message) bool {
	id := s.EnrollmentID()
	if id == "" {
		if _, machineID := s.Identity(); machineID != "" {
			rec, ok, err := d.srv.Record(machineID)
			if err != nil {
				log.Warn().Err(err).Msg("state lookup")
			}
			if ok {
				id = rec.EnrollmentID
			}
		}
	}
	if id == "" {
		return d.reply(log, s, domain.NewResponse(req.Action, domain.CodeNotFound, nil))
	}
	return d.reply(log, s, domain.NewResponse(req.Action, domain.CodeOK, []byte(id)))
}

func (d *Dispatcher) status(log zerolog.Logger, s *session.Session, req domain.Message) bool {
	code := domain.CodeNotFound
	if _, machineID := s.Identity(); machineID != "" {
		_, ok, err := d.srv.Record(machineID)
		if err != nil {
			log.Warn().Err(err).Msg("state lookup")
			code = domain.CodeError
		} else if ok {
			code = domain.CodeOK
		}
	}
	return d.reply(log, s, domain.NewResponse(req.Action, code, nil))
}

func (d *Dispatcher) reply(log zerolog.Logger, s *session.Session, m domain.Message) bool {
	if err := d.srv.Reply(s, m); err != nil {
		log.Warn().Err(err).Msg("reply")
		return false
	}
	return true
}
