package server

import (
	"errors"
	"net"

	"hostlink/internal/domain"
	"hostlink/internal/secure"
)

// udpLoop answers discovery datagrams one at a time.
func (s *Server) udpLoop() {
	log := s.log.With().Stringer("proto", domain.ProtoUDP).Logger()
	for {
		m, src, err := secure.ReceiveDatagram(s.pc)
		if err != nil {
			if errors.Is(err, net.ErrClosed) || s.ctx.Err() != nil {
				return
			}
			log.Debug().Err(err).Msg("datagram discarded")
			continue
		}
		if m.Kind != domain.KindRequest {
			log.Debug().Stringer("kind", m.Kind).Msg("unexpected datagram kind")
			continue
		}
		s.disp.Perform(s.ctx, m, domain.ProtoUDP, 0, src)
	}
}
