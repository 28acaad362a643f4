package secure

import (
	"net"

	"hostlink/internal/codec"
	"hostlink/internal/domain"
	"hostlink/internal/transport"
)

// SendDatagram writes a plain message to addr. Discovery traffic is not
// encrypted: no keys exist before the TCP session.
func SendDatagram(pc net.PacketConn, addr net.Addr, m domain.Message) error {
	b, err := codec.Marshal(m)
	if err != nil {
		return err
	}
	return transport.WriteDatagram(pc, addr, b)
}

// ReceiveDatagram reads and decodes one plain message.
func ReceiveDatagram(pc net.PacketConn) (domain.Message, net.Addr, error) {
	b, addr, err := transport.ReadDatagram(pc)
	if err != nil {
		return domain.Message{}, addr, err
	}
	m, err := codec.DecodeMessage(b)
	return m, addr, err
}
