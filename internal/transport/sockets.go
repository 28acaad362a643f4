package transport

import (
	"context"
	"net"
)

// Sockets is the socket capability used by the server and peers.
type Sockets interface {
	Listen(ctx context.Context, network, addr string) (net.Listener, error)
	ListenPacket(ctx context.Context, network, addr string) (net.PacketConn, error)
	Dial(ctx context.Context, network, addr string) (net.Conn, error)
}

// NetSockets implements Sockets over the net package.
type NetSockets struct {
	Listener net.ListenConfig
	Dialer   net.Dialer
}

// Listen binds and listens on a stream address.
func (s *NetSockets) Listen(ctx context.Context, network, addr string) (net.Listener, error) {
	return s.Listener.Listen(ctx, network, addr)
}

// ListenPacket binds a datagram address.
func (s *NetSockets) ListenPacket(ctx context.Context, network, addr string) (net.PacketConn, error) {
	return s.Listener.ListenPacket(ctx, network, addr)
}

// Dial connects to addr.
func (s *NetSockets) Dial(ctx context.Context, network, addr string) (net.Conn, error) {
	return s.Dialer.DialContext(ctx, network, addr)
}

// Compile-time assertion that NetSockets implements Sockets.
var _ Sockets = (*NetSockets)(nil)
