package server

import (
	"net"
	"sync/atomic"

	"hostlink/internal/domain"
)

// Instance describes one bound listener.
type Instance struct {
	proto     domain.Protocol
	addr      net.Addr
	port      int
	alive     atomic.Bool
	accepting atomic.Bool
}

func (i *Instance) bind(proto domain.Protocol, addr net.Addr) {
	i.proto = proto
	i.addr = addr
	switch a := addr.(type) {
	case *net.TCPAddr:
		i.port = a.Port
	case *net.UDPAddr:
		i.port = a.Port
	}
	i.alive.Store(true)
	i.accepting.Store(true)
}

func (i *Instance) stop() {
	i.accepting.Store(false)
	i.alive.Store(false)
}

// Protocol returns the transport.
func (i *Instance) Protocol() domain.Protocol { return i.proto }

// Addr returns the bound address.
func (i *Instance) Addr() net.Addr { return i.addr }

// Port returns the bound port.
func (i *Instance) Port() int { return i.port }

// Alive reports whether the listener is open.
func (i *Instance) Alive() bool { return i.alive.Load() }

// Accepting reports whether new work is taken.
func (i *Instance) Accepting() bool { return i.accepting.Load() }
