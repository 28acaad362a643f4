package secure

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"hostlink/internal/codec"
	"hostlink/internal/crypto"
	"hostlink/internal/domain"
	"hostlink/internal/transport"
)

var (
	// ErrInvalidFrame is returned when a frame fails the decrypt validity check.
	ErrInvalidFrame = errors.New("secure: frame failed validity check")
	// ErrNoPeerKey is returned by Send before a key exchange completed.
	ErrNoPeerKey = errors.New("secure: peer key not exchanged")
	// ErrKeyExchange wraps every key exchange failure.
	ErrKeyExchange = errors.New("secure: key exchange failed")
)

// Channel is a sealed, framed stream to one peer.
type Channel struct {
	conn     net.Conn
	local    crypto.KeyPair
	maxFrame int

	wmu sync.Mutex

	mu      sync.RWMutex
	peer    crypto.PublicKey
	hasPeer bool
}

// New wraps conn. maxFrame <= 0 uses transport.DefaultMaxFrame.
func New(conn net.Conn, local crypto.KeyPair, maxFrame int) *Channel {
	return &Channel{conn: conn, local: local, maxFrame: maxFrame}
}

// Conn returns the underlying connection.
func (c *Channel) Conn() net.Conn { return c.conn }

// PeerKey returns the peer's public key once exchanged.
func (c *Channel) PeerKey() (crypto.PublicKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.peer, c.hasPeer
}

// ExchangeKeys sends our public key frame then reads the peer's. Both sides
// run the same sequence. Any partial step fails the exchange and leaves the
// channel without a peer key.
func (c *Channel) ExchangeKeys(timeout time.Duration) (crypto.PublicKey, error) {
	c.wmu.Lock()
	err := transport.WriteFrame(c.conn, c.local.Public.Slice(), timeout)
	c.wmu.Unlock()
	if err != nil {
		return crypto.PublicKey{}, fmt.Errorf("%w: send key: %w", ErrKeyExchange, err)
	}

	raw, err := transport.ReadFrame(c.conn, timeout, crypto.KeySize)
	if err != nil {
		return crypto.PublicKey{}, fmt.Errorf("%w: receive key: %w", ErrKeyExchange, err)
	}
	peer, err := crypto.ParsePublicKey(raw)
	if err != nil {
		return crypto.PublicKey{}, fmt.Errorf("%w: %w", ErrKeyExchange, err)
	}

	c.mu.Lock()
	c.peer, c.hasPeer = peer, true
	c.mu.Unlock()
	return peer, nil
}

// Transmit serializes v (raw []byte passes through), seals it to key when key
// is non-nil, and writes one frame.
func (c *Channel) Transmit(v any, key *crypto.PublicKey, timeout time.Duration) error {
	payload, err := encode(v, key)
	if err != nil {
		return err
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return transport.WriteFrame(c.conn, payload, timeout)
}

// Send seals v to the exchanged peer key.
func (c *Channel) Send(v any, timeout time.Duration) error {
	peer, ok := c.PeerKey()
	if !ok {
		return ErrNoPeerKey
	}
	return c.Transmit(v, &peer, timeout)
}

// ReceiveRaw reads one frame without opening it.
func (c *Channel) ReceiveRaw(timeout time.Duration) ([]byte, error) {
	return transport.ReadFrame(c.conn, timeout, c.maxFrame)
}

// ReceiveSealed reads one frame and opens it.
func (c *Channel) ReceiveSealed(timeout time.Duration) ([]byte, error) {
	raw, err := c.ReceiveRaw(timeout)
	if err != nil {
		return nil, err
	}
	return c.Open(raw)
}

// ReceiveMessage reads, opens and decodes one message.
func (c *Channel) ReceiveMessage(timeout time.Duration) (domain.Message, error) {
	raw, err := c.ReceiveRaw(timeout)
	if err != nil {
		return domain.Message{}, err
	}
	return c.OpenMessage(raw)
}

// Open applies the validity gate to a frame.
func (c *Channel) Open(frame []byte) ([]byte, error) {
	plain, err := crypto.Open(frame, c.local)
	if err != nil {
		return nil, ErrInvalidFrame
	}
	return plain, nil
}

// OpenMessage opens a frame and decodes it as a message.
func (c *Channel) OpenMessage(frame []byte) (domain.Message, error) {
	plain, err := c.Open(frame)
	if err != nil {
		return domain.Message{}, err
	}
	return codec.DecodeMessage(plain)
}

// Close closes the underlying connection.
func (c *Channel) Close() error { return c.conn.Close() }

func encode(v any, key *crypto.PublicKey) ([]byte, error) {
	var payload []byte
	if b, ok := v.([]byte); ok {
		payload = b
	} else {
		b, err := codec.Marshal(v)
		if err != nil {
			return nil, err
		}
		payload = b
	}
	if key == nil {
		return payload, nil
	}
	return crypto.Seal(payload, *key)
}
