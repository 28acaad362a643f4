package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

const (
	// HeaderSize is the length prefix size.
	HeaderSize = 4
	// DefaultMaxFrame bounds a single frame.
	DefaultMaxFrame = 16 << 20
	// MaxDatagram is the largest UDP payload we read.
	MaxDatagram = 64 << 10
)

var (
	// ErrFrameTooLarge is returned when a length prefix exceeds the limit.
	ErrFrameTooLarge = errors.New("transport: frame too large")
	// ErrShortDatagram is returned when a datagram disagrees with its prefix.
	ErrShortDatagram = errors.New("transport: datagram length mismatch")
	// ErrPartialFrame is returned when a read stops inside a frame. The
	// stream is out of step and the connection must be dropped.
	ErrPartialFrame = errors.New("transport: partial frame")
)

// WriteFrame writes the length prefix then payload. A non-zero timeout bounds
// this call only.
func WriteFrame(conn net.Conn, payload []byte, timeout time.Duration) error {
	if timeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return fmt.Errorf("transport: set write deadline: %w", err)
		}
		defer conn.SetWriteDeadline(time.Time{})
	}

	var hdr [HeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(payload)))
	if err := writeAll(conn, hdr[:]); err != nil {
		return fmt.Errorf("transport: write length: %w", err)
	}
	if err := writeAll(conn, payload); err != nil {
		return fmt.Errorf("transport: write payload: %w", err)
	}
	return nil
}

// writeAll retries short writes and stops at the first error.
func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

// ReadFrame reads one length-prefixed frame. maxSize <= 0 means
// DefaultMaxFrame. An error after part of the frame was consumed wraps
// ErrPartialFrame.
func ReadFrame(conn net.Conn, timeout time.Duration, maxSize int) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFrame
	}
	if timeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return nil, fmt.Errorf("transport: set read deadline: %w", err)
		}
		defer conn.SetReadDeadline(time.Time{})
	}

	var hdr [HeaderSize]byte
	if n, err := io.ReadFull(conn, hdr[:]); err != nil {
		if n > 0 {
			return nil, fmt.Errorf("%w: read length: %w", ErrPartialFrame, err)
		}
		return nil, fmt.Errorf("transport: read length: %w", err)
	}
	size := binary.LittleEndian.Uint32(hdr[:])
	if uint64(size) > uint64(maxSize) {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, size, maxSize)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(conn, buf); err != nil {
		return nil, fmt.Errorf("%w: read payload: %w", ErrPartialFrame, err)
	}
	return buf, nil
}

// WriteDatagram sends prefix and payload as one datagram to addr.
func WriteDatagram(pc net.PacketConn, addr net.Addr, payload []byte) error {
	if len(payload)+HeaderSize > MaxDatagram {
		return fmt.Errorf("%w: %d", ErrFrameTooLarge, len(payload))
	}
	buf := make([]byte, HeaderSize+len(payload))
	binary.LittleEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[HeaderSize:], payload)
	if _, err := pc.WriteTo(buf, addr); err != nil {
		return fmt.Errorf("transport: write datagram: %w", err)
	}
	return nil
}

// ReadDatagram reads one framed datagram and returns its payload and source.
func ReadDatagram(pc net.PacketConn) ([]byte, net.Addr, error) {
	buf := make([]byte, MaxDatagram)
	n, addr, err := pc.ReadFrom(buf)
	if err != nil {
		return nil, nil, fmt.Errorf("transport: read datagram: %w", err)
	}
	if n < HeaderSize {
		return nil, addr, ErrShortDatagram
	}
	size := binary.LittleEndian.Uint32(buf[:HeaderSize])
	if int(size) != n-HeaderSize {
		return nil, addr, fmt.Errorf("%w: prefix %d, body %d", ErrShortDatagram, size, n-HeaderSize)
	}
	out := make([]byte, size)
	copy(out, buf[HeaderSize:n])
	return out, addr, nil
}

// IsTimeout reports whether err came from an expired deadline.
func IsTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
