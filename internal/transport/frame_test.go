package transport_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"hostlink/internal/transport"
)

func pipeRoundTrip(t *testing.T, payload []byte) []byte {
	t.Helper()
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	errc := make(chan error, 1)
	go func() { errc <- transport.WriteFrame(a, payload, 0) }()

	got, err := transport.ReadFrame(b, time.Second, 0)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if err := <-errc; err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	return got
}

func TestFrame_RoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 65536} {
		payload := make([]byte, n)
		for i := range payload {
			payload[i] = byte(i * 7)
		}
		got := pipeRoundTrip(t, payload)
		if !bytes.Equal(got, payload) {
			t.Fatalf("len %d: payload mismatch", n)
		}
	}
}

func TestFrame_TooLarge(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	go transport.WriteFrame(a, make([]byte, 128), 0)

	if _, err := transport.ReadFrame(b, time.Second, 64); !errors.Is(err, transport.ErrFrameTooLarge) {
		t.Fatalf("want ErrFrameTooLarge, got %v", err)
	}
}

func TestFrame_TruncatedPayloadFails(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()

	go func() {
		// Length says 10, only 3 bytes follow.
		a.Write([]byte{10, 0, 0, 0})
		a.Write([]byte{1, 2, 3})
		a.Close()
	}()

	_, err := transport.ReadFrame(b, time.Second, 0)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("want ErrUnexpectedEOF, got %v", err)
	}
	if !errors.Is(err, transport.ErrPartialFrame) {
		t.Fatalf("want ErrPartialFrame, got %v", err)
	}
}

func TestFrame_PartialHeaderTimeout(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	go a.Write([]byte{10, 0})

	_, err := transport.ReadFrame(b, 50*time.Millisecond, 0)
	if !transport.IsTimeout(err) {
		t.Fatalf("want timeout, got %v", err)
	}
	if !errors.Is(err, transport.ErrPartialFrame) {
		t.Fatalf("want ErrPartialFrame, got %v", err)
	}
}

func TestFrame_IdleTimeoutIsNotPartial(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	_, err := transport.ReadFrame(b, 20*time.Millisecond, 0)
	if !transport.IsTimeout(err) {
		t.Fatalf("want timeout, got %v", err)
	}
	if errors.Is(err, transport.ErrPartialFrame) {
		t.Fatalf("idle timeout reported as partial frame: %v", err)
	}
}

func TestFrame_TimeoutIsCleared(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	_, err := transport.ReadFrame(b, 20*time.Millisecond, 0)
	if !transport.IsTimeout(err) {
		t.Fatalf("want timeout, got %v", err)
	}

	// The next blocking read must not inherit the expired deadline.
	done := make(chan error, 1)
	go func() {
		_, err := transport.ReadFrame(b, 0, 0)
		done <- err
	}()
	time.Sleep(50 * time.Millisecond)
	if err := transport.WriteFrame(a, []byte("late"), 0); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("blocking read after timeout: %v", err)
	}
}

func TestDatagram_RoundTrip(t *testing.T) {
	socks := &transport.NetSockets{}
	ctx := context.Background()

	srv, err := socks.ListenPacket(ctx, "udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket: %v", err)
	}
	defer srv.Close()
	cli, err := socks.ListenPacket(ctx, "udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket: %v", err)
	}
	defer cli.Close()

	if err := transport.WriteDatagram(cli, srv.LocalAddr(), []byte("hello")); err != nil {
		t.Fatalf("WriteDatagram: %v", err)
	}
	srv.SetReadDeadline(time.Now().Add(2 * time.Second))
	got, from, err := transport.ReadDatagram(srv)
	if err != nil {
		t.Fatalf("ReadDatagram: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q", got)
	}
	if from.String() != cli.LocalAddr().String() {
		t.Fatalf("source %s, want %s", from, cli.LocalAddr())
	}
}
