package keepalive_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hostlink/internal/keepalive"
)

type fakeTarget struct {
	mu    sync.Mutex
	echo  bool
	res   chan bool
	done  chan struct{}
	once  sync.Once
	probe atomic.Int32
}

func newFake(echo bool) *fakeTarget {
	return &fakeTarget{echo: echo, done: make(chan struct{})}
}

func (f *fakeTarget) Alive() bool {
	select {
	case <-f.done:
		return false
	default:
		return true
	}
}

func (f *fakeTarget) BeginKeepAlive() <-chan bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.res = make(chan bool, 1)
	return f.res
}

func (f *fakeTarget) EndKeepAlive() {}

func (f *fakeTarget) Done() <-chan struct{} { return f.done }

func (f *fakeTarget) close() { f.once.Do(func() { close(f.done) }) }

// send mimics the receive loop: echoing targets deliver a result.
func (f *fakeTarget) send(time.Duration) error {
	f.probe.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.echo {
		f.res <- true
	}
	return nil
}

var fast = keepalive.Config{
	Interval:     10 * time.Millisecond,
	Timeout:      20 * time.Millisecond,
	InitialDelay: -1,
}

func TestRun_NoEchoEvictsOnce(t *testing.T) {
	f := newFake(false)
	var evicted []string
	done := make(chan struct{})
	go func() {
		defer close(done)
		keepalive.Run(context.Background(), fast, f, f.send, func(r string) {
			evicted = append(evicted, r)
			f.close()
		})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop")
	}
	if len(evicted) != 1 || evicted[0] != keepalive.ReasonNoEcho {
		t.Fatalf("evictions = %v", evicted)
	}
}

func TestRun_EchoKeepsSession(t *testing.T) {
	f := newFake(true)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var evictions atomic.Int32
	go func() {
		defer close(done)
		keepalive.Run(ctx, fast, f, f.send, func(string) { evictions.Add(1) })
	}()

	deadline := time.Now().Add(2 * time.Second)
	for f.probe.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatal("fewer than 3 probes sent")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
	if evictions.Load() != 0 {
		t.Fatal("echoing session evicted")
	}
}

func TestRun_SendFailureEvicts(t *testing.T) {
	f := newFake(false)
	var reason string
	keepalive.Run(context.Background(), fast, f, func(time.Duration) error {
		return errors.New("broken pipe")
	}, func(r string) { reason = r })
	if reason != keepalive.ReasonSendFailed {
		t.Fatalf("reason = %q", reason)
	}
}

func TestRun_ClosedSessionStopsQuietly(t *testing.T) {
	f := newFake(false)
	f.close()
	called := false
	keepalive.Run(context.Background(), fast, f, f.send, func(string) { called = true })
	if called {
		t.Fatal("evict called for a closed session")
	}
	if f.probe.Load() != 0 {
		t.Fatal("probe sent to a closed session")
	}
}

func TestWithDefaults(t *testing.T) {
	c := keepalive.Config{}.WithDefaults()
	if c.Interval != keepalive.DefaultInterval || c.Timeout != keepalive.DefaultTimeout ||
		c.InitialDelay != keepalive.DefaultInitialDelay || c.SendTimeout != c.Timeout {
		t.Fatalf("defaults = %+v", c)
	}
}

func TestWithDefaults_Idempotent(t *testing.T) {
	in := keepalive.Config{InitialDelay: -1, Interval: time.Second}
	once := in.WithDefaults()
	twice := once.WithDefaults()
	if once != twice {
		t.Fatalf("once = %+v, twice = %+v", once, twice)
	}
	if twice.InitialDelay > 0 {
		t.Fatalf("disabled initial delay became %v", twice.InitialDelay)
	}
}

func TestRun_DisabledInitialDelaySendsImmediately(t *testing.T) {
	f := newFake(false)
	cfg := keepalive.Config{Interval: time.Hour, Timeout: time.Hour, InitialDelay: -1}.WithDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		keepalive.Run(ctx, cfg, f, f.send, func(string) {})
	}()

	deadline := time.Now().Add(2 * time.Second)
	for f.probe.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("nothing sent with initial delay disabled")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
}
