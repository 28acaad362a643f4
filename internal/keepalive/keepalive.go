package keepalive

import (
	"context"
	"time"
)

// Defaults used when a Config field is zero.
const (
	DefaultInterval     = 20 * time.Second
	DefaultTimeout      = 5 * time.Second
	DefaultInitialDelay = 5 * time.Second
)

// Config controls probe timing.
type Config struct {
	Interval     time.Duration
	Timeout      time.Duration
	InitialDelay time.Duration
	SendTimeout  time.Duration
}

// WithDefaults fills zero fields. A negative InitialDelay disables the delay
// and is kept as is, so applying WithDefaults twice changes nothing.
func (c Config) WithDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.InitialDelay == 0 {
		c.InitialDelay = DefaultInitialDelay
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = c.Timeout
	}
	return c
}

// Target is the session side of the monitor.
type Target interface {
	Alive() bool
	BeginKeepAlive() <-chan bool
	EndKeepAlive()
	Done() <-chan struct{}
}

// Eviction reasons passed to evict.
const (
	ReasonSendFailed = "keep-alive send failed"
	ReasonNoEcho     = "keep-alive timed out"
	ReasonBadEcho    = "keep-alive echo mismatched"
)

// Run probes t until it dies, ctx ends or a probe fails. send writes one
// probe bounded by timeout. evict is called at most once.
func Run(ctx context.Context, cfg Config, t Target, send func(timeout time.Duration) error, evict func(reason string)) {
	cfg = cfg.WithDefaults()

	if !sleep(ctx, t, cfg.InitialDelay) {
		return
	}
	for t.Alive() {
		res := t.BeginKeepAlive()
		if err := send(cfg.SendTimeout); err != nil {
			t.EndKeepAlive()
			evict(ReasonSendFailed)
			return
		}

		ok, reason, stop := wait(ctx, t, res, cfg.Timeout)
		t.EndKeepAlive()
		if stop {
			return
		}
		if !ok {
			evict(reason)
			return
		}
		if !sleep(ctx, t, cfg.Interval) {
			return
		}
	}
}

func wait(ctx context.Context, t Target, res <-chan bool, timeout time.Duration) (ok bool, reason string, stop bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case ok := <-res:
		if !ok {
			return false, ReasonBadEcho, false
		}
		return true, "", false
	case <-timer.C:
		return false, ReasonNoEcho, false
	case <-t.Done():
		return false, "", true
	case <-ctx.Done():
		return false, "", true
	}
}

// sleep waits d and reports whether monitoring should continue.
func sleep(ctx context.Context, t Target, d time.Duration) bool {
	if d <= 0 {
		return t.Alive()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return t.Alive()
	case <-t.Done():
		return false
	case <-ctx.Done():
		return false
	}
}
