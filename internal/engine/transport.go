package engine

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

var ErrProbeBudgetExceeded = errors.New("probe request budget exceeded")

// BudgetTransport caps the total outgoing requests for one probe run.
type BudgetTransport struct {
	Base      http.RoundTripper
	Max       int64
	requested int64
}

func (t *BudgetTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := atomic.AddInt64(&t.requested, 1)
	if t.Max > 0 && next > t.Max {
		return nil, ErrProbeBudgetExceeded
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// StatsTransport records request count and cumulative wall time so the
// assessment can report how expensive the probe was.
type StatsTransport struct {
	Base      http.RoundTripper
	requests  int64
	durationN int64
}

func (t *StatsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	atomic.AddInt64(&t.requests, 1)
	atomic.AddInt64(&t.durationN, time.Since(start).Nanoseconds())
	return resp, err
}

func (t *StatsTransport) Snapshot() (int64, time.Duration) {
	return atomic.LoadInt64(&t.requests), time.Duration(atomic.LoadInt64(&t.durationN))
}

// RateLimitTransport throttles requests per registrable domain so repeated
// probes of the same host stay polite. Limiters are created on first use and
// shared across concurrent probes of the same domain.
type RateLimitTransport struct {
	Base      http.RoundTripper
	PerSecond float64

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func (t *RateLimitTransport) limiter(host string) *rate.Limiter {
	root, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		root = host
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.limiters == nil {
		t.limiters = make(map[string]*rate.Limiter)
	}
	lim, ok := t.limiters[root]
	if !ok {
		burst := int(t.PerSecond)
		if burst < 1 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(t.PerSecond), burst)
		t.limiters[root] = lim
	}
	return lim
}

func (t *RateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.PerSecond > 0 {
		if err := t.limiter(strings.ToLower(req.URL.Hostname())).Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// BoundaryTransport blocks any request that leaves the probed target's
// registrable domain. Sub-probes only ever touch the target itself.
type BoundaryTransport struct {
	Base              http.RoundTripper
	AllowedRootDomain string
}

func (t *BoundaryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	host := strings.ToLower(req.URL.Hostname())
	if host == "" {
		return nil, fmt.Errorf("blocked request: empty host")
	}
	allowed := strings.ToLower(strings.TrimSpace(t.AllowedRootDomain))
	if allowed != "" {
		root, err := publicsuffix.EffectiveTLDPlusOne(host)
		if err != nil {
			root = host
		}
		if root != allowed && host != allowed && !strings.HasSuffix(host, "."+allowed) {
			return nil, fmt.Errorf("blocked cross-domain request: %s (allowed root: %s)", host, allowed)
		}
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}
