package probe

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/MOYARU/driftwatch/internal/config"
	"github.com/MOYARU/driftwatch/internal/engine"
	"github.com/MOYARU/driftwatch/internal/report"
	"github.com/MOYARU/driftwatch/internal/version"
	"github.com/spaolacci/murmur3"
)

const faviconCap = 32 * 1024

// Facts are the raw transport observations from one probe run. Sub-probe
// failures degrade individual fields instead of failing the run: Headers is
// only meaningful when HeadersAvailable is true, Cert may be nil, and
// FaviconHash may be zero.
type Facts struct {
	Target           string
	FinalURL         string
	Scheme           string
	StatusCode       int
	SSLValid         bool
	Cert             *CertInfo
	Headers          http.Header
	HeadersAvailable bool
	BodyPrefix       []byte
	FaviconHash      uint32
	Elapsed          time.Duration
	Requests         int64
	Notes            []string
}

// ServerBanner returns the exposed server identification header, if any.
func (f *Facts) ServerBanner() string {
	if !f.HeadersAvailable {
		return ""
	}
	if v := f.Headers.Get("Server"); v != "" {
		return v
	}
	return f.Headers.Get("X-Powered-By")
}

type Prober struct {
	timeout time.Duration
	bodyCap int64
	budget  int64
	certs   CertSource
	shared  http.RoundTripper
}

func New(policy config.Policy) *Prober {
	return &Prober{
		timeout: time.Duration(policy.ProbeTimeoutSeconds) * time.Second,
		bodyCap: policy.BodyCapBytes,
		budget:  policy.ProbeBudget,
		certs:   HandshakeCerts{},
		shared: &engine.RateLimitTransport{
			Base: &http.Transport{
				TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
				ForceAttemptHTTP2:     true,
				MaxIdleConns:          200,
				MaxIdleConnsPerHost:   32,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   5 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
			PerSecond: policy.HostRequestsPerSec,
		},
	}
}

// SetCertSource swaps the certificate lookup. Tests and external enrichment
// sources use this; the default reads the probe's own handshake.
func (p *Prober) SetCertSource(cs CertSource) {
	if cs != nil {
		p.certs = cs
	}
}

// Probe runs the TLS, content, and favicon sub-probes concurrently against a
// pre-vetted target URL and always returns usable Facts. The only error case
// is a target that does not parse at all.
func (p *Prober) Probe(ctx context.Context, target string) (*Facts, error) {
	u, err := url.Parse(target)
	if err != nil || u.Hostname() == "" {
		return nil, ErrBadTarget
	}

	root, rootErr := publicsuffix.EffectiveTLDPlusOne(strings.ToLower(u.Hostname()))
	if rootErr != nil {
		root = strings.ToLower(u.Hostname())
	}
	stats := &engine.StatsTransport{
		Base: &engine.BudgetTransport{
			Max: p.budget,
			Base: &engine.BoundaryTransport{
				Base:              p.shared,
				AllowedRootDomain: root,
			},
		},
	}

	facts := &Facts{
		Target: target,
		Scheme: strings.ToLower(u.Scheme),
	}

	start := time.Now()
	var mu sync.Mutex
	var wg sync.WaitGroup

	note := func(format string, err error) {
		mu.Lock()
		defer mu.Unlock()
		facts.Notes = append(facts.Notes, format+": "+report.ScrubError(err))
	}

	wg.Add(3)
	go func() {
		defer wg.Done()
		p.probeTLS(ctx, u, stats, facts, &mu, note)
	}()
	go func() {
		defer wg.Done()
		p.probeContent(ctx, u, stats, facts, &mu, note)
	}()
	go func() {
		defer wg.Done()
		p.probeFavicon(ctx, u, stats, facts, &mu, note)
	}()
	wg.Wait()

	facts.Elapsed = time.Since(start)
	facts.Requests, _ = stats.Snapshot()
	return facts, nil
}

// probeTLS establishes whether the target serves valid TLS: the scheme must
// be https and the request must complete with a pre-server-error status.
// Certificate details are an optional enrichment on top.
func (p *Prober) probeTLS(ctx context.Context, u *url.URL, rt http.RoundTripper, facts *Facts, mu *sync.Mutex, note func(string, error)) {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	client := engine.NewHTTPClient(p.timeout, false, nil)
	client.Transport = rt

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		note("tls probe", err)
		return
	}
	req.Header.Set("User-Agent", version.ProbeUserAgent())

	resp, err := client.Do(req)
	if err != nil {
		note("tls probe", err)
		return
	}
	defer resp.Body.Close()

	mu.Lock()
	defer mu.Unlock()
	facts.StatusCode = resp.StatusCode
	facts.SSLValid = facts.Scheme == "https" && acceptableStatus(resp.StatusCode)
	if resp.TLS != nil {
		facts.Cert = p.certs.Lookup(resp.TLS)
	}
}

// probeContent fetches the landing page (following redirects) for headers
// and a bounded body prefix. Header availability is explicit so degraded
// runs cannot masquerade as "all headers missing".
func (p *Prober) probeContent(ctx context.Context, u *url.URL, rt http.RoundTripper, facts *Facts, mu *sync.Mutex, note func(string, error)) {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	client := engine.NewFollowingClient(p.timeout)
	client.Transport = rt

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		note("content probe", err)
		return
	}
	req.Header.Set("User-Agent", version.ProbeUserAgent())

	resp, err := client.Do(req)
	if err != nil {
		note("content probe", err)
		return
	}
	defer resp.Body.Close()

	body, err := engine.ReadBodyPrefix(resp, p.bodyCap)
	if err != nil {
		note("content probe body", err)
		body = nil
	}

	mu.Lock()
	defer mu.Unlock()
	facts.Headers = resp.Header
	facts.HeadersAvailable = true
	facts.BodyPrefix = body
	if resp.Request != nil && resp.Request.URL != nil {
		facts.FinalURL = resp.Request.URL.String()
	}
}

// probeFavicon grabs /favicon.ico and records its murmur3 hash as an extra
// fingerprint signal. Entirely optional.
func (p *Prober) probeFavicon(ctx context.Context, u *url.URL, rt http.RoundTripper, facts *Facts, mu *sync.Mutex, note func(string, error)) {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	favURL := &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/favicon.ico"}
	client := engine.NewHTTPClient(p.timeout, false, nil)
	client.Transport = rt

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, favURL.String(), nil)
	if err != nil {
		return
	}
	req.Header.Set("User-Agent", version.ProbeUserAgent())

	resp, err := client.Do(req)
	if err != nil {
		note("favicon probe", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return
	}

	icon, err := engine.ReadBodyPrefix(resp, faviconCap)
	if err != nil || len(icon) == 0 {
		return
	}

	mu.Lock()
	defer mu.Unlock()
	facts.FaviconHash = murmur3.Sum32(icon)
}

// acceptableStatus treats anything the server answered coherently as proof
// the TLS channel works; only server errors and non-answers disqualify.
func acceptableStatus(code int) bool {
	return code >= 100 && code < 500
}
