package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MOYARU/driftwatch/internal/config"
)

func testProber() *Prober {
	p := New(config.DefaultPolicy())
	p.timeout = 5 * time.Second
	return p
}

// allowAll swaps the shared transport so tests can reach httptest hosts
// (127.0.0.1 would otherwise never appear as a probe target).
func (p *Prober) allowAll(tlsConfig *tls.Config) {
	p.shared = &http.Transport{TLSClientConfig: tlsConfig}
}

func TestProbeCollectsHeadersAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/favicon.ico" {
			w.Write([]byte("icon-bytes"))
			return
		}
		w.Header().Set("Server", "nginx/1.24.0")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer srv.Close()

	p := testProber()
	p.allowAll(nil)

	facts, err := p.Probe(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Probe() error: %v", err)
	}
	if !facts.HeadersAvailable {
		t.Fatalf("expected headers to be available")
	}
	if facts.Headers.Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("expected captured response header, got %v", facts.Headers)
	}
	if !strings.Contains(string(facts.BodyPrefix), "hello") {
		t.Fatalf("expected body prefix, got %q", facts.BodyPrefix)
	}
	if facts.ServerBanner() != "nginx/1.24.0" {
		t.Fatalf("unexpected server banner: %q", facts.ServerBanner())
	}
	if facts.SSLValid {
		t.Fatalf("plain http target must not count as ssl valid")
	}
	if facts.FaviconHash == 0 {
		t.Fatalf("expected favicon hash to be recorded")
	}
}

func TestProbeTLSValidOverHTTPS(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	pool := x509.NewCertPool()
	pool.AddCert(srv.Certificate())

	p := testProber()
	p.allowAll(&tls.Config{RootCAs: pool})

	facts, err := p.Probe(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Probe() error: %v", err)
	}
	if !facts.SSLValid {
		t.Fatalf("expected ssl valid for completed https probe, notes: %v", facts.Notes)
	}
	if facts.Cert == nil {
		t.Fatalf("expected certificate enrichment from handshake")
	}
	if facts.Cert.DaysLeft < 0 {
		t.Fatalf("test certificate should not be expired: %d", facts.Cert.DaysLeft)
	}
}

func TestProbeDegradesWhenTargetUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := srv.URL
	srv.Close() // port now refused

	p := testProber()
	p.timeout = 2 * time.Second
	p.allowAll(nil)

	facts, err := p.Probe(context.Background(), target)
	if err != nil {
		t.Fatalf("degraded probe must still produce facts, got error: %v", err)
	}
	if facts.HeadersAvailable {
		t.Fatalf("headers must be marked unavailable on transport failure")
	}
	if facts.SSLValid {
		t.Fatalf("failed connection must not count as ssl valid")
	}
	if len(facts.Notes) == 0 {
		t.Fatalf("expected degradation notes")
	}
}

func TestProbeCapsBodyPrefix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("a", 64*1024)))
	}))
	defer srv.Close()

	p := testProber()
	p.bodyCap = 2048
	p.allowAll(nil)

	facts, err := p.Probe(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Probe() error: %v", err)
	}
	if len(facts.BodyPrefix) != 2048 {
		t.Fatalf("expected capped body of 2048 bytes, got %d", len(facts.BodyPrefix))
	}
}

func TestProbeRejectsUnparseableTarget(t *testing.T) {
	p := testProber()
	if _, err := p.Probe(context.Background(), "http://"); err == nil {
		t.Fatalf("expected error for target without host")
	}
}

func TestVetTarget(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "bare host defaults to https", in: "example.com", want: "https://example.com"},
		{name: "explicit http preserved", in: "http://example.com/path", want: "http://example.com/path"},
		{name: "empty rejected", in: "  ", wantErr: true},
		{name: "ftp rejected", in: "ftp://example.com", wantErr: true},
		{name: "localhost rejected", in: "http://localhost:8080", wantErr: true},
		{name: "loopback ip rejected", in: "https://127.0.0.1", wantErr: true},
		{name: "private ip rejected", in: "https://192.168.1.10", wantErr: true},
		{name: "link local rejected", in: "http://169.254.169.254/latest", wantErr: true},
		{name: "internal suffix rejected", in: "https://db.internal", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := VetTarget(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected rejection for %q, got %q", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("VetTarget(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("VetTarget(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
