package fingerprint

import (
	"net/http"
	"testing"
)

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

func TestDetectCMSFromBody(t *testing.T) {
	in := Input{
		Body: []byte(`<html><head><link href="/wp-content/themes/twentytwenty/style.css"></head></html>`),
	}
	res := Detect(in, DefaultTable())
	if res.CMS != "WordPress" {
		t.Fatalf("expected WordPress CMS, got %q", res.CMS)
	}
	if !contains(res.Technologies, "WordPress") {
		t.Fatalf("CMS must also appear in technologies: %v", res.Technologies)
	}
}

func TestDetectFirstCMSWins(t *testing.T) {
	// Evidence matches both WordPress and Drupal; table order decides.
	in := Input{
		Body: []byte(`<script src="/wp-includes/js/app.js"></script><script src="/sites/default/files/drupal.js"></script>`),
	}
	res := Detect(in, DefaultTable())
	if res.CMS != "WordPress" {
		t.Fatalf("expected first table CMS to win, got %q", res.CMS)
	}
	if !contains(res.Technologies, "Drupal") {
		t.Fatalf("second CMS should still be listed as a technology: %v", res.Technologies)
	}
}

func TestDetectFromHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Server", "nginx/1.24.0")
	h.Set("X-Powered-By", "Express")

	res := Detect(Input{Headers: h, HeadersAvailable: true}, DefaultTable())
	if !contains(res.Technologies, "Nginx") {
		t.Fatalf("expected nginx from Server header: %v", res.Technologies)
	}
	if !contains(res.Technologies, "Express") {
		t.Fatalf("expected express from X-Powered-By header: %v", res.Technologies)
	}
}

func TestDetectIgnoresHeadersWhenUnavailable(t *testing.T) {
	h := http.Header{}
	h.Set("Server", "nginx/1.24.0")
	h.Set("CF-Ray", "8000-IAD")

	res := Detect(Input{Headers: h, HeadersAvailable: false}, DefaultTable())
	if len(res.Technologies) != 0 {
		t.Fatalf("unavailable headers must not produce evidence: %v", res.Technologies)
	}
	if res.CDN != "" {
		t.Fatalf("unavailable headers must not produce a CDN signal: %q", res.CDN)
	}
}

func TestDetectCDNMarker(t *testing.T) {
	h := http.Header{}
	h.Set("CF-Ray", "8a1b2c3d4e5f-FRA")

	res := Detect(Input{Headers: h, HeadersAvailable: true}, DefaultTable())
	if res.CDN != "Cloudflare" {
		t.Fatalf("expected Cloudflare CDN, got %q", res.CDN)
	}
	if !contains(res.Technologies, "Cloudflare") {
		t.Fatalf("CDN should join the technology set: %v", res.Technologies)
	}
}

func TestDetectMetaGenerator(t *testing.T) {
	in := Input{
		Body: []byte(`<html><head><meta name="generator" content="Ghost 5.82"></head><body></body></html>`),
	}
	res := Detect(in, DefaultTable())
	if res.CMS != "Ghost" {
		t.Fatalf("expected Ghost from meta generator, got %q", res.CMS)
	}
}

func TestDetectFaviconHash(t *testing.T) {
	res := Detect(Input{FaviconHash: 1234150143}, DefaultTable())
	if res.CMS != "WordPress" {
		t.Fatalf("expected WordPress from favicon hash, got %q", res.CMS)
	}
}

func TestDetectNothing(t *testing.T) {
	res := Detect(Input{Body: []byte("<html><body>plain page</body></html>")}, DefaultTable())
	if len(res.Technologies) != 0 || res.CMS != "" || res.CDN != "" {
		t.Fatalf("expected empty result, got %+v", res)
	}
}
