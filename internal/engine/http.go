package engine

import (
	"crypto/tls"
	"net/http"
	"time"
)

// NewHTTPClient builds the probe client. Redirect following is disabled by
// default so scheme transitions stay observable to the caller.
func NewHTTPClient(timeout time.Duration, allowRedirect bool, tlsConfig *tls.Config) *http.Client {
	if tlsConfig == nil {
		tlsConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig:       tlsConfig,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          200,
			MaxIdleConnsPerHost:   32,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
	if !allowRedirect {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return client
}

// NewFollowingClient is the redirect-following variant used by the content
// probe, where the final landing page is what gets assessed.
func NewFollowingClient(timeout time.Duration) *http.Client {
	c := NewHTTPClient(timeout, true, nil)
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 10 {
			return http.ErrUseLastResponse
		}
		return nil
	}
	return c
}
