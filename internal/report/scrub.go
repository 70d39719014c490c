package report

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	reBearer    = regexp.MustCompile(`(?i)\b(bearer\s+)([a-z0-9\-\._~\+\/]+=*)`)
	reApiKeyKV  = regexp.MustCompile(`(?i)\b(api[_-]?key|access[_-]?token|token|secret|authorization)\s*[:=]\s*([^\s,;]+)`)
	reLongToken = regexp.MustCompile(`\b[a-zA-Z0-9_\-]{24,}\b`)
)

// ScrubText removes credential-shaped substrings from text that may end up
// in persisted failure summaries, alert payloads, or digest bodies.
func ScrubText(s string) string {
	out := s
	out = reBearer.ReplaceAllString(out, "${1}<redacted>")
	out = reApiKeyKV.ReplaceAllString(out, "${1}=<redacted>")
	out = reLongToken.ReplaceAllStringFunc(out, func(tok string) string {
		if len(tok) <= 10 {
			return "<redacted>"
		}
		return tok[:4] + "...<redacted>..." + tok[len(tok)-4:]
	})
	return out
}

// ScrubError renders an error as a short, safe summary. Internal wrap chains
// tend to repeat the operation path; keep only the outermost message and
// scrub anything token-shaped.
func ScrubError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if i := strings.Index(msg, "\n"); i >= 0 {
		msg = msg[:i]
	}
	const maxLen = 240
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return ScrubText(msg)
}

// ScrubURL redacts secret-bearing query parameters before a URL is echoed
// back to users or stored on an alert.
func ScrubURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ScrubText(raw)
	}

	q := u.Query()
	for k := range q {
		kl := strings.ToLower(k)
		if strings.Contains(kl, "token") ||
			strings.Contains(kl, "key") ||
			strings.Contains(kl, "secret") ||
			strings.Contains(kl, "auth") ||
			strings.Contains(kl, "session") ||
			strings.Contains(kl, "pass") {
			q.Set(k, "<redacted>")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
