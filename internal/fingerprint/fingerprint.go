package fingerprint

import (
	"bytes"
	"net/http"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Input is everything Detect looks at. Headers are only consulted when
// HeadersAvailable is true so a degraded probe cannot fake header evidence.
type Input struct {
	Headers          http.Header
	HeadersAvailable bool
	Body             []byte
	FaviconHash      uint32
}

// Result is the detected technology surface of one assessment. CMS is at
// most one name and always also appears in Technologies.
type Result struct {
	Technologies []string
	CMS          string
	CDN          string
}

// Signature marks one technology. The first pattern that matches the
// combined evidence text counts; match strength is not scored.
type Signature struct {
	Name     string
	CMS      bool
	Patterns []*regexp.Regexp
}

// CDNMarker is a header-based delivery-network signal, checked
// independently of the generic signature table.
type CDNMarker struct {
	Name   string
	Header string
	Value  *regexp.Regexp // nil means header presence alone counts
}

// Table is the injected rule set. Detect never mutates it.
type Table struct {
	Signatures []Signature
	CDNMarkers []CDNMarker
	Favicons   map[uint32]string
}

var defaultTable = Table{
	Signatures: []Signature{
		{Name: "WordPress", CMS: true, Patterns: []*regexp.Regexp{
			regexp.MustCompile(`wp-content|wp-includes|wp-json`),
			regexp.MustCompile(`<meta[^>]+generator[^>]+wordpress`),
		}},
		{Name: "Drupal", CMS: true, Patterns: []*regexp.Regexp{
			regexp.MustCompile(`drupal\.js|drupal\.settings|x-drupal-cache|x-generator:\s*drupal`),
			regexp.MustCompile(`sites/(?:all|default)/(?:files|themes|modules)`),
		}},
		{Name: "Joomla", CMS: true, Patterns: []*regexp.Regexp{
			regexp.MustCompile(`/media/jui/|joomla`),
		}},
		{Name: "Shopify", CMS: true, Patterns: []*regexp.Regexp{
			regexp.MustCompile(`cdn\.shopify\.com|x-shopify-stage|shopify-checkout`),
		}},
		{Name: "Magento", CMS: true, Patterns: []*regexp.Regexp{
			regexp.MustCompile(`mage/cookies|magento|x-magento-`),
		}},
		{Name: "Ghost", CMS: true, Patterns: []*regexp.Regexp{
			regexp.MustCompile(`<meta[^>]+generator[^>]+ghost|ghost-sdk`),
		}},
		{Name: "Squarespace", CMS: true, Patterns: []*regexp.Regexp{
			regexp.MustCompile(`squarespace\.com|x-servedby:\s*squarespace`),
		}},
		{Name: "Wix", CMS: true, Patterns: []*regexp.Regexp{
			regexp.MustCompile(`wix\.com|x-wix-request-id`),
		}},
		{Name: "React", Patterns: []*regexp.Regexp{
			regexp.MustCompile(`react(?:\.production)?(?:\.min)?\.js|data-reactroot|__next_data__`),
		}},
		{Name: "Vue.js", Patterns: []*regexp.Regexp{
			regexp.MustCompile(`vue(?:\.runtime)?(?:\.min)?\.js|data-v-app|__nuxt`),
		}},
		{Name: "Angular", Patterns: []*regexp.Regexp{
			regexp.MustCompile(`ng-version=|angular(?:\.min)?\.js`),
		}},
		{Name: "jQuery", Patterns: []*regexp.Regexp{
			regexp.MustCompile(`jquery[-.\d]*(?:\.min)?\.js`),
		}},
		{Name: "Bootstrap", Patterns: []*regexp.Regexp{
			regexp.MustCompile(`bootstrap[-.\d]*(?:\.min)?\.(?:js|css)`),
		}},
		{Name: "Google Analytics", Patterns: []*regexp.Regexp{
			regexp.MustCompile(`googletagmanager\.com|google-analytics\.com|gtag\(`),
		}},
		{Name: "PHP", Patterns: []*regexp.Regexp{
			regexp.MustCompile(`x-powered-by:\s*php|\.php["'?]`),
		}},
		{Name: "ASP.NET", Patterns: []*regexp.Regexp{
			regexp.MustCompile(`x-powered-by:\s*asp\.net|x-aspnet-version|__viewstate`),
		}},
		{Name: "Express", Patterns: []*regexp.Regexp{
			regexp.MustCompile(`x-powered-by:\s*express`),
		}},
		{Name: "Nginx", Patterns: []*regexp.Regexp{
			regexp.MustCompile(`server:\s*nginx`),
		}},
		{Name: "Apache", Patterns: []*regexp.Regexp{
			regexp.MustCompile(`server:\s*apache`),
		}},
		{Name: "IIS", Patterns: []*regexp.Regexp{
			regexp.MustCompile(`server:\s*microsoft-iis`),
		}},
	},
	CDNMarkers: []CDNMarker{
		{Name: "Cloudflare", Header: "CF-Ray"},
		{Name: "Cloudflare", Header: "Server", Value: regexp.MustCompile(`(?i)cloudflare`)},
		{Name: "CloudFront", Header: "X-Amz-Cf-Id"},
		{Name: "CloudFront", Header: "Via", Value: regexp.MustCompile(`(?i)cloudfront`)},
		{Name: "Fastly", Header: "X-Served-By", Value: regexp.MustCompile(`(?i)cache-`)},
		{Name: "Fastly", Header: "X-Fastly-Request-ID"},
		{Name: "Akamai", Header: "X-Akamai-Transformed"},
		{Name: "Vercel", Header: "X-Vercel-Id"},
		{Name: "Netlify", Header: "X-NF-Request-ID"},
	},
	Favicons: map[uint32]string{
		// murmur3 of the stock favicons shipped by common platforms.
		1234150143: "WordPress",
		1174165493: "Drupal",
		81586312:   "Joomla",
		1768726119: "Ghost",
	},
}

// DefaultTable returns the built-in rule set.
func DefaultTable() Table {
	return defaultTable
}

const (
	metaGeneratorSel = `meta[name="generator"]`
	scriptSel        = `script[src]`
)

// Detect runs the table against the probe evidence. Pure: same input and
// table always produce the same result.
func Detect(in Input, table Table) Result {
	evidence := buildEvidence(in)

	var res Result
	seen := make(map[string]struct{})
	add := func(name string, cms bool) {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			res.Technologies = append(res.Technologies, name)
		}
		if cms && res.CMS == "" {
			res.CMS = name
		}
	}

	for _, sig := range table.Signatures {
		for _, p := range sig.Patterns {
			if p.MatchString(evidence) {
				add(sig.Name, sig.CMS)
				break
			}
		}
	}

	if in.FaviconHash != 0 {
		if name, ok := table.Favicons[in.FaviconHash]; ok {
			add(name, isCMSName(table, name))
		}
	}

	if in.HeadersAvailable {
		res.CDN = detectCDN(in.Headers, table.CDNMarkers)
		if res.CDN != "" {
			add(res.CDN, false)
		}
	}

	sort.Strings(res.Technologies)
	return res
}

// buildEvidence concatenates lowercased body text, serialized headers, and
// goquery-extracted generator/script hints into one matchable string.
func buildEvidence(in Input) string {
	var b strings.Builder
	b.Write(bytes.ToLower(in.Body))
	b.WriteByte('\n')

	if in.HeadersAvailable {
		keys := make([]string, 0, len(in.Headers))
		for k := range in.Headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			for _, v := range in.Headers[k] {
				b.WriteString(strings.ToLower(k))
				b.WriteString(": ")
				b.WriteString(strings.ToLower(v))
				b.WriteByte('\n')
			}
		}
	}

	if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(in.Body)); err == nil {
		doc.Find(metaGeneratorSel).Each(func(_ int, s *goquery.Selection) {
			if content, ok := s.Attr("content"); ok && content != "" {
				b.WriteString(strings.ToLower(content))
				b.WriteByte('\n')
			}
		})
		doc.Find(scriptSel).Each(func(_ int, s *goquery.Selection) {
			if src, ok := s.Attr("src"); ok && src != "" {
				b.WriteString(strings.ToLower(src))
				b.WriteByte('\n')
			}
		})
	}

	return b.String()
}

func detectCDN(headers http.Header, markers []CDNMarker) string {
	for _, m := range markers {
		v := headers.Get(m.Header)
		if v == "" {
			continue
		}
		if m.Value == nil || m.Value.MatchString(v) {
			return m.Name
		}
	}
	return ""
}

func isCMSName(table Table, name string) bool {
	for _, sig := range table.Signatures {
		if sig.Name == name {
			return sig.CMS
		}
	}
	return false
}
