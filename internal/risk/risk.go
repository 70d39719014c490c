package risk

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	msges "github.com/MOYARU/driftwatch/internal/messages"
	"github.com/MOYARU/driftwatch/internal/report"
)

const (
	CategoryTLS         = "tls"
	CategoryHeaders     = "headers"
	CategoryFingerprint = "fingerprint"
	CategoryServer      = "server"
)

// Input is everything the scorer looks at. MissingHeaders and
// PresentHeaders are only meaningful when HeadersChecked is true; their
// union is the fixed checklist and they never overlap.
type Input struct {
	SSLValid       bool
	SSLDaysLeft    *int // nil when expiry is unknown
	HeadersChecked bool
	MissingHeaders []string
	PresentHeaders []string
	CMS            string
	ServerBanner   string
}

// Factor is one scored contributor to an assessment. Zero-point factors
// stay in the breakdown so it reads as a full checklist, not a problem list.
type Factor struct {
	Category    string          `json:"category"`
	Points      int             `json:"points"`
	MaxPoints   int             `json:"max_points"`
	Severity    report.Severity `json:"severity"`
	Description string          `json:"description"`
}

// Breakdown is the scored result: capped total, categorical level, the
// exhaustive factor list sorted by points descending, and a summary line.
type Breakdown struct {
	Score   int
	Level   Level
	Factors []Factor
	Summary string
}

type expiryBand struct {
	WithinDays int
	Points     int
	Severity   report.Severity
}

// Weights is the injected scoring table. The bad-category total
// intentionally exceeds 100 so near-worst-case sites saturate at the cap.
type Weights struct {
	TLSInvalid    int
	ExpiryBands   []expiryBand
	Checklist     []string
	HeaderWeights map[string]int
	HeaderDefault int
	CMSDetected   int
	BannerExposed int
}

var defaultWeights = Weights{
	TLSInvalid: 40,
	ExpiryBands: []expiryBand{
		{WithinDays: 7, Points: 35, Severity: report.SeverityHigh},
		{WithinDays: 30, Points: 25, Severity: report.SeverityMedium},
		{WithinDays: 60, Points: 10, Severity: report.SeverityLow},
	},
	Checklist: []string{
		"Strict-Transport-Security",
		"Content-Security-Policy",
		"X-Frame-Options",
		"X-Content-Type-Options",
		"Referrer-Policy",
		"Permissions-Policy",
		"X-XSS-Protection",
	},
	HeaderWeights: map[string]int{
		"Strict-Transport-Security": 10,
		"Content-Security-Policy":   10,
		"X-Frame-Options":           8,
		"X-Content-Type-Options":    6,
		"Referrer-Policy":           6,
		"Permissions-Policy":        6,
		"X-XSS-Protection":          4,
	},
	HeaderDefault: 6,
	CMSDetected:   10,
	BannerExposed: 5,
}

// DefaultWeights returns the built-in scoring table.
func DefaultWeights() Weights {
	return defaultWeights
}

// HeaderWeight returns the point weight for a checklist header; headers
// outside the fixed table share one default weight.
func (w Weights) HeaderWeight(name string) int {
	if v, ok := w.HeaderWeights[name]; ok {
		return v
	}
	return w.HeaderDefault
}

// EvaluateChecklist splits the fixed checklist into present and missing
// sets for a captured response. The two sets are disjoint and their union
// is exactly the checklist.
func EvaluateChecklist(headers http.Header, w Weights) (present, missing []string) {
	for _, name := range w.Checklist {
		if headers.Get(name) != "" {
			present = append(present, name)
		} else {
			missing = append(missing, name)
		}
	}
	return present, missing
}

// Score turns probe and fingerprint output into a capped 0-100 breakdown.
// Pure: same input and weights always yield the same breakdown.
func Score(in Input, w Weights) Breakdown {
	var factors []Factor

	factors = append(factors, scoreTLS(in, w))
	factors = append(factors, scoreHeaders(in, w)...)
	factors = append(factors, scoreFingerprint(in, w))
	factors = append(factors, scoreBanner(in, w))

	total := 0
	for _, f := range factors {
		total += f.Points
	}
	if total > 100 {
		total = 100
	}
	if total < 0 {
		total = 0
	}

	// Worst offender first. Stable so equal-point factors keep their
	// category order, which tests and the UI rely on.
	sort.SliceStable(factors, func(i, j int) bool {
		return factors[i].Points > factors[j].Points
	})

	return Breakdown{
		Score:   total,
		Level:   LevelFromScore(total),
		Factors: factors,
		Summary: summarize(factors),
	}
}

func scoreTLS(in Input, w Weights) Factor {
	if !in.SSLValid {
		msg := msges.GetMessage("FACTOR_TLS_INVALID")
		return Factor{
			Category:    CategoryTLS,
			Points:      w.TLSInvalid,
			MaxPoints:   w.TLSInvalid,
			Severity:    report.SeverityCritical,
			Description: msg.Message,
		}
	}

	if in.SSLDaysLeft != nil {
		days := *in.SSLDaysLeft
		for _, band := range w.ExpiryBands {
			if days < band.WithinDays {
				msg := msges.GetMessage("FACTOR_TLS_EXPIRING")
				return Factor{
					Category:    CategoryTLS,
					Points:      band.Points,
					MaxPoints:   w.TLSInvalid,
					Severity:    band.Severity,
					Description: fmt.Sprintf(msg.Message, days),
				}
			}
		}
	}

	msg := msges.GetMessage("FACTOR_TLS_VALID")
	return Factor{
		Category:    CategoryTLS,
		Points:      0,
		MaxPoints:   w.TLSInvalid,
		Severity:    report.SeverityInfo,
		Description: msg.Message,
	}
}

func scoreHeaders(in Input, w Weights) []Factor {
	if !in.HeadersChecked {
		msg := msges.GetMessage("FACTOR_HEADERS_SKIPPED")
		return []Factor{{
			Category:    CategoryHeaders,
			Points:      0,
			MaxPoints:   0,
			Severity:    report.SeverityInfo,
			Description: msg.Message,
		}}
	}

	var factors []Factor
	for _, name := range in.MissingHeaders {
		weight := w.HeaderWeight(name)
		msg := msges.GetMessage("FACTOR_HEADER_MISSING")
		factors = append(factors, Factor{
			Category:    CategoryHeaders,
			Points:      weight,
			MaxPoints:   weight,
			Severity:    headerSeverity(weight),
			Description: fmt.Sprintf(msg.Message, name),
		})
	}
	for _, name := range in.PresentHeaders {
		weight := w.HeaderWeight(name)
		msg := msges.GetMessage("FACTOR_HEADER_PRESENT")
		factors = append(factors, Factor{
			Category:    CategoryHeaders,
			Points:      0,
			MaxPoints:   weight,
			Severity:    report.SeverityInfo,
			Description: fmt.Sprintf(msg.Message, name),
		})
	}
	return factors
}

func headerSeverity(weight int) report.Severity {
	switch {
	case weight >= 10:
		return report.SeverityHigh
	case weight >= 6:
		return report.SeverityMedium
	default:
		return report.SeverityLow
	}
}

func scoreFingerprint(in Input, w Weights) Factor {
	if in.CMS != "" {
		msg := msges.GetMessage("FACTOR_CMS_DETECTED")
		return Factor{
			Category:    CategoryFingerprint,
			Points:      w.CMSDetected,
			MaxPoints:   w.CMSDetected,
			Severity:    report.SeverityMedium,
			Description: fmt.Sprintf(msg.Message, in.CMS),
		}
	}
	msg := msges.GetMessage("FACTOR_NO_CMS")
	return Factor{
		Category:    CategoryFingerprint,
		Points:      0,
		MaxPoints:   w.CMSDetected,
		Severity:    report.SeverityInfo,
		Description: msg.Message,
	}
}

func scoreBanner(in Input, w Weights) Factor {
	if strings.TrimSpace(in.ServerBanner) != "" {
		msg := msges.GetMessage("FACTOR_BANNER_EXPOSED")
		return Factor{
			Category:    CategoryServer,
			Points:      w.BannerExposed,
			MaxPoints:   w.BannerExposed,
			Severity:    report.SeverityLow,
			Description: fmt.Sprintf(msg.Message, in.ServerBanner),
		}
	}
	msg := msges.GetMessage("FACTOR_BANNER_HIDDEN")
	return Factor{
		Category:    CategoryServer,
		Points:      0,
		MaxPoints:   w.BannerExposed,
		Severity:    report.SeverityInfo,
		Description: msg.Message,
	}
}

func summarize(factors []Factor) string {
	var critical, high, medium int
	for _, f := range factors {
		if f.Points == 0 {
			continue
		}
		switch f.Severity {
		case report.SeverityCritical:
			critical++
		case report.SeverityHigh:
			high++
		case report.SeverityMedium:
			medium++
		}
	}

	if critical+high+medium == 0 {
		return "No significant risk factors detected."
	}

	var parts []string
	if critical > 0 {
		parts = append(parts, fmt.Sprintf("%d critical", critical))
	}
	if high > 0 {
		parts = append(parts, fmt.Sprintf("%d high", high))
	}
	if medium > 0 {
		parts = append(parts, fmt.Sprintf("%d medium", medium))
	}
	return fmt.Sprintf("%s risk factor(s) detected.", strings.Join(parts, ", "))
}
