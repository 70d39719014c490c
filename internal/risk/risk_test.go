package risk

import (
	"net/http"
	"strings"
	"testing"

	"github.com/MOYARU/driftwatch/internal/report"
)

func intPtr(v int) *int { return &v }

func allHeadersPresent(w Weights) Input {
	return Input{
		SSLValid:       true,
		HeadersChecked: true,
		PresentHeaders: append([]string(nil), w.Checklist...),
	}
}

func TestLevelFromScoreBoundaries(t *testing.T) {
	tests := []struct {
		score int
		want  Level
	}{
		{0, LevelLow},
		{25, LevelLow},
		{26, LevelMedium},
		{50, LevelMedium},
		{51, LevelHigh},
		{75, LevelHigh},
		{76, LevelCritical},
		{100, LevelCritical},
	}
	for _, tt := range tests {
		if got := LevelFromScore(tt.score); got != tt.want {
			t.Fatalf("LevelFromScore(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestLevelRankOrdering(t *testing.T) {
	if !(LevelLow.Rank() < LevelMedium.Rank() && LevelMedium.Rank() < LevelHigh.Rank() && LevelHigh.Rank() < LevelCritical.Rank()) {
		t.Fatalf("level ranks are not strictly increasing")
	}
}

func TestScoreCleanSite(t *testing.T) {
	w := DefaultWeights()
	b := Score(allHeadersPresent(w), w)

	if b.Score != 0 {
		t.Fatalf("clean site should score 0, got %d", b.Score)
	}
	if b.Level != LevelLow {
		t.Fatalf("expected low level, got %s", b.Level)
	}
	// 1 tls + 7 headers + 1 fingerprint + 1 server: the breakdown stays
	// exhaustive even when nothing scores.
	if len(b.Factors) != 10 {
		t.Fatalf("expected 10 factors, got %d", len(b.Factors))
	}
	for _, f := range b.Factors {
		if f.Points != 0 || f.Severity != report.SeverityInfo {
			t.Fatalf("clean site factor should be 0-point info, got %+v", f)
		}
	}
	if b.Summary != "No significant risk factors detected." {
		t.Fatalf("unexpected summary: %q", b.Summary)
	}
}

func TestScoreWorstCaseSaturates(t *testing.T) {
	w := DefaultWeights()
	in := Input{
		SSLValid:       false,
		HeadersChecked: true,
		MissingHeaders: append([]string(nil), w.Checklist...),
		CMS:            "WordPress",
		ServerBanner:   "Apache/2.4.41 (Ubuntu)",
	}
	b := Score(in, w)

	// 40 + 50 + 10 + 5 = 105 raw, capped.
	if b.Score != 100 {
		t.Fatalf("worst case must cap at 100, got %d", b.Score)
	}
	if b.Level != LevelCritical {
		t.Fatalf("expected critical level, got %s", b.Level)
	}
	if b.Factors[0].Points != w.TLSInvalid {
		t.Fatalf("worst offender must sort first, got %+v", b.Factors[0])
	}
	if b.Factors[0].Severity != report.SeverityCritical {
		t.Fatalf("invalid tls should be critical, got %s", b.Factors[0].Severity)
	}
}

func TestScoreExpiryBands(t *testing.T) {
	w := DefaultWeights()
	tests := []struct {
		days       int
		wantPoints int
		wantSev    report.Severity
	}{
		{5, 35, report.SeverityHigh},
		{7, 25, report.SeverityMedium},
		{29, 25, report.SeverityMedium},
		{30, 10, report.SeverityLow},
		{59, 10, report.SeverityLow},
		{60, 0, report.SeverityInfo},
		{365, 0, report.SeverityInfo},
	}
	for _, tt := range tests {
		in := allHeadersPresent(w)
		in.SSLDaysLeft = intPtr(tt.days)
		b := Score(in, w)

		var tlsFactor *Factor
		for i := range b.Factors {
			if b.Factors[i].Category == CategoryTLS {
				tlsFactor = &b.Factors[i]
				break
			}
		}
		if tlsFactor == nil {
			t.Fatalf("days=%d: no tls factor in breakdown", tt.days)
		}
		if tlsFactor.Points != tt.wantPoints {
			t.Fatalf("days=%d: tls points = %d, want %d", tt.days, tlsFactor.Points, tt.wantPoints)
		}
		if tlsFactor.Severity != tt.wantSev {
			t.Fatalf("days=%d: tls severity = %s, want %s", tt.days, tlsFactor.Severity, tt.wantSev)
		}
	}
}

func TestScoreMissingHeaderWeights(t *testing.T) {
	w := DefaultWeights()
	in := Input{
		SSLValid:       true,
		HeadersChecked: true,
		MissingHeaders: []string{"Strict-Transport-Security", "X-XSS-Protection", "X-Custom-Policy"},
		PresentHeaders: []string{"Content-Security-Policy"},
	}
	b := Score(in, w)

	// 10 + 4 + 6 (unknown header default).
	if b.Score != 20 {
		t.Fatalf("expected score 20, got %d", b.Score)
	}

	bySev := map[report.Severity]int{}
	for _, f := range b.Factors {
		if f.Category == CategoryHeaders && f.Points > 0 {
			bySev[f.Severity]++
		}
	}
	if bySev[report.SeverityHigh] != 1 || bySev[report.SeverityMedium] != 1 || bySev[report.SeverityLow] != 1 {
		t.Fatalf("unexpected header severity spread: %v", bySev)
	}
}

func TestScoreHeadersSkipped(t *testing.T) {
	w := DefaultWeights()
	in := Input{
		SSLValid:       true,
		HeadersChecked: false,
		CMS:            "WordPress",
	}
	b := Score(in, w)

	// Only the fingerprint factor scores; the checklist is skipped, not
	// treated as all-missing.
	if b.Score != w.CMSDetected {
		t.Fatalf("expected score %d, got %d", w.CMSDetected, b.Score)
	}

	var headerFactors []Factor
	for _, f := range b.Factors {
		if f.Category == CategoryHeaders {
			headerFactors = append(headerFactors, f)
		}
	}
	if len(headerFactors) != 1 {
		t.Fatalf("expected a single skipped-headers factor, got %d", len(headerFactors))
	}
	if headerFactors[0].Points != 0 || headerFactors[0].Severity != report.SeverityInfo {
		t.Fatalf("skipped-headers factor should be 0-point info: %+v", headerFactors[0])
	}
}

func TestScoreFactorsSortedDescending(t *testing.T) {
	w := DefaultWeights()
	in := Input{
		SSLValid:       false,
		HeadersChecked: true,
		MissingHeaders: []string{"X-Frame-Options"},
		PresentHeaders: []string{"Strict-Transport-Security"},
		ServerBanner:   "nginx",
	}
	b := Score(in, w)

	for i := 1; i < len(b.Factors); i++ {
		if b.Factors[i].Points > b.Factors[i-1].Points {
			t.Fatalf("factors not sorted by points descending at %d: %+v", i, b.Factors)
		}
	}
}

func TestScoreSummaryCounts(t *testing.T) {
	w := DefaultWeights()
	in := Input{
		SSLValid:       false,
		HeadersChecked: true,
		MissingHeaders: []string{"Strict-Transport-Security", "X-Content-Type-Options"},
		PresentHeaders: []string{"Content-Security-Policy", "X-Frame-Options", "Referrer-Policy", "Permissions-Policy", "X-XSS-Protection"},
	}
	b := Score(in, w)

	// tls invalid -> critical, HSTS -> high, XCTO -> medium.
	want := "1 critical, 1 high, 1 medium risk factor(s) detected."
	if b.Summary != want {
		t.Fatalf("summary = %q, want %q", b.Summary, want)
	}
}

func TestEvaluateChecklist(t *testing.T) {
	w := DefaultWeights()
	h := http.Header{}
	h.Set("Strict-Transport-Security", "max-age=31536000")
	h.Set("X-Frame-Options", "DENY")

	present, missing := EvaluateChecklist(h, w)
	if len(present)+len(missing) != len(w.Checklist) {
		t.Fatalf("present+missing must cover the checklist: %d+%d != %d", len(present), len(missing), len(w.Checklist))
	}
	for _, p := range present {
		for _, m := range missing {
			if p == m {
				t.Fatalf("header %q in both sets", p)
			}
		}
	}
	if !strings.Contains(strings.Join(present, ","), "Strict-Transport-Security") {
		t.Fatalf("HSTS should be present: %v", present)
	}
	if len(missing) != len(w.Checklist)-2 {
		t.Fatalf("expected %d missing, got %v", len(w.Checklist)-2, missing)
	}
}

func TestScoreDeterministic(t *testing.T) {
	w := DefaultWeights()
	in := Input{
		SSLValid:       true,
		SSLDaysLeft:    intPtr(12),
		HeadersChecked: true,
		MissingHeaders: []string{"Content-Security-Policy"},
		PresentHeaders: []string{"Strict-Transport-Security"},
		CMS:            "Drupal",
		ServerBanner:   "Apache",
	}
	a := Score(in, w)
	b := Score(in, w)
	if a.Score != b.Score || a.Level != b.Level || a.Summary != b.Summary || len(a.Factors) != len(b.Factors) {
		t.Fatalf("scoring is not deterministic: %+v vs %+v", a, b)
	}
	for i := range a.Factors {
		if a.Factors[i] != b.Factors[i] {
			t.Fatalf("factor %d differs between runs", i)
		}
	}
}
