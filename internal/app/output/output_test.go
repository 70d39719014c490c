package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/MOYARU/driftwatch/internal/alert"
	"github.com/MOYARU/driftwatch/internal/drift"
	"github.com/MOYARU/driftwatch/internal/report"
	"github.com/MOYARU/driftwatch/internal/risk"
	"github.com/MOYARU/driftwatch/internal/store"
)

func TestWriteJSONReportShape(t *testing.T) {
	target := &store.Target{URL: "https://example.com", Domain: "example.com"}

	a := &store.Assessment{
		TargetID:       1,
		Status:         store.StatusCompleted,
		SSLValid:       true,
		HeadersChecked: true,
		Score:          40,
		Level:          "medium",
		Summary:        "Risk 40/100 (medium): 2 of 7 security headers missing.",
		RequestCount:   3,
		ElapsedMS:      120,
	}
	a.SetPresentHeaders([]string{"Strict-Transport-Security"})
	a.SetMissingHeaders([]string{"Content-Security-Policy", "X-Frame-Options"})
	a.SetTechnologies([]string{"WordPress"})
	a.SetFactors([]risk.Factor{{
		Category:    risk.CategoryHeaders,
		Points:      10,
		MaxPoints:   10,
		Severity:    report.SeverityMedium,
		Description: "Missing security header: Content-Security-Policy",
	}})

	events := []drift.Event{{
		Kind:      drift.KindHeaderRemoved,
		Direction: drift.DirectionRegression,
		Severity:  report.SeverityMedium,
		Subject:   "Content-Security-Policy",
	}}
	considered := []alert.Considered{{
		Event:   events[0],
		Type:    alert.TypeConfigDrift,
		Outcome: alert.OutcomeEmitted,
		Record:  &store.AlertRecord{Title: "Security configuration drift", Severity: "medium"},
	}}

	var buf bytes.Buffer
	if err := WriteJSON(&buf, target, a, events, considered); err != nil {
		t.Fatalf("WriteJSON() error: %v", err)
	}

	var doc struct {
		Target         string   `json:"target"`
		Domain         string   `json:"domain"`
		Status         string   `json:"status"`
		Score          int      `json:"score"`
		Level          string   `json:"level"`
		MissingHeaders []string `json:"missing_headers"`
		Drift          []struct {
			Kind    string `json:"kind"`
			Subject string `json:"subject"`
		} `json:"drift"`
		Alerts []struct {
			Type    string `json:"type"`
			Outcome string `json:"outcome"`
			Title   string `json:"title"`
		} `json:"alerts"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("json.Unmarshal() error: %v", err)
	}

	if doc.Target != "https://example.com" || doc.Domain != "example.com" {
		t.Fatalf("unexpected target identity: %q / %q", doc.Target, doc.Domain)
	}
	if doc.Status != "completed" || doc.Score != 40 || doc.Level != "medium" {
		t.Fatalf("unexpected assessment fields: %q %d %q", doc.Status, doc.Score, doc.Level)
	}
	if len(doc.MissingHeaders) != 2 {
		t.Fatalf("expected 2 missing headers, got %v", doc.MissingHeaders)
	}
	if len(doc.Drift) != 1 || doc.Drift[0].Kind != "header-removed" || doc.Drift[0].Subject != "Content-Security-Policy" {
		t.Fatalf("unexpected drift section: %+v", doc.Drift)
	}
	if len(doc.Alerts) != 1 || doc.Alerts[0].Type != alert.TypeConfigDrift || doc.Alerts[0].Outcome != "emitted" {
		t.Fatalf("unexpected alerts section: %+v", doc.Alerts)
	}
	if doc.Alerts[0].Title != "Security configuration drift" {
		t.Fatalf("expected emitted alert to carry its record title, got %q", doc.Alerts[0].Title)
	}
}

func TestWriteJSONEmptySectionsStayArrays(t *testing.T) {
	target := &store.Target{URL: "https://example.com"}
	a := &store.Assessment{Status: store.StatusCompleted, Level: "low"}

	var buf bytes.Buffer
	if err := WriteJSON(&buf, target, a, nil, nil); err != nil {
		t.Fatalf("WriteJSON() error: %v", err)
	}

	raw := buf.String()
	if strings.Contains(raw, `"drift": null`) || strings.Contains(raw, `"alerts": null`) {
		t.Fatalf("empty sections must encode as [], got:\n%s", raw)
	}
}

func TestDescribeEvent(t *testing.T) {
	cases := []struct {
		event drift.Event
		want  string
	}{
		{
			drift.Event{Kind: drift.KindSSLChanged, Previous: "valid", Current: "invalid"},
			"Certificate validity: valid -> invalid",
		},
		{
			drift.Event{Kind: drift.KindRiskLevelChanged, Previous: "medium", Current: "high"},
			"Risk level: medium -> high",
		},
		{
			drift.Event{Kind: drift.KindScoreDelta, Previous: "40", Current: "68"},
			"Risk score: 40 -> 68",
		},
		{
			drift.Event{Kind: drift.KindHeaderRemoved, Subject: "Content-Security-Policy"},
			"Security header no longer present: Content-Security-Policy",
		},
		{
			drift.Event{Kind: drift.KindHeaderAdded, Subject: "X-Frame-Options"},
			"Security header now present: X-Frame-Options",
		},
		{
			drift.Event{Kind: drift.KindTechAdded, Subject: "WordPress"},
			"Technology detected: WordPress",
		},
		{
			drift.Event{Kind: drift.KindTechRemoved, Subject: "Drupal"},
			"Technology no longer detected: Drupal",
		},
	}

	for _, tc := range cases {
		if got := DescribeEvent(tc.event); got != tc.want {
			t.Errorf("DescribeEvent(%s) = %q, want %q", tc.event.Kind, got, tc.want)
		}
	}
}

func TestSeverityColorCoversScale(t *testing.T) {
	severities := []report.Severity{
		report.SeverityInfo,
		report.SeverityLow,
		report.SeverityMedium,
		report.SeverityHigh,
		report.SeverityCritical,
	}

	seen := make(map[string]report.Severity)
	for _, s := range severities {
		color := SeverityColor(s)
		if color == "" {
			t.Fatalf("SeverityColor(%s) returned empty", s)
		}
		if prev, ok := seen[color]; ok {
			t.Fatalf("severities %s and %s share color %q", prev, s, color)
		}
		seen[color] = s
	}
}
