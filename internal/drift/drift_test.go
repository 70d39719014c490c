package drift

import (
	"testing"

	"github.com/MOYARU/driftwatch/internal/report"
	"github.com/MOYARU/driftwatch/internal/risk"
)

func baseSnapshot() Snapshot {
	return Snapshot{
		SSLValid:       true,
		Score:          20,
		Level:          risk.LevelLow,
		HeadersChecked: true,
		PresentHeaders: []string{"Strict-Transport-Security", "Content-Security-Policy"},
		MissingHeaders: []string{"X-Frame-Options"},
		Technologies:   []string{"Nginx", "WordPress"},
	}
}

func kinds(events []Event) map[Kind]int {
	m := make(map[Kind]int)
	for _, e := range events {
		m[e.Kind]++
	}
	return m
}

func TestCompareIdenticalSnapshots(t *testing.T) {
	s := baseSnapshot()
	if events := Compare(s, s, risk.DefaultWeights()); len(events) != 0 {
		t.Fatalf("identical snapshots must yield no events, got %v", events)
	}
}

func TestCompareScoreDeltaBoundary(t *testing.T) {
	prev := baseSnapshot()
	prev.Score = 10

	curr := baseSnapshot()
	curr.Score = 19 // delta 9, same level
	if events := Compare(prev, curr, risk.DefaultWeights()); len(events) != 0 {
		t.Fatalf("delta of 9 must not produce events, got %v", events)
	}

	curr.Score = 20 // delta 10
	events := Compare(prev, curr, risk.DefaultWeights())
	if len(events) != 1 || events[0].Kind != KindScoreDelta {
		t.Fatalf("delta of 10 must produce exactly one score event, got %v", events)
	}
	if events[0].Direction != DirectionRegression {
		t.Fatalf("rising score is a regression, got %s", events[0].Direction)
	}
	if events[0].Previous != "10" || events[0].Current != "20" {
		t.Fatalf("unexpected score values: %s -> %s", events[0].Previous, events[0].Current)
	}
}

func TestCompareScoreDrop(t *testing.T) {
	prev := baseSnapshot()
	prev.Score = 25
	curr := baseSnapshot()
	curr.Score = 10

	events := Compare(prev, curr, risk.DefaultWeights())
	if len(events) != 1 || events[0].Direction != DirectionImprovement {
		t.Fatalf("falling score is an improvement, got %v", events)
	}
}

func TestCompareSSLTransition(t *testing.T) {
	prev := baseSnapshot()
	curr := baseSnapshot()
	curr.SSLValid = false

	events := Compare(prev, curr, risk.DefaultWeights())
	if len(events) != 1 {
		t.Fatalf("expected one event, got %v", events)
	}
	e := events[0]
	if e.Kind != KindSSLChanged || e.Direction != DirectionRegression {
		t.Fatalf("expected ssl regression, got %+v", e)
	}
	if e.Severity != report.SeverityCritical {
		t.Fatalf("losing valid ssl is critical, got %s", e.Severity)
	}
	if e.Previous != "valid" || e.Current != "invalid" {
		t.Fatalf("unexpected ssl values: %s -> %s", e.Previous, e.Current)
	}

	// Reverse direction.
	back := Compare(curr, prev, risk.DefaultWeights())
	if len(back) != 1 || back[0].Direction != DirectionImprovement {
		t.Fatalf("regaining ssl is an improvement, got %v", back)
	}
}

func TestCompareLevelTransition(t *testing.T) {
	prev := baseSnapshot()
	prev.Level = risk.LevelHigh
	curr := baseSnapshot()
	curr.Level = risk.LevelLow

	events := Compare(prev, curr, risk.DefaultWeights())
	if len(events) != 1 || events[0].Kind != KindRiskLevelChanged {
		t.Fatalf("expected level event, got %v", events)
	}
	if events[0].Direction != DirectionImprovement {
		t.Fatalf("dropping a tier is an improvement, got %s", events[0].Direction)
	}

	worse := Compare(curr, prev, risk.DefaultWeights())
	if len(worse) != 1 || worse[0].Direction != DirectionRegression {
		t.Fatalf("climbing a tier is a regression, got %v", worse)
	}
	if worse[0].Severity != report.SeverityHigh {
		t.Fatalf("regression into high should carry high severity, got %s", worse[0].Severity)
	}
}

func TestCompareHeaderMoves(t *testing.T) {
	prev := baseSnapshot()
	curr := baseSnapshot()
	curr.PresentHeaders = []string{"X-Frame-Options"}
	curr.MissingHeaders = []string{"Strict-Transport-Security", "Content-Security-Policy"}

	events := Compare(prev, curr, risk.DefaultWeights())
	counts := kinds(events)
	if counts[KindHeaderRemoved] != 2 {
		t.Fatalf("expected 2 removed headers, got %v", events)
	}
	if counts[KindHeaderAdded] != 1 {
		t.Fatalf("expected 1 added header, got %v", events)
	}

	for _, e := range events {
		switch e.Kind {
		case KindHeaderRemoved:
			if e.Direction != DirectionRegression {
				t.Fatalf("removed header must be a regression: %+v", e)
			}
			if !e.Severity.AtLeast(report.SeverityMedium) {
				t.Fatalf("removed header severity must be at least medium: %+v", e)
			}
		case KindHeaderAdded:
			if e.Direction != DirectionImprovement || e.Subject != "X-Frame-Options" {
				t.Fatalf("unexpected added header event: %+v", e)
			}
		}
	}
}

func TestCompareSkipsHeadersWhenEitherSideUnchecked(t *testing.T) {
	prev := baseSnapshot()
	curr := baseSnapshot()
	curr.HeadersChecked = false
	curr.PresentHeaders = nil
	curr.MissingHeaders = nil

	events := Compare(prev, curr, risk.DefaultWeights())
	counts := kinds(events)
	if counts[KindHeaderAdded] != 0 || counts[KindHeaderRemoved] != 0 {
		t.Fatalf("header diff must be skipped when data is incomplete: %v", events)
	}
}

func TestCompareTechChanges(t *testing.T) {
	prev := baseSnapshot()
	curr := baseSnapshot()
	curr.Technologies = []string{"Nginx", "React"}

	events := Compare(prev, curr, risk.DefaultWeights())
	counts := kinds(events)
	if counts[KindTechAdded] != 1 || counts[KindTechRemoved] != 1 {
		t.Fatalf("expected one added and one removed technology, got %v", events)
	}
	for _, e := range events {
		if e.Direction != DirectionNeutral {
			t.Fatalf("technology changes are neutral observations: %+v", e)
		}
		if e.Kind == KindTechRemoved && e.Current != "no longer detected" {
			t.Fatalf("removal must be phrased as an observation, got %q", e.Current)
		}
	}
}

func TestCompareCompositeChange(t *testing.T) {
	prev := baseSnapshot()
	prev.PresentHeaders = []string{"Strict-Transport-Security", "Content-Security-Policy", "X-Content-Type-Options"}
	prev.MissingHeaders = []string{"X-Frame-Options"}

	curr := baseSnapshot()
	curr.SSLValid = false
	curr.PresentHeaders = nil
	curr.MissingHeaders = []string{"Strict-Transport-Security", "Content-Security-Policy", "X-Content-Type-Options", "X-Frame-Options"}

	events := Compare(prev, curr, risk.DefaultWeights())
	counts := kinds(events)
	if counts[KindSSLChanged] != 1 || counts[KindHeaderRemoved] != 3 {
		t.Fatalf("expected 1 ssl and 3 removed-header events, got %v", events)
	}
	if len(events) != 4 {
		t.Fatalf("expected exactly 4 events, got %d: %v", len(events), events)
	}
}
