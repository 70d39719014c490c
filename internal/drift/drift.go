package drift

import (
	"strconv"

	"github.com/MOYARU/driftwatch/internal/report"
	"github.com/MOYARU/driftwatch/internal/risk"
)

// scoreDeltaFloor is the smallest absolute score change worth an event;
// smaller swings are measurement noise.
const scoreDeltaFloor = 10

type Kind string

const (
	KindSSLChanged       Kind = "ssl-changed"
	KindRiskLevelChanged Kind = "risk-level-changed"
	KindScoreDelta       Kind = "score-delta"
	KindHeaderAdded      Kind = "header-added"
	KindHeaderRemoved    Kind = "header-removed"
	KindTechAdded        Kind = "tech-added"
	KindTechRemoved      Kind = "tech-removed"
)

type Direction string

const (
	DirectionImprovement Direction = "improvement"
	DirectionRegression  Direction = "regression"
	DirectionNeutral     Direction = "neutral"
)

// Event is one observed difference between two consecutive assessments.
// Subject carries the header or technology name for add/remove kinds.
type Event struct {
	Kind      Kind
	Direction Direction
	Severity  report.Severity
	Subject   string
	Previous  string
	Current   string
}

// Snapshot is the drift-relevant slice of one completed assessment.
// Header sets are only compared when HeadersChecked is true on both sides.
type Snapshot struct {
	SSLValid       bool
	Score          int
	Level          risk.Level
	HeadersChecked bool
	PresentHeaders []string
	MissingHeaders []string
	Technologies   []string
}

// Compare diffs the previous and current snapshots of one target and
// returns every observed change. Identical snapshots yield no events; a
// single comparison can yield several.
func Compare(prev, curr Snapshot, w risk.Weights) []Event {
	var events []Event

	if prev.SSLValid != curr.SSLValid {
		events = append(events, sslEvent(prev.SSLValid, curr.SSLValid))
	}

	if prev.Level != curr.Level {
		events = append(events, levelEvent(prev.Level, curr.Level))
	}

	if delta := curr.Score - prev.Score; delta >= scoreDeltaFloor || delta <= -scoreDeltaFloor {
		events = append(events, scoreEvent(prev.Score, curr.Score))
	}

	if prev.HeadersChecked && curr.HeadersChecked {
		events = append(events, headerEvents(prev, curr, w)...)
	}

	events = append(events, techEvents(prev.Technologies, curr.Technologies)...)

	return events
}

func sslEvent(prevValid, currValid bool) Event {
	e := Event{
		Kind:     KindSSLChanged,
		Previous: sslLabel(prevValid),
		Current:  sslLabel(currValid),
	}
	if currValid {
		e.Direction = DirectionImprovement
		e.Severity = report.SeverityInfo
	} else {
		e.Direction = DirectionRegression
		e.Severity = report.SeverityCritical
	}
	return e
}

func sslLabel(valid bool) string {
	if valid {
		return "valid"
	}
	return "invalid"
}

func levelEvent(prev, curr risk.Level) Event {
	e := Event{
		Kind:     KindRiskLevelChanged,
		Previous: string(prev),
		Current:  string(curr),
	}
	if curr.Rank() < prev.Rank() {
		e.Direction = DirectionImprovement
		e.Severity = report.SeverityInfo
	} else {
		e.Direction = DirectionRegression
		// A regression is as severe as the tier it lands in.
		e.Severity = report.ParseSeverity(string(curr))
	}
	return e
}

func scoreEvent(prev, curr int) Event {
	e := Event{
		Kind:     KindScoreDelta,
		Previous: strconv.Itoa(prev),
		Current:  strconv.Itoa(curr),
	}
	if curr < prev {
		e.Direction = DirectionImprovement
		e.Severity = report.SeverityInfo
	} else {
		e.Direction = DirectionRegression
		e.Severity = report.SeverityMedium
	}
	return e
}

// headerEvents emits one event per header that changed sides. Headers on
// the same side in both snapshots produce nothing.
func headerEvents(prev, curr Snapshot, w risk.Weights) []Event {
	var events []Event

	currMissing := toSet(curr.MissingHeaders)
	for _, name := range prev.PresentHeaders {
		if _, gone := currMissing[name]; gone {
			events = append(events, Event{
				Kind:      KindHeaderRemoved,
				Direction: DirectionRegression,
				Severity:  removedHeaderSeverity(name, w),
				Subject:   name,
				Previous:  "present",
				Current:   "missing",
			})
		}
	}

	currPresent := toSet(curr.PresentHeaders)
	for _, name := range prev.MissingHeaders {
		if _, added := currPresent[name]; added {
			events = append(events, Event{
				Kind:      KindHeaderAdded,
				Direction: DirectionImprovement,
				Severity:  report.SeverityInfo,
				Subject:   name,
				Previous:  "missing",
				Current:   "present",
			})
		}
	}

	return events
}

// removedHeaderSeverity floors at medium: losing any checklist header is
// notification-worthy under default preferences.
func removedHeaderSeverity(name string, w risk.Weights) report.Severity {
	if w.HeaderWeight(name) >= 10 {
		return report.SeverityHigh
	}
	return report.SeverityMedium
}

// techEvents reports technology set changes as neutral observations. A
// technology dropping out of the fingerprint is not proof it was removed.
func techEvents(prev, curr []string) []Event {
	var events []Event

	prevSet := toSet(prev)
	for _, name := range curr {
		if _, ok := prevSet[name]; !ok {
			events = append(events, Event{
				Kind:      KindTechAdded,
				Direction: DirectionNeutral,
				Severity:  report.SeverityLow,
				Subject:   name,
				Previous:  "not detected",
				Current:   "detected",
			})
		}
	}

	currSet := toSet(curr)
	for _, name := range prev {
		if _, ok := currSet[name]; !ok {
			events = append(events, Event{
				Kind:      KindTechRemoved,
				Direction: DirectionNeutral,
				Severity:  report.SeverityLow,
				Subject:   name,
				Previous:  "detected",
				Current:   "no longer detected",
			})
		}
	}

	return events
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
