package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/MOYARU/driftwatch/internal/alert"
	"github.com/MOYARU/driftwatch/internal/app/ui"
	"github.com/MOYARU/driftwatch/internal/drift"
	msges "github.com/MOYARU/driftwatch/internal/messages"
	"github.com/MOYARU/driftwatch/internal/report"
	"github.com/MOYARU/driftwatch/internal/risk"
	"github.com/MOYARU/driftwatch/internal/store"
)

// SeverityColor maps a severity tier onto the ANSI palette.
func SeverityColor(s report.Severity) string {
	switch s {
	case report.SeverityCritical:
		return ui.ColorCritical
	case report.SeverityHigh:
		return ui.ColorHigh
	case report.SeverityMedium:
		return ui.ColorMedium
	case report.SeverityLow:
		return ui.ColorLow
	case report.SeverityInfo:
		return ui.ColorInfo
	default:
		return ui.ColorWhite
	}
}

// PrintAssessment prints the scored breakdown of a completed assessment.
// The factor list is already sorted by points descending; zero-point
// factors render green so the output reads as a checklist.
func PrintAssessment(a *store.Assessment) {
	fmt.Printf("\n%s%s%s\n", ui.ColorWhite, msges.GetUIMessage("ConsoleBreakdownTitle"), ui.ColorReset)

	levelColor := SeverityColor(report.ParseSeverity(a.Level))
	fmt.Printf("\n %sRisk %d/100 (%s)%s\n", levelColor, a.Score, strings.ToUpper(a.Level), ui.ColorReset)
	if a.Summary != "" {
		fmt.Printf(" %s%s%s\n", ui.ColorGray, a.Summary, ui.ColorReset)
	}
	fmt.Println()

	for _, f := range a.FactorList() {
		color := SeverityColor(f.Severity)
		if f.Points == 0 {
			color = ui.ColorGreen
		}
		fmt.Printf(" %s[%2d/%2d] %s%s\n", color, f.Points, f.MaxPoints, f.Description, ui.ColorReset)
	}

	if !a.HeadersChecked {
		fmt.Printf(" %s%s%s\n", ui.ColorGray, msges.GetUIMessage("ConsoleHeadersSkipped"), ui.ColorReset)
	}
	if a.SSLValid && a.SSLDaysLeft != nil {
		fmt.Printf(" %s%s%s\n", ui.ColorGray, msges.GetUIMessage("ConsoleCertExpiry", *a.SSLDaysLeft), ui.ColorReset)
	}
	if techs := a.TechnologyList(); len(techs) > 0 {
		fmt.Printf(" %s%s%s\n", ui.ColorGray, msges.GetUIMessage("ConsoleTechnologies", strings.Join(techs, ", ")), ui.ColorReset)
	}
}

// PrintDrift prints the changes observed against the previous completed
// assessment, most severe first. firstRun distinguishes "nothing to compare
// against yet" from "compared and found nothing".
func PrintDrift(events []drift.Event, firstRun bool) {
	if firstRun {
		fmt.Printf("\n%s%s%s\n", ui.ColorGray, msges.GetUIMessage("ConsoleFirstRun"), ui.ColorReset)
		return
	}
	if len(events) == 0 {
		fmt.Printf("\n%s%s%s\n", ui.ColorGreen, msges.GetUIMessage("ConsoleNoDrift"), ui.ColorReset)
		return
	}

	sorted := make([]drift.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Severity.Rank() > sorted[j].Severity.Rank()
	})

	fmt.Printf("\n%s%s%s\n", ui.ColorWhite, msges.GetUIMessage("ConsoleDriftTitle"), ui.ColorReset)
	for _, ev := range sorted {
		marker := "~"
		switch ev.Direction {
		case drift.DirectionRegression:
			marker = "-"
		case drift.DirectionImprovement:
			marker = "+"
		}
		fmt.Printf(" %s%s [%s] %s%s\n", SeverityColor(ev.Severity), marker, ev.Severity, DescribeEvent(ev), ui.ColorReset)
	}
}

// PrintAlerts prints the outcome of each drift event the alert engine
// considered. Suppressed events render gray with the suppression reason.
func PrintAlerts(considered []alert.Considered) {
	if len(considered) == 0 {
		return
	}

	fmt.Printf("\n%s%s%s\n", ui.ColorWhite, msges.GetUIMessage("ConsoleAlertsTitle"), ui.ColorReset)
	for _, c := range considered {
		if c.Outcome == alert.OutcomeEmitted && c.Record != nil {
			color := SeverityColor(report.ParseSeverity(c.Record.Severity))
			fmt.Printf(" %s[%s] %s%s\n", color, c.Record.Severity, c.Record.Title, ui.ColorReset)
			fmt.Printf("   %s%s%s\n", ui.ColorGray, c.Record.Description, ui.ColorReset)
			continue
		}
		fmt.Printf(" %s[%s] %s: %s%s\n", ui.ColorGray, c.Outcome, c.Type, DescribeEvent(c.Event), ui.ColorReset)
	}
}

// DescribeEvent renders one drift event as a single console line.
func DescribeEvent(ev drift.Event) string {
	switch ev.Kind {
	case drift.KindSSLChanged:
		return fmt.Sprintf("Certificate validity: %s -> %s", ev.Previous, ev.Current)
	case drift.KindRiskLevelChanged:
		return fmt.Sprintf("Risk level: %s -> %s", ev.Previous, ev.Current)
	case drift.KindScoreDelta:
		return fmt.Sprintf("Risk score: %s -> %s", ev.Previous, ev.Current)
	case drift.KindHeaderAdded:
		return fmt.Sprintf("Security header now present: %s", ev.Subject)
	case drift.KindHeaderRemoved:
		return fmt.Sprintf("Security header no longer present: %s", ev.Subject)
	case drift.KindTechAdded:
		return fmt.Sprintf("Technology detected: %s", ev.Subject)
	case drift.KindTechRemoved:
		return fmt.Sprintf("Technology no longer detected: %s", ev.Subject)
	default:
		return string(ev.Kind)
	}
}

// WriteJSON writes the machine-readable form of one assessment run to w.
func WriteJSON(w io.Writer, t *store.Target, a *store.Assessment, events []drift.Event, considered []alert.Considered) error {
	type eventView struct {
		Kind      drift.Kind      `json:"kind"`
		Direction drift.Direction `json:"direction"`
		Severity  report.Severity `json:"severity"`
		Subject   string          `json:"subject,omitempty"`
		Previous  string          `json:"previous,omitempty"`
		Current   string          `json:"current,omitempty"`
	}

	type alertView struct {
		Type    string        `json:"type"`
		Outcome alert.Outcome `json:"outcome"`
		Title   string        `json:"title,omitempty"`
	}

	type jsonReport struct {
		Target         string        `json:"target"`
		Domain         string        `json:"domain,omitempty"`
		Status         string        `json:"status"`
		Score          int           `json:"score"`
		Level          string        `json:"level"`
		Summary        string        `json:"summary,omitempty"`
		SSLValid       bool          `json:"ssl_valid"`
		SSLDaysLeft    *int          `json:"ssl_days_left,omitempty"`
		SSLIssuer      string        `json:"ssl_issuer,omitempty"`
		HeadersChecked bool          `json:"headers_checked"`
		PresentHeaders []string      `json:"present_headers"`
		MissingHeaders []string      `json:"missing_headers"`
		Technologies   []string      `json:"technologies"`
		CMS            string        `json:"cms,omitempty"`
		ServerBanner   string        `json:"server_banner,omitempty"`
		Factors        []risk.Factor `json:"factors"`
		RequestCount   int64         `json:"request_count"`
		ElapsedMS      int64         `json:"elapsed_ms"`
		Drift          []eventView   `json:"drift"`
		Alerts         []alertView   `json:"alerts"`
	}

	doc := jsonReport{
		Target:         t.URL,
		Domain:         t.Domain,
		Status:         string(a.Status),
		Score:          a.Score,
		Level:          a.Level,
		Summary:        a.Summary,
		SSLValid:       a.SSLValid,
		SSLDaysLeft:    a.SSLDaysLeft,
		SSLIssuer:      a.SSLIssuer,
		HeadersChecked: a.HeadersChecked,
		PresentHeaders: a.PresentHeaderList(),
		MissingHeaders: a.MissingHeaderList(),
		Technologies:   a.TechnologyList(),
		CMS:            a.CMS,
		ServerBanner:   a.ServerBanner,
		Factors:        a.FactorList(),
		RequestCount:   a.RequestCount,
		ElapsedMS:      a.ElapsedMS,
		Drift:          make([]eventView, 0, len(events)),
		Alerts:         make([]alertView, 0, len(considered)),
	}

	for _, ev := range events {
		doc.Drift = append(doc.Drift, eventView{
			Kind:      ev.Kind,
			Direction: ev.Direction,
			Severity:  ev.Severity,
			Subject:   ev.Subject,
			Previous:  ev.Previous,
			Current:   ev.Current,
		})
	}
	for _, c := range considered {
		av := alertView{Type: c.Type, Outcome: c.Outcome}
		if c.Record != nil {
			av.Title = c.Record.Title
		}
		doc.Alerts = append(doc.Alerts, av)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(doc)
}
