package digest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/MOYARU/driftwatch/internal/alert"
	"github.com/MOYARU/driftwatch/internal/mailer"
	msges "github.com/MOYARU/driftwatch/internal/messages"
	"github.com/MOYARU/driftwatch/internal/report"
	"github.com/MOYARU/driftwatch/internal/store"
)

// Dispatcher batches unsent alerts into one notification per user, grouped
// by target domain, with regressions and improvements kept apart.
type Dispatcher struct {
	store  *store.Store
	mailer mailer.Mailer

	now func() time.Time
}

func New(s *store.Store, m mailer.Mailer) *Dispatcher {
	return &Dispatcher{store: s, mailer: m, now: time.Now}
}

// Result summarizes one dispatch pass.
type Result struct {
	Users      int `json:"users"`
	Dispatched int `json:"dispatched"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
	Alerts     int `json:"alerts"`
}

// Dispatch sends every pending digest. Safe to call repeatedly: the sent
// flag excludes already-covered alerts, a user with a disabled channel has
// their backlog marked sent without delivery, and a delivery failure leaves
// the affected records unsent so the next pass retries them.
func (d *Dispatcher) Dispatch(ctx context.Context) (*Result, error) {
	result := &Result{}

	unsent, err := d.store.Alerts().Unsent()
	if err != nil {
		return nil, err
	}
	if len(unsent) == 0 {
		return result, nil
	}

	byUser := make(map[uint][]*store.AlertRecord)
	var order []uint
	for _, rec := range unsent {
		if _, seen := byUser[rec.UserID]; !seen {
			order = append(order, rec.UserID)
		}
		byUser[rec.UserID] = append(byUser[rec.UserID], rec)
	}
	result.Users = len(order)

	for _, userID := range order {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		records := byUser[userID]
		ids := make([]uint, len(records))
		for i, rec := range records {
			ids[i] = rec.ID
		}

		setting, err := d.store.Settings().For(userID)
		if err != nil {
			return result, err
		}
		if !setting.Enabled || setting.Email == "" {
			// Mark without delivering so a disabled channel never
			// accumulates an unbounded backlog.
			if err := d.store.Alerts().MarkSent(ids, d.now()); err != nil {
				return result, err
			}
			result.Skipped++
			result.Alerts += len(ids)
			continue
		}

		subject, body, err := d.render(userID, records)
		if err != nil {
			return result, err
		}
		if err := d.mailer.Send(mailer.Message{To: setting.Email, Subject: subject, Body: body}); err != nil {
			log.Warn().Err(err).Uint("user", userID).Msg("digest delivery failed, will retry next pass")
			result.Failed++
			continue
		}
		if err := d.store.Alerts().MarkSent(ids, d.now()); err != nil {
			return result, err
		}
		result.Dispatched++
		result.Alerts += len(ids)
	}

	log.Info().
		Int("users", result.Users).
		Int("dispatched", result.Dispatched).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("digest pass finished")
	return result, nil
}

// Loop dispatches at the polling interval until the context ends.
func (d *Dispatcher) Loop(ctx context.Context, pollSeconds int) {
	if pollSeconds < 1 {
		pollSeconds = 300
	}
	ticker := time.NewTicker(time.Duration(pollSeconds) * time.Second)
	defer ticker.Stop()

	for {
		if _, err := d.Dispatch(ctx); err != nil {
			log.Error().Err(err).Msg("digest pass failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// render builds one user's digest: a section per delivery class, each
// grouped by target domain.
func (d *Dispatcher) render(userID uint, records []*store.AlertRecord) (subject, body string, err error) {
	targets, err := d.store.Targets().ListByUser(userID)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to resolve digest domains")
	}
	domainOf := make(map[uint]string, len(targets))
	for _, t := range targets {
		domain := t.Domain
		if domain == "" {
			domain = report.ScrubURL(t.URL)
		}
		domainOf[t.ID] = domain
	}

	sections := map[alert.Class]map[string][]*store.AlertRecord{}
	domains := make(map[string]bool)
	for _, rec := range records {
		class := alert.ClassOf(rec.Type)
		domain := domainOf[rec.TargetID]
		if domain == "" {
			domain = "unknown"
		}
		domains[domain] = true
		if sections[class] == nil {
			sections[class] = make(map[string][]*store.AlertRecord)
		}
		sections[class][domain] = append(sections[class][domain], rec)
	}

	subject = msges.GetUIMessage("DigestSubject", len(records), len(domains))

	var b strings.Builder
	b.WriteString(subject)
	b.WriteString("\n")
	writeSection(&b, msges.GetUIMessage("DigestRegressions"), sections[alert.ClassRegression])
	writeSection(&b, msges.GetUIMessage("DigestImprovements"), sections[alert.ClassImprovement])
	writeSection(&b, msges.GetUIMessage("DigestInformational"), sections[alert.ClassInformational])
	return subject, b.String(), nil
}

func writeSection(b *strings.Builder, title string, byDomain map[string][]*store.AlertRecord) {
	if len(byDomain) == 0 {
		return
	}

	fmt.Fprintf(b, "\n%s\n", title)
	domains := make([]string, 0, len(byDomain))
	for domain := range byDomain {
		domains = append(domains, domain)
	}
	sort.Strings(domains)

	for _, domain := range domains {
		fmt.Fprintf(b, "\n  %s\n", domain)
		for _, rec := range byDomain[domain] {
			fmt.Fprintf(b, "    [%s] %s: %s\n", rec.Severity, rec.Title, rec.Description)
		}
	}
}
