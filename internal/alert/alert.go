package alert

import (
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/MOYARU/driftwatch/internal/config"
	"github.com/MOYARU/driftwatch/internal/drift"
	msges "github.com/MOYARU/driftwatch/internal/messages"
	"github.com/MOYARU/driftwatch/internal/report"
	"github.com/MOYARU/driftwatch/internal/store"
)

// Alert types. The drift kind → type mapping below is fixed.
const (
	TypeSSLInvalid        = "ssl_invalid"
	TypeSSLRestored       = "ssl_restored"
	TypeRiskIncreased     = "risk_increased"
	TypeRiskDecreased     = "risk_decreased"
	TypeConfigDrift       = "config_drift"
	TypeConfigImproved    = "config_improved"
	TypeNewTechnology     = "new_technology"
	TypeTechnologyRemoved = "technology_removed"
)

// Types lists every alert type, in preference-listing order.
func Types() []string {
	return []string{
		TypeSSLInvalid,
		TypeSSLRestored,
		TypeRiskIncreased,
		TypeRiskDecreased,
		TypeConfigDrift,
		TypeConfigImproved,
		TypeNewTechnology,
		TypeTechnologyRemoved,
	}
}

// ValidType reports whether s names a known alert type.
func ValidType(s string) bool {
	for _, t := range Types() {
		if t == s {
			return true
		}
	}
	return false
}

type Class string

const (
	ClassRegression    Class = "regression"
	ClassImprovement   Class = "improvement"
	ClassInformational Class = "informational"
)

// ClassOf returns the delivery class for an alert type.
func ClassOf(alertType string) Class {
	switch alertType {
	case TypeSSLRestored, TypeRiskDecreased, TypeConfigImproved:
		return ClassImprovement
	case TypeNewTechnology, TypeTechnologyRemoved:
		return ClassInformational
	default:
		return ClassRegression
	}
}

// MapEvent resolves the fixed drift kind → alert type mapping.
func MapEvent(ev drift.Event) (string, Class) {
	switch ev.Kind {
	case drift.KindSSLChanged:
		if ev.Direction == drift.DirectionImprovement {
			return TypeSSLRestored, ClassImprovement
		}
		return TypeSSLInvalid, ClassRegression
	case drift.KindRiskLevelChanged, drift.KindScoreDelta:
		if ev.Direction == drift.DirectionImprovement {
			return TypeRiskDecreased, ClassImprovement
		}
		return TypeRiskIncreased, ClassRegression
	case drift.KindHeaderRemoved:
		return TypeConfigDrift, ClassRegression
	case drift.KindHeaderAdded:
		return TypeConfigImproved, ClassImprovement
	case drift.KindTechAdded:
		return TypeNewTechnology, ClassInformational
	case drift.KindTechRemoved:
		return TypeTechnologyRemoved, ClassInformational
	}
	return "", ClassInformational
}

type Outcome string

const (
	OutcomeEmitted            Outcome = "emitted"
	OutcomeSuppressedDisabled Outcome = "suppressed-disabled"
	OutcomeSuppressedSeverity Outcome = "suppressed-severity"
	OutcomeSuppressedCooldown Outcome = "suppressed-cooldown"
)

// Considered is the decision record for one drift event. Every input event
// comes back exactly once, so callers never re-evaluate.
type Considered struct {
	Event   drift.Event
	Type    string
	Outcome Outcome
	Record  *store.AlertRecord
}

const (
	prefCacheSize = 512
	prefCacheTTL  = 30 * time.Second
)

// Engine turns qualifying drift events into persisted alert records,
// applying per-user preferences and the cooldown dedup contract.
type Engine struct {
	store *store.Store
	prefs *expirable.LRU[string, *store.AlertPreference]

	// Policy-level cooldown windows; per-preference values win.
	defaultHours     int
	improvementHours *int

	now func() time.Time
}

func NewEngine(s *store.Store, policy config.Policy) *Engine {
	return &Engine{
		store:            s,
		prefs:            expirable.NewLRU[string, *store.AlertPreference](prefCacheSize, nil, prefCacheTTL),
		defaultHours:     policy.DefaultCooldownHours,
		improvementHours: policy.ImprovementCooldownHours,
		now:              time.Now,
	}
}

// Evaluate runs every event through the preference, severity, and cooldown
// gates and persists the survivors. The whole batch runs in one
// transaction, so the cooldown read and the insert see consistent state.
// Cooldown is measured against alerts that existed before this batch:
// several events of one type in the same comparison never throttle each
// other, only a record from an earlier run does.
func (e *Engine) Evaluate(userID, targetID uint, events []drift.Event) ([]Considered, error) {
	if len(events) == 0 {
		return nil, nil
	}

	considered := make([]Considered, 0, len(events))
	err := e.store.WithTransaction(func(tx *gorm.DB) error {
		priors := make(map[string]*store.AlertRecord)
		for _, ev := range events {
			c, err := e.evaluateOne(tx, userID, targetID, ev, priors)
			if err != nil {
				return err
			}
			considered = append(considered, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return considered, nil
}

func (e *Engine) evaluateOne(tx *gorm.DB, userID, targetID uint, ev drift.Event, priors map[string]*store.AlertRecord) (Considered, error) {
	alertType, class := MapEvent(ev)
	c := Considered{Event: ev, Type: alertType}

	pref, err := e.preference(userID, alertType)
	if err != nil {
		return c, err
	}

	if !pref.Enabled {
		c.Outcome = OutcomeSuppressedDisabled
		return c, nil
	}

	// Improvements are never too minor to report; everything else must
	// clear the user's severity floor.
	if class != ClassImprovement {
		min := report.ParseSeverity(pref.MinSeverity)
		if !ev.Severity.AtLeast(min) {
			c.Outcome = OutcomeSuppressedSeverity
			return c, nil
		}
	}

	latest, ok := priors[alertType]
	if !ok {
		latest, err = store.AlertsIn(tx).LatestFor(userID, targetID, alertType)
		if err != nil {
			return c, err
		}
		priors[alertType] = latest
	}
	if latest != nil {
		window := e.cooldown(pref, class)
		if e.now().Sub(latest.CreatedAt) < window {
			log.Debug().
				Str("type", alertType).
				Uint("target", targetID).
				Msg("alert suppressed by cooldown")
			c.Outcome = OutcomeSuppressedCooldown
			return c, nil
		}
	}

	title, description := describe(alertType, ev)
	record := &store.AlertRecord{
		UserID:        userID,
		TargetID:      targetID,
		Type:          alertType,
		Severity:      string(ev.Severity),
		Title:         title,
		Description:   description,
		PreviousValue: ev.Previous,
		CurrentValue:  ev.Current,
	}
	if err := store.AlertsIn(tx).Create(record); err != nil {
		return c, err
	}

	c.Outcome = OutcomeEmitted
	c.Record = record
	return c, nil
}

// cooldown picks the window for a class: improvements may run on their own
// clock (preference override first, then policy), regressions and
// informational alerts use the preference's window.
func (e *Engine) cooldown(pref *store.AlertPreference, class Class) time.Duration {
	hours := pref.CooldownHours
	if class == ClassImprovement {
		switch {
		case pref.ImprovementCooldownHours != nil:
			hours = *pref.ImprovementCooldownHours
		case e.improvementHours != nil:
			hours = *e.improvementHours
		}
	}
	return time.Duration(hours) * time.Hour
}

func (e *Engine) preference(userID uint, alertType string) (*store.AlertPreference, error) {
	key := fmt.Sprintf("%d|%s", userID, alertType)
	if pref, ok := e.prefs.Get(key); ok {
		return pref, nil
	}

	pref, err := e.store.Preferences().For(userID, alertType)
	if err != nil {
		return nil, err
	}
	pref.ApplyDefaultCooldown(e.defaultHours)
	e.prefs.Add(key, pref)
	return pref, nil
}

// describe renders the user-facing title and description. Header and
// technology events are about a subject; the rest are before/after.
func describe(alertType string, ev drift.Event) (string, string) {
	msg := msges.GetMessage(alertType)
	switch ev.Kind {
	case drift.KindHeaderAdded, drift.KindHeaderRemoved, drift.KindTechAdded, drift.KindTechRemoved:
		return msg.Title, fmt.Sprintf(msg.Message, ev.Subject)
	default:
		return msg.Title, fmt.Sprintf(msg.Message, ev.Previous, ev.Current)
	}
}
