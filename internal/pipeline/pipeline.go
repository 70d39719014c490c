package pipeline

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/MOYARU/driftwatch/internal/alert"
	"github.com/MOYARU/driftwatch/internal/config"
	"github.com/MOYARU/driftwatch/internal/drift"
	"github.com/MOYARU/driftwatch/internal/fingerprint"
	"github.com/MOYARU/driftwatch/internal/probe"
	"github.com/MOYARU/driftwatch/internal/report"
	"github.com/MOYARU/driftwatch/internal/risk"
	"github.com/MOYARU/driftwatch/internal/store"
)

// ErrScanInFlight rejects a second scan of a target whose previous scan has
// not finished. Cooldown and drift both assume one run per target at a time.
var ErrScanInFlight = errors.New("a scan for this target is already running")

// Result is the outcome of one pipeline run. Events and Alerts are empty
// on a target's first assessment, when there is nothing to compare against.
type Result struct {
	Assessment *store.Assessment
	Events     []drift.Event
	Alerts     []alert.Considered
}

// Pipeline runs probe → fingerprint → score for one target, persists the
// assessment, and hands any drift against the previous completed assessment
// to the alert engine. Targets are assumed vetted at their entry point.
type Pipeline struct {
	store   *store.Store
	prober  *probe.Prober
	table   fingerprint.Table
	weights risk.Weights
	alerts  *alert.Engine

	mu       sync.Mutex
	inflight map[uint]struct{}
}

func New(s *store.Store, policy config.Policy) *Pipeline {
	return &Pipeline{
		store:    s,
		prober:   probe.New(policy),
		table:    fingerprint.DefaultTable(),
		weights:  risk.DefaultWeights(),
		alerts:   alert.NewEngine(s, policy),
		inflight: make(map[uint]struct{}),
	}
}

// Run scans one target. A probe that cannot reach the site still completes
// the assessment in degraded form; only an unusable target URL or a storage
// error fails it. When the assessment completed but a later stage errored,
// Run returns both the partial Result and the error.
func (p *Pipeline) Run(ctx context.Context, target *store.Target) (*Result, error) {
	if !p.begin(target.ID) {
		return nil, ErrScanInFlight
	}
	defer p.end(target.ID)

	assessment := &store.Assessment{TargetID: target.ID, Status: store.StatusRunning}
	if err := p.store.Assessments().Create(assessment); err != nil {
		return nil, errors.Wrap(err, "failed to open assessment")
	}

	facts, err := p.prober.Probe(ctx, target.URL)
	if err != nil {
		return nil, p.fail(assessment, err)
	}

	detected := fingerprint.Detect(fingerprint.Input{
		Headers:          facts.Headers,
		HeadersAvailable: facts.HeadersAvailable,
		Body:             facts.BodyPrefix,
		FaviconHash:      facts.FaviconHash,
	}, p.table)

	in := risk.Input{
		SSLValid:       facts.SSLValid,
		HeadersChecked: facts.HeadersAvailable,
		CMS:            detected.CMS,
		ServerBanner:   facts.ServerBanner(),
	}
	if facts.Cert != nil {
		days := facts.Cert.DaysLeft
		in.SSLDaysLeft = &days
	}
	if facts.HeadersAvailable {
		in.PresentHeaders, in.MissingHeaders = risk.EvaluateChecklist(facts.Headers, p.weights)
	}

	breakdown := risk.Score(in, p.weights)

	assessment.SSLValid = facts.SSLValid
	assessment.SSLDaysLeft = in.SSLDaysLeft
	if facts.Cert != nil {
		assessment.SSLIssuer = facts.Cert.Issuer
	}
	assessment.HeadersChecked = facts.HeadersAvailable
	assessment.SetPresentHeaders(in.PresentHeaders)
	assessment.SetMissingHeaders(in.MissingHeaders)
	assessment.SetTechnologies(detected.Technologies)
	assessment.CMS = detected.CMS
	assessment.ServerBanner = facts.ServerBanner()
	assessment.FaviconHash = facts.FaviconHash
	assessment.Score = breakdown.Score
	assessment.Level = string(breakdown.Level)
	assessment.SetFactors(breakdown.Factors)
	assessment.Summary = breakdown.Summary
	assessment.RequestCount = facts.Requests
	assessment.ElapsedMS = facts.Elapsed.Milliseconds()

	if err := p.store.Assessments().Complete(assessment); err != nil {
		return nil, p.fail(assessment, err)
	}
	if err := p.store.Targets().SetLastAssessment(target.ID, assessment.ID); err != nil {
		log.Warn().Err(err).Uint("target", target.ID).Msg("could not update target's last assessment")
	}

	log.Info().
		Uint("target", target.ID).
		Str("url", report.ScrubURL(target.URL)).
		Int("score", assessment.Score).
		Str("level", assessment.Level).
		Msg("assessment completed")

	result := &Result{Assessment: assessment}

	prev, err := p.store.Assessments().PreviousCompleted(target.ID, assessment.ID)
	if err != nil {
		return result, errors.Wrap(err, "failed to load previous assessment")
	}
	if prev == nil {
		return result, nil
	}

	result.Events = drift.Compare(prev.Snapshot(), assessment.Snapshot(), p.weights)
	if len(result.Events) == 0 {
		return result, nil
	}

	result.Alerts, err = p.alerts.Evaluate(target.UserID, target.ID, result.Events)
	if err != nil {
		return result, errors.Wrap(err, "failed to evaluate alerts")
	}
	return result, nil
}

// fail marks the assessment failed with a scrubbed reason and returns the
// original cause wrapped for the caller.
func (p *Pipeline) fail(a *store.Assessment, cause error) error {
	if err := p.store.Assessments().Fail(a, report.ScrubError(cause)); err != nil {
		log.Error().Err(err).Uint("assessment", a.ID).Msg("could not record assessment failure")
	}
	return errors.Wrap(cause, "scan failed")
}

func (p *Pipeline) begin(targetID uint) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inflight[targetID]; busy {
		return false
	}
	p.inflight[targetID] = struct{}{}
	return true
}

func (p *Pipeline) end(targetID uint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inflight, targetID)
}
