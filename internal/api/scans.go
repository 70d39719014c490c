package api

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/MOYARU/driftwatch/internal/alert"
	"github.com/MOYARU/driftwatch/internal/digest"
	msges "github.com/MOYARU/driftwatch/internal/messages"
	"github.com/MOYARU/driftwatch/internal/pipeline"
	"github.com/MOYARU/driftwatch/internal/probe"
	"github.com/MOYARU/driftwatch/internal/report"
	"github.com/MOYARU/driftwatch/internal/schedule"
	"github.com/MOYARU/driftwatch/internal/store"
)

type scansAPI struct {
	store     *store.Store
	pipeline  *pipeline.Pipeline
	scheduler *schedule.Scheduler
	digests   *digest.Dispatcher
	vet       func(string) (string, error)
}

type scanRequest struct {
	UserID uint   `json:"user_id"`
	URL    string `json:"url"`
}

type scanResponse struct {
	Assessment  *assessmentView `json:"assessment"`
	DriftEvents int             `json:"drift_events"`
	Emitted     int             `json:"alerts_emitted"`
	Warning     string          `json:"warning,omitempty"`
}

// submit runs the full pipeline for one URL, registering the target on
// first sight. Synchronous: the response carries the finished assessment.
// When the assessment completed but drift or alert handling failed, the
// response still carries it, with the failure in the warning field.
func (a *scansAPI) submit(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UserID == 0 {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	vetted, err := a.vet(req.URL)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	target, err := a.store.Targets().ByUserAndURL(req.UserID, vetted)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load target")
		return
	}
	if target == nil {
		target = &store.Target{
			UserID: req.UserID,
			URL:    vetted,
			Domain: probe.RegistrableDomain(vetted),
		}
		if err := a.store.Targets().Create(target); err != nil {
			writeError(w, http.StatusInternalServerError, "could not register target")
			return
		}
	}

	result, err := a.pipeline.Run(r.Context(), target)
	if errors.Is(err, pipeline.ErrScanInFlight) {
		writeError(w, http.StatusConflict, msges.GetUIMessage("ScanInFlight"))
		return
	}
	if result == nil {
		writeError(w, http.StatusBadGateway, report.ScrubError(err))
		return
	}

	resp := scanResponse{
		Assessment:  newAssessmentView(result.Assessment),
		DriftEvents: len(result.Events),
	}
	for _, c := range result.Alerts {
		if c.Outcome == alert.OutcomeEmitted {
			resp.Emitted++
		}
	}
	if err != nil {
		// The assessment itself completed; only a later stage errored.
		log.Warn().Err(err).Uint("target", target.ID).Msg("assessment completed but drift or alert handling failed")
		resp.Warning = report.ScrubError(err)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *scansAPI) runScheduler(w http.ResponseWriter, r *http.Request) {
	result, err := a.scheduler.RunDue(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "scheduler batch failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *scansAPI) runDigests(w http.ResponseWriter, r *http.Request) {
	result, err := a.digests.Dispatch(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "digest pass failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
