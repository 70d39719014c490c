package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	msges "github.com/MOYARU/driftwatch/internal/messages"
	"github.com/MOYARU/driftwatch/internal/probe"
	"github.com/MOYARU/driftwatch/internal/risk"
	"github.com/MOYARU/driftwatch/internal/store"
)

type targetsAPI struct {
	store *store.Store
	vet   func(string) (string, error)
}

type targetRequest struct {
	UserID          uint   `json:"user_id"`
	URL             string `json:"url"`
	ScheduleEnabled bool   `json:"schedule_enabled"`
	Frequency       string `json:"frequency"`
}

type targetView struct {
	ID               uint       `json:"id"`
	UserID           uint       `json:"user_id"`
	URL              string     `json:"url"`
	Domain           string     `json:"domain"`
	ScheduleEnabled  bool       `json:"schedule_enabled"`
	Frequency        string     `json:"frequency,omitempty"`
	NextRunAt        *time.Time `json:"next_run_at,omitempty"`
	LastAssessmentID *uint      `json:"last_assessment_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func newTargetView(t *store.Target) targetView {
	return targetView{
		ID:               t.ID,
		UserID:           t.UserID,
		URL:              t.URL,
		Domain:           t.Domain,
		ScheduleEnabled:  t.ScheduleEnabled,
		Frequency:        string(t.Frequency),
		NextRunAt:        t.NextRunAt,
		LastAssessmentID: t.LastAssessmentID,
		CreatedAt:        t.CreatedAt,
	}
}

type assessmentView struct {
	ID             uint          `json:"id"`
	TargetID       uint          `json:"target_id"`
	Status         string        `json:"status"`
	SSLValid       bool          `json:"ssl_valid"`
	SSLDaysLeft    *int          `json:"ssl_days_left,omitempty"`
	SSLIssuer      string        `json:"ssl_issuer,omitempty"`
	HeadersChecked bool          `json:"headers_checked"`
	PresentHeaders []string      `json:"present_headers"`
	MissingHeaders []string      `json:"missing_headers"`
	Technologies   []string      `json:"technologies"`
	CMS            string        `json:"cms,omitempty"`
	ServerBanner   string        `json:"server_banner,omitempty"`
	Score          int           `json:"score"`
	Level          string        `json:"level"`
	Factors        []risk.Factor `json:"factors"`
	Summary        string        `json:"summary"`
	FailureReason  string        `json:"failure_reason,omitempty"`
	RequestCount   int64         `json:"request_count"`
	ElapsedMS      int64         `json:"elapsed_ms"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

func newAssessmentView(a *store.Assessment) *assessmentView {
	return &assessmentView{
		ID:             a.ID,
		TargetID:       a.TargetID,
		Status:         string(a.Status),
		SSLValid:       a.SSLValid,
		SSLDaysLeft:    a.SSLDaysLeft,
		SSLIssuer:      a.SSLIssuer,
		HeadersChecked: a.HeadersChecked,
		PresentHeaders: a.PresentHeaderList(),
		MissingHeaders: a.MissingHeaderList(),
		Technologies:   a.TechnologyList(),
		CMS:            a.CMS,
		ServerBanner:   a.ServerBanner,
		Score:          a.Score,
		Level:          a.Level,
		Factors:        a.FactorList(),
		Summary:        a.Summary,
		FailureReason:  a.FailureReason,
		RequestCount:   a.RequestCount,
		ElapsedMS:      a.ElapsedMS,
		CompletedAt:    a.CompletedAt,
		CreatedAt:      a.CreatedAt,
	}
}

func (a *targetsAPI) list(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseUint(r.URL.Query().Get("user_id"), 10, 32)
	if err != nil || userID == 0 {
		writeError(w, http.StatusBadRequest, "user_id query parameter is required")
		return
	}

	rows, err := a.store.Targets().ListByUser(uint(userID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not list targets")
		return
	}
	views := make([]targetView, len(rows))
	for i, t := range rows {
		views[i] = newTargetView(t)
	}
	writeJSON(w, http.StatusOK, views)
}

func (a *targetsAPI) create(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
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

	frequency := store.Frequency(req.Frequency)
	if req.Frequency == "" {
		frequency = store.FrequencyDaily
	} else if !frequency.Valid() {
		writeError(w, http.StatusBadRequest, "frequency must be hourly, daily, or weekly")
		return
	}

	existing, err := a.store.Targets().ByUserAndURL(req.UserID, vetted)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not check for existing target")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, msges.GetUIMessage("TargetExists", vetted))
		return
	}

	target := &store.Target{
		UserID:          req.UserID,
		URL:             vetted,
		Domain:          probe.RegistrableDomain(vetted),
		ScheduleEnabled: req.ScheduleEnabled,
		Frequency:       frequency,
	}
	if req.ScheduleEnabled {
		now := time.Now()
		target.NextRunAt = &now
	}
	if err := a.store.Targets().Create(target); err != nil {
		writeError(w, http.StatusInternalServerError, "could not register target")
		return
	}
	writeJSON(w, http.StatusCreated, newTargetView(target))
}

func (a *targetsAPI) assessments(w http.ResponseWriter, r *http.Request) {
	targetID, ok := uintParam(r, "targetID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid target id")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}

	rows, err := a.store.Assessments().ListByTarget(targetID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not list assessments")
		return
	}
	views := make([]*assessmentView, len(rows))
	for i, row := range rows {
		views[i] = newAssessmentView(row)
	}
	writeJSON(w, http.StatusOK, views)
}

func (a *targetsAPI) latest(w http.ResponseWriter, r *http.Request) {
	targetID, ok := uintParam(r, "targetID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid target id")
		return
	}

	curr, _, err := a.store.Assessments().LatestPair(targetID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load assessment")
		return
	}
	if curr == nil {
		writeError(w, http.StatusNotFound, "no completed assessment for this target")
		return
	}
	writeJSON(w, http.StatusOK, newAssessmentView(curr))
}
