package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/MOYARU/driftwatch/internal/store"
)

type alertsAPI struct {
	store *store.Store
}

type alertView struct {
	ID            uint       `json:"id"`
	TargetID      uint       `json:"target_id"`
	Type          string     `json:"type"`
	Severity      string     `json:"severity"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	PreviousValue string     `json:"previous_value,omitempty"`
	CurrentValue  string     `json:"current_value,omitempty"`
	Read          bool       `json:"read"`
	Dismissed     bool       `json:"dismissed"`
	Sent          bool       `json:"sent"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func newAlertView(rec *store.AlertRecord) alertView {
	return alertView{
		ID:            rec.ID,
		TargetID:      rec.TargetID,
		Type:          rec.Type,
		Severity:      rec.Severity,
		Title:         rec.Title,
		Description:   rec.Description,
		PreviousValue: rec.PreviousValue,
		CurrentValue:  rec.CurrentValue,
		Read:          rec.Read,
		Dismissed:     rec.Dismissed,
		Sent:          rec.Sent,
		SentAt:        rec.SentAt,
		CreatedAt:     rec.CreatedAt,
	}
}

func (a *alertsAPI) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := uintParam(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}

	rows, err := a.store.Alerts().ListByUser(userID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not list alerts")
		return
	}
	views := make([]alertView, len(rows))
	for i, rec := range rows {
		views[i] = newAlertView(rec)
	}
	writeJSON(w, http.StatusOK, views)
}

func (a *alertsAPI) read(w http.ResponseWriter, r *http.Request) {
	alertID, ok := uintParam(r, "alertID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid alert id")
		return
	}
	if err := a.store.Alerts().MarkRead(alertID); err != nil {
		writeError(w, http.StatusInternalServerError, "could not mark alert read")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *alertsAPI) dismiss(w http.ResponseWriter, r *http.Request) {
	alertID, ok := uintParam(r, "alertID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid alert id")
		return
	}
	if err := a.store.Alerts().MarkDismissed(alertID); err != nil {
		writeError(w, http.StatusInternalServerError, "could not dismiss alert")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
