package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MOYARU/driftwatch/internal/alert"
	"github.com/MOYARU/driftwatch/internal/report"
	"github.com/MOYARU/driftwatch/internal/store"
)

type prefsAPI struct {
	store *store.Store

	// Cooldown applied to preferences the user never persisted.
	defaultCooldownHours int
}

type preferenceView struct {
	UserID                   uint   `json:"user_id"`
	Type                     string `json:"type"`
	Enabled                  bool   `json:"enabled"`
	MinSeverity              string `json:"min_severity"`
	CooldownHours            int    `json:"cooldown_hours"`
	ImprovementCooldownHours *int   `json:"improvement_cooldown_hours,omitempty"`
}

func newPreferenceView(p *store.AlertPreference) preferenceView {
	return preferenceView{
		UserID:                   p.UserID,
		Type:                     p.Type,
		Enabled:                  p.Enabled,
		MinSeverity:              p.MinSeverity,
		CooldownHours:            p.CooldownHours,
		ImprovementCooldownHours: p.ImprovementCooldownHours,
	}
}

// preferenceRequest carries a partial update; nil fields keep their
// current (or default) value.
type preferenceRequest struct {
	Enabled                  *bool   `json:"enabled"`
	MinSeverity              *string `json:"min_severity"`
	CooldownHours            *int    `json:"cooldown_hours"`
	ImprovementCooldownHours *int    `json:"improvement_cooldown_hours"`
}

func (a *prefsAPI) getPreference(w http.ResponseWriter, r *http.Request) {
	userID, alertType, ok := prefScope(w, r)
	if !ok {
		return
	}

	pref, err := a.store.Preferences().For(userID, alertType)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load preference")
		return
	}
	pref.ApplyDefaultCooldown(a.defaultCooldownHours)
	writeJSON(w, http.StatusOK, newPreferenceView(pref))
}

func (a *prefsAPI) putPreference(w http.ResponseWriter, r *http.Request) {
	userID, alertType, ok := prefScope(w, r)
	if !ok {
		return
	}

	var req preferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	pref, err := a.store.Preferences().For(userID, alertType)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load preference")
		return
	}
	pref.ApplyDefaultCooldown(a.defaultCooldownHours)
	if req.Enabled != nil {
		pref.Enabled = *req.Enabled
	}
	if req.MinSeverity != nil {
		if !report.Severity(*req.MinSeverity).Valid() {
			writeError(w, http.StatusBadRequest, "min_severity must be info, low, medium, high, or critical")
			return
		}
		pref.MinSeverity = *req.MinSeverity
	}
	if req.CooldownHours != nil {
		if *req.CooldownHours < 1 {
			writeError(w, http.StatusBadRequest, "cooldown_hours must be at least 1")
			return
		}
		pref.CooldownHours = *req.CooldownHours
	}
	if req.ImprovementCooldownHours != nil {
		switch {
		case *req.ImprovementCooldownHours == 0:
			// Zero clears the override; improvements fall back to the
			// shared window.
			pref.ImprovementCooldownHours = nil
		case *req.ImprovementCooldownHours < 0:
			writeError(w, http.StatusBadRequest, "improvement_cooldown_hours must be 0 (clear) or at least 1")
			return
		default:
			pref.ImprovementCooldownHours = req.ImprovementCooldownHours
		}
	}

	if err := a.store.Preferences().Upsert(pref); err != nil {
		writeError(w, http.StatusInternalServerError, "could not save preference")
		return
	}
	writeJSON(w, http.StatusOK, newPreferenceView(pref))
}

type settingsView struct {
	UserID  uint   `json:"user_id"`
	Email   string `json:"email"`
	Enabled bool   `json:"enabled"`
}

type settingsRequest struct {
	Email   *string `json:"email"`
	Enabled *bool   `json:"enabled"`
}

func (a *prefsAPI) getSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := uintParam(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	setting, err := a.store.Settings().For(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load settings")
		return
	}
	writeJSON(w, http.StatusOK, settingsView{UserID: setting.UserID, Email: setting.Email, Enabled: setting.Enabled})
}

func (a *prefsAPI) putSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := uintParam(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	setting, err := a.store.Settings().For(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load settings")
		return
	}
	if req.Email != nil {
		setting.Email = *req.Email
	}
	if req.Enabled != nil {
		setting.Enabled = *req.Enabled
	}

	if err := a.store.Settings().Upsert(setting); err != nil {
		writeError(w, http.StatusInternalServerError, "could not save settings")
		return
	}
	writeJSON(w, http.StatusOK, settingsView{UserID: setting.UserID, Email: setting.Email, Enabled: setting.Enabled})
}

// prefScope pulls and validates the {userID}/{type} pair shared by the
// preference routes.
func prefScope(w http.ResponseWriter, r *http.Request) (uint, string, bool) {
	userID, ok := uintParam(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return 0, "", false
	}
	alertType := chi.URLParam(r, "type")
	if !alert.ValidType(alertType) {
		writeError(w, http.StatusBadRequest, "unknown alert type: "+alertType)
		return 0, "", false
	}
	return userID, alertType, true
}
