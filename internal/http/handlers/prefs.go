package handlers

import (
	"encoding/json"
	"net/http"
)

func (a *App) PrefsSidebarGet(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	collapsed, err := a.Prefs.SidebarCollapsed(r.Context(), userID)
	if err != nil {
		a.Logger.Error().Err(err).Msg("read sidebar pref failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to read preference")
		return
	}
	a.json(w, http.StatusOK, map[string]bool{"collapsed": collapsed})
}

type sidebarPrefRequest struct {
	Collapsed *bool `json:"collapsed"`
}

func (a *App) PrefsSidebarPut(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req sidebarPrefRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Collapsed == nil {
		a.error(w, http.StatusBadRequest, "bad_request", "collapsed required")
		return
	}
	if err := a.Prefs.SetSidebarCollapsed(r.Context(), userID, *req.Collapsed); err != nil {
		a.Logger.Error().Err(err).Msg("write sidebar pref failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to save preference")
		return
	}
	a.json(w, http.StatusOK, map[string]bool{"collapsed": *req.Collapsed})
}
