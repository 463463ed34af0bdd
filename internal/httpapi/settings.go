// ABOUTME: Handlers for per-user notification and scan settings
// ABOUTME: A missing settings row is lazily provisioned with defaults on read

package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/intellivuln/vulnscan/internal/auth"
	"github.com/intellivuln/vulnscan/internal/store"
)

type settingsResponse struct {
	EmailNotifications bool   `json:"email_notifications"`
	SeverityThreshold  string `json:"severity_threshold"`
	AutoScanEnabled    bool   `json:"auto_scan_enabled"`
	UpdatedAt          string `json:"updated_at"`
}

type updateSettingsRequest struct {
	EmailNotifications *bool   `json:"email_notifications"`
	SeverityThreshold  *string `json:"severity_threshold"`
	AutoScanEnabled    *bool   `json:"auto_scan_enabled"`
}

func toSettingsResponse(st *store.Settings) settingsResponse {
	return settingsResponse{
		EmailNotifications: st.EmailNotifications,
		SeverityThreshold:  st.SeverityThreshold,
		AutoScanEnabled:    st.AutoScanEnabled,
		UpdatedAt:          st.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// getOrProvisionSettings covers accounts created before settings provisioning
// existed, or whose best-effort provisioning failed at registration.
func (s *Server) getOrProvisionSettings(r *http.Request, userID int64) (*store.Settings, error) {
	settings, err := s.store.GetSettingsByUser(r.Context(), userID)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	settings = store.DefaultSettings(userID)
	if err := s.store.CreateSettings(r.Context(), settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustFromContext(r.Context())

	settings, err := s.getOrProvisionSettings(r, identity.UserID)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSettingsResponse(settings))
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustFromContext(r.Context())

	var req updateSettingsRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	settings, err := s.getOrProvisionSettings(r, identity.UserID)
	if err != nil {
		respondError(w, err)
		return
	}

	if req.EmailNotifications != nil {
		settings.EmailNotifications = *req.EmailNotifications
	}
	if req.SeverityThreshold != nil {
		if !validSeverity(*req.SeverityThreshold) {
			badRequest(w, "severity_threshold must be one of critical, high, medium, low")
			return
		}
		settings.SeverityThreshold = *req.SeverityThreshold
	}
	if req.AutoScanEnabled != nil {
		settings.AutoScanEnabled = *req.AutoScanEnabled
	}

	if err := s.store.UpdateSettings(r.Context(), settings); err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSettingsResponse(settings))
}

func validSeverity(s string) bool {
	switch s {
	case store.SeverityCritical, store.SeverityHigh, store.SeverityMedium, store.SeverityLow:
		return true
	}
	return false
}
