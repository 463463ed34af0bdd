// ABOUTME: Handlers for vulnerability findings: CRUD, filtering, status moves
// ABOUTME: Findings always reference an existing asset

package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/intellivuln/vulnscan/internal/store"
)

type vulnerabilityRequest struct {
	AssetID          int64   `json:"asset_id"`
	CVEID            string  `json:"cve_id"`
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	Severity         string  `json:"severity"`
	CVSSScore        float64 `json:"cvss_score"`
	Status           string  `json:"status,omitempty"`
	ExploitAvailable bool    `json:"exploit_available"`
	PatchAvailable   bool    `json:"patch_available"`
}

type vulnerabilityStatusRequest struct {
	Status string `json:"status"`
}

type vulnerabilityResponse struct {
	ID               int64   `json:"id"`
	AssetID          int64   `json:"asset_id"`
	CVEID            string  `json:"cve_id"`
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	Severity         string  `json:"severity"`
	CVSSScore        float64 `json:"cvss_score"`
	Status           string  `json:"status"`
	ExploitAvailable bool    `json:"exploit_available"`
	PatchAvailable   bool    `json:"patch_available"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

func toVulnerabilityResponse(v *store.Vulnerability) vulnerabilityResponse {
	return vulnerabilityResponse{
		ID:               v.ID,
		AssetID:          v.AssetID,
		CVEID:            v.CVEID,
		Title:            v.Title,
		Description:      v.Description,
		Severity:         v.Severity,
		CVSSScore:        v.CVSSScore,
		Status:           v.Status,
		ExploitAvailable: v.ExploitAvailable,
		PatchAvailable:   v.PatchAvailable,
		CreatedAt:        v.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        v.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func validVulnStatus(s string) bool {
	switch s {
	case store.VulnStatusOpen, store.VulnStatusInProgress, store.VulnStatusResolved, store.VulnStatusAcceptedRisk:
		return true
	}
	return false
}

func (s *Server) validateVulnerabilityRequest(w http.ResponseWriter, req *vulnerabilityRequest) bool {
	if req.AssetID <= 0 {
		badRequest(w, "asset_id is required")
		return false
	}
	if req.Title == "" {
		badRequest(w, "title is required")
		return false
	}
	if !validSeverity(req.Severity) {
		badRequest(w, "severity must be one of critical, high, medium, low")
		return false
	}
	if req.CVSSScore < 0 || req.CVSSScore > 10 {
		badRequest(w, "cvss_score must be between 0 and 10")
		return false
	}
	if req.Status != "" && !validVulnStatus(req.Status) {
		badRequest(w, "status must be one of open, in_progress, resolved, accepted_risk")
		return false
	}
	return true
}

func (s *Server) handleListVulnerabilities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := store.VulnerabilityFilter{
		Severity: q.Get("severity"),
		Status:   q.Get("status"),
		CVEID:    q.Get("cve_id"),
	}
	if raw := q.Get("asset_id"); raw != "" {
		assetID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(w, "invalid asset_id")
			return
		}
		filter.AssetID = assetID
	}
	limit, _ := strconv.Atoi(q.Get("limit"))

	vulns, err := s.store.ListVulnerabilities(r.Context(), filter, limit)
	if err != nil {
		respondError(w, err)
		return
	}

	out := make([]vulnerabilityResponse, 0, len(vulns))
	for _, v := range vulns {
		out = append(out, toVulnerabilityResponse(v))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateVulnerability(w http.ResponseWriter, r *http.Request) {
	var req vulnerabilityRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if !s.validateVulnerabilityRequest(w, &req) {
		return
	}

	// Findings must point at a real asset.
	if _, err := s.store.GetAsset(r.Context(), req.AssetID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			badRequest(w, "asset_id references an unknown asset")
			return
		}
		respondError(w, err)
		return
	}

	vuln := &store.Vulnerability{
		AssetID:          req.AssetID,
		CVEID:            req.CVEID,
		Title:            req.Title,
		Description:      req.Description,
		Severity:         req.Severity,
		CVSSScore:        req.CVSSScore,
		Status:           req.Status,
		ExploitAvailable: req.ExploitAvailable,
		PatchAvailable:   req.PatchAvailable,
	}
	if err := s.store.CreateVulnerability(r.Context(), vuln); err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toVulnerabilityResponse(vuln))
}

func (s *Server) handleGetVulnerability(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid vulnerability id")
		return
	}

	vuln, err := s.store.GetVulnerability(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toVulnerabilityResponse(vuln))
}

func (s *Server) handleUpdateVulnerability(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid vulnerability id")
		return
	}

	var req vulnerabilityRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if !s.validateVulnerabilityRequest(w, &req) {
		return
	}

	vuln, err := s.store.GetVulnerability(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	vuln.AssetID = req.AssetID
	vuln.CVEID = req.CVEID
	vuln.Title = req.Title
	vuln.Description = req.Description
	vuln.Severity = req.Severity
	vuln.CVSSScore = req.CVSSScore
	if req.Status != "" {
		vuln.Status = req.Status
	}
	vuln.ExploitAvailable = req.ExploitAvailable
	vuln.PatchAvailable = req.PatchAvailable

	if err := s.store.UpdateVulnerability(r.Context(), vuln); err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toVulnerabilityResponse(vuln))
}

func (s *Server) handleUpdateVulnerabilityStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid vulnerability id")
		return
	}

	var req vulnerabilityStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if !validVulnStatus(req.Status) {
		badRequest(w, "status must be one of open, in_progress, resolved, accepted_risk")
		return
	}

	if err := s.store.UpdateVulnerabilityStatus(r.Context(), id, req.Status); err != nil {
		respondError(w, err)
		return
	}

	vuln, err := s.store.GetVulnerability(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toVulnerabilityResponse(vuln))
}

func (s *Server) handleDeleteVulnerability(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid vulnerability id")
		return
	}

	if err := s.store.DeleteVulnerability(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "vulnerability deleted"})
}
