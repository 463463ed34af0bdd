// ABOUTME: Handlers for asset inventory CRUD
// ABOUTME: Deleting an asset cascades to its recorded vulnerabilities

package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/intellivuln/vulnscan/internal/store"
)

type assetRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	AssetType       string `json:"asset_type"`
	Hostname        string `json:"hostname"`
	IPAddress       string `json:"ip_address"`
	OperatingSystem string `json:"operating_system"`
	Owner           string `json:"owner"`
	Environment     string `json:"environment"`
	Criticality     string `json:"criticality"`
}

type assetResponse struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	AssetType       string `json:"asset_type"`
	Hostname        string `json:"hostname"`
	IPAddress       string `json:"ip_address"`
	OperatingSystem string `json:"operating_system"`
	Owner           string `json:"owner"`
	Environment     string `json:"environment"`
	Criticality     string `json:"criticality"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

func toAssetResponse(a *store.Asset) assetResponse {
	return assetResponse{
		ID:              a.ID,
		Name:            a.Name,
		Description:     a.Description,
		AssetType:       a.AssetType,
		Hostname:        a.Hostname,
		IPAddress:       a.IPAddress,
		OperatingSystem: a.OperatingSystem,
		Owner:           a.Owner,
		Environment:     a.Environment,
		Criticality:     a.Criticality,
		CreatedAt:       a.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       a.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (req *assetRequest) apply(a *store.Asset) {
	a.Name = req.Name
	a.Description = req.Description
	a.AssetType = req.AssetType
	a.Hostname = req.Hostname
	a.IPAddress = req.IPAddress
	a.OperatingSystem = req.OperatingSystem
	a.Owner = req.Owner
	a.Environment = req.Environment
	a.Criticality = req.Criticality
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	assets, err := s.store.ListAssets(r.Context(), limit)
	if err != nil {
		respondError(w, err)
		return
	}

	out := make([]assetResponse, 0, len(assets))
	for _, a := range assets {
		out = append(out, toAssetResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateAsset(w http.ResponseWriter, r *http.Request) {
	var req assetRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Name == "" {
		badRequest(w, "name is required")
		return
	}

	asset := &store.Asset{}
	req.apply(asset)

	if err := s.store.CreateAsset(r.Context(), asset); err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAssetResponse(asset))
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid asset id")
		return
	}

	asset, err := s.store.GetAsset(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAssetResponse(asset))
}

func (s *Server) handleUpdateAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid asset id")
		return
	}

	var req assetRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Name == "" {
		badRequest(w, "name is required")
		return
	}

	asset, err := s.store.GetAsset(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	req.apply(asset)
	if err := s.store.UpdateAsset(r.Context(), asset); err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAssetResponse(asset))
}

func (s *Server) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid asset id")
		return
	}

	if err := s.store.DeleteAsset(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "asset deleted"})
}
