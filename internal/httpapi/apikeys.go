// ABOUTME: Handlers for API key management: list, create, delete
// ABOUTME: Keys are scoped to their owner; cross-owner access reads as not found

package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/intellivuln/vulnscan/internal/auth"
	"github.com/intellivuln/vulnscan/internal/store"
)

type createAPIKeyRequest struct {
	Name string `json:"name"`

	// ExpiresInDays is optional; the configured default (365) applies when
	// absent. The expiry timestamp is computed server-side as now + N days.
	ExpiresInDays *int `json:"expiresInDays,omitempty"`
}

type apiKeyListResponse struct {
	APIKeys []apiKeyResponse `json:"apiKeys"`
}

type apiKeyResponse struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Key       string  `json:"key"`
	CreatedAt string  `json:"created_at"`
	ExpiresAt string  `json:"expires_at"`
	LastUsed  *string `json:"last_used"`
}

func toAPIKeyResponse(k *store.APIKey) apiKeyResponse {
	resp := apiKeyResponse{
		ID:        k.ID,
		Name:      k.Name,
		Key:       k.Key,
		CreatedAt: k.CreatedAt.UTC().Format(time.RFC3339),
		ExpiresAt: k.ExpiresAt.UTC().Format(time.RFC3339),
	}
	if k.LastUsed != nil {
		used := k.LastUsed.UTC().Format(time.RFC3339)
		resp.LastUsed = &used
	}
	return resp
}

func (s *Server) handleListAPIKeys(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustFromContext(r.Context())

	keys, err := s.keys.List(r.Context(), identity.UserID)
	if err != nil {
		respondError(w, err)
		return
	}

	out := make([]apiKeyResponse, 0, len(keys))
	for _, k := range keys {
		out = append(out, toAPIKeyResponse(k))
	}
	writeJSON(w, http.StatusOK, apiKeyListResponse{APIKeys: out})
}

func (s *Server) handleCreateAPIKey(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustFromContext(r.Context())

	var req createAPIKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Name == "" {
		badRequest(w, "name is required")
		return
	}

	var expiresAt time.Time
	if req.ExpiresInDays != nil {
		if *req.ExpiresInDays <= 0 {
			badRequest(w, "expiresInDays must be positive")
			return
		}
		expiresAt = time.Now().Add(time.Duration(*req.ExpiresInDays) * 24 * time.Hour)
	}

	key, err := s.keys.Issue(r.Context(), identity.UserID, req.Name, expiresAt)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAPIKeyResponse(key))
}

func (s *Server) handleDeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustFromContext(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		badRequest(w, "invalid key id")
		return
	}

	if err := s.keys.Revoke(r.Context(), identity.UserID, id); err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "api key deleted"})
}
