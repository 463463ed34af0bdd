// ABOUTME: Handlers for account endpoints: register, login, logout, me, change-password
// ABOUTME: Register and login both return the account with a session token

package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/intellivuln/vulnscan/internal/auth"
	"github.com/intellivuln/vulnscan/internal/store"
)

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// authResponse is shared by register and login: the account plus a fresh
// session token.
type authResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

type userResponse struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

func toUserResponse(u *store.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		badRequest(w, "email and password are required")
		return
	}

	user, err := s.passwords.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		respondError(w, err)
		return
	}

	// Registration logs the account in immediately, same shape as login.
	token, err := s.issueToken(user)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		User:  toUserResponse(user),
		Token: token,
	})
}

func (s *Server) issueToken(user *store.User) (string, error) {
	return s.tokens.Generate(&auth.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	}, s.cfg.Auth.TokenLifetime)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		badRequest(w, "email and password are required")
		return
	}

	user, err := s.passwords.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, err)
		return
	}

	token, err := s.issueToken(user)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		User:  toUserResponse(user),
		Token: token,
	})
}

// handleLogout exists for client symmetry. Tokens are stateless, so there is
// nothing to revoke server-side; clients discard the token.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustFromContext(r.Context())

	user, err := s.store.GetUser(r.Context(), identity.UserID)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustFromContext(r.Context())

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		badRequest(w, "currentPassword and newPassword are required")
		return
	}

	if err := s.passwords.ChangePassword(r.Context(), identity.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		// The caller is already authenticated; a wrong current password is a
		// bad request here, not a 401.
		if errors.Is(err, auth.ErrInvalidCredentials) {
			badRequest(w, "current password is incorrect")
			return
		}
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, out)
}
