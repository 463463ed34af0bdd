// ABOUTME: End-to-end tests for the REST surface against a real SQLite store
// ABOUTME: Covers the full credential lifecycle and the role gate

package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intellivuln/vulnscan/internal/config"
	"github.com/intellivuln/vulnscan/internal/store"
)

type testServer struct {
	srv *Server
	st  *store.SQLiteStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := &config.Config{
		Environment: config.EnvDevelopment,
		Server:      config.ServerConfig{HTTPAddr: "localhost:0"},
		Database:    config.DatabaseConfig{Path: dbPath},
		Auth: config.AuthConfig{
			JWTSecret:         "httpapi-test-secret-at-least-32-bytes!",
			TokenLifetime:     time.Hour,
			APIKeyDefaultDays: 30,
		},
	}

	srv, err := NewServer(cfg, st)
	require.NoError(t, err)

	return &testServer{srv: srv, st: st}
}

// do sends a request through the full middleware chain and decodes the
// response body into out when out is non-nil.
func (ts *testServer) do(t *testing.T, method, path string, body any, headers map[string]string, out any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)

	if out != nil && rec.Code < 400 {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
	}
	return rec
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// register creates an account and returns the combined user+token payload.
func (ts *testServer) register(t *testing.T, email, password string) authResponse {
	t.Helper()

	var resp authResponse
	rec := ts.do(t, http.MethodPost, "/auth/register", map[string]string{
		"email":    email,
		"name":     "Test User",
		"password": password,
	}, nil, &resp)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotEmpty(t, resp.Token)
	require.Equal(t, email, resp.User.Email)
	return resp
}

func (ts *testServer) login(t *testing.T, email, password string) string {
	t.Helper()

	var resp authResponse
	rec := ts.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil, &resp)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotEmpty(t, resp.Token)
	require.Equal(t, email, resp.User.Email)
	return resp.Token
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error.Code
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", nil, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCredentialLifecycle(t *testing.T) {
	ts := newTestServer(t)

	reg := ts.register(t, "alice@example.com", "password123")
	user := reg.User
	assert.Equal(t, "USER", user.Role)

	// The registration token works immediately, no separate login needed.
	var me userResponse
	rec := ts.do(t, http.MethodGet, "/auth/me", nil, bearer(reg.Token), &me)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, user.ID, me.ID)

	token := ts.login(t, "alice@example.com", "password123")

	rec = ts.do(t, http.MethodGet, "/auth/me", nil, bearer(token), &me)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, user.ID, me.ID)
	assert.Equal(t, "alice@example.com", me.Email)

	// Create an API key.
	var key apiKeyResponse
	rec = ts.do(t, http.MethodPost, "/api-keys", map[string]string{"name": "ci"}, bearer(token), &key)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEmpty(t, key.Key)
	assert.Nil(t, key.LastUsed)

	// The key authenticates requests.
	rec = ts.do(t, http.MethodGet, "/auth/me", nil, map[string]string{"X-Api-Key": key.Key}, &me)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, user.ID, me.ID)

	// last_used is recorded; the listing wraps keys in an object.
	var keys apiKeyListResponse
	rec = ts.do(t, http.MethodGet, "/api-keys", nil, bearer(token), &keys)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, keys.APIKeys, 1)
	assert.NotNil(t, keys.APIKeys[0].LastUsed)

	// Delete the key; it stops authenticating.
	rec = ts.do(t, http.MethodDelete, fmt.Sprintf("/api-keys/%d", key.ID), nil, bearer(token), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/auth/me", nil, map[string]string{"X-Api-Key": key.Key}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_api_key", errorCode(t, rec))
}

func TestRegister_Duplicate(t *testing.T) {
	ts := newTestServer(t)

	ts.register(t, "dup@example.com", "password123")

	rec := ts.do(t, http.MethodPost, "/auth/register", map[string]string{
		"email":    "dup@example.com",
		"password": "password456",
	}, nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "duplicate_account", errorCode(t, rec))
}

func TestRegister_ShortPassword(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/auth/register", map[string]string{
		"email":    "weak@example.com",
		"password": "short",
	}, nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", errorCode(t, rec))
}

func TestLogin_WrongPassword(t *testing.T) {
	ts := newTestServer(t)

	ts.register(t, "bob@example.com", "password123")

	rec := ts.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "bob@example.com",
		"password": "wrong",
	}, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", errorCode(t, rec))
}

func TestLogin_UnknownEmail_SameCode(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "ghost@example.com",
		"password": "whatever123",
	}, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", errorCode(t, rec))
}

func TestProtectedEndpoint_NoCredentials(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/auth/me", nil, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing_credential", errorCode(t, rec))
}

func TestChangePassword_EndToEnd(t *testing.T) {
	ts := newTestServer(t)

	ts.register(t, "carol@example.com", "old-password")
	token := ts.login(t, "carol@example.com", "old-password")

	// A wrong current password is a bad request, not an auth failure; the
	// caller already holds a valid token.
	rec := ts.do(t, http.MethodPost, "/auth/change-password", map[string]string{
		"currentPassword": "not-the-password",
		"newPassword":     "new-password",
	}, bearer(token), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", errorCode(t, rec))

	rec = ts.do(t, http.MethodPost, "/auth/change-password", map[string]string{
		"currentPassword": "old-password",
		"newPassword":     "new-password",
	}, bearer(token), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "carol@example.com",
		"password": "old-password",
	}, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	ts.login(t, "carol@example.com", "new-password")
}

func TestLogout_IsPublicNoOp(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/auth/logout", nil, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteAPIKey_OtherOwner(t *testing.T) {
	ts := newTestServer(t)

	ts.register(t, "owner@example.com", "password123")
	ownerToken := ts.login(t, "owner@example.com", "password123")

	var key apiKeyResponse
	rec := ts.do(t, http.MethodPost, "/api-keys", map[string]string{"name": "mine"}, bearer(ownerToken), &key)
	require.Equal(t, http.StatusCreated, rec.Code)

	ts.register(t, "intruder@example.com", "password123")
	intruderToken := ts.login(t, "intruder@example.com", "password123")

	rec = ts.do(t, http.MethodDelete, fmt.Sprintf("/api-keys/%d", key.ID), nil, bearer(intruderToken), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorCode(t, rec))
}

func TestCreateAPIKey_ExpiresInDays(t *testing.T) {
	ts := newTestServer(t)

	ts.register(t, "keys@example.com", "password123")
	token := ts.login(t, "keys@example.com", "password123")

	// The expiry is computed server-side from the requested day count.
	var key apiKeyResponse
	rec := ts.do(t, http.MethodPost, "/api-keys", map[string]any{
		"name":          "short-lived",
		"expiresInDays": 10,
	}, bearer(token), &key)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	expiresAt, err := time.Parse(time.RFC3339, key.ExpiresAt)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(10*24*time.Hour), expiresAt, time.Minute)

	// Omitted day count falls back to the configured default.
	rec = ts.do(t, http.MethodPost, "/api-keys", map[string]any{"name": "default-lived"}, bearer(token), &key)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	expiresAt, err = time.Parse(time.RFC3339, key.ExpiresAt)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), expiresAt, time.Minute)

	rec = ts.do(t, http.MethodPost, "/api-keys", map[string]any{
		"name":          "never-born",
		"expiresInDays": 0,
	}, bearer(token), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", errorCode(t, rec))
}

func TestUsersEndpoint_AdminOnly(t *testing.T) {
	ts := newTestServer(t)

	user := ts.register(t, "plain@example.com", "password123").User
	token := ts.login(t, "plain@example.com", "password123")

	rec := ts.do(t, http.MethodGet, "/users", nil, bearer(token), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "insufficient_permissions", errorCode(t, rec))

	// Promote and re-login; the fresh token carries the ADMIN role.
	require.NoError(t, ts.st.UpdateUserRole(t.Context(), user.ID, store.RoleAdmin))
	adminToken := ts.login(t, "plain@example.com", "password123")

	var users []userResponse
	rec = ts.do(t, http.MethodGet, "/users", nil, bearer(adminToken), &users)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, users, 1)
}

func TestSettingsEndpoints(t *testing.T) {
	ts := newTestServer(t)

	ts.register(t, "settings@example.com", "password123")
	token := ts.login(t, "settings@example.com", "password123")

	var settings settingsResponse
	rec := ts.do(t, http.MethodGet, "/settings", nil, bearer(token), &settings)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, settings.EmailNotifications)
	assert.Equal(t, "medium", settings.SeverityThreshold)

	rec = ts.do(t, http.MethodPut, "/settings", map[string]any{
		"severity_threshold": "critical",
		"auto_scan_enabled":  true,
	}, bearer(token), &settings)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "critical", settings.SeverityThreshold)
	assert.True(t, settings.AutoScanEnabled)
	// Unmentioned fields keep their values.
	assert.True(t, settings.EmailNotifications)

	rec = ts.do(t, http.MethodPut, "/settings", map[string]any{
		"severity_threshold": "apocalyptic",
	}, bearer(token), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssetAndVulnerabilityFlow(t *testing.T) {
	ts := newTestServer(t)

	analyst := ts.register(t, "analyst@example.com", "password123").User
	token := ts.login(t, "analyst@example.com", "password123")

	// Create an asset.
	var asset assetResponse
	rec := ts.do(t, http.MethodPost, "/assets", map[string]any{
		"name":        "web-01",
		"asset_type":  "server",
		"environment": "production",
		"criticality": "high",
	}, bearer(token), &asset)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Record a finding against it.
	var vuln vulnerabilityResponse
	rec = ts.do(t, http.MethodPost, "/vulnerabilities", map[string]any{
		"asset_id":   asset.ID,
		"cve_id":     "CVE-2024-9999",
		"title":      "heap overflow",
		"severity":   "critical",
		"cvss_score": 9.1,
	}, bearer(token), &vuln)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "open", vuln.Status)

	// A finding against a missing asset is rejected.
	rec = ts.do(t, http.MethodPost, "/vulnerabilities", map[string]any{
		"asset_id": int64(99999),
		"title":    "orphan",
		"severity": "low",
	}, bearer(token), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Move the finding through the status endpoint.
	rec = ts.do(t, http.MethodPut, fmt.Sprintf("/vulnerabilities/%d/status", vuln.ID), map[string]string{
		"status": "resolved",
	}, bearer(token), &vuln)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "resolved", vuln.Status)

	rec = ts.do(t, http.MethodPut, fmt.Sprintf("/vulnerabilities/%d/status", vuln.ID), map[string]string{
		"status": "bogus",
	}, bearer(token), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Filtered listing.
	var listed []vulnerabilityResponse
	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/vulnerabilities?asset_id=%d&status=resolved", asset.ID), nil, bearer(token), &listed)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, listed, 1)

	rec = ts.do(t, http.MethodGet, "/vulnerabilities?status=open", nil, bearer(token), &listed)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, listed, 0)

	// Deletion is reserved for admins.
	rec = ts.do(t, http.MethodDelete, fmt.Sprintf("/assets/%d", asset.ID), nil, bearer(token), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "insufficient_permissions", errorCode(t, rec))

	require.NoError(t, ts.st.UpdateUserRole(t.Context(), analyst.ID, store.RoleAdmin))
	adminToken := ts.login(t, "analyst@example.com", "password123")

	// Deleting the asset removes its findings.
	rec = ts.do(t, http.MethodDelete, fmt.Sprintf("/assets/%d", asset.ID), nil, bearer(adminToken), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/vulnerabilities/%d", vuln.ID), nil, bearer(adminToken), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteVulnerability_AdminOnly(t *testing.T) {
	ts := newTestServer(t)

	user := ts.register(t, "triager@example.com", "password123").User
	token := ts.login(t, "triager@example.com", "password123")

	var asset assetResponse
	rec := ts.do(t, http.MethodPost, "/assets", map[string]any{
		"name":       "db-01",
		"asset_type": "server",
	}, bearer(token), &asset)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var vuln vulnerabilityResponse
	rec = ts.do(t, http.MethodPost, "/vulnerabilities", map[string]any{
		"asset_id": asset.ID,
		"title":    "weak cipher",
		"severity": "low",
	}, bearer(token), &vuln)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodDelete, fmt.Sprintf("/vulnerabilities/%d", vuln.ID), nil, bearer(token), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "insufficient_permissions", errorCode(t, rec))

	require.NoError(t, ts.st.UpdateUserRole(t.Context(), user.ID, store.RoleAdmin))
	adminToken := ts.login(t, "triager@example.com", "password123")

	rec = ts.do(t, http.MethodDelete, fmt.Sprintf("/vulnerabilities/%d", vuln.ID), nil, bearer(adminToken), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/vulnerabilities/%d", vuln.ID), nil, bearer(adminToken), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestIDHeader(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", nil, nil, nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = ts.do(t, http.MethodGet, "/health", nil, map[string]string{"X-Request-Id": "caller-supplied"}, nil)
	assert.Equal(t, "caller-supplied", rec.Header().Get("X-Request-Id"))
}

func TestNewServer_RejectsWeakSecret(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer st.Close()

	cfg := &config.Config{
		Environment: config.EnvDevelopment,
		Server:      config.ServerConfig{HTTPAddr: "localhost:0"},
		Database:    config.DatabaseConfig{Path: dbPath},
		Auth: config.AuthConfig{
			JWTSecret:         "short",
			TokenLifetime:     time.Hour,
			APIKeyDefaultDays: 30,
		},
	}

	_, err = NewServer(cfg, st)
	assert.Error(t, err)
}
