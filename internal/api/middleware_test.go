package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func setupAuthRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := testConfig()
	cfg.Security.EnableAuth = true
	cfg.Security.APIKey = "agw_test-key"
	return setupTestRouter(t, &stubService{}, cfg)
}

func TestAuth_MissingKey(t *testing.T) {
	router := setupAuthRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/bases", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
}

func TestAuth_WrongKey(t *testing.T) {
	router := setupAuthRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/bases", nil)
	req.Header.Set("X-API-Key", "agw_wrong-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "FORBIDDEN")
}

func TestAuth_ValidKey(t *testing.T) {
	router := setupAuthRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/bases", nil)
	req.Header.Set("X-API-Key", "agw_test-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_HealthBypassesAuth(t *testing.T) {
	router := setupAuthRouter(t)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
