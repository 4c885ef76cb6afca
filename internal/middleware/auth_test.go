package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetwise/fleet-journal/internal/auth"
	"github.com/fleetwise/fleet-journal/internal/models"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate_ValidToken(t *testing.T) {
	service, err := auth.NewService()
	require.NoError(t, err)
	mw := NewAuthMiddleware(service)

	token, err := service.GenerateToken(&models.User{
		ID: "u1", Email: "anna@fleetwise.se", Role: models.RoleDriver,
	})
	require.NoError(t, err)

	var got *models.Claims
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = GetUserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/journal", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, models.RoleDriver, got.Role)
}

func TestAuthenticate_MissingHeader(t *testing.T) {
	service, _ := auth.NewService()
	mw := NewAuthMiddleware(service)

	req := httptest.NewRequest(http.MethodGet, "/api/journal", nil)
	w := httptest.NewRecorder()
	mw.Authenticate(okHandler()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticate_InvalidToken(t *testing.T) {
	service, _ := auth.NewService()
	mw := NewAuthMiddleware(service)

	req := httptest.NewRequest(http.MethodGet, "/api/journal", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	mw.Authenticate(okHandler()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticate_SkipsPublicPaths(t *testing.T) {
	service, _ := auth.NewService()
	mw := NewAuthMiddleware(service)

	for _, path := range []string{"/api/auth/login", "/health"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		mw.Authenticate(okHandler()).ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestRequireFleetAdmin(t *testing.T) {
	service, _ := auth.NewService()
	mw := NewAuthMiddleware(service)

	tests := []struct {
		name   string
		claims *models.Claims
		want   int
	}{
		{"admin allowed", &models.Claims{UserID: "u1", Role: models.RoleAdmin}, http.StatusOK},
		{"driver forbidden", &models.Claims{UserID: "u2", Role: models.RoleDriver}, http.StatusForbidden},
		{"viewer forbidden", &models.Claims{UserID: "u3", Role: models.RoleViewer}, http.StatusForbidden},
		{"no claims", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/vehicles", nil)
			if tt.claims != nil {
				req = req.WithContext(context.WithValue(req.Context(), UserContextKey, tt.claims))
			}
			w := httptest.NewRecorder()
			mw.RequireFleetAdmin(okHandler()).ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRateLimit(t *testing.T) {
	mw := NewRateLimitMiddleware()
	handler := mw.RateLimit(3, 60)(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/journal", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/journal", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// A different client is unaffected.
	req = httptest.NewRequest(http.MethodGet, "/api/journal", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", getClientIP(req))
}
