package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetwise/fleet-journal/internal/auth"
	"github.com/fleetwise/fleet-journal/internal/models"
	"github.com/fleetwise/fleet-journal/internal/store"
)

func newAuthHandler(t *testing.T) (*AuthHandler, *auth.Service, store.Collection) {
	t.Helper()
	service, err := auth.NewService()
	require.NoError(t, err)
	users := store.NewMemoryStore().Collection(store.CollectionUsers)
	return NewAuthHandler(service, users), service, users
}

func seedUser(t *testing.T, service *auth.Service, users store.Collection, email, password string, active bool) {
	t.Helper()
	hash, err := service.HashPassword(password)
	require.NoError(t, err)
	_, err = users.Create(context.Background(), store.Record{
		"email":         email,
		"display_name":  "Anna Lind",
		"password_hash": hash,
		"role":          string(models.RoleDriver),
		"is_active":     active,
	})
	require.NoError(t, err)
}

func postLogin(h *AuthHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	h.Login(w, req)
	return w
}

func TestLogin_Success(t *testing.T) {
	h, service, users := newAuthHandler(t)
	seedUser(t, service, users, "anna@fleetwise.se", "hemligt123", true)

	w := postLogin(h, `{"email":"anna@fleetwise.se","password":"hemligt123"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "anna@fleetwise.se", resp.User.Email)

	claims, err := service.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "anna@fleetwise.se", claims.Email)
	assert.Equal(t, models.RoleDriver, claims.Role)
}

func TestLogin_WrongPassword(t *testing.T) {
	h, service, users := newAuthHandler(t)
	seedUser(t, service, users, "anna@fleetwise.se", "hemligt123", true)

	w := postLogin(h, `{"email":"anna@fleetwise.se","password":"fel"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_UnknownUser(t *testing.T) {
	h, _, _ := newAuthHandler(t)
	w := postLogin(h, `{"email":"nobody@fleetwise.se","password":"whatever"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_InactiveUser(t *testing.T) {
	h, service, users := newAuthHandler(t)
	seedUser(t, service, users, "anna@fleetwise.se", "hemligt123", false)

	w := postLogin(h, `{"email":"anna@fleetwise.se","password":"hemligt123"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_InvalidJSON(t *testing.T) {
	h, _, _ := newAuthHandler(t)
	w := postLogin(h, `{bad json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_MissingFields(t *testing.T) {
	h, _, _ := newAuthHandler(t)
	assert.Equal(t, http.StatusBadRequest, postLogin(h, `{"email":"anna@fleetwise.se"}`).Code)
	assert.Equal(t, http.StatusBadRequest, postLogin(h, `{"password":"hemligt123"}`).Code)
}

func TestLogin_RejectsGet(t *testing.T) {
	h, _, _ := newAuthHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/auth/login", nil)
	w := httptest.NewRecorder()
	h.Login(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
