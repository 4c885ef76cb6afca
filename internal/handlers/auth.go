package handlers

import (
	"net/http"

	"github.com/fleetwise/fleet-journal/internal/auth"
	"github.com/fleetwise/fleet-journal/internal/models"
	"github.com/fleetwise/fleet-journal/internal/store"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService *auth.Service
	users       store.Collection
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *auth.Service, users store.Collection) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		users:       users,
	}
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var loginReq models.LoginRequest
	if err := decodeJSON(r, &loginReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if loginReq.Email == "" || loginReq.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	recs, err := h.users.Filter(r.Context(), store.Conditions{"email": loginReq.Email}, nil)
	if err != nil || len(recs) == 0 {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	var user models.User
	if err := store.Decode(recs[0], &user); err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	// PasswordHash is json:"-"; pick it off the raw record.
	hash, _ := recs[0]["password_hash"].(string)

	if !user.IsActive {
		http.Error(w, "Account is deactivated", http.StatusUnauthorized)
		return
	}

	if !h.authService.CheckPassword(loginReq.Password, hash) {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.authService.GenerateToken(&user)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, models.LoginResponse{Token: token, User: user})
}
