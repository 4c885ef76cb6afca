package models

import (
	"encoding/json"
	"testing"
)

func TestIsValidRole(t *testing.T) {
	tests := []struct {
		name     string
		role     Role
		expected bool
	}{
		{"admin role", RoleAdmin, true},
		{"driver role", RoleDriver, true},
		{"viewer role", RoleViewer, true},
		{"invalid role", "invalid", false},
		{"empty role", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidRole(tt.role); got != tt.expected {
				t.Errorf("IsValidRole(%q) = %v, want %v", tt.role, got, tt.expected)
			}
		})
	}
}

func TestCanManageFleet(t *testing.T) {
	if !RoleAdmin.CanManageFleet() {
		t.Error("admin should manage the fleet")
	}
	if RoleDriver.CanManageFleet() || RoleViewer.CanManageFleet() {
		t.Error("only admin manages the fleet")
	}
}

func TestUser_PasswordHashNeverSerialized(t *testing.T) {
	user := User{Email: "anna@fleetwise.se", PasswordHash: "bcrypt-hash"}
	data, err := json.Marshal(user)
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if _, ok := out["password_hash"]; ok {
		t.Error("password hash leaked into JSON")
	}
}
