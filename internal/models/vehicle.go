package models

// Vehicle represents a fleet vehicle.
type Vehicle struct {
	ID                 string    `json:"id,omitempty"`
	RegistrationNumber string    `json:"registration_number"`
	Make               string    `json:"make"`
	Model              string    `json:"model"`
	Year               int       `json:"year"`
	GPSDeviceID        string    `json:"gps_device_id,omitempty"` // provider-scoped device key, empty when no tracker fitted
	Status             string    `json:"status"`                  // "active" or "inactive"
	MileageKm          float64   `json:"mileage_km"`
	LastPosition       *Location `json:"last_position,omitempty"`
	LastSeen           string    `json:"last_seen,omitempty"`
	CreatedAt          string    `json:"created_at,omitempty"`
	UpdatedAt          string    `json:"updated_at,omitempty"`
}

// HasGPS reports whether the vehicle can be synced against the GPS provider.
func (v Vehicle) HasGPS() bool {
	return v.GPSDeviceID != ""
}
