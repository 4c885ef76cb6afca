package models

// TripType classifies a journal entry. The values are the Swedish labels the
// journal is reported with, stored verbatim.
type TripType string

const (
	TripTypePending  TripType = "väntar"
	TripTypeBusiness TripType = "tjänst"
	TripTypePrivate  TripType = "privat"
)

// EntryStatus is the workflow status of a journal entry, independent of its
// trip type.
type EntryStatus string

const (
	EntryStatusSubmitted EntryStatus = "submitted"
	EntryStatusApproved  EntryStatus = "approved"
	EntryStatusRejected  EntryStatus = "rejected"
)

// JournalEntry is the persisted, authoritative record of one vehicle trip.
// Entries created by sync start as trip_type "väntar" with no purpose; the
// classification workflow fills in type, purpose, project and customer.
type JournalEntry struct {
	ID                 string      `json:"id,omitempty"`
	VehicleID          string      `json:"vehicle_id"`
	RegistrationNumber string      `json:"registration_number"`
	GPSTripID          string      `json:"gps_trip_id,omitempty"` // provider trip key, used for deduplication
	DriverEmail        string      `json:"driver_email,omitempty"`
	DriverName         string      `json:"driver_name,omitempty"`
	StartTime          string      `json:"start_time"` // RFC 3339
	EndTime            string      `json:"end_time"`
	StartLocation      *TripPoint  `json:"start_location,omitempty"`
	EndLocation        *TripPoint  `json:"end_location,omitempty"`
	DistanceKm         float64     `json:"distance_km"`
	DurationMin        float64     `json:"duration_min"`
	TripType           TripType    `json:"trip_type"`
	Purpose            string      `json:"purpose,omitempty"` // required when TripType is business
	ProjectID          string      `json:"project_id,omitempty"`
	ProjectCode        string      `json:"project_code,omitempty"`
	Customer           string      `json:"customer,omitempty"`
	Notes              string      `json:"notes,omitempty"`
	Status             EntryStatus `json:"status,omitempty"`
	Deleted            bool        `json:"deleted"`
	CreatedAt          string      `json:"created_at,omitempty"`
	UpdatedAt          string      `json:"updated_at,omitempty"`
}

// NeedsClassification reports whether the entry still requires review: either
// never classified, or classified without the required purpose.
func (e JournalEntry) NeedsClassification() bool {
	return e.TripType == TripTypePending || e.TripType == "" || e.Purpose == ""
}
