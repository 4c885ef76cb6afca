package models

// GeofenceType labels what kind of site a zone marks.
type GeofenceType string

const (
	GeofenceOffice       GeofenceType = "office"
	GeofenceCustomerSite GeofenceType = "customer_site"
	GeofenceWarehouse    GeofenceType = "warehouse"
	GeofenceWorkshop     GeofenceType = "workshop"
	GeofenceOther        GeofenceType = "other"
)

// Geofence is a named circular zone used for location-based auto-classification.
// Zones are declarative: the pipeline reads them at suggestion time and never
// mutates them.
type Geofence struct {
	ID                 string       `json:"id,omitempty"`
	Name               string       `json:"name"`
	Type               GeofenceType `json:"type"`
	Center             Location     `json:"center"`
	RadiusM            float64      `json:"radius_m"`
	AutoClassifyAs     TripType     `json:"auto_classify_as,omitempty"` // empty means no directive
	DefaultProjectCode string       `json:"default_project_code,omitempty"`
	DefaultCustomer    string       `json:"default_customer,omitempty"`
	IsActive           bool         `json:"is_active"`
	CreatedAt          string       `json:"created_at,omitempty"`
	UpdatedAt          string       `json:"updated_at,omitempty"`
}
