package models

// Performance represents a single show pinned on the map.
type Performance struct {
	ID        int64   `json:"id"`
	Artist    string  `json:"artist"`
	Type      string  `json:"type"`     // Concert, festival, livehouse...
	Province  string  `json:"province"` // Drives the map region
	City      *string `json:"city"`
	Venue     *string `json:"venue"`
	Notes     *string `json:"notes"`
	Date      *string `json:"date"`   // YYYY-MM-DD
	Poster    *string `json:"poster"` // Public path under /api/uploads
	CreatedAt string  `json:"created_at"`
}

// PerformanceFields holds the client-writable columns of a performance.
// Poster is handled separately because it only changes when a file is uploaded.
type PerformanceFields struct {
	Artist   string  `json:"artist" validate:"required"`
	Type     string  `json:"type" validate:"required"`
	Province string  `json:"province" validate:"required"`
	City     *string `json:"city,omitempty"`
	Venue    *string `json:"venue,omitempty"`
	Notes    *string `json:"notes,omitempty"`
	Date     *string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// SchemaColumn describes one column of the performances table.
type SchemaColumn struct {
	Field   string  `json:"field"`
	Type    string  `json:"type"`
	Null    string  `json:"null"`
	Key     string  `json:"key"`
	Default *string `json:"default"`
	Extra   string  `json:"extra"`
}
