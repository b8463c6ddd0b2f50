package models

import "time"

// WasteCategory is the waste stream a bin accepts.
type WasteCategory string

const (
	CategoryMetal            WasteCategory = "metal"
	CategoryBiodegradable    WasteCategory = "biodegradable"
	CategoryNonBiodegradable WasteCategory = "non-biodegradable"
	CategoryOthers           WasteCategory = "others"
)

// BinStatus is the operational state of a bin.
type BinStatus string

const (
	BinStatusActive      BinStatus = "active"
	BinStatusInactive    BinStatus = "inactive"
	BinStatusMaintenance BinStatus = "maintenance"
	BinStatusFull        BinStatus = "full"
	BinStatusOffline     BinStatus = "offline"
)

// MaintenanceFrequency values accepted for a bin's schedule.
var MaintenanceFrequencies = []string{"weekly", "biweekly", "monthly", "quarterly"}

type Bin struct {
	ID                  string        `json:"id" db:"id"`
	BinCode             string        `json:"bin_code" db:"bin_code"` // external identifier, e.g. BIN-001
	Category            WasteCategory `json:"category" db:"category"`
	Latitude            float64       `json:"latitude" db:"latitude"`
	Longitude           float64       `json:"longitude" db:"longitude"`
	Address             string        `json:"address" db:"address"`
	Status              BinStatus     `json:"status" db:"status"`
	FillLevel           int           `json:"fill_level" db:"fill_level"`
	Capacity            int           `json:"capacity" db:"capacity"`
	APIKey              string        `json:"-" db:"api_key"` // device credential, never serialized
	IsActive            bool          `json:"is_active" db:"is_active"`
	LastEmptied         *int64        `json:"last_emptied,omitempty" db:"last_emptied"`   // Unix timestamp
	LastUpdated         int64         `json:"last_updated" db:"last_updated"`             // Unix timestamp
	InstalledAt         int64         `json:"installed_at" db:"installed_at"`             // Unix timestamp
	MaintenanceFreq     string        `json:"maintenance_frequency" db:"maintenance_frequency"`
	LastMaintenanceAt   *int64        `json:"last_maintenance_at,omitempty" db:"last_maintenance_at"`
	NextMaintenanceAt   *int64        `json:"next_maintenance_at,omitempty" db:"next_maintenance_at"`
	CreatedAt           int64         `json:"created_at" db:"created_at"`
	UpdatedAt           int64         `json:"updated_at" db:"updated_at"`
}

// ValidCategory reports whether c is a member of the closed category enum.
func ValidCategory(c WasteCategory) bool {
	switch c {
	case CategoryMetal, CategoryBiodegradable, CategoryNonBiodegradable, CategoryOthers:
		return true
	}
	return false
}

// ValidBinStatus reports whether s is a member of the closed status enum.
func ValidBinStatus(s BinStatus) bool {
	switch s {
	case BinStatusActive, BinStatusInactive, BinStatusMaintenance, BinStatusFull, BinStatusOffline:
		return true
	}
	return false
}

// BinResponse is what we send to the client with ISO timestamps
type BinResponse struct {
	ID                   string        `json:"id"`
	BinCode              string        `json:"bin_code"`
	Category             WasteCategory `json:"category"`
	Latitude             float64       `json:"latitude"`
	Longitude            float64       `json:"longitude"`
	Address              string        `json:"address"`
	Status               BinStatus     `json:"status"`
	FillLevel            int           `json:"fill_level"`
	Capacity             int           `json:"capacity"`
	IsActive             bool          `json:"is_active"`
	LastEmptiedIso       *string       `json:"lastEmptiedIso,omitempty"`
	LastUpdatedIso       string        `json:"lastUpdatedIso"`
	MaintenanceFreq      string        `json:"maintenance_frequency"`
	LastMaintenanceIso   *string       `json:"lastMaintenanceIso,omitempty"`
	NextMaintenanceIso   *string       `json:"nextMaintenanceIso,omitempty"`
}

// CreateBinRequest is the request body for POST /api/bins
type CreateBinRequest struct {
	BinCode         string        `json:"bin_code"`
	Category        WasteCategory `json:"category"`
	Latitude        float64       `json:"latitude"`
	Longitude       float64       `json:"longitude"`
	Address         string        `json:"address"`
	Capacity        *int          `json:"capacity,omitempty"`
	MaintenanceFreq *string       `json:"maintenance_frequency,omitempty"`
}

// UpdateBinRequest is the request body for PUT /api/bins/{id}
type UpdateBinRequest struct {
	Category          *WasteCategory `json:"category,omitempty"`
	Latitude          *float64       `json:"latitude,omitempty"`
	Longitude         *float64       `json:"longitude,omitempty"`
	Address           *string        `json:"address,omitempty"`
	Status            *BinStatus     `json:"status,omitempty"`
	FillLevel         *int           `json:"fill_level,omitempty"`
	Capacity          *int           `json:"capacity,omitempty"`
	IsActive          *bool          `json:"is_active,omitempty"`
	MaintenanceFreq   *string        `json:"maintenance_frequency,omitempty"`
	NextMaintenanceAt *int64         `json:"next_maintenance_at,omitempty"`
}

func isoPtr(ts *int64) *string {
	if ts == nil {
		return nil
	}
	iso := time.Unix(*ts, 0).UTC().Format(time.RFC3339)
	return &iso
}

// ToBinResponse converts a Bin to BinResponse
func (b *Bin) ToBinResponse() BinResponse {
	return BinResponse{
		ID:                 b.ID,
		BinCode:            b.BinCode,
		Category:           b.Category,
		Latitude:           b.Latitude,
		Longitude:          b.Longitude,
		Address:            b.Address,
		Status:             b.Status,
		FillLevel:          b.FillLevel,
		Capacity:           b.Capacity,
		IsActive:           b.IsActive,
		LastEmptiedIso:     isoPtr(b.LastEmptied),
		LastUpdatedIso:     time.Unix(b.LastUpdated, 0).UTC().Format(time.RFC3339),
		MaintenanceFreq:    b.MaintenanceFreq,
		LastMaintenanceIso: isoPtr(b.LastMaintenanceAt),
		NextMaintenanceIso: isoPtr(b.NextMaintenanceAt),
	}
}
