package models

import "time"

// MaintenanceStatus tracks a maintenance job through its lifecycle.
type MaintenanceStatus string

const (
	MaintenancePending    MaintenanceStatus = "pending"
	MaintenanceInProgress MaintenanceStatus = "in-progress"
	MaintenanceCompleted  MaintenanceStatus = "completed"
	MaintenanceCancelled  MaintenanceStatus = "cancelled"
)

// MaintenanceType is the kind of work performed on a bin.
type MaintenanceType string

const (
	MaintenanceCleaning    MaintenanceType = "cleaning"
	MaintenanceRepair      MaintenanceType = "repair"
	MaintenanceReplacement MaintenanceType = "replacement"
	MaintenanceInspection  MaintenanceType = "inspection"
)

type MaintenanceLog struct {
	ID                string            `json:"id" db:"id"`
	BinID             string            `json:"bin_id" db:"bin_id"`
	WorkerID          *string           `json:"worker_id,omitempty" db:"worker_id"`
	Status            MaintenanceStatus `json:"status" db:"status"`
	MaintenanceType   MaintenanceType   `json:"maintenance_type" db:"maintenance_type"`
	Description       string            `json:"description" db:"description"`
	StartDate         int64             `json:"start_date" db:"start_date"` // Unix timestamp
	CompletionDate    *int64            `json:"completion_date,omitempty" db:"completion_date"`
	EstimatedDuration *int              `json:"estimated_duration,omitempty" db:"estimated_duration"` // minutes
	Notes             *string           `json:"notes,omitempty" db:"notes"`
	Cost              float64           `json:"cost" db:"cost"`
	CreatedAt         int64             `json:"created_at" db:"created_at"`
	UpdatedAt         int64             `json:"updated_at" db:"updated_at"`
}

func ValidMaintenanceStatus(s MaintenanceStatus) bool {
	switch s {
	case MaintenancePending, MaintenanceInProgress, MaintenanceCompleted, MaintenanceCancelled:
		return true
	}
	return false
}

func ValidMaintenanceType(t MaintenanceType) bool {
	switch t {
	case MaintenanceCleaning, MaintenanceRepair, MaintenanceReplacement, MaintenanceInspection:
		return true
	}
	return false
}

// MaintenanceLogResponse is what we send to the client with ISO timestamps
type MaintenanceLogResponse struct {
	ID                string            `json:"id"`
	BinID             string            `json:"bin_id"`
	WorkerID          *string           `json:"worker_id,omitempty"`
	Status            MaintenanceStatus `json:"status"`
	MaintenanceType   MaintenanceType   `json:"maintenance_type"`
	Description       string            `json:"description"`
	StartDateIso      string            `json:"startDateIso"`
	CompletionDateIso *string           `json:"completionDateIso,omitempty"`
	EstimatedDuration *int              `json:"estimated_duration,omitempty"`
	Notes             *string           `json:"notes,omitempty"`
	Cost              float64           `json:"cost"`
	CreatedAtIso      string            `json:"createdAtIso"`
}

// CreateMaintenanceRequest is the request body for POST /api/maintenance
type CreateMaintenanceRequest struct {
	BinCode           string          `json:"bin_code"`
	WorkerID          *string         `json:"worker_id,omitempty"`
	MaintenanceType   MaintenanceType `json:"maintenance_type"`
	Description       string          `json:"description"`
	StartDateIso      *string         `json:"startDateIso,omitempty"`
	EstimatedDuration *int            `json:"estimated_duration,omitempty"`
}

// UpdateMaintenanceRequest is the request body for PATCH /api/maintenance/{id}
type UpdateMaintenanceRequest struct {
	Status   *MaintenanceStatus `json:"status,omitempty"`
	WorkerID *string            `json:"worker_id,omitempty"`
	Notes    *string            `json:"notes,omitempty"`
	Cost     *float64           `json:"cost,omitempty"`
}

// ToMaintenanceLogResponse converts a MaintenanceLog to its response form
func (m *MaintenanceLog) ToMaintenanceLogResponse() MaintenanceLogResponse {
	return MaintenanceLogResponse{
		ID:                m.ID,
		BinID:             m.BinID,
		WorkerID:          m.WorkerID,
		Status:            m.Status,
		MaintenanceType:   m.MaintenanceType,
		Description:       m.Description,
		StartDateIso:      time.Unix(m.StartDate, 0).UTC().Format(time.RFC3339),
		CompletionDateIso: isoPtr(m.CompletionDate),
		EstimatedDuration: m.EstimatedDuration,
		Notes:             m.Notes,
		Cost:              m.Cost,
		CreatedAtIso:      time.Unix(m.CreatedAt, 0).UTC().Format(time.RFC3339),
	}
}
