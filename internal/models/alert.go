package models

import "time"

// AlertType is the anomalous condition an alert records.
type AlertType string

const (
	AlertOverfilled     AlertType = "overfilled"
	AlertSensorOffline  AlertType = "sensor_offline"
	AlertAnomaly        AlertType = "anomaly"
	AlertMaintenanceDue AlertType = "maintenance-due"
	AlertBinFull        AlertType = "bin-full"
	AlertMalfunction    AlertType = "malfunction"
	AlertOffline        AlertType = "offline"
)

// AlertSeverity orders alerts for administrative triage.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

type Alert struct {
	ID              string        `json:"id" db:"id"`
	BinID           string        `json:"bin_id" db:"bin_id"`
	AlertType       AlertType     `json:"alert_type" db:"alert_type"`
	Severity        AlertSeverity `json:"severity" db:"severity"`
	Message         string        `json:"message" db:"message"`
	IsResolved      bool          `json:"is_resolved" db:"is_resolved"`
	ResolvedAt      *int64        `json:"resolved_at,omitempty" db:"resolved_at"` // Unix timestamp
	ResolvedBy      *string       `json:"resolved_by,omitempty" db:"resolved_by"`
	ResolutionNotes *string       `json:"resolution_notes,omitempty" db:"resolution_notes"`
	ActionTaken     *string       `json:"action_taken,omitempty" db:"action_taken"`
	CreatedAt       int64         `json:"created_at" db:"created_at"`
	UpdatedAt       int64         `json:"updated_at" db:"updated_at"`
}

// ValidAlertType reports whether t is a member of the closed type enum.
func ValidAlertType(t AlertType) bool {
	switch t {
	case AlertOverfilled, AlertSensorOffline, AlertAnomaly, AlertMaintenanceDue,
		AlertBinFull, AlertMalfunction, AlertOffline:
		return true
	}
	return false
}

// AlertResponse is what we send to the client with ISO timestamps
type AlertResponse struct {
	ID              string        `json:"id"`
	BinID           string        `json:"bin_id"`
	AlertType       AlertType     `json:"alert_type"`
	Severity        AlertSeverity `json:"severity"`
	Message         string        `json:"message"`
	IsResolved      bool          `json:"is_resolved"`
	ResolvedAtIso   *string       `json:"resolvedAtIso,omitempty"`
	ResolvedBy      *string       `json:"resolved_by,omitempty"`
	ResolutionNotes *string       `json:"resolution_notes,omitempty"`
	CreatedAtIso    string        `json:"createdAtIso"`
}

// ResolveAlertRequest is the request body for PATCH /api/alerts/{id}/resolve
type ResolveAlertRequest struct {
	ResolutionNotes string `json:"resolution_notes,omitempty"`
	ActionTaken     string `json:"action_taken,omitempty"`
}

// ToAlertResponse converts an Alert to AlertResponse
func (a *Alert) ToAlertResponse() AlertResponse {
	return AlertResponse{
		ID:              a.ID,
		BinID:           a.BinID,
		AlertType:       a.AlertType,
		Severity:        a.Severity,
		Message:         a.Message,
		IsResolved:      a.IsResolved,
		ResolvedAtIso:   isoPtr(a.ResolvedAt),
		ResolvedBy:      a.ResolvedBy,
		ResolutionNotes: a.ResolutionNotes,
		CreatedAtIso:    time.Unix(a.CreatedAt, 0).UTC().Format(time.RFC3339),
	}
}
