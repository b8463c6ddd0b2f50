package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// CommandType is the instruction a device is asked to execute.
type CommandType string

const (
	CommandEmpty       CommandType = "empty"
	CommandCalibrate   CommandType = "calibrate"
	CommandRestart     CommandType = "restart"
	CommandMaintenance CommandType = "maintenance"
	CommandTest        CommandType = "test"
	CommandReset       CommandType = "reset"
)

// CommandStatus is the delivery lifecycle state of a command.
// "sent" is reserved for delivery acknowledgment; the current device
// flow keeps commands pending until the device reports an outcome.
type CommandStatus string

const (
	CommandPending  CommandStatus = "pending"
	CommandSent     CommandStatus = "sent"
	CommandExecuted CommandStatus = "executed"
	CommandFailed   CommandStatus = "failed"
)

// DefaultMaxRetries bounds failure re-delivery per command.
const DefaultMaxRetries = 3

type Command struct {
	ID            string         `json:"id" db:"id"`
	BinID         string         `json:"bin_id" db:"bin_id"`
	CommandType   CommandType    `json:"command_type" db:"command_type"`
	Status        CommandStatus  `json:"status" db:"status"`
	IssuedBy      string         `json:"issued_by" db:"issued_by"`
	Description   string         `json:"description" db:"description"`
	Parameters    types.JSONText `json:"parameters" db:"parameters"`
	ExecutedAt    *int64         `json:"executed_at,omitempty" db:"executed_at"` // Unix timestamp
	FailureReason *string        `json:"failure_reason,omitempty" db:"failure_reason"`
	RetryCount    int            `json:"retry_count" db:"retry_count"`
	MaxRetries    int            `json:"max_retries" db:"max_retries"`
	CreatedAt     int64          `json:"created_at" db:"created_at"`
	UpdatedAt     int64          `json:"updated_at" db:"updated_at"`
}

// Terminal reports whether the command can no longer transition.
func (c *Command) Terminal() bool {
	return c.Status == CommandExecuted || c.Status == CommandFailed
}

// ValidCommandType reports whether t is a member of the closed type enum.
func ValidCommandType(t CommandType) bool {
	switch t {
	case CommandEmpty, CommandCalibrate, CommandRestart, CommandMaintenance, CommandTest, CommandReset:
		return true
	}
	return false
}

// CommandResponse is what we send to the client with ISO timestamps
type CommandResponse struct {
	ID            string         `json:"id"`
	BinID         string         `json:"bin_id"`
	CommandType   CommandType    `json:"command_type"`
	Status        CommandStatus  `json:"status"`
	IssuedBy      string         `json:"issued_by"`
	Description   string         `json:"description,omitempty"`
	Parameters    types.JSONText `json:"parameters,omitempty"`
	ExecutedAtIso *string        `json:"executedAtIso,omitempty"`
	FailureReason *string        `json:"failure_reason,omitempty"`
	RetryCount    int            `json:"retry_count"`
	MaxRetries    int            `json:"max_retries"`
	CreatedAtIso  string         `json:"createdAtIso"`
}

// DeviceCommand is the trimmed view a polling device receives.
type DeviceCommand struct {
	ID          string         `json:"id"`
	CommandType CommandType    `json:"command_type"`
	Parameters  types.JSONText `json:"parameters,omitempty"`
	Description string         `json:"description,omitempty"`
}

// CreateCommandRequest is the request body for POST /api/commands
type CreateCommandRequest struct {
	BinCode     string         `json:"bin_code"`
	CommandType CommandType    `json:"command_type"`
	Description string         `json:"description,omitempty"`
	Parameters  types.JSONText `json:"parameters,omitempty"`
}

// ToCommandResponse converts a Command to CommandResponse
func (c *Command) ToCommandResponse() CommandResponse {
	return CommandResponse{
		ID:            c.ID,
		BinID:         c.BinID,
		CommandType:   c.CommandType,
		Status:        c.Status,
		IssuedBy:      c.IssuedBy,
		Description:   c.Description,
		Parameters:    c.Parameters,
		ExecutedAtIso: isoPtr(c.ExecutedAt),
		FailureReason: c.FailureReason,
		RetryCount:    c.RetryCount,
		MaxRetries:    c.MaxRetries,
		CreatedAtIso:  time.Unix(c.CreatedAt, 0).UTC().Format(time.RFC3339),
	}
}

// ToDeviceCommand converts a Command to the device polling view
func (c *Command) ToDeviceCommand() DeviceCommand {
	return DeviceCommand{
		ID:          c.ID,
		CommandType: c.CommandType,
		Parameters:  c.Parameters,
		Description: c.Description,
	}
}
