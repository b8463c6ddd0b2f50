package store

import (
	"context"
	"errors"

	"smartbin-backend/internal/models"
)

// ErrNotFound is returned when a referenced entity does not exist.
var ErrNotFound = errors.New("not found")

// BinFilter narrows bin listings.
type BinFilter struct {
	Status     models.BinStatus
	Category   models.WasteCategory
	OnlyActive bool
}

// CommandFilter narrows command listings.
type CommandFilter struct {
	BinID  string
	Status models.CommandStatus
	Limit  int
	Offset int
}

// AlertFilter narrows alert listings.
type AlertFilter struct {
	BinID      string
	Type       models.AlertType
	Unresolved bool
	Severity   models.AlertSeverity
	Limit      int
}

// CategoryStat is an aggregate row for category performance analytics.
type CategoryStat struct {
	Category     models.WasteCategory `db:"category" json:"category"`
	BinCount     int                  `db:"bin_count" json:"bin_count"`
	AvgFillLevel float64              `db:"avg_fill_level" json:"avg_fill_level"`
	FullBins     int                  `db:"full_bins" json:"full_bins"`
}

// CategoryCount is an aggregate row for verified waste counts.
type CategoryCount struct {
	Category      string  `db:"category" json:"category"`
	Count         int     `db:"count" json:"count"`
	AvgConfidence float64 `db:"avg_confidence" json:"avg_confidence"`
}

// DailyCount is a per-day aggregate row for waste trend charts.
type DailyCount struct {
	Date          string  `db:"date" json:"date"` // YYYY-MM-DD, UTC
	Count         int     `db:"count" json:"count"`
	AvgConfidence float64 `db:"avg_confidence" json:"avg_confidence"`
}

// Store is the persistence interface used by the handlers and services.
type Store interface {
	// Bins
	CreateBin(ctx context.Context, bin models.Bin) (models.Bin, error)
	GetBin(ctx context.Context, id string) (models.Bin, error)
	GetBinByCode(ctx context.Context, code string) (models.Bin, error)
	GetBinByAPIKey(ctx context.Context, apiKey string) (models.Bin, error)
	ListBins(ctx context.Context, f BinFilter) ([]models.Bin, error)
	UpdateBin(ctx context.Context, bin models.Bin) (models.Bin, error)
	UpdateBinAPIKey(ctx context.Context, id, apiKey string) (models.Bin, error)
	DeleteBin(ctx context.Context, id string) error
	UpdateBinReading(ctx context.Context, id string, fillLevel int, status models.BinStatus, lastUpdated int64) (models.Bin, error)
	ListActiveBins(ctx context.Context) ([]models.Bin, error)
	ListActiveBinsUpdatedBefore(ctx context.Context, cutoff int64) ([]models.Bin, error)
	CountBinsByStatus(ctx context.Context) (map[models.BinStatus]int, error)
	CategoryStats(ctx context.Context) ([]CategoryStat, error)

	// Commands
	CreateCommand(ctx context.Context, cmd models.Command) (models.Command, error)
	GetCommand(ctx context.Context, id string) (models.Command, error)
	ListPendingCommands(ctx context.Context, binID string, limit int) ([]models.Command, error)
	ListCommands(ctx context.Context, f CommandFilter) ([]models.Command, int, error)
	UpdateCommand(ctx context.Context, cmd models.Command) (models.Command, error)
	DeleteCommand(ctx context.Context, id string) error

	// Alerts
	CreateAlert(ctx context.Context, alert models.Alert) (models.Alert, error)
	GetAlert(ctx context.Context, id string) (models.Alert, error)
	FindOpenAlert(ctx context.Context, binID string, alertType models.AlertType) (models.Alert, error)
	ListAlerts(ctx context.Context, f AlertFilter) ([]models.Alert, error)
	UpdateAlert(ctx context.Context, alert models.Alert) (models.Alert, error)
	CountOpenAlertsBySeverity(ctx context.Context) (map[models.AlertSeverity]int, error)

	// Image records
	CreateImageRecord(ctx context.Context, rec models.ImageRecord) (models.ImageRecord, error)
	GetImageRecord(ctx context.Context, id string) (models.ImageRecord, error)
	ListBinImages(ctx context.Context, binID string, limit int) ([]models.ImageRecord, error)
	ListRecentUnverifiedImages(ctx context.Context, since int64) ([]models.ImageRecord, error)
	UpdateImageRecord(ctx context.Context, rec models.ImageRecord) (models.ImageRecord, error)
	DeleteImageRecord(ctx context.Context, id string) error
	WasteCountByCategory(ctx context.Context, since int64) ([]CategoryCount, error)
	DailyVerifiedCounts(ctx context.Context, since int64) ([]DailyCount, error)

	// Maintenance logs
	CreateMaintenanceLog(ctx context.Context, logEntry models.MaintenanceLog) (models.MaintenanceLog, error)
	GetMaintenanceLog(ctx context.Context, id string) (models.MaintenanceLog, error)
	ListMaintenanceLogs(ctx context.Context, binID string, status models.MaintenanceStatus, limit int) ([]models.MaintenanceLog, error)
	UpdateMaintenanceLog(ctx context.Context, logEntry models.MaintenanceLog) (models.MaintenanceLog, error)
	DeleteMaintenanceLog(ctx context.Context, id string) error
	WorkerMaintenanceStats(ctx context.Context, workerID string) (models.WorkerStats, error)

	// Workers
	CreateWorker(ctx context.Context, w models.Worker) (models.Worker, error)
	GetWorker(ctx context.Context, id string) (models.Worker, error)
	ListWorkers(ctx context.Context, role models.WorkerRole, onlyActive bool) ([]models.Worker, error)
	UpdateWorker(ctx context.Context, w models.Worker) (models.Worker, error)
	DeleteWorker(ctx context.Context, id string) error
	AssignBins(ctx context.Context, workerID string, binIDs []string) error
	ListAssignedBinIDs(ctx context.Context, workerID string) ([]string, error)

	// Feedback
	CreateFeedback(ctx context.Context, f models.Feedback) (models.Feedback, error)
	GetFeedback(ctx context.Context, id string) (models.Feedback, error)
	ListFeedback(ctx context.Context, status models.FeedbackStatus, category models.FeedbackCategory, limit int) ([]models.Feedback, error)
	UpdateFeedback(ctx context.Context, f models.Feedback) (models.Feedback, error)
	DeleteFeedback(ctx context.Context, id string) error
	FeedbackStats(ctx context.Context) (models.FeedbackStats, error)

	// Admin users and refresh tokens
	CreateUser(ctx context.Context, u models.AdminUser) (models.AdminUser, error)
	GetUser(ctx context.Context, id string) (models.AdminUser, error)
	GetUserByEmail(ctx context.Context, email string) (models.AdminUser, error)
	UpdateUser(ctx context.Context, u models.AdminUser) (models.AdminUser, error)
	StoreRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt int64) error
	HasRefreshToken(ctx context.Context, userID, tokenHash string) (bool, error)
	DeleteRefreshToken(ctx context.Context, userID, tokenHash string) error
	DeleteUserRefreshTokens(ctx context.Context, userID string) error
}
