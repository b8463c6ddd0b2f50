package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"smartbin-backend/internal/models"
)

// Postgres implements Store over a sqlx connection.
type Postgres struct {
	db *sqlx.DB
}

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

func now() int64 { return time.Now().Unix() }

const binColumns = `id, bin_code, category, latitude, longitude, address, status, fill_level,
	capacity, api_key, is_active, last_emptied, last_updated, installed_at,
	maintenance_frequency, last_maintenance_at, next_maintenance_at, created_at, updated_at`

// Bins

func (p *Postgres) CreateBin(ctx context.Context, bin models.Bin) (models.Bin, error) {
	if bin.ID == "" {
		bin.ID = uuid.New().String()
	}
	ts := now()
	bin.CreatedAt, bin.UpdatedAt = ts, ts
	if bin.LastUpdated == 0 {
		bin.LastUpdated = ts
	}
	if bin.InstalledAt == 0 {
		bin.InstalledAt = ts
	}
	_, err := p.db.NamedExecContext(ctx, `
		INSERT INTO bins (id, bin_code, category, latitude, longitude, address, status, fill_level,
			capacity, api_key, is_active, last_emptied, last_updated, installed_at,
			maintenance_frequency, last_maintenance_at, next_maintenance_at, created_at, updated_at)
		VALUES (:id, :bin_code, :category, :latitude, :longitude, :address, :status, :fill_level,
			:capacity, :api_key, :is_active, :last_emptied, :last_updated, :installed_at,
			:maintenance_frequency, :last_maintenance_at, :next_maintenance_at, :created_at, :updated_at)
	`, bin)
	if err != nil {
		return models.Bin{}, fmt.Errorf("failed to insert bin: %w", err)
	}
	return bin, nil
}

func (p *Postgres) getBinWhere(ctx context.Context, where string, arg interface{}) (models.Bin, error) {
	var bin models.Bin
	err := p.db.GetContext(ctx, &bin, `SELECT `+binColumns+` FROM bins WHERE `+where, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Bin{}, ErrNotFound
	}
	if err != nil {
		return models.Bin{}, fmt.Errorf("failed to fetch bin: %w", err)
	}
	return bin, nil
}

func (p *Postgres) GetBin(ctx context.Context, id string) (models.Bin, error) {
	return p.getBinWhere(ctx, "id = $1", id)
}

func (p *Postgres) GetBinByCode(ctx context.Context, code string) (models.Bin, error) {
	return p.getBinWhere(ctx, "bin_code = $1", code)
}

func (p *Postgres) GetBinByAPIKey(ctx context.Context, apiKey string) (models.Bin, error) {
	return p.getBinWhere(ctx, "api_key = $1", apiKey)
}

func (p *Postgres) ListBins(ctx context.Context, f BinFilter) ([]models.Bin, error) {
	query := `SELECT ` + binColumns + ` FROM bins WHERE 1=1`
	args := []interface{}{}
	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if f.OnlyActive {
		query += " AND is_active = TRUE"
	}
	query += " ORDER BY bin_code ASC"

	bins := []models.Bin{}
	if err := p.db.SelectContext(ctx, &bins, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list bins: %w", err)
	}
	return bins, nil
}

func (p *Postgres) UpdateBin(ctx context.Context, bin models.Bin) (models.Bin, error) {
	bin.UpdatedAt = now()
	res, err := p.db.NamedExecContext(ctx, `
		UPDATE bins
		SET category = :category, latitude = :latitude, longitude = :longitude, address = :address,
			status = :status, fill_level = :fill_level, capacity = :capacity, is_active = :is_active,
			last_emptied = :last_emptied, last_updated = :last_updated,
			maintenance_frequency = :maintenance_frequency, last_maintenance_at = :last_maintenance_at,
			next_maintenance_at = :next_maintenance_at, updated_at = :updated_at
		WHERE id = :id
	`, bin)
	if err != nil {
		return models.Bin{}, fmt.Errorf("failed to update bin: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return models.Bin{}, ErrNotFound
	}
	return bin, nil
}

func (p *Postgres) UpdateBinAPIKey(ctx context.Context, id, apiKey string) (models.Bin, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE bins SET api_key = $1, updated_at = $2 WHERE id = $3
	`, apiKey, now(), id)
	if err != nil {
		return models.Bin{}, fmt.Errorf("failed to rotate api key: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return models.Bin{}, ErrNotFound
	}
	return p.GetBin(ctx, id)
}

func (p *Postgres) DeleteBin(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM bins WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete bin: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) UpdateBinReading(ctx context.Context, id string, fillLevel int, status models.BinStatus, lastUpdated int64) (models.Bin, error) {
	_, err := p.db.ExecContext(ctx, `
		UPDATE bins
		SET fill_level = $1, status = $2, last_updated = $3, updated_at = $3
		WHERE id = $4
	`, fillLevel, status, lastUpdated, id)
	if err != nil {
		return models.Bin{}, fmt.Errorf("failed to update bin reading: %w", err)
	}
	return p.GetBin(ctx, id)
}

func (p *Postgres) ListActiveBins(ctx context.Context) ([]models.Bin, error) {
	return p.ListBins(ctx, BinFilter{OnlyActive: true})
}

func (p *Postgres) ListActiveBinsUpdatedBefore(ctx context.Context, cutoff int64) ([]models.Bin, error) {
	bins := []models.Bin{}
	err := p.db.SelectContext(ctx, &bins, `
		SELECT `+binColumns+` FROM bins
		WHERE is_active = TRUE AND last_updated < $1
		ORDER BY bin_code ASC
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale bins: %w", err)
	}
	return bins, nil
}

func (p *Postgres) CountBinsByStatus(ctx context.Context) (map[models.BinStatus]int, error) {
	rows := []struct {
		Status models.BinStatus `db:"status"`
		Count  int              `db:"count"`
	}{}
	err := p.db.SelectContext(ctx, &rows, `SELECT status, COUNT(*) AS count FROM bins GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count bins by status: %w", err)
	}
	out := map[models.BinStatus]int{}
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out, nil
}

func (p *Postgres) CategoryStats(ctx context.Context) ([]CategoryStat, error) {
	stats := []CategoryStat{}
	err := p.db.SelectContext(ctx, &stats, `
		SELECT category,
			COUNT(*) AS bin_count,
			COALESCE(AVG(fill_level), 0) AS avg_fill_level,
			COUNT(*) FILTER (WHERE fill_level >= 90) AS full_bins
		FROM bins
		WHERE is_active = TRUE
		GROUP BY category
		ORDER BY category
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate category stats: %w", err)
	}
	return stats, nil
}

// Commands

const commandColumns = `id, bin_id, command_type, status, issued_by, description, parameters,
	executed_at, failure_reason, retry_count, max_retries, created_at, updated_at`

func (p *Postgres) CreateCommand(ctx context.Context, cmd models.Command) (models.Command, error) {
	if cmd.ID == "" {
		cmd.ID = uuid.New().String()
	}
	ts := now()
	cmd.CreatedAt, cmd.UpdatedAt = ts, ts
	if cmd.Parameters == nil {
		cmd.Parameters = []byte(`{}`)
	}
	_, err := p.db.NamedExecContext(ctx, `
		INSERT INTO commands (id, bin_id, command_type, status, issued_by, description, parameters,
			executed_at, failure_reason, retry_count, max_retries, created_at, updated_at)
		VALUES (:id, :bin_id, :command_type, :status, :issued_by, :description, :parameters,
			:executed_at, :failure_reason, :retry_count, :max_retries, :created_at, :updated_at)
	`, cmd)
	if err != nil {
		return models.Command{}, fmt.Errorf("failed to insert command: %w", err)
	}
	return cmd, nil
}

func (p *Postgres) GetCommand(ctx context.Context, id string) (models.Command, error) {
	var cmd models.Command
	err := p.db.GetContext(ctx, &cmd, `SELECT `+commandColumns+` FROM commands WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Command{}, ErrNotFound
	}
	if err != nil {
		return models.Command{}, fmt.Errorf("failed to fetch command: %w", err)
	}
	return cmd, nil
}

func (p *Postgres) ListPendingCommands(ctx context.Context, binID string, limit int) ([]models.Command, error) {
	cmds := []models.Command{}
	err := p.db.SelectContext(ctx, &cmds, `
		SELECT `+commandColumns+` FROM commands
		WHERE bin_id = $1 AND status = $2
		ORDER BY created_at ASC
		LIMIT $3
	`, binID, models.CommandPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending commands: %w", err)
	}
	return cmds, nil
}

func (p *Postgres) ListCommands(ctx context.Context, f CommandFilter) ([]models.Command, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	if f.BinID != "" {
		args = append(args, f.BinID)
		where += fmt.Sprintf(" AND bin_id = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int
	if err := p.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM commands`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count commands: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, f.Offset)
	query := fmt.Sprintf(`SELECT `+commandColumns+` FROM commands`+where+
		` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	cmds := []models.Command{}
	if err := p.db.SelectContext(ctx, &cmds, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list commands: %w", err)
	}
	return cmds, total, nil
}

func (p *Postgres) UpdateCommand(ctx context.Context, cmd models.Command) (models.Command, error) {
	cmd.UpdatedAt = now()
	res, err := p.db.NamedExecContext(ctx, `
		UPDATE commands
		SET status = :status, executed_at = :executed_at, failure_reason = :failure_reason,
			retry_count = :retry_count, updated_at = :updated_at
		WHERE id = :id
	`, cmd)
	if err != nil {
		return models.Command{}, fmt.Errorf("failed to update command: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return models.Command{}, ErrNotFound
	}
	return cmd, nil
}

func (p *Postgres) DeleteCommand(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM commands WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete command: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Alerts

const alertColumns = `id, bin_id, alert_type, severity, message, is_resolved, resolved_at,
	resolved_by, resolution_notes, action_taken, created_at, updated_at`

func (p *Postgres) CreateAlert(ctx context.Context, alert models.Alert) (models.Alert, error) {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	ts := now()
	alert.CreatedAt, alert.UpdatedAt = ts, ts
	_, err := p.db.NamedExecContext(ctx, `
		INSERT INTO alerts (id, bin_id, alert_type, severity, message, is_resolved, resolved_at,
			resolved_by, resolution_notes, action_taken, created_at, updated_at)
		VALUES (:id, :bin_id, :alert_type, :severity, :message, :is_resolved, :resolved_at,
			:resolved_by, :resolution_notes, :action_taken, :created_at, :updated_at)
	`, alert)
	if err != nil {
		return models.Alert{}, fmt.Errorf("failed to insert alert: %w", err)
	}
	return alert, nil
}

func (p *Postgres) GetAlert(ctx context.Context, id string) (models.Alert, error) {
	var alert models.Alert
	err := p.db.GetContext(ctx, &alert, `SELECT `+alertColumns+` FROM alerts WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Alert{}, ErrNotFound
	}
	if err != nil {
		return models.Alert{}, fmt.Errorf("failed to fetch alert: %w", err)
	}
	return alert, nil
}

func (p *Postgres) FindOpenAlert(ctx context.Context, binID string, alertType models.AlertType) (models.Alert, error) {
	var alert models.Alert
	err := p.db.GetContext(ctx, &alert, `
		SELECT `+alertColumns+` FROM alerts
		WHERE bin_id = $1 AND alert_type = $2 AND is_resolved = FALSE
		LIMIT 1
	`, binID, alertType)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Alert{}, ErrNotFound
	}
	if err != nil {
		return models.Alert{}, fmt.Errorf("failed to find open alert: %w", err)
	}
	return alert, nil
}

func (p *Postgres) ListAlerts(ctx context.Context, f AlertFilter) ([]models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE 1=1`
	args := []interface{}{}
	if f.BinID != "" {
		args = append(args, f.BinID)
		query += fmt.Sprintf(" AND bin_id = $%d", len(args))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		query += fmt.Sprintf(" AND alert_type = $%d", len(args))
	}
	if f.Unresolved {
		query += " AND is_resolved = FALSE"
	}
	if f.Severity != "" {
		args = append(args, f.Severity)
		query += fmt.Sprintf(" AND severity = $%d", len(args))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	alerts := []models.Alert{}
	if err := p.db.SelectContext(ctx, &alerts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, nil
}

func (p *Postgres) UpdateAlert(ctx context.Context, alert models.Alert) (models.Alert, error) {
	alert.UpdatedAt = now()
	res, err := p.db.NamedExecContext(ctx, `
		UPDATE alerts
		SET is_resolved = :is_resolved, resolved_at = :resolved_at, resolved_by = :resolved_by,
			resolution_notes = :resolution_notes, action_taken = :action_taken, updated_at = :updated_at
		WHERE id = :id
	`, alert)
	if err != nil {
		return models.Alert{}, fmt.Errorf("failed to update alert: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return models.Alert{}, ErrNotFound
	}
	return alert, nil
}

func (p *Postgres) CountOpenAlertsBySeverity(ctx context.Context) (map[models.AlertSeverity]int, error) {
	rows := []struct {
		Severity models.AlertSeverity `db:"severity"`
		Count    int                  `db:"count"`
	}{}
	err := p.db.SelectContext(ctx, &rows, `
		SELECT severity, COUNT(*) AS count FROM alerts WHERE is_resolved = FALSE GROUP BY severity
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count open alerts: %w", err)
	}
	out := map[models.AlertSeverity]int{}
	for _, r := range rows {
		out[r.Severity] = r.Count
	}
	return out, nil
}

// Image records

const imageColumns = `id, bin_id, image_url, predicted_category, actual_category, confidence,
	is_verified, verified_by, verification_notes, captured_at, created_at`

func (p *Postgres) CreateImageRecord(ctx context.Context, rec models.ImageRecord) (models.ImageRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	rec.CreatedAt = now()
	if rec.CapturedAt == 0 {
		rec.CapturedAt = rec.CreatedAt
	}
	_, err := p.db.NamedExecContext(ctx, `
		INSERT INTO image_records (id, bin_id, image_url, predicted_category, actual_category,
			confidence, is_verified, verified_by, verification_notes, captured_at, created_at)
		VALUES (:id, :bin_id, :image_url, :predicted_category, :actual_category,
			:confidence, :is_verified, :verified_by, :verification_notes, :captured_at, :created_at)
	`, rec)
	if err != nil {
		return models.ImageRecord{}, fmt.Errorf("failed to insert image record: %w", err)
	}
	return rec, nil
}

func (p *Postgres) GetImageRecord(ctx context.Context, id string) (models.ImageRecord, error) {
	var rec models.ImageRecord
	err := p.db.GetContext(ctx, &rec, `SELECT `+imageColumns+` FROM image_records WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ImageRecord{}, ErrNotFound
	}
	if err != nil {
		return models.ImageRecord{}, fmt.Errorf("failed to fetch image record: %w", err)
	}
	return rec, nil
}

func (p *Postgres) ListBinImages(ctx context.Context, binID string, limit int) ([]models.ImageRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	recs := []models.ImageRecord{}
	err := p.db.SelectContext(ctx, &recs, `
		SELECT `+imageColumns+` FROM image_records
		WHERE bin_id = $1
		ORDER BY captured_at DESC
		LIMIT $2
	`, binID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bin images: %w", err)
	}
	return recs, nil
}

func (p *Postgres) ListRecentUnverifiedImages(ctx context.Context, since int64) ([]models.ImageRecord, error) {
	recs := []models.ImageRecord{}
	err := p.db.SelectContext(ctx, &recs, `
		SELECT `+imageColumns+` FROM image_records
		WHERE is_verified = FALSE AND created_at >= $1
		ORDER BY created_at ASC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list unverified images: %w", err)
	}
	return recs, nil
}

func (p *Postgres) UpdateImageRecord(ctx context.Context, rec models.ImageRecord) (models.ImageRecord, error) {
	res, err := p.db.NamedExecContext(ctx, `
		UPDATE image_records
		SET actual_category = :actual_category, is_verified = :is_verified,
			verified_by = :verified_by, verification_notes = :verification_notes
		WHERE id = :id
	`, rec)
	if err != nil {
		return models.ImageRecord{}, fmt.Errorf("failed to update image record: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return models.ImageRecord{}, ErrNotFound
	}
	return rec, nil
}

func (p *Postgres) DeleteImageRecord(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM image_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete image record: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) WasteCountByCategory(ctx context.Context, since int64) ([]CategoryCount, error) {
	out := []CategoryCount{}
	err := p.db.SelectContext(ctx, &out, `
		SELECT COALESCE(actual_category, 'unknown') AS category,
			COUNT(*) AS count,
			COALESCE(AVG(confidence), 0) AS avg_confidence
		FROM image_records
		WHERE is_verified = TRUE AND captured_at >= $1
		GROUP BY 1
		ORDER BY count DESC, category ASC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count waste by category: %w", err)
	}
	return out, nil
}

func (p *Postgres) DailyVerifiedCounts(ctx context.Context, since int64) ([]DailyCount, error) {
	out := []DailyCount{}
	err := p.db.SelectContext(ctx, &out, `
		SELECT to_char(to_timestamp(captured_at) AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS date,
			COUNT(*) AS count,
			COALESCE(AVG(confidence), 0) AS avg_confidence
		FROM image_records
		WHERE is_verified = TRUE AND captured_at >= $1
		GROUP BY 1
		ORDER BY 1
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count daily waste: %w", err)
	}
	return out, nil
}

// Maintenance logs

const maintenanceColumns = `id, bin_id, worker_id, status, maintenance_type, description,
	start_date, completion_date, estimated_duration, notes, cost, created_at, updated_at`

func (p *Postgres) CreateMaintenanceLog(ctx context.Context, logEntry models.MaintenanceLog) (models.MaintenanceLog, error) {
	if logEntry.ID == "" {
		logEntry.ID = uuid.New().String()
	}
	ts := now()
	logEntry.CreatedAt, logEntry.UpdatedAt = ts, ts
	_, err := p.db.NamedExecContext(ctx, `
		INSERT INTO maintenance_logs (id, bin_id, worker_id, status, maintenance_type, description,
			start_date, completion_date, estimated_duration, notes, cost, created_at, updated_at)
		VALUES (:id, :bin_id, :worker_id, :status, :maintenance_type, :description,
			:start_date, :completion_date, :estimated_duration, :notes, :cost, :created_at, :updated_at)
	`, logEntry)
	if err != nil {
		return models.MaintenanceLog{}, fmt.Errorf("failed to insert maintenance log: %w", err)
	}
	return logEntry, nil
}

func (p *Postgres) GetMaintenanceLog(ctx context.Context, id string) (models.MaintenanceLog, error) {
	var logEntry models.MaintenanceLog
	err := p.db.GetContext(ctx, &logEntry, `SELECT `+maintenanceColumns+` FROM maintenance_logs WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MaintenanceLog{}, ErrNotFound
	}
	if err != nil {
		return models.MaintenanceLog{}, fmt.Errorf("failed to fetch maintenance log: %w", err)
	}
	return logEntry, nil
}

func (p *Postgres) ListMaintenanceLogs(ctx context.Context, binID string, status models.MaintenanceStatus, limit int) ([]models.MaintenanceLog, error) {
	query := `SELECT ` + maintenanceColumns + ` FROM maintenance_logs WHERE 1=1`
	args := []interface{}{}
	if binID != "" {
		args = append(args, binID)
		query += fmt.Sprintf(" AND bin_id = $%d", len(args))
	}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY start_date DESC LIMIT $%d", len(args))

	logs := []models.MaintenanceLog{}
	if err := p.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list maintenance logs: %w", err)
	}
	return logs, nil
}

func (p *Postgres) UpdateMaintenanceLog(ctx context.Context, logEntry models.MaintenanceLog) (models.MaintenanceLog, error) {
	logEntry.UpdatedAt = now()
	res, err := p.db.NamedExecContext(ctx, `
		UPDATE maintenance_logs
		SET worker_id = :worker_id, status = :status, completion_date = :completion_date,
			notes = :notes, cost = :cost, updated_at = :updated_at
		WHERE id = :id
	`, logEntry)
	if err != nil {
		return models.MaintenanceLog{}, fmt.Errorf("failed to update maintenance log: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return models.MaintenanceLog{}, ErrNotFound
	}
	return logEntry, nil
}

func (p *Postgres) DeleteMaintenanceLog(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM maintenance_logs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete maintenance log: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) WorkerMaintenanceStats(ctx context.Context, workerID string) (models.WorkerStats, error) {
	var row struct {
		Total     int     `db:"total"`
		Completed int     `db:"completed"`
		Pending   int     `db:"pending"`
		Cancelled int     `db:"cancelled"`
		TotalCost float64 `db:"total_cost"`
	}
	err := p.db.GetContext(ctx, &row, `
		SELECT COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'completed') AS completed,
			COUNT(*) FILTER (WHERE status IN ('pending', 'in-progress')) AS pending,
			COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled,
			COALESCE(SUM(cost), 0) AS total_cost
		FROM maintenance_logs
		WHERE worker_id = $1
	`, workerID)
	if err != nil {
		return models.WorkerStats{}, fmt.Errorf("failed to aggregate worker stats: %w", err)
	}

	var assigned int
	if err := p.db.GetContext(ctx, &assigned, `SELECT COUNT(*) FROM worker_bins WHERE worker_id = $1`, workerID); err != nil {
		return models.WorkerStats{}, fmt.Errorf("failed to count assigned bins: %w", err)
	}

	stats := models.WorkerStats{
		WorkerID:      workerID,
		TotalJobs:     row.Total,
		CompletedJobs: row.Completed,
		PendingJobs:   row.Pending,
		CancelledJobs: row.Cancelled,
		TotalCost:     row.TotalCost,
		AssignedBins:  assigned,
	}
	if stats.TotalJobs > 0 {
		stats.CompletionRate = float64(stats.CompletedJobs) / float64(stats.TotalJobs) * 100
	}
	return stats, nil
}

// Workers

const workerColumns = `id, name, email, phone, role, is_active, join_date, address,
	performance_rating, created_at, updated_at`

func (p *Postgres) CreateWorker(ctx context.Context, w models.Worker) (models.Worker, error) {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	ts := now()
	w.CreatedAt, w.UpdatedAt = ts, ts
	if w.JoinDate == 0 {
		w.JoinDate = ts
	}
	_, err := p.db.NamedExecContext(ctx, `
		INSERT INTO workers (id, name, email, phone, role, is_active, join_date, address,
			performance_rating, created_at, updated_at)
		VALUES (:id, :name, :email, :phone, :role, :is_active, :join_date, :address,
			:performance_rating, :created_at, :updated_at)
	`, w)
	if err != nil {
		return models.Worker{}, fmt.Errorf("failed to insert worker: %w", err)
	}
	return w, nil
}

func (p *Postgres) GetWorker(ctx context.Context, id string) (models.Worker, error) {
	var w models.Worker
	err := p.db.GetContext(ctx, &w, `SELECT `+workerColumns+` FROM workers WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Worker{}, ErrNotFound
	}
	if err != nil {
		return models.Worker{}, fmt.Errorf("failed to fetch worker: %w", err)
	}
	return w, nil
}

func (p *Postgres) ListWorkers(ctx context.Context, role models.WorkerRole, onlyActive bool) ([]models.Worker, error) {
	query := `SELECT ` + workerColumns + ` FROM workers WHERE 1=1`
	args := []interface{}{}
	if role != "" {
		args = append(args, role)
		query += fmt.Sprintf(" AND role = $%d", len(args))
	}
	if onlyActive {
		query += " AND is_active = TRUE"
	}
	query += " ORDER BY name ASC"

	workers := []models.Worker{}
	if err := p.db.SelectContext(ctx, &workers, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}
	return workers, nil
}

func (p *Postgres) UpdateWorker(ctx context.Context, w models.Worker) (models.Worker, error) {
	w.UpdatedAt = now()
	res, err := p.db.NamedExecContext(ctx, `
		UPDATE workers
		SET name = :name, phone = :phone, role = :role, is_active = :is_active,
			address = :address, performance_rating = :performance_rating, updated_at = :updated_at
		WHERE id = :id
	`, w)
	if err != nil {
		return models.Worker{}, fmt.Errorf("failed to update worker: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return models.Worker{}, ErrNotFound
	}
	return w, nil
}

func (p *Postgres) DeleteWorker(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM workers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete worker: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) AssignBins(ctx context.Context, workerID string, binIDs []string) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM worker_bins WHERE worker_id = $1`, workerID); err != nil {
		return fmt.Errorf("failed to clear assignments: %w", err)
	}
	for _, binID := range binIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO worker_bins (worker_id, bin_id) VALUES ($1, $2)`, workerID, binID); err != nil {
			return fmt.Errorf("failed to assign bin %s: %w", binID, err)
		}
	}
	return tx.Commit()
}

func (p *Postgres) ListAssignedBinIDs(ctx context.Context, workerID string) ([]string, error) {
	ids := []string{}
	err := p.db.SelectContext(ctx, &ids, `SELECT bin_id FROM worker_bins WHERE worker_id = $1`, workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assigned bins: %w", err)
	}
	return ids, nil
}

// Feedback

const feedbackColumns = `id, user_id, email, subject, message, rating, category, status,
	reviewed_by, review_notes, created_at, updated_at`

func (p *Postgres) CreateFeedback(ctx context.Context, f models.Feedback) (models.Feedback, error) {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	ts := now()
	f.CreatedAt, f.UpdatedAt = ts, ts
	_, err := p.db.NamedExecContext(ctx, `
		INSERT INTO feedback (id, user_id, email, subject, message, rating, category, status,
			reviewed_by, review_notes, created_at, updated_at)
		VALUES (:id, :user_id, :email, :subject, :message, :rating, :category, :status,
			:reviewed_by, :review_notes, :created_at, :updated_at)
	`, f)
	if err != nil {
		return models.Feedback{}, fmt.Errorf("failed to insert feedback: %w", err)
	}
	return f, nil
}

func (p *Postgres) GetFeedback(ctx context.Context, id string) (models.Feedback, error) {
	var f models.Feedback
	err := p.db.GetContext(ctx, &f, `SELECT `+feedbackColumns+` FROM feedback WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Feedback{}, ErrNotFound
	}
	if err != nil {
		return models.Feedback{}, fmt.Errorf("failed to fetch feedback: %w", err)
	}
	return f, nil
}

func (p *Postgres) ListFeedback(ctx context.Context, status models.FeedbackStatus, category models.FeedbackCategory, limit int) ([]models.Feedback, error) {
	query := `SELECT ` + feedbackColumns + ` FROM feedback WHERE 1=1`
	args := []interface{}{}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if category != "" {
		args = append(args, category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	items := []models.Feedback{}
	if err := p.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	return items, nil
}

func (p *Postgres) UpdateFeedback(ctx context.Context, f models.Feedback) (models.Feedback, error) {
	f.UpdatedAt = now()
	res, err := p.db.NamedExecContext(ctx, `
		UPDATE feedback
		SET status = :status, reviewed_by = :reviewed_by, review_notes = :review_notes,
			updated_at = :updated_at
		WHERE id = :id
	`, f)
	if err != nil {
		return models.Feedback{}, fmt.Errorf("failed to update feedback: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return models.Feedback{}, ErrNotFound
	}
	return f, nil
}

func (p *Postgres) DeleteFeedback(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM feedback WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete feedback: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) FeedbackStats(ctx context.Context) (models.FeedbackStats, error) {
	var row struct {
		Total     int     `db:"total"`
		New       int     `db:"new"`
		Reviewed  int     `db:"reviewed"`
		Resolved  int     `db:"resolved"`
		AvgRating float64 `db:"avg_rating"`
	}
	err := p.db.GetContext(ctx, &row, `
		SELECT COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'new') AS new,
			COUNT(*) FILTER (WHERE status = 'reviewed') AS reviewed,
			COUNT(*) FILTER (WHERE status = 'resolved') AS resolved,
			COALESCE(AVG(rating), 0) AS avg_rating
		FROM feedback
	`)
	if err != nil {
		return models.FeedbackStats{}, fmt.Errorf("failed to aggregate feedback stats: %w", err)
	}
	return models.FeedbackStats{
		Total:         row.Total,
		New:           row.New,
		Reviewed:      row.Reviewed,
		Resolved:      row.Resolved,
		AverageRating: row.AvgRating,
	}, nil
}

// Admin users and refresh tokens

const userColumns = `id, name, email, password, role, is_active, last_login, created_at, updated_at`

func (p *Postgres) CreateUser(ctx context.Context, u models.AdminUser) (models.AdminUser, error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	ts := now()
	u.CreatedAt, u.UpdatedAt = ts, ts
	_, err := p.db.NamedExecContext(ctx, `
		INSERT INTO admin_users (id, name, email, password, role, is_active, last_login, created_at, updated_at)
		VALUES (:id, :name, :email, :password, :role, :is_active, :last_login, :created_at, :updated_at)
	`, u)
	if err != nil {
		return models.AdminUser{}, fmt.Errorf("failed to insert user: %w", err)
	}
	return u, nil
}

func (p *Postgres) GetUser(ctx context.Context, id string) (models.AdminUser, error) {
	var u models.AdminUser
	err := p.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM admin_users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AdminUser{}, ErrNotFound
	}
	if err != nil {
		return models.AdminUser{}, fmt.Errorf("failed to fetch user: %w", err)
	}
	return u, nil
}

func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (models.AdminUser, error) {
	var u models.AdminUser
	err := p.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM admin_users WHERE email = $1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AdminUser{}, ErrNotFound
	}
	if err != nil {
		return models.AdminUser{}, fmt.Errorf("failed to fetch user by email: %w", err)
	}
	return u, nil
}

func (p *Postgres) UpdateUser(ctx context.Context, u models.AdminUser) (models.AdminUser, error) {
	u.UpdatedAt = now()
	res, err := p.db.NamedExecContext(ctx, `
		UPDATE admin_users
		SET name = :name, password = :password, role = :role, is_active = :is_active,
			last_login = :last_login, updated_at = :updated_at
		WHERE id = :id
	`, u)
	if err != nil {
		return models.AdminUser{}, fmt.Errorf("failed to update user: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return models.AdminUser{}, ErrNotFound
	}
	return u, nil
}

func (p *Postgres) StoreRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt int64) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`, userID, tokenHash, expiresAt, now())
	if err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	return nil
}

func (p *Postgres) HasRefreshToken(ctx context.Context, userID, tokenHash string) (bool, error) {
	var count int
	err := p.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM refresh_tokens
		WHERE user_id = $1 AND token_hash = $2 AND expires_at > $3
	`, userID, tokenHash, now())
	if err != nil {
		return false, fmt.Errorf("failed to check refresh token: %w", err)
	}
	return count > 0, nil
}

func (p *Postgres) DeleteRefreshToken(ctx context.Context, userID, tokenHash string) error {
	_, err := p.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE user_id = $1 AND token_hash = $2`, userID, tokenHash)
	if err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}
	return nil
}

func (p *Postgres) DeleteUserRefreshTokens(ctx context.Context, userID string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete refresh tokens: %w", err)
	}
	return nil
}
