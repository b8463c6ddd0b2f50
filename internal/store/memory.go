package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"smartbin-backend/internal/models"
)

// Memory is an in-process Store used by tests. Slices keep insertion
// order so pending-command FIFO behaves like the SQL ORDER BY.
type Memory struct {
	mu sync.Mutex

	bins        []models.Bin
	commands    []models.Command
	alerts      []models.Alert
	images      []models.ImageRecord
	maintenance []models.MaintenanceLog
	workers     []models.Worker
	feedback    []models.Feedback
	users       []models.AdminUser

	workerBins    map[string][]string
	refreshTokens []models.RefreshToken
	nextTokenID   int
}

func NewMemory() *Memory {
	return &Memory{workerBins: map[string][]string{}}
}

// Bins

func (m *Memory) CreateBin(ctx context.Context, bin models.Bin) (models.Bin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if bin.ID == "" {
		bin.ID = uuid.New().String()
	}
	ts := time.Now().Unix()
	bin.CreatedAt, bin.UpdatedAt = ts, ts
	if bin.LastUpdated == 0 {
		bin.LastUpdated = ts
	}
	if bin.InstalledAt == 0 {
		bin.InstalledAt = ts
	}
	m.bins = append(m.bins, bin)
	return bin, nil
}

func (m *Memory) GetBin(ctx context.Context, id string) (models.Bin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bins {
		if b.ID == id {
			return b, nil
		}
	}
	return models.Bin{}, ErrNotFound
}

func (m *Memory) GetBinByCode(ctx context.Context, code string) (models.Bin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bins {
		if b.BinCode == code {
			return b, nil
		}
	}
	return models.Bin{}, ErrNotFound
}

func (m *Memory) GetBinByAPIKey(ctx context.Context, apiKey string) (models.Bin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bins {
		if b.APIKey == apiKey {
			return b, nil
		}
	}
	return models.Bin{}, ErrNotFound
}

func (m *Memory) ListBins(ctx context.Context, f BinFilter) ([]models.Bin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Bin{}
	for _, b := range m.bins {
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if f.Category != "" && b.Category != f.Category {
			continue
		}
		if f.OnlyActive && !b.IsActive {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BinCode < out[j].BinCode })
	return out, nil
}

func (m *Memory) UpdateBin(ctx context.Context, bin models.Bin) (models.Bin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, b := range m.bins {
		if b.ID == bin.ID {
			bin.UpdatedAt = time.Now().Unix()
			m.bins[i] = bin
			return bin, nil
		}
	}
	return models.Bin{}, ErrNotFound
}

func (m *Memory) UpdateBinAPIKey(ctx context.Context, id, apiKey string) (models.Bin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, b := range m.bins {
		if b.ID == id {
			b.APIKey = apiKey
			b.UpdatedAt = time.Now().Unix()
			m.bins[i] = b
			return b, nil
		}
	}
	return models.Bin{}, ErrNotFound
}

func (m *Memory) DeleteBin(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, b := range m.bins {
		if b.ID == id {
			m.bins = append(m.bins[:i], m.bins[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) UpdateBinReading(ctx context.Context, id string, fillLevel int, status models.BinStatus, lastUpdated int64) (models.Bin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, b := range m.bins {
		if b.ID == id {
			b.FillLevel = fillLevel
			b.Status = status
			b.LastUpdated = lastUpdated
			b.UpdatedAt = lastUpdated
			m.bins[i] = b
			return b, nil
		}
	}
	return models.Bin{}, ErrNotFound
}

func (m *Memory) ListActiveBins(ctx context.Context) ([]models.Bin, error) {
	return m.ListBins(ctx, BinFilter{OnlyActive: true})
}

func (m *Memory) ListActiveBinsUpdatedBefore(ctx context.Context, cutoff int64) ([]models.Bin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Bin{}
	for _, b := range m.bins {
		if b.IsActive && b.LastUpdated < cutoff {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BinCode < out[j].BinCode })
	return out, nil
}

func (m *Memory) CountBinsByStatus(ctx context.Context) (map[models.BinStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[models.BinStatus]int{}
	for _, b := range m.bins {
		counts[b.Status]++
	}
	return counts, nil
}

func (m *Memory) CategoryStats(ctx context.Context) ([]CategoryStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byCategory := map[models.WasteCategory]*CategoryStat{}
	totals := map[models.WasteCategory]int{}
	for _, b := range m.bins {
		if !b.IsActive {
			continue
		}
		stat, ok := byCategory[b.Category]
		if !ok {
			stat = &CategoryStat{Category: b.Category}
			byCategory[b.Category] = stat
		}
		stat.BinCount++
		totals[b.Category] += b.FillLevel
		if b.FillLevel >= 90 {
			stat.FullBins++
		}
	}
	out := []CategoryStat{}
	for cat, stat := range byCategory {
		stat.AvgFillLevel = float64(totals[cat]) / float64(stat.BinCount)
		out = append(out, *stat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

// Commands

func (m *Memory) CreateCommand(ctx context.Context, cmd models.Command) (models.Command, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cmd.ID == "" {
		cmd.ID = uuid.New().String()
	}
	ts := time.Now().Unix()
	cmd.CreatedAt, cmd.UpdatedAt = ts, ts
	if cmd.Parameters == nil {
		cmd.Parameters = []byte(`{}`)
	}
	m.commands = append(m.commands, cmd)
	return cmd, nil
}

func (m *Memory) GetCommand(ctx context.Context, id string) (models.Command, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.commands {
		if c.ID == id {
			return c, nil
		}
	}
	return models.Command{}, ErrNotFound
}

func (m *Memory) ListPendingCommands(ctx context.Context, binID string, limit int) ([]models.Command, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Command{}
	for _, c := range m.commands {
		if c.BinID == binID && c.Status == models.CommandPending {
			out = append(out, c)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) ListCommands(ctx context.Context, f CommandFilter) ([]models.Command, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched := []models.Command{}
	for _, c := range m.commands {
		if f.BinID != "" && c.BinID != f.BinID {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		matched = append(matched, c)
	}
	total := len(matched)
	// newest first, like the SQL listing
	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}
	if f.Offset >= len(matched) {
		return []models.Command{}, total, nil
	}
	matched = matched[f.Offset:]
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (m *Memory) UpdateCommand(ctx context.Context, cmd models.Command) (models.Command, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.commands {
		if c.ID == cmd.ID {
			cmd.UpdatedAt = time.Now().Unix()
			m.commands[i] = cmd
			return cmd, nil
		}
	}
	return models.Command{}, ErrNotFound
}

func (m *Memory) DeleteCommand(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.commands {
		if c.ID == id {
			m.commands = append(m.commands[:i], m.commands[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Alerts

func (m *Memory) CreateAlert(ctx context.Context, alert models.Alert) (models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	ts := time.Now().Unix()
	alert.CreatedAt, alert.UpdatedAt = ts, ts
	m.alerts = append(m.alerts, alert)
	return alert, nil
}

func (m *Memory) GetAlert(ctx context.Context, id string) (models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.alerts {
		if a.ID == id {
			return a, nil
		}
	}
	return models.Alert{}, ErrNotFound
}

func (m *Memory) FindOpenAlert(ctx context.Context, binID string, alertType models.AlertType) (models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.alerts {
		if a.BinID == binID && a.AlertType == alertType && !a.IsResolved {
			return a, nil
		}
	}
	return models.Alert{}, ErrNotFound
}

func (m *Memory) ListAlerts(ctx context.Context, f AlertFilter) ([]models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Alert{}
	for i := len(m.alerts) - 1; i >= 0; i-- {
		a := m.alerts[i]
		if f.BinID != "" && a.BinID != f.BinID {
			continue
		}
		if f.Type != "" && a.AlertType != f.Type {
			continue
		}
		if f.Unresolved && a.IsResolved {
			continue
		}
		if f.Severity != "" && a.Severity != f.Severity {
			continue
		}
		out = append(out, a)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) UpdateAlert(ctx context.Context, alert models.Alert) (models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.alerts {
		if a.ID == alert.ID {
			alert.UpdatedAt = time.Now().Unix()
			m.alerts[i] = alert
			return alert, nil
		}
	}
	return models.Alert{}, ErrNotFound
}

func (m *Memory) CountOpenAlertsBySeverity(ctx context.Context) (map[models.AlertSeverity]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[models.AlertSeverity]int{}
	for _, a := range m.alerts {
		if !a.IsResolved {
			counts[a.Severity]++
		}
	}
	return counts, nil
}

// Image records

func (m *Memory) CreateImageRecord(ctx context.Context, rec models.ImageRecord) (models.ImageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	rec.CreatedAt = time.Now().Unix()
	if rec.CapturedAt == 0 {
		rec.CapturedAt = rec.CreatedAt
	}
	m.images = append(m.images, rec)
	return rec, nil
}

func (m *Memory) GetImageRecord(ctx context.Context, id string) (models.ImageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.images {
		if r.ID == id {
			return r, nil
		}
	}
	return models.ImageRecord{}, ErrNotFound
}

func (m *Memory) ListBinImages(ctx context.Context, binID string, limit int) ([]models.ImageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	out := []models.ImageRecord{}
	for i := len(m.images) - 1; i >= 0; i-- {
		if m.images[i].BinID == binID {
			out = append(out, m.images[i])
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) ListRecentUnverifiedImages(ctx context.Context, since int64) ([]models.ImageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.ImageRecord{}
	for _, r := range m.images {
		if !r.IsVerified && r.CreatedAt >= since {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) UpdateImageRecord(ctx context.Context, rec models.ImageRecord) (models.ImageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.images {
		if r.ID == rec.ID {
			m.images[i] = rec
			return rec, nil
		}
	}
	return models.ImageRecord{}, ErrNotFound
}

func (m *Memory) DeleteImageRecord(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.images {
		if r.ID == id {
			m.images = append(m.images[:i], m.images[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) WasteCountByCategory(ctx context.Context, since int64) ([]CategoryCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[string]*CategoryCount{}
	confSums := map[string]int{}
	for _, r := range m.images {
		if !r.IsVerified || r.CapturedAt < since {
			continue
		}
		cat := "unknown"
		if r.ActualCategory != nil {
			cat = string(*r.ActualCategory)
		}
		row, ok := counts[cat]
		if !ok {
			row = &CategoryCount{Category: cat}
			counts[cat] = row
		}
		row.Count++
		if r.Confidence != nil {
			confSums[cat] += *r.Confidence
		}
	}
	out := []CategoryCount{}
	for cat, row := range counts {
		row.AvgConfidence = float64(confSums[cat]) / float64(row.Count)
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

func (m *Memory) DailyVerifiedCounts(ctx context.Context, since int64) ([]DailyCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[string]*DailyCount{}
	confSums := map[string]int{}
	for _, r := range m.images {
		if !r.IsVerified || r.CapturedAt < since {
			continue
		}
		day := time.Unix(r.CapturedAt, 0).UTC().Format("2006-01-02")
		row, ok := counts[day]
		if !ok {
			row = &DailyCount{Date: day}
			counts[day] = row
		}
		row.Count++
		if r.Confidence != nil {
			confSums[day] += *r.Confidence
		}
	}
	out := []DailyCount{}
	for day, row := range counts {
		row.AvgConfidence = float64(confSums[day]) / float64(row.Count)
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// Maintenance logs

func (m *Memory) CreateMaintenanceLog(ctx context.Context, logEntry models.MaintenanceLog) (models.MaintenanceLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if logEntry.ID == "" {
		logEntry.ID = uuid.New().String()
	}
	ts := time.Now().Unix()
	logEntry.CreatedAt, logEntry.UpdatedAt = ts, ts
	m.maintenance = append(m.maintenance, logEntry)
	return logEntry, nil
}

func (m *Memory) GetMaintenanceLog(ctx context.Context, id string) (models.MaintenanceLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.maintenance {
		if l.ID == id {
			return l, nil
		}
	}
	return models.MaintenanceLog{}, ErrNotFound
}

func (m *Memory) ListMaintenanceLogs(ctx context.Context, binID string, status models.MaintenanceStatus, limit int) ([]models.MaintenanceLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	out := []models.MaintenanceLog{}
	for i := len(m.maintenance) - 1; i >= 0; i-- {
		l := m.maintenance[i]
		if binID != "" && l.BinID != binID {
			continue
		}
		if status != "" && l.Status != status {
			continue
		}
		out = append(out, l)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) UpdateMaintenanceLog(ctx context.Context, logEntry models.MaintenanceLog) (models.MaintenanceLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, l := range m.maintenance {
		if l.ID == logEntry.ID {
			logEntry.UpdatedAt = time.Now().Unix()
			m.maintenance[i] = logEntry
			return logEntry, nil
		}
	}
	return models.MaintenanceLog{}, ErrNotFound
}

func (m *Memory) DeleteMaintenanceLog(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, l := range m.maintenance {
		if l.ID == id {
			m.maintenance = append(m.maintenance[:i], m.maintenance[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) WorkerMaintenanceStats(ctx context.Context, workerID string) (models.WorkerStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := models.WorkerStats{WorkerID: workerID}
	for _, l := range m.maintenance {
		if l.WorkerID == nil || *l.WorkerID != workerID {
			continue
		}
		stats.TotalJobs++
		stats.TotalCost += l.Cost
		switch l.Status {
		case models.MaintenanceCompleted:
			stats.CompletedJobs++
		case models.MaintenanceCancelled:
			stats.CancelledJobs++
		default:
			stats.PendingJobs++
		}
	}
	stats.AssignedBins = len(m.workerBins[workerID])
	if stats.TotalJobs > 0 {
		stats.CompletionRate = float64(stats.CompletedJobs) / float64(stats.TotalJobs) * 100
	}
	return stats, nil
}

// Workers

func (m *Memory) CreateWorker(ctx context.Context, w models.Worker) (models.Worker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	ts := time.Now().Unix()
	w.CreatedAt, w.UpdatedAt = ts, ts
	if w.JoinDate == 0 {
		w.JoinDate = ts
	}
	m.workers = append(m.workers, w)
	return w, nil
}

func (m *Memory) GetWorker(ctx context.Context, id string) (models.Worker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.workers {
		if w.ID == id {
			return w, nil
		}
	}
	return models.Worker{}, ErrNotFound
}

func (m *Memory) ListWorkers(ctx context.Context, role models.WorkerRole, onlyActive bool) ([]models.Worker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Worker{}
	for _, w := range m.workers {
		if role != "" && w.Role != role {
			continue
		}
		if onlyActive && !w.IsActive {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) UpdateWorker(ctx context.Context, w models.Worker) (models.Worker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.workers {
		if existing.ID == w.ID {
			w.UpdatedAt = time.Now().Unix()
			m.workers[i] = w
			return w, nil
		}
	}
	return models.Worker{}, ErrNotFound
}

func (m *Memory) DeleteWorker(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, w := range m.workers {
		if w.ID == id {
			m.workers = append(m.workers[:i], m.workers[i+1:]...)
			delete(m.workerBins, id)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) AssignBins(ctx context.Context, workerID string, binIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workerBins[workerID] = append([]string{}, binIDs...)
	return nil
}

func (m *Memory) ListAssignedBinIDs(ctx context.Context, workerID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.workerBins[workerID]...), nil
}

// Feedback

func (m *Memory) CreateFeedback(ctx context.Context, f models.Feedback) (models.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	ts := time.Now().Unix()
	f.CreatedAt, f.UpdatedAt = ts, ts
	m.feedback = append(m.feedback, f)
	return f, nil
}

func (m *Memory) GetFeedback(ctx context.Context, id string) (models.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.feedback {
		if f.ID == id {
			return f, nil
		}
	}
	return models.Feedback{}, ErrNotFound
}

func (m *Memory) ListFeedback(ctx context.Context, status models.FeedbackStatus, category models.FeedbackCategory, limit int) ([]models.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	out := []models.Feedback{}
	for i := len(m.feedback) - 1; i >= 0; i-- {
		f := m.feedback[i]
		if status != "" && f.Status != status {
			continue
		}
		if category != "" && f.Category != category {
			continue
		}
		out = append(out, f)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) UpdateFeedback(ctx context.Context, f models.Feedback) (models.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.feedback {
		if existing.ID == f.ID {
			f.UpdatedAt = time.Now().Unix()
			m.feedback[i] = f
			return f, nil
		}
	}
	return models.Feedback{}, ErrNotFound
}

func (m *Memory) DeleteFeedback(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, f := range m.feedback {
		if f.ID == id {
			m.feedback = append(m.feedback[:i], m.feedback[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) FeedbackStats(ctx context.Context) (models.FeedbackStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := models.FeedbackStats{}
	ratingSum, rated := 0, 0
	for _, f := range m.feedback {
		stats.Total++
		switch f.Status {
		case models.FeedbackNew:
			stats.New++
		case models.FeedbackReviewed:
			stats.Reviewed++
		case models.FeedbackResolved:
			stats.Resolved++
		}
		if f.Rating != nil {
			ratingSum += *f.Rating
			rated++
		}
	}
	if rated > 0 {
		stats.AverageRating = float64(ratingSum) / float64(rated)
	}
	return stats, nil
}

// Admin users and refresh tokens

func (m *Memory) CreateUser(ctx context.Context, u models.AdminUser) (models.AdminUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	ts := time.Now().Unix()
	u.CreatedAt, u.UpdatedAt = ts, ts
	m.users = append(m.users, u)
	return u, nil
}

func (m *Memory) GetUser(ctx context.Context, id string) (models.AdminUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return models.AdminUser{}, ErrNotFound
}

func (m *Memory) GetUserByEmail(ctx context.Context, email string) (models.AdminUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.AdminUser{}, ErrNotFound
}

func (m *Memory) UpdateUser(ctx context.Context, u models.AdminUser) (models.AdminUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.users {
		if existing.ID == u.ID {
			u.UpdatedAt = time.Now().Unix()
			m.users[i] = u
			return u, nil
		}
	}
	return models.AdminUser{}, ErrNotFound
}

func (m *Memory) StoreRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextTokenID++
	m.refreshTokens = append(m.refreshTokens, models.RefreshToken{
		ID:        m.nextTokenID,
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().Unix(),
	})
	return nil
}

func (m *Memory) HasRefreshToken(ctx context.Context, userID, tokenHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Unix()
	for _, t := range m.refreshTokens {
		if t.UserID == userID && t.TokenHash == tokenHash && t.ExpiresAt > cutoff {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) DeleteRefreshToken(ctx context.Context, userID, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.refreshTokens {
		if t.UserID == userID && t.TokenHash == tokenHash {
			m.refreshTokens = append(m.refreshTokens[:i], m.refreshTokens[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *Memory) DeleteUserRefreshTokens(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.refreshTokens[:0]
	for _, t := range m.refreshTokens {
		if t.UserID != userID {
			kept = append(kept, t)
		}
	}
	m.refreshTokens = kept
	return nil
}
