package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"smartbin-backend/internal/config"
	"smartbin-backend/internal/metrics"
	"smartbin-backend/internal/models"
	"smartbin-backend/internal/store"
)

// Broadcaster pushes alert events to connected dashboard clients.
type Broadcaster interface {
	BroadcastAlert(alert models.Alert)
}

// Notifier delivers push notifications for critical alerts.
type Notifier interface {
	NotifyCriticalAlert(alert models.Alert, bin models.Bin) error
}

// SweepResult summarizes one detector pass.
type SweepResult struct {
	OverfillAlerts       int      `json:"overfill_alerts"`
	OfflineAlerts        int      `json:"offline_alerts"`
	ClassificationAlerts int      `json:"classification_alerts"`
	MaintenanceAlerts    int      `json:"maintenance_alerts"`
	Errors               []string `json:"errors,omitempty"`
}

// AnomalyService scans the fleet for conditions that warrant an alert.
// Every check deduplicates against the open-alert ledger, so repeated
// sweeps over an unchanged fleet raise nothing new.
type AnomalyService struct {
	store    store.Store
	cfg      config.AnomalyConfig
	hub      Broadcaster
	notifier Notifier
}

func NewAnomalyService(s store.Store, cfg config.AnomalyConfig, hub Broadcaster, notifier Notifier) *AnomalyService {
	return &AnomalyService{store: s, cfg: cfg, hub: hub, notifier: notifier}
}

// RunAllChecks runs every detector check in a fixed order. A failing
// check is recorded and skipped; the rest still run.
func (s *AnomalyService) RunAllChecks(ctx context.Context) SweepResult {
	metrics.SweepRuns.Inc()
	result := SweepResult{}

	run := func(name string, fn func(context.Context) (int, error)) int {
		n, err := fn(ctx)
		if err != nil {
			metrics.SweepCheckErrors.WithLabelValues(name).Inc()
			log.Printf("[ANOMALY] %s check failed: %v", name, err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", name, err))
			return 0
		}
		return n
	}

	result.OverfillAlerts = run("overfill", s.CheckOverfill)
	result.OfflineAlerts = run("sensor_offline", s.CheckSensorOffline)
	result.ClassificationAlerts = run("classification", s.CheckClassification)
	result.MaintenanceAlerts = run("maintenance_due", s.CheckMaintenanceDue)

	total := result.OverfillAlerts + result.OfflineAlerts + result.ClassificationAlerts + result.MaintenanceAlerts
	if total > 0 || len(result.Errors) > 0 {
		log.Printf("[ANOMALY] Sweep complete: %d new alerts, %d check errors", total, len(result.Errors))
	}
	return result
}

// CheckOverfill flags active bins whose latest reading is both fresh and
// above the overfill threshold.
func (s *AnomalyService) CheckOverfill(ctx context.Context) (int, error) {
	bins, err := s.store.ListActiveBins(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active bins: %w", err)
	}

	raised := 0
	cutoff := time.Now().Add(-s.cfg.OverfillRecency).Unix()
	for _, bin := range bins {
		if bin.FillLevel <= s.cfg.OverfillThreshold || bin.LastUpdated < cutoff {
			continue
		}
		ok, err := s.raise(ctx, bin, models.AlertOverfilled, models.SeverityHigh,
			fmt.Sprintf("Bin %s is %d%% full and needs collection", bin.BinCode, bin.FillLevel))
		if err != nil {
			return raised, err
		}
		if ok {
			raised++
		}
	}
	return raised, nil
}

// CheckSensorOffline flags active bins that have not reported within the
// offline window.
func (s *AnomalyService) CheckSensorOffline(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.cfg.OfflineAfter).Unix()
	bins, err := s.store.ListActiveBinsUpdatedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale bins: %w", err)
	}

	raised := 0
	for _, bin := range bins {
		silent := time.Since(time.Unix(bin.LastUpdated, 0)).Round(time.Minute)
		ok, err := s.raise(ctx, bin, models.AlertSensorOffline, models.SeverityCritical,
			fmt.Sprintf("Bin %s sensor has been silent for %s", bin.BinCode, silent))
		if err != nil {
			return raised, err
		}
		if ok {
			raised++
		}
	}
	return raised, nil
}

// CheckClassification flags bins with recent unverified images whose
// predicted category confidence is below the cutoff. At most one open
// anomaly alert per bin; resolving it re-arms the check.
func (s *AnomalyService) CheckClassification(ctx context.Context) (int, error) {
	since := time.Now().Add(-s.cfg.ImageWindow).Unix()
	images, err := s.store.ListRecentUnverifiedImages(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("failed to list unverified images: %w", err)
	}

	raised := 0
	for _, img := range images {
		if img.Confidence == nil || *img.Confidence >= s.cfg.LowConfidence {
			continue
		}

		bin, err := s.store.GetBin(ctx, img.BinID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return raised, err
		}

		ok, err := s.raise(ctx, bin, models.AlertAnomaly, models.SeverityMedium,
			fmt.Sprintf("Low confidence classification (%d%%) on bin %s needs manual review",
				*img.Confidence, bin.BinCode))
		if err != nil {
			return raised, err
		}
		if ok {
			raised++
		}
	}
	return raised, nil
}

// CheckMaintenanceDue flags active bins whose next scheduled maintenance
// date has passed.
func (s *AnomalyService) CheckMaintenanceDue(ctx context.Context) (int, error) {
	bins, err := s.store.ListActiveBins(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active bins: %w", err)
	}

	raised := 0
	nowTs := time.Now().Unix()
	for _, bin := range bins {
		if bin.NextMaintenanceAt == nil || *bin.NextMaintenanceAt > nowTs {
			continue
		}
		ok, err := s.raise(ctx, bin, models.AlertMaintenanceDue, models.SeverityMedium,
			fmt.Sprintf("Bin %s is overdue for %s maintenance", bin.BinCode, bin.MaintenanceFreq))
		if err != nil {
			return raised, err
		}
		if ok {
			raised++
		}
	}
	return raised, nil
}

// CheckBin runs the per-bin checks inline after a device update so a
// fresh overfill or sensor fault surfaces without waiting for the next
// sweep. Errors are logged, never surfaced to the device path.
func (s *AnomalyService) CheckBin(ctx context.Context, bin models.Bin) {
	if bin.FillLevel > s.cfg.OverfillThreshold {
		if _, err := s.raise(ctx, bin, models.AlertOverfilled, models.SeverityHigh,
			fmt.Sprintf("Bin %s is %d%% full and needs collection", bin.BinCode, bin.FillLevel)); err != nil {
			log.Printf("[ANOMALY] Inline overfill check failed for bin %s: %v", bin.BinCode, err)
		}
	}

	if bin.Status == models.BinStatusOffline {
		if _, err := s.raise(ctx, bin, models.AlertSensorOffline, models.SeverityCritical,
			fmt.Sprintf("Bin %s reported a sensor fault", bin.BinCode)); err != nil {
			log.Printf("[ANOMALY] Inline sensor check failed for bin %s: %v", bin.BinCode, err)
		}
	}
}

// raise creates an alert unless an open one of the same type already
// exists for the bin. Returns true when a new alert was created.
func (s *AnomalyService) raise(ctx context.Context, bin models.Bin, alertType models.AlertType, severity models.AlertSeverity, message string) (bool, error) {
	if _, err := s.store.FindOpenAlert(ctx, bin.ID, alertType); err == nil {
		return false, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return false, fmt.Errorf("failed to check open alerts: %w", err)
	}

	alert := models.Alert{
		BinID:     bin.ID,
		AlertType: alertType,
		Severity:  severity,
		Message:   message,
	}
	created, err := s.store.CreateAlert(ctx, alert)
	if err != nil {
		return false, fmt.Errorf("failed to create alert: %w", err)
	}

	s.publish(created, bin)
	return true, nil
}

func (s *AnomalyService) publish(alert models.Alert, bin models.Bin) {
	metrics.AlertsRaised.WithLabelValues(string(alert.AlertType), string(alert.Severity)).Inc()
	log.Printf("[ANOMALY] Raised %s/%s alert for bin %s: %s", alert.AlertType, alert.Severity, bin.BinCode, alert.Message)

	if s.hub != nil {
		s.hub.BroadcastAlert(alert)
	}
	if s.notifier != nil && alert.Severity == models.SeverityCritical {
		if err := s.notifier.NotifyCriticalAlert(alert, bin); err != nil {
			log.Printf("[ANOMALY] FCM notification failed for alert %s: %v", alert.ID, err)
		}
	}
}
