package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"smartbin-backend/internal/config"
	"smartbin-backend/internal/models"
	"smartbin-backend/internal/store"
)

func anomalyConfig() config.AnomalyConfig {
	return config.AnomalyConfig{
		OverfillThreshold: 90,
		OverfillRecency:   time.Hour,
		OfflineAfter:      2 * time.Hour,
		LowConfidence:     60,
		ImageWindow:       24 * time.Hour,
	}
}

type captureHub struct {
	alerts []models.Alert
}

func (c *captureHub) BroadcastAlert(alert models.Alert) {
	c.alerts = append(c.alerts, alert)
}

type captureNotifier struct {
	alerts []models.Alert
	bins   []models.Bin
}

func (c *captureNotifier) NotifyCriticalAlert(alert models.Alert, bin models.Bin) error {
	c.alerts = append(c.alerts, alert)
	c.bins = append(c.bins, bin)
	return nil
}

func seedBin(t *testing.T, mem *store.Memory, bin models.Bin) models.Bin {
	t.Helper()
	if bin.Status == "" {
		bin.Status = models.BinStatusActive
	}
	bin.IsActive = true
	created, err := mem.CreateBin(context.Background(), bin)
	if err != nil {
		t.Fatalf("CreateBin: %v", err)
	}
	return created
}

func TestOverfillRaisesOncePerOpenAlert(t *testing.T) {
	mem := store.NewMemory()
	hub := &captureHub{}
	svc := NewAnomalyService(mem, anomalyConfig(), hub, nil)
	ctx := context.Background()

	bin := seedBin(t, mem, models.Bin{BinCode: "BIN-001", Category: models.CategoryMetal, FillLevel: 95})
	seedBin(t, mem, models.Bin{BinCode: "BIN-002", Category: models.CategoryMetal, FillLevel: 40})

	raised, err := svc.CheckOverfill(ctx)
	if err != nil {
		t.Fatalf("CheckOverfill: %v", err)
	}
	if raised != 1 {
		t.Fatalf("raised = %d, want 1", raised)
	}

	alert, err := mem.FindOpenAlert(ctx, bin.ID, models.AlertOverfilled)
	if err != nil {
		t.Fatalf("FindOpenAlert: %v", err)
	}
	if alert.Severity != models.SeverityHigh {
		t.Errorf("severity = %q, want high", alert.Severity)
	}
	if !strings.Contains(alert.Message, "BIN-001") || !strings.Contains(alert.Message, "95%") {
		t.Errorf("message = %q", alert.Message)
	}
	if len(hub.alerts) != 1 {
		t.Errorf("broadcast count = %d, want 1", len(hub.alerts))
	}

	// Second sweep over an unchanged fleet raises nothing.
	raised, err = svc.CheckOverfill(ctx)
	if err != nil {
		t.Fatalf("CheckOverfill second sweep: %v", err)
	}
	if raised != 0 {
		t.Errorf("second sweep raised = %d, want 0", raised)
	}

	// Resolving the alert re-arms the check.
	alert.IsResolved = true
	if _, err := mem.UpdateAlert(ctx, alert); err != nil {
		t.Fatalf("UpdateAlert: %v", err)
	}
	raised, err = svc.CheckOverfill(ctx)
	if err != nil {
		t.Fatalf("CheckOverfill after resolve: %v", err)
	}
	if raised != 1 {
		t.Errorf("raised after resolve = %d, want 1", raised)
	}
}

func TestOverfillIgnoresStaleReadings(t *testing.T) {
	mem := store.NewMemory()
	svc := NewAnomalyService(mem, anomalyConfig(), nil, nil)

	seedBin(t, mem, models.Bin{
		BinCode:     "BIN-001",
		Category:    models.CategoryOthers,
		FillLevel:   98,
		LastUpdated: time.Now().Add(-3 * time.Hour).Unix(),
	})

	raised, err := svc.CheckOverfill(context.Background())
	if err != nil {
		t.Fatalf("CheckOverfill: %v", err)
	}
	if raised != 0 {
		t.Errorf("raised = %d, want 0 for a stale reading", raised)
	}
}

func TestSensorOfflineIsCriticalAndNotifies(t *testing.T) {
	mem := store.NewMemory()
	notifier := &captureNotifier{}
	svc := NewAnomalyService(mem, anomalyConfig(), nil, notifier)
	ctx := context.Background()

	bin := seedBin(t, mem, models.Bin{
		BinCode:     "BIN-007",
		Category:    models.CategoryBiodegradable,
		FillLevel:   30,
		LastUpdated: time.Now().Add(-5 * time.Hour).Unix(),
	})
	seedBin(t, mem, models.Bin{BinCode: "BIN-008", Category: models.CategoryBiodegradable, FillLevel: 30})

	raised, err := svc.CheckSensorOffline(ctx)
	if err != nil {
		t.Fatalf("CheckSensorOffline: %v", err)
	}
	if raised != 1 {
		t.Fatalf("raised = %d, want 1", raised)
	}

	alert, err := mem.FindOpenAlert(ctx, bin.ID, models.AlertSensorOffline)
	if err != nil {
		t.Fatalf("FindOpenAlert: %v", err)
	}
	if alert.Severity != models.SeverityCritical {
		t.Errorf("severity = %q, want critical", alert.Severity)
	}
	if !strings.Contains(alert.Message, "BIN-007") {
		t.Errorf("message = %q, want bin code", alert.Message)
	}

	// Critical alerts go out as push notifications.
	if len(notifier.alerts) != 1 {
		t.Fatalf("notifier calls = %d, want 1", len(notifier.alerts))
	}
	if notifier.bins[0].ID != bin.ID {
		t.Errorf("notified bin = %q, want %q", notifier.bins[0].ID, bin.ID)
	}

	raised, err = svc.CheckSensorOffline(ctx)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if raised != 0 {
		t.Errorf("second sweep raised = %d, want 0", raised)
	}
}

func TestClassificationDeduplicatesPerBin(t *testing.T) {
	mem := store.NewMemory()
	svc := NewAnomalyService(mem, anomalyConfig(), nil, nil)
	ctx := context.Background()

	bin := seedBin(t, mem, models.Bin{BinCode: "BIN-003", Category: models.CategoryNonBiodegradable, FillLevel: 10})
	other := seedBin(t, mem, models.Bin{BinCode: "BIN-004", Category: models.CategoryMetal, FillLevel: 10})

	low1, low2, high := 40, 55, 95
	cat := models.CategoryMetal
	addImage := func(binID string, conf *int) {
		t.Helper()
		if _, err := mem.CreateImageRecord(ctx, models.ImageRecord{
			BinID:             binID,
			ImageURL:          "https://img.example/x.jpg",
			PredictedCategory: &cat,
			Confidence:        conf,
		}); err != nil {
			t.Fatalf("CreateImageRecord: %v", err)
		}
	}
	addImage(bin.ID, &low1)
	addImage(bin.ID, &low2)
	addImage(bin.ID, &high)
	addImage(other.ID, &low1)

	// Two low confidence images on one bin collapse into a single alert;
	// the other bin gets its own.
	raised, err := svc.CheckClassification(ctx)
	if err != nil {
		t.Fatalf("CheckClassification: %v", err)
	}
	if raised != 2 {
		t.Fatalf("raised = %d, want 2 (one per affected bin)", raised)
	}

	alert, err := mem.FindOpenAlert(ctx, bin.ID, models.AlertAnomaly)
	if err != nil {
		t.Fatalf("FindOpenAlert: %v", err)
	}
	if alert.Severity != models.SeverityMedium {
		t.Errorf("severity = %q, want medium", alert.Severity)
	}
	if !strings.Contains(alert.Message, "Low confidence") {
		t.Errorf("message = %q", alert.Message)
	}

	// Nothing new while the alerts stay open, even for fresh images.
	addImage(bin.ID, &low2)
	raised, err = svc.CheckClassification(ctx)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if raised != 0 {
		t.Errorf("second pass raised = %d, want 0", raised)
	}

	// Resolving the alert re-arms the bin.
	alert.IsResolved = true
	if _, err := mem.UpdateAlert(ctx, alert); err != nil {
		t.Fatalf("UpdateAlert: %v", err)
	}
	raised, err = svc.CheckClassification(ctx)
	if err != nil {
		t.Fatalf("third pass: %v", err)
	}
	if raised != 1 {
		t.Errorf("third pass raised = %d, want 1", raised)
	}
}

func TestMaintenanceDueUsesSchedule(t *testing.T) {
	mem := store.NewMemory()
	svc := NewAnomalyService(mem, anomalyConfig(), nil, nil)
	ctx := context.Background()

	overdue := time.Now().Add(-24 * time.Hour).Unix()
	future := time.Now().Add(24 * time.Hour).Unix()
	due := seedBin(t, mem, models.Bin{
		BinCode: "BIN-004", Category: models.CategoryMetal,
		MaintenanceFreq: "monthly", NextMaintenanceAt: &overdue,
	})
	seedBin(t, mem, models.Bin{
		BinCode: "BIN-005", Category: models.CategoryMetal,
		MaintenanceFreq: "monthly", NextMaintenanceAt: &future,
	})
	seedBin(t, mem, models.Bin{BinCode: "BIN-006", Category: models.CategoryMetal})

	raised, err := svc.CheckMaintenanceDue(ctx)
	if err != nil {
		t.Fatalf("CheckMaintenanceDue: %v", err)
	}
	if raised != 1 {
		t.Fatalf("raised = %d, want 1", raised)
	}

	alert, err := mem.FindOpenAlert(ctx, due.ID, models.AlertMaintenanceDue)
	if err != nil {
		t.Fatalf("FindOpenAlert: %v", err)
	}
	if alert.Severity != models.SeverityMedium {
		t.Errorf("severity = %q, want medium", alert.Severity)
	}
	if !strings.Contains(alert.Message, "monthly") {
		t.Errorf("message = %q, want frequency", alert.Message)
	}
}

func TestCheckBinInlineOverfill(t *testing.T) {
	mem := store.NewMemory()
	hub := &captureHub{}
	svc := NewAnomalyService(mem, anomalyConfig(), hub, nil)
	ctx := context.Background()

	bin := seedBin(t, mem, models.Bin{BinCode: "BIN-010", Category: models.CategoryMetal, FillLevel: 96})

	svc.CheckBin(ctx, bin)
	if _, err := mem.FindOpenAlert(ctx, bin.ID, models.AlertOverfilled); err != nil {
		t.Fatalf("expected inline overfill alert: %v", err)
	}
	if len(hub.alerts) != 1 {
		t.Errorf("broadcast count = %d, want 1", len(hub.alerts))
	}

	// Repeated device updates do not re-raise.
	svc.CheckBin(ctx, bin)
	if len(hub.alerts) != 1 {
		t.Errorf("broadcast count after repeat = %d, want 1", len(hub.alerts))
	}
}

func TestCheckBinInlineSensorFault(t *testing.T) {
	mem := store.NewMemory()
	notifier := &captureNotifier{}
	svc := NewAnomalyService(mem, anomalyConfig(), nil, notifier)
	ctx := context.Background()

	bin := seedBin(t, mem, models.Bin{
		BinCode: "BIN-011", Category: models.CategoryMetal,
		FillLevel: 30, Status: models.BinStatusOffline,
	})

	svc.CheckBin(ctx, bin)
	alert, err := mem.FindOpenAlert(ctx, bin.ID, models.AlertSensorOffline)
	if err != nil {
		t.Fatalf("expected inline sensor alert: %v", err)
	}
	if alert.Severity != models.SeverityCritical {
		t.Errorf("severity = %q, want critical", alert.Severity)
	}
	if len(notifier.alerts) != 1 {
		t.Errorf("notifier calls = %d, want 1", len(notifier.alerts))
	}

	svc.CheckBin(ctx, bin)
	if len(notifier.alerts) != 1 {
		t.Errorf("notifier calls after repeat = %d, want 1", len(notifier.alerts))
	}
}

// failingStore breaks the stale-bin listing so one check fails while the
// rest of the sweep keeps going.
type failingStore struct {
	*store.Memory
}

func (f *failingStore) ListActiveBinsUpdatedBefore(ctx context.Context, cutoff int64) ([]models.Bin, error) {
	return nil, errors.New("connection reset")
}

func TestRunAllChecksIsolatesFailures(t *testing.T) {
	mem := store.NewMemory()
	broken := &failingStore{Memory: mem}
	svc := NewAnomalyService(broken, anomalyConfig(), nil, nil)
	ctx := context.Background()

	seedBin(t, mem, models.Bin{BinCode: "BIN-001", Category: models.CategoryMetal, FillLevel: 95})

	result := svc.RunAllChecks(ctx)
	if result.OverfillAlerts != 1 {
		t.Errorf("overfill alerts = %d, want 1", result.OverfillAlerts)
	}
	if result.OfflineAlerts != 0 {
		t.Errorf("offline alerts = %d, want 0", result.OfflineAlerts)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "sensor_offline") {
		t.Errorf("errors = %v, want one sensor_offline entry", result.Errors)
	}
}
