package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"smartbin-backend/internal/config"
	"smartbin-backend/internal/models"
	"smartbin-backend/internal/store"
)

func newCommandFixture(t *testing.T) (*CommandService, *store.Memory, models.Bin) {
	t.Helper()
	mem := store.NewMemory()
	bin, err := mem.CreateBin(context.Background(), models.Bin{
		BinCode:  "BIN-001",
		Category: models.CategoryMetal,
		Address:  "Test Street",
		Status:   models.BinStatusActive,
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("CreateBin: %v", err)
	}
	svc := NewCommandService(mem, config.CommandConfig{MaxRetries: 3, PendingBatchSize: 10})
	return svc, mem, bin
}

func TestCreateCommandStartsPending(t *testing.T) {
	svc, _, bin := newCommandFixture(t)

	cmd, err := svc.Create(context.Background(), models.CreateCommandRequest{
		BinCode:     "BIN-001",
		CommandType: models.CommandEmpty,
	}, "admin-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if cmd.Status != models.CommandPending {
		t.Errorf("status = %q, want %q", cmd.Status, models.CommandPending)
	}
	if cmd.BinID != bin.ID {
		t.Errorf("bin id = %q, want %q", cmd.BinID, bin.ID)
	}
	if cmd.MaxRetries != 3 {
		t.Errorf("max retries = %d, want 3", cmd.MaxRetries)
	}
	if cmd.IssuedBy != "admin-1" {
		t.Errorf("issued by = %q, want admin-1", cmd.IssuedBy)
	}
}

func TestCreateCommandRejectsUnknownType(t *testing.T) {
	svc, _, _ := newCommandFixture(t)

	_, err := svc.Create(context.Background(), models.CreateCommandRequest{
		BinCode:     "BIN-001",
		CommandType: "self-destruct",
	}, "admin-1")
	if err != ErrInvalidCommandType {
		t.Fatalf("err = %v, want ErrInvalidCommandType", err)
	}
}

func TestCreateCommandUnknownBin(t *testing.T) {
	svc, _, _ := newCommandFixture(t)

	_, err := svc.Create(context.Background(), models.CreateCommandRequest{
		BinCode:     "BIN-999",
		CommandType: models.CommandRestart,
	}, "admin-1")
	if err != store.ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFailureRetriesThenTerminal(t *testing.T) {
	svc, _, _ := newCommandFixture(t)
	ctx := context.Background()

	cmd, err := svc.Create(ctx, models.CreateCommandRequest{
		BinCode:     "BIN-001",
		CommandType: models.CommandCalibrate,
	}, "admin-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Two failures leave the command retryable.
	for attempt := 1; attempt <= 2; attempt++ {
		updated, err := svc.AcknowledgeFailure(ctx, cmd.ID, "sensor jam")
		if err != nil {
			t.Fatalf("AcknowledgeFailure attempt %d: %v", attempt, err)
		}
		if updated.Status != models.CommandPending {
			t.Errorf("attempt %d: status = %q, want pending", attempt, updated.Status)
		}
		if updated.RetryCount != attempt {
			t.Errorf("attempt %d: retry count = %d", attempt, updated.RetryCount)
		}
	}

	// Third failure exhausts the budget.
	updated, err := svc.AcknowledgeFailure(ctx, cmd.ID, "sensor jam")
	if err != nil {
		t.Fatalf("AcknowledgeFailure final: %v", err)
	}
	if updated.Status != models.CommandFailed {
		t.Errorf("status = %q, want failed", updated.Status)
	}
	if updated.RetryCount != 3 {
		t.Errorf("retry count = %d, want 3", updated.RetryCount)
	}
	if updated.FailureReason == nil || *updated.FailureReason != "sensor jam" {
		t.Errorf("failure reason = %v", updated.FailureReason)
	}

	// Terminal commands reject further failure reports.
	if _, err := svc.AcknowledgeFailure(ctx, cmd.ID, "again"); err != ErrCommandTerminal {
		t.Errorf("err after terminal = %v, want ErrCommandTerminal", err)
	}
}

func TestSuccessAfterRetryClearsFailure(t *testing.T) {
	svc, _, _ := newCommandFixture(t)
	ctx := context.Background()

	cmd, err := svc.Create(ctx, models.CreateCommandRequest{
		BinCode:     "BIN-001",
		CommandType: models.CommandRestart,
	}, "admin-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.AcknowledgeFailure(ctx, cmd.ID, "timeout"); err != nil {
		t.Fatalf("AcknowledgeFailure: %v", err)
	}

	updated, err := svc.AcknowledgeSuccess(ctx, cmd.ID, 0)
	if err != nil {
		t.Fatalf("AcknowledgeSuccess: %v", err)
	}
	if updated.Status != models.CommandExecuted {
		t.Errorf("status = %q, want executed", updated.Status)
	}
	if updated.ExecutedAt == nil {
		t.Error("executed_at not set")
	}
	if updated.FailureReason != nil {
		t.Errorf("failure reason not cleared: %v", *updated.FailureReason)
	}
	if updated.RetryCount != 1 {
		t.Errorf("retry count = %d, want 1", updated.RetryCount)
	}
}

func TestSuccessAckIsIdempotent(t *testing.T) {
	svc, _, _ := newCommandFixture(t)
	ctx := context.Background()

	cmd, err := svc.Create(ctx, models.CreateCommandRequest{
		BinCode:     "BIN-001",
		CommandType: models.CommandEmpty,
	}, "admin-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	first, err := svc.AcknowledgeSuccess(ctx, cmd.ID, 0)
	if err != nil {
		t.Fatalf("first ack: %v", err)
	}
	second, err := svc.AcknowledgeSuccess(ctx, cmd.ID, 0)
	if err != nil {
		t.Fatalf("second ack: %v", err)
	}
	if second.Status != models.CommandExecuted {
		t.Errorf("status = %q, want executed", second.Status)
	}
	if first.ExecutedAt == nil || second.ExecutedAt == nil {
		t.Fatal("executed_at not set")
	}
	if *first.ExecutedAt != *second.ExecutedAt {
		t.Errorf("executed_at changed on resend: %d != %d", *first.ExecutedAt, *second.ExecutedAt)
	}
}

func TestSuccessAckUsesDeviceTimestamp(t *testing.T) {
	svc, _, _ := newCommandFixture(t)
	ctx := context.Background()

	cmd, err := svc.Create(ctx, models.CreateCommandRequest{
		BinCode:     "BIN-001",
		CommandType: models.CommandEmpty,
	}, "admin-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// The device executed the command well before the ack arrived.
	reported := time.Now().Add(-10 * time.Minute).Unix()
	updated, err := svc.AcknowledgeSuccess(ctx, cmd.ID, reported)
	if err != nil {
		t.Fatalf("AcknowledgeSuccess: %v", err)
	}
	if updated.ExecutedAt == nil || *updated.ExecutedAt != reported {
		t.Errorf("executed_at = %v, want reported %d", updated.ExecutedAt, reported)
	}

	// Without a device timestamp, server time fills in.
	other, err := svc.Create(ctx, models.CreateCommandRequest{
		BinCode:     "BIN-001",
		CommandType: models.CommandRestart,
	}, "admin-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	before := time.Now().Unix()
	updated, err = svc.AcknowledgeSuccess(ctx, other.ID, 0)
	if err != nil {
		t.Fatalf("AcknowledgeSuccess: %v", err)
	}
	if updated.ExecutedAt == nil || *updated.ExecutedAt < before {
		t.Errorf("executed_at = %v, want >= %d", updated.ExecutedAt, before)
	}
}

func TestCreateCommandDefaultsRetryBudget(t *testing.T) {
	mem := store.NewMemory()
	if _, err := mem.CreateBin(context.Background(), models.Bin{
		BinCode: "BIN-001", Category: models.CategoryMetal,
		Status: models.BinStatusActive, IsActive: true,
	}); err != nil {
		t.Fatalf("CreateBin: %v", err)
	}
	svc := NewCommandService(mem, config.CommandConfig{PendingBatchSize: 10})

	cmd, err := svc.Create(context.Background(), models.CreateCommandRequest{
		BinCode:     "BIN-001",
		CommandType: models.CommandEmpty,
	}, "admin-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if cmd.MaxRetries != models.DefaultMaxRetries {
		t.Errorf("max retries = %d, want default %d", cmd.MaxRetries, models.DefaultMaxRetries)
	}
}

func TestPendingForBinFIFOAndCap(t *testing.T) {
	svc, _, bin := newCommandFixture(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 12; i++ {
		cmd, err := svc.Create(ctx, models.CreateCommandRequest{
			BinCode:     "BIN-001",
			CommandType: models.CommandTest,
			Description: fmt.Sprintf("cmd %d", i),
		}, "admin-1")
		if err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
		ids = append(ids, cmd.ID)
	}

	pending, err := svc.PendingForBin(ctx, bin.ID)
	if err != nil {
		t.Fatalf("PendingForBin: %v", err)
	}
	if len(pending) != 10 {
		t.Fatalf("len = %d, want 10", len(pending))
	}
	for i, cmd := range pending {
		if cmd.ID != ids[i] {
			t.Errorf("position %d: got %q, want %q (oldest first)", i, cmd.ID, ids[i])
		}
	}

	// Executed commands drop out of the poll batch.
	if _, err := svc.AcknowledgeSuccess(ctx, ids[0], 0); err != nil {
		t.Fatalf("AcknowledgeSuccess: %v", err)
	}
	pending, err = svc.PendingForBin(ctx, bin.ID)
	if err != nil {
		t.Fatalf("PendingForBin: %v", err)
	}
	if len(pending) != 10 {
		t.Fatalf("len after ack = %d, want 10", len(pending))
	}
	if pending[0].ID != ids[1] {
		t.Errorf("head = %q, want %q", pending[0].ID, ids[1])
	}
}
