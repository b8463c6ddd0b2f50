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

var (
	// ErrInvalidCommandType is returned for a type outside the device vocabulary.
	ErrInvalidCommandType = errors.New("invalid command type")
	// ErrCommandTerminal is returned when a failure is reported for a command
	// that already reached a terminal status.
	ErrCommandTerminal = errors.New("command already in terminal status")
)

// CommandService owns the command lifecycle: pending until the device
// reports an outcome, failed only after the retry budget is spent.
type CommandService struct {
	store store.Store
	cfg   config.CommandConfig
}

func NewCommandService(s store.Store, cfg config.CommandConfig) *CommandService {
	return &CommandService{store: s, cfg: cfg}
}

// Create issues a new command against a bin addressed by its external code.
func (s *CommandService) Create(ctx context.Context, req models.CreateCommandRequest, issuedBy string) (models.Command, error) {
	if !models.ValidCommandType(req.CommandType) {
		return models.Command{}, ErrInvalidCommandType
	}

	bin, err := s.store.GetBinByCode(ctx, req.BinCode)
	if err != nil {
		return models.Command{}, err
	}

	maxRetries := s.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = models.DefaultMaxRetries
	}

	cmd := models.Command{
		BinID:       bin.ID,
		CommandType: req.CommandType,
		Status:      models.CommandPending,
		IssuedBy:    issuedBy,
		Description: req.Description,
		Parameters:  req.Parameters,
		MaxRetries:  maxRetries,
	}
	created, err := s.store.CreateCommand(ctx, cmd)
	if err != nil {
		return models.Command{}, fmt.Errorf("failed to create command: %w", err)
	}

	metrics.CommandsCreated.WithLabelValues(string(created.CommandType)).Inc()
	log.Printf("[COMMAND] Created %s command %s for bin %s", created.CommandType, created.ID, bin.BinCode)
	return created, nil
}

// PendingForBin returns the oldest pending commands for a bin, capped at
// the configured batch size. Devices poll this during check-in.
func (s *CommandService) PendingForBin(ctx context.Context, binID string) ([]models.Command, error) {
	limit := s.cfg.PendingBatchSize
	if limit <= 0 {
		limit = 10
	}
	return s.store.ListPendingCommands(ctx, binID, limit)
}

// AcknowledgeSuccess marks a command executed at the moment the device
// reports. A zero executedAt falls back to server time. Acknowledging an
// already executed command is a no-op so devices can safely resend.
func (s *CommandService) AcknowledgeSuccess(ctx context.Context, commandID string, executedAt int64) (models.Command, error) {
	cmd, err := s.store.GetCommand(ctx, commandID)
	if err != nil {
		return models.Command{}, err
	}

	if cmd.Status == models.CommandExecuted {
		return cmd, nil
	}

	if executedAt <= 0 {
		executedAt = time.Now().Unix()
	}
	cmd.Status = models.CommandExecuted
	cmd.ExecutedAt = &executedAt
	cmd.FailureReason = nil

	updated, err := s.store.UpdateCommand(ctx, cmd)
	if err != nil {
		return models.Command{}, fmt.Errorf("failed to mark command executed: %w", err)
	}

	metrics.CommandsAcknowledged.WithLabelValues("executed").Inc()
	log.Printf("[COMMAND] Command %s executed (attempt %d)", cmd.ID, cmd.RetryCount+1)
	return updated, nil
}

// AcknowledgeFailure records a failed attempt. The command goes back to
// pending until the retry budget runs out, then fails for good.
func (s *CommandService) AcknowledgeFailure(ctx context.Context, commandID, reason string) (models.Command, error) {
	cmd, err := s.store.GetCommand(ctx, commandID)
	if err != nil {
		return models.Command{}, err
	}

	if cmd.Terminal() {
		return models.Command{}, ErrCommandTerminal
	}

	cmd.RetryCount++
	cmd.FailureReason = &reason

	if cmd.RetryCount >= cmd.MaxRetries {
		cmd.Status = models.CommandFailed
		metrics.CommandsAcknowledged.WithLabelValues("failed").Inc()
		log.Printf("[COMMAND] Command %s failed permanently after %d attempts: %s", cmd.ID, cmd.RetryCount, reason)
	} else {
		cmd.Status = models.CommandPending
		metrics.CommandsAcknowledged.WithLabelValues("retry").Inc()
		log.Printf("[COMMAND] Command %s failed (attempt %d/%d), queued for retry: %s", cmd.ID, cmd.RetryCount, cmd.MaxRetries, reason)
	}

	updated, err := s.store.UpdateCommand(ctx, cmd)
	if err != nil {
		return models.Command{}, fmt.Errorf("failed to record command failure: %w", err)
	}
	return updated, nil
}
