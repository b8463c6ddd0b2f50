package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"smartbin-backend/internal/metrics"
	"smartbin-backend/internal/middleware"
	"smartbin-backend/internal/models"
	"smartbin-backend/internal/services"
	"smartbin-backend/internal/store"

	"github.com/go-chi/chi/v5"
)

// BinBroadcaster pushes live bin updates to connected dashboards.
type BinBroadcaster interface {
	BroadcastBinUpdate(bin models.Bin)
}

type DeviceUpdateRequest struct {
	FillLevel         *int                  `json:"fill_level"`
	SensorStatus      string                `json:"sensor_status"`
	ImageURL          *string               `json:"image_url,omitempty"`
	PredictedCategory *models.WasteCategory `json:"predicted_category,omitempty"`
	Confidence        *int                  `json:"confidence,omitempty"`
}

// IoTUpdate ingests a telemetry reading from an authenticated device.
// A sensor status other than "OK" marks the bin offline; an "OK" reading
// recovers it. Image record failures never fail the update.
func IoTUpdate(s store.Store, anomaly *services.AnomalyService, broadcaster BinBroadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bin, ok := middleware.GetBinFromContext(r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var req DeviceUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		if req.FillLevel == nil {
			http.Error(w, "fill_level is required", http.StatusBadRequest)
			return
		}
		if *req.FillLevel < 0 || *req.FillLevel > 100 {
			http.Error(w, "fill_level must be between 0 and 100", http.StatusBadRequest)
			return
		}

		status := bin.Status
		if req.SensorStatus != "" && req.SensorStatus != "OK" {
			status = models.BinStatusOffline
		} else if req.SensorStatus == "OK" && status == models.BinStatusOffline {
			status = models.BinStatusActive
		}
		// Fill-driven transitions only apply to healthy bins
		if status == models.BinStatusActive && *req.FillLevel >= 90 {
			status = models.BinStatusFull
		} else if status == models.BinStatusFull && *req.FillLevel < 90 {
			status = models.BinStatusActive
		}

		updated, err := s.UpdateBinReading(r.Context(), bin.ID, *req.FillLevel, status, time.Now().Unix())
		if err != nil {
			http.Error(w, "Failed to record reading", http.StatusInternalServerError)
			return
		}

		metrics.DeviceUpdates.Inc()
		log.Printf("📡 [IOT] Bin %s reading: fill=%d%%, sensor=%s, status=%s", updated.BinCode, updated.FillLevel, req.SensorStatus, updated.Status)

		// Classification image, if the device sent one. Recording failure
		// must not reject the telemetry.
		if req.ImageURL != nil && *req.ImageURL != "" {
			rec := models.ImageRecord{
				BinID:             bin.ID,
				ImageURL:          *req.ImageURL,
				PredictedCategory: req.PredictedCategory,
				Confidence:        req.Confidence,
			}
			if _, err := s.CreateImageRecord(r.Context(), rec); err != nil {
				log.Printf("⚠️ [IOT] Failed to record image for bin %s: %v", updated.BinCode, err)
			}
		}

		if anomaly != nil {
			anomaly.CheckBin(r.Context(), updated)
		}
		if broadcaster != nil {
			broadcaster.BroadcastBinUpdate(updated)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok":     true,
			"status": updated.Status,
		})
	}
}

// IoTGetCommands returns the oldest pending commands for the device.
func IoTGetCommands(commands *services.CommandService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bin, ok := middleware.GetBinFromContext(r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		pending, err := commands.PendingForBin(r.Context(), bin.ID)
		if err != nil {
			http.Error(w, "Failed to fetch commands", http.StatusInternalServerError)
			return
		}

		responses := make([]models.DeviceCommand, len(pending))
		for i, cmd := range pending {
			responses[i] = cmd.ToDeviceCommand()
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"commands": responses})
	}
}

type AckCommandRequest struct {
	Success      bool   `json:"success"`
	ExecutedAt   *int64 `json:"executed_at,omitempty"` // Unix timestamp reported by the device
	ErrorMessage string `json:"error_message,omitempty"`
}

// IoTAckCommand records a command outcome reported by the device.
func IoTAckCommand(s store.Store, commands *services.CommandService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bin, ok := middleware.GetBinFromContext(r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		commandID := chi.URLParam(r, "commandId")

		cmd, err := s.GetCommand(r.Context(), commandID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}
		// A device can only acknowledge its own commands
		if cmd.BinID != bin.ID {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}

		var req AckCommandRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		var updated models.Command
		if req.Success {
			var executedAt int64
			if req.ExecutedAt != nil {
				executedAt = *req.ExecutedAt
			}
			updated, err = commands.AcknowledgeSuccess(r.Context(), commandID, executedAt)
		} else {
			reason := req.ErrorMessage
			if reason == "" {
				reason = "device reported failure"
			}
			updated, err = commands.AcknowledgeFailure(r.Context(), commandID, reason)
		}
		if err != nil {
			if errors.Is(err, services.ErrCommandTerminal) {
				http.Error(w, "Command already completed", http.StatusConflict)
				return
			}
			http.Error(w, "Failed to acknowledge command", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(updated.ToCommandResponse())
	}
}
