package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"smartbin-backend/internal/models"
	"smartbin-backend/internal/store"

	"github.com/go-chi/chi/v5"
)

// nextMaintenanceDate projects the bin's schedule forward one interval.
func nextMaintenanceDate(frequency string, from time.Time) int64 {
	switch frequency {
	case "weekly":
		return from.AddDate(0, 0, 7).Unix()
	case "biweekly":
		return from.AddDate(0, 0, 14).Unix()
	case "quarterly":
		return from.AddDate(0, 3, 0).Unix()
	default: // monthly
		return from.AddDate(0, 1, 0).Unix()
	}
}

func GetMaintenanceLogs(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		binID := r.URL.Query().Get("bin_id")
		status := models.MaintenanceStatus(r.URL.Query().Get("status"))
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				limit = n
			}
		}

		logs, err := s.ListMaintenanceLogs(r.Context(), binID, status, limit)
		if err != nil {
			http.Error(w, "Failed to fetch maintenance logs", http.StatusInternalServerError)
			return
		}

		responses := make([]models.MaintenanceLogResponse, len(logs))
		for i, entry := range logs {
			responses[i] = entry.ToMaintenanceLogResponse()
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(responses)
	}
}

func CreateMaintenanceLog(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CreateMaintenanceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		if req.Description == "" {
			http.Error(w, "description is required", http.StatusBadRequest)
			return
		}
		if !models.ValidMaintenanceType(req.MaintenanceType) {
			http.Error(w, "Invalid maintenance type", http.StatusBadRequest)
			return
		}

		bin, err := s.GetBinByCode(r.Context(), req.BinCode)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "Bin not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}

		if req.WorkerID != nil {
			if _, err := s.GetWorker(r.Context(), *req.WorkerID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					http.Error(w, "Worker not found", http.StatusBadRequest)
					return
				}
				http.Error(w, "Database error", http.StatusInternalServerError)
				return
			}
		}

		startDate := time.Now().Unix()
		if req.StartDateIso != nil {
			if parsed, err := time.Parse(time.RFC3339, *req.StartDateIso); err == nil {
				startDate = parsed.Unix()
			}
		}

		entry := models.MaintenanceLog{
			BinID:             bin.ID,
			WorkerID:          req.WorkerID,
			Status:            models.MaintenancePending,
			MaintenanceType:   req.MaintenanceType,
			Description:       req.Description,
			StartDate:         startDate,
			EstimatedDuration: req.EstimatedDuration,
		}

		created, err := s.CreateMaintenanceLog(r.Context(), entry)
		if err != nil {
			http.Error(w, "Failed to create maintenance log", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(created.ToMaintenanceLogResponse())
	}
}

// UpdateMaintenanceLog advances a job through its lifecycle. Completing
// a job stamps the bin's maintenance schedule forward one interval.
func UpdateMaintenanceLog(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req models.UpdateMaintenanceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		entry, err := s.GetMaintenanceLog(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}

		completing := false
		if req.Status != nil {
			if !models.ValidMaintenanceStatus(*req.Status) {
				http.Error(w, "Invalid status", http.StatusBadRequest)
				return
			}
			if entry.Status == models.MaintenanceCompleted || entry.Status == models.MaintenanceCancelled {
				http.Error(w, "Maintenance job already closed", http.StatusConflict)
				return
			}
			completing = *req.Status == models.MaintenanceCompleted
			entry.Status = *req.Status
		}
		if req.WorkerID != nil {
			entry.WorkerID = req.WorkerID
		}
		if req.Notes != nil {
			entry.Notes = req.Notes
		}
		if req.Cost != nil {
			entry.Cost = *req.Cost
		}
		if completing {
			now := time.Now().Unix()
			entry.CompletionDate = &now
		}

		updated, err := s.UpdateMaintenanceLog(r.Context(), entry)
		if err != nil {
			http.Error(w, "Failed to update maintenance log", http.StatusInternalServerError)
			return
		}

		if completing {
			if bin, err := s.GetBin(r.Context(), entry.BinID); err == nil {
				now := time.Now()
				ts := now.Unix()
				next := nextMaintenanceDate(bin.MaintenanceFreq, now)
				bin.LastMaintenanceAt = &ts
				bin.NextMaintenanceAt = &next
				if bin.Status == models.BinStatusMaintenance {
					bin.Status = models.BinStatusActive
				}
				if _, err := s.UpdateBin(r.Context(), bin); err != nil {
					log.Printf("⚠️ Failed to advance maintenance schedule for bin %s: %v", bin.BinCode, err)
				}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(updated.ToMaintenanceLogResponse())
	}
}

func DeleteMaintenanceLog(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := s.DeleteMaintenanceLog(r.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to delete maintenance log", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
