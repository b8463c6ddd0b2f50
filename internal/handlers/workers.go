package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"smartbin-backend/internal/models"
	"smartbin-backend/internal/store"

	"github.com/go-chi/chi/v5"
)

func GetWorkers(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := models.WorkerRole(r.URL.Query().Get("role"))
		onlyActive := r.URL.Query().Get("active") == "true"

		workers, err := s.ListWorkers(r.Context(), role, onlyActive)
		if err != nil {
			http.Error(w, "Failed to fetch workers", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(workers)
	}
}

func GetWorker(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		worker, err := s.GetWorker(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}

		binIDs, err := s.ListAssignedBinIDs(r.Context(), id)
		if err != nil {
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"worker":        worker,
			"assigned_bins": binIDs,
		})
	}
}

func CreateWorker(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CreateWorkerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		if req.Name == "" || req.Email == "" {
			http.Error(w, "name and email are required", http.StatusBadRequest)
			return
		}
		if !models.ValidWorkerRole(req.Role) {
			http.Error(w, "Invalid role", http.StatusBadRequest)
			return
		}

		worker := models.Worker{
			Name:     req.Name,
			Email:    req.Email,
			Phone:    req.Phone,
			Role:     req.Role,
			IsActive: true,
			Address:  req.Address,
		}

		created, err := s.CreateWorker(r.Context(), worker)
		if err != nil {
			http.Error(w, "Failed to create worker", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(created)
	}
}

func UpdateWorker(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req models.UpdateWorkerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		worker, err := s.GetWorker(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}

		if req.Name != nil {
			worker.Name = *req.Name
		}
		if req.Phone != nil {
			worker.Phone = *req.Phone
		}
		if req.Role != nil {
			if !models.ValidWorkerRole(*req.Role) {
				http.Error(w, "Invalid role", http.StatusBadRequest)
				return
			}
			worker.Role = *req.Role
		}
		if req.IsActive != nil {
			worker.IsActive = *req.IsActive
		}
		if req.Address != nil {
			worker.Address = req.Address
		}
		if req.PerformanceRating != nil {
			worker.PerformanceRating = *req.PerformanceRating
		}

		updated, err := s.UpdateWorker(r.Context(), worker)
		if err != nil {
			http.Error(w, "Failed to update worker", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(updated)
	}
}

func DeleteWorker(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := s.DeleteWorker(r.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to delete worker", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

type AssignBinsRequest struct {
	BinIDs []string `json:"bin_ids"`
}

// AssignWorkerBins replaces the worker's bin assignments with the given set.
func AssignWorkerBins(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if _, err := s.GetWorker(r.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}

		var req AssignBinsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		// Every referenced bin must exist
		for _, binID := range req.BinIDs {
			if _, err := s.GetBin(r.Context(), binID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					http.Error(w, "Bin not found: "+binID, http.StatusBadRequest)
					return
				}
				http.Error(w, "Database error", http.StatusInternalServerError)
				return
			}
		}

		if err := s.AssignBins(r.Context(), id, req.BinIDs); err != nil {
			http.Error(w, "Failed to assign bins", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok":            true,
			"assigned_bins": req.BinIDs,
		})
	}
}

// GetWorkerStats aggregates a worker's maintenance performance.
func GetWorkerStats(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if _, err := s.GetWorker(r.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}

		stats, err := s.WorkerMaintenanceStats(r.Context(), id)
		if err != nil {
			http.Error(w, "Failed to compute stats", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats)
	}
}
