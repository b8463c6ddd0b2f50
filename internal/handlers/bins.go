package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"smartbin-backend/internal/models"
	"smartbin-backend/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func GetBins(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := store.BinFilter{
			Status:   models.BinStatus(r.URL.Query().Get("status")),
			Category: models.WasteCategory(r.URL.Query().Get("category")),
		}
		if r.URL.Query().Get("active") == "true" {
			filter.OnlyActive = true
		}

		bins, err := s.ListBins(r.Context(), filter)
		if err != nil {
			http.Error(w, "Failed to fetch bins", http.StatusInternalServerError)
			return
		}

		responses := make([]models.BinResponse, len(bins))
		for i, bin := range bins {
			responses[i] = bin.ToBinResponse()
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(responses)
	}
}

func GetBin(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		bin, err := s.GetBin(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(bin.ToBinResponse())
	}
}

func CreateBin(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CreateBinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		if req.BinCode == "" || req.Address == "" {
			http.Error(w, "bin_code and address are required", http.StatusBadRequest)
			return
		}
		if !models.ValidCategory(req.Category) {
			http.Error(w, "Invalid category", http.StatusBadRequest)
			return
		}

		if _, err := s.GetBinByCode(r.Context(), req.BinCode); err == nil {
			http.Error(w, "Bin code already in use", http.StatusConflict)
			return
		} else if !errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}

		bin := models.Bin{
			BinCode:         req.BinCode,
			Category:        req.Category,
			Latitude:        req.Latitude,
			Longitude:       req.Longitude,
			Address:         req.Address,
			Status:          models.BinStatusActive,
			Capacity:        100,
			APIKey:          uuid.New().String(),
			IsActive:        true,
			MaintenanceFreq: "monthly",
		}
		if req.Capacity != nil {
			bin.Capacity = *req.Capacity
		}
		if req.MaintenanceFreq != nil {
			bin.MaintenanceFreq = *req.MaintenanceFreq
		}

		created, err := s.CreateBin(r.Context(), bin)
		if err != nil {
			http.Error(w, "Failed to create bin", http.StatusInternalServerError)
			return
		}

		log.Printf("📦 Created bin %s (%s)", created.BinCode, created.ID)

		// The API key is returned once, on creation, for device provisioning.
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"bin":     created.ToBinResponse(),
			"api_key": created.APIKey,
		})
	}
}

func UpdateBin(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req models.UpdateBinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		bin, err := s.GetBin(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}

		if req.Category != nil {
			if !models.ValidCategory(*req.Category) {
				http.Error(w, "Invalid category", http.StatusBadRequest)
				return
			}
			bin.Category = *req.Category
		}
		if req.Status != nil {
			if !models.ValidBinStatus(*req.Status) {
				http.Error(w, "Invalid status", http.StatusBadRequest)
				return
			}
			bin.Status = *req.Status
		}
		if req.FillLevel != nil {
			if *req.FillLevel < 0 || *req.FillLevel > 100 {
				http.Error(w, "fill_level must be between 0 and 100", http.StatusBadRequest)
				return
			}
			bin.FillLevel = *req.FillLevel
		}
		if req.Latitude != nil {
			bin.Latitude = *req.Latitude
		}
		if req.Longitude != nil {
			bin.Longitude = *req.Longitude
		}
		if req.Address != nil {
			bin.Address = *req.Address
		}
		if req.Capacity != nil {
			bin.Capacity = *req.Capacity
		}
		if req.IsActive != nil {
			bin.IsActive = *req.IsActive
		}
		if req.MaintenanceFreq != nil {
			bin.MaintenanceFreq = *req.MaintenanceFreq
		}
		if req.NextMaintenanceAt != nil {
			bin.NextMaintenanceAt = req.NextMaintenanceAt
		}

		updated, err := s.UpdateBin(r.Context(), bin)
		if err != nil {
			http.Error(w, "Failed to update bin", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(updated.ToBinResponse())
	}
}

func DeleteBin(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := s.DeleteBin(r.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to delete bin", http.StatusInternalServerError)
			return
		}

		log.Printf("🗑️ Deleted bin %s", id)
		w.WriteHeader(http.StatusNoContent)
	}
}

// RotateBinAPIKey issues a new device credential, invalidating the old one.
func RotateBinAPIKey(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		bin, err := s.GetBin(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}

		bin.APIKey = uuid.New().String()
		if _, err := s.UpdateBinAPIKey(r.Context(), bin.ID, bin.APIKey); err != nil {
			http.Error(w, "Failed to rotate API key", http.StatusInternalServerError)
			return
		}

		log.Printf("🔑 Rotated API key for bin %s", bin.BinCode)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"api_key": bin.APIKey})
	}
}
