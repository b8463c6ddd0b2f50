package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"smartbin-backend/internal/middleware"
	"smartbin-backend/internal/models"
	"smartbin-backend/internal/store"

	"github.com/go-chi/chi/v5"
)

func GetBinImages(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		binID := chi.URLParam(r, "id")

		if _, err := s.GetBin(r.Context(), binID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}

		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				limit = n
			}
		}

		images, err := s.ListBinImages(r.Context(), binID, limit)
		if err != nil {
			http.Error(w, "Failed to fetch images", http.StatusInternalServerError)
			return
		}

		responses := make([]models.ImageRecordResponse, len(images))
		for i, rec := range images {
			responses[i] = rec.ToImageRecordResponse()
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(responses)
	}
}

// VerifyImage records a human ruling on a classified image. Verified
// images no longer feed the low-confidence anomaly check.
func VerifyImage(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		id := chi.URLParam(r, "id")

		var req models.VerifyImageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if !models.ValidCategory(req.ActualCategory) {
			http.Error(w, "Invalid category", http.StatusBadRequest)
			return
		}

		rec, err := s.GetImageRecord(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}

		rec.ActualCategory = &req.ActualCategory
		rec.IsVerified = true
		rec.VerifiedBy = &claims.UserID
		if req.VerificationNotes != "" {
			rec.VerificationNotes = &req.VerificationNotes
		}

		updated, err := s.UpdateImageRecord(r.Context(), rec)
		if err != nil {
			http.Error(w, "Failed to verify image", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(updated.ToImageRecordResponse())
	}
}

func DeleteImage(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := s.DeleteImageRecord(r.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to delete image", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
