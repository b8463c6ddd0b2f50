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

func SubmitFeedback(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.SubmitFeedbackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		if req.Subject == "" || req.Message == "" {
			http.Error(w, "subject and message are required", http.StatusBadRequest)
			return
		}
		if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
			http.Error(w, "rating must be between 1 and 5", http.StatusBadRequest)
			return
		}
		category := req.Category
		if category == "" {
			category = models.FeedbackGeneral
		}
		if !models.ValidFeedbackCategory(category) {
			http.Error(w, "Invalid category", http.StatusBadRequest)
			return
		}

		feedback := models.Feedback{
			UserID:   req.UserID,
			Email:    req.Email,
			Subject:  req.Subject,
			Message:  req.Message,
			Rating:   req.Rating,
			Category: category,
			Status:   models.FeedbackNew,
		}

		created, err := s.CreateFeedback(r.Context(), feedback)
		if err != nil {
			http.Error(w, "Failed to submit feedback", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(created.ToFeedbackResponse())
	}
}

func GetFeedback(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := models.FeedbackStatus(r.URL.Query().Get("status"))
		category := models.FeedbackCategory(r.URL.Query().Get("category"))
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				limit = n
			}
		}

		items, err := s.ListFeedback(r.Context(), status, category, limit)
		if err != nil {
			http.Error(w, "Failed to fetch feedback", http.StatusInternalServerError)
			return
		}

		responses := make([]models.FeedbackResponse, len(items))
		for i, f := range items {
			responses[i] = f.ToFeedbackResponse()
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(responses)
	}
}

func ReviewFeedback(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		id := chi.URLParam(r, "id")

		var req models.ReviewFeedbackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.Status != models.FeedbackReviewed && req.Status != models.FeedbackResolved {
			http.Error(w, "status must be reviewed or resolved", http.StatusBadRequest)
			return
		}

		feedback, err := s.GetFeedback(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}

		feedback.Status = req.Status
		feedback.ReviewedBy = &claims.UserID
		if req.ReviewNotes != "" {
			feedback.ReviewNotes = &req.ReviewNotes
		}

		updated, err := s.UpdateFeedback(r.Context(), feedback)
		if err != nil {
			http.Error(w, "Failed to update feedback", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(updated.ToFeedbackResponse())
	}
}

func DeleteFeedback(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := s.DeleteFeedback(r.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to delete feedback", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func GetFeedbackStats(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := s.FeedbackStats(r.Context())
		if err != nil {
			http.Error(w, "Failed to compute stats", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats)
	}
}
