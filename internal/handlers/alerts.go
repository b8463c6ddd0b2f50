package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"smartbin-backend/internal/middleware"
	"smartbin-backend/internal/models"
	"smartbin-backend/internal/store"

	"github.com/go-chi/chi/v5"
)

func GetAlerts(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := store.AlertFilter{
			BinID:    r.URL.Query().Get("bin_id"),
			Severity: models.AlertSeverity(r.URL.Query().Get("severity")),
		}
		if v := r.URL.Query().Get("type"); v != "" {
			if !models.ValidAlertType(models.AlertType(v)) {
				http.Error(w, "Invalid alert type", http.StatusBadRequest)
				return
			}
			filter.Type = models.AlertType(v)
		}
		if r.URL.Query().Get("unresolved") == "true" {
			filter.Unresolved = true
		}
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				filter.Limit = n
			}
		}

		alerts, err := s.ListAlerts(r.Context(), filter)
		if err != nil {
			http.Error(w, "Failed to fetch alerts", http.StatusInternalServerError)
			return
		}

		responses := make([]models.AlertResponse, len(alerts))
		for i, alert := range alerts {
			responses[i] = alert.ToAlertResponse()
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(responses)
	}
}

func GetAlert(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		alert, err := s.GetAlert(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(alert.ToAlertResponse())
	}
}

// ResolveAlert closes an alert with the resolving admin recorded.
// Resolving an already resolved alert keeps the original resolution.
func ResolveAlert(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		id := chi.URLParam(r, "id")

		alert, err := s.GetAlert(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}

		if alert.IsResolved {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(alert.ToAlertResponse())
			return
		}

		var req models.ResolveAlertRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		now := time.Now().Unix()
		alert.IsResolved = true
		alert.ResolvedAt = &now
		alert.ResolvedBy = &claims.UserID
		if req.ResolutionNotes != "" {
			alert.ResolutionNotes = &req.ResolutionNotes
		}
		if req.ActionTaken != "" {
			alert.ActionTaken = &req.ActionTaken
		}

		updated, err := s.UpdateAlert(r.Context(), alert)
		if err != nil {
			http.Error(w, "Failed to resolve alert", http.StatusInternalServerError)
			return
		}

		log.Printf("✅ Alert %s (%s) resolved by %s", updated.ID, updated.AlertType, claims.Email)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(updated.ToAlertResponse())
	}
}
