package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"smartbin-backend/internal/middleware"
	"smartbin-backend/internal/models"
	"smartbin-backend/internal/services"
	"smartbin-backend/internal/store"

	"github.com/go-chi/chi/v5"
)

func CreateCommand(commands *services.CommandService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var req models.CreateCommandRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.BinCode == "" {
			http.Error(w, "bin_code is required", http.StatusBadRequest)
			return
		}

		created, err := commands.Create(r.Context(), req, claims.UserID)
		if err != nil {
			if errors.Is(err, services.ErrInvalidCommandType) {
				http.Error(w, "Invalid command type", http.StatusBadRequest)
				return
			}
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "Bin not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to create command", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(created.ToCommandResponse())
	}
}

func GetCommands(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := store.CommandFilter{
			BinID:  r.URL.Query().Get("bin_id"),
			Status: models.CommandStatus(r.URL.Query().Get("status")),
		}
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				filter.Limit = n
			}
		}
		if v := r.URL.Query().Get("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				filter.Offset = n
			}
		}

		commands, total, err := s.ListCommands(r.Context(), filter)
		if err != nil {
			http.Error(w, "Failed to fetch commands", http.StatusInternalServerError)
			return
		}

		responses := make([]models.CommandResponse, len(commands))
		for i, cmd := range commands {
			responses[i] = cmd.ToCommandResponse()
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"commands": responses,
			"total":    total,
		})
	}
}

func GetCommand(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		cmd, err := s.GetCommand(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(cmd.ToCommandResponse())
	}
}

// DeleteCommand removes a command that has not reached the device yet.
func DeleteCommand(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		cmd, err := s.GetCommand(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}

		if cmd.Status != models.CommandPending {
			http.Error(w, "Only pending commands can be deleted", http.StatusConflict)
			return
		}

		if err := s.DeleteCommand(r.Context(), id); err != nil {
			http.Error(w, "Failed to delete command", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
