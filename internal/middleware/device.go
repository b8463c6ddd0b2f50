package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"

	"smartbin-backend/internal/models"
	"smartbin-backend/internal/store"
)

const BinContextKey contextKey = "bin"

// DeviceAuth authenticates IoT devices by their X-API-Key header and
// puts the matching bin on the request context.
func DeviceAuth(s store.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				http.Error(w, "Missing API key", http.StatusUnauthorized)
				return
			}

			bin, err := s.GetBinByAPIKey(r.Context(), apiKey)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					http.Error(w, "Invalid API key", http.StatusUnauthorized)
					return
				}
				log.Printf("❌ Device auth lookup failed: %v", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			if !bin.IsActive {
				http.Error(w, "Bin is deactivated", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), BinContextKey, bin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetBinFromContext extracts the authenticated bin from request context
func GetBinFromContext(r *http.Request) (models.Bin, bool) {
	bin, ok := r.Context().Value(BinContextKey).(models.Bin)
	return bin, ok
}
