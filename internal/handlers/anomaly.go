package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"smartbin-backend/internal/middleware"
	"smartbin-backend/internal/services"
)

// RunAnomalySweep triggers a detector pass on demand, outside the
// background schedule.
func RunAnomalySweep(anomaly *services.AnomalyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetUserFromContext(r)
		log.Printf("[ANOMALY] Manual sweep requested by %s", claims.Email)

		result := anomaly.RunAllChecks(r.Context())

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}
