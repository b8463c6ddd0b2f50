package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"smartbin-backend/internal/models"
	"smartbin-backend/internal/store"
)

// DashboardSummary aggregates the numbers the admin dashboard shows at a glance.
type DashboardSummary struct {
	TotalBins    int                          `json:"total_bins"`
	BinsByStatus map[models.BinStatus]int     `json:"bins_by_status"`
	OpenAlerts   int                          `json:"open_alerts"`
	AlertsBySev  map[models.AlertSeverity]int `json:"alerts_by_severity"`
	PendingJobs  int                          `json:"pending_commands"`
}

func GetDashboardSummary(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		binsByStatus, err := s.CountBinsByStatus(r.Context())
		if err != nil {
			http.Error(w, "Failed to compute bin stats", http.StatusInternalServerError)
			return
		}

		alertsBySev, err := s.CountOpenAlertsBySeverity(r.Context())
		if err != nil {
			http.Error(w, "Failed to compute alert stats", http.StatusInternalServerError)
			return
		}

		_, pending, err := s.ListCommands(r.Context(), store.CommandFilter{Status: models.CommandPending, Limit: 1})
		if err != nil {
			http.Error(w, "Failed to compute command stats", http.StatusInternalServerError)
			return
		}

		summary := DashboardSummary{
			BinsByStatus: binsByStatus,
			AlertsBySev:  alertsBySev,
			PendingJobs:  pending,
		}
		for _, n := range binsByStatus {
			summary.TotalBins += n
		}
		for _, n := range alertsBySev {
			summary.OpenAlerts += n
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(summary)
	}
}

// GetWasteCount aggregates verified image classifications by category
// over a day, week, or month window.
func GetWasteCount(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		period := r.URL.Query().Get("period")
		var window time.Duration
		switch period {
		case "week":
			window = 7 * 24 * time.Hour
		case "month":
			window = 30 * 24 * time.Hour
		case "", "day":
			period = "day"
			window = 24 * time.Hour
		default:
			http.Error(w, "period must be day, week, or month", http.StatusBadRequest)
			return
		}

		counts, err := s.WasteCountByCategory(r.Context(), time.Now().Add(-window).Unix())
		if err != nil {
			http.Error(w, "Failed to compute waste counts", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"period":     period,
			"categories": counts,
		})
	}
}

// GetWasteTrends returns daily verified image counts over the requested
// number of days, with zero rows filled in for quiet days.
func GetWasteTrends(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := 30
		if v := r.URL.Query().Get("days"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > 365 {
				http.Error(w, "days must be between 1 and 365", http.StatusBadRequest)
				return
			}
			days = n
		}

		start := time.Now().UTC().AddDate(0, 0, -(days - 1)).Truncate(24 * time.Hour)
		counts, err := s.DailyVerifiedCounts(r.Context(), start.Unix())
		if err != nil {
			http.Error(w, "Failed to compute waste trends", http.StatusInternalServerError)
			return
		}

		byDate := make(map[string]store.DailyCount, len(counts))
		for _, c := range counts {
			byDate[c.Date] = c
		}
		points := make([]store.DailyCount, days)
		for i := 0; i < days; i++ {
			date := start.AddDate(0, 0, i).Format("2006-01-02")
			if c, ok := byDate[date]; ok {
				points[i] = c
			} else {
				points[i] = store.DailyCount{Date: date}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"days":   days,
			"points": points,
		})
	}
}

func GetCategoryPerformance(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := s.CategoryStats(r.Context())
		if err != nil {
			http.Error(w, "Failed to compute category stats", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"categories": stats})
	}
}
