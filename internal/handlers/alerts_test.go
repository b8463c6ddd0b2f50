package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"smartbin-backend/internal/models"
	"smartbin-backend/internal/store"
)

func TestGetAlertsFiltersByType(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	bin, err := mem.CreateBin(ctx, models.Bin{
		BinCode: "BIN-001", Category: models.CategoryMetal,
		Status: models.BinStatusActive, IsActive: true,
	})
	if err != nil {
		t.Fatalf("CreateBin: %v", err)
	}
	for _, alertType := range []models.AlertType{models.AlertOverfilled, models.AlertSensorOffline, models.AlertAnomaly} {
		if _, err := mem.CreateAlert(ctx, models.Alert{
			BinID: bin.ID, AlertType: alertType,
			Severity: models.SeverityHigh, Message: "test alert",
		}); err != nil {
			t.Fatalf("CreateAlert: %v", err)
		}
	}

	handler := GetAlerts(mem)

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest("GET", "/api/alerts?type=overfilled", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var alerts []models.AlertResponse
	if err := json.Unmarshal(w.Body.Bytes(), &alerts); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("len = %d, want 1", len(alerts))
	}
	if alerts[0].AlertType != models.AlertOverfilled {
		t.Errorf("type = %q, want overfilled", alerts[0].AlertType)
	}

	// Unknown types fail fast instead of silently matching nothing.
	w = httptest.NewRecorder()
	handler(w, httptest.NewRequest("GET", "/api/alerts?type=volcano", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid type: status = %d, want 400", w.Code)
	}

	// No filter returns everything.
	w = httptest.NewRecorder()
	handler(w, httptest.NewRequest("GET", "/api/alerts", nil))
	if err := json.Unmarshal(w.Body.Bytes(), &alerts); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(alerts) != 3 {
		t.Errorf("unfiltered len = %d, want 3", len(alerts))
	}
}
