package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"smartbin-backend/internal/models"
	"smartbin-backend/internal/store"

	"github.com/go-chi/chi/v5"
)

func newMaintenanceRouter(mem *store.Memory) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/api/maintenance", GetMaintenanceLogs(mem))
	r.Post("/api/maintenance", CreateMaintenanceLog(mem))
	r.Patch("/api/maintenance/{id}", UpdateMaintenanceLog(mem))
	r.Delete("/api/maintenance/{id}", DeleteMaintenanceLog(mem))
	return r
}

func TestNextMaintenanceDate(t *testing.T) {
	from := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		freq string
		want time.Time
	}{
		{"weekly", from.AddDate(0, 0, 7)},
		{"biweekly", from.AddDate(0, 0, 14)},
		{"monthly", from.AddDate(0, 1, 0)},
		{"quarterly", from.AddDate(0, 3, 0)},
		{"", from.AddDate(0, 1, 0)},
	}
	for _, tc := range cases {
		if got := nextMaintenanceDate(tc.freq, from); got != tc.want.Unix() {
			t.Errorf("%q: got %d, want %d", tc.freq, got, tc.want.Unix())
		}
	}
}

func TestCreateMaintenanceLogValidation(t *testing.T) {
	mem := store.NewMemory()
	r := newMaintenanceRouter(mem)
	if _, err := mem.CreateBin(context.Background(), models.Bin{
		BinCode: "BIN-001", Category: models.CategoryMetal, Address: "X",
		Status: models.BinStatusActive, IsActive: true,
	}); err != nil {
		t.Fatalf("CreateBin: %v", err)
	}

	send := func(req models.CreateMaintenanceRequest) int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("POST", "/api/maintenance", jsonBody(t, req)))
		return w.Code
	}

	if code := send(models.CreateMaintenanceRequest{
		BinCode: "BIN-001", MaintenanceType: models.MaintenanceCleaning,
	}); code != http.StatusBadRequest {
		t.Errorf("missing description: status = %d, want 400", code)
	}
	if code := send(models.CreateMaintenanceRequest{
		BinCode: "BIN-001", MaintenanceType: "polish", Description: "x",
	}); code != http.StatusBadRequest {
		t.Errorf("bad type: status = %d, want 400", code)
	}
	if code := send(models.CreateMaintenanceRequest{
		BinCode: "BIN-999", MaintenanceType: models.MaintenanceRepair, Description: "x",
	}); code != http.StatusNotFound {
		t.Errorf("unknown bin: status = %d, want 404", code)
	}
	wid := "no-such-worker"
	if code := send(models.CreateMaintenanceRequest{
		BinCode: "BIN-001", MaintenanceType: models.MaintenanceRepair, Description: "x", WorkerID: &wid,
	}); code != http.StatusBadRequest {
		t.Errorf("unknown worker: status = %d, want 400", code)
	}

	if code := send(models.CreateMaintenanceRequest{
		BinCode: "BIN-001", MaintenanceType: models.MaintenanceRepair, Description: "replace lid",
	}); code != http.StatusCreated {
		t.Errorf("valid request: status = %d, want 201", code)
	}
}

func TestCompletingMaintenanceAdvancesSchedule(t *testing.T) {
	mem := store.NewMemory()
	r := newMaintenanceRouter(mem)
	ctx := context.Background()

	bin, err := mem.CreateBin(ctx, models.Bin{
		BinCode: "BIN-001", Category: models.CategoryMetal, Address: "X",
		Status: models.BinStatusMaintenance, MaintenanceFreq: "weekly", IsActive: true,
	})
	if err != nil {
		t.Fatalf("CreateBin: %v", err)
	}
	entry, err := mem.CreateMaintenanceLog(ctx, models.MaintenanceLog{
		BinID: bin.ID, Status: models.MaintenancePending,
		MaintenanceType: models.MaintenanceCleaning, Description: "wash",
		StartDate: time.Now().Unix(),
	})
	if err != nil {
		t.Fatalf("CreateMaintenanceLog: %v", err)
	}

	done := models.MaintenanceCompleted
	cost := 120.50
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("PATCH", "/api/maintenance/"+entry.ID, jsonBody(t, models.UpdateMaintenanceRequest{
		Status: &done, Cost: &cost,
	})))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp models.MaintenanceLogResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != models.MaintenanceCompleted || resp.CompletionDateIso == nil {
		t.Errorf("completion not stamped: %+v", resp)
	}
	if resp.Cost != 120.50 {
		t.Errorf("cost = %v, want 120.50", resp.Cost)
	}

	got, err := mem.GetBin(ctx, bin.ID)
	if err != nil {
		t.Fatalf("GetBin: %v", err)
	}
	if got.Status != models.BinStatusActive {
		t.Errorf("bin status = %q, want active after maintenance", got.Status)
	}
	if got.LastMaintenanceAt == nil || got.NextMaintenanceAt == nil {
		t.Fatal("maintenance schedule not advanced")
	}
	wantNext := time.Unix(*got.LastMaintenanceAt, 0).AddDate(0, 0, 7).Unix()
	if *got.NextMaintenanceAt != wantNext {
		t.Errorf("next maintenance = %d, want %d (one week out)", *got.NextMaintenanceAt, wantNext)
	}

	// Closed jobs cannot be reopened.
	reopen := models.MaintenanceInProgress
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("PATCH", "/api/maintenance/"+entry.ID, jsonBody(t, models.UpdateMaintenanceRequest{
		Status: &reopen,
	})))
	if w.Code != http.StatusConflict {
		t.Errorf("reopen status = %d, want 409", w.Code)
	}
}

func TestMaintenanceListFilters(t *testing.T) {
	mem := store.NewMemory()
	r := newMaintenanceRouter(mem)
	ctx := context.Background()

	bin, err := mem.CreateBin(ctx, models.Bin{
		BinCode: "BIN-001", Category: models.CategoryMetal, Address: "X",
		Status: models.BinStatusActive, IsActive: true,
	})
	if err != nil {
		t.Fatalf("CreateBin: %v", err)
	}
	for _, status := range []models.MaintenanceStatus{models.MaintenancePending, models.MaintenanceCompleted} {
		if _, err := mem.CreateMaintenanceLog(ctx, models.MaintenanceLog{
			BinID: bin.ID, Status: status,
			MaintenanceType: models.MaintenanceInspection, Description: "check",
			StartDate: time.Now().Unix(),
		}); err != nil {
			t.Fatalf("CreateMaintenanceLog: %v", err)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/maintenance?status=pending", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var logs []models.MaintenanceLogResponse
	if err := json.Unmarshal(w.Body.Bytes(), &logs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(logs) != 1 || logs[0].Status != models.MaintenancePending {
		t.Errorf("filtered logs = %+v", logs)
	}
}
