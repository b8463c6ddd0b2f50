package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"smartbin-backend/internal/config"
	"smartbin-backend/internal/middleware"
	"smartbin-backend/internal/models"
	"smartbin-backend/internal/services"
	"smartbin-backend/internal/store"

	"github.com/go-chi/chi/v5"
)

func newIoTServer(t *testing.T) (*chi.Mux, *store.Memory, *services.AnomalyService) {
	t.Helper()
	mem := store.NewMemory()
	anomaly := services.NewAnomalyService(mem, config.AnomalyConfig{
		OverfillThreshold: 90,
		LowConfidence:     60,
	}, nil, nil)
	commands := services.NewCommandService(mem, config.CommandConfig{MaxRetries: 3, PendingBatchSize: 10})

	r := chi.NewRouter()
	r.Route("/api/iot", func(r chi.Router) {
		r.Use(middleware.DeviceAuth(mem))
		r.Post("/update", IoTUpdate(mem, anomaly, nil))
		r.Get("/commands", IoTGetCommands(commands))
		r.Post("/commands/{commandId}/ack", IoTAckCommand(mem, commands))
	})
	return r, mem, anomaly
}

func seedDeviceBin(t *testing.T, mem *store.Memory, code, apiKey string, active bool) models.Bin {
	t.Helper()
	bin, err := mem.CreateBin(context.Background(), models.Bin{
		BinCode:  code,
		Category: models.CategoryMetal,
		Address:  "Test Street",
		Status:   models.BinStatusActive,
		APIKey:   apiKey,
		IsActive: active,
	})
	if err != nil {
		t.Fatalf("CreateBin: %v", err)
	}
	return bin
}

func deviceRequest(method, path, apiKey string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	return req
}

func TestDeviceAuthRejections(t *testing.T) {
	r, mem, _ := newIoTServer(t)
	seedDeviceBin(t, mem, "BIN-001", "key-1", true)
	seedDeviceBin(t, mem, "BIN-002", "key-dead", false)

	fill := 50
	cases := []struct {
		name   string
		apiKey string
		want   int
	}{
		{"missing key", "", http.StatusUnauthorized},
		{"unknown key", "nope", http.StatusUnauthorized},
		{"deactivated bin", "key-dead", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, deviceRequest("POST", "/api/iot/update", tc.apiKey, DeviceUpdateRequest{FillLevel: &fill}))
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestIoTUpdateValidatesFillLevel(t *testing.T) {
	r, mem, _ := newIoTServer(t)
	seedDeviceBin(t, mem, "BIN-001", "key-1", true)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, deviceRequest("POST", "/api/iot/update", "key-1", map[string]any{"sensor_status": "OK"}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing fill_level: status = %d, want 400", w.Code)
	}

	for _, fill := range []int{-1, 101} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, deviceRequest("POST", "/api/iot/update", "key-1", DeviceUpdateRequest{FillLevel: &fill}))
		if w.Code != http.StatusBadRequest {
			t.Errorf("fill %d: status = %d, want 400", fill, w.Code)
		}
	}
}

func TestIoTUpdateStatusTransitions(t *testing.T) {
	r, mem, _ := newIoTServer(t)
	bin := seedDeviceBin(t, mem, "BIN-001", "key-1", true)
	ctx := context.Background()

	send := func(fill int, sensor string) models.BinStatus {
		t.Helper()
		w := httptest.NewRecorder()
		r.ServeHTTP(w, deviceRequest("POST", "/api/iot/update", "key-1", DeviceUpdateRequest{
			FillLevel: &fill, SensorStatus: sensor,
		}))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		got, err := mem.GetBin(ctx, bin.ID)
		if err != nil {
			t.Fatalf("GetBin: %v", err)
		}
		return got.Status
	}

	if s := send(95, "OK"); s != models.BinStatusFull {
		t.Errorf("high fill: status = %q, want full", s)
	}
	if s := send(20, "OK"); s != models.BinStatusActive {
		t.Errorf("emptied: status = %q, want active", s)
	}
	if s := send(20, "SENSOR_FAULT"); s != models.BinStatusOffline {
		t.Errorf("fault: status = %q, want offline", s)
	}
	// An unhealthy bin stays offline even when nearly full.
	if s := send(95, "SENSOR_FAULT"); s != models.BinStatusOffline {
		t.Errorf("fault while full: status = %q, want offline", s)
	}
	if s := send(20, "OK"); s != models.BinStatusActive {
		t.Errorf("recovery: status = %q, want active", s)
	}
}

func TestIoTUpdateRecordsImageAndRaisesOverfill(t *testing.T) {
	r, mem, _ := newIoTServer(t)
	bin := seedDeviceBin(t, mem, "BIN-001", "key-1", true)
	ctx := context.Background()

	fill := 95
	url := "https://img.example/capture.jpg"
	cat := models.CategoryMetal
	conf := 42
	w := httptest.NewRecorder()
	r.ServeHTTP(w, deviceRequest("POST", "/api/iot/update", "key-1", DeviceUpdateRequest{
		FillLevel:         &fill,
		SensorStatus:      "OK",
		ImageURL:          &url,
		PredictedCategory: &cat,
		Confidence:        &conf,
	}))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	images, err := mem.ListBinImages(ctx, bin.ID, 10)
	if err != nil {
		t.Fatalf("ListBinImages: %v", err)
	}
	if len(images) != 1 {
		t.Fatalf("images = %d, want 1", len(images))
	}
	if images[0].Confidence == nil || *images[0].Confidence != 42 {
		t.Errorf("confidence = %v, want 42", images[0].Confidence)
	}

	// The inline check surfaces the overfill without waiting for a sweep.
	if _, err := mem.FindOpenAlert(ctx, bin.ID, models.AlertOverfilled); err != nil {
		t.Errorf("expected open overfill alert: %v", err)
	}
}

func TestIoTCommandPollAndAck(t *testing.T) {
	r, mem, _ := newIoTServer(t)
	bin := seedDeviceBin(t, mem, "BIN-001", "key-1", true)
	other := seedDeviceBin(t, mem, "BIN-002", "key-2", true)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		cmd, err := mem.CreateCommand(ctx, models.Command{
			BinID:       bin.ID,
			CommandType: models.CommandEmpty,
			Status:      models.CommandPending,
			IssuedBy:    "admin-1",
			Description: fmt.Sprintf("job %d", i),
			MaxRetries:  3,
		})
		if err != nil {
			t.Fatalf("CreateCommand: %v", err)
		}
		ids = append(ids, cmd.ID)
	}
	foreign, err := mem.CreateCommand(ctx, models.Command{
		BinID: other.ID, CommandType: models.CommandRestart,
		Status: models.CommandPending, IssuedBy: "admin-1", MaxRetries: 3,
	})
	if err != nil {
		t.Fatalf("CreateCommand: %v", err)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, deviceRequest("GET", "/api/iot/commands", "key-1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("poll status = %d", w.Code)
	}
	var poll struct {
		Commands []models.DeviceCommand `json:"commands"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &poll); err != nil {
		t.Fatalf("decode poll: %v", err)
	}
	if len(poll.Commands) != 3 {
		t.Fatalf("poll returned %d commands, want 3", len(poll.Commands))
	}
	if poll.Commands[0].ID != ids[0] {
		t.Errorf("first command = %q, want oldest %q", poll.Commands[0].ID, ids[0])
	}

	// Devices cannot acknowledge another bin's command.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, deviceRequest("POST", "/api/iot/commands/"+foreign.ID+"/ack", "key-1", AckCommandRequest{Success: true}))
	if w.Code != http.StatusNotFound {
		t.Errorf("foreign ack status = %d, want 404", w.Code)
	}

	// Failure ack keeps the command pending until the budget runs out.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, deviceRequest("POST", "/api/iot/commands/"+ids[0]+"/ack", "key-1", AckCommandRequest{Success: false, ErrorMessage: "motor stall"}))
	if w.Code != http.StatusOK {
		t.Fatalf("failure ack status = %d", w.Code)
	}
	cmd, err := mem.GetCommand(ctx, ids[0])
	if err != nil {
		t.Fatalf("GetCommand: %v", err)
	}
	if cmd.Status != models.CommandPending || cmd.RetryCount != 1 {
		t.Errorf("after failure: status = %q retries = %d", cmd.Status, cmd.RetryCount)
	}

	// Success ack marks it executed and removes it from the poll.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, deviceRequest("POST", "/api/iot/commands/"+ids[0]+"/ack", "key-1", AckCommandRequest{Success: true}))
	if w.Code != http.StatusOK {
		t.Fatalf("success ack status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, deviceRequest("GET", "/api/iot/commands", "key-1", nil))
	if err := json.Unmarshal(w.Body.Bytes(), &poll); err != nil {
		t.Fatalf("decode poll: %v", err)
	}
	if len(poll.Commands) != 2 {
		t.Errorf("poll after ack = %d commands, want 2", len(poll.Commands))
	}

	// Reporting failure on an executed command conflicts.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, deviceRequest("POST", "/api/iot/commands/"+ids[0]+"/ack", "key-1", AckCommandRequest{Success: false}))
	if w.Code != http.StatusConflict {
		t.Errorf("failure on executed: status = %d, want 409", w.Code)
	}
}

func TestIoTAckRecordsDeviceTimestamp(t *testing.T) {
	r, mem, _ := newIoTServer(t)
	bin := seedDeviceBin(t, mem, "BIN-001", "key-1", true)
	ctx := context.Background()

	cmd, err := mem.CreateCommand(ctx, models.Command{
		BinID: bin.ID, CommandType: models.CommandEmpty,
		Status: models.CommandPending, IssuedBy: "admin-1", MaxRetries: 3,
	})
	if err != nil {
		t.Fatalf("CreateCommand: %v", err)
	}

	reported := int64(1700000000)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, deviceRequest("POST", "/api/iot/commands/"+cmd.ID+"/ack", "key-1", AckCommandRequest{
		Success:    true,
		ExecutedAt: &reported,
	}))
	if w.Code != http.StatusOK {
		t.Fatalf("ack status = %d, body %s", w.Code, w.Body.String())
	}

	got, err := mem.GetCommand(ctx, cmd.ID)
	if err != nil {
		t.Fatalf("GetCommand: %v", err)
	}
	if got.Status != models.CommandExecuted {
		t.Errorf("status = %q, want executed", got.Status)
	}
	if got.ExecutedAt == nil || *got.ExecutedAt != reported {
		t.Errorf("executed_at = %v, want device-reported %d", got.ExecutedAt, reported)
	}
}
