package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"smartbin-backend/internal/models"
)

func newTestClient(id string) *Client {
	return &Client{UserID: id, UserRole: "admin", send: make(chan []byte, 8)}
}

func waitForCount(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if hub.GetClientCount() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("client count = %d, want %d", hub.GetClientCount(), want)
}

func TestHubBroadcastsAlertsToAllClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	a := newTestClient("admin-1")
	b := newTestClient("admin-2")
	hub.register <- a
	hub.register <- b
	waitForCount(t, hub, 2)

	hub.BroadcastAlert(models.Alert{
		ID:        "alert-1",
		BinID:     "bin-1",
		AlertType: models.AlertOverfilled,
		Severity:  models.SeverityHigh,
		Message:   "Bin BIN-001 is 95% full and needs collection",
	})

	for _, c := range []*Client{a, b} {
		select {
		case raw := <-c.send:
			var payload struct {
				Type string               `json:"type"`
				Data models.AlertResponse `json:"data"`
			}
			if err := json.Unmarshal(raw, &payload); err != nil {
				t.Fatalf("decode broadcast: %v", err)
			}
			if payload.Type != "alert_raised" {
				t.Errorf("type = %q, want alert_raised", payload.Type)
			}
			if payload.Data.ID != "alert-1" {
				t.Errorf("alert id = %q, want alert-1", payload.Data.ID)
			}
		case <-time.After(time.Second):
			t.Fatalf("client %s received no broadcast", c.UserID)
		}
	}

	hub.unregister <- a
	waitForCount(t, hub, 1)

	// Departed clients no longer receive broadcasts.
	hub.BroadcastBinUpdate(models.Bin{ID: "bin-1", BinCode: "BIN-001", FillLevel: 20})
	select {
	case raw := <-b.send:
		var payload struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			t.Fatalf("decode broadcast: %v", err)
		}
		if payload.Type != "bin_update" {
			t.Errorf("type = %q, want bin_update", payload.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("remaining client received no broadcast")
	}
}
