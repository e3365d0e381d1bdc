package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"taskboard/tasks-service/models"
)

func testBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
	})
}

func TestPublishAuditDeliversEntry(t *testing.T) {
	received := make(chan auditEvent, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var event auditEvent
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		received <- event
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	publisher := NewPublisher(server.URL, "", testBreaker("audit"), testBreaker("notify"))
	entry := models.NewHistoryEntry(models.ActionStatusChanged, "user-1", []models.FieldChange{
		{Field: "status", OldValue: "todo", NewValue: "done"},
	})

	publisher.PublishAudit(context.Background(), "team-1", "task-1", entry)

	select {
	case event := <-received:
		if event.TeamID != "team-1" || event.TaskID != "task-1" {
			t.Errorf("wrong scope: %+v", event)
		}
		if event.Entry.Action != models.ActionStatusChanged {
			t.Errorf("wrong action: %s", event.Entry.Action)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("audit event never delivered")
	}
}

func TestPublisherDisabledTargetsAreSkipped(t *testing.T) {
	publisher := NewPublisher("", "", testBreaker("audit"), testBreaker("notify"))

	// Both no-ops; nothing to assert beyond not panicking.
	publisher.PublishAudit(context.Background(), "team-1", "task-1", models.HistoryEntry{})
	publisher.PublishBoardChange(context.Background(), "team-1", "task-1", "updated")

	var nilPublisher *Publisher
	nilPublisher.PublishAudit(context.Background(), "team-1", "task-1", models.HistoryEntry{})
	nilPublisher.PublishBoardChange(context.Background(), "team-1", "task-1", "updated")
}

func TestPublisherFailuresDoNotPropagate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	publisher := NewPublisher(server.URL, server.URL, testBreaker("audit"), testBreaker("notify"))

	// Failing collaborators are logged and swallowed.
	publisher.PublishAudit(context.Background(), "team-1", "task-1", models.HistoryEntry{})
	publisher.PublishBoardChange(context.Background(), "team-1", "task-1", "updated")
}
