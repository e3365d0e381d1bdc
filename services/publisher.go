package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"taskboard/tasks-service/logging"
	"taskboard/tasks-service/models"
)

// Publisher mirrors mutations to the external collaborators: the unbounded
// audit sink and the notifications service. Both are fire-and-forget;
// delivery failures are logged, never surfaced to the caller, and each
// target sits behind its own circuit breaker so a dead collaborator cannot
// slow mutations down.
type Publisher struct {
	client           *http.Client
	auditSinkURL     string
	notificationsURL string
	auditBreaker     *gobreaker.CircuitBreaker
	notifyBreaker    *gobreaker.CircuitBreaker
}

// NewPublisher wires the outbound targets. An empty URL disables that
// target entirely.
func NewPublisher(auditSinkURL, notificationsURL string, auditBreaker, notifyBreaker *gobreaker.CircuitBreaker) *Publisher {
	return &Publisher{
		client:           &http.Client{Timeout: 5 * time.Second},
		auditSinkURL:     auditSinkURL,
		notificationsURL: notificationsURL,
		auditBreaker:     auditBreaker,
		notifyBreaker:    notifyBreaker,
	}
}

type auditEvent struct {
	TeamID string              `json:"teamId"`
	TaskID string              `json:"taskId"`
	Entry  models.HistoryEntry `json:"entry"`
}

type boardEvent struct {
	TeamID string `json:"teamId"`
	TaskID string `json:"taskId"`
	Action string `json:"action"`
}

// PublishAudit mirrors one history entry to the audit sink. The embedded
// task history is capped, so this mirror is the only path to full
// retention.
func (p *Publisher) PublishAudit(ctx context.Context, teamID, taskID string, entry models.HistoryEntry) {
	if p == nil || p.auditSinkURL == "" {
		return
	}
	event := auditEvent{TeamID: teamID, TaskID: taskID, Entry: entry}
	if err := p.post(ctx, p.auditBreaker, p.auditSinkURL, event); err != nil {
		logging.Logger.Warnf("Event ID: AUDIT_PUBLISH_FAILED, Description: Failed to mirror audit entry for task %s: %v", taskID, err)
	}
}

// PublishBoardChange notifies the fan-out service that a board changed.
func (p *Publisher) PublishBoardChange(ctx context.Context, teamID, taskID, action string) {
	if p == nil || p.notificationsURL == "" {
		return
	}
	event := boardEvent{TeamID: teamID, TaskID: taskID, Action: action}
	if err := p.post(ctx, p.notifyBreaker, p.notificationsURL, event); err != nil {
		logging.Logger.Warnf("Event ID: NOTIFY_PUBLISH_FAILED, Description: Failed to publish board change for task %s: %v", taskID, err)
	}
}

func (p *Publisher) post(ctx context.Context, breaker *gobreaker.CircuitBreaker, url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode event: %v", err)
	}

	_, err = breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
		}
		return nil, nil
	})
	return err
}
