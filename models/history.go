package models

import "time"

// HistoryCap bounds the embedded audit trail per task. Older entries are
// evicted FIFO; callers that need full retention mirror writes to an
// external audit sink.
const HistoryCap = 100

type HistoryAction string

const (
	ActionCreated       HistoryAction = "created"
	ActionUpdated       HistoryAction = "updated"
	ActionStatusChanged HistoryAction = "status_changed"
	ActionAssigned      HistoryAction = "assigned"
	ActionDeleted       HistoryAction = "deleted"
	ActionRestored      HistoryAction = "restored"
)

// FieldChange records one field-level delta inside a history entry.
type FieldChange struct {
	Field    string      `json:"field" bson:"field"`
	OldValue interface{} `json:"oldValue" bson:"old_value"`
	NewValue interface{} `json:"newValue" bson:"new_value"`
}

// HistoryEntry is one immutable audit record: who did what, when, and the
// full set of fields that mutation touched.
type HistoryEntry struct {
	Action    HistoryAction `json:"action" bson:"action"`
	UserID    string        `json:"userId" bson:"user_id"`
	Timestamp time.Time     `json:"timestamp" bson:"timestamp"`
	Changes   []FieldChange `json:"changes" bson:"changes"`
}

// NewHistoryEntry stamps the entry with the recorder's clock. The timestamp
// is never caller-supplied, so skewed or spoofed client clocks cannot
// reorder the trail.
func NewHistoryEntry(action HistoryAction, userID string, changes []FieldChange) HistoryEntry {
	return HistoryEntry{
		Action:    action,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Changes:   changes,
	}
}

// AppendHistory appends entry and enforces the cap, dropping the oldest
// entries first. Existing entries are never mutated or reordered.
func AppendHistory(history []HistoryEntry, entry HistoryEntry) []HistoryEntry {
	history = append(history, entry)
	if len(history) > HistoryCap {
		history = history[len(history)-HistoryCap:]
	}
	return history
}
