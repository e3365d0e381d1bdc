package services

import (
	"time"

	"taskboard/tasks-service/models"
)

// UpdateResult is the outcome of running a patch through the lifecycle
// rules: the full next snapshot and the single history entry describing it.
type UpdateResult struct {
	Next    models.Task
	Entry   models.HistoryEntry
	Changed bool
}

// ApplyUpdate computes the next task snapshot for a validated patch.
// Fields present in the patch but equal to the current value are ignored;
// every field that actually changes lands in one history entry. The patch
// is applied whole or not at all.
//
// Side effect: the first transition into done stamps CompletedAt. It is
// never cleared again, so a reopened task keeps its first completion time.
func ApplyUpdate(current models.Task, patch models.TaskPatch, userID string) UpdateResult {
	next := current
	var changes []models.FieldChange

	record := func(field string, oldValue, newValue interface{}) {
		changes = append(changes, models.FieldChange{Field: field, OldValue: oldValue, NewValue: newValue})
	}

	if patch.Title != nil && *patch.Title != current.Title {
		record("title", current.Title, *patch.Title)
		next.Title = *patch.Title
	}
	if patch.Description != nil && *patch.Description != current.Description {
		record("description", current.Description, *patch.Description)
		next.Description = *patch.Description
	}
	if patch.Status != nil && *patch.Status != current.Status {
		record("status", string(current.Status), string(*patch.Status))
		next.Status = *patch.Status
		if *patch.Status == models.StatusDone && current.CompletedAt == nil {
			now := time.Now().UTC()
			next.CompletedAt = &now
		}
	}
	if patch.Priority != nil && *patch.Priority != current.Priority {
		record("priority", current.Priority, *patch.Priority)
		next.Priority = *patch.Priority
	}
	if patch.ProjectID != nil && *patch.ProjectID != current.ProjectID {
		record("project_id", current.ProjectID, *patch.ProjectID)
		next.ProjectID = *patch.ProjectID
	}
	if patch.AssigneeID != nil && *patch.AssigneeID != current.AssigneeID {
		record("assignee_id", current.AssigneeID, *patch.AssigneeID)
		next.AssigneeID = *patch.AssigneeID
	}
	if patch.Labels != nil && !equalStrings(*patch.Labels, current.Labels) {
		record("labels", current.Labels, *patch.Labels)
		next.Labels = *patch.Labels
	}
	if patch.Tags != nil && !equalStrings(*patch.Tags, current.Tags) {
		record("tags", current.Tags, *patch.Tags)
		next.Tags = *patch.Tags
	}
	if patch.DueDate != nil && !equalTime(patch.DueDate, current.DueDate) {
		record("due_date", current.DueDate, *patch.DueDate)
		next.DueDate = patch.DueDate
	}
	if patch.StartDate != nil && !equalTime(patch.StartDate, current.StartDate) {
		record("start_date", current.StartDate, *patch.StartDate)
		next.StartDate = patch.StartDate
	}
	if patch.EstimatedHours != nil && !equalFloat(patch.EstimatedHours, current.EstimatedHours) {
		record("estimated_hours", current.EstimatedHours, *patch.EstimatedHours)
		next.EstimatedHours = patch.EstimatedHours
	}
	if patch.Position != nil && *patch.Position != current.Position {
		record("position", current.Position, *patch.Position)
		next.Position = *patch.Position
	}

	if len(changes) == 0 {
		return UpdateResult{Next: current, Changed: false}
	}

	next.UpdatedAt = time.Now().UTC()
	entry := models.NewHistoryEntry(classifyAction(changes), userID, changes)
	next.History = models.AppendHistory(next.History, entry)

	return UpdateResult{Next: next, Entry: entry, Changed: true}
}

// actionRules is the precedence order for labeling a multi-field mutation.
// One label per mutation; the first rule whose field appears in the delta
// wins, the rest fall through to "updated".
var actionRules = []struct {
	field  string
	action models.HistoryAction
}{
	{"status", models.ActionStatusChanged},
	{"assignee_id", models.ActionAssigned},
}

func classifyAction(changes []models.FieldChange) models.HistoryAction {
	for _, rule := range actionRules {
		for _, c := range changes {
			if c.Field == rule.field {
				return rule.action
			}
		}
	}
	return models.ActionUpdated
}

// CreationEntry synthesizes the degenerate creation delta.
func CreationEntry(userID string, status models.TaskStatus) models.HistoryEntry {
	return models.NewHistoryEntry(models.ActionCreated, userID, []models.FieldChange{
		{Field: "status", OldValue: nil, NewValue: string(status)},
	})
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func equalFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
