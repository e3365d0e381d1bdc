package services

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskboard/tasks-service/models"
)

func baseTask() models.Task {
	created := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	return models.Task{
		ID:        primitive.NewObjectID(),
		TeamID:    "team-1",
		Title:     "Ship the importer",
		Status:    models.StatusTodo,
		Priority:  models.DefaultPriority,
		CreatedBy: "user-1",
		Position:  1000,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func statusPatch(status models.TaskStatus) models.TaskPatch {
	return models.TaskPatch{Status: &status}
}

func TestApplyUpdateRecordsDelta(t *testing.T) {
	current := baseTask()
	title := "Ship the exporter"
	result := ApplyUpdate(current, models.TaskPatch{Title: &title}, "user-2")

	if !result.Changed {
		t.Fatal("expected a change")
	}
	if result.Next.Title != title {
		t.Errorf("title not applied: %s", result.Next.Title)
	}
	if len(result.Entry.Changes) != 1 {
		t.Fatalf("expected 1 change, got %d", len(result.Entry.Changes))
	}
	change := result.Entry.Changes[0]
	if change.Field != "title" || change.OldValue != "Ship the importer" || change.NewValue != title {
		t.Errorf("unexpected change record: %+v", change)
	}
	if result.Entry.Action != models.ActionUpdated {
		t.Errorf("expected action updated, got %s", result.Entry.Action)
	}
	if result.Entry.UserID != "user-2" {
		t.Errorf("expected acting user recorded, got %s", result.Entry.UserID)
	}
	if !result.Next.UpdatedAt.After(current.UpdatedAt) {
		t.Error("updated_at not advanced")
	}
}

func TestApplyUpdateNoOpWhenValuesEqual(t *testing.T) {
	current := baseTask()
	sameTitle := current.Title
	result := ApplyUpdate(current, models.TaskPatch{Title: &sameTitle}, "user-2")

	if result.Changed {
		t.Fatal("expected no change for an equal value")
	}
	if len(result.Next.History) != 0 {
		t.Error("no history entry should be produced")
	}
}

func TestApplyUpdateCompletionIsIdempotent(t *testing.T) {
	current := baseTask()

	first := ApplyUpdate(current, statusPatch(models.StatusDone), "user-1")
	if first.Next.CompletedAt == nil {
		t.Fatal("first transition into done must set completed_at")
	}
	firstCompleted := *first.Next.CompletedAt

	reopened := ApplyUpdate(first.Next, statusPatch(models.StatusBlocked), "user-1")
	if reopened.Next.CompletedAt == nil || !reopened.Next.CompletedAt.Equal(firstCompleted) {
		t.Error("completed_at must survive leaving done")
	}

	again := ApplyUpdate(reopened.Next, statusPatch(models.StatusDone), "user-1")
	if again.Next.CompletedAt == nil || !again.Next.CompletedAt.Equal(firstCompleted) {
		t.Error("second transition into done must not move completed_at")
	}
}

func TestApplyUpdateSingleEntryPerMutation(t *testing.T) {
	current := baseTask()
	status := models.StatusInProgress
	priority := 1
	assignee := "user-9"
	result := ApplyUpdate(current, models.TaskPatch{
		Status:     &status,
		Priority:   &priority,
		AssigneeID: &assignee,
	}, "user-1")

	if len(result.Next.History) != 1 {
		t.Fatalf("expected exactly one history entry, got %d", len(result.Next.History))
	}
	if len(result.Entry.Changes) != 3 {
		t.Fatalf("expected 3 field changes in one entry, got %d", len(result.Entry.Changes))
	}
	if result.Entry.Action != models.ActionStatusChanged {
		t.Errorf("status change must win the action precedence, got %s", result.Entry.Action)
	}
}

func TestApplyUpdateActionPrecedence(t *testing.T) {
	current := baseTask()
	assignee := "user-9"
	priority := 2

	assigned := ApplyUpdate(current, models.TaskPatch{AssigneeID: &assignee, Priority: &priority}, "user-1")
	if assigned.Entry.Action != models.ActionAssigned {
		t.Errorf("assignee change without status must label assigned, got %s", assigned.Entry.Action)
	}

	plain := ApplyUpdate(current, models.TaskPatch{Priority: &priority}, "user-1")
	if plain.Entry.Action != models.ActionUpdated {
		t.Errorf("field-only change must label updated, got %s", plain.Entry.Action)
	}
}

func TestApplyUpdatePositionChange(t *testing.T) {
	current := baseTask()
	position := 1500.5
	result := ApplyUpdate(current, models.TaskPatch{Position: &position}, "user-1")

	if result.Next.Position != position {
		t.Errorf("position not applied: %v", result.Next.Position)
	}
	if result.Entry.Action != models.ActionUpdated {
		t.Errorf("reorder labels as updated, got %s", result.Entry.Action)
	}
	if result.Entry.Changes[0].Field != "position" {
		t.Errorf("expected position delta, got %s", result.Entry.Changes[0].Field)
	}
}

func TestApplyUpdateStatusAwayFromDoneDoesNotComplete(t *testing.T) {
	current := baseTask()
	result := ApplyUpdate(current, statusPatch(models.StatusInProgress), "user-1")
	if result.Next.CompletedAt != nil {
		t.Error("completed_at must only be set on a transition into done")
	}
}

func TestCreationEntryShape(t *testing.T) {
	entry := CreationEntry("user-1", models.StatusTodo)

	if entry.Action != models.ActionCreated {
		t.Errorf("expected created action, got %s", entry.Action)
	}
	if len(entry.Changes) != 1 {
		t.Fatalf("expected a single synthesized change, got %d", len(entry.Changes))
	}
	change := entry.Changes[0]
	if change.Field != "status" || change.OldValue != nil || change.NewValue != "todo" {
		t.Errorf("unexpected creation delta: %+v", change)
	}
}

func TestScenarioCreateCompleteReopen(t *testing.T) {
	// Create with defaults, move to done, then to blocked: the first
	// completion time must survive and every step adds one entry.
	task := baseTask()
	task.History = models.AppendHistory(nil, CreationEntry("user-1", task.Status))

	if task.Status != models.StatusTodo || task.Priority != models.DefaultPriority || task.CompletedAt != nil {
		t.Fatal("unexpected creation defaults")
	}
	if len(task.History) != 1 || task.History[0].Action != models.ActionCreated {
		t.Fatal("creation history entry missing")
	}

	done := ApplyUpdate(task, statusPatch(models.StatusDone), "user-1")
	if done.Next.CompletedAt == nil {
		t.Fatal("completed_at not set")
	}
	if len(done.Next.History) != 2 || done.Next.History[1].Action != models.ActionStatusChanged {
		t.Fatal("expected second entry status_changed")
	}

	blocked := ApplyUpdate(done.Next, statusPatch(models.StatusBlocked), "user-1")
	if !blocked.Next.CompletedAt.Equal(*done.Next.CompletedAt) {
		t.Error("completed_at changed on reopen")
	}
	if len(blocked.Next.History) != 3 {
		t.Errorf("expected history length 3, got %d", len(blocked.Next.History))
	}
}
