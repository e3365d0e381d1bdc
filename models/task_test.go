package models

import (
	"strings"
	"testing"
)

func validTask() *Task {
	return &Task{
		TeamID:   "team-1",
		Title:    "Write release notes",
		Status:   StatusTodo,
		Priority: DefaultPriority,
	}
}

func TestTaskValidateAcceptsDefaults(t *testing.T) {
	if err := validTask().Validate(); err != nil {
		t.Fatalf("expected valid task, got %v", err)
	}
}

func TestTaskValidateRejectsBadFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Task)
	}{
		{"missing team", func(task *Task) { task.TeamID = "" }},
		{"empty title", func(task *Task) { task.Title = "" }},
		{"long title", func(task *Task) { task.Title = strings.Repeat("a", MaxTitleLen+1) }},
		{"long description", func(task *Task) { task.Description = strings.Repeat("a", MaxDescriptionLen+1) }},
		{"unknown status", func(task *Task) { task.Status = "archived" }},
		{"priority too low", func(task *Task) { task.Priority = 0 }},
		{"priority too high", func(task *Task) { task.Priority = 6 }},
		{"too many labels", func(task *Task) { task.Labels = make([]string, MaxLabels+1) }},
		{"negative estimate", func(task *Task) { h := -1.0; task.EstimatedHours = &h }},
		{"huge estimate", func(task *Task) { h := 10000.0; task.EstimatedHours = &h }},
	}

	for _, tc := range cases {
		task := validTask()
		tc.mutate(task)
		if err := task.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestTaskValidateBoundsAreInclusive(t *testing.T) {
	task := validTask()
	task.Title = strings.Repeat("a", MaxTitleLen)
	task.Description = strings.Repeat("b", MaxDescriptionLen)
	task.Labels = make([]string, MaxLabels)
	hours := float64(MaxEstimatedHours)
	task.EstimatedHours = &hours

	if err := task.Validate(); err != nil {
		t.Fatalf("expected boundary values to pass, got %v", err)
	}
}

func TestTaskPatchValidate(t *testing.T) {
	badStatus := TaskStatus("paused")
	patch := TaskPatch{Status: &badStatus}
	if err := patch.Validate(); err == nil {
		t.Error("expected error for unknown status")
	}

	goodStatus := StatusBlocked
	priority := 1
	patch = TaskPatch{Status: &goodStatus, Priority: &priority}
	if err := patch.Validate(); err != nil {
		t.Errorf("expected valid patch, got %v", err)
	}
}
