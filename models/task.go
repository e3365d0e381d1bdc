package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusDone       TaskStatus = "done"
	StatusBlocked    TaskStatus = "blocked"
)

// ValidStatus reports whether s is one of the four board statuses.
func ValidStatus(s TaskStatus) bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone, StatusBlocked:
		return true
	}
	return false
}

const (
	DefaultPriority   = 3
	MaxTitleLen       = 200
	MaxDescriptionLen = 5000
	MaxLabels         = 50
	MaxEstimatedHours = 9999
)

// Task is one tracked work item. TeamID partitions every query; a task
// never moves between teams. DeletedAt == nil means the task is active.
type Task struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TeamID         string             `json:"teamId" bson:"team_id"`
	Title          string             `json:"title" bson:"title"`
	Description    string             `json:"description,omitempty" bson:"description,omitempty"`
	Status         TaskStatus         `json:"status" bson:"status"`
	Priority       int                `json:"priority" bson:"priority"`
	ProjectID      string             `json:"projectId,omitempty" bson:"project_id,omitempty"`
	AssigneeID     string             `json:"assigneeId,omitempty" bson:"assignee_id,omitempty"`
	CreatedBy      string             `json:"createdBy" bson:"created_by"`
	Labels         []string           `json:"labels,omitempty" bson:"labels,omitempty"`
	Tags           []string           `json:"tags,omitempty" bson:"tags,omitempty"`
	DueDate        *time.Time         `json:"dueDate,omitempty" bson:"due_date,omitempty"`
	StartDate      *time.Time         `json:"startDate,omitempty" bson:"start_date,omitempty"`
	EstimatedHours *float64           `json:"estimatedHours,omitempty" bson:"estimated_hours,omitempty"`
	Position       float64            `json:"position" bson:"position"`
	CreatedAt      time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt      time.Time          `json:"updatedAt" bson:"updated_at"`
	CompletedAt    *time.Time         `json:"completedAt,omitempty" bson:"completed_at,omitempty"`
	DeletedAt      *time.Time         `json:"deletedAt,omitempty" bson:"deleted_at,omitempty"`
	History        []HistoryEntry     `json:"history" bson:"history"`
}

// ValidateTitle checks the 1..200 rune bound shared by create and update.
func ValidateTitle(title string) error {
	if title == "" {
		return fmt.Errorf("title is required")
	}
	if len([]rune(title)) > MaxTitleLen {
		return fmt.Errorf("title exceeds %d characters", MaxTitleLen)
	}
	return nil
}

func ValidateDescription(description string) error {
	if len([]rune(description)) > MaxDescriptionLen {
		return fmt.Errorf("description exceeds %d characters", MaxDescriptionLen)
	}
	return nil
}

func ValidatePriority(priority int) error {
	if priority < 1 || priority > 5 {
		return fmt.Errorf("priority must be between 1 and 5")
	}
	return nil
}

func ValidateLabels(labels []string) error {
	if len(labels) > MaxLabels {
		return fmt.Errorf("at most %d labels are allowed", MaxLabels)
	}
	return nil
}

func ValidateEstimatedHours(hours float64) error {
	if hours < 0 || hours > MaxEstimatedHours {
		return fmt.Errorf("estimated hours must be between 0 and %d", MaxEstimatedHours)
	}
	return nil
}

// Validate checks every field invariant of a task snapshot.
func (t *Task) Validate() error {
	if t.TeamID == "" {
		return fmt.Errorf("team id is required")
	}
	if err := ValidateTitle(t.Title); err != nil {
		return err
	}
	if err := ValidateDescription(t.Description); err != nil {
		return err
	}
	if !ValidStatus(t.Status) {
		return fmt.Errorf("invalid status: %s", t.Status)
	}
	if err := ValidatePriority(t.Priority); err != nil {
		return err
	}
	if err := ValidateLabels(t.Labels); err != nil {
		return err
	}
	if t.EstimatedHours != nil {
		if err := ValidateEstimatedHours(*t.EstimatedHours); err != nil {
			return err
		}
	}
	return nil
}

// TaskPatch is a partial update of the mutable fields. A nil field means
// "leave unchanged"; a non-nil field is applied even when it equals the
// current value (the delta computation decides whether it is recorded).
type TaskPatch struct {
	Title          *string     `json:"title,omitempty"`
	Description    *string     `json:"description,omitempty"`
	Status         *TaskStatus `json:"status,omitempty"`
	Priority       *int        `json:"priority,omitempty"`
	ProjectID      *string     `json:"projectId,omitempty"`
	AssigneeID     *string     `json:"assigneeId,omitempty"`
	Labels         *[]string   `json:"labels,omitempty"`
	Tags           *[]string   `json:"tags,omitempty"`
	DueDate        *time.Time  `json:"dueDate,omitempty"`
	StartDate      *time.Time  `json:"startDate,omitempty"`
	EstimatedHours *float64    `json:"estimatedHours,omitempty"`
	Position       *float64    `json:"position,omitempty"`
}

// Validate checks the fields present in the patch against the same bounds
// the create path enforces.
func (p *TaskPatch) Validate() error {
	if p.Title != nil {
		if err := ValidateTitle(*p.Title); err != nil {
			return err
		}
	}
	if p.Description != nil {
		if err := ValidateDescription(*p.Description); err != nil {
			return err
		}
	}
	if p.Status != nil && !ValidStatus(*p.Status) {
		return fmt.Errorf("invalid status: %s", *p.Status)
	}
	if p.Priority != nil {
		if err := ValidatePriority(*p.Priority); err != nil {
			return err
		}
	}
	if p.Labels != nil {
		if err := ValidateLabels(*p.Labels); err != nil {
			return err
		}
	}
	if p.EstimatedHours != nil {
		if err := ValidateEstimatedHours(*p.EstimatedHours); err != nil {
			return err
		}
	}
	return nil
}
