package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProjectSettings carries board presentation preferences; the service
// stores them opaquely.
type ProjectSettings struct {
	Columns    []string `json:"columns,omitempty" bson:"columns,omitempty"`
	Visibility string   `json:"visibility,omitempty" bson:"visibility,omitempty"`
	Color      string   `json:"color,omitempty" bson:"color,omitempty"`
}

// Project groups tasks. Name is unique among the team's active projects
// only; a soft-deleted project does not reserve its name.
type Project struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TeamID    string             `json:"teamId" bson:"team_id"`
	Name      string             `json:"name" bson:"name"`
	CreatedBy string             `json:"createdBy" bson:"created_by"`
	Settings  *ProjectSettings   `json:"settings,omitempty" bson:"settings,omitempty"`
	CreatedAt time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updated_at"`
	DeletedAt *time.Time         `json:"deletedAt,omitempty" bson:"deleted_at,omitempty"`
}

func (p *Project) Validate() error {
	if p.TeamID == "" {
		return fmt.Errorf("team id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("project name is required")
	}
	if len([]rune(p.Name)) > MaxTitleLen {
		return fmt.Errorf("project name exceeds %d characters", MaxTitleLen)
	}
	return nil
}
