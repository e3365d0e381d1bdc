package services

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskboard/tasks-service/models"
)

func TestBaseFilterScopesTenantAndActiveSet(t *testing.T) {
	filter := baseFilter("team-1", false)

	if filter["team_id"] != "team-1" {
		t.Error("team filter missing")
	}
	if deleted, ok := filter["deleted_at"]; !ok || deleted != nil {
		t.Error("default filter must pin deleted_at to null")
	}
}

func TestBaseFilterIncludeDeleted(t *testing.T) {
	filter := baseFilter("team-1", true)

	if filter["team_id"] != "team-1" {
		t.Error("team filter must survive includeDeleted")
	}
	if _, ok := filter["deleted_at"]; ok {
		t.Error("includeDeleted must drop the soft-delete clause only")
	}
}

func TestActiveByIDKeepsTeamScope(t *testing.T) {
	id := primitive.NewObjectID()
	filter := activeByID("team-1", id)

	if filter["_id"] != id {
		t.Error("id clause missing")
	}
	if filter["team_id"] != "team-1" {
		t.Error("single-document lookups must still carry the team filter")
	}
	if deleted, ok := filter["deleted_at"]; !ok || deleted != nil {
		t.Error("single-document lookups must exclude soft-deleted records")
	}
}

func TestBuildTaskFilterFields(t *testing.T) {
	dueBefore := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	filter := buildTaskFilter("team-1", TaskQuery{
		Status:     models.StatusTodo,
		Priority:   2,
		ProjectID:  "proj-1",
		AssigneeID: "user-2",
		Label:      "backend",
		Search:     "importer",
		DueBefore:  &dueBefore,
	})

	if filter["team_id"] != "team-1" || filter["deleted_at"] != nil {
		t.Fatal("mandatory clauses missing")
	}
	if filter["status"] != models.StatusTodo || filter["priority"] != 2 {
		t.Error("status/priority clauses missing")
	}
	if filter["project_id"] != "proj-1" || filter["assignee_id"] != "user-2" {
		t.Error("relation clauses missing")
	}
	if filter["labels"] != "backend" {
		t.Error("label clause missing")
	}
	text, ok := filter["$text"].(bson.M)
	if !ok || text["$search"] != "importer" {
		t.Error("text search clause missing")
	}
	due, ok := filter["due_date"].(bson.M)
	if !ok || due["$lt"] != dueBefore {
		t.Error("due date clause missing")
	}
}

func TestBuildTaskSortDefaultsToPosition(t *testing.T) {
	sort := buildTaskSort("")
	if sort[0].Key != "position" || sort[1].Key != "_id" {
		t.Errorf("unexpected default sort: %v", sort)
	}

	sort = buildTaskSort("due_date")
	if sort[0].Key != "due_date" {
		t.Errorf("expected due_date sort, got %v", sort)
	}

	sort = buildTaskSort("history")
	if sort[0].Key != "position" {
		t.Error("unknown sort keys must fall back to position")
	}
}
