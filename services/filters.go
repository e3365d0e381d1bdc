package services

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"taskboard/tasks-service/models"
)

// TaskQuery carries the caller-facing list filters.
type TaskQuery struct {
	Status         models.TaskStatus
	Priority       int
	ProjectID      string
	AssigneeID     string
	Label          string
	Search         string
	DueBefore      *time.Time
	DueAfter       *time.Time
	IncludeDeleted bool
	SortBy         string
	Limit          int64
	Skip           int64
}

// baseFilter is the mandatory prefix of every store filter: tenant scope
// first, then the soft-delete exclusion unless deleted records were
// explicitly requested. A missing deleted_at matches nil in Mongo, so the
// clause covers both never-deleted and restored documents.
func baseFilter(teamID string, includeDeleted bool) bson.M {
	filter := bson.M{"team_id": teamID}
	if !includeDeleted {
		filter["deleted_at"] = nil
	}
	return filter
}

// activeByID scopes a single-document lookup to the team's active set.
func activeByID(teamID string, id interface{}) bson.M {
	filter := baseFilter(teamID, false)
	filter["_id"] = id
	return filter
}

// buildTaskFilter turns a TaskQuery into a store filter. The team and
// soft-delete clauses always come from baseFilter so no query path can
// forget them.
func buildTaskFilter(teamID string, query TaskQuery) bson.M {
	filter := baseFilter(teamID, query.IncludeDeleted)
	if query.Status != "" {
		filter["status"] = query.Status
	}
	if query.Priority != 0 {
		filter["priority"] = query.Priority
	}
	if query.ProjectID != "" {
		filter["project_id"] = query.ProjectID
	}
	if query.AssigneeID != "" {
		filter["assignee_id"] = query.AssigneeID
	}
	if query.Label != "" {
		filter["labels"] = query.Label
	}
	if query.Search != "" {
		filter["$text"] = bson.M{"$search": query.Search}
	}
	if query.DueBefore != nil || query.DueAfter != nil {
		due := bson.M{}
		if query.DueAfter != nil {
			due["$gte"] = *query.DueAfter
		}
		if query.DueBefore != nil {
			due["$lt"] = *query.DueBefore
		}
		filter["due_date"] = due
	}
	return filter
}

// buildTaskSort maps the caller's sort key to a deterministic sort spec;
// _id is always the final tie break.
func buildTaskSort(sortBy string) bson.D {
	field := "position"
	switch sortBy {
	case "", "position":
	case "created_at", "due_date", "priority", "updated_at":
		field = sortBy
	}
	return bson.D{{Key: field, Value: 1}, {Key: "_id", Value: 1}}
}
