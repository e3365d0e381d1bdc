package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taskboard/tasks-service/models"
)

// TaskService is the single entry point for task lifecycle operations.
// Every store interaction carries the team filter; mutations bundle field
// changes and the history append into one atomic document update.
type TaskService struct {
	tasksCollection *mongo.Collection
	publisher       *Publisher
}

func NewTaskService(tasksCollection *mongo.Collection, publisher *Publisher) *TaskService {
	return &TaskService{
		tasksCollection: tasksCollection,
		publisher:       publisher,
	}
}

// CreateTaskInput carries the caller-settable fields for a new task.
// Priority is a pointer so an explicit out-of-range 0 is rejected instead
// of being mistaken for an omitted field.
type CreateTaskInput struct {
	Title          string            `json:"title"`
	Description    string            `json:"description,omitempty"`
	Status         models.TaskStatus `json:"status,omitempty"`
	Priority       *int              `json:"priority,omitempty"`
	ProjectID      string            `json:"projectId,omitempty"`
	AssigneeID     string            `json:"assigneeId,omitempty"`
	Labels         []string          `json:"labels,omitempty"`
	Tags           []string          `json:"tags,omitempty"`
	DueDate        *time.Time        `json:"dueDate,omitempty"`
	StartDate      *time.Time        `json:"startDate,omitempty"`
	EstimatedHours *float64          `json:"estimatedHours,omitempty"`
	Position       *float64          `json:"position,omitempty"`
}

// CreateTask inserts a new active task with defaults filled in and a
// single "created" history entry.
func (s *TaskService) CreateTask(ctx context.Context, teamID, userID string, input CreateTaskInput) (*models.Task, error) {
	if input.Status == "" {
		input.Status = models.StatusTodo
	}
	priority := models.DefaultPriority
	if input.Priority != nil {
		priority = *input.Priority
	}

	position := InitialPosition()
	if input.Position != nil {
		if err := ValidatePosition(*input.Position); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		position = *input.Position
	}

	now := time.Now().UTC()
	task := &models.Task{
		ID:             primitive.NewObjectID(),
		TeamID:         teamID,
		Title:          input.Title,
		Description:    input.Description,
		Status:         input.Status,
		Priority:       priority,
		ProjectID:      input.ProjectID,
		AssigneeID:     input.AssigneeID,
		CreatedBy:      userID,
		Labels:         input.Labels,
		Tags:           input.Tags,
		DueDate:        input.DueDate,
		StartDate:      input.StartDate,
		EstimatedHours: input.EstimatedHours,
		Position:       position,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if task.Status == models.StatusDone {
		task.CompletedAt = &now
	}
	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	entry := CreationEntry(userID, task.Status)
	task.History = models.AppendHistory(nil, entry)

	result, err := s.tasksCollection.InsertOne(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %v", err)
	}
	task.ID = result.InsertedID.(primitive.ObjectID)

	s.publisher.PublishAudit(ctx, teamID, task.ID.Hex(), entry)
	s.publisher.PublishBoardChange(ctx, teamID, task.ID.Hex(), string(entry.Action))
	return task, nil
}

// GetTask returns one active task. A soft-deleted or foreign-team id is
// indistinguishable from a missing one.
func (s *TaskService) GetTask(ctx context.Context, teamID string, taskID primitive.ObjectID) (*models.Task, error) {
	var task models.Task
	err := s.tasksCollection.FindOne(ctx, activeByID(teamID, taskID)).Decode(&task)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: task %s", ErrNotFound, taskID.Hex())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve task: %v", err)
	}
	return &task, nil
}

// GetTasks lists tasks matching the query within the team scope.
func (s *TaskService) GetTasks(ctx context.Context, teamID string, query TaskQuery) ([]models.Task, error) {
	findOptions := options.Find().SetSort(buildTaskSort(query.SortBy))
	if query.Limit > 0 {
		findOptions.SetLimit(query.Limit)
	}
	if query.Skip > 0 {
		findOptions.SetSkip(query.Skip)
	}

	cursor, err := s.tasksCollection.Find(ctx, buildTaskFilter(teamID, query), findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve tasks: %v", err)
	}
	defer cursor.Close(ctx)

	tasks := []models.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %v", err)
	}
	return tasks, nil
}

// UpdateTask applies a partial patch through the lifecycle rules. The
// whole patch lands with exactly one history entry, or nothing lands.
func (s *TaskService) UpdateTask(ctx context.Context, teamID, userID string, taskID primitive.ObjectID, patch models.TaskPatch) (*models.Task, error) {
	if err := patch.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if patch.Position != nil {
		if err := ValidatePosition(*patch.Position); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	current, err := s.GetTask(ctx, teamID, taskID)
	if err != nil {
		return nil, err
	}

	result := ApplyUpdate(*current, patch, userID)
	if !result.Changed {
		return current, nil
	}
	return s.commitUpdate(ctx, teamID, taskID, result)
}

// ReorderTask moves a task to a caller-chosen position within its column.
// The value is trusted; no sibling renormalization happens.
func (s *TaskService) ReorderTask(ctx context.Context, teamID, userID string, taskID primitive.ObjectID, position float64) (*models.Task, error) {
	if err := ValidatePosition(position); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	current, err := s.GetTask(ctx, teamID, taskID)
	if err != nil {
		return nil, err
	}

	result := ApplyUpdate(*current, models.TaskPatch{Position: &position}, userID)
	if !result.Changed {
		return current, nil
	}
	return s.commitUpdate(ctx, teamID, taskID, result)
}

// commitUpdate writes a lifecycle result as one atomic update: $set for
// the changed fields, $push with $slice for the bounded history append.
func (s *TaskService) commitUpdate(ctx context.Context, teamID string, taskID primitive.ObjectID, result UpdateResult) (*models.Task, error) {
	set := bson.M{"updated_at": result.Next.UpdatedAt}
	for _, change := range result.Entry.Changes {
		set[change.Field] = change.NewValue
	}
	if result.Next.CompletedAt != nil {
		set["completed_at"] = *result.Next.CompletedAt
	}

	update := bson.M{
		"$set":  set,
		"$push": historyPush(result.Entry),
	}

	var updated models.Task
	err := s.tasksCollection.FindOneAndUpdate(
		ctx,
		activeByID(teamID, taskID),
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: task %s", ErrNotFound, taskID.Hex())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %v", err)
	}

	s.publisher.PublishAudit(ctx, teamID, taskID.Hex(), result.Entry)
	s.publisher.PublishBoardChange(ctx, teamID, taskID.Hex(), string(result.Entry.Action))
	return &updated, nil
}

// RemoveTask soft-deletes: it stamps deleted_at and records the deletion,
// leaving status and position untouched so a restore puts the task back
// exactly where it was.
func (s *TaskService) RemoveTask(ctx context.Context, teamID, userID string, taskID primitive.ObjectID) (*models.Task, error) {
	if _, err := s.GetTask(ctx, teamID, taskID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry := models.NewHistoryEntry(models.ActionDeleted, userID, []models.FieldChange{
		{Field: "deleted_at", OldValue: nil, NewValue: now},
	})
	update := bson.M{
		"$set":  bson.M{"deleted_at": now, "updated_at": now},
		"$push": historyPush(entry),
	}

	var updated models.Task
	err := s.tasksCollection.FindOneAndUpdate(
		ctx,
		activeByID(teamID, taskID),
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: task %s", ErrNotFound, taskID.Hex())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete task: %v", err)
	}

	s.publisher.PublishAudit(ctx, teamID, taskID.Hex(), entry)
	s.publisher.PublishBoardChange(ctx, teamID, taskID.Hex(), string(entry.Action))
	return &updated, nil
}

// RestoreTask reactivates a soft-deleted task. Tasks carry no uniqueness
// constraint, so a found task always restores.
func (s *TaskService) RestoreTask(ctx context.Context, teamID, userID string, taskID primitive.ObjectID) (*models.Task, error) {
	filter := bson.M{
		"_id":        taskID,
		"team_id":    teamID,
		"deleted_at": bson.M{"$ne": nil},
	}

	var current models.Task
	if err := s.tasksCollection.FindOne(ctx, filter).Decode(&current); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: task %s", ErrNotFound, taskID.Hex())
		}
		return nil, fmt.Errorf("failed to retrieve task: %v", err)
	}

	now := time.Now().UTC()
	entry := models.NewHistoryEntry(models.ActionRestored, userID, []models.FieldChange{
		{Field: "deleted_at", OldValue: current.DeletedAt, NewValue: nil},
	})
	update := bson.M{
		"$set":   bson.M{"updated_at": now},
		"$unset": bson.M{"deleted_at": ""},
		"$push":  historyPush(entry),
	}

	var updated models.Task
	err := s.tasksCollection.FindOneAndUpdate(
		ctx,
		filter,
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: task %s", ErrNotFound, taskID.Hex())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to restore task: %v", err)
	}

	s.publisher.PublishAudit(ctx, teamID, taskID.Hex(), entry)
	s.publisher.PublishBoardChange(ctx, teamID, taskID.Hex(), string(entry.Action))
	return &updated, nil
}

// GetBoard groups the team's active tasks into status columns, each
// ordered by position with id as the tie break.
func (s *TaskService) GetBoard(ctx context.Context, teamID, projectID string) (map[models.TaskStatus][]models.Task, error) {
	filter := baseFilter(teamID, false)
	if projectID != "" {
		filter["project_id"] = projectID
	}

	cursor, err := s.tasksCollection.Find(ctx, filter, options.Find().SetSort(buildTaskSort("position")))
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve board: %v", err)
	}
	defer cursor.Close(ctx)

	var tasks []models.Task
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode board tasks: %v", err)
	}
	SortByPosition(tasks)
	return GroupByStatus(tasks), nil
}

// TaskStats is the read-only aggregation over the team's active tasks.
type TaskStats struct {
	Total          int64                       `json:"total"`
	ByStatus       map[models.TaskStatus]int64 `json:"byStatus"`
	ByPriority     map[int]int64               `json:"byPriority"`
	Overdue        int64                       `json:"overdue"`
	CompletedToday int64                       `json:"completedToday"`
}

// GetStats aggregates counts by status and priority plus overdue and
// completed-today counters. No lifecycle side effects.
func (s *TaskService) GetStats(ctx context.Context, teamID, projectID string) (*TaskStats, error) {
	filter := baseFilter(teamID, false)
	if projectID != "" {
		filter["project_id"] = projectID
	}

	stats := &TaskStats{
		ByStatus:   map[models.TaskStatus]int64{},
		ByPriority: map[int]int64{},
	}

	statusCounts, err := s.countByField(ctx, filter, "$status")
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate status counts: %v", err)
	}
	for key, count := range statusCounts {
		status, ok := key.(string)
		if !ok {
			continue
		}
		stats.ByStatus[models.TaskStatus(status)] = count
		stats.Total += count
	}

	priorityCounts, err := s.countByField(ctx, filter, "$priority")
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate priority counts: %v", err)
	}
	for key, count := range priorityCounts {
		switch priority := key.(type) {
		case int32:
			stats.ByPriority[int(priority)] = count
		case int64:
			stats.ByPriority[int(priority)] = count
		}
	}

	now := time.Now().UTC()
	overdueFilter := baseFilter(teamID, false)
	if projectID != "" {
		overdueFilter["project_id"] = projectID
	}
	overdueFilter["due_date"] = bson.M{"$lt": now}
	overdueFilter["status"] = bson.M{"$ne": models.StatusDone}
	stats.Overdue, err = s.tasksCollection.CountDocuments(ctx, overdueFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to count overdue tasks: %v", err)
	}

	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	completedFilter := baseFilter(teamID, false)
	if projectID != "" {
		completedFilter["project_id"] = projectID
	}
	completedFilter["completed_at"] = bson.M{"$gte": startOfDay}
	stats.CompletedToday, err = s.tasksCollection.CountDocuments(ctx, completedFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to count completed tasks: %v", err)
	}

	return stats, nil
}

func (s *TaskService) countByField(ctx context.Context, filter bson.M, field string) (map[interface{}]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$group", Value: bson.M{"_id": field, "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := s.tasksCollection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	counts := map[interface{}]int64{}
	for cursor.Next(ctx) {
		var row struct {
			ID    interface{} `bson:"_id"`
			Count int64       `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, err
		}
		counts[row.ID] = row.Count
	}
	return counts, cursor.Err()
}

// historyPush builds the bounded append: $slice keeps the newest entries
// so the cap holds inside the same atomic update as the field changes.
func historyPush(entry models.HistoryEntry) bson.M {
	return bson.M{
		"history": bson.M{
			"$each":  []models.HistoryEntry{entry},
			"$slice": -models.HistoryCap,
		},
	}
}
