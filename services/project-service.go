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

// ProjectService handles project CRUD. The only lifecycle subtlety here is
// the per-team name uniqueness, which is scoped to active projects and so
// must be re-checked lazily when a soft-deleted project comes back.
type ProjectService struct {
	projectsCollection *mongo.Collection
}

func NewProjectService(projectsCollection *mongo.Collection) *ProjectService {
	return &ProjectService{projectsCollection: projectsCollection}
}

// nameTaken checks the active set for a conflicting name, excluding the
// given project id (so a rename to the same name passes). The store's
// partial unique index backstops this check; this is the primary
// enforcement.
func (s *ProjectService) nameTaken(ctx context.Context, teamID, name string, excludeID *primitive.ObjectID) (bool, error) {
	filter := baseFilter(teamID, false)
	filter["name"] = name
	if excludeID != nil {
		filter["_id"] = bson.M{"$ne": *excludeID}
	}
	count, err := s.projectsCollection.CountDocuments(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("failed to check project name: %v", err)
	}
	return count > 0, nil
}

// CreateProject inserts a new project after checking the active-name
// uniqueness for the team.
func (s *ProjectService) CreateProject(ctx context.Context, teamID, userID, name string, settings *models.ProjectSettings) (*models.Project, error) {
	now := time.Now().UTC()
	project := &models.Project{
		ID:        primitive.NewObjectID(),
		TeamID:    teamID,
		Name:      name,
		CreatedBy: userID,
		Settings:  settings,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := project.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	taken, err := s.nameTaken(ctx, teamID, name, nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: project name %q already exists", ErrConflict, name)
	}

	result, err := s.projectsCollection.InsertOne(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %v", err)
	}
	project.ID = result.InsertedID.(primitive.ObjectID)
	return project, nil
}

// GetProject returns one active project by id within the team scope.
func (s *ProjectService) GetProject(ctx context.Context, teamID string, projectID primitive.ObjectID) (*models.Project, error) {
	var project models.Project
	err := s.projectsCollection.FindOne(ctx, activeByID(teamID, projectID)).Decode(&project)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: project %s", ErrNotFound, projectID.Hex())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve project: %v", err)
	}
	return &project, nil
}

// GetProjects lists the team's projects, active only unless asked.
func (s *ProjectService) GetProjects(ctx context.Context, teamID string, includeDeleted bool) ([]models.Project, error) {
	cursor, err := s.projectsCollection.Find(
		ctx,
		baseFilter(teamID, includeDeleted),
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve projects: %v", err)
	}
	defer cursor.Close(ctx)

	projects := []models.Project{}
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, fmt.Errorf("failed to decode projects: %v", err)
	}
	return projects, nil
}

// ProjectPatch is the partial update for a project.
type ProjectPatch struct {
	Name     *string                 `json:"name,omitempty"`
	Settings *models.ProjectSettings `json:"settings,omitempty"`
}

// UpdateProject renames or reconfigures a project. A rename re-checks the
// active-name uniqueness.
func (s *ProjectService) UpdateProject(ctx context.Context, teamID string, projectID primitive.ObjectID, patch ProjectPatch) (*models.Project, error) {
	current, err := s.GetProject(ctx, teamID, projectID)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.Name != nil && *patch.Name != current.Name {
		if *patch.Name == "" || len([]rune(*patch.Name)) > models.MaxTitleLen {
			return nil, fmt.Errorf("%w: invalid project name", ErrValidation)
		}
		taken, err := s.nameTaken(ctx, teamID, *patch.Name, &projectID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, fmt.Errorf("%w: project name %q already exists", ErrConflict, *patch.Name)
		}
		set["name"] = *patch.Name
	}
	if patch.Settings != nil {
		set["settings"] = *patch.Settings
	}

	var updated models.Project
	err = s.projectsCollection.FindOneAndUpdate(
		ctx,
		activeByID(teamID, projectID),
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: project %s", ErrNotFound, projectID.Hex())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update project: %v", err)
	}
	return &updated, nil
}

// RemoveProject soft-deletes a project. Tasks keep their project_id; the
// reference is a grouping key, not ownership, so nothing cascades.
func (s *ProjectService) RemoveProject(ctx context.Context, teamID string, projectID primitive.ObjectID) (*models.Project, error) {
	now := time.Now().UTC()
	var updated models.Project
	err := s.projectsCollection.FindOneAndUpdate(
		ctx,
		activeByID(teamID, projectID),
		bson.M{"$set": bson.M{"deleted_at": now, "updated_at": now}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: project %s", ErrNotFound, projectID.Hex())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete project: %v", err)
	}
	return &updated, nil
}

// RestoreProject reactivates a soft-deleted project. The name constraint
// is evaluated here, against the projects active right now, not when the
// project was deleted.
func (s *ProjectService) RestoreProject(ctx context.Context, teamID string, projectID primitive.ObjectID) (*models.Project, error) {
	filter := bson.M{
		"_id":        projectID,
		"team_id":    teamID,
		"deleted_at": bson.M{"$ne": nil},
	}

	var current models.Project
	if err := s.projectsCollection.FindOne(ctx, filter).Decode(&current); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: project %s", ErrNotFound, projectID.Hex())
		}
		return nil, fmt.Errorf("failed to retrieve project: %v", err)
	}

	taken, err := s.nameTaken(ctx, teamID, current.Name, &projectID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: project name %q already exists", ErrConflict, current.Name)
	}

	var updated models.Project
	err = s.projectsCollection.FindOneAndUpdate(
		ctx,
		filter,
		bson.M{
			"$set":   bson.M{"updated_at": time.Now().UTC()},
			"$unset": bson.M{"deleted_at": ""},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: project %s", ErrNotFound, projectID.Hex())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to restore project: %v", err)
	}
	return &updated, nil
}
