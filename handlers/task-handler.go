package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskboard/tasks-service/logging"
	"taskboard/tasks-service/models"
	"taskboard/tasks-service/services"
)

type TaskHandler struct {
	service *services.TaskService
}

func NewTaskHandler(service *services.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

// identity pulls the resolved principal from the gateway headers. The
// gateway has already verified the token; these values are trusted as-is.
func identity(r *http.Request) (teamID, userID string, err error) {
	teamID = r.Header.Get("X-Team-ID")
	userID = r.Header.Get("X-User-ID")
	if teamID == "" || userID == "" {
		return "", "", fmt.Errorf("identity headers are missing")
	}
	return teamID, userID, nil
}

// writeServiceError maps the service failure taxonomy to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, services.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, services.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func taskIDFromRequest(r *http.Request) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(mux.Vars(r)["taskID"])
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	teamID, userID, err := identity(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	var input services.CreateTaskInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	task, err := h.service.CreateTask(r.Context(), teamID, userID, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	logging.Logger.Infof("Event ID: TASK_CREATED, Description: Task %s created in team %s", task.ID.Hex(), teamID)
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(task)
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	teamID, _, err := identity(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	taskID, err := taskIDFromRequest(r)
	if err != nil {
		http.Error(w, "Invalid task ID format", http.StatusBadRequest)
		return
	}

	task, err := h.service.GetTask(r.Context(), teamID, taskID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(task)
}

// queryFromRequest binds the list filters from query parameters.
func queryFromRequest(r *http.Request) services.TaskQuery {
	params := r.URL.Query()
	query := services.TaskQuery{
		Status:     models.TaskStatus(params.Get("status")),
		ProjectID:  params.Get("projectId"),
		AssigneeID: params.Get("assigneeId"),
		Label:      params.Get("label"),
		Search:     params.Get("search"),
		SortBy:     params.Get("sortBy"),
	}
	if priority, err := strconv.Atoi(params.Get("priority")); err == nil {
		query.Priority = priority
	}
	if limit, err := strconv.ParseInt(params.Get("limit"), 10, 64); err == nil {
		query.Limit = limit
	}
	if skip, err := strconv.ParseInt(params.Get("skip"), 10, 64); err == nil {
		query.Skip = skip
	}
	if params.Get("includeDeleted") == "true" {
		query.IncludeDeleted = true
	}
	if dueBefore, err := time.Parse(time.RFC3339, params.Get("dueBefore")); err == nil {
		query.DueBefore = &dueBefore
	}
	if dueAfter, err := time.Parse(time.RFC3339, params.Get("dueAfter")); err == nil {
		query.DueAfter = &dueAfter
	}
	return query
}

func (h *TaskHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	teamID, _, err := identity(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	tasks, err := h.service.GetTasks(r.Context(), teamID, queryFromRequest(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(tasks)
}

func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	teamID, userID, err := identity(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	taskID, err := taskIDFromRequest(r)
	if err != nil {
		http.Error(w, "Invalid task ID format", http.StatusBadRequest)
		return
	}

	var patch models.TaskPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	task, err := h.service.UpdateTask(r.Context(), teamID, userID, taskID, patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(task)
}

func (h *TaskHandler) ReorderTask(w http.ResponseWriter, r *http.Request) {
	teamID, userID, err := identity(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	taskID, err := taskIDFromRequest(r)
	if err != nil {
		http.Error(w, "Invalid task ID format", http.StatusBadRequest)
		return
	}

	var body struct {
		Position *float64 `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Position == nil {
		http.Error(w, "Position is required", http.StatusBadRequest)
		return
	}

	task, err := h.service.ReorderTask(r.Context(), teamID, userID, taskID, *body.Position)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(task)
}

func (h *TaskHandler) RemoveTask(w http.ResponseWriter, r *http.Request) {
	teamID, userID, err := identity(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	taskID, err := taskIDFromRequest(r)
	if err != nil {
		http.Error(w, "Invalid task ID format", http.StatusBadRequest)
		return
	}

	task, err := h.service.RemoveTask(r.Context(), teamID, userID, taskID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	logging.Logger.Infof("Event ID: TASK_DELETED, Description: Task %s soft-deleted in team %s", taskID.Hex(), teamID)
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(task)
}

func (h *TaskHandler) RestoreTask(w http.ResponseWriter, r *http.Request) {
	teamID, userID, err := identity(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	taskID, err := taskIDFromRequest(r)
	if err != nil {
		http.Error(w, "Invalid task ID format", http.StatusBadRequest)
		return
	}

	task, err := h.service.RestoreTask(r.Context(), teamID, userID, taskID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	logging.Logger.Infof("Event ID: TASK_RESTORED, Description: Task %s restored in team %s", taskID.Hex(), teamID)
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(task)
}

func (h *TaskHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	teamID, _, err := identity(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	board, err := h.service.GetBoard(r.Context(), teamID, r.URL.Query().Get("projectId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(board)
}

func (h *TaskHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	teamID, _, err := identity(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	stats, err := h.service.GetStats(r.Context(), teamID, r.URL.Query().Get("projectId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(stats)
}
