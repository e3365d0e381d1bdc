package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskboard/tasks-service/logging"
	"taskboard/tasks-service/models"
	"taskboard/tasks-service/services"
)

type ProjectHandler struct {
	service *services.ProjectService
}

func NewProjectHandler(service *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{service: service}
}

func projectIDFromRequest(r *http.Request) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(mux.Vars(r)["projectID"])
}

func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	teamID, userID, err := identity(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	var body struct {
		Name     string                  `json:"name"`
		Settings *models.ProjectSettings `json:"settings,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	project, err := h.service.CreateProject(r.Context(), teamID, userID, body.Name, body.Settings)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	logging.Logger.Infof("Event ID: PROJECT_CREATED, Description: Project %s created in team %s", project.ID.Hex(), teamID)
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(project)
}

func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	teamID, _, err := identity(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	projectID, err := projectIDFromRequest(r)
	if err != nil {
		http.Error(w, "Invalid project ID format", http.StatusBadRequest)
		return
	}

	project, err := h.service.GetProject(r.Context(), teamID, projectID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(project)
}

func (h *ProjectHandler) GetProjects(w http.ResponseWriter, r *http.Request) {
	teamID, _, err := identity(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	includeDeleted := r.URL.Query().Get("includeDeleted") == "true"
	projects, err := h.service.GetProjects(r.Context(), teamID, includeDeleted)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(projects)
}

func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	teamID, _, err := identity(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	projectID, err := projectIDFromRequest(r)
	if err != nil {
		http.Error(w, "Invalid project ID format", http.StatusBadRequest)
		return
	}

	var patch services.ProjectPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	project, err := h.service.UpdateProject(r.Context(), teamID, projectID, patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(project)
}

func (h *ProjectHandler) RemoveProject(w http.ResponseWriter, r *http.Request) {
	teamID, _, err := identity(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	projectID, err := projectIDFromRequest(r)
	if err != nil {
		http.Error(w, "Invalid project ID format", http.StatusBadRequest)
		return
	}

	project, err := h.service.RemoveProject(r.Context(), teamID, projectID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	logging.Logger.Infof("Event ID: PROJECT_DELETED, Description: Project %s soft-deleted in team %s", projectID.Hex(), teamID)
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(project)
}

func (h *ProjectHandler) RestoreProject(w http.ResponseWriter, r *http.Request) {
	teamID, _, err := identity(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	projectID, err := projectIDFromRequest(r)
	if err != nil {
		http.Error(w, "Invalid project ID format", http.StatusBadRequest)
		return
	}

	project, err := h.service.RestoreProject(r.Context(), teamID, projectID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	logging.Logger.Infof("Event ID: PROJECT_RESTORED, Description: Project %s restored in team %s", projectID.Hex(), teamID)
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(project)
}
