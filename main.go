package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taskboard/tasks-service/handlers"
	"taskboard/tasks-service/logging"
	"taskboard/tasks-service/services"
)

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Team-ID, X-User-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ensureIndexes creates the secondary indexes the query paths expect. The
// partial unique index on active project names is the backstop behind the
// explicit uniqueness check in the service layer.
func ensureIndexes(ctx context.Context, tasks, projects *mongo.Collection) error {
	taskIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "team_id", Value: 1}, {Key: "status", Value: 1}, {Key: "position", Value: 1}}},
		{Keys: bson.D{{Key: "team_id", Value: 1}, {Key: "project_id", Value: 1}}},
		{Keys: bson.D{{Key: "team_id", Value: 1}, {Key: "assignee_id", Value: 1}}},
		{Keys: bson.D{{Key: "team_id", Value: 1}, {Key: "deleted_at", Value: 1}}},
		{Keys: bson.D{{Key: "due_date", Value: 1}}},
		{Keys: bson.D{{Key: "title", Value: "text"}, {Key: "description", Value: "text"}}},
	}
	if _, err := tasks.Indexes().CreateMany(ctx, taskIndexes); err != nil {
		return fmt.Errorf("task indexes: %v", err)
	}

	projectIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "team_id", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"deleted_at": bson.M{"$exists": false}}),
		},
		{Keys: bson.D{{Key: "team_id", Value: 1}, {Key: "deleted_at", Value: 1}}},
	}
	if _, err := projects.Indexes().CreateMany(ctx, projectIndexes); err != nil {
		return fmt.Errorf("project indexes: %v", err)
	}
	return nil
}

func newBreaker(name string, timeout time.Duration) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})
}

func main() {
	logging.InitLogger()

	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting Tasks Service...")
	if err := godotenv.Load(".env"); err != nil {
		logging.Logger.Warnf("Event ID: ENV_LOAD_WARNING, Description: No .env file loaded: %v", err)
	}

	mongoURI := os.Getenv("MONGO_URI")
	mongoDBName := os.Getenv("MONGO_DB_NAME")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECTION_FAILED, Description: Database connection for MongoDB failed: %v", err)
	}
	defer client.Disconnect(ctx)

	if err := client.Ping(ctx, nil); err != nil {
		logging.Logger.Fatalf("Event ID: DB_PING_FAILED, Description: MongoDB connection ping error: %v", err)
	}
	logging.Logger.Infof("Event ID: DB_CONNECTED, Description: Successfully connected to MongoDB at %s.", mongoURI)

	tasksCollection := client.Database(mongoDBName).Collection("tasks")
	projectsCollection := client.Database(mongoDBName).Collection("projects")

	if err := ensureIndexes(ctx, tasksCollection, projectsCollection); err != nil {
		logging.Logger.Fatalf("Event ID: DB_INDEX_FAILED, Description: Failed to create indexes: %v", err)
	}
	logging.Logger.Info("Event ID: DB_INDEXES_READY, Description: Secondary indexes are in place.")

	auditBreaker := newBreaker("audit-sink-cb", 2*time.Second)
	notifyBreaker := newBreaker("notifications-cb", 5*time.Second)
	publisher := services.NewPublisher(os.Getenv("AUDIT_SINK_URL"), os.Getenv("NOTIFICATIONS_URL"), auditBreaker, notifyBreaker)

	taskService := services.NewTaskService(tasksCollection, publisher)
	projectService := services.NewProjectService(projectsCollection)
	taskHandler := handlers.NewTaskHandler(taskService)
	projectHandler := handlers.NewProjectHandler(projectService)

	r := mux.NewRouter()

	r.HandleFunc("/api/tasks", taskHandler.CreateTask).Methods(http.MethodPost)
	r.HandleFunc("/api/tasks", taskHandler.GetTasks).Methods(http.MethodGet)
	r.HandleFunc("/api/tasks/board", taskHandler.GetBoard).Methods(http.MethodGet)
	r.HandleFunc("/api/tasks/stats", taskHandler.GetStats).Methods(http.MethodGet)
	r.HandleFunc("/api/tasks/{taskID}", taskHandler.GetTask).Methods(http.MethodGet)
	r.HandleFunc("/api/tasks/{taskID}", taskHandler.UpdateTask).Methods(http.MethodPatch)
	r.HandleFunc("/api/tasks/{taskID}", taskHandler.RemoveTask).Methods(http.MethodDelete)
	r.HandleFunc("/api/tasks/{taskID}/restore", taskHandler.RestoreTask).Methods(http.MethodPost)
	r.HandleFunc("/api/tasks/{taskID}/reorder", taskHandler.ReorderTask).Methods(http.MethodPost)

	r.HandleFunc("/api/projects", projectHandler.CreateProject).Methods(http.MethodPost)
	r.HandleFunc("/api/projects", projectHandler.GetProjects).Methods(http.MethodGet)
	r.HandleFunc("/api/projects/{projectID}", projectHandler.GetProject).Methods(http.MethodGet)
	r.HandleFunc("/api/projects/{projectID}", projectHandler.UpdateProject).Methods(http.MethodPatch)
	r.HandleFunc("/api/projects/{projectID}", projectHandler.RemoveProject).Methods(http.MethodDelete)
	r.HandleFunc("/api/projects/{projectID}/restore", projectHandler.RestoreProject).Methods(http.MethodPost)

	corsRouter := enableCORS(r)

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		logging.Logger.Fatalf("Event ID: CONFIG_ERROR, Description: SERVER_PORT is not set in the environment variables.")
	}

	serverAddress := fmt.Sprintf(":%s", serverPort)
	logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on http://localhost%s", serverAddress)

	if err := http.ListenAndServe(serverAddress, corsRouter); err != nil {
		logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed to start: %v", err)
	}
}
