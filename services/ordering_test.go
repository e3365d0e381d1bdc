package services

import (
	"math"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskboard/tasks-service/models"
)

func TestInitialPositionIsMonotonic(t *testing.T) {
	first := InitialPosition()
	second := InitialPosition()
	if second < first {
		t.Errorf("initial positions went backwards: %v then %v", first, second)
	}
}

func TestValidatePosition(t *testing.T) {
	for _, position := range []float64{0, -10, 1.5, 1e15} {
		if err := ValidatePosition(position); err != nil {
			t.Errorf("finite position %v rejected: %v", position, err)
		}
	}
	for _, position := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if err := ValidatePosition(position); err == nil {
			t.Errorf("non-finite position %v accepted", position)
		}
	}
}

func TestSortByPositionOrdersColumn(t *testing.T) {
	tasks := []models.Task{
		{ID: primitive.NewObjectID(), Status: models.StatusTodo, Position: 3.0},
		{ID: primitive.NewObjectID(), Status: models.StatusTodo, Position: 1.0},
		{ID: primitive.NewObjectID(), Status: models.StatusTodo, Position: 2.0},
	}

	SortByPosition(tasks)

	want := []float64{1.0, 2.0, 3.0}
	for i, task := range tasks {
		if task.Position != want[i] {
			t.Errorf("index %d: expected position %v, got %v", i, want[i], task.Position)
		}
	}
}

func TestSortByPositionTieBreaksByID(t *testing.T) {
	low, _ := primitive.ObjectIDFromHex("000000000000000000000001")
	high, _ := primitive.ObjectIDFromHex("000000000000000000000002")
	tasks := []models.Task{
		{ID: high, Position: 5.0},
		{ID: low, Position: 5.0},
	}

	SortByPosition(tasks)

	if tasks[0].ID != low || tasks[1].ID != high {
		t.Error("equal positions must order by id for deterministic listing")
	}
}

func TestGroupByStatusBuildsAllColumns(t *testing.T) {
	tasks := []models.Task{
		{ID: primitive.NewObjectID(), Status: models.StatusTodo, Position: 1},
		{ID: primitive.NewObjectID(), Status: models.StatusDone, Position: 2},
		{ID: primitive.NewObjectID(), Status: models.StatusTodo, Position: 3},
	}

	board := GroupByStatus(tasks)

	if len(board) != 4 {
		t.Fatalf("expected 4 columns, got %d", len(board))
	}
	if len(board[models.StatusTodo]) != 2 {
		t.Errorf("expected 2 todo tasks, got %d", len(board[models.StatusTodo]))
	}
	if len(board[models.StatusDone]) != 1 {
		t.Errorf("expected 1 done task, got %d", len(board[models.StatusDone]))
	}
	if len(board[models.StatusInProgress]) != 0 || len(board[models.StatusBlocked]) != 0 {
		t.Error("empty columns must be present as empty slices")
	}
	if board[models.StatusTodo][0].Position != 1 || board[models.StatusTodo][1].Position != 3 {
		t.Error("grouping must preserve the incoming order")
	}
}
