package services

import (
	"fmt"
	"math"
	"sort"
	"time"

	"taskboard/tasks-service/models"
)

// InitialPosition seeds a new task's sort key from the wall clock so it
// lands at the end of its column without reading existing siblings.
func InitialPosition() float64 {
	return float64(time.Now().UnixMilli())
}

// ValidatePosition rejects values that cannot participate in a total
// order. Any finite float is accepted; the caller picks midpoints and the
// engine performs no collision resolution or rebalancing.
func ValidatePosition(position float64) error {
	if math.IsNaN(position) || math.IsInf(position, 0) {
		return fmt.Errorf("position must be a finite number")
	}
	return nil
}

// SortByPosition orders tasks by position ascending, ties broken by id so
// listings stay deterministic when two tasks share a position.
func SortByPosition(tasks []models.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Position != tasks[j].Position {
			return tasks[i].Position < tasks[j].Position
		}
		return tasks[i].ID.Hex() < tasks[j].ID.Hex()
	})
}

// GroupByStatus splits an already position-sorted slice into board
// columns. Every status gets a key, so empty columns show up as empty
// slices rather than missing ones.
func GroupByStatus(tasks []models.Task) map[models.TaskStatus][]models.Task {
	board := map[models.TaskStatus][]models.Task{
		models.StatusTodo:       {},
		models.StatusInProgress: {},
		models.StatusDone:       {},
		models.StatusBlocked:    {},
	}
	for _, task := range tasks {
		board[task.Status] = append(board[task.Status], task)
	}
	return board
}
