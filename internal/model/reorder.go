package model

import "fmt"

// Direction is the direction a task was moved in the list.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// ReorderRequest is the feedback sent to the backend after a task has been moved.
//
// TaskAboveID and TaskBelowID are the nearest tasks sharing the classification
// of the moved task, empty when the task is at a bucket boundary.
type ReorderRequest struct {
	TaskID         string
	Direction      Direction
	Positions      int
	TaskAboveID    string
	TaskBelowID    string
	Classification string
}

// Validate validates the reorder request.
func (r ReorderRequest) Validate() error {
	if r.TaskID == "" {
		return fmt.Errorf("task id is required: %w", ErrNotValid)
	}

	if r.Direction != DirectionUp && r.Direction != DirectionDown {
		return fmt.Errorf("direction %q is invalid: %w", r.Direction, ErrNotValid)
	}

	if r.Positions <= 0 {
		return fmt.Errorf("positions must be positive: %w", ErrNotValid)
	}

	if r.TaskAboveID == r.TaskID || r.TaskBelowID == r.TaskID {
		return fmt.Errorf("task can't be its own neighbor: %w", ErrNotValid)
	}

	return nil
}

// ReorderResult is the backend answer to a reorder feedback.
type ReorderResult struct {
	TaskID  string
	Scores  Scores
	Success bool
	Message string
}
