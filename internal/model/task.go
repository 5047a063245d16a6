package model

import (
	"fmt"
	"time"
)

// Priority is the urgency level the backend assigns to a task.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Well known classification buckets. Classification is free-form, these are
// the ones the backend produces today.
const (
	ClassificationMainFocus = "Main Focus-View"
	ClassificationDrawer    = "Drawer"
	ClassificationLibrary   = "Library"
)

// Task is an actionable item extracted from the user's email.
type Task struct {
	ID             string
	Text           string
	Deadline       string
	Priority       Priority
	RelevanceScore *float64
	UtilityScore   *float64
	CostScore      *float64
	MessageID      string
	UserID         string
	Classification string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Validate validates the task model.
func (t Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task id is required: %w", ErrNotValid)
	}

	switch t.Priority {
	case "", PriorityHigh, PriorityMedium, PriorityLow:
	default:
		return fmt.Errorf("task priority %q is invalid: %w", t.Priority, ErrNotValid)
	}

	return nil
}

// Scores returns the ranking scores of the task.
func (t Task) Scores() Scores {
	return Scores{
		Relevance: t.RelevanceScore,
		Utility:   t.UtilityScore,
		Cost:      t.CostScore,
	}
}

// Scores is a partial set of ranking scores, nil fields are not set.
type Scores struct {
	Relevance *float64
	Utility   *float64
	Cost      *float64
}

// Empty returns true when no score is set.
func (s Scores) Empty() bool {
	return s.Relevance == nil && s.Utility == nil && s.Cost == nil
}

// Apply returns a copy of the task with the set scores patched in.
func (s Scores) Apply(t Task) Task {
	if s.Relevance != nil {
		v := *s.Relevance
		t.RelevanceScore = &v
	}
	if s.Utility != nil {
		v := *s.Utility
		t.UtilityScore = &v
	}
	if s.Cost != nil {
		v := *s.Cost
		t.CostScore = &v
	}
	return t
}

// CopyTasks returns a deep copy of the tasks.
func CopyTasks(tasks []Task) []Task {
	if tasks == nil {
		return nil
	}

	res := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		res = append(res, copyScorePtrs(t))
	}
	return res
}

func copyScorePtrs(t Task) Task {
	t.RelevanceScore = copyFloat(t.RelevanceScore)
	t.UtilityScore = copyFloat(t.UtilityScore)
	t.CostScore = copyFloat(t.CostScore)
	return t
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// TaskCache is a snapshot of a user task collection with an expiration.
type TaskCache struct {
	UserID    string
	Tasks     []Task
	ExpiresAt time.Time
}

// Expired returns true if the cache is not valid anymore at the given time.
func (c TaskCache) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
