package sortable

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/gistapp/gist/internal/log"
	"github.com/gistapp/gist/internal/model"
	"github.com/gistapp/gist/internal/reorder"
)

// Reorderer persists a move.
type Reorderer interface {
	Reorder(ctx context.Context, m reorder.Move) (*model.ReorderResult, error)
}

// DragHandler is what the input sensors drive, pointer and keyboard gestures
// end up on the same drag semantics.
type DragHandler interface {
	DragStart(taskID string) error
	DragEnd(ctx context.Context, overID string) (moved bool, err error)
	DragCancel()
}

// State is the drag state of a controller.
type State string

const (
	StateIdle     State = "idle"
	StateDragging State = "dragging"
)

// EmptyState is what is shown when there are no tasks.
type EmptyState struct {
	Title       string
	Description string
}

// ControllerConfig is the configuration of the sortable list controller.
type ControllerConfig struct {
	Reorderer Reorderer
	// OnReordered is called with the new display order after every effective move.
	OnReordered func(tasks []model.Task)
	EmptyState  EmptyState
	Logger      log.Logger
}

func (c *ControllerConfig) defaults() error {
	if c.Reorderer == nil {
		return fmt.Errorf("reorderer is required")
	}

	if c.OnReordered == nil {
		c.OnReordered = func([]model.Task) {}
	}

	if c.EmptyState.Title == "" {
		c.EmptyState.Title = "No tasks"
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "sortable.Controller"})

	return nil
}

// Controller keeps the display order of a task list and turns drag gestures into moves.
// The display order is updated synchronously, persistence runs in the background.
type Controller struct {
	reorderer   Reorderer
	onReordered func([]model.Task)
	emptyState  EmptyState
	logger      log.Logger

	mu       sync.Mutex
	display  []model.Task
	activeID string
	wg       sync.WaitGroup
}

var _ DragHandler = &Controller{}

// NewController returns a new sortable list controller.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Controller{
		reorderer:   cfg.Reorderer,
		onReordered: cfg.OnReordered,
		emptyState:  cfg.EmptyState,
		logger:      cfg.Logger,
	}, nil
}

// SetTasks sets the tasks to display in DisplayOrder.
func (c *Controller) SetTasks(tasks []model.Task) {
	display := DisplayOrder(tasks)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.display = display
}

// DisplayOrder returns a copy of the tasks ordered by relevance (highest first).
// Tasks without relevance go after the scored ones, ties keep the input order.
func DisplayOrder(tasks []model.Task) []model.Task {
	display := model.CopyTasks(tasks)
	sort.SliceStable(display, func(i, j int) bool {
		a, b := display[i].RelevanceScore, display[j].RelevanceScore
		switch {
		case a != nil && b != nil:
			return *a > *b
		case a != nil:
			return true
		default:
			return false
		}
	})
	return display
}

// Tasks returns the display order.
func (c *Controller) Tasks() []model.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.CopyTasks(c.display)
}

// TaskIDs returns the IDs in display order.
func (c *Controller) TaskIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(c.display))
	for _, t := range c.display {
		ids = append(ids, t.ID)
	}
	return ids
}

// Empty returns true when there is nothing to display.
func (c *Controller) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.display) == 0
}

// EmptyState returns the empty state to show when the list is empty.
func (c *Controller) EmptyState() EmptyState { return c.emptyState }

// State returns the drag state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeID != "" {
		return StateDragging
	}
	return StateIdle
}

// ActiveID returns the task being dragged, empty when idle.
func (c *Controller) ActiveID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeID
}

// DragStart starts dragging a task.
func (c *Controller) DragStart(taskID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.activeID != "" {
		return fmt.Errorf("already dragging %s: %w", c.activeID, model.ErrPrecondition)
	}

	if indexOf(c.display, taskID) < 0 {
		return fmt.Errorf("task %s: %w", taskID, model.ErrNotFound)
	}

	c.activeID = taskID
	return nil
}

// DragCancel ends the drag without moving anything.
func (c *Controller) DragCancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeID = ""
}

// DragEnd drops the dragged task over another one. Dropping outside the list
// (empty overID) or over itself leaves the order untouched.
func (c *Controller) DragEnd(ctx context.Context, overID string) (bool, error) {
	c.mu.Lock()

	activeID := c.activeID
	if activeID == "" {
		c.mu.Unlock()
		return false, fmt.Errorf("not dragging: %w", model.ErrPrecondition)
	}
	c.activeID = ""

	oldIndex := indexOf(c.display, activeID)
	newIndex := indexOf(c.display, overID)
	if overID == "" || overID == activeID || oldIndex < 0 || newIndex < 0 {
		c.mu.Unlock()
		return false, nil
	}

	c.display = ArrayMove(c.display, oldIndex, newIndex)
	sequence := model.CopyTasks(c.display)
	classification := sequence[newIndex].Classification

	c.wg.Add(1)
	c.mu.Unlock()

	c.onReordered(model.CopyTasks(sequence))

	go func() {
		defer c.wg.Done()

		_, err := c.reorderer.Reorder(ctx, reorder.Move{
			TaskID:         activeID,
			OldIndex:       oldIndex,
			NewIndex:       newIndex,
			Classification: classification,
			Sequence:       sequence,
		})
		if err != nil {
			c.logger.Warningf("Could not persist move of %s: %s", activeID, err)
		}
	}()

	return true, nil
}

// Wait blocks until all the in flight persistences finish.
func (c *Controller) Wait() { c.wg.Wait() }

// ArrayMove returns a new slice with the element at from moved to to.
func ArrayMove[T any](s []T, from, to int) []T {
	res := make([]T, 0, len(s))
	res = append(res, s[:from]...)
	res = append(res, s[from+1:]...)

	item := s[from]
	res = append(res[:to], append([]T{item}, res[to:]...)...)
	return res
}

func indexOf(tasks []model.Task, id string) int {
	if id == "" {
		return -1
	}
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
