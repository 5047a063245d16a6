package taskmove

import (
	"context"
	"fmt"
	"slices"

	"github.com/gistapp/gist/internal/log"
	"github.com/gistapp/gist/internal/model"
	"github.com/gistapp/gist/internal/sortable"
	"github.com/gistapp/gist/internal/taskstore"
)

// TaskStore is the task store used to move tasks.
type TaskStore interface {
	Load(ctx context.Context, userID string, forceRefresh bool) taskstore.LoadStatus
	Tasks() []model.Task
	ApplyOrder(ctx context.Context, ids []string)
}

// ServiceConfig is the configuration for the task move service.
type ServiceConfig struct {
	Store     TaskStore
	Reorderer sortable.Reorderer
	Logger    log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Store == nil {
		return fmt.Errorf("task store is required")
	}

	if c.Reorderer == nil {
		return fmt.Errorf("reorderer is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service moves a task over another one, like dropping it in the sortable list.
type Service struct {
	store     TaskStore
	reorderer sortable.Reorderer
	logger    log.Logger
}

// NewService creates a new task move service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		store:     cfg.Store,
		reorderer: cfg.Reorderer,
		logger:    cfg.Logger,
	}, nil
}

// Request represents the task move request parameters.
type Request struct {
	UserID string
	TaskID string
	// TargetID is the task the moved one takes the place of.
	TargetID string
}

// Result is the outcome of a move.
type Result struct {
	Moved bool
	// Tasks is the display order after the move.
	Tasks []model.Task
}

// Run moves the task and waits for the reorder feedback to be sent.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	if req.UserID == "" || req.TaskID == "" || req.TargetID == "" {
		return nil, fmt.Errorf("user, task and target are required: %w", model.ErrNotValid)
	}

	if status := s.store.Load(ctx, req.UserID, false); status == taskstore.LoadStatusFailed {
		s.logger.Warningf("Could not fetch tasks, moving over the last known ones")
	}

	ctrl, err := sortable.NewController(sortable.ControllerConfig{
		Reorderer: s.reorderer,
		OnReordered: func(tasks []model.Task) {
			ids := make([]string, 0, len(tasks))
			for _, t := range tasks {
				ids = append(ids, t.ID)
			}
			s.store.ApplyOrder(ctx, ids)
		},
		Logger: s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create sortable list: %w", err)
	}
	ctrl.SetTasks(s.store.Tasks())

	if !slices.Contains(ctrl.TaskIDs(), req.TargetID) {
		return nil, fmt.Errorf("target task %s: %w", req.TargetID, model.ErrNotFound)
	}

	if err := ctrl.DragStart(req.TaskID); err != nil {
		return nil, fmt.Errorf("could not pick task: %w", err)
	}

	moved, err := ctrl.DragEnd(ctx, req.TargetID)
	if err != nil {
		return nil, fmt.Errorf("could not drop task: %w", err)
	}
	ctrl.Wait()

	return &Result{Moved: moved, Tasks: ctrl.Tasks()}, nil
}
