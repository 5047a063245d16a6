package tasklist

import (
	"context"
	"fmt"
	"strings"

	"github.com/gistapp/gist/internal/log"
	"github.com/gistapp/gist/internal/model"
	"github.com/gistapp/gist/internal/sortable"
	"github.com/gistapp/gist/internal/taskstore"
)

// TaskLoader loads the tasks of a user.
type TaskLoader interface {
	Load(ctx context.Context, userID string, forceRefresh bool) taskstore.LoadStatus
	Tasks() []model.Task
}

// ServiceConfig is the configuration for the task list service.
type ServiceConfig struct {
	Store  TaskLoader
	Logger log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Store == nil {
		return fmt.Errorf("task store is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service lists the tasks of a user in display order.
type Service struct {
	store  TaskLoader
	logger log.Logger
}

// NewService creates a new task list service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		store:  cfg.Store,
		logger: cfg.Logger,
	}, nil
}

// Request represents the task list request parameters.
type Request struct {
	UserID string
	// Refresh skips the local cache.
	Refresh bool
	// Classification is an optional filter to only show tasks of this bucket.
	Classification string
}

// Result is the listed tasks and where they came from.
type Result struct {
	Tasks  []model.Task
	Status taskstore.LoadStatus
}

// Run loads the tasks and returns them by relevance. A failed fetch is not an error,
// the result has whatever the store had.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("user id is required: %w", model.ErrNotValid)
	}

	status := s.store.Load(ctx, req.UserID, req.Refresh)
	if status == taskstore.LoadStatusFailed {
		s.logger.Warningf("Could not fetch tasks, showing the last known ones")
	}

	tasks := s.store.Tasks()
	if req.Classification != "" {
		filtered := make([]model.Task, 0, len(tasks))
		for _, t := range tasks {
			if strings.EqualFold(t.Classification, req.Classification) {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}

	s.logger.Debugf("found %d tasks (%s)", len(tasks), status)
	return &Result{Tasks: sortable.DisplayOrder(tasks), Status: status}, nil
}
