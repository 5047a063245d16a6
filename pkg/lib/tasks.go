package lib

import (
	"context"
	"fmt"

	"github.com/gistapp/gist/internal/app/tasklist"
	"github.com/gistapp/gist/internal/app/taskmove"
	"github.com/gistapp/gist/internal/taskstore"
)

// ListTasks returns the tasks of the user in display order (most relevant first).
//
// The tasks are served from the local cache while it is fresh. When the
// backend can't be reached the last known tasks are returned.
func (c *Client) ListTasks(ctx context.Context, opts *ListTasksOpts) ([]Task, error) {
	if opts == nil {
		opts = &ListTasksOpts{}
	}

	svc, err := tasklist.NewService(tasklist.ServiceConfig{
		Store:  c.store,
		Logger: c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, tasklist.Request{
		UserID:         c.userID,
		Refresh:        opts.Refresh,
		Classification: opts.Classification,
	})
	if err != nil {
		return nil, mapError(err)
	}
	if res.Status == taskstore.LoadStatusFailed {
		c.logger.Warningf("Tasks could not be fetched, returning the last known ones")
	}

	return fromInternalTaskList(res.Tasks), nil
}

// MoveTask moves a task to the position of another one, the same as dragging
// it over the target in the task list. The ranking feedback is sent to the
// backend before returning.
func (c *Client) MoveTask(ctx context.Context, taskID, targetID string) (*MoveResult, error) {
	svc, err := taskmove.NewService(taskmove.ServiceConfig{
		Store:     c.store,
		Reorderer: c.engine,
		Logger:    c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, taskmove.Request{
		UserID:   c.userID,
		TaskID:   taskID,
		TargetID: targetID,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return &MoveResult{Moved: res.Moved, Tasks: fromInternalTaskList(res.Tasks)}, nil
}
