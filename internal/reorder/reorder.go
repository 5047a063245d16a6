package reorder

import (
	"context"
	"fmt"

	"github.com/gistapp/gist/internal/log"
	"github.com/gistapp/gist/internal/model"
	"github.com/gistapp/gist/internal/notify"
)

// FeedbackSender sends the reorder feedback to the backend.
type FeedbackSender interface {
	SendReorderFeedback(ctx context.Context, r model.ReorderRequest) (*model.ReorderResult, error)
}

// ScorePatcher updates the scores of a task in place.
type ScorePatcher interface {
	PatchScores(ctx context.Context, taskID string, scores model.Scores) error
}

// Move is a single task move in a list.
type Move struct {
	TaskID   string
	OldIndex int
	NewIndex int
	// Classification of the moved task, if empty it's taken from the sequence.
	Classification string
	// Sequence is the list after the move.
	Sequence []model.Task
}

// EngineConfig is the configuration of the reorder engine.
type EngineConfig struct {
	Sender   FeedbackSender
	Store    ScorePatcher
	Notifier notify.Notifier
	Logger   log.Logger
}

func (c *EngineConfig) defaults() error {
	if c.Sender == nil {
		return fmt.Errorf("feedback sender is required")
	}

	if c.Store == nil {
		return fmt.Errorf("store is required")
	}

	if c.Notifier == nil {
		c.Notifier = notify.Noop
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "reorder.Engine"})

	return nil
}

// Engine turns task moves into ranking feedback and reconciles the returned scores.
type Engine struct {
	sender   FeedbackSender
	store    ScorePatcher
	notifier notify.Notifier
	logger   log.Logger
}

// NewEngine returns a new reorder engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Engine{
		sender:   cfg.Sender,
		store:    cfg.Store,
		notifier: cfg.Notifier,
		logger:   cfg.Logger,
	}, nil
}

// Reorder sends the feedback of a move and patches the returned scores on the store.
// The local order is never rolled back, on failure the user is notified.
func (e *Engine) Reorder(ctx context.Context, m Move) (*model.ReorderResult, error) {
	req, err := BuildRequest(m)
	if err != nil {
		return nil, err
	}

	logger := e.logger.WithValues(log.Kv{"task-id": req.TaskID, "direction": req.Direction, "positions": req.Positions})
	logger.Debugf("Sending reorder feedback")

	res, err := e.sender.SendReorderFeedback(ctx, req)
	if err != nil {
		logger.Errorf("Reorder feedback failed: %s", err)
		e.notifier.Notify(ctx, notify.Notification{
			Level:   notify.LevelError,
			Title:   "Failed to save new task order",
			Message: err.Error(),
		})
		return nil, fmt.Errorf("could not send reorder feedback: %w", err)
	}

	if !res.Success {
		logger.Warningf("Reorder feedback rejected: %s", res.Message)
		e.notifier.Notify(ctx, notify.Notification{
			Level:   notify.LevelError,
			Title:   "Failed to save new task order",
			Message: res.Message,
		})
		return res, nil
	}

	if !res.Scores.Empty() {
		if err := e.store.PatchScores(ctx, req.TaskID, res.Scores); err != nil {
			// The task can be gone after a reload, the feedback was still accepted.
			logger.Warningf("Could not patch scores: %s", err)
		}
	}

	e.notifier.Notify(ctx, notify.Notification{
		Level:   notify.LevelSuccess,
		Title:   "Task order updated",
		Message: res.Message,
	})

	return res, nil
}

// Direction returns the direction and the number of positions of a move.
func Direction(oldIndex, newIndex int) (model.Direction, int) {
	if newIndex < oldIndex {
		return model.DirectionUp, oldIndex - newIndex
	}
	return model.DirectionDown, newIndex - oldIndex
}

// FindNeighbors returns the nearest tasks above and below the task in the sequence
// that share the classification. Empty IDs mean there is no such neighbor.
func FindNeighbors(seq []model.Task, taskID, classification string) (aboveID, belowID string) {
	idx := -1
	for i, t := range seq {
		if t.ID == taskID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", ""
	}

	for i := idx - 1; i >= 0; i-- {
		if seq[i].Classification == classification {
			aboveID = seq[i].ID
			break
		}
	}

	for i := idx + 1; i < len(seq); i++ {
		if seq[i].Classification == classification {
			belowID = seq[i].ID
			break
		}
	}

	return aboveID, belowID
}

// BuildRequest builds the feedback request of a move.
func BuildRequest(m Move) (model.ReorderRequest, error) {
	direction, positions := Direction(m.OldIndex, m.NewIndex)
	if positions == 0 {
		return model.ReorderRequest{}, fmt.Errorf("task %s was not moved: %w", m.TaskID, model.ErrNotValid)
	}

	classification := m.Classification
	found := false
	for _, t := range m.Sequence {
		if t.ID == m.TaskID {
			found = true
			if classification == "" {
				classification = t.Classification
			}
			break
		}
	}
	if !found {
		return model.ReorderRequest{}, fmt.Errorf("task %s is not in the sequence: %w", m.TaskID, model.ErrNotValid)
	}

	above, below := FindNeighbors(m.Sequence, m.TaskID, classification)

	req := model.ReorderRequest{
		TaskID:         m.TaskID,
		Direction:      direction,
		Positions:      positions,
		TaskAboveID:    above,
		TaskBelowID:    below,
		Classification: classification,
	}
	if err := req.Validate(); err != nil {
		return model.ReorderRequest{}, err
	}

	return req, nil
}
