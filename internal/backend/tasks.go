package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gistapp/gist/internal/model"
)

// --- JSON wire types ---

// flexTime accepts RFC3339 timestamps and the zone-less ISO 8601 ones the backend emits.
type flexTime struct {
	time.Time
}

var flexTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

func (f *flexTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// null or a non string value.
		return nil
	}
	if s == "" {
		return nil
	}

	for _, layout := range flexTimeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			f.Time = t.UTC()
			return nil
		}
	}

	return fmt.Errorf("invalid timestamp %q", s)
}

type taskJSON struct {
	TaskID         string   `json:"task_id"`
	Task           string   `json:"task"`
	Deadline       *string  `json:"deadline"`
	Priority       *string  `json:"priority"`
	RelevanceScore *float64 `json:"relevance_score"`
	UtilityScore   *float64 `json:"utility_score"`
	CostScore      *float64 `json:"cost_score"`
	MessageID      *string  `json:"messageId"`
	UserID         *string  `json:"userId"`
	Classification *string  `json:"classification"`
	CreatedAt      flexTime `json:"createdAt"`
	UpdatedAt      flexTime `json:"updatedAt"`
}

func (t taskJSON) toModel() model.Task {
	return model.Task{
		ID:             t.TaskID,
		Text:           t.Task,
		Deadline:       deref(t.Deadline),
		Priority:       model.Priority(strings.ToLower(deref(t.Priority))),
		RelevanceScore: t.RelevanceScore,
		UtilityScore:   t.UtilityScore,
		CostScore:      t.CostScore,
		MessageID:      deref(t.MessageID),
		UserID:         deref(t.UserID),
		Classification: deref(t.Classification),
		CreatedAt:      t.CreatedAt.Time,
		UpdatedAt:      t.UpdatedAt.Time,
	}
}

type reorderRequestJSON struct {
	TaskID         string  `json:"task_id"`
	Direction      string  `json:"direction"`
	Positions      int     `json:"positions"`
	TaskAboveID    *string `json:"task_above_id"`
	TaskBelowID    *string `json:"task_below_id"`
	Classification string  `json:"classification"`
}

type reorderResponseJSON struct {
	TaskID         string   `json:"task_id"`
	RelevanceScore *float64 `json:"relevance_score"`
	UtilityScore   *float64 `json:"utility_score"`
	CostScore      *float64 `json:"cost_score"`
	Success        *bool    `json:"success"`
	Message        string   `json:"message"`
}

func (r reorderResponseJSON) toModel() *model.ReorderResult {
	success := true
	if r.Success != nil {
		success = *r.Success
	}
	return &model.ReorderResult{
		TaskID: r.TaskID,
		Scores: model.Scores{
			Relevance: r.RelevanceScore,
			Utility:   r.UtilityScore,
			Cost:      r.CostScore,
		},
		Success: success,
		Message: r.Message,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ptrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// --- Tasks and feedback ---

// ListUserTasks returns the tasks of a user in backend order.
func (c *Client) ListUserTasks(ctx context.Context, userID string) ([]model.Task, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required: %w", model.ErrNotValid)
	}

	var tjs []taskJSON
	if err := c.do(ctx, http.MethodGet, "/tasks/user/"+url.PathEscape(userID), nil, nil, &tjs); err != nil {
		return nil, err
	}

	tasks := make([]model.Task, 0, len(tjs))
	for _, tj := range tjs {
		tasks = append(tasks, tj.toModel())
	}

	return tasks, nil
}

// SendReorderFeedback sends the reorder feedback of a moved task and returns the updated scores.
func (c *Client) SendReorderFeedback(ctx context.Context, r model.ReorderRequest) (*model.ReorderResult, error) {
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("invalid reorder request: %w", err)
	}

	body := reorderRequestJSON{
		TaskID:         r.TaskID,
		Direction:      string(r.Direction),
		Positions:      r.Positions,
		TaskAboveID:    ptrOrNil(r.TaskAboveID),
		TaskBelowID:    ptrOrNil(r.TaskBelowID),
		Classification: r.Classification,
	}

	var resp reorderResponseJSON
	if err := c.do(ctx, http.MethodPost, "/feedback/re-order", nil, body, &resp); err != nil {
		return nil, err
	}

	res := resp.toModel()
	if res.TaskID == "" {
		res.TaskID = r.TaskID
	}

	return res, nil
}
