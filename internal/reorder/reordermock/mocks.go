package reordermock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gistapp/gist/internal/model"
	"github.com/gistapp/gist/internal/reorder"
)

var (
	_ reorder.FeedbackSender = &MockFeedbackSender{}
	_ reorder.ScorePatcher   = &MockScorePatcher{}
)

// MockFeedbackSender is a mock of reorder.FeedbackSender.
type MockFeedbackSender struct {
	mock.Mock
}

func (m *MockFeedbackSender) SendReorderFeedback(ctx context.Context, r model.ReorderRequest) (*model.ReorderResult, error) {
	args := m.Called(ctx, r)
	var res *model.ReorderResult
	if v := args.Get(0); v != nil {
		res = v.(*model.ReorderResult)
	}
	return res, args.Error(1)
}

// MockScorePatcher is a mock of reorder.ScorePatcher.
type MockScorePatcher struct {
	mock.Mock
}

func (m *MockScorePatcher) PatchScores(ctx context.Context, taskID string, scores model.Scores) error {
	args := m.Called(ctx, taskID, scores)
	return args.Error(0)
}
