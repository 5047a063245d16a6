package taskstoremock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gistapp/gist/internal/model"
	"github.com/gistapp/gist/internal/taskstore"
)

var _ taskstore.TaskFetcher = &MockTaskFetcher{}

// MockTaskFetcher is a mock of taskstore.TaskFetcher.
type MockTaskFetcher struct {
	mock.Mock
}

func (m *MockTaskFetcher) ListUserTasks(ctx context.Context, userID string) ([]model.Task, error) {
	args := m.Called(ctx, userID)
	var tasks []model.Task
	if v := args.Get(0); v != nil {
		tasks = v.([]model.Task)
	}
	return tasks, args.Error(1)
}
