package storagemock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gistapp/gist/internal/model"
	"github.com/gistapp/gist/internal/storage"
)

var _ storage.Repository = &MockRepository{}

// MockRepository is a mock of storage.Repository.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetTaskCache(ctx context.Context, userID string) (*model.TaskCache, error) {
	args := m.Called(ctx, userID)
	var c *model.TaskCache
	if v := args.Get(0); v != nil {
		c = v.(*model.TaskCache)
	}
	return c, args.Error(1)
}

func (m *MockRepository) SaveTaskCache(ctx context.Context, c model.TaskCache) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockRepository) DeleteTaskCache(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockRepository) GetOnboardingSession(ctx context.Context, userID string) (*model.OnboardingSession, error) {
	args := m.Called(ctx, userID)
	var s *model.OnboardingSession
	if v := args.Get(0); v != nil {
		s = v.(*model.OnboardingSession)
	}
	return s, args.Error(1)
}

func (m *MockRepository) SaveOnboardingSession(ctx context.Context, s model.OnboardingSession) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockRepository) DeleteOnboardingSession(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}
