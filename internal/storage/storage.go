package storage

import (
	"context"

	"github.com/gistapp/gist/internal/model"
)

// TaskCacheRepository is the interface for the per user task cache persistence.
type TaskCacheRepository interface {
	// GetTaskCache returns model.ErrNotFound when there is no cache for the user.
	GetTaskCache(ctx context.Context, userID string) (*model.TaskCache, error)
	SaveTaskCache(ctx context.Context, c model.TaskCache) error
	// DeleteTaskCache is a noop when there is no cache for the user.
	DeleteTaskCache(ctx context.Context, userID string) error
}

// SessionRepository is the interface for the onboarding session persistence.
type SessionRepository interface {
	// GetOnboardingSession returns model.ErrNotFound when there is no session for the user.
	GetOnboardingSession(ctx context.Context, userID string) (*model.OnboardingSession, error)
	SaveOnboardingSession(ctx context.Context, s model.OnboardingSession) error
	// DeleteOnboardingSession is a noop when there is no session for the user.
	DeleteOnboardingSession(ctx context.Context, userID string) error
}

// Repository is the interface for all the client local persistence.
type Repository interface {
	TaskCacheRepository
	SessionRepository
}
