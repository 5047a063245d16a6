package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/gistapp/gist/internal/log"
	"github.com/gistapp/gist/internal/model"
	"github.com/gistapp/gist/internal/storage"
)

var _ storage.Repository = &Repository{}

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

// Repository is an in-memory implementation of storage.Repository.
type Repository struct {
	caches   map[string]model.TaskCache
	sessions map[string]model.OnboardingSession
	mu       sync.RWMutex
	logger   log.Logger
}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		caches:   make(map[string]model.TaskCache),
		sessions: make(map[string]model.OnboardingSession),
		logger:   cfg.Logger,
	}, nil
}

// GetTaskCache retrieves the task cache of a user.
func (r *Repository) GetTaskCache(ctx context.Context, userID string) (*model.TaskCache, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.caches[userID]
	if !ok {
		return nil, fmt.Errorf("task cache for user %s: %w", userID, model.ErrNotFound)
	}

	// Return a copy.
	c.Tasks = model.CopyTasks(c.Tasks)
	return &c, nil
}

// SaveTaskCache creates or replaces the task cache of a user.
func (r *Repository) SaveTaskCache(ctx context.Context, c model.TaskCache) error {
	if c.UserID == "" {
		return fmt.Errorf("user id is required: %w", model.ErrNotValid)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c.Tasks = model.CopyTasks(c.Tasks)
	r.caches[c.UserID] = c
	r.logger.Debugf("Saved task cache in repository: %s", c.UserID)

	return nil
}

// DeleteTaskCache deletes the task cache of a user.
func (r *Repository) DeleteTaskCache(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.caches, userID)
	r.logger.Debugf("Deleted task cache from repository: %s", userID)

	return nil
}

// GetOnboardingSession retrieves the onboarding session of a user.
func (r *Repository) GetOnboardingSession(ctx context.Context, userID string) (*model.OnboardingSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[userID]
	if !ok {
		return nil, fmt.Errorf("onboarding session for user %s: %w", userID, model.ErrNotFound)
	}

	c := s.Copy()
	return &c, nil
}

// SaveOnboardingSession creates or replaces the onboarding session of a user.
func (r *Repository) SaveOnboardingSession(ctx context.Context, s model.OnboardingSession) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid onboarding session: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[s.UserID] = s.Copy()
	r.logger.Debugf("Saved onboarding session in repository: %s", s.UserID)

	return nil
}

// DeleteOnboardingSession deletes the onboarding session of a user.
func (r *Repository) DeleteOnboardingSession(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, userID)
	r.logger.Debugf("Deleted onboarding session from repository: %s", userID)

	return nil
}
