package onboardreset

import (
	"context"
	"fmt"

	"github.com/gistapp/gist/internal/log"
	"github.com/gistapp/gist/internal/model"
	"github.com/gistapp/gist/internal/storage"
)

// ServiceConfig is the configuration for the onboarding reset service.
type ServiceConfig struct {
	Sessions storage.SessionRepository
	Logger   log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Sessions == nil {
		return fmt.Errorf("session repository is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service abandons the onboarding progress of a user.
type Service struct {
	sessions storage.SessionRepository
	logger   log.Logger
}

// NewService creates a new onboarding reset service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{sessions: cfg.Sessions, logger: cfg.Logger}, nil
}

// Request represents the onboarding reset request parameters.
type Request struct {
	UserID string
}

// Run drops the persisted onboarding, the next run starts from the beginning.
// A running task generation job is not affected.
func (s *Service) Run(ctx context.Context, req Request) error {
	if req.UserID == "" {
		return fmt.Errorf("user id is required: %w", model.ErrNotValid)
	}

	if err := s.sessions.DeleteOnboardingSession(ctx, req.UserID); err != nil {
		return fmt.Errorf("could not delete onboarding session: %w", err)
	}
	s.logger.Infof("Onboarding progress removed")

	return nil
}
