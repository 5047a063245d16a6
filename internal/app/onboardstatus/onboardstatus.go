package onboardstatus

import (
	"context"
	"errors"
	"fmt"

	"github.com/gistapp/gist/internal/log"
	"github.com/gistapp/gist/internal/model"
	"github.com/gistapp/gist/internal/storage"
)

// StatusChecker checks the backend task generation job.
type StatusChecker interface {
	CheckOnboarding(ctx context.Context) (*model.JobStatus, error)
}

// ServiceConfig is the configuration for the onboarding status service.
type ServiceConfig struct {
	Sessions storage.SessionRepository
	Checker  StatusChecker
	Logger   log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Sessions == nil {
		return fmt.Errorf("session repository is required")
	}

	if c.Checker == nil {
		return fmt.Errorf("status checker is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service returns the onboarding progress of a user.
type Service struct {
	sessions storage.SessionRepository
	checker  StatusChecker
	logger   log.Logger
}

// NewService creates a new onboarding status service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		sessions: cfg.Sessions,
		checker:  cfg.Checker,
		logger:   cfg.Logger,
	}, nil
}

// Request represents the onboarding status request parameters.
type Request struct {
	UserID string
}

// Result is the onboarding progress, local and remote.
type Result struct {
	// Session is nil when there is no onboarding in progress on this machine.
	Session *model.OnboardingSession
	// Job is nil when the backend could not be checked.
	Job *model.JobStatus
}

// Run returns the onboarding status. The backend being down is not an error.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("user id is required: %w", model.ErrNotValid)
	}

	res := &Result{}

	session, err := s.sessions.GetOnboardingSession(ctx, req.UserID)
	switch {
	case errors.Is(err, model.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("could not get onboarding session: %w", err)
	default:
		res.Session = session
	}

	job, err := s.checker.CheckOnboarding(ctx)
	if err != nil {
		s.logger.Warningf("Could not check task generation job: %s", err)
	} else {
		res.Job = job
	}

	return res, nil
}
