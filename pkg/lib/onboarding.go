package lib

import (
	"context"
	"fmt"

	"github.com/gistapp/gist/internal/app/onboardreset"
	"github.com/gistapp/gist/internal/app/onboardstatus"
	"github.com/gistapp/gist/internal/app/onboardwatch"
	"github.com/gistapp/gist/internal/model"
)

// OnboardingStatus returns the local onboarding progress and the backend
// task generation job status.
func (c *Client) OnboardingStatus(ctx context.Context) (*OnboardingStatus, error) {
	svc, err := onboardstatus.NewService(onboardstatus.ServiceConfig{
		Sessions: c.repo,
		Checker:  c.backend,
		Logger:   c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, onboardstatus.Request{UserID: c.userID})
	if err != nil {
		return nil, mapError(err)
	}

	return fromInternalOnboarding(res.Session, res.Job), nil
}

// WatchTaskGeneration follows the task generation status. It blocks until the
// job completes, the status is lost or the context is cancelled.
func (c *Client) WatchTaskGeneration(ctx context.Context, onEvent func(StatusEvent)) error {
	svc, err := onboardwatch.NewService(onboardwatch.ServiceConfig{
		Streamer: c.status,
		Logger:   c.logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	err = svc.Run(ctx, onboardwatch.Request{
		OnEvent: func(ev model.StatusEvent) {
			if onEvent != nil {
				onEvent(fromInternalStatusEvent(ev))
			}
		},
	})
	return mapError(err)
}

// ResetOnboarding forgets the local onboarding progress. A running task
// generation job is not affected.
func (c *Client) ResetOnboarding(ctx context.Context) error {
	svc, err := onboardreset.NewService(onboardreset.ServiceConfig{
		Sessions: c.repo,
		Logger:   c.logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	return mapError(svc.Run(ctx, onboardreset.Request{UserID: c.userID}))
}
