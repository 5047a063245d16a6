package onboardwatch

import (
	"context"
	"fmt"

	"github.com/gistapp/gist/internal/log"
	"github.com/gistapp/gist/internal/model"
	"github.com/gistapp/gist/internal/statusstream"
)

// StatusStreamer opens status connections.
type StatusStreamer interface {
	Open(ctx context.Context, onEvent statusstream.EventFunc, onError statusstream.ErrorFunc) (*statusstream.Handle, error)
}

// ServiceConfig is the configuration for the onboarding watch service.
type ServiceConfig struct {
	Streamer StatusStreamer
	Logger   log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Streamer == nil {
		return fmt.Errorf("status streamer is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service follows the task generation job until it ends.
type Service struct {
	streamer StatusStreamer
	logger   log.Logger
}

// NewService creates a new onboarding watch service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{streamer: cfg.Streamer, logger: cfg.Logger}, nil
}

// Request represents the onboarding watch request parameters.
type Request struct {
	// OnEvent receives every status event.
	OnEvent func(ev model.StatusEvent)
}

// Run blocks until the job completes, the connection is lost or the context is cancelled.
func (s *Service) Run(ctx context.Context, req Request) error {
	onEvent := req.OnEvent
	if onEvent == nil {
		onEvent = func(model.StatusEvent) {}
	}

	errc := make(chan error, 1)
	h, err := s.streamer.Open(ctx, onEvent, func(err error) { errc <- err })
	if err != nil {
		return fmt.Errorf("could not open status connection: %w", err)
	}
	defer h.Close()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errc:
		return fmt.Errorf("task generation status: %w", err)
	case <-h.Done():
	}

	// The error callback runs before the connection ends.
	select {
	case err := <-errc:
		return fmt.Errorf("task generation status: %w", err)
	default:
	}

	return ctx.Err()
}
