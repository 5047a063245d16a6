package onboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/gistapp/gist/internal/log"
	"github.com/gistapp/gist/internal/model"
	"github.com/gistapp/gist/internal/onboarding"
)

// Machine is the onboarding state machine driven by the flow.
type Machine interface {
	Resume(ctx context.Context) error
	Session() model.OnboardingSession
	LoadEmails(ctx context.Context) error
	RateEmails(ctx context.Context, ratings map[string]int) error
	AdvanceToQuestions(ctx context.Context) error
	Answer(ctx context.Context, prompt, option string) error
	AdvanceToReview(ctx context.Context) error
	EditSummary(ctx context.Context, summary string) error
	Confirm(ctx context.Context) error
	Back(ctx context.Context) error
	Done() <-chan struct{}
}

var _ Machine = &onboarding.Machine{}

// Prompter asks the user for the onboarding input.
type Prompter interface {
	// RateEmails returns the ratings of the emails, starting from the current ones.
	RateEmails(ctx context.Context, emails []model.Email, ratings map[string]int) (map[string]int, error)
	// AnswerQuestions returns the answers of the questions, starting from the current ones.
	AnswerQuestions(ctx context.Context, questions []model.Question, answers map[string]string) (map[string]string, error)
	// ReviewSummary returns the summary to keep and if the user confirms it, not
	// confirming goes back to the questions.
	ReviewSummary(ctx context.Context, summary string) (edited string, confirmed bool, err error)
}

// ServiceConfig is the configuration for the onboarding service.
type ServiceConfig struct {
	Machine  Machine
	Prompter Prompter
	// StreamErrors receives the terminal status connection errors of the machine, optional.
	StreamErrors <-chan error
	Logger       log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Machine == nil {
		return fmt.Errorf("onboarding machine is required")
	}

	if c.Prompter == nil {
		return fmt.Errorf("prompter is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service runs the onboarding flow until the tasks are generated.
type Service struct {
	machine      Machine
	prompter     Prompter
	streamErrors <-chan error
	logger       log.Logger
}

// NewService creates a new onboarding service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		machine:      cfg.Machine,
		prompter:     cfg.Prompter,
		streamErrors: cfg.StreamErrors,
		logger:       cfg.Logger,
	}, nil
}

// Run resumes the onboarding where it was left and walks the remaining steps.
func (s *Service) Run(ctx context.Context) error {
	if err := s.machine.Resume(ctx); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		session := s.machine.Session()
		s.logger.Debugf("Onboarding at %s step", session.Step)

		var err error
		switch session.Step {
		case model.OnboardingStepEmailRating:
			err = s.rateEmails(ctx, session)
		case model.OnboardingStepQuestions:
			err = s.answerQuestions(ctx, session)
		case model.OnboardingStepReviewPersonality:
			err = s.review(ctx, session)
		case model.OnboardingStepTaskGeneration:
			return s.waitTasks(ctx)
		case model.OnboardingStepCompleted:
			return nil
		default:
			return fmt.Errorf("unknown onboarding step %q: %w", session.Step, model.ErrNotValid)
		}
		if err != nil {
			return err
		}
	}
}

func (s *Service) rateEmails(ctx context.Context, session model.OnboardingSession) error {
	if len(session.Emails) == 0 {
		if err := s.machine.LoadEmails(ctx); err != nil {
			return err
		}
		session = s.machine.Session()
	}

	// Nothing to rate, the step is skipped.
	if len(session.Emails) > 0 {
		ratings, err := s.prompter.RateEmails(ctx, session.Emails, session.Ratings)
		if err != nil {
			return err
		}
		if err := s.machine.RateEmails(ctx, ratings); err != nil {
			return err
		}
	}

	return s.machine.AdvanceToQuestions(ctx)
}

func (s *Service) answerQuestions(ctx context.Context, session model.OnboardingSession) error {
	answers, err := s.prompter.AnswerQuestions(ctx, session.Questions, session.Answers)
	if err != nil {
		return err
	}

	for _, q := range session.Questions {
		if a := answers[q.Prompt]; a != "" && a != session.Answers[q.Prompt] {
			if err := s.machine.Answer(ctx, q.Prompt, a); err != nil {
				return err
			}
		}
	}

	err = s.machine.AdvanceToReview(ctx)
	if errors.Is(err, onboarding.ErrUnansweredQuestions) {
		s.logger.Warningf("%s", err)
		return nil
	}
	return err
}

func (s *Service) review(ctx context.Context, session model.OnboardingSession) error {
	edited, confirmed, err := s.prompter.ReviewSummary(ctx, session.Summary)
	if err != nil {
		return err
	}

	if edited != session.Summary {
		if err := s.machine.EditSummary(ctx, edited); err != nil {
			return err
		}
	}

	if !confirmed {
		return s.machine.Back(ctx)
	}
	return s.machine.Confirm(ctx)
}

func (s *Service) waitTasks(ctx context.Context) error {
	s.logger.Infof("Waiting for the task generation")

	select {
	case <-s.machine.Done():
		return nil
	case err := <-s.streamErrors:
		return fmt.Errorf("task generation status: %w", err)
	case <-ctx.Done():
		return ctx.Err()
	}
}
