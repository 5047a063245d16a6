package lib

import (
	"errors"
	"time"

	"github.com/gistapp/gist/internal/model"
	"github.com/gistapp/gist/internal/statusstream"
)

var (
	// ErrNotFound is returned when a resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotValid is returned on invalid input.
	ErrNotValid = errors.New("not valid")
	// ErrConnectionLost is returned when the task generation status could not be followed.
	ErrConnectionLost = errors.New("connection lost")
	// ErrTimeout is returned when the task generation status went silent for too long.
	ErrTimeout = errors.New("timeout")
)

// Priority is the urgency level the backend assigns to a task.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Task is a prioritized task of the user.
type Task struct {
	ID   string
	Text string
	// Deadline is free text, as extracted from the email.
	Deadline string
	Priority Priority
	// Scores are nil when the backend did not score the task.
	RelevanceScore *float64
	UtilityScore   *float64
	CostScore      *float64
	// Classification is the bucket of the task (e.g. "Main Focus-View").
	Classification string
	// MessageID is the email the task was extracted from.
	MessageID string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListTasksOpts are the options of [Client.ListTasks].
type ListTasksOpts struct {
	// Refresh ignores the local cache.
	Refresh bool
	// Classification only returns the tasks of this bucket, case insensitive.
	Classification string
}

// MoveResult is the result of [Client.MoveTask].
type MoveResult struct {
	// Moved is false when the move left the order untouched.
	Moved bool
	// Tasks is the display order after the move.
	Tasks []Task
}

// StatusKind is the kind of a task generation status event.
type StatusKind string

const (
	StatusKindConnected  StatusKind = "connected"
	StatusKindProcessing StatusKind = "processing"
	StatusKindCompleted  StatusKind = "completed"
	StatusKindError      StatusKind = "error"
)

// StatusEvent is a task generation progress notification.
type StatusEvent struct {
	Kind      StatusKind
	Message   string
	Timestamp time.Time
}

// OnboardingStep is a step of the onboarding.
type OnboardingStep string

const (
	OnboardingStepEmailRating       OnboardingStep = "email-rating"
	OnboardingStepQuestions         OnboardingStep = "questions"
	OnboardingStepReviewPersonality OnboardingStep = "review-personality"
	OnboardingStepTaskGeneration    OnboardingStep = "task-generation"
	OnboardingStepCompleted         OnboardingStep = "completed"
)

// JobStatus is the backend task generation job status.
type JobStatus struct {
	Onboarding     bool
	TaskGeneration bool
	InProgress     bool
	Success        bool
}

// Running returns true when a task generation job is in flight.
func (j JobStatus) Running() bool { return j.TaskGeneration }

// OnboardingStatus is the onboarding progress of the user.
type OnboardingStatus struct {
	// Step is empty when there is no onboarding in progress on this machine.
	Step    OnboardingStep
	Domain  string
	Summary string
	// JobRequestedAt is set once the task generation was requested.
	JobRequestedAt *time.Time
	UpdatedAt      time.Time
	// Job is nil when the backend could not be checked.
	Job *JobStatus
}

// JobCompleted returns true when the task generation requested from this machine finished.
func (s OnboardingStatus) JobCompleted() bool {
	if s.Job == nil || s.JobRequestedAt == nil {
		return false
	}
	return s.Job.Onboarding && !s.Job.TaskGeneration
}

func fromInternalTask(t model.Task) Task {
	return Task{
		ID:             t.ID,
		Text:           t.Text,
		Deadline:       t.Deadline,
		Priority:       Priority(t.Priority),
		RelevanceScore: t.RelevanceScore,
		UtilityScore:   t.UtilityScore,
		CostScore:      t.CostScore,
		Classification: t.Classification,
		MessageID:      t.MessageID,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

func fromInternalTaskList(ts []model.Task) []Task {
	result := make([]Task, len(ts))
	for i, t := range ts {
		result[i] = fromInternalTask(t)
	}
	return result
}

func fromInternalStatusEvent(ev model.StatusEvent) StatusEvent {
	return StatusEvent{
		Kind:      StatusKind(ev.Kind),
		Message:   ev.Message,
		Timestamp: ev.Timestamp,
	}
}

func fromInternalOnboarding(s *model.OnboardingSession, j *model.JobStatus) *OnboardingStatus {
	res := &OnboardingStatus{}
	if s != nil {
		res.Step = OnboardingStep(s.Step)
		res.Domain = s.Domain
		res.Summary = s.Summary
		res.JobRequestedAt = s.JobRequestedAt
		res.UpdatedAt = s.UpdatedAt
	}
	if j != nil {
		res.Job = &JobStatus{
			Onboarding:     j.Onboarding,
			TaskGeneration: j.TaskGen,
			InProgress:     j.InProgress,
			Success:        j.Success,
		}
	}
	return res
}

func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, model.ErrNotFound):
		return joinErrors(err, ErrNotFound)
	case errors.Is(err, model.ErrNotValid):
		return joinErrors(err, ErrNotValid)
	case errors.Is(err, statusstream.ErrConnectionLost), errors.Is(err, statusstream.ErrStreamEnded):
		return joinErrors(err, ErrConnectionLost)
	case errors.Is(err, statusstream.ErrTimeout):
		return joinErrors(err, ErrTimeout)
	default:
		return err
	}
}

func joinErrors(original, sentinel error) error {
	return &mappedError{original: original, sentinel: sentinel}
}

type mappedError struct {
	original error
	sentinel error
}

func (e *mappedError) Error() string { return e.original.Error() }

func (e *mappedError) Is(target error) bool {
	return target == e.sentinel
}

func (e *mappedError) Unwrap() error { return e.original }
