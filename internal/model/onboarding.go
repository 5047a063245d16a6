package model

import (
	"fmt"
	"slices"
	"time"
)

// OnboardingStep is a step of the onboarding flow.
type OnboardingStep string

const (
	OnboardingStepEmailRating       OnboardingStep = "email-rating"
	OnboardingStepQuestions         OnboardingStep = "questions"
	OnboardingStepReviewPersonality OnboardingStep = "review-personality"
	OnboardingStepTaskGeneration    OnboardingStep = "task-generation"
	OnboardingStepCompleted         OnboardingStep = "completed"
)

// OnboardingSteps are the steps in the order they are traversed.
var OnboardingSteps = []OnboardingStep{
	OnboardingStepEmailRating,
	OnboardingStepQuestions,
	OnboardingStepReviewPersonality,
	OnboardingStepTaskGeneration,
	OnboardingStepCompleted,
}

// Valid returns true if the step is known.
func (s OnboardingStep) Valid() bool { return slices.Contains(OnboardingSteps, s) }

// Index returns the 0 based position of the step in the flow, -1 if unknown.
func (s OnboardingStep) Index() int { return slices.Index(OnboardingSteps, s) }

// DefaultEmailRating is the rating every fetched email starts with.
const DefaultEmailRating = 5

// Participant is an email sender or recipient.
type Participant struct {
	Name  string
	Email string
}

// Email is the reduced email record used during onboarding.
type Email struct {
	ID      string
	Subject string
	Body    string
	Snippet string
	From    []Participant
	// Date is a unix timestamp in seconds.
	Date int64
}

// Simplified returns the email with only the fields the backend needs to rate it,
// the body is dropped and only the first sender is kept.
func (e Email) Simplified() Email {
	s := Email{
		ID:      e.ID,
		Subject: e.Subject,
		Snippet: e.Snippet,
		Date:    e.Date,
	}
	if len(e.From) > 0 {
		s.From = []Participant{e.From[0]}
	}
	return s
}

// Question is a personalization question with preset options.
type Question struct {
	Prompt  string
	Options []string
}

// HasOption returns true if the option is one of the question options.
func (q Question) HasOption(option string) bool { return slices.Contains(q.Options, option) }

// DomainInference is the result of inferring the user domain.
type DomainInference struct {
	Questions []Question
	Summary   string
	Domain    string
}

// DomainInferenceRequest is the input of a domain inference.
type DomainInferenceRequest struct {
	EmailAddress string
	RatedEmails  []Email
	Ratings      map[string]int
}

// OnboardingProfile is what the user answered during onboarding, used to generate the personality.
type OnboardingProfile struct {
	Questions    []Question
	Answers      map[string]string
	Domain       string
	EmailRatings map[string]int
	RatedEmails  []Email
}

// OnboardingSession is the persisted state of the onboarding flow for a user.
type OnboardingSession struct {
	UserID       string
	EmailAddress string
	Step         OnboardingStep
	Emails       []Email
	Ratings      map[string]int
	Domain       string
	Questions    []Question
	Answers      map[string]string
	Summary      string
	// SummaryEdited is true when the user changed the server generated summary.
	SummaryEdited bool
	// JobRequestedAt is set once the task generation job has been requested.
	JobRequestedAt *time.Time
	UpdatedAt      time.Time
}

// NewOnboardingSession returns a session at its initial state.
func NewOnboardingSession(userID, emailAddress string) OnboardingSession {
	return OnboardingSession{
		UserID:       userID,
		EmailAddress: emailAddress,
		Step:         OnboardingStepEmailRating,
		Ratings:      map[string]int{},
		Answers:      map[string]string{},
	}
}

// Validate validates the onboarding session.
func (s OnboardingSession) Validate() error {
	if s.UserID == "" {
		return fmt.Errorf("user id is required: %w", ErrNotValid)
	}

	if !s.Step.Valid() {
		return fmt.Errorf("onboarding step %q is invalid: %w", s.Step, ErrNotValid)
	}

	return nil
}

// UnansweredQuestions returns the prompts of the questions without an answer, in question order.
func (s OnboardingSession) UnansweredQuestions() []string {
	var missing []string
	for _, q := range s.Questions {
		if s.Answers[q.Prompt] == "" {
			missing = append(missing, q.Prompt)
		}
	}
	return missing
}

// AllAnswered returns true when every question has an answer.
func (s OnboardingSession) AllAnswered() bool { return len(s.UnansweredQuestions()) == 0 }

// Profile returns the onboarding profile of the session.
func (s OnboardingSession) Profile() OnboardingProfile {
	rated := make([]Email, 0, len(s.Emails))
	for _, e := range s.Emails {
		rated = append(rated, e.Simplified())
	}

	return OnboardingProfile{
		Questions:    slices.Clone(s.Questions),
		Answers:      copyMap(s.Answers),
		Domain:       s.Domain,
		EmailRatings: copyMap(s.Ratings),
		RatedEmails:  rated,
	}
}

// Copy returns a deep copy of the session.
func (s OnboardingSession) Copy() OnboardingSession {
	c := s
	c.Emails = make([]Email, 0, len(s.Emails))
	for _, e := range s.Emails {
		e.From = slices.Clone(e.From)
		c.Emails = append(c.Emails, e)
	}
	c.Questions = make([]Question, 0, len(s.Questions))
	for _, q := range s.Questions {
		q.Options = slices.Clone(q.Options)
		c.Questions = append(c.Questions, q)
	}
	c.Ratings = copyMap(s.Ratings)
	c.Answers = copyMap(s.Answers)
	if s.JobRequestedAt != nil {
		t := *s.JobRequestedAt
		c.JobRequestedAt = &t
	}
	return c
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	res := make(map[K]V, len(m))
	for k, v := range m {
		res[k] = v
	}
	return res
}

// JobStatus is the backend view of the onboarding and task generation job.
type JobStatus struct {
	Onboarding bool
	TaskGen    bool
	InProgress bool
	Success    bool
}

// Running returns true when a task generation job is in flight.
func (j JobStatus) Running() bool { return j.TaskGen }

// Completed returns true when the requested task generation finished. The backend
// reports the same flags between the personality submission and the job start, so
// they only mean completion once the job was requested.
func (j JobStatus) Completed(requested bool) bool {
	return requested && j.Onboarding && !j.TaskGen
}
