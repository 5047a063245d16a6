package onboarding

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/gistapp/gist/internal/conventions"
	"github.com/gistapp/gist/internal/log"
	"github.com/gistapp/gist/internal/model"
	"github.com/gistapp/gist/internal/notify"
	"github.com/gistapp/gist/internal/statusstream"
	"github.com/gistapp/gist/internal/storage"
)

// Email rating bounds.
const (
	MinEmailRating = 1
	MaxEmailRating = 10
)

// ErrUnansweredQuestions is returned when advancing to the review with questions left without an answer.
var ErrUnansweredQuestions = fmt.Errorf("unanswered questions: %w", model.ErrPrecondition)

// Backend is the onboarding backend API.
type Backend interface {
	ListOnboardingEmails(ctx context.Context, limit int, folder string) ([]model.Email, error)
	InferDomain(ctx context.Context, r model.DomainInferenceRequest) (*model.DomainInference, error)
	SubmitOnboarding(ctx context.Context, p model.OnboardingProfile) (string, error)
	UpdatePersonality(ctx context.Context, personality []string) error
	StartOnboarding(ctx context.Context) error
	CheckOnboarding(ctx context.Context) (*model.JobStatus, error)
}

// StatusStreamer opens the task generation status connections.
type StatusStreamer interface {
	Open(ctx context.Context, onEvent statusstream.EventFunc, onError statusstream.ErrorFunc) (*statusstream.Handle, error)
}

// MachineConfig is the configuration of the onboarding state machine.
type MachineConfig struct {
	UserID       string
	EmailAddress string
	Backend      Backend
	Sessions     storage.SessionRepository
	Streamer     StatusStreamer
	Notifier     notify.Notifier
	EmailLimit   int
	EmailFolder  string
	// OnStatus receives the task generation progress events, optional.
	OnStatus func(ev model.StatusEvent)
	// OnStreamError receives the terminal status connection errors, optional.
	OnStreamError func(err error)
	Logger        log.Logger
	Now           func() time.Time
}

func (c *MachineConfig) defaults() error {
	if c.UserID == "" {
		return fmt.Errorf("user id is required")
	}

	if c.Backend == nil {
		return fmt.Errorf("backend is required")
	}

	if c.Sessions == nil {
		return fmt.Errorf("session repository is required")
	}

	if c.Streamer == nil {
		return fmt.Errorf("status streamer is required")
	}

	if c.Notifier == nil {
		c.Notifier = notify.Noop
	}

	if c.EmailLimit <= 0 {
		c.EmailLimit = conventions.DefaultEmailLimit
	}

	if c.OnStatus == nil {
		c.OnStatus = func(model.StatusEvent) {}
	}

	if c.OnStreamError == nil {
		c.OnStreamError = func(error) {}
	}

	if c.Now == nil {
		c.Now = time.Now
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "onboarding.Machine", "user-id": c.UserID})

	return nil
}

// Machine is the onboarding flow of a user:
// email-rating -> questions -> review-personality -> task-generation -> completed.
//
// Step operations are serialized. Abandon and Close interrupt them, a result
// that arrives after the state moved on is discarded.
type Machine struct {
	userID        string
	emailAddress  string
	backend       Backend
	sessions      storage.SessionRepository
	streamer      StatusStreamer
	notifier      notify.Notifier
	emailLimit    int
	emailFolder   string
	onStatus      func(model.StatusEvent)
	onStreamError func(error)
	logger        log.Logger
	now           func() time.Time

	// ctx scopes the status connections to the machine lifetime.
	ctx    context.Context
	cancel context.CancelFunc

	opMu sync.Mutex

	mu      sync.Mutex
	session model.OnboardingSession
	epoch   uint64
	stream  *statusstream.Handle
	// streamSeq identifies the last opened status connection.
	streamSeq uint64
	done      chan struct{}
	doneOnce  sync.Once
	closed    bool
}

// NewMachine returns a new onboarding state machine, Resume must be called before using it.
func NewMachine(cfg MachineConfig) (*Machine, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Machine{
		userID:        cfg.UserID,
		emailAddress:  cfg.EmailAddress,
		backend:       cfg.Backend,
		sessions:      cfg.Sessions,
		streamer:      cfg.Streamer,
		notifier:      cfg.Notifier,
		emailLimit:    cfg.EmailLimit,
		emailFolder:   cfg.EmailFolder,
		onStatus:      cfg.OnStatus,
		onStreamError: cfg.OnStreamError,
		logger:        cfg.Logger,
		now:           cfg.Now,
		ctx:           ctx,
		cancel:        cancel,
		session:       model.NewOnboardingSession(cfg.UserID, cfg.EmailAddress),
		done:          make(chan struct{}),
	}, nil
}

// Resume loads the persisted session, a missing one starts the flow from the beginning.
// Resuming into the task generation reattaches the status connection without starting
// the job again, it also retries a status connection that failed.
func (m *Machine) Resume(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	s, err := m.sessions.GetOnboardingSession(ctx, m.userID)
	switch {
	case errors.Is(err, model.ErrNotFound):
		fresh := model.NewOnboardingSession(m.userID, m.emailAddress)
		s = &fresh
	case err != nil:
		return fmt.Errorf("could not load onboarding session: %w", err)
	}
	if s.EmailAddress == "" {
		s.EmailAddress = m.emailAddress
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return fmt.Errorf("machine closed: %w", model.ErrPrecondition)
	}
	m.session = s.Copy()
	m.epoch++
	m.mu.Unlock()

	m.logger.Infof("Onboarding resumed at %s step", s.Step)

	switch s.Step {
	case model.OnboardingStepTaskGeneration:
		return m.attachStream()
	case model.OnboardingStepCompleted:
		m.complete()
	}

	return nil
}

// Session returns a copy of the current session.
func (m *Machine) Session() model.OnboardingSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Copy()
}

// Step returns the current step.
func (m *Machine) Step() model.OnboardingStep {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Step
}

// Done is closed when the onboarding reaches the completed step.
func (m *Machine) Done() <-chan struct{} { return m.done }

// LoadEmails fetches the batch of emails to rate, every email starts with the default rating.
func (m *Machine) LoadEmails(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	epoch, err := m.expectStep(model.OnboardingStepEmailRating)
	if err != nil {
		return err
	}

	emails, err := m.backend.ListOnboardingEmails(ctx, m.emailLimit, m.emailFolder)
	if err != nil {
		m.notifyError(ctx, "Could not load your emails", err)
		return fmt.Errorf("could not list onboarding emails: %w", err)
	}

	ratings := make(map[string]int, len(emails))
	for _, e := range emails {
		ratings[e.ID] = model.DefaultEmailRating
	}

	m.commit(ctx, epoch, func(s *model.OnboardingSession) {
		s.Emails = emails
		s.Ratings = ratings
	})
	m.logger.Debugf("Loaded %d onboarding emails", len(emails))

	return nil
}

// RateEmail rates one of the loaded emails.
func (m *Machine) RateEmail(ctx context.Context, emailID string, rating int) error {
	return m.RateEmails(ctx, map[string]int{emailID: rating})
}

// RateEmails rates many emails at once, nothing is applied if any rating is invalid.
func (m *Machine) RateEmails(ctx context.Context, ratings map[string]int) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.Step != model.OnboardingStepEmailRating {
		return m.stepError(model.OnboardingStepEmailRating)
	}

	known := make(map[string]bool, len(m.session.Emails))
	for _, e := range m.session.Emails {
		known[e.ID] = true
	}
	for id, rating := range ratings {
		if !known[id] {
			return fmt.Errorf("email %s: %w", id, model.ErrNotFound)
		}
		if rating < MinEmailRating || rating > MaxEmailRating {
			return fmt.Errorf("rating %d of email %s is not between %d and %d: %w", rating, id, MinEmailRating, MaxEmailRating, model.ErrNotValid)
		}
	}

	if m.session.Ratings == nil {
		m.session.Ratings = map[string]int{}
	}
	maps.Copy(m.session.Ratings, ratings)
	m.persistLocked(ctx)

	return nil
}

// AdvanceToQuestions infers the user domain from the email address and the rated
// emails and moves to the questions step. It works without emails.
func (m *Machine) AdvanceToQuestions(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	epoch, err := m.expectStep(model.OnboardingStepEmailRating)
	if err != nil {
		return err
	}

	s := m.Session()
	req := model.DomainInferenceRequest{
		EmailAddress: s.EmailAddress,
		Ratings:      s.Ratings,
	}
	for _, e := range s.Emails {
		req.RatedEmails = append(req.RatedEmails, e.Simplified())
	}

	inf, err := m.backend.InferDomain(ctx, req)
	if err != nil {
		m.notifyError(ctx, "Could not personalize your questions", err)
		return fmt.Errorf("could not infer domain: %w", err)
	}

	m.commit(ctx, epoch, func(s *model.OnboardingSession) {
		s.Domain = inf.Domain
		s.Questions = inf.Questions
		s.Summary = inf.Summary
		s.SummaryEdited = false

		// Answers of questions that are asked again are kept.
		answers := map[string]string{}
		for _, q := range inf.Questions {
			if a, ok := s.Answers[q.Prompt]; ok && q.HasOption(a) {
				answers[q.Prompt] = a
			}
		}
		s.Answers = answers
		s.Step = model.OnboardingStepQuestions
	})

	return nil
}

// Answer sets the answer of a question, the option must be one of the question options.
func (m *Machine) Answer(ctx context.Context, prompt, option string) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.Step != model.OnboardingStepQuestions {
		return m.stepError(model.OnboardingStepQuestions)
	}

	var question *model.Question
	for i := range m.session.Questions {
		if m.session.Questions[i].Prompt == prompt {
			question = &m.session.Questions[i]
			break
		}
	}
	if question == nil {
		return fmt.Errorf("question %q: %w", prompt, model.ErrNotFound)
	}
	if !question.HasOption(option) {
		return fmt.Errorf("%q is not an option of question %q: %w", option, prompt, model.ErrNotValid)
	}

	if m.session.Answers == nil {
		m.session.Answers = map[string]string{}
	}
	m.session.Answers[prompt] = option
	m.persistLocked(ctx)

	return nil
}

// Back goes to the previous step, answers and ratings are kept.
func (m *Machine) Back(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.session.Step {
	case model.OnboardingStepQuestions:
		m.session.Step = model.OnboardingStepEmailRating
	case model.OnboardingStepReviewPersonality:
		m.session.Step = model.OnboardingStepQuestions
	default:
		return fmt.Errorf("can't go back from %s step: %w", m.session.Step, model.ErrPrecondition)
	}
	m.epoch++
	m.persistLocked(ctx)

	return nil
}

// AdvanceToReview submits the answers and moves to the personality review. Every
// question needs an answer, otherwise ErrUnansweredQuestions is returned before
// calling the backend. Failed submissions keep the answers.
func (m *Machine) AdvanceToReview(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	epoch, err := m.expectStep(model.OnboardingStepQuestions)
	if err != nil {
		return err
	}

	s := m.Session()
	if missing := s.UnansweredQuestions(); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrUnansweredQuestions, strings.Join(missing, ", "))
	}

	summary, err := m.backend.SubmitOnboarding(ctx, s.Profile())
	if err != nil {
		title := "Could not generate your personality"
		if errors.Is(err, model.ErrNotValid) {
			title = "Please review your answers"
		}
		m.notifyError(ctx, title, err)
		return fmt.Errorf("could not submit onboarding: %w", err)
	}

	m.commit(ctx, epoch, func(s *model.OnboardingSession) {
		if summary != "" {
			s.Summary = summary
		}
		s.SummaryEdited = false
		s.Step = model.OnboardingStepReviewPersonality
	})

	return nil
}

// EditSummary replaces the personality summary with the user's version.
func (m *Machine) EditSummary(ctx context.Context, summary string) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.Step != model.OnboardingStepReviewPersonality {
		return m.stepError(model.OnboardingStepReviewPersonality)
	}

	summary = strings.TrimSpace(summary)
	if summary == "" {
		return fmt.Errorf("summary can't be empty: %w", model.ErrNotValid)
	}

	if summary != m.session.Summary {
		m.session.Summary = summary
		m.session.SummaryEdited = true
	}
	m.persistLocked(ctx)

	return nil
}

// Confirm confirms the personality and starts the task generation. An edited summary
// is saved first. The job is only started when the backend has none running or
// finished, then the status connection is opened.
func (m *Machine) Confirm(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	epoch, err := m.expectStep(model.OnboardingStepReviewPersonality)
	if err != nil {
		return err
	}

	s := m.Session()
	if s.SummaryEdited {
		if err := m.backend.UpdatePersonality(ctx, []string{s.Summary}); err != nil {
			m.notifyError(ctx, "Could not save your personality", err)
			return fmt.Errorf("could not update personality: %w", err)
		}
	}

	status, err := m.backend.CheckOnboarding(ctx)
	if err != nil {
		m.notifyError(ctx, "Could not check the task generation", err)
		return fmt.Errorf("could not check onboarding status: %w", err)
	}

	requested := s.JobRequestedAt != nil
	switch {
	case status.Running():
		m.logger.Infof("Task generation already running, not starting it again")
	case status.Completed(requested):
		m.logger.Infof("Task generation already completed")
	default:
		if err := m.backend.StartOnboarding(ctx); err != nil {
			m.notifyError(ctx, "Could not start the task generation", err)
			return fmt.Errorf("could not start onboarding: %w", err)
		}
		m.logger.Infof("Task generation started")
	}

	now := m.now().UTC()
	if !m.commit(ctx, epoch, func(s *model.OnboardingSession) {
		s.SummaryEdited = false
		s.JobRequestedAt = &now
		s.Step = model.OnboardingStepTaskGeneration
	}) {
		return nil
	}

	if status.Completed(requested) {
		m.complete()
		return nil
	}

	return m.attachStream()
}

// Abandon drops the onboarding progress and starts again from the beginning.
func (m *Machine) Abandon(ctx context.Context) error {
	m.closeStream()

	m.mu.Lock()
	m.session = model.NewOnboardingSession(m.userID, m.emailAddress)
	m.epoch++
	m.mu.Unlock()

	if err := m.sessions.DeleteOnboardingSession(ctx, m.userID); err != nil {
		return fmt.Errorf("could not delete onboarding session: %w", err)
	}
	m.logger.Infof("Onboarding abandoned")

	return nil
}

// Close stops the status connection, the persisted state is kept. It's safe to call
// it many times.
func (m *Machine) Close() {
	m.mu.Lock()
	m.closed = true
	m.epoch++
	m.mu.Unlock()

	m.closeStream()
	m.cancel()
}

func (m *Machine) attachStream() error {
	m.mu.Lock()
	if m.closed || m.stream != nil {
		m.mu.Unlock()
		return nil
	}
	m.streamSeq++
	seq := m.streamSeq
	m.mu.Unlock()

	onError := func(err error) { m.handleStreamError(seq, err) }
	h, err := m.streamer.Open(m.ctx, m.handleStatus, onError)
	if err != nil {
		return fmt.Errorf("could not open status connection: %w", err)
	}

	// A connection that already failed is not kept so a later Resume can retry.
	m.mu.Lock()
	if m.closed || m.session.Step != model.OnboardingStepTaskGeneration || m.streamSeq != seq {
		m.mu.Unlock()
		h.Close()
		return nil
	}
	m.stream = h
	m.mu.Unlock()

	m.logger.WithValues(log.Kv{"connection-id": h.ID()}).Debugf("Status connection attached")
	return nil
}

func (m *Machine) closeStream() {
	m.mu.Lock()
	h := m.stream
	m.stream = nil
	m.streamSeq++
	m.mu.Unlock()

	if h != nil {
		h.Close()
	}
}

func (m *Machine) handleStatus(ev model.StatusEvent) {
	m.onStatus(ev)
	if ev.Kind == model.StatusKindCompleted {
		m.complete()
	}
}

// handleStreamError forgets the failed connection, Resume opens a new one.
func (m *Machine) handleStreamError(seq uint64, err error) {
	m.mu.Lock()
	if m.streamSeq == seq {
		m.stream = nil
		m.streamSeq++
	}
	m.mu.Unlock()

	m.logger.Errorf("Status connection failed: %s", err)
	m.notifyError(m.ctx, "Lost track of the task generation", err)
	m.onStreamError(err)
}

// complete reaches the terminal step, the persisted state is purged.
func (m *Machine) complete() {
	m.mu.Lock()
	m.session.Step = model.OnboardingStepCompleted
	m.epoch++
	m.mu.Unlock()

	// Safe from the status connection callbacks.
	m.closeStream()

	m.doneOnce.Do(func() {
		ctx := context.Background()
		if err := m.sessions.DeleteOnboardingSession(ctx, m.userID); err != nil {
			m.logger.Warningf("Could not purge onboarding session: %s", err)
		}
		m.notifier.Notify(ctx, notify.Notification{
			Level:   notify.LevelSuccess,
			Title:   "Onboarding completed",
			Message: "Your tasks are ready.",
		})
		m.logger.Infof("Onboarding completed")
		close(m.done)
	})
}

// expectStep returns the current epoch if the machine is at the step.
func (m *Machine) expectStep(step model.OnboardingStep) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.Step != step {
		return 0, m.stepError(step)
	}
	return m.epoch, nil
}

// commit applies a change if nothing moved the machine since epoch, and persists it.
func (m *Machine) commit(ctx context.Context, epoch uint64, f func(s *model.OnboardingSession)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.epoch != epoch || m.closed {
		m.logger.Debugf("Discarding stale onboarding result")
		return false
	}

	f(&m.session)
	m.epoch++
	m.persistLocked(ctx)

	return true
}

func (m *Machine) persistLocked(ctx context.Context) {
	m.session.UpdatedAt = m.now().UTC()
	if err := m.sessions.SaveOnboardingSession(ctx, m.session.Copy()); err != nil {
		m.logger.Warningf("Could not persist onboarding session: %s", err)
	}
}

func (m *Machine) stepError(expected model.OnboardingStep) error {
	return fmt.Errorf("onboarding is at %s step, not %s: %w", m.session.Step, expected, model.ErrPrecondition)
}

func (m *Machine) notifyError(ctx context.Context, title string, err error) {
	m.notifier.Notify(ctx, notify.Notification{Level: notify.LevelError, Title: title, Message: err.Error()})
}
