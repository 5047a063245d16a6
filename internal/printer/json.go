package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/gistapp/gist/internal/model"
)

// JSONPrinter prints gist information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

var _ Printer = &JSONPrinter{}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

type taskOutput struct {
	ID             string     `json:"id"`
	Text           string     `json:"text"`
	Deadline       string     `json:"deadline,omitempty"`
	Priority       string     `json:"priority,omitempty"`
	RelevanceScore *float64   `json:"relevance_score"`
	UtilityScore   *float64   `json:"utility_score"`
	CostScore      *float64   `json:"cost_score"`
	MessageID      string     `json:"message_id,omitempty"`
	Classification string     `json:"classification"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

type onboardingOutput struct {
	Session *sessionOutput `json:"session"`
	Job     jobOutput      `json:"job"`
}

type sessionOutput struct {
	Step           string     `json:"step"`
	EmailAddress   string     `json:"email"`
	RatedEmails    int        `json:"rated_emails"`
	Domain         string     `json:"domain,omitempty"`
	Questions      int        `json:"questions"`
	Answered       int        `json:"answered"`
	Summary        string     `json:"summary,omitempty"`
	SummaryEdited  bool       `json:"summary_edited"`
	JobRequestedAt *time.Time `json:"job_requested_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

type jobOutput struct {
	State      string `json:"state"`
	Onboarding bool   `json:"onboarding"`
	TaskGen    bool   `json:"task_gen"`
	InProgress bool   `json:"in_progress"`
}

type eventOutput struct {
	Status    string     `json:"status"`
	Message   string     `json:"message,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type messageOutput struct {
	Message string `json:"message"`
}

func utcPtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}

// PrintTasks prints tasks in JSON format, in the given order.
func (j *JSONPrinter) PrintTasks(tasks []model.Task) error {
	items := make([]taskOutput, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, taskOutput{
			ID:             t.ID,
			Text:           t.Text,
			Deadline:       t.Deadline,
			Priority:       string(t.Priority),
			RelevanceScore: t.RelevanceScore,
			UtilityScore:   t.UtilityScore,
			CostScore:      t.CostScore,
			MessageID:      t.MessageID,
			Classification: t.Classification,
			CreatedAt:      utcPtr(t.CreatedAt),
			UpdatedAt:      utcPtr(t.UpdatedAt),
		})
	}

	return j.encode(items)
}

// PrintOnboardingStatus prints the onboarding progress in JSON format.
func (j *JSONPrinter) PrintOnboardingStatus(status OnboardingStatus) error {
	output := onboardingOutput{Job: jobOutput{State: JobState(status.Job, status.JobRequested())}}

	if job := status.Job; job != nil {
		output.Job.Onboarding = job.Onboarding
		output.Job.TaskGen = job.TaskGen
		output.Job.InProgress = job.InProgress
	}

	if s := status.Session; s != nil {
		output.Session = &sessionOutput{
			Step:          string(s.Step),
			EmailAddress:  s.EmailAddress,
			RatedEmails:   len(s.Ratings),
			Domain:        s.Domain,
			Questions:     len(s.Questions),
			Answered:      len(s.Questions) - len(s.UnansweredQuestions()),
			Summary:       s.Summary,
			SummaryEdited: s.SummaryEdited,
			UpdatedAt:     utcPtr(s.UpdatedAt),
		}
		if s.JobRequestedAt != nil {
			output.Session.JobRequestedAt = utcPtr(*s.JobRequestedAt)
		}
	}

	return j.encode(output)
}

// PrintStatusEvent prints a status stream event as a single JSON line.
func (j *JSONPrinter) PrintStatusEvent(ev model.StatusEvent) error {
	return json.NewEncoder(j.writer).Encode(eventOutput{
		Status:    string(ev.Kind),
		Message:   ev.Message,
		Timestamp: utcPtr(ev.Timestamp),
	})
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
