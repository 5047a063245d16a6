package sqlite

import (
	"encoding/json"
	"time"

	"github.com/gistapp/gist/internal/model"
)

// The persisted documents are versioned by shape only, every field is
// optional on decode so older documents load with the initial state defaults.

type taskJSON struct {
	ID             string     `json:"id"`
	Text           string     `json:"text,omitempty"`
	Deadline       string     `json:"deadline,omitempty"`
	Priority       string     `json:"priority,omitempty"`
	RelevanceScore *float64   `json:"relevance_score,omitempty"`
	UtilityScore   *float64   `json:"utility_score,omitempty"`
	CostScore      *float64   `json:"cost_score,omitempty"`
	MessageID      string     `json:"message_id,omitempty"`
	UserID         string     `json:"user_id,omitempty"`
	Classification string     `json:"classification,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

func (t taskJSON) toModel() model.Task {
	task := model.Task{
		ID:             t.ID,
		Text:           t.Text,
		Deadline:       t.Deadline,
		Priority:       model.Priority(t.Priority),
		RelevanceScore: t.RelevanceScore,
		UtilityScore:   t.UtilityScore,
		CostScore:      t.CostScore,
		MessageID:      t.MessageID,
		UserID:         t.UserID,
		Classification: t.Classification,
	}
	if t.CreatedAt != nil {
		task.CreatedAt = t.CreatedAt.UTC()
	}
	if t.UpdatedAt != nil {
		task.UpdatedAt = t.UpdatedAt.UTC()
	}
	return task
}

func taskJSONFromModel(t model.Task) taskJSON {
	tj := taskJSON{
		ID:             t.ID,
		Text:           t.Text,
		Deadline:       t.Deadline,
		Priority:       string(t.Priority),
		RelevanceScore: t.RelevanceScore,
		UtilityScore:   t.UtilityScore,
		CostScore:      t.CostScore,
		MessageID:      t.MessageID,
		UserID:         t.UserID,
		Classification: t.Classification,
	}
	if !t.CreatedAt.IsZero() {
		ts := t.CreatedAt
		tj.CreatedAt = &ts
	}
	if !t.UpdatedAt.IsZero() {
		ts := t.UpdatedAt
		tj.UpdatedAt = &ts
	}
	return tj
}

func encodeTasks(tasks []model.Task) ([]byte, error) {
	tjs := make([]taskJSON, 0, len(tasks))
	for _, t := range tasks {
		tjs = append(tjs, taskJSONFromModel(t))
	}
	return json.Marshal(tjs)
}

func decodeTasks(data []byte) ([]model.Task, error) {
	var tjs []taskJSON
	if err := json.Unmarshal(data, &tjs); err != nil {
		return nil, err
	}

	tasks := make([]model.Task, 0, len(tjs))
	for _, tj := range tjs {
		tasks = append(tasks, tj.toModel())
	}
	return tasks, nil
}

type participantJSON struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type emailJSON struct {
	ID      string            `json:"id"`
	Subject string            `json:"subject,omitempty"`
	Body    string            `json:"body,omitempty"`
	Snippet string            `json:"snippet,omitempty"`
	From    []participantJSON `json:"from,omitempty"`
	Date    int64             `json:"date,omitempty"`
}

type questionJSON struct {
	Prompt  string   `json:"question"`
	Options []string `json:"options"`
}

type sessionJSON struct {
	EmailAddress   string            `json:"email_address,omitempty"`
	Step           string            `json:"step,omitempty"`
	Emails         []emailJSON       `json:"emails,omitempty"`
	Ratings        map[string]int    `json:"ratings,omitempty"`
	Domain         string            `json:"domain,omitempty"`
	Questions      []questionJSON    `json:"questions,omitempty"`
	Answers        map[string]string `json:"answers,omitempty"`
	Summary        string            `json:"summary,omitempty"`
	SummaryEdited  bool              `json:"summary_edited,omitempty"`
	JobRequestedAt *time.Time        `json:"job_requested_at,omitempty"`
}

func (s sessionJSON) toModel() model.OnboardingSession {
	session := model.NewOnboardingSession("", s.EmailAddress)
	if s.Step != "" {
		session.Step = model.OnboardingStep(s.Step)
	}
	for _, e := range s.Emails {
		email := model.Email{ID: e.ID, Subject: e.Subject, Body: e.Body, Snippet: e.Snippet, Date: e.Date}
		for _, p := range e.From {
			email.From = append(email.From, model.Participant{Name: p.Name, Email: p.Email})
		}
		session.Emails = append(session.Emails, email)
	}
	for k, v := range s.Ratings {
		session.Ratings[k] = v
	}
	for k, v := range s.Answers {
		session.Answers[k] = v
	}
	for _, q := range s.Questions {
		session.Questions = append(session.Questions, model.Question{Prompt: q.Prompt, Options: q.Options})
	}
	session.Domain = s.Domain
	session.Summary = s.Summary
	session.SummaryEdited = s.SummaryEdited
	if s.JobRequestedAt != nil {
		t := s.JobRequestedAt.UTC()
		session.JobRequestedAt = &t
	}
	return session
}

func sessionJSONFromModel(s model.OnboardingSession) sessionJSON {
	sj := sessionJSON{
		EmailAddress:   s.EmailAddress,
		Step:           string(s.Step),
		Ratings:        s.Ratings,
		Domain:         s.Domain,
		Answers:        s.Answers,
		Summary:        s.Summary,
		SummaryEdited:  s.SummaryEdited,
		JobRequestedAt: s.JobRequestedAt,
	}
	for _, e := range s.Emails {
		ej := emailJSON{ID: e.ID, Subject: e.Subject, Body: e.Body, Snippet: e.Snippet, Date: e.Date}
		for _, p := range e.From {
			ej.From = append(ej.From, participantJSON{Name: p.Name, Email: p.Email})
		}
		sj.Emails = append(sj.Emails, ej)
	}
	for _, q := range s.Questions {
		sj.Questions = append(sj.Questions, questionJSON{Prompt: q.Prompt, Options: q.Options})
	}
	return sj
}

func encodeSession(s model.OnboardingSession) ([]byte, error) {
	return json.Marshal(sessionJSONFromModel(s))
}

func decodeSession(data []byte) (model.OnboardingSession, error) {
	var sj sessionJSON
	if err := json.Unmarshal(data, &sj); err != nil {
		return model.OnboardingSession{}, err
	}
	return sj.toModel(), nil
}
