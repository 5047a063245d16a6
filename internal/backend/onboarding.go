package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gistapp/gist/internal/log"
	"github.com/gistapp/gist/internal/model"
)

// --- JSON wire types ---

type participantJSON struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type emailJSON struct {
	ID      string          `json:"id"`
	Subject string          `json:"subject"`
	Body    string          `json:"body"`
	Snippet string          `json:"snippet"`
	From    json.RawMessage `json:"from,omitempty"`
	Date    json.RawMessage `json:"date,omitempty"`
}

func (e emailJSON) toModel() model.Email {
	return model.Email{
		ID:      e.ID,
		Subject: e.Subject,
		Body:    e.Body,
		Snippet: e.Snippet,
		From:    decodeParticipants(e.From),
		Date:    decodeUnix(e.Date),
	}
}

// decodeParticipants accepts a list of participants, a single one or a bare address.
func decodeParticipants(data json.RawMessage) []model.Participant {
	if len(data) == 0 {
		return nil
	}

	var list []participantJSON
	if err := json.Unmarshal(data, &list); err == nil {
		res := make([]model.Participant, 0, len(list))
		for _, p := range list {
			res = append(res, model.Participant{Name: p.Name, Email: p.Email})
		}
		return res
	}

	var single participantJSON
	if err := json.Unmarshal(data, &single); err == nil {
		return []model.Participant{{Name: single.Name, Email: single.Email}}
	}

	var address string
	if err := json.Unmarshal(data, &address); err == nil && address != "" {
		return []model.Participant{{Email: address}}
	}

	return nil
}

func decodeUnix(data json.RawMessage) int64 {
	if len(data) == 0 {
		return 0
	}

	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		return int64(f)
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		i, _ := strconv.ParseInt(s, 10, 64)
		return i
	}

	return 0
}

type ratedEmailJSON struct {
	ID      string            `json:"id"`
	Subject string            `json:"subject"`
	Body    string            `json:"body"`
	Snippet string            `json:"snippet"`
	From    []participantJSON `json:"from"`
	Date    int64             `json:"date"`
}

func ratedEmailsJSON(emails []model.Email) []ratedEmailJSON {
	res := make([]ratedEmailJSON, 0, len(emails))
	for _, e := range emails {
		rj := ratedEmailJSON{ID: e.ID, Subject: e.Subject, Body: e.Body, Snippet: e.Snippet, Date: e.Date}
		rj.From = make([]participantJSON, 0, len(e.From))
		for _, p := range e.From {
			rj.From = append(rj.From, participantJSON{Name: p.Name, Email: p.Email})
		}
		res = append(res, rj)
	}
	return res
}

type questionJSON struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

func questionsJSON(qs []model.Question) []questionJSON {
	res := make([]questionJSON, 0, len(qs))
	for _, q := range qs {
		res = append(res, questionJSON{Question: q.Prompt, Options: q.Options})
	}
	return res
}

type inferDomainRequestJSON struct {
	Email       string           `json:"email"`
	RatedEmails []ratedEmailJSON `json:"ratedEmails"`
	Ratings     map[string]int   `json:"ratings"`
}

type inferDomainResponseJSON struct {
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	Questions []questionJSON `json:"questions"`
	Summary   string         `json:"summary"`
	Domain    string         `json:"domain"`
}

type submitOnboardingRequestJSON struct {
	Questions    []questionJSON    `json:"questions"`
	Answers      map[string]string `json:"answers"`
	Domain       *string           `json:"domain"`
	EmailRatings map[string]int    `json:"emailRatings"`
	RatedEmails  []ratedEmailJSON  `json:"ratedEmails"`
}

type submitOnboardingResponseJSON struct {
	Success            bool    `json:"success"`
	Message            string  `json:"message"`
	PersonalitySummary *string `json:"personalitySummary"`
}

type updatePersonalityRequestJSON struct {
	Personality []string `json:"personality"`
}

type onboardingCheckJSON struct {
	Onboarding bool `json:"onboarding"`
	TaskGen    bool `json:"task_gen"`
	InProgress bool `json:"in_progress"`
	Success    bool `json:"success"`
}

func (o onboardingCheckJSON) toModel() *model.JobStatus {
	return &model.JobStatus{
		Onboarding: o.Onboarding,
		TaskGen:    o.TaskGen,
		InProgress: o.InProgress,
		Success:    o.Success,
	}
}

// --- Onboarding ---

// ListOnboardingEmails returns a bounded batch of the user's emails to rate.
func (c *Client) ListOnboardingEmails(ctx context.Context, limit int, folder string) ([]model.Email, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if folder != "" {
		query.Set("folder", folder)
	}

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/email/onboarding/message", query, nil, &raw); err != nil {
		return nil, err
	}

	// The list can come bare or wrapped in a paginated envelope.
	var ejs []emailJSON
	if err := json.Unmarshal(raw, &ejs); err != nil {
		var envelope struct {
			Data []emailJSON `json:"data"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, fmt.Errorf("decoding onboarding emails: %w", err)
		}
		ejs = envelope.Data
	}

	emails := make([]model.Email, 0, len(ejs))
	for _, ej := range ejs {
		if ej.ID == "" {
			continue
		}
		emails = append(emails, ej.toModel())
	}

	return emails, nil
}

// InferDomain infers the user professional domain and returns the personalized questions.
func (c *Client) InferDomain(ctx context.Context, r model.DomainInferenceRequest) (*model.DomainInference, error) {
	if r.EmailAddress == "" {
		return nil, fmt.Errorf("email address is required: %w", model.ErrNotValid)
	}

	ratings := r.Ratings
	if ratings == nil {
		ratings = map[string]int{}
	}
	body := inferDomainRequestJSON{
		Email:       r.EmailAddress,
		RatedEmails: ratedEmailsJSON(r.RatedEmails),
		Ratings:     ratings,
	}

	var resp inferDomainResponseJSON
	if err := c.do(ctx, http.MethodPost, "/agent/infer-domain", nil, body, &resp); err != nil {
		return nil, err
	}

	inf := &model.DomainInference{
		Summary: resp.Summary,
		Domain:  resp.Domain,
	}
	for _, q := range resp.Questions {
		if q.Question == "" || len(q.Options) == 0 {
			c.logger.Warningf("Ignoring malformed question from domain inference: %q", q.Question)
			continue
		}
		inf.Questions = append(inf.Questions, model.Question{Prompt: q.Question, Options: q.Options})
	}

	if inf.Domain == "" {
		if _, domain, ok := strings.Cut(r.EmailAddress, "@"); ok {
			inf.Domain = domain
		}
	}
	if inf.Summary == "" && inf.Domain != "" {
		inf.Summary = fmt.Sprintf("Based on your email, we've personalized some questions for your %s context.", inf.Domain)
	}

	return inf, nil
}

// SubmitOnboarding submits the onboarding answers and returns the generated personality summary.
func (c *Client) SubmitOnboarding(ctx context.Context, p model.OnboardingProfile) (string, error) {
	answers := p.Answers
	if answers == nil {
		answers = map[string]string{}
	}
	ratings := p.EmailRatings
	if ratings == nil {
		ratings = map[string]int{}
	}

	body := submitOnboardingRequestJSON{
		Questions:    questionsJSON(p.Questions),
		Answers:      answers,
		Domain:       ptrOrNil(p.Domain),
		EmailRatings: ratings,
		RatedEmails:  ratedEmailsJSON(p.RatedEmails),
	}

	var resp submitOnboardingResponseJSON
	if err := c.do(ctx, http.MethodPost, "/agent/submit-onboarding", nil, body, &resp); err != nil {
		return "", err
	}

	return deref(resp.PersonalitySummary), nil
}

// UpdatePersonality replaces the user personality.
func (c *Client) UpdatePersonality(ctx context.Context, personality []string) error {
	if personality == nil {
		personality = []string{}
	}
	return c.do(ctx, http.MethodPut, "/user/personality", nil, updatePersonalityRequestJSON{Personality: personality}, nil)
}

// StartOnboarding starts the background task generation job of the user.
func (c *Client) StartOnboarding(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/agent/start-onboarding", nil, nil, nil)
}

// CheckOnboarding returns the onboarding and task generation job status of the user.
func (c *Client) CheckOnboarding(ctx context.Context) (*model.JobStatus, error) {
	var resp onboardingCheckJSON
	if err := c.do(ctx, http.MethodGet, "/agent/onboarding-check", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.toModel(), nil
}

// OpenStatusStream opens the server sent events status stream of the task generation job.
// The token travels as a query parameter. The caller owns the returned body.
func (c *Client) OpenStatusStream(ctx context.Context) (io.ReadCloser, error) {
	query := url.Values{}
	query.Set("token", c.token)

	req, err := c.newRequest(ctx, http.MethodGet, "/agent/onboarding-status", query, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Del("Authorization")

	c.logger.WithValues(log.Kv{"request-id": req.Header.Get("X-Request-ID")}).Debugf("Opening status stream")

	resp, err := c.streamHTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("opening status stream: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, fmt.Errorf("opening status stream: %w", newAPIError(resp))
	}

	return resp.Body, nil
}
