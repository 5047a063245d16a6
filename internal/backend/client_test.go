package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gistapp/gist/internal/backend"
	"github.com/gistapp/gist/internal/model"
)

func f64(f float64) *float64 { return &f }

func newTestClient(t *testing.T, h http.HandlerFunc) *backend.Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := backend.NewClient(backend.ClientConfig{
		BaseURL: srv.URL + "/api/",
		Token:   "tkn",
	})
	require.NoError(t, err)
	return c
}

func readJSON(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func TestClientListUserTasks(t *testing.T) {
	tests := map[string]struct {
		status   int
		body     string
		expTasks []model.Task
		expErr   error
	}{
		"tasks should be decoded in backend order": {
			status: http.StatusOK,
			body: `[
				{"task_id":"t1","task":"Reply to Ana","priority":"High","relevance_score":7.5,"utility_score":null,"classification":"Main Focus-View","messageId":"m1","userId":"u1","createdAt":"2026-03-01T10:00:00.123456","updatedAt":"2026-03-01T10:00:00Z"},
				{"task_id":"t2","task":"Read newsletter","deadline":"Friday","classification":"Library","createdAt":null}
			]`,
			expTasks: []model.Task{
				{
					ID:             "t1",
					Text:           "Reply to Ana",
					Priority:       model.PriorityHigh,
					RelevanceScore: f64(7.5),
					Classification: model.ClassificationMainFocus,
					MessageID:      "m1",
					UserID:         "u1",
					CreatedAt:      time.Date(2026, 3, 1, 10, 0, 0, 123456000, time.UTC),
					UpdatedAt:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
				},
				{
					ID:             "t2",
					Text:           "Read newsletter",
					Deadline:       "Friday",
					Classification: model.ClassificationLibrary,
				},
			},
		},

		"an empty list should return no tasks": {
			status:   http.StatusOK,
			body:     `[]`,
			expTasks: []model.Task{},
		},

		"a not found answer should be mapped to the not found error": {
			status: http.StatusNotFound,
			body:   `{"detail":"User not found"}`,
			expErr: model.ErrNotFound,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/api/tasks/user/u1", r.URL.Path)
				assert.Equal(t, "Bearer tkn", r.Header.Get("Authorization"))
				_, err := uuid.Parse(r.Header.Get("X-Request-ID"))
				assert.NoError(t, err)

				w.WriteHeader(test.status)
				_, _ = io.WriteString(w, test.body)
			})

			tasks, err := c.ListUserTasks(context.Background(), "u1")
			if test.expErr != nil {
				require.Error(err)
				require.True(errors.Is(err, test.expErr))
				return
			}
			require.NoError(err)
			assert.Equal(t, test.expTasks, tasks)
		})
	}
}

func TestClientSendReorderFeedback(t *testing.T) {
	tests := map[string]struct {
		req       model.ReorderRequest
		status    int
		respBody  string
		expBody   map[string]any
		expResult *model.ReorderResult
		expErr    bool
	}{
		"absent neighbours should be sent as null and scores decoded": {
			req: model.ReorderRequest{TaskID: "t3", Direction: model.DirectionUp, Positions: 2, TaskBelowID: "t1", Classification: "Main Focus-View"},
			expBody: map[string]any{
				"task_id":        "t3",
				"direction":      "up",
				"positions":      float64(2),
				"task_above_id":  nil,
				"task_below_id":  "t1",
				"classification": "Main Focus-View",
			},
			status:   http.StatusOK,
			respBody: `{"task_id":"t3","relevance_score":9.1,"success":true,"message":"Task reordered successfully"}`,
			expResult: &model.ReorderResult{
				TaskID:  "t3",
				Scores:  model.Scores{Relevance: f64(9.1)},
				Success: true,
				Message: "Task reordered successfully",
			},
		},

		"a validation error should be returned with its detail": {
			req: model.ReorderRequest{TaskID: "t3", Direction: model.DirectionDown, Positions: 1, Classification: "Drawer"},
			expBody: map[string]any{
				"task_id":        "t3",
				"direction":      "down",
				"positions":      float64(1),
				"task_above_id":  nil,
				"task_below_id":  nil,
				"classification": "Drawer",
			},
			status:   http.StatusUnprocessableEntity,
			respBody: `{"detail":[{"loc":["body","positions"],"msg":"must be greater than 0","type":"greater_than"}]}`,
			expErr:   true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/api/feedback/re-order", r.URL.Path)
				assert.Equal(t, test.expBody, readJSON(t, r))

				w.WriteHeader(test.status)
				_, _ = io.WriteString(w, test.respBody)
			})

			res, err := c.SendReorderFeedback(context.Background(), test.req)
			if test.expErr {
				require.Error(err)
				return
			}
			require.NoError(err)
			assert.Equal(t, test.expResult, res)
		})
	}
}

func TestClientSendReorderFeedbackInvalidRequest(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	_, err := c.SendReorderFeedback(context.Background(), model.ReorderRequest{TaskID: "t1", Direction: model.DirectionUp})
	assert.True(t, errors.Is(err, model.ErrNotValid))
	assert.False(t, called)
}

func TestClientValidationError(t *testing.T) {
	require := require.New(t)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"detail":[{"loc":["body","answers",0],"msg":"field required","type":"missing"}]}`)
	})

	_, err := c.SubmitOnboarding(context.Background(), model.OnboardingProfile{})
	require.Error(err)
	require.True(errors.Is(err, model.ErrNotValid))

	var apiErr *backend.APIError
	require.True(errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, []backend.ValidationIssue{{Location: "body.answers.0", Message: "field required", Type: "missing"}}, apiErr.Validation)
}

func TestClientListOnboardingEmails(t *testing.T) {
	tests := map[string]struct {
		body      string
		expEmails []model.Email
	}{
		"a bare list should be decoded": {
			body: `[{"id":"m1","subject":"Standup","body":"b","snippet":"s","from":[{"name":"Ana","email":"ana@acme.com"}],"date":1700000000}]`,
			expEmails: []model.Email{
				{ID: "m1", Subject: "Standup", Body: "b", Snippet: "s", From: []model.Participant{{Name: "Ana", Email: "ana@acme.com"}}, Date: 1700000000},
			},
		},

		"a paginated envelope should be decoded": {
			body: `{"data":[{"id":"m1","subject":"Standup","from":{"name":"Ana","email":"ana@acme.com"},"date":"1700000000"},{"id":"m2","from":"bob@acme.com"}],"next_cursor":"x"}`,
			expEmails: []model.Email{
				{ID: "m1", Subject: "Standup", From: []model.Participant{{Name: "Ana", Email: "ana@acme.com"}}, Date: 1700000000},
				{ID: "m2", From: []model.Participant{{Email: "bob@acme.com"}}},
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/email/onboarding/message", r.URL.Path)
				assert.Equal(t, "10", r.URL.Query().Get("limit"))
				assert.Equal(t, "INBOX", r.URL.Query().Get("folder"))
				_, _ = io.WriteString(w, test.body)
			})

			emails, err := c.ListOnboardingEmails(context.Background(), 10, "INBOX")
			require.NoError(err)
			assert.Equal(t, test.expEmails, emails)
		})
	}
}

func TestClientInferDomain(t *testing.T) {
	tests := map[string]struct {
		respBody     string
		expInference *model.DomainInference
	}{
		"questions and summary should be returned": {
			respBody: `{"success":true,"message":"ok","questions":[{"question":"How do you work?","options":["Alone","In a team"]}],"summary":"You build software."}`,
			expInference: &model.DomainInference{
				Questions: []model.Question{{Prompt: "How do you work?", Options: []string{"Alone", "In a team"}}},
				Summary:   "You build software.",
				Domain:    "acme.com",
			},
		},

		"a missing summary should fall back to a domain based one": {
			respBody: `{"success":true,"questions":[{"question":"q","options":[]}],"domain":"software engineering"}`,
			expInference: &model.DomainInference{
				Summary: "Based on your email, we've personalized some questions for your software engineering context.",
				Domain:  "software engineering",
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/api/agent/infer-domain", r.URL.Path)
				body := readJSON(t, r)
				assert.Equal(t, "me@acme.com", body["email"])
				assert.Equal(t, map[string]any{"m1": float64(8)}, body["ratings"])
				assert.Len(t, body["ratedEmails"], 1)
				_, _ = io.WriteString(w, test.respBody)
			})

			inf, err := c.InferDomain(context.Background(), model.DomainInferenceRequest{
				EmailAddress: "me@acme.com",
				RatedEmails:  []model.Email{{ID: "m1", Subject: "Standup"}},
				Ratings:      map[string]int{"m1": 8},
			})
			require.NoError(err)
			assert.Equal(t, test.expInference, inf)
		})
	}
}

func TestClientSubmitOnboarding(t *testing.T) {
	require := require.New(t)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/agent/submit-onboarding", r.URL.Path)
		body := readJSON(t, r)
		assert.Equal(t, "software", body["domain"])
		assert.Equal(t, map[string]any{"q": "a"}, body["answers"])
		assert.Equal(t, []any{map[string]any{"question": "q", "options": []any{"a", "b"}}}, body["questions"])
		_, _ = io.WriteString(w, `{"success":true,"message":"ok","personalitySummary":"Focused builder."}`)
	})

	summary, err := c.SubmitOnboarding(context.Background(), model.OnboardingProfile{
		Questions: []model.Question{{Prompt: "q", Options: []string{"a", "b"}}},
		Answers:   map[string]string{"q": "a"},
		Domain:    "software",
	})
	require.NoError(err)
	assert.Equal(t, "Focused builder.", summary)
}

func TestClientUpdatePersonality(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/user/personality", r.URL.Path)
		assert.Equal(t, map[string]any{"personality": []any{"Edited."}}, readJSON(t, r))
		_, _ = io.WriteString(w, `{"success":true,"message":"ok","personality":["Edited."]}`)
	})

	assert.NoError(t, c.UpdatePersonality(context.Background(), []string{"Edited."}))
}

func TestClientStartAndCheckOnboarding(t *testing.T) {
	require := require.New(t)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/agent/start-onboarding":
			assert.Equal(t, http.MethodPost, r.Method)
			_, _ = io.WriteString(w, `{"success":true,"status":"processing"}`)
		case "/api/agent/onboarding-check":
			_, _ = io.WriteString(w, `{"task_gen":true,"onboarding":false,"in_progress":true,"success":true}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	require.NoError(c.StartOnboarding(context.Background()))

	st, err := c.CheckOnboarding(context.Background())
	require.NoError(err)
	assert.Equal(t, &model.JobStatus{TaskGen: true, InProgress: true, Success: true}, st)
	assert.True(t, st.Running())
}

func TestClientOpenStatusStream(t *testing.T) {
	require := require.New(t)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/agent/onboarding-status", r.URL.Path)
		assert.Equal(t, "tkn", r.URL.Query().Get("token"))
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "event: status\ndata: {\"status\":\"connected\"}\n\n")
	})

	body, err := c.OpenStatusStream(context.Background())
	require.NoError(err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(err)
	assert.Contains(t, string(data), `"connected"`)
}

func TestClientOpenStatusStreamForbidden(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"detail":"Invalid authentication token"}`)
	})

	_, err := c.OpenStatusStream(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid authentication token")
}
