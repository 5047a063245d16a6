package printer_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gistapp/gist/internal/model"
	"github.com/gistapp/gist/internal/printer"
)

func f64(f float64) *float64 { return &f }

func tasksFixture() []model.Task {
	return []model.Task{
		{ID: "t1", Text: "Send the quarterly report to finance", Priority: model.PriorityHigh, RelevanceScore: f64(9), Classification: model.ClassificationMainFocus, Deadline: "2026-02-01", CreatedAt: time.Date(2026, 1, 30, 10, 0, 0, 0, time.UTC)},
		{ID: "t2", Text: "Book flights", Classification: model.ClassificationDrawer},
	}
}

func onboardingFixture() printer.OnboardingStatus {
	requested := time.Date(2026, 1, 30, 10, 0, 0, 0, time.UTC)
	return printer.OnboardingStatus{
		Session: &model.OnboardingSession{
			Step:           model.OnboardingStepTaskGeneration,
			EmailAddress:   "ana@acme.com",
			Ratings:        map[string]int{"e1": 5, "e2": 8},
			Domain:         "acme.com",
			Questions:      []model.Question{{Prompt: "q1", Options: []string{"a"}}, {Prompt: "q2", Options: []string{"b"}}},
			Answers:        map[string]string{"q1": "a"},
			Summary:        "Calendar driven.",
			JobRequestedAt: &requested,
		},
		Job: &model.JobStatus{Onboarding: true, TaskGen: true, InProgress: true},
	}
}

func TestTablePrinterPrintTasks(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	require.NoError(t, p.PrintTasks(tasksFixture()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "RELEVANCE")
	assert.Contains(t, lines[1], "t1")
	assert.Contains(t, lines[1], "9.00")
	assert.Contains(t, lines[1], "Main Focus-View")
	assert.Contains(t, lines[2], "t2")
	assert.Contains(t, lines[2], "-")
}

func TestTablePrinterPrintTasksEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printer.NewTablePrinter(&buf).PrintTasks(nil))
	assert.Empty(t, buf.String())
}

func TestTablePrinterPrintOnboardingStatus(t *testing.T) {
	tests := map[string]struct {
		status printer.OnboardingStatus
		expOut []string
	}{
		"an onboarding in progress": {
			status: onboardingFixture(),
			expOut: []string{
				"Step:        task-generation (4/5)",
				"Emails:      2 rated",
				"Domain:      acme.com",
				"Questions:   1/2 answered",
				"Requested:   2026-01-30 10:00:00 UTC",
				"Job:         running",
			},
		},

		"a requested job that finished": {
			status: func() printer.OnboardingStatus {
				s := onboardingFixture()
				s.Job = &model.JobStatus{Onboarding: true}
				return s
			}(),
			expOut: []string{"Job:         completed"},
		},

		"a submitted personality without a requested job": {
			status: printer.OnboardingStatus{Job: &model.JobStatus{Onboarding: true}},
			expOut: []string{"Step:        not started", "Job:         submitted"},
		},

		"without onboarding": {
			status: printer.OnboardingStatus{},
			expOut: []string{"Step:        not started", "Job:         unknown"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, printer.NewTablePrinter(&buf).PrintOnboardingStatus(test.status))
			for _, exp := range test.expOut {
				assert.Contains(t, buf.String(), exp)
			}
		})
	}
}

func TestTablePrinterPrintStatusEvent(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	require.NoError(t, p.PrintStatusEvent(model.StatusEvent{Kind: model.StatusKindProcessing, Message: "extracting", Timestamp: time.Date(2026, 1, 30, 10, 0, 0, 0, time.UTC)}))
	require.NoError(t, p.PrintStatusEvent(model.StatusEvent{Kind: model.StatusKindCompleted}))

	assert.Equal(t, "2026-01-30 10:00:00 UTC  processing: extracting\ncompleted\n", buf.String())
}

func TestJSONPrinterPrintTasks(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printer.NewJSONPrinter(&buf).PrintTasks(tasksFixture()))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "t1", got[0]["id"])
	assert.Equal(t, 9.0, got[0]["relevance_score"])
	assert.Equal(t, "2026-01-30T10:00:00Z", got[0]["created_at"])
	assert.Nil(t, got[1]["relevance_score"])
	assert.NotContains(t, got[1], "created_at")
}

func TestJSONPrinterPrintTasksEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printer.NewJSONPrinter(&buf).PrintTasks(nil))
	assert.Equal(t, "[]", strings.TrimSpace(buf.String()))
}

func TestJSONPrinterPrintOnboardingStatus(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printer.NewJSONPrinter(&buf).PrintOnboardingStatus(onboardingFixture()))

	out := buf.String()
	assert.Contains(t, out, `"step": "task-generation"`)
	assert.Contains(t, out, `"answered": 1`)
	assert.Contains(t, out, `"state": "running"`)
	assert.Contains(t, out, `"job_requested_at": "2026-01-30T10:00:00Z"`)
}

func TestJSONPrinterPrintStatusEvent(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printer.NewJSONPrinter(&buf).PrintStatusEvent(model.StatusEvent{Kind: model.StatusKindConnected}))
	assert.Equal(t, `{"status":"connected"}`+"\n", buf.String())
}

func TestTablePrinterPrintMessage(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintMessage("ok")
	require.NoError(t, err)
	assert.Equal(t, "ok", strings.TrimSpace(buf.String()))
}
