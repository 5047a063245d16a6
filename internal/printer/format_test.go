package printer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gistapp/gist/internal/model"
)

func TestTimeAgo(t *testing.T) {
	now := time.Date(2026, 1, 30, 10, 0, 0, 0, time.UTC)

	tests := map[string]struct {
		time     time.Time
		expected string
	}{
		"1 second ago":   {time: now.Add(-1 * time.Second), expected: "1 second ago (UTC)"},
		"30 seconds ago": {time: now.Add(-30 * time.Second), expected: "30 seconds ago (UTC)"},
		"1 minute ago":   {time: now.Add(-1 * time.Minute), expected: "1 minute ago (UTC)"},
		"45 minutes ago": {time: now.Add(-45 * time.Minute), expected: "45 minutes ago (UTC)"},
		"5 hours ago":    {time: now.Add(-5 * time.Hour), expected: "5 hours ago (UTC)"},
		"1 day ago":      {time: now.Add(-24 * time.Hour), expected: "1 day ago (UTC)"},
		"3 days ago":     {time: now.Add(-72 * time.Hour), expected: "3 days ago (UTC)"},
		"future":         {time: now.Add(time.Hour), expected: "in the future (UTC)"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expected, timeAgo(now, test.time))
		})
	}
}

func TestFormatScore(t *testing.T) {
	v := 1.5
	assert.Equal(t, "-", FormatScore(nil))
	assert.Equal(t, "1.50", FormatScore(&v))
}

func TestTruncate(t *testing.T) {
	tests := map[string]struct {
		text string
		max  int
		exp  string
	}{
		"short text is kept":         {text: "hello", max: 10, exp: "hello"},
		"long text is cut":           {text: "hello world", max: 6, exp: "hello…"},
		"runes are not split":        {text: "ñañañaña", max: 4, exp: "ñañ…"},
		"non positive max keeps all": {text: "hello", max: 0, exp: "hello"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, Truncate(test.text, test.max))
		})
	}
}

func TestJobState(t *testing.T) {
	assert.Equal(t, "unknown", JobState(nil, false))
	assert.Equal(t, "not started", JobState(&model.JobStatus{}, false))
	assert.Equal(t, "submitted", JobState(&model.JobStatus{Onboarding: true}, false))
	assert.Equal(t, "running", JobState(&model.JobStatus{Onboarding: true, TaskGen: true}, false))
	assert.Equal(t, "running", JobState(&model.JobStatus{Onboarding: true, TaskGen: true}, true))
	assert.Equal(t, "completed", JobState(&model.JobStatus{Onboarding: true}, true))
}
