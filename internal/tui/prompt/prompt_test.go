package prompt_test

import (
	"context"
	"errors"
	"testing"

	"github.com/charmbracelet/huh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gistapp/gist/internal/model"
	"github.com/gistapp/gist/internal/tui/prompt"
)

type countingRunner struct {
	runs int
	err  error
}

func (c *countingRunner) Run(_ context.Context, f *huh.Form) error {
	c.runs++
	return c.err
}

func newPrompter(t *testing.T, r *countingRunner) *prompt.HuhPrompter {
	t.Helper()
	return newPrompterWith(t, prompt.HuhPrompterConfig{Runner: r.Run})
}

func newPrompterWith(t *testing.T, cfg prompt.HuhPrompterConfig) *prompt.HuhPrompter {
	t.Helper()
	p, err := prompt.NewHuhPrompter(cfg)
	require.NoError(t, err)
	return p
}

func TestRateEmails(t *testing.T) {
	emails := []model.Email{
		{ID: "e1", Subject: "Quarterly report", From: []model.Participant{{Name: "Ana"}}},
		{ID: "e2", Subject: "Newsletter"},
		{ID: "e3"},
	}

	tests := map[string]struct {
		emails    []model.Email
		ratings   map[string]int
		bulk      bool
		runErr    error
		expRuns   int
		expResult map[string]int
		expErr    error
	}{
		"Current ratings should be kept and missing ones should default to 5.": {
			emails:    emails,
			ratings:   map[string]int{"e1": 9, "e3": 42},
			expRuns:   1,
			expResult: map[string]int{"e1": 9, "e2": 5, "e3": 5},
		},

		"Rating in a single page should keep the same defaults.": {
			emails:    emails,
			ratings:   map[string]int{"e2": 2, "e3": 0},
			bulk:      true,
			expRuns:   1,
			expResult: map[string]int{"e1": 5, "e2": 2, "e3": 5},
		},

		"No emails should not show any form.": {
			expRuns:   0,
			expResult: map[string]int{},
		},

		"Aborting the form should return an aborted error.": {
			emails:  emails,
			runErr:  huh.ErrUserAborted,
			expRuns: 1,
			expErr:  prompt.ErrAborted,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			r := &countingRunner{err: test.runErr}
			p := newPrompterWith(t, prompt.HuhPrompterConfig{Runner: r.Run, BulkRating: test.bulk})
			got, err := p.RateEmails(context.Background(), test.emails, test.ratings)

			assert.Equal(test.expRuns, r.runs)
			if test.expErr != nil {
				assert.ErrorIs(err, test.expErr)
				return
			}
			assert.NoError(err)
			assert.Equal(test.expResult, got)
		})
	}
}

func TestAnswerQuestions(t *testing.T) {
	questions := []model.Question{
		{Prompt: "Role?", Options: []string{"Engineer", "Manager"}},
		{Prompt: "Team size?", Options: []string{"1-5", "6-20"}},
	}

	tests := map[string]struct {
		answers   map[string]string
		runErr    error
		expResult map[string]string
		expErr    error
	}{
		"Valid current answers should be kept.": {
			answers:   map[string]string{"Role?": "Manager", "Team size?": "6-20"},
			expResult: map[string]string{"Role?": "Manager", "Team size?": "6-20"},
		},

		"Answers that are not an option should be dropped.": {
			answers:   map[string]string{"Role?": "Pilot", "Unknown?": "x"},
			expResult: map[string]string{},
		},

		"A failing form should return the error.": {
			runErr: errors.New("tty closed"),
			expErr: errors.New("tty closed"),
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			r := &countingRunner{err: test.runErr}
			got, err := newPrompter(t, r).AnswerQuestions(context.Background(), questions, test.answers)

			if test.expErr != nil {
				assert.EqualError(err, test.expErr.Error())
				return
			}
			assert.NoError(err)
			assert.Equal(test.expResult, got)
		})
	}
}

func TestReviewSummary(t *testing.T) {
	r := &countingRunner{}
	summary, confirmed, err := newPrompter(t, r).ReviewSummary(context.Background(), "  Backend engineer at a fintech.  ")

	require.NoError(t, err)
	assert.Equal(t, 1, r.runs)
	assert.Equal(t, "Backend engineer at a fintech.", summary)
	assert.True(t, confirmed)

	r = &countingRunner{err: huh.ErrUserAborted}
	_, confirmed, err = newPrompter(t, r).ReviewSummary(context.Background(), "x")
	assert.ErrorIs(t, err, prompt.ErrAborted)
	assert.False(t, confirmed)
}
