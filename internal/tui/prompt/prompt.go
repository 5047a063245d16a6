package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/gistapp/gist/internal/model"
	"github.com/gistapp/gist/internal/onboarding"
	"github.com/gistapp/gist/internal/printer"
)

// ErrAborted is returned when the user quits a form.
var ErrAborted = errors.New("aborted by the user")

// FormRunner runs a form until the user completes it.
type FormRunner func(ctx context.Context, f *huh.Form) error

func runForm(ctx context.Context, f *huh.Form) error { return f.RunWithContext(ctx) }

// HuhPrompterConfig is the configuration of the huh prompter.
type HuhPrompterConfig struct {
	// Runner runs the forms, by default they are run on the terminal.
	Runner FormRunner
	// Accessible uses the screen reader friendly mode of the forms.
	Accessible bool
	// BulkRating rates all the emails in a single page instead of one email per page.
	BulkRating bool
}

func (c *HuhPrompterConfig) defaults() error {
	if c.Runner == nil {
		c.Runner = runForm
	}
	return nil
}

// HuhPrompter asks the onboarding input with terminal forms.
type HuhPrompter struct {
	runner     FormRunner
	accessible bool
	bulkRating bool
}

// NewHuhPrompter returns a new huh prompter.
func NewHuhPrompter(cfg HuhPrompterConfig) (*HuhPrompter, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &HuhPrompter{runner: cfg.Runner, accessible: cfg.Accessible, bulkRating: cfg.BulkRating}, nil
}

func (p *HuhPrompter) run(ctx context.Context, f *huh.Form) error {
	f = f.WithTheme(huh.ThemeDracula()).WithAccessible(p.accessible)
	err := p.runner(ctx, f)
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrAborted
	}
	return err
}

func (p *HuhPrompter) RateEmails(ctx context.Context, emails []model.Email, ratings map[string]int) (map[string]int, error) {
	if len(emails) == 0 {
		return map[string]int{}, nil
	}

	values := make([]int, len(emails))
	for i, e := range emails {
		values[i] = ratings[e.ID]
		if values[i] < onboarding.MinEmailRating || values[i] > onboarding.MaxEmailRating {
			values[i] = model.DefaultEmailRating
		}
	}

	if err := p.run(ctx, huh.NewForm(ratingGroups(emails, values, p.bulkRating)...)); err != nil {
		return nil, err
	}

	res := make(map[string]int, len(emails))
	for i, e := range emails {
		res[e.ID] = values[i]
	}
	return res, nil
}

// ratingGroups returns the form pages of the email rating, one per email or a single
// one with every email.
func ratingGroups(emails []model.Email, values []int, bulk bool) []*huh.Group {
	scale := make([]int, 0, onboarding.MaxEmailRating-onboarding.MinEmailRating+1)
	for r := onboarding.MinEmailRating; r <= onboarding.MaxEmailRating; r++ {
		scale = append(scale, r)
	}

	fields := make([]huh.Field, 0, len(emails))
	for i, e := range emails {
		fields = append(fields, huh.NewSelect[int]().
			Title(fmt.Sprintf("(%d/%d) %s", i+1, len(emails), emailTitle(e))).
			Description(emailDescription(e)).
			Options(huh.NewOptions(scale...)...).
			Value(&values[i]))
	}

	if bulk {
		return []*huh.Group{huh.NewGroup(fields...)}
	}

	groups := make([]*huh.Group, 0, len(fields))
	for _, f := range fields {
		groups = append(groups, huh.NewGroup(f))
	}
	return groups
}

func emailTitle(e model.Email) string {
	if e.Subject == "" {
		return "(no subject)"
	}
	return printer.Truncate(e.Subject, 70)
}

func emailDescription(e model.Email) string {
	var b strings.Builder
	if len(e.From) > 0 {
		from := e.From[0].Name
		if from == "" {
			from = e.From[0].Email
		}
		b.WriteString("From " + from)
	}
	if e.Date > 0 {
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		b.WriteString(printer.TimeAgo(time.Unix(e.Date, 0)))
	}
	if e.Snippet != "" {
		b.WriteString("\n" + printer.Truncate(e.Snippet, 140))
	}
	b.WriteString("\nHow important is this kind of email to you? (1-10)")
	return b.String()
}

func (p *HuhPrompter) AnswerQuestions(ctx context.Context, questions []model.Question, answers map[string]string) (map[string]string, error) {
	if len(questions) == 0 {
		return map[string]string{}, nil
	}

	values := make([]string, len(questions))
	fields := make([]huh.Field, 0, len(questions))
	for i, q := range questions {
		if a, ok := answers[q.Prompt]; ok && q.HasOption(a) {
			values[i] = a
		}
		fields = append(fields, huh.NewSelect[string]().
			Title(q.Prompt).
			Options(huh.NewOptions(q.Options...)...).
			Value(&values[i]))
	}

	if err := p.run(ctx, huh.NewForm(huh.NewGroup(fields...))); err != nil {
		return nil, err
	}

	res := make(map[string]string, len(questions))
	for i, q := range questions {
		if values[i] != "" {
			res[q.Prompt] = values[i]
		}
	}
	return res, nil
}

func (p *HuhPrompter) ReviewSummary(ctx context.Context, summary string) (string, bool, error) {
	edited := summary
	confirmed := true

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Your summary").
				Description("This is how Gist will understand your work, edit it if something is off.").
				Value(&edited).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("summary cannot be empty")
					}
					return nil
				}),
			huh.NewConfirm().
				Title("Generate your tasks with this summary?").
				Affirmative("Confirm").
				Negative("Back to questions").
				Value(&confirmed),
		),
	)

	if err := p.run(ctx, form); err != nil {
		return "", false, err
	}

	return strings.TrimSpace(edited), confirmed, nil
}
