package printer

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/gistapp/gist/internal/model"
)

const maxTaskText = 60

// TablePrinter prints gist information in a table format.
type TablePrinter struct {
	writer io.Writer
}

var _ Printer = &TablePrinter{}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintTasks prints tasks in a table format, in the given order.
func (t *TablePrinter) PrintTasks(tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "#\tID\tPRIORITY\tRELEVANCE\tCLASSIFICATION\tDEADLINE\tTEXT")

	for i, task := range tasks {
		priority, deadline := string(task.Priority), task.Deadline
		if priority == "" {
			priority = "-"
		}
		if deadline == "" {
			deadline = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i+1,
			task.ID,
			priority,
			FormatScore(task.RelevanceScore),
			task.Classification,
			deadline,
			Truncate(task.Text, maxTaskText),
		)
	}

	return nil
}

// PrintOnboardingStatus prints the onboarding progress.
func (t *TablePrinter) PrintOnboardingStatus(status OnboardingStatus) error {
	if s := status.Session; s != nil {
		answered := len(s.Questions) - len(s.UnansweredQuestions())
		fmt.Fprintf(t.writer, "Step:        %s (%d/%d)\n", s.Step, s.Step.Index()+1, len(model.OnboardingSteps))
		fmt.Fprintf(t.writer, "Email:       %s\n", s.EmailAddress)
		fmt.Fprintf(t.writer, "Emails:      %d rated\n", len(s.Ratings))
		if s.Domain != "" {
			fmt.Fprintf(t.writer, "Domain:      %s\n", s.Domain)
		}
		fmt.Fprintf(t.writer, "Questions:   %d/%d answered\n", answered, len(s.Questions))
		if s.Summary != "" {
			fmt.Fprintf(t.writer, "Summary:     %s\n", Truncate(s.Summary, 2*maxTaskText))
		}
		if s.JobRequestedAt != nil {
			fmt.Fprintf(t.writer, "Requested:   %s\n", FormatTimestamp(*s.JobRequestedAt))
		}
		if !s.UpdatedAt.IsZero() {
			fmt.Fprintf(t.writer, "Updated:     %s\n", TimeAgo(s.UpdatedAt))
		}
	} else {
		fmt.Fprintln(t.writer, "Step:        not started")
	}

	fmt.Fprintf(t.writer, "Job:         %s\n", JobState(status.Job, status.JobRequested()))

	return nil
}

// PrintStatusEvent prints a status stream event in a single line.
func (t *TablePrinter) PrintStatusEvent(ev model.StatusEvent) error {
	line := string(ev.Kind)
	if !ev.Timestamp.IsZero() {
		line = FormatTimestamp(ev.Timestamp) + "  " + line
	}
	if ev.Message != "" {
		line += ": " + ev.Message
	}
	fmt.Fprintln(t.writer, line)
	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}
