package printer

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gistapp/gist/internal/model"
)

// TimeAgo returns a human-readable relative time string in UTC.
// Examples: "5 seconds ago (UTC)", "2 minutes ago (UTC)", "3 hours ago (UTC)".
func TimeAgo(t time.Time) string { return timeAgo(time.Now(), t) }

func timeAgo(now, t time.Time) string {
	diff := now.UTC().Sub(t.UTC())
	if diff < 0 {
		return "in the future (UTC)"
	}

	plural := func(n int, unit string) string {
		if n == 1 {
			return fmt.Sprintf("1 %s ago (UTC)", unit)
		}
		return fmt.Sprintf("%d %ss ago (UTC)", n, unit)
	}

	switch {
	case diff < time.Minute:
		return plural(int(diff.Seconds()), "second")
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	}
	return plural(int(diff.Hours()/24), "day")
}

// FormatTimestamp returns a formatted timestamp string in UTC.
// Format: "2006-01-02 15:04:05 UTC".
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

// FormatScore returns the score with two decimals, "-" when not set.
func FormatScore(s *float64) string {
	if s == nil {
		return "-"
	}
	return strconv.FormatFloat(*s, 'f', 2, 64)
}

// Truncate cuts the text to max runes adding an ellipsis.
func Truncate(text string, max int) string {
	r := []rune(text)
	if max <= 0 || len(r) <= max {
		return text
	}
	if max == 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}

// JobState returns a short description of the task generation job, requested tells
// if the job was started from this machine.
func JobState(j *model.JobStatus, requested bool) string {
	switch {
	case j == nil:
		return "unknown"
	case j.Running():
		return "running"
	case j.Completed(requested):
		return "completed"
	case j.Onboarding:
		return "submitted"
	}
	return "not started"
}
