package printer

import "github.com/gistapp/gist/internal/model"

// OnboardingStatus is the onboarding progress of a user, both sides can be missing.
type OnboardingStatus struct {
	// Session is the locally persisted onboarding, nil when there is none.
	Session *model.OnboardingSession
	// Job is the backend task generation status, nil when it could not be checked.
	Job *model.JobStatus
}

// JobRequested returns true when the task generation was requested from this machine.
func (o OnboardingStatus) JobRequested() bool {
	return o.Session != nil && o.Session.JobRequestedAt != nil
}

// Printer knows how to print gist information in different formats.
type Printer interface {
	PrintTasks(tasks []model.Task) error
	PrintOnboardingStatus(status OnboardingStatus) error
	PrintStatusEvent(ev model.StatusEvent) error
	PrintMessage(msg string) error
}
