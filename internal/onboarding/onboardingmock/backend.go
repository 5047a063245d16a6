package onboardingmock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gistapp/gist/internal/model"
	"github.com/gistapp/gist/internal/onboarding"
)

var _ onboarding.Backend = &MockBackend{}

// MockBackend is a mock of onboarding.Backend.
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) ListOnboardingEmails(ctx context.Context, limit int, folder string) ([]model.Email, error) {
	args := m.Called(ctx, limit, folder)
	var emails []model.Email
	if v := args.Get(0); v != nil {
		emails = v.([]model.Email)
	}
	return emails, args.Error(1)
}

func (m *MockBackend) InferDomain(ctx context.Context, r model.DomainInferenceRequest) (*model.DomainInference, error) {
	args := m.Called(ctx, r)
	var inf *model.DomainInference
	if v := args.Get(0); v != nil {
		inf = v.(*model.DomainInference)
	}
	return inf, args.Error(1)
}

func (m *MockBackend) SubmitOnboarding(ctx context.Context, p model.OnboardingProfile) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

func (m *MockBackend) UpdatePersonality(ctx context.Context, personality []string) error {
	args := m.Called(ctx, personality)
	return args.Error(0)
}

func (m *MockBackend) StartOnboarding(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockBackend) CheckOnboarding(ctx context.Context) (*model.JobStatus, error) {
	args := m.Called(ctx)
	var s *model.JobStatus
	if v := args.Get(0); v != nil {
		s = v.(*model.JobStatus)
	}
	return s, args.Error(1)
}
