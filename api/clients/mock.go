package clients

import (
	"context"

	"github.com/ruteri/ondc-onboarding-service/api"
	"github.com/ruteri/ondc-onboarding-service/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockOnboardingProvider implements OnboardingProvider for testing.
type MockOnboardingProvider struct {
	mock.Mock
}

var _ OnboardingProvider = (*MockOnboardingProvider)(nil)

func (m *MockOnboardingProvider) GenerateKeys(ctx context.Context, subscriberID string) (*api.GenerateKeysResponse, error) {
	args := m.Called(ctx, subscriberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.GenerateKeysResponse), args.Error(1)
}

func (m *MockOnboardingProvider) GenerateVerification(ctx context.Context, subscriberID, uniqueKeyID string) (*api.GenerateVerificationResponse, error) {
	args := m.Called(ctx, subscriberID, uniqueKeyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.GenerateVerificationResponse), args.Error(1)
}

func (m *MockOnboardingProvider) Subscribe(ctx context.Context, req interfaces.SubscriptionRequest) (*api.SubscribeResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.SubscribeResponse), args.Error(1)
}

func (m *MockOnboardingProvider) Lookup(ctx context.Context, env interfaces.Environment, query interfaces.LookupQuery) ([]interfaces.ParticipantRecord, error) {
	args := m.Called(ctx, env, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]interfaces.ParticipantRecord), args.Error(1)
}

func (m *MockOnboardingProvider) VLookup(ctx context.Context, env interfaces.Environment, sender string, query interfaces.LookupQuery) ([]interfaces.ParticipantRecord, error) {
	args := m.Called(ctx, env, sender, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]interfaces.ParticipantRecord), args.Error(1)
}

func (m *MockOnboardingProvider) ListKeys(ctx context.Context, subscriberID string) ([]interfaces.KeyInfo, error) {
	args := m.Called(ctx, subscriberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]interfaces.KeyInfo), args.Error(1)
}

func (m *MockOnboardingProvider) GetKey(ctx context.Context, subscriberID, uniqueKeyID string) (*interfaces.KeyInfo, error) {
	args := m.Called(ctx, subscriberID, uniqueKeyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.KeyInfo), args.Error(1)
}

func (m *MockOnboardingProvider) DeleteKey(ctx context.Context, subscriberID, uniqueKeyID string) error {
	return m.Called(ctx, subscriberID, uniqueKeyID).Error(0)
}

func (m *MockOnboardingProvider) Status(ctx context.Context) (*api.StatusResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.StatusResponse), args.Error(1)
}
