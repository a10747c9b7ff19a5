package registry

import (
	"context"

	"github.com/ruteri/ondc-onboarding-service/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockRegistry mocks the interfaces.RegistryClient interface
type MockRegistry struct {
	mock.Mock
}

var _ interfaces.RegistryClient = (*MockRegistry)(nil)

// Subscribe mocks the Subscribe method
func (m *MockRegistry) Subscribe(ctx context.Context, env interfaces.Environment, body []byte, authorization string) (*interfaces.SubscribeAck, error) {
	args := m.Called(ctx, env, body, authorization)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.SubscribeAck), args.Error(1)
}

// Lookup mocks the Lookup method
func (m *MockRegistry) Lookup(ctx context.Context, env interfaces.Environment, query interfaces.LookupQuery) ([]interfaces.ParticipantRecord, error) {
	args := m.Called(ctx, env, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]interfaces.ParticipantRecord), args.Error(1)
}

// VLookup mocks the VLookup method
func (m *MockRegistry) VLookup(ctx context.Context, env interfaces.Environment, query interfaces.VLookupQuery) ([]interfaces.ParticipantRecord, error) {
	args := m.Called(ctx, env, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]interfaces.ParticipantRecord), args.Error(1)
}
