package mocks

import (
	"context"

	"custodyapi/internal/model"
	"custodyapi/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockEvidenceRepository struct {
	mock.Mock
}

func (m *MockEvidenceRepository) Head(ctx context.Context, incidentID string) (repository.ChainHead, error) {
	args := m.Called(ctx, incidentID)
	return args.Get(0).(repository.ChainHead), args.Error(1)
}

func (m *MockEvidenceRepository) Insert(ctx context.Context, rec *model.EvidenceRecord) (*model.EvidenceRecord, error) {
	args := m.Called(ctx, rec)
	if f, ok := args.Get(0).(func(*model.EvidenceRecord) *model.EvidenceRecord); ok {
		return f(rec), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EvidenceRecord), args.Error(1)
}

func (m *MockEvidenceRepository) ListByIncident(ctx context.Context, incidentID string) ([]model.EvidenceRecord, error) {
	args := m.Called(ctx, incidentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.EvidenceRecord), args.Error(1)
}

func (m *MockEvidenceRepository) MarkVerified(ctx context.Context, incidentID string, validThrough int) error {
	args := m.Called(ctx, incidentID, validThrough)
	return args.Error(0)
}
