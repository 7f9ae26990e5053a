package mocks

import (
	"context"
	"encoding/json"

	"custodyapi/internal/model"
	"custodyapi/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockEvidenceLedger struct {
	mock.Mock
}

func (m *MockEvidenceLedger) Append(ctx context.Context, incidentID string, evidenceType model.EvidenceType, payload json.RawMessage, capturedBy string) (*model.EvidenceRecord, error) {
	args := m.Called(ctx, incidentID, evidenceType, payload, capturedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EvidenceRecord), args.Error(1)
}

func (m *MockEvidenceLedger) AppendFile(ctx context.Context, req service.AppendFileRequest) (*model.EvidenceRecord, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EvidenceRecord), args.Error(1)
}

func (m *MockEvidenceLedger) List(ctx context.Context, incidentID string) ([]model.EvidenceRecord, error) {
	args := m.Called(ctx, incidentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.EvidenceRecord), args.Error(1)
}

func (m *MockEvidenceLedger) VerifyChain(ctx context.Context, incidentID string) (*model.ChainVerification, error) {
	args := m.Called(ctx, incidentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ChainVerification), args.Error(1)
}
