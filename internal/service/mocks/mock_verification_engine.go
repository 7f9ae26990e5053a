package mocks

import (
	"context"

	"custodyapi/internal/model"
	"custodyapi/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockVerificationEngine struct {
	mock.Mock
}

func (m *MockVerificationEngine) Verify(ctx context.Context, code string, opts service.VerifyOptions) (*model.VerificationResult, error) {
	args := m.Called(ctx, code, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VerificationResult), args.Error(1)
}
