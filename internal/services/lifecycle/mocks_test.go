package lifecycle

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/mock"

	"github.com/kevin07696/lawdesk/internal/domain"
	"github.com/kevin07696/lawdesk/internal/domain/ports"
)

// MockDBPort mocks the database port
type MockDBPort struct {
	mock.Mock
}

func (m *MockDBPort) GetDB() *pgxpool.Pool {
	return nil
}

func (m *MockDBPort) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	// Execute the function with nil transaction for testing
	return fn(ctx, nil)
}

func (m *MockDBPort) WithReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return fn(ctx, nil)
}

// MockCompanyRepository mocks the company repository
type MockCompanyRepository struct {
	mock.Mock
}

func (m *MockCompanyRepository) GetSnapshot(ctx context.Context, db ports.DBTX, companyID int64) (*domain.SubscriptionSnapshot, error) {
	args := m.Called(ctx, db, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SubscriptionSnapshot), args.Error(1)
}

func (m *MockCompanyRepository) ApplyPaymentWindow(ctx context.Context, tx ports.DBTX, companyID int64, window domain.PaymentWindow) error {
	args := m.Called(ctx, tx, companyID, window)
	return args.Error(0)
}

func (m *MockCompanyRepository) ApplyOverdueWindow(ctx context.Context, tx ports.DBTX, companyID int64, window domain.OverdueWindow) error {
	args := m.Called(ctx, tx, companyID, window)
	return args.Error(0)
}

func (m *MockCompanyRepository) StartSubscription(ctx context.Context, tx ports.DBTX, companyID int64, start domain.SubscriptionStart) error {
	args := m.Called(ctx, tx, companyID, start)
	return args.Error(0)
}

// MockPlanRepository mocks the plan repository
type MockPlanRepository struct {
	mock.Mock
}

func (m *MockPlanRepository) GetPlan(ctx context.Context, db ports.DBTX, planID int64) (*domain.Plan, error) {
	args := m.Called(ctx, db, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Plan), args.Error(1)
}
