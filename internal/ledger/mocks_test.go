package ledger

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/aurora-banking-core/internal/compliance"
	"github.com/aurora-banking-core/internal/config"
	"github.com/aurora-banking-core/internal/domain/account"
	"github.com/aurora-banking-core/internal/domain/shared"
	"github.com/aurora-banking-core/internal/domain/transaction"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Create(ctx context.Context, acc *account.Account) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByBranchAndNumber(ctx context.Context, branch, number string) (*account.Account, error) {
	args := m.Called(ctx, branch, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepository) ListByUserID(ctx context.Context, userID string) ([]*account.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*account.Account), args.Error(1)
}

func (m *MockAccountRepository) UpdateBalance(ctx context.Context, id uuid.UUID, balance int64) error {
	args := m.Called(ctx, id, balance)
	return args.Error(0)
}

func (m *MockAccountRepository) WithTx(tx pgx.Tx) account.Repository {
	args := m.Called(tx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(account.Repository)
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *transaction.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByAccountAndID(ctx context.Context, accountID, id uuid.UUID) (*transaction.Transaction, error) {
	args := m.Called(ctx, accountID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByRelatedTransactionID(ctx context.Context, relatedID uuid.UUID) ([]*transaction.Transaction, error) {
	args := m.Called(ctx, relatedID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListByAccountID(ctx context.Context, accountID uuid.UUID, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	args := m.Called(ctx, accountID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) CountByAccountID(ctx context.Context, accountID uuid.UUID, txType shared.TransactionType) (int64, error) {
	args := m.Called(ctx, accountID, txType)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepository) ListPendingWithIdempotencyKey(ctx context.Context, accountID uuid.UUID) ([]*transaction.Transaction, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) Settle(ctx context.Context, s transaction.Settlement) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockTransactionRepository) CreateTransferPair(ctx context.Context, ownerLeg, receiverLeg *transaction.Transaction, ownerBalance, receiverBalance int64) error {
	args := m.Called(ctx, ownerLeg, receiverLeg, ownerBalance, receiverBalance)
	return args.Error(0)
}

func (m *MockTransactionRepository) ReverseTransferPair(ctx context.Context, ownerLeg, receiverLeg *transaction.Transaction, ownerBalance, receiverBalance int64, originalRelatedID uuid.UUID) error {
	args := m.Called(ctx, ownerLeg, receiverLeg, ownerBalance, receiverBalance, originalRelatedID)
	return args.Error(0)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateTransaction(ctx context.Context, idempotencyKey uuid.UUID, input compliance.CreateTransactionInput) (*compliance.GatewayTransaction, error) {
	args := m.Called(ctx, idempotencyKey, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*compliance.GatewayTransaction), args.Error(1)
}

func (m *MockGateway) GetTransactionByID(ctx context.Context, idempotencyKey uuid.UUID) (*compliance.GatewayTransaction, error) {
	args := m.Called(ctx, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*compliance.GatewayTransaction), args.Error(1)
}

type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) Reconcile(ctx context.Context, userID string, accountID uuid.UUID) error {
	args := m.Called(ctx, userID, accountID)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

type testDeps struct {
	accounts     *MockAccountRepository
	transactions *MockTransactionRepository
	gateway      *MockGateway
	reconciler   *MockReconciler
	publisher    *MockPublisher
}

func newTestService() (*Service, *testDeps) {
	deps := &testDeps{
		accounts:     new(MockAccountRepository),
		transactions: new(MockTransactionRepository),
		gateway:      new(MockGateway),
		reconciler:   new(MockReconciler),
		publisher:    new(MockPublisher),
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cfg := &config.ComplianceConfig{PollingMaxRetry: 2, PollingDelay: time.Millisecond}
	service := NewService(logger, cfg, deps.accounts, deps.transactions, deps.gateway, deps.reconciler, deps.publisher)
	return service, deps
}
