package reconciler

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/aurora-banking-core/internal/apperr"
	"github.com/aurora-banking-core/internal/compliance"
	"github.com/aurora-banking-core/internal/domain/account"
	"github.com/aurora-banking-core/internal/domain/shared"
	"github.com/aurora-banking-core/internal/domain/transaction"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
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

func (m *MockGateway) GetAllTransactions(ctx context.Context) ([]compliance.GatewayTransaction, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]compliance.GatewayTransaction), args.Error(1)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestService(t *testing.T, accounts *MockAccountRepository, transactions *MockTransactionRepository, gateway *MockGateway) *Service {
	service, err := NewService(newTestLogger(), Config{PoolSize: 4}, accounts, transactions, gateway)
	require.NoError(t, err)
	t.Cleanup(service.Shutdown)
	return service
}

func pendingRow(accountID uuid.UUID, txType shared.TransactionType, amount int64) *transaction.Transaction {
	key := uuid.New()
	return &transaction.Transaction{
		ID:             uuid.New(),
		AccountID:      accountID,
		Type:           txType,
		Amount:         amount,
		Status:         shared.TransactionStatusProcessing,
		IdempotencyKey: &key,
	}
}

func TestReconcileFailsClosedOnOwnership(t *testing.T) {
	ctx := context.Background()
	accountID := uuid.New()

	t.Run("account not found", func(t *testing.T) {
		accounts := new(MockAccountRepository)
		transactions := new(MockTransactionRepository)
		gateway := new(MockGateway)
		service := newTestService(t, accounts, transactions, gateway)

		accounts.On("GetByID", ctx, accountID).Return(nil, account.ErrAccountNotFound{AccountID: accountID}).Once()

		err := service.Reconcile(ctx, "user-1", accountID)
		assert.Equal(t, apperr.KindAccessDenied, apperr.KindOf(err))
		accounts.AssertExpectations(t)
		gateway.AssertNotCalled(t, "GetAllTransactions", mock.Anything)
	})

	t.Run("owned by someone else", func(t *testing.T) {
		accounts := new(MockAccountRepository)
		transactions := new(MockTransactionRepository)
		gateway := new(MockGateway)
		service := newTestService(t, accounts, transactions, gateway)

		accounts.On("GetByID", ctx, accountID).
			Return(&account.Account{ID: accountID, UserID: "someone-else"}, nil).Once()

		err := service.Reconcile(ctx, "user-1", accountID)
		assert.Equal(t, apperr.KindAccessDenied, apperr.KindOf(err))
		gateway.AssertNotCalled(t, "GetAllTransactions", mock.Anything)
	})
}

func TestReconcileNothingPending(t *testing.T) {
	ctx := context.Background()
	accountID := uuid.New()

	accounts := new(MockAccountRepository)
	transactions := new(MockTransactionRepository)
	gateway := new(MockGateway)
	service := newTestService(t, accounts, transactions, gateway)

	accounts.On("GetByID", ctx, accountID).
		Return(&account.Account{ID: accountID, UserID: "user-1", Balance: 1000}, nil).Once()
	transactions.On("ListPendingWithIdempotencyKey", ctx, accountID).
		Return([]*transaction.Transaction{}, nil).Once()

	err := service.Reconcile(ctx, "user-1", accountID)
	assert.NoError(t, err)
	gateway.AssertNotCalled(t, "GetAllTransactions", mock.Anything)
}

func TestReconcileSettlesAuthorizedWithBalance(t *testing.T) {
	ctx := context.Background()
	accountID := uuid.New()

	accounts := new(MockAccountRepository)
	transactions := new(MockTransactionRepository)
	gateway := new(MockGateway)
	service := newTestService(t, accounts, transactions, gateway)

	row := pendingRow(accountID, shared.TransactionTypeDebit, 2000)

	accounts.On("GetByID", ctx, accountID).
		Return(&account.Account{ID: accountID, UserID: "user-1", Balance: 5000}, nil).Once()
	transactions.On("ListPendingWithIdempotencyKey", ctx, accountID).
		Return([]*transaction.Transaction{row}, nil).Once()
	gateway.On("GetAllTransactions", ctx).
		Return([]compliance.GatewayTransaction{
			{ID: row.IdempotencyKey.String(), Status: shared.TransactionStatusAuthorized},
		}, nil).Once()
	transactions.On("Settle", ctx, mock.MatchedBy(func(s transaction.Settlement) bool {
		return s.TransactionID == row.ID &&
			s.Status == shared.TransactionStatusAuthorized &&
			s.NewBalance != nil && *s.NewBalance == 3000
	})).Return(nil).Once()

	err := service.Reconcile(ctx, "user-1", accountID)
	assert.NoError(t, err)
	transactions.AssertExpectations(t)
}

func TestReconcileAuthorizedOverdrawLeavesRowPending(t *testing.T) {
	ctx := context.Background()
	accountID := uuid.New()

	accounts := new(MockAccountRepository)
	transactions := new(MockTransactionRepository)
	gateway := new(MockGateway)
	service := newTestService(t, accounts, transactions, gateway)

	// Externally authorized debit of 9000 against a balance of 5000. The
	// row must stay pending: marking it authorized without applying its
	// contribution would desync the balance from the authorized rows.
	row := pendingRow(accountID, shared.TransactionTypeDebit, 9000)

	accounts.On("GetByID", ctx, accountID).
		Return(&account.Account{ID: accountID, UserID: "user-1", Balance: 5000}, nil).Once()
	transactions.On("ListPendingWithIdempotencyKey", ctx, accountID).
		Return([]*transaction.Transaction{row}, nil).Once()
	gateway.On("GetAllTransactions", ctx).
		Return([]compliance.GatewayTransaction{
			{ID: row.IdempotencyKey.String(), Status: shared.TransactionStatusAuthorized},
		}, nil).Once()

	err := service.Reconcile(ctx, "user-1", accountID)
	assert.NoError(t, err)
	transactions.AssertNotCalled(t, "Settle", mock.Anything, mock.Anything)
}

func TestReconcileAuthorizedReversalFlagsOriginal(t *testing.T) {
	ctx := context.Background()
	accountID := uuid.New()
	originalID := uuid.New()

	accounts := new(MockAccountRepository)
	transactions := new(MockTransactionRepository)
	gateway := new(MockGateway)
	service := newTestService(t, accounts, transactions, gateway)

	// A reversal whose poll ran out of budget was parked as processing;
	// when reconciliation authorizes it, the original must be flagged
	// reverted in the same settlement.
	row := pendingRow(accountID, shared.TransactionTypeCredit, 2000)
	row.ReversedByID = &originalID

	accounts.On("GetByID", ctx, accountID).
		Return(&account.Account{ID: accountID, UserID: "user-1", Balance: 3000}, nil).Once()
	transactions.On("ListPendingWithIdempotencyKey", ctx, accountID).
		Return([]*transaction.Transaction{row}, nil).Once()
	gateway.On("GetAllTransactions", ctx).
		Return([]compliance.GatewayTransaction{
			{ID: row.IdempotencyKey.String(), Status: shared.TransactionStatusAuthorized},
		}, nil).Once()
	transactions.On("Settle", ctx, mock.MatchedBy(func(s transaction.Settlement) bool {
		return s.TransactionID == row.ID &&
			s.Status == shared.TransactionStatusAuthorized &&
			s.NewBalance != nil && *s.NewBalance == 5000 &&
			s.MarkReverted != nil && *s.MarkReverted == originalID
	})).Return(nil).Once()

	err := service.Reconcile(ctx, "user-1", accountID)
	assert.NoError(t, err)
	transactions.AssertExpectations(t)
}

func TestReconcileDeclinedReversalLeavesOriginalUntouched(t *testing.T) {
	ctx := context.Background()
	accountID := uuid.New()
	originalID := uuid.New()

	accounts := new(MockAccountRepository)
	transactions := new(MockTransactionRepository)
	gateway := new(MockGateway)
	service := newTestService(t, accounts, transactions, gateway)

	row := pendingRow(accountID, shared.TransactionTypeCredit, 2000)
	row.ReversedByID = &originalID

	accounts.On("GetByID", ctx, accountID).
		Return(&account.Account{ID: accountID, UserID: "user-1", Balance: 3000}, nil).Once()
	transactions.On("ListPendingWithIdempotencyKey", ctx, accountID).
		Return([]*transaction.Transaction{row}, nil).Once()
	gateway.On("GetAllTransactions", ctx).
		Return([]compliance.GatewayTransaction{
			{ID: row.IdempotencyKey.String(), Status: shared.TransactionStatusUnauthorized},
		}, nil).Once()
	transactions.On("Settle", ctx, mock.MatchedBy(func(s transaction.Settlement) bool {
		return s.TransactionID == row.ID &&
			s.Status == shared.TransactionStatusUnauthorized &&
			s.NewBalance == nil &&
			s.MarkReverted == nil
	})).Return(nil).Once()

	err := service.Reconcile(ctx, "user-1", accountID)
	assert.NoError(t, err)
	transactions.AssertExpectations(t)
}

func TestReconcileSkipsUnmatchedAndNonTerminal(t *testing.T) {
	ctx := context.Background()
	accountID := uuid.New()

	accounts := new(MockAccountRepository)
	transactions := new(MockTransactionRepository)
	gateway := new(MockGateway)
	service := newTestService(t, accounts, transactions, gateway)

	unmatched := pendingRow(accountID, shared.TransactionTypeCredit, 100)
	stillProcessing := pendingRow(accountID, shared.TransactionTypeCredit, 200)
	rejected := pendingRow(accountID, shared.TransactionTypeDebit, 300)

	accounts.On("GetByID", ctx, accountID).
		Return(&account.Account{ID: accountID, UserID: "user-1", Balance: 1000}, nil).Once()
	transactions.On("ListPendingWithIdempotencyKey", ctx, accountID).
		Return([]*transaction.Transaction{unmatched, stillProcessing, rejected}, nil).Once()
	gateway.On("GetAllTransactions", ctx).
		Return([]compliance.GatewayTransaction{
			{ID: stillProcessing.IdempotencyKey.String(), Status: shared.TransactionStatusProcessing},
			{ID: rejected.IdempotencyKey.String(), Status: shared.TransactionStatusUnauthorized},
		}, nil).Once()
	// Only the rejected row settles, and without a balance write
	transactions.On("Settle", ctx, mock.MatchedBy(func(s transaction.Settlement) bool {
		return s.TransactionID == rejected.ID &&
			s.Status == shared.TransactionStatusUnauthorized &&
			s.NewBalance == nil
	})).Return(nil).Once()

	err := service.Reconcile(ctx, "user-1", accountID)
	assert.NoError(t, err)
	transactions.AssertExpectations(t)
	transactions.AssertNumberOfCalls(t, "Settle", 1)
}

func TestReconcileSwallowsPerRecordErrors(t *testing.T) {
	ctx := context.Background()
	accountID := uuid.New()

	accounts := new(MockAccountRepository)
	transactions := new(MockTransactionRepository)
	gateway := new(MockGateway)
	service := newTestService(t, accounts, transactions, gateway)

	row := pendingRow(accountID, shared.TransactionTypeCredit, 100)

	accounts.On("GetByID", ctx, accountID).
		Return(&account.Account{ID: accountID, UserID: "user-1", Balance: 1000}, nil).Once()
	transactions.On("ListPendingWithIdempotencyKey", ctx, accountID).
		Return([]*transaction.Transaction{row}, nil).Once()
	gateway.On("GetAllTransactions", ctx).
		Return([]compliance.GatewayTransaction{
			{ID: row.IdempotencyKey.String(), Status: shared.TransactionStatusAuthorized},
		}, nil).Once()
	transactions.On("Settle", ctx, mock.Anything).Return(errors.New("db down")).Once()

	err := service.Reconcile(ctx, "user-1", accountID)
	assert.NoError(t, err)
	transactions.AssertExpectations(t)
}

func TestReconcileGatewayFailure(t *testing.T) {
	ctx := context.Background()
	accountID := uuid.New()

	accounts := new(MockAccountRepository)
	transactions := new(MockTransactionRepository)
	gateway := new(MockGateway)
	service := newTestService(t, accounts, transactions, gateway)

	row := pendingRow(accountID, shared.TransactionTypeCredit, 100)

	accounts.On("GetByID", ctx, accountID).
		Return(&account.Account{ID: accountID, UserID: "user-1", Balance: 1000}, nil).Once()
	transactions.On("ListPendingWithIdempotencyKey", ctx, accountID).
		Return([]*transaction.Transaction{row}, nil).Once()
	gateway.On("GetAllTransactions", ctx).Return(nil, errors.New("gateway unreachable")).Once()

	err := service.Reconcile(ctx, "user-1", accountID)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	transactions.AssertNotCalled(t, "Settle", mock.Anything, mock.Anything)
}
