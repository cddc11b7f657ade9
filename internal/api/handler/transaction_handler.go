package handler

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aurora-banking-core/internal/api/middleware"
	"github.com/aurora-banking-core/internal/domain/shared"
	"github.com/aurora-banking-core/internal/domain/transaction"
	"github.com/aurora-banking-core/internal/ledger"
)

// LedgerService is the transaction use-case surface consumed by the API
type LedgerService interface {
	CreateTransaction(ctx context.Context, userID string, accountID uuid.UUID, amount float64, description string) (*ledger.TransactionView, error)
	CreateInternalTransfer(ctx context.Context, userID string, accountID, receiverAccountID uuid.UUID, amount float64, description string) (*ledger.TransferView, error)
	ReverseTransaction(ctx context.Context, userID string, accountID, transactionID uuid.UUID) (*ledger.TransactionView, error)
	CheckBalance(ctx context.Context, userID string, accountID uuid.UUID) (*ledger.Balance, error)
	ListTransactions(ctx context.Context, userID string, accountID uuid.UUID, filter transaction.ListFilter) (*ledger.TransactionPage, error)
}

// TransactionHandler handles the ledger endpoints of an account
type TransactionHandler struct {
	service LedgerService
	logger  *slog.Logger
}

func NewTransactionHandler(logger *slog.Logger, service LedgerService) *TransactionHandler {
	return &TransactionHandler{
		service: service,
		logger:  logger,
	}
}

// Create handles POST /api/v1/accounts/:accountId/transactions
func (h *TransactionHandler) Create(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	view, err := h.service.CreateTransaction(c.Request.Context(), middleware.GetUserID(c), accountID, req.Amount, req.Description)
	if err != nil {
		RespondError(c, err)
		return
	}

	RespondCreated(c, view)
}

// Transfer handles POST /api/v1/accounts/:accountId/transfers
func (h *TransactionHandler) Transfer(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}

	var req CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	view, err := h.service.CreateInternalTransfer(c.Request.Context(), middleware.GetUserID(c), accountID, req.ReceiverAccountID, req.Amount, req.Description)
	if err != nil {
		RespondError(c, err)
		return
	}

	RespondCreated(c, view)
}

// Reverse handles POST /api/v1/accounts/:accountId/transactions/:transactionId/reverse
func (h *TransactionHandler) Reverse(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}

	transactionID, err := uuid.Parse(c.Param("transactionId"))
	if err != nil {
		RespondBadRequest(c, "Invalid transaction ID format")
		return
	}

	view, err := h.service.ReverseTransaction(c.Request.Context(), middleware.GetUserID(c), accountID, transactionID)
	if err != nil {
		RespondError(c, err)
		return
	}

	RespondCreated(c, view)
}

// Balance handles GET /api/v1/accounts/:accountId/balance
func (h *TransactionHandler) Balance(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}

	balance, err := h.service.CheckBalance(c.Request.Context(), middleware.GetUserID(c), accountID)
	if err != nil {
		RespondError(c, err)
		return
	}

	RespondOK(c, balance)
}

// List handles GET /api/v1/accounts/:accountId/transactions
func (h *TransactionHandler) List(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}

	var params ListTransactionsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	page, err := h.service.ListTransactions(c.Request.Context(), middleware.GetUserID(c), accountID, transaction.ListFilter{
		Type:   shared.TransactionType(params.Type),
		Limit:  params.Limit,
		Offset: params.Offset,
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	RespondOKWithMeta(c, page.Transactions, PaginationMeta{
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}

func parseAccountID(c *gin.Context) (uuid.UUID, bool) {
	accountID, err := uuid.Parse(c.Param("accountId"))
	if err != nil {
		RespondBadRequest(c, "Invalid account ID format")
		return uuid.Nil, false
	}
	return accountID, true
}
