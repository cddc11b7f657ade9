package handler

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/aurora-banking-core/internal/api/middleware"
	"github.com/aurora-banking-core/internal/domain/account"
)

// AccountService is the account use-case surface consumed by the API
type AccountService interface {
	Register(ctx context.Context, userID, document, branch, number string) (*account.Account, error)
	List(ctx context.Context, userID string) ([]*account.Account, error)
}

// AccountHandler handles account registration and listing endpoints
type AccountHandler struct {
	service AccountService
	logger  *slog.Logger
}

func NewAccountHandler(logger *slog.Logger, service AccountService) *AccountHandler {
	return &AccountHandler{
		service: service,
		logger:  logger,
	}
}

// Create handles POST /api/v1/accounts
func (h *AccountHandler) Create(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	acc, err := h.service.Register(c.Request.Context(), middleware.GetUserID(c), req.Document, req.Branch, req.Number)
	if err != nil {
		RespondError(c, err)
		return
	}

	RespondCreated(c, mapAccountToResponse(acc))
}

// List handles GET /api/v1/accounts
func (h *AccountHandler) List(c *gin.Context) {
	accs, err := h.service.List(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	RespondOK(c, mapAccountsToResponse(accs))
}
