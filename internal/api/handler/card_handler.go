package handler

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aurora-banking-core/internal/api/middleware"
	"github.com/aurora-banking-core/internal/cards"
	"github.com/aurora-banking-core/internal/domain/card"
)

// CardService is the card use-case surface consumed by the API
type CardService interface {
	CreateCard(ctx context.Context, userID string, accountID uuid.UUID, cardType card.CardType, number, cvv string) (*cards.CardView, error)
	ListByAccount(ctx context.Context, userID string, accountID uuid.UUID) ([]*cards.CardView, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*cards.CardView, error)
}

// CardHandler handles card registration and listing endpoints
type CardHandler struct {
	service CardService
	logger  *slog.Logger
}

func NewCardHandler(logger *slog.Logger, service CardService) *CardHandler {
	return &CardHandler{
		service: service,
		logger:  logger,
	}
}

// Create handles POST /api/v1/accounts/:accountId/cards
func (h *CardHandler) Create(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}

	var req CreateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	view, err := h.service.CreateCard(c.Request.Context(), middleware.GetUserID(c), accountID, card.CardType(req.Type), req.Number, req.CVV)
	if err != nil {
		RespondError(c, err)
		return
	}

	RespondCreated(c, view)
}

// ListByAccount handles GET /api/v1/accounts/:accountId/cards
func (h *CardHandler) ListByAccount(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}

	views, err := h.service.ListByAccount(c.Request.Context(), middleware.GetUserID(c), accountID)
	if err != nil {
		RespondError(c, err)
		return
	}

	RespondOK(c, views)
}

// ListByUser handles GET /api/v1/cards
func (h *CardHandler) ListByUser(c *gin.Context) {
	var params ListCardsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	views, err := h.service.ListByUser(c.Request.Context(), middleware.GetUserID(c), params.Limit, params.Offset)
	if err != nil {
		RespondError(c, err)
		return
	}

	RespondOK(c, views)
}
