package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/vestra-invest/ledger-service/internal/domain/services/funding"
	"github.com/vestra-invest/ledger-service/pkg/logger"
)

// FundingHandlers handles deposit operations
type FundingHandlers struct {
	fundingService *funding.Service
	validator      *validator.Validate
	logger         *logger.Logger
}

// NewFundingHandlers creates a new FundingHandlers instance
func NewFundingHandlers(fundingService *funding.Service, logger *logger.Logger) *FundingHandlers {
	return &FundingHandlers{
		fundingService: fundingService,
		validator:      validator.New(),
		logger:         logger,
	}
}

// CreateDepositRequest represents a deposit creation request
type CreateDepositRequest struct {
	Amount     string  `json:"amount" validate:"required"`
	Currency   string  `json:"currency" validate:"required"`
	ExternalID *string `json:"external_id,omitempty"`
}

// CreateDeposit handles POST /deposits
func (h *FundingHandlers) CreateDeposit(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		SendUnauthorized(c, "invalid or missing user ID")
		return
	}

	var req CreateDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBadRequest(c, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		SendBadRequest(c, err.Error())
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		SendBadRequest(c, err.Error())
		return
	}

	deposit, err := h.fundingService.CreateDeposit(c.Request.Context(), userID, amount, req.Currency, req.ExternalID)
	if err != nil {
		h.logger.Error("Failed to create deposit", "error", err, "user_id", userID.String())
		SendDomainError(c, err)
		return
	}

	SendCreated(c, deposit)
}

// CompleteDeposit handles POST /deposits/:id/complete. Payment providers
// re-deliver completions; replays return 200 without moving money.
func (h *FundingHandlers) CompleteDeposit(c *gin.Context) {
	depositID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		SendBadRequest(c, "invalid deposit ID")
		return
	}

	if err := h.fundingService.OnDepositCompleted(c.Request.Context(), depositID); err != nil {
		h.logger.Error("Failed to complete deposit", "error", err, "deposit_id", depositID.String())
		SendDomainError(c, err)
		return
	}

	SendSuccess(c, gin.H{"deposit_id": depositID})
}

// FailDeposit handles POST /deposits/:id/fail
func (h *FundingHandlers) FailDeposit(c *gin.Context) {
	depositID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		SendBadRequest(c, "invalid deposit ID")
		return
	}

	if err := h.fundingService.MarkFailed(c.Request.Context(), depositID); err != nil {
		h.logger.Warn("Failed to fail deposit", "error", err, "deposit_id", depositID.String())
		SendDomainError(c, err)
		return
	}

	SendSuccess(c, gin.H{"deposit_id": depositID})
}

// ListDeposits handles GET /deposits
func (h *FundingHandlers) ListDeposits(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		SendUnauthorized(c, "invalid or missing user ID")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	deposits, err := h.fundingService.ListByUser(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Error("Failed to list deposits", "error", err, "user_id", userID.String())
		SendDomainError(c, err)
		return
	}

	SendSuccess(c, deposits)
}
