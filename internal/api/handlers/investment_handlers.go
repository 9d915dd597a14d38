package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/vestra-invest/ledger-service/internal/domain/services/investing"
	"github.com/vestra-invest/ledger-service/pkg/logger"
)

// InvestmentHandlers handles investment lifecycle operations
type InvestmentHandlers struct {
	investingService *investing.Service
	validator        *validator.Validate
	logger           *logger.Logger
}

// NewInvestmentHandlers creates a new InvestmentHandlers instance
func NewInvestmentHandlers(investingService *investing.Service, logger *logger.Logger) *InvestmentHandlers {
	return &InvestmentHandlers{
		investingService: investingService,
		validator:        validator.New(),
		logger:           logger,
	}
}

// CreateInvestmentRequest represents an investment creation request
type CreateInvestmentRequest struct {
	Amount  string  `json:"amount" validate:"required"`
	OfferID *string `json:"offer_id,omitempty"`
}

// CreateInvestment handles POST /investments
func (h *InvestmentHandlers) CreateInvestment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		SendUnauthorized(c, "invalid or missing user ID")
		return
	}

	var req CreateInvestmentRequest
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

	var offerID *uuid.UUID
	if req.OfferID != nil {
		parsed, err := uuid.Parse(*req.OfferID)
		if err != nil {
			SendBadRequest(c, "invalid offer ID")
			return
		}
		offerID = &parsed
	}

	investment, err := h.investingService.Create(c.Request.Context(), userID, amount, offerID)
	if err != nil {
		h.logger.Warn("Investment creation failed", "error", err, "user_id", userID.String())
		SendDomainError(c, err)
		return
	}

	SendCreated(c, investment)
}

// ListInvestments handles GET /investments
func (h *InvestmentHandlers) ListInvestments(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		SendUnauthorized(c, "invalid or missing user ID")
		return
	}

	activeOnly := c.DefaultQuery("active", "false") == "true"

	investments, err := h.investingService.ListByUser(c.Request.Context(), userID, activeOnly)
	if err != nil {
		h.logger.Error("Failed to list investments", "error", err, "user_id", userID.String())
		SendDomainError(c, err)
		return
	}

	SendSuccess(c, investments)
}

// EncashInvestment handles POST /investments/:id/encash: sweeps accrued
// interest for rolling investments, or pays out a matured contract.
func (h *InvestmentHandlers) EncashInvestment(c *gin.Context) {
	if _, err := getUserID(c); err != nil {
		SendUnauthorized(c, "invalid or missing user ID")
		return
	}

	investmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		SendBadRequest(c, "invalid investment ID")
		return
	}

	investment, err := h.investingService.Get(c.Request.Context(), investmentID)
	if err != nil {
		SendDomainError(c, err)
		return
	}

	if investment.IsContract() {
		payout, err := h.investingService.EncashContract(c.Request.Context(), investmentID, time.Now().UTC())
		if err != nil {
			SendDomainError(c, err)
			return
		}
		SendSuccess(c, gin.H{"payout": payout})
		return
	}

	swept, err := h.investingService.EncashAccrued(c.Request.Context(), investmentID, time.Now().UTC())
	if err != nil {
		SendDomainError(c, err)
		return
	}
	SendSuccess(c, gin.H{"encashed": swept})
}

// WithdrawPrincipal handles POST /investments/:id/withdraw
func (h *InvestmentHandlers) WithdrawPrincipal(c *gin.Context) {
	if _, err := getUserID(c); err != nil {
		SendUnauthorized(c, "invalid or missing user ID")
		return
	}

	investmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		SendBadRequest(c, "invalid investment ID")
		return
	}

	if err := h.investingService.WithdrawPrincipal(c.Request.Context(), investmentID, time.Now().UTC()); err != nil {
		h.logger.Warn("Principal withdrawal failed", "error", err, "investment_id", investmentID.String())
		SendDomainError(c, err)
		return
	}

	SendSuccess(c, gin.H{"investment_id": investmentID})
}

// ListOffers handles GET /offers
func (h *InvestmentHandlers) ListOffers(c *gin.Context) {
	offers, err := h.investingService.ListOpenOffers(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list offers", "error", err)
		SendDomainError(c, err)
		return
	}

	SendSuccess(c, offers)
}
