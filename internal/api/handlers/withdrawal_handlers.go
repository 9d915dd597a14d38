package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/vestra-invest/ledger-service/internal/domain/services/withdrawal"
	"github.com/vestra-invest/ledger-service/pkg/logger"
)

// WithdrawalHandlers handles withdrawal requests and operator review
type WithdrawalHandlers struct {
	withdrawalService *withdrawal.Service
	validator         *validator.Validate
	logger            *logger.Logger
}

// NewWithdrawalHandlers creates a new WithdrawalHandlers instance
func NewWithdrawalHandlers(withdrawalService *withdrawal.Service, logger *logger.Logger) *WithdrawalHandlers {
	return &WithdrawalHandlers{
		withdrawalService: withdrawalService,
		validator:         validator.New(),
		logger:            logger,
	}
}

// CreateWithdrawalRequest represents a withdrawal request
type CreateWithdrawalRequest struct {
	Amount  string `json:"amount" validate:"required"`
	Bank    string `json:"bank"`
	Account string `json:"account" validate:"required"`
}

// RejectWithdrawalRequest carries the operator's rejection reason
type RejectWithdrawalRequest struct {
	Reason string `json:"reason"`
}

// CreateWithdrawal handles POST /withdrawals
func (h *WithdrawalHandlers) CreateWithdrawal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		SendUnauthorized(c, "invalid or missing user ID")
		return
	}

	var req CreateWithdrawalRequest
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

	w, err := h.withdrawalService.Request(c.Request.Context(), userID, amount, req.Bank, req.Account)
	if err != nil {
		h.logger.Warn("Withdrawal request failed", "error", err, "user_id", userID.String())
		SendDomainError(c, err)
		return
	}

	SendCreated(c, w)
}

// ListWithdrawals handles GET /withdrawals
func (h *WithdrawalHandlers) ListWithdrawals(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		SendUnauthorized(c, "invalid or missing user ID")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	withdrawals, err := h.withdrawalService.ListByUser(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Error("Failed to list withdrawals", "error", err, "user_id", userID.String())
		SendDomainError(c, err)
		return
	}

	SendSuccess(c, withdrawals)
}

// ListPending handles GET /admin/withdrawals/pending
func (h *WithdrawalHandlers) ListPending(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	withdrawals, err := h.withdrawalService.ListPending(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list pending withdrawals", "error", err)
		SendDomainError(c, err)
		return
	}

	SendSuccess(c, withdrawals)
}

// ApproveWithdrawal handles POST /admin/withdrawals/:id/approve
func (h *WithdrawalHandlers) ApproveWithdrawal(c *gin.Context) {
	operatorID, err := getUserID(c)
	if err != nil {
		SendUnauthorized(c, "invalid or missing operator ID")
		return
	}

	withdrawalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		SendBadRequest(c, "invalid withdrawal ID")
		return
	}

	w, err := h.withdrawalService.Approve(c.Request.Context(), withdrawalID, operatorID)
	if err != nil {
		h.logger.Warn("Withdrawal approval failed", "error", err, "withdrawal_id", withdrawalID.String())
		SendDomainError(c, err)
		return
	}

	SendSuccess(c, w)
}

// RejectWithdrawal handles POST /admin/withdrawals/:id/reject
func (h *WithdrawalHandlers) RejectWithdrawal(c *gin.Context) {
	operatorID, err := getUserID(c)
	if err != nil {
		SendUnauthorized(c, "invalid or missing operator ID")
		return
	}

	withdrawalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		SendBadRequest(c, "invalid withdrawal ID")
		return
	}

	var req RejectWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBadRequest(c, "invalid request body")
		return
	}

	w, err := h.withdrawalService.Reject(c.Request.Context(), withdrawalID, operatorID, req.Reason)
	if err != nil {
		h.logger.Warn("Withdrawal rejection failed", "error", err, "withdrawal_id", withdrawalID.String())
		SendDomainError(c, err)
		return
	}

	SendSuccess(c, w)
}
