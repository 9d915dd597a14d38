package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/vestra-invest/ledger-service/internal/domain/entities"
	"github.com/vestra-invest/ledger-service/internal/domain/services/wallet"
	"github.com/vestra-invest/ledger-service/pkg/logger"
)

// WalletHandlers handles wallet balance and ledger operations
type WalletHandlers struct {
	walletService *wallet.Service
	validator     *validator.Validate
	logger        *logger.Logger
}

// NewWalletHandlers creates a new WalletHandlers instance
func NewWalletHandlers(walletService *wallet.Service, logger *logger.Logger) *WalletHandlers {
	return &WalletHandlers{
		walletService: walletService,
		validator:     validator.New(),
		logger:        logger,
	}
}

// BucketTransferRequest represents a move between two buckets of one wallet
type BucketTransferRequest struct {
	Currency string `json:"currency" validate:"required"`
	From     string `json:"from" validate:"required,oneof=available pending gains locked"`
	To       string `json:"to" validate:"required,oneof=available pending gains locked"`
	Amount   string `json:"amount" validate:"required"`
}

// GetBalances handles GET /wallets
func (h *WalletHandlers) GetBalances(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		SendUnauthorized(c, "invalid or missing user ID")
		return
	}

	wallets, err := h.walletService.Balances(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to get balances", "error", err, "user_id", userID.String())
		SendDomainError(c, err)
		return
	}

	SendSuccess(c, wallets)
}

// GetLedger handles GET /wallets/:id/ledger
func (h *WalletHandlers) GetLedger(c *gin.Context) {
	if _, err := getUserID(c); err != nil {
		SendUnauthorized(c, "invalid or missing user ID")
		return
	}

	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		SendBadRequest(c, "invalid wallet ID")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, err := h.walletService.History(c.Request.Context(), walletID, limit, offset)
	if err != nil {
		h.logger.Error("Failed to get ledger", "error", err, "wallet_id", walletID.String())
		SendDomainError(c, err)
		return
	}

	SendSuccess(c, entries)
}

// TransferBucket handles POST /wallets/transfers
func (h *WalletHandlers) TransferBucket(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		SendUnauthorized(c, "invalid or missing user ID")
		return
	}

	var req BucketTransferRequest
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

	if err := h.walletService.TransferBucket(c.Request.Context(), userID, req.Currency,
		entities.Bucket(req.From), entities.Bucket(req.To), amount); err != nil {
		h.logger.Warn("Bucket transfer failed", "error", err, "user_id", userID.String())
		SendDomainError(c, err)
		return
	}

	SendSuccess(c, gin.H{"transferred": amount})
}
