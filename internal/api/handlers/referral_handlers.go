package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/vestra-invest/ledger-service/internal/domain/services/referral"
	"github.com/vestra-invest/ledger-service/internal/domain/services/tier"
	"github.com/vestra-invest/ledger-service/pkg/logger"
)

// ReferralHandlers handles referral codes, registration and tier state
type ReferralHandlers struct {
	referralService *referral.Service
	tierService     *tier.Service
	validator       *validator.Validate
	logger          *logger.Logger
}

// NewReferralHandlers creates a new ReferralHandlers instance
func NewReferralHandlers(referralService *referral.Service, tierService *tier.Service, logger *logger.Logger) *ReferralHandlers {
	return &ReferralHandlers{
		referralService: referralService,
		tierService:     tierService,
		validator:       validator.New(),
		logger:          logger,
	}
}

// RegisterReferralRequest links the calling user to an invite code
type RegisterReferralRequest struct {
	Code string `json:"code" validate:"required"`
}

// GetCode handles GET /referrals/code, minting the code on first call
func (h *ReferralHandlers) GetCode(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		SendUnauthorized(c, "invalid or missing user ID")
		return
	}

	code, referred, err := h.referralService.Overview(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to ensure referral code", "error", err, "user_id", userID.String())
		SendDomainError(c, err)
		return
	}

	SendSuccess(c, gin.H{"code": code, "referred_count": referred})
}

// GetRewards handles GET /referrals/rewards: the commissions the caller's
// first deposit paid up the chain
func (h *ReferralHandlers) GetRewards(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		SendUnauthorized(c, "invalid or missing user ID")
		return
	}

	rewards, err := h.referralService.RewardsForDepositor(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list referral rewards", "error", err, "user_id", userID.String())
		SendDomainError(c, err)
		return
	}

	SendSuccess(c, rewards)
}

// Register handles POST /referrals/register
func (h *ReferralHandlers) Register(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		SendUnauthorized(c, "invalid or missing user ID")
		return
	}

	var req RegisterReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBadRequest(c, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		SendBadRequest(c, err.Error())
		return
	}

	link, err := h.referralService.Register(c.Request.Context(), userID, req.Code)
	if err != nil {
		h.logger.Warn("Referral registration failed", "error", err, "user_id", userID.String())
		SendDomainError(c, err)
		return
	}

	SendCreated(c, link)
}

// GetTier handles GET /profile/tier
func (h *ReferralHandlers) GetTier(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		SendUnauthorized(c, "invalid or missing user ID")
		return
	}

	profile, err := h.tierService.Profile(c.Request.Context(), userID)
	if err != nil {
		SendDomainError(c, err)
		return
	}

	SendSuccess(c, profile)
}
