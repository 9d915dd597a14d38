// Package routes wires the HTTP surface of the ledger service.
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vestra-invest/ledger-service/internal/api/handlers"
)

// Handlers bundles everything the router needs
type Handlers struct {
	Wallet     *handlers.WalletHandlers
	Funding    *handlers.FundingHandlers
	Withdrawal *handlers.WithdrawalHandlers
	Investment *handlers.InvestmentHandlers
	Referral   *handlers.ReferralHandlers
}

// SetupRouter builds the gin engine with all routes registered
func SetupRouter(h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		wallets := v1.Group("/wallets")
		{
			wallets.GET("", h.Wallet.GetBalances)
			wallets.GET("/:id/ledger", h.Wallet.GetLedger)
			wallets.POST("/transfers", h.Wallet.TransferBucket)
		}

		deposits := v1.Group("/deposits")
		{
			deposits.POST("", h.Funding.CreateDeposit)
			deposits.GET("", h.Funding.ListDeposits)
			deposits.POST("/:id/complete", h.Funding.CompleteDeposit)
			deposits.POST("/:id/fail", h.Funding.FailDeposit)
		}

		withdrawals := v1.Group("/withdrawals")
		{
			withdrawals.POST("", h.Withdrawal.CreateWithdrawal)
			withdrawals.GET("", h.Withdrawal.ListWithdrawals)
		}

		investments := v1.Group("/investments")
		{
			investments.POST("", h.Investment.CreateInvestment)
			investments.GET("", h.Investment.ListInvestments)
			investments.POST("/:id/encash", h.Investment.EncashInvestment)
			investments.POST("/:id/withdraw", h.Investment.WithdrawPrincipal)
		}

		v1.GET("/offers", h.Investment.ListOffers)

		referrals := v1.Group("/referrals")
		{
			referrals.GET("/code", h.Referral.GetCode)
			referrals.GET("/rewards", h.Referral.GetRewards)
			referrals.POST("/register", h.Referral.Register)
		}

		v1.GET("/profile/tier", h.Referral.GetTier)

		admin := v1.Group("/admin")
		{
			admin.GET("/withdrawals/pending", h.Withdrawal.ListPending)
			admin.POST("/withdrawals/:id/approve", h.Withdrawal.ApproveWithdrawal)
			admin.POST("/withdrawals/:id/reject", h.Withdrawal.RejectWithdrawal)
		}
	}

	return router
}
