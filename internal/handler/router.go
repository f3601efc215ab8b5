package handler

import (
	"investledger/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// SetupRouter 配置路由
func SetupRouter(h *Handler, collector *metrics.Collector) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	api := r.Group("/api/v1")
	{
		user := api.Group("/user")
		{
			user.POST("/register", h.Register)
			user.POST("/login", h.Login)
			user.GET("/profile", h.GetProfile)
			user.GET("/referrals", h.GetReferralStats)
			user.GET("/transactions", h.ListTransactions)
		}

		api.GET("/package/list", h.ListPackages)

		investment := api.Group("/investment")
		{
			investment.POST("/purchase", h.Purchase)
			investment.GET("/list", h.ListInvestments)
			investment.GET("/detail", h.GetInvestment)
		}

		deposit := api.Group("/deposit")
		{
			deposit.POST("/submit", h.SubmitDeposit)
			deposit.GET("/list", h.ListDeposits)
		}

		withdrawal := api.Group("/withdrawal")
		{
			withdrawal.POST("/request", h.RequestWithdrawal)
			withdrawal.GET("/list", h.ListWithdrawals)
		}

		admin := api.Group("/admin")
		{
			admin.POST("/deposit/approve", h.ApproveDeposit)
			admin.POST("/deposit/reject", h.RejectDeposit)
			admin.GET("/deposit/pending", h.ListPendingDeposits)
			admin.POST("/withdrawal/approve", h.ApproveWithdrawal)
			admin.POST("/withdrawal/reject", h.RejectWithdrawal)
			admin.GET("/withdrawal/pending", h.ListPendingWithdrawals)
			admin.POST("/user/balance", h.AdjustBalance)
			admin.POST("/investment/cancel", h.CancelInvestment)
			admin.POST("/accrual/run", h.RunAccrualPass)
		}
	}

	// 监控指标
	r.GET("/metrics", gin.WrapH(collector.Handler()))

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
