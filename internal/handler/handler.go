package handler

import (
	"errors"
	"strconv"
	"time"

	"investledger/internal/repository"
	"investledger/internal/service"
	"investledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	userService       *service.UserService
	investmentService *service.InvestmentService
	depositService    *service.DepositService
	withdrawService   *service.WithdrawService
	accrualService    *service.AccrualService
}

// NewHandler 创建处理器实例
func NewHandler(
	userService *service.UserService,
	investmentService *service.InvestmentService,
	depositService *service.DepositService,
	withdrawService *service.WithdrawService,
	accrualService *service.AccrualService,
) *Handler {
	return &Handler{
		userService:       userService,
		investmentService: investmentService,
		depositService:    depositService,
		withdrawService:   withdrawService,
		accrualService:    accrualService,
	}
}

// businessError 业务错误到响应码的映射
func businessError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		response.BusinessError(c, response.CodeUserNotFound, err.Error())
	case errors.Is(err, repository.ErrPackageNotFound):
		response.BusinessError(c, response.CodePackageNotFound, err.Error())
	case errors.Is(err, repository.ErrInvestmentNotFound):
		response.BusinessError(c, response.CodeInvestmentNotFound, err.Error())
	case errors.Is(err, repository.ErrDepositNotFound):
		response.BusinessError(c, response.CodeDepositNotFound, err.Error())
	case errors.Is(err, repository.ErrWithdrawalNotFound):
		response.BusinessError(c, response.CodeWithdrawalNotFound, err.Error())
	case errors.Is(err, repository.ErrBalanceNotEnough):
		response.BusinessError(c, response.CodeBalanceNotEnough, err.Error())
	case errors.Is(err, repository.ErrStatusInvalid):
		response.BusinessError(c, response.CodeStatusInvalid, err.Error())
	case errors.Is(err, repository.ErrOptimisticLock):
		response.BusinessError(c, response.CodeDuplicateRequest, "余额发生并发变更，请重试")
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrReferralCodeInvalid),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidDepositAmount),
		errors.Is(err, service.ErrBelowMinWithdrawal),
		errors.Is(err, service.ErrPackageUnavailable),
		errors.Is(err, service.ErrInvalidDuration):
		response.BusinessError(c, response.CodeBusinessError, err.Error())
	case errors.Is(err, service.ErrNotAdmin):
		response.Error(c, response.CodeForbidden, err.Error())
	default:
		response.ServerError(c, err.Error())
	}
}

func queryInt64(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil {
		response.ParamError(c, name+" 参数错误")
		return 0, false
	}
	return v, true
}

// ============================================================
// 用户相关接口
// ============================================================

// Register 注册
// POST /api/v1/user/register
func (h *Handler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	user, err := h.userService.Register(c.Request.Context(), &req)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{
		"user_id":       user.ID,
		"referral_code": user.ReferralCode,
		"balance":       user.Balance,
	})
}

// Login 登录
// POST /api/v1/user/login
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	user, err := h.userService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, response.CodeUnauthorized, "邮箱或密码错误")
		return
	}

	response.Success(c, gin.H{
		"user_id": user.ID,
		"name":    user.Name,
		"role":    user.Role,
	})
}

// GetProfile 查询用户概况
// GET /api/v1/user/profile?user_id=xxx
func (h *Handler) GetProfile(c *gin.Context) {
	userID, ok := queryInt64(c, "user_id")
	if !ok {
		return
	}

	user, err := h.userService.GetByID(c.Request.Context(), userID)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{
		"user_id":           user.ID,
		"name":              user.Name,
		"balance":           user.Balance,
		"total_purchased":   user.TotalPurchased,
		"total_earnings":    user.TotalEarnings,
		"referral_earnings": user.ReferralEarnings,
		"referral_code":     user.ReferralCode,
		"has_made_deposit":  user.HasMadeDeposit,
	})
}

// GetReferralStats 查询推荐概览
// GET /api/v1/user/referrals?user_id=xxx
func (h *Handler) GetReferralStats(c *gin.Context) {
	userID, ok := queryInt64(c, "user_id")
	if !ok {
		return
	}

	stats, err := h.userService.GetReferralStats(c.Request.Context(), userID)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, stats)
}

// ListTransactions 查询资金流水
// GET /api/v1/user/transactions?user_id=xxx&page=1&page_size=20
func (h *Handler) ListTransactions(c *gin.Context) {
	userID, ok := queryInt64(c, "user_id")
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	list, total, err := h.userService.ListTransactions(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      list,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 套餐与投资接口
// ============================================================

// ListPackages 在售套餐列表
// GET /api/v1/package/list
func (h *Handler) ListPackages(c *gin.Context) {
	packages, err := h.investmentService.ListPackages(c.Request.Context())
	if err != nil {
		businessError(c, err)
		return
	}
	response.Success(c, gin.H{"list": packages})
}

// PurchaseRequest 购买套餐请求
type PurchaseRequest struct {
	UserID    int64 `json:"user_id" binding:"required"`
	PackageID int64 `json:"package_id" binding:"required"`
}

// Purchase 购买套餐
// POST /api/v1/investment/purchase
func (h *Handler) Purchase(c *gin.Context) {
	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	inv, err := h.investmentService.Purchase(c.Request.Context(), req.UserID, req.PackageID)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{
		"investment_no":   inv.InvestmentNo,
		"amount":          inv.Amount,
		"expected_return": inv.ExpectedReturn,
		"maturity_date":   inv.MaturityDate,
	})
}

// ListInvestments 查询用户投资单列表
// GET /api/v1/investment/list?user_id=xxx&page=1&page_size=20
func (h *Handler) ListInvestments(c *gin.Context) {
	userID, ok := queryInt64(c, "user_id")
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	list, total, err := h.investmentService.ListByUser(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      list,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetInvestment 投资单详情与发放历史
// GET /api/v1/investment/detail?user_id=xxx&investment_id=xxx
func (h *Handler) GetInvestment(c *gin.Context) {
	userID, ok := queryInt64(c, "user_id")
	if !ok {
		return
	}
	investmentID, ok := queryInt64(c, "investment_id")
	if !ok {
		return
	}

	detail, err := h.investmentService.GetDetail(c.Request.Context(), userID, investmentID)
	if err != nil {
		businessError(c, err)
		return
	}
	response.Success(c, detail)
}

// ============================================================
// 充值接口
// ============================================================

// SubmitDepositRequest 充值申请
type SubmitDepositRequest struct {
	UserID int64  `json:"user_id" binding:"required"`
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Method string `json:"method" binding:"required"`
}

// SubmitDeposit 提交充值申请
// POST /api/v1/deposit/submit
func (h *Handler) SubmitDeposit(c *gin.Context) {
	var req SubmitDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	deposit, err := h.depositService.Submit(c.Request.Context(), req.UserID, req.Amount, req.Method)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{
		"deposit_no": deposit.DepositNo,
		"status":     deposit.Status,
	})
}

// ListDeposits 查询用户充值记录
// GET /api/v1/deposit/list?user_id=xxx
func (h *Handler) ListDeposits(c *gin.Context) {
	userID, ok := queryInt64(c, "user_id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	list, err := h.depositService.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		businessError(c, err)
		return
	}
	response.Success(c, gin.H{"list": list})
}

// ============================================================
// 提现接口
// ============================================================

// RequestWithdrawal 提交提现申请
// POST /api/v1/withdrawal/request
func (h *Handler) RequestWithdrawal(c *gin.Context) {
	var req struct {
		UserID int64 `json:"user_id" binding:"required"`
		service.WithdrawRequest
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	withdrawal, err := h.withdrawService.Request(c.Request.Context(), req.UserID, &req.WithdrawRequest)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{
		"withdrawal_no": withdrawal.WithdrawalNo,
		"fee":           withdrawal.Fee,
		"net_amount":    withdrawal.NetAmount,
		"status":        withdrawal.Status,
	})
}

// ListWithdrawals 查询用户提现记录
// GET /api/v1/withdrawal/list?user_id=xxx
func (h *Handler) ListWithdrawals(c *gin.Context) {
	userID, ok := queryInt64(c, "user_id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	list, err := h.withdrawService.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		businessError(c, err)
		return
	}
	response.Success(c, gin.H{"list": list})
}

// ============================================================
// 管理员接口
// ============================================================

// AdminReviewRequest 审批请求
type AdminReviewRequest struct {
	AdminID  int64 `json:"admin_id" binding:"required"`
	TargetID int64 `json:"target_id" binding:"required"`
}

// ApproveDeposit 审批通过充值
// POST /api/v1/admin/deposit/approve
func (h *Handler) ApproveDeposit(c *gin.Context) {
	var req AdminReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.depositService.Approve(c.Request.Context(), req.AdminID, req.TargetID); err != nil {
		businessError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "充值已入账"})
}

// RejectDeposit 驳回充值
// POST /api/v1/admin/deposit/reject
func (h *Handler) RejectDeposit(c *gin.Context) {
	var req AdminReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.depositService.Reject(c.Request.Context(), req.AdminID, req.TargetID); err != nil {
		businessError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "充值已驳回"})
}

// ListPendingDeposits 待审批充值列表
// GET /api/v1/admin/deposit/pending?limit=50
func (h *Handler) ListPendingDeposits(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	list, err := h.depositService.ListPending(c.Request.Context(), limit)
	if err != nil {
		businessError(c, err)
		return
	}
	response.Success(c, gin.H{"list": list})
}

// ApproveWithdrawal 审批通过提现
// POST /api/v1/admin/withdrawal/approve
func (h *Handler) ApproveWithdrawal(c *gin.Context) {
	var req AdminReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.withdrawService.Approve(c.Request.Context(), req.AdminID, req.TargetID); err != nil {
		businessError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "提现已通过"})
}

// RejectWithdrawal 驳回提现并退款
// POST /api/v1/admin/withdrawal/reject
func (h *Handler) RejectWithdrawal(c *gin.Context) {
	var req AdminReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.withdrawService.Reject(c.Request.Context(), req.AdminID, req.TargetID); err != nil {
		businessError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "提现已驳回，资金已退回"})
}

// ListPendingWithdrawals 待审批提现列表
// GET /api/v1/admin/withdrawal/pending?limit=50
func (h *Handler) ListPendingWithdrawals(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	list, err := h.withdrawService.ListPending(c.Request.Context(), limit)
	if err != nil {
		businessError(c, err)
		return
	}
	response.Success(c, gin.H{"list": list})
}

// AdjustBalanceRequest 管理员调账请求
type AdjustBalanceRequest struct {
	AdminID    int64  `json:"admin_id" binding:"required"`
	UserID     int64  `json:"user_id" binding:"required"`
	NewBalance *int64 `json:"new_balance" binding:"required"`
	Reason     string `json:"reason"`
}

// AdjustBalance 管理员调账
// POST /api/v1/admin/user/balance
func (h *Handler) AdjustBalance(c *gin.Context) {
	var req AdjustBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.userService.AdminAdjustBalance(c.Request.Context(), req.AdminID, req.UserID, *req.NewBalance, req.Reason); err != nil {
		businessError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "调账完成"})
}

// CancelInvestment 管理员取消投资单
// POST /api/v1/admin/investment/cancel
func (h *Handler) CancelInvestment(c *gin.Context) {
	var req AdminReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.investmentService.AdminCancel(c.Request.Context(), req.AdminID, req.TargetID); err != nil {
		businessError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "投资单已取消，本金已退回"})
}

// RunAccrualPass 手动触发一轮收益发放
// POST /api/v1/admin/accrual/run
//
// 引擎幂等，重复触发不会重复发放，可用于调度器故障后的人工补偿
func (h *Handler) RunAccrualPass(c *gin.Context) {
	summary, err := h.accrualService.RunPass(c.Request.Context(), time.Now())
	if err != nil {
		// 部分提交的结果随错误信息一并返回，便于排查
		response.Error(c, response.CodeServerError, err.Error())
		return
	}
	response.Success(c, summary)
}
