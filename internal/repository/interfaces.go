package repository

import (
	"context"
	"errors"
	"time"

	"investledger/internal/model"
)

var (
	ErrUserNotFound       = errors.New("用户不存在")
	ErrPackageNotFound    = errors.New("套餐不存在")
	ErrInvestmentNotFound = errors.New("投资单不存在")
	ErrDepositNotFound    = errors.New("充值单不存在")
	ErrWithdrawalNotFound = errors.New("提现单不存在")
	ErrReferralNotFound   = errors.New("推荐记录不存在")
	ErrBalanceNotEnough   = errors.New("余额不足")
	ErrStatusInvalid      = errors.New("状态不合法")
	ErrOptimisticLock     = errors.New("乐观锁冲突，请重试")
)

// UserRepository 用户账本
//
// 所有余额变更都是单条 UPDATE 里的原子 read-modify-write（balance = balance + ?），
// 任何两个写入方都不可能基于过期余额互相覆盖
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByReferralCode(ctx context.Context, code string) (*model.User, error)

	// Credit 入账：balance += amount
	Credit(ctx context.Context, userID int64, amount int64) error
	// CreditEarnings 收益入账：balance += balanceDelta，total_earnings += earningsDelta
	// 日收益两者相等；到期结算时 balanceDelta 含本金而 earningsDelta 只含补发收益
	CreditEarnings(ctx context.Context, userID int64, balanceDelta, earningsDelta int64) error
	// CreditReferral 佣金入账：balance += amount，referral_earnings += amount
	CreditReferral(ctx context.Context, userID int64, amount int64) error
	// Debit 出账，带余额充足性与乐观锁版本校验
	Debit(ctx context.Context, userID int64, amount int64, version int) error
	// DebitForPurchase 购买套餐出账，同时累加 total_purchased
	DebitForPurchase(ctx context.Context, userID int64, amount int64, version int) error

	// MarkDeposited 置位 has_made_deposit（无推荐人时的首充标记）
	MarkDeposited(ctx context.Context, userID int64) error
	// MarkFirstDepositRewarded 条件双标志翻转：
	// 仅当 referral_rewarded 仍为 false 时同时置位 has_made_deposit 与
	// referral_rewarded，返回是否由本次调用完成翻转。这是佣金 exactly-once 的闸门
	MarkFirstDepositRewarded(ctx context.Context, userID int64) (bool, error)

	// AdminSetBalance 管理员调账，绝对值写入，乐观锁保护避免覆盖并发的收益入账
	AdminSetBalance(ctx context.Context, userID int64, newBalance int64, adminID int64, version int, now time.Time) error
}

// InvestmentRepository 投资单
type InvestmentRepository interface {
	Create(ctx context.Context, inv *model.Investment) error
	GetByID(ctx context.Context, id int64) (*model.Investment, error)
	// ListActive 按 id 游标分批返回 active 投资单，引擎内部分页扫全量
	ListActive(ctx context.Context, afterID int64, limit int) ([]*model.Investment, error)
	ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.Investment, int64, error)

	// ApplyDailyPayout 条件发放日收益：
	// 仅当状态仍为 active 且 last_payout_date 与 prevPayoutDate 一致时，
	// earned_so_far += amount 并推进 last_payout_date。
	// last_payout_date 即乐观并发令牌，返回 false 表示另一个并发轮次已发放
	ApplyDailyPayout(ctx context.Context, id int64, prevPayoutDate *time.Time, amount int64, now time.Time) (bool, error)
	// Settle 条件结算：仅当状态仍为 active 且 earned_so_far 仍等于
	// prevEarned 时转为 completed（补发额按 earned_so_far 推算，
	// 它被并发轮次推进过就必须重算），写入 actual_return /
	// completion_date 并把 earned_so_far 顶满为总收益
	Settle(ctx context.Context, id int64, prevEarned int64, actualReturn int64, totalProfit int64, now time.Time) (bool, error)
	// Cancel 管理员取消，仅 active 可取消
	Cancel(ctx context.Context, id int64) (bool, error)
}

// PayoutRepository 发放记录，只追加
type PayoutRepository interface {
	Create(ctx context.Context, payout *model.PayoutEvent) error
	ListByUserID(ctx context.Context, userID int64, limit int) ([]*model.PayoutEvent, error)
	ListByInvestmentID(ctx context.Context, investmentID int64) ([]*model.PayoutEvent, error)
	SumByInvestmentID(ctx context.Context, investmentID int64) (int64, error)
}

// TransactionRepository 资金流水，只追加
type TransactionRepository interface {
	Create(ctx context.Context, trans *model.Transaction) error
	ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.Transaction, int64, error)
}

// ReferralRepository 推荐关系
type ReferralRepository interface {
	Create(ctx context.Context, referral *model.Referral) error
	GetByReferredUserID(ctx context.Context, referredUserID int64) (*model.Referral, error)
	ListByReferrerID(ctx context.Context, referrerID int64) ([]*model.Referral, error)
	// MarkDeposited signed_up -> deposited，写入佣金金额与发放时间
	MarkDeposited(ctx context.Context, id int64, commission, depositAmount int64, now time.Time) error
}

// PackageRepository 套餐目录
type PackageRepository interface {
	Create(ctx context.Context, pkg *model.Package) error
	GetByID(ctx context.Context, id int64) (*model.Package, error)
	ListActive(ctx context.Context) ([]*model.Package, error)
}

// DepositRepository 充值申请
type DepositRepository interface {
	Create(ctx context.Context, deposit *model.Deposit) error
	GetByID(ctx context.Context, id int64) (*model.Deposit, error)
	ListPending(ctx context.Context, limit int) ([]*model.Deposit, error)
	ListByUserID(ctx context.Context, userID int64, limit int) ([]*model.Deposit, error)
	// Approve pending -> completed，条件更新保证重复审批只生效一次
	Approve(ctx context.Context, id int64, adminID int64, now time.Time) (bool, error)
	Reject(ctx context.Context, id int64, adminID int64, now time.Time) (bool, error)
}

// WithdrawalRepository 提现申请
type WithdrawalRepository interface {
	Create(ctx context.Context, withdrawal *model.Withdrawal) error
	GetByID(ctx context.Context, id int64) (*model.Withdrawal, error)
	ListPending(ctx context.Context, limit int) ([]*model.Withdrawal, error)
	ListByUserID(ctx context.Context, userID int64, limit int) ([]*model.Withdrawal, error)
	Approve(ctx context.Context, id int64, adminID int64, now time.Time) (bool, error)
	Reject(ctx context.Context, id int64, adminID int64, now time.Time) (bool, error)
}

// OutboxRepository 事务性出站消息
type OutboxRepository interface {
	Create(ctx context.Context, msg *model.OutboxMessage) error
	GetPendingMessages(ctx context.Context, limit int) ([]*model.OutboxMessage, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	IncrementRetryCount(ctx context.Context, id int64) error
	MarkAsFailed(ctx context.Context, id int64) error
}

// Store 账本存储的统一入口
//
// Atomically 在单个存储事务中执行 fn：fn 内通过传入的 Store 所做的全部写入
// 要么一起提交要么一起回滚。每个投资单的"判定+变更"、佣金的"检查+置位"
// 都必须包在 Atomically 里执行
type Store interface {
	Users() UserRepository
	Packages() PackageRepository
	Investments() InvestmentRepository
	Payouts() PayoutRepository
	Transactions() TransactionRepository
	Referrals() ReferralRepository
	Deposits() DepositRepository
	Withdrawals() WithdrawalRepository
	Outbox() OutboxRepository

	Atomically(ctx context.Context, fn func(Store) error) error
}
