package model

import (
	"time"
)

const (
	InvestmentStatusActive    = "active"
	InvestmentStatusCompleted = "completed"
	InvestmentStatusCancelled = "cancelled"
)

// active 是唯一的初始状态，completed / cancelled 为终态
var validInvestmentTransitions = map[string][]string{
	InvestmentStatusActive: {InvestmentStatusCompleted, InvestmentStatusCancelled},
}

func CanTransitionInvestment(currentStatus, targetStatus string) bool {
	allowed, exists := validInvestmentTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// Investment 投资单表
//
// 收益口径：
//   - 总收益 = expected_return - amount，每轮结算时重新计算，不信任任何缓存值
//   - earned_so_far 只增不减，结算前 <= 总收益，结算后恰好等于总收益
//   - last_payout_date 同时充当日收益发放的乐观并发令牌
type Investment struct {
	ID             int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	InvestmentNo   string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"investment_no"`
	UserID         int64      `gorm:"index;not null" json:"user_id"`
	PackageID      int64      `gorm:"index;not null" json:"package_id"`
	PackageName    string     `gorm:"type:varchar(64);not null" json:"package_name"`
	Amount         int64      `gorm:"not null" json:"amount"`          // 本金
	ExpectedReturn int64      `gorm:"not null" json:"expected_return"` // 本金+总收益
	ActualReturn   *int64     `json:"actual_return,omitempty"`         // 结算时写入
	DurationDays   int        `gorm:"not null" json:"duration_days"`
	Status         string     `gorm:"type:varchar(20);index;not null" json:"status"`
	PurchaseDate   time.Time  `gorm:"not null" json:"purchase_date"`
	MaturityDate   time.Time  `gorm:"index;not null" json:"maturity_date"`
	CompletionDate *time.Time `json:"completion_date,omitempty"`
	LastPayoutDate *time.Time `gorm:"index" json:"last_payout_date,omitempty"` // 首次发放前为空
	EarnedSoFar    int64      `gorm:"not null;default:0" json:"earned_so_far"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Investment) TableName() string {
	return "investments"
}

// TotalProfit 总收益，每次使用时从本金和预期回报重新推导
func (i *Investment) TotalProfit() int64 {
	return i.ExpectedReturn - i.Amount
}
