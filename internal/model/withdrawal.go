package model

import (
	"time"
)

const (
	WithdrawalStatusPending   = "pending"
	WithdrawalStatusApproved  = "approved"
	WithdrawalStatusCompleted = "completed"
	WithdrawalStatusRejected  = "rejected"
	WithdrawalStatusCancelled = "cancelled"
)

var validWithdrawalTransitions = map[string][]string{
	WithdrawalStatusPending:  {WithdrawalStatusApproved, WithdrawalStatusCompleted, WithdrawalStatusRejected, WithdrawalStatusCancelled},
	WithdrawalStatusApproved: {WithdrawalStatusCompleted},
}

func CanTransitionWithdrawal(currentStatus, targetStatus string) bool {
	allowed, exists := validWithdrawalTransitions[currentStatus]
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

// Withdrawal 提现申请表
// 创建时立即冻结扣减余额，被驳回时原额退回
type Withdrawal struct {
	ID              int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	WithdrawalNo    string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"withdrawal_no"`
	UserID          int64      `gorm:"index;not null" json:"user_id"`
	AmountRequested int64      `gorm:"not null" json:"amount_requested"`
	Fee             int64      `gorm:"not null" json:"fee"`
	NetAmount       int64      `gorm:"not null" json:"net_amount"`
	Method          string     `gorm:"type:varchar(32);not null" json:"method"`
	AccountNumber   string     `gorm:"type:varchar(64);not null" json:"account_number"`
	AccountName     string     `gorm:"type:varchar(64);not null" json:"account_name"`
	Status          string     `gorm:"type:varchar(20);index;not null" json:"status"`
	ProcessedBy     *int64     `json:"processed_by,omitempty"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Withdrawal) TableName() string {
	return "withdrawals"
}
