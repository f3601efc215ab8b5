package model

import (
	"time"
)

const (
	DepositStatusPending   = "pending"
	DepositStatusCompleted = "completed"
	DepositStatusFailed    = "failed"
	DepositStatusCancelled = "cancelled"
)

var validDepositTransitions = map[string][]string{
	DepositStatusPending: {DepositStatusCompleted, DepositStatusFailed, DepositStatusCancelled},
}

func CanTransitionDeposit(currentStatus, targetStatus string) bool {
	allowed, exists := validDepositTransitions[currentStatus]
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

// Deposit 充值申请表
// 用户提交后处于 pending，管理员审批通过才入账
type Deposit struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	DepositNo   string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"deposit_no"`
	UserID      int64      `gorm:"index;not null" json:"user_id"`
	Name        string     `gorm:"type:varchar(64);not null" json:"name"`
	Phone       string     `gorm:"type:varchar(32);not null" json:"phone"`
	Amount      int64      `gorm:"not null" json:"amount"`
	Method      string     `gorm:"type:varchar(32);not null" json:"method"`
	Status      string     `gorm:"type:varchar(20);index;not null" json:"status"`
	ApprovedBy  *int64     `json:"approved_by,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Deposit) TableName() string {
	return "deposits"
}
