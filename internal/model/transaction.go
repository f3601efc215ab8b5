package model

import (
	"time"
)

const (
	TransactionTypeDeposit         = "deposit"          // 充值
	TransactionTypeWithdrawal      = "withdrawal"       // 提现
	TransactionTypeInvestment      = "investment"       // 购买套餐
	TransactionTypeProfit          = "profit"           // 投资收益
	TransactionTypeReferral        = "referral"         // 推荐奖励
	TransactionTypeBonus           = "bonus"            // 注册奖励
	TransactionTypeAdminAdjustment = "admin_adjustment" // 管理员调账
)

// Transaction 资金流水表
// 只追加，面向用户的账目历史；余额的权威值在 users 表上，流水不作余额依据
type Transaction struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64     `gorm:"index;not null" json:"user_id"`
	Type        string    `gorm:"type:varchar(20);index;not null" json:"type"`
	Amount      int64     `gorm:"not null" json:"amount"` // 正数入账，负数出账
	Description string    `gorm:"type:varchar(256)" json:"description"`
	RelatedID   *int64    `json:"related_id,omitempty"` // 关联的充值/提现/投资记录
	AdminID     *int64    `json:"admin_id,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}
