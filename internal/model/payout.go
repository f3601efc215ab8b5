package model

import (
	"time"
)

const (
	PayoutTypeDailyProfit     = "daily_profit"     // 日收益
	PayoutTypePrincipalReturn = "principal_return" // 到期返本（含补发收益）
)

// PayoutEvent 发放记录表
// 只追加，不修改，不删除。既是审计凭证，也是幂等发放的见证记录
type PayoutEvent struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	InvestmentID int64     `gorm:"index;not null" json:"investment_id"`
	UserID       int64     `gorm:"index;not null" json:"user_id"`
	Amount       int64     `gorm:"not null" json:"amount"`
	PayoutDate   time.Time `gorm:"index;not null" json:"payout_date"`
	Type         string    `gorm:"type:varchar(20);not null" json:"type"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (PayoutEvent) TableName() string {
	return "payout_events"
}
