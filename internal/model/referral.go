package model

import (
	"time"
)

const (
	ReferralStatusSignedUp  = "signed_up"
	ReferralStatusDeposited = "deposited"
	ReferralStatusCompleted = "completed" // 预留状态，本系统不触发此转移
)

// Referral 推荐关系表
// 归属于推荐人；commission_earned / commission_date 只在首充佣金发放时写入一次
type Referral struct {
	ID                int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ReferrerID        int64      `gorm:"index;not null" json:"referrer_id"`
	ReferredUserID    *int64     `gorm:"index" json:"referred_user_id,omitempty"`
	ReferralCode      string     `gorm:"type:varchar(16);index;not null" json:"referral_code"`
	Status            string     `gorm:"type:varchar(20);not null" json:"status"`
	WelcomeBonusGiven bool       `gorm:"not null;default:false" json:"welcome_bonus_given"`
	CommissionEarned  *int64     `json:"commission_earned,omitempty"`
	DepositAmount     *int64     `json:"deposit_amount,omitempty"`
	SignupDate        time.Time  `gorm:"not null" json:"signup_date"`
	CommissionDate    *time.Time `json:"commission_date,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Referral) TableName() string {
	return "referrals"
}
