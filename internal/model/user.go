package model

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User 用户表
// 余额是整个系统最核心的共享资源，所有变更必须走原子的 read-modify-write
// （见 repository.UserRepository），禁止先读后算再写回
type User struct {
	ID               int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name             string     `gorm:"type:varchar(64);not null" json:"name"`
	Email            string     `gorm:"type:varchar(128);uniqueIndex;not null" json:"email"`
	Phone            string     `gorm:"type:varchar(32);not null" json:"phone"`
	PasswordHash     string     `gorm:"type:varchar(128);not null" json:"-"`
	Balance          int64      `gorm:"not null;default:0" json:"balance"`           // 可用余额（整数货币单位，不允许为负）
	TotalPurchased   int64      `gorm:"not null;default:0" json:"total_purchased"`   // 累计投资本金
	TotalEarnings    int64      `gorm:"not null;default:0" json:"total_earnings"`    // 累计收益（日收益+到期补发）
	ReferralEarnings int64      `gorm:"not null;default:0" json:"referral_earnings"` // 累计推荐佣金
	ReferralCode     string     `gorm:"type:varchar(16);uniqueIndex;not null" json:"referral_code"`
	ReferredBy       *int64     `gorm:"index" json:"referred_by,omitempty"` // 推荐人ID，可为空
	ReferralRewarded bool       `gorm:"not null;default:false" json:"referral_rewarded"`
	HasMadeDeposit   bool       `gorm:"not null;default:false" json:"has_made_deposit"`
	Role             string     `gorm:"type:varchar(16);not null;default:user" json:"role"`
	Version          int        `gorm:"not null;default:0" json:"version"` // 乐观锁版本号
	LastUpdatedBy    *int64     `json:"last_updated_by,omitempty"`
	LastUpdatedAt    *time.Time `json:"last_updated_at,omitempty"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
