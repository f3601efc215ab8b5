package model

import (
	"time"
)

// Package 投资套餐（产品目录）
type Package struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"name"`
	Amount       int64     `gorm:"not null" json:"amount"` // 购买价格（本金）
	Rate         float64   `gorm:"not null" json:"rate"`   // 日收益率
	DurationDays int       `gorm:"not null" json:"duration_days"`
	IsActive     bool      `gorm:"index;not null;default:true" json:"is_active"`
	Description  string    `gorm:"type:varchar(256)" json:"description"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Package) TableName() string {
	return "packages"
}
