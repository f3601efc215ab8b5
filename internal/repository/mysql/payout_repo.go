package mysql

import (
	"context"

	"investledger/internal/model"

	"gorm.io/gorm"
)

type PayoutRepo struct {
	db *gorm.DB
}

func (r *PayoutRepo) Create(ctx context.Context, payout *model.PayoutEvent) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *PayoutRepo) ListByUserID(ctx context.Context, userID int64, limit int) ([]*model.PayoutEvent, error) {
	var payouts []*model.PayoutEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("payout_date DESC").
		Limit(limit).
		Find(&payouts).Error
	return payouts, err
}

func (r *PayoutRepo) ListByInvestmentID(ctx context.Context, investmentID int64) ([]*model.PayoutEvent, error) {
	var payouts []*model.PayoutEvent
	err := r.db.WithContext(ctx).
		Where("investment_id = ?", investmentID).
		Order("payout_date ASC").
		Find(&payouts).Error
	return payouts, err
}

func (r *PayoutRepo) SumByInvestmentID(ctx context.Context, investmentID int64) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Model(&model.PayoutEvent{}).
		Where("investment_id = ?", investmentID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	return sum, err
}
