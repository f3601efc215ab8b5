package mysql

import (
	"context"
	"errors"
	"time"

	"investledger/internal/model"
	"investledger/internal/repository"

	"gorm.io/gorm"
)

type ReferralRepo struct {
	db *gorm.DB
}

func (r *ReferralRepo) Create(ctx context.Context, referral *model.Referral) error {
	return r.db.WithContext(ctx).Create(referral).Error
}

func (r *ReferralRepo) GetByReferredUserID(ctx context.Context, referredUserID int64) (*model.Referral, error) {
	var referral model.Referral
	err := r.db.WithContext(ctx).Where("referred_user_id = ?", referredUserID).First(&referral).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrReferralNotFound
		}
		return nil, err
	}
	return &referral, nil
}

func (r *ReferralRepo) ListByReferrerID(ctx context.Context, referrerID int64) ([]*model.Referral, error) {
	var referrals []*model.Referral
	err := r.db.WithContext(ctx).
		Where("referrer_id = ?", referrerID).
		Order("signup_date DESC").
		Find(&referrals).Error
	return referrals, err
}

func (r *ReferralRepo) MarkDeposited(ctx context.Context, id int64, commission, depositAmount int64, now time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.Referral{}).
		Where("id = ? AND status = ?", id, model.ReferralStatusSignedUp).
		Updates(map[string]interface{}{
			"status":            model.ReferralStatusDeposited,
			"commission_earned": commission,
			"deposit_amount":    depositAmount,
			"commission_date":   now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repository.ErrReferralNotFound
	}
	return nil
}
