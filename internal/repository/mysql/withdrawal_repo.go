package mysql

import (
	"context"
	"errors"
	"time"

	"investledger/internal/model"
	"investledger/internal/repository"

	"gorm.io/gorm"
)

type WithdrawalRepo struct {
	db *gorm.DB
}

func (r *WithdrawalRepo) Create(ctx context.Context, withdrawal *model.Withdrawal) error {
	return r.db.WithContext(ctx).Create(withdrawal).Error
}

func (r *WithdrawalRepo) GetByID(ctx context.Context, id int64) (*model.Withdrawal, error) {
	var withdrawal model.Withdrawal
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&withdrawal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrWithdrawalNotFound
		}
		return nil, err
	}
	return &withdrawal, nil
}

func (r *WithdrawalRepo) ListPending(ctx context.Context, limit int) ([]*model.Withdrawal, error) {
	var withdrawals []*model.Withdrawal
	err := r.db.WithContext(ctx).
		Where("status = ?", model.WithdrawalStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&withdrawals).Error
	return withdrawals, err
}

func (r *WithdrawalRepo) ListByUserID(ctx context.Context, userID int64, limit int) ([]*model.Withdrawal, error) {
	var withdrawals []*model.Withdrawal
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&withdrawals).Error
	return withdrawals, err
}

func (r *WithdrawalRepo) Approve(ctx context.Context, id int64, adminID int64, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Withdrawal{}).
		Where("id = ? AND status = ?", id, model.WithdrawalStatusPending).
		Updates(map[string]interface{}{
			"status":       model.WithdrawalStatusCompleted,
			"processed_by": adminID,
			"processed_at": now,
			"completed_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *WithdrawalRepo) Reject(ctx context.Context, id int64, adminID int64, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Withdrawal{}).
		Where("id = ? AND status = ?", id, model.WithdrawalStatusPending).
		Updates(map[string]interface{}{
			"status":       model.WithdrawalStatusRejected,
			"processed_by": adminID,
			"processed_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
