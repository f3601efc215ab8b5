package mysql

import (
	"context"
	"errors"
	"time"

	"investledger/internal/model"
	"investledger/internal/repository"

	"gorm.io/gorm"
)

type DepositRepo struct {
	db *gorm.DB
}

func (r *DepositRepo) Create(ctx context.Context, deposit *model.Deposit) error {
	return r.db.WithContext(ctx).Create(deposit).Error
}

func (r *DepositRepo) GetByID(ctx context.Context, id int64) (*model.Deposit, error) {
	var deposit model.Deposit
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&deposit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrDepositNotFound
		}
		return nil, err
	}
	return &deposit, nil
}

func (r *DepositRepo) ListPending(ctx context.Context, limit int) ([]*model.Deposit, error) {
	var deposits []*model.Deposit
	err := r.db.WithContext(ctx).
		Where("status = ?", model.DepositStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&deposits).Error
	return deposits, err
}

func (r *DepositRepo) ListByUserID(ctx context.Context, userID int64, limit int) ([]*model.Deposit, error) {
	var deposits []*model.Deposit
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&deposits).Error
	return deposits, err
}

// Approve pending -> completed，条件更新让重复审批只有一次命中
func (r *DepositRepo) Approve(ctx context.Context, id int64, adminID int64, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Deposit{}).
		Where("id = ? AND status = ?", id, model.DepositStatusPending).
		Updates(map[string]interface{}{
			"status":       model.DepositStatusCompleted,
			"approved_by":  adminID,
			"approved_at":  now,
			"completed_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *DepositRepo) Reject(ctx context.Context, id int64, adminID int64, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Deposit{}).
		Where("id = ? AND status = ?", id, model.DepositStatusPending).
		Updates(map[string]interface{}{
			"status":      model.DepositStatusFailed,
			"approved_by": adminID,
			"approved_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
