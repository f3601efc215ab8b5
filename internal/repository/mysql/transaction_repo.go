package mysql

import (
	"context"

	"investledger/internal/model"

	"gorm.io/gorm"
)

type TransactionRepo struct {
	db *gorm.DB
}

func (r *TransactionRepo) Create(ctx context.Context, trans *model.Transaction) error {
	return r.db.WithContext(ctx).Create(trans).Error
}

func (r *TransactionRepo) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.Transaction, int64, error) {
	var transactions []*model.Transaction
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Transaction{}).Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&transactions).Error

	return transactions, total, err
}
