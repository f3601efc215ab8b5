package mysql

import (
	"context"
	"errors"
	"time"

	"investledger/internal/model"
	"investledger/internal/repository"

	"gorm.io/gorm"
)

type InvestmentRepo struct {
	db *gorm.DB
}

func (r *InvestmentRepo) Create(ctx context.Context, inv *model.Investment) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *InvestmentRepo) GetByID(ctx context.Context, id int64) (*model.Investment, error) {
	var inv model.Investment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrInvestmentNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// ListActive 按 id 游标分批扫描 active 投资单，引擎用它遍历全量而不把整表拉进内存
func (r *InvestmentRepo) ListActive(ctx context.Context, afterID int64, limit int) ([]*model.Investment, error) {
	var investments []*model.Investment
	err := r.db.WithContext(ctx).
		Where("status = ? AND id > ?", model.InvestmentStatusActive, afterID).
		Order("id ASC").
		Limit(limit).
		Find(&investments).Error
	return investments, err
}

func (r *InvestmentRepo) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.Investment, int64, error) {
	var investments []*model.Investment
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Investment{}).Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&investments).Error

	return investments, total, err
}

// ApplyDailyPayout 日收益的"判定+变更"合并为一条条件 UPDATE：
// last_payout_date 充当乐观并发令牌（<=> 做 NULL 安全比较），
// 两个并发轮次不可能都命中同一个令牌值
func (r *InvestmentRepo) ApplyDailyPayout(ctx context.Context, id int64, prevPayoutDate *time.Time, amount int64, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Investment{}).
		Where("id = ? AND status = ? AND last_payout_date <=> ?", id, model.InvestmentStatusActive, prevPayoutDate).
		Updates(map[string]interface{}{
			"earned_so_far":    gorm.Expr("earned_so_far + ?", amount),
			"last_payout_date": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Settle 到期结算。status = active 挡住重复结算，
// earned_so_far = prevEarned 挡住按过期快照算出的补发额
func (r *InvestmentRepo) Settle(ctx context.Context, id int64, prevEarned int64, actualReturn int64, totalProfit int64, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Investment{}).
		Where("id = ? AND status = ? AND earned_so_far = ?", id, model.InvestmentStatusActive, prevEarned).
		Updates(map[string]interface{}{
			"status":          model.InvestmentStatusCompleted,
			"actual_return":   actualReturn,
			"completion_date": now,
			"earned_so_far":   totalProfit,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *InvestmentRepo) Cancel(ctx context.Context, id int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Investment{}).
		Where("id = ? AND status = ?", id, model.InvestmentStatusActive).
		Update("status", model.InvestmentStatusCancelled)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
