package mysql

import (
	"context"
	"errors"
	"time"

	"investledger/internal/model"
	"investledger/internal/repository"

	"gorm.io/gorm"
)

type UserRepo struct {
	db *gorm.DB
}

func (r *UserRepo) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepo) GetByReferralCode(ctx context.Context, code string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("referral_code = ?", code).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepo) Credit(ctx context.Context, userID int64, amount int64) error {
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"balance": gorm.Expr("balance + ?", amount),
			"version": gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

func (r *UserRepo) CreditEarnings(ctx context.Context, userID int64, balanceDelta, earningsDelta int64) error {
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"balance":        gorm.Expr("balance + ?", balanceDelta),
			"total_earnings": gorm.Expr("total_earnings + ?", earningsDelta),
			"version":        gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

func (r *UserRepo) CreditReferral(ctx context.Context, userID int64, amount int64) error {
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"balance":           gorm.Expr("balance + ?", amount),
			"referral_earnings": gorm.Expr("referral_earnings + ?", amount),
			"version":           gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

// Debit 出账，WHERE 里同时校验余额充足与版本号，余额永不为负
func (r *UserRepo) Debit(ctx context.Context, userID int64, amount int64, version int) error {
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ? AND balance >= ? AND version = ?", userID, amount, version).
		Updates(map[string]interface{}{
			"balance": gorm.Expr("balance - ?", amount),
			"version": gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.explainDebitFailure(ctx, userID, amount)
	}
	return nil
}

func (r *UserRepo) DebitForPurchase(ctx context.Context, userID int64, amount int64, version int) error {
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ? AND balance >= ? AND version = ?", userID, amount, version).
		Updates(map[string]interface{}{
			"balance":         gorm.Expr("balance - ?", amount),
			"total_purchased": gorm.Expr("total_purchased + ?", amount),
			"version":         gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.explainDebitFailure(ctx, userID, amount)
	}
	return nil
}

// 条件更新没命中时区分三种失败原因
func (r *UserRepo) explainDebitFailure(ctx context.Context, userID int64, amount int64) error {
	user, err := r.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Balance < amount {
		return repository.ErrBalanceNotEnough
	}
	return repository.ErrOptimisticLock
}

func (r *UserRepo) MarkDeposited(ctx context.Context, userID int64) error {
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Update("has_made_deposit", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

// MarkFirstDepositRewarded 佣金发放的 exactly-once 闸门：
// 两个并发调用只有一个能命中 referral_rewarded = false 的行
func (r *UserRepo) MarkFirstDepositRewarded(ctx context.Context, userID int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ? AND referral_rewarded = ?", userID, false).
		Updates(map[string]interface{}{
			"has_made_deposit": true,
			"referral_rewarded": true,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *UserRepo) AdminSetBalance(ctx context.Context, userID int64, newBalance int64, adminID int64, version int, now time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ? AND version = ?", userID, version).
		Updates(map[string]interface{}{
			"balance":         newBalance,
			"last_updated_by": adminID,
			"last_updated_at": now,
			"version":         gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, userID); err != nil {
			return err
		}
		return repository.ErrOptimisticLock
	}
	return nil
}
