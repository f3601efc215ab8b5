package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"investledger/internal/config"
	"investledger/internal/infrastructure/lock"
	"investledger/internal/model"
	"investledger/internal/repository"
	"investledger/pkg/idgen"
)

var (
	ErrEmailTaken          = errors.New("邮箱已被注册")
	ErrReferralCodeInvalid = errors.New("推荐码无效")
	ErrSelfReferral        = errors.New("不能使用自己的推荐码")
	ErrNotAdmin            = errors.New("需要管理员权限")
)

// RegisterRequest 注册参数
type RegisterRequest struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Phone        string `json:"phone" binding:"required"`
	Password     string `json:"password" binding:"required,min=6"`
	ReferralCode string `json:"referral_code"` // 可选
}

// ReferralStats 推荐概览
type ReferralStats struct {
	ReferralCode     string            `json:"referral_code"`
	TotalReferrals   int               `json:"total_referrals"`
	DepositedCount   int               `json:"deposited_count"`
	ReferralEarnings int64             `json:"referral_earnings"`
	Referrals        []*model.Referral `json:"referrals"`
}

// UserService 用户注册、查询与管理员调账
type UserService struct {
	store repository.Store
	locks lock.Factory
	cfg   *config.Config
}

func NewUserService(store repository.Store, locks lock.Factory, cfg *config.Config) *UserService {
	return &UserService{store: store, locks: locks, cfg: cfg}
}

// Register 注册新用户
//
// 注册奖励直接计入初始余额；带推荐码注册时给推荐人发放注册奖励，
// 并建立 signed_up 状态的推荐记录，等待首充佣金推进
func (s *UserService) Register(ctx context.Context, req *RegisterRequest) (*model.User, error) {
	if _, err := s.store.Users().GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	var referrer *model.User
	if req.ReferralCode != "" {
		u, err := s.store.Users().GetByReferralCode(ctx, req.ReferralCode)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return nil, ErrReferralCodeInvalid
			}
			return nil, err
		}
		referrer = u
	}

	code, err := s.uniqueReferralCode(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: hashPassword(req.Password),
		Balance:      s.cfg.Business.SignupBonus,
		ReferralCode: code,
		Role:         model.RoleUser,
	}
	if referrer != nil {
		user.ReferredBy = &referrer.ID
	}

	err = s.store.Atomically(ctx, func(tx repository.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}

		if s.cfg.Business.SignupBonus > 0 {
			if err := tx.Transactions().Create(ctx, &model.Transaction{
				UserID:      user.ID,
				Type:        model.TransactionTypeBonus,
				Amount:      s.cfg.Business.SignupBonus,
				Description: "注册奖励",
			}); err != nil {
				return err
			}
		}

		if referrer == nil {
			return nil
		}

		if err := tx.Referrals().Create(ctx, &model.Referral{
			ReferrerID:        referrer.ID,
			ReferredUserID:    &user.ID,
			ReferralCode:      referrer.ReferralCode,
			Status:            model.ReferralStatusSignedUp,
			WelcomeBonusGiven: s.cfg.Business.ReferrerSignupBonus > 0,
			SignupDate:        now,
		}); err != nil {
			return err
		}

		if s.cfg.Business.ReferrerSignupBonus > 0 {
			if err := tx.Users().CreditReferral(ctx, referrer.ID, s.cfg.Business.ReferrerSignupBonus); err != nil {
				return err
			}
			if err := tx.Transactions().Create(ctx, &model.Transaction{
				UserID:      referrer.ID,
				Type:        model.TransactionTypeReferral,
				Amount:      s.cfg.Business.ReferrerSignupBonus,
				Description: fmt.Sprintf("推荐注册奖励-用户%d", user.ID),
				RelatedID:   &user.ID,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// uniqueReferralCode 生成推荐码，撞码时重试
func (s *UserService) uniqueReferralCode(ctx context.Context) (string, error) {
	for i := 0; i < 5; i++ {
		code := idgen.GenerateReferralCode()
		_, err := s.store.Users().GetByReferralCode(ctx, code)
		if errors.Is(err, repository.ErrUserNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", errors.New("生成推荐码失败")
}

func (s *UserService) GetByID(ctx context.Context, userID int64) (*model.User, error) {
	return s.store.Users().GetByID(ctx, userID)
}

// Authenticate 校验邮箱密码
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user.PasswordHash != hashPassword(password) {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

// GetReferralStats 推荐概览：名下推荐关系与累计佣金
func (s *UserService) GetReferralStats(ctx context.Context, userID int64) (*ReferralStats, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	referrals, err := s.store.Referrals().ListByReferrerID(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := &ReferralStats{
		ReferralCode:     user.ReferralCode,
		TotalReferrals:   len(referrals),
		ReferralEarnings: user.ReferralEarnings,
		Referrals:        referrals,
	}
	for _, ref := range referrals {
		if ref.Status == model.ReferralStatusDeposited {
			stats.DepositedCount++
		}
	}
	return stats, nil
}

// ListTransactions 资金流水，按时间倒序分页
func (s *UserService) ListTransactions(ctx context.Context, userID int64, page, pageSize int) ([]*model.Transaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.store.Transactions().ListByUserID(ctx, userID, page, pageSize)
}

// AdminAdjustBalance 管理员直接改写余额，差额记入流水
//
// 乐观锁版本号保证调整基于的读数没有过期，
// 并发的收益发放或消费会让这次调整失败重试
func (s *UserService) AdminAdjustBalance(ctx context.Context, adminID, userID, newBalance int64, reason string) error {
	if newBalance < 0 {
		return errors.New("余额不允许为负")
	}

	admin, err := s.store.Users().GetByID(ctx, adminID)
	if err != nil {
		return err
	}
	if admin.Role != model.RoleAdmin {
		return ErrNotAdmin
	}

	userLock := s.locks.UserLock(userID, fmt.Sprintf("admin-%d", adminID))
	if err := userLock.Lock(ctx, lockRetryInterval, lockMaxRetries); err == nil {
		defer userLock.Unlock(ctx)
	}

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return err
	}
	delta := newBalance - user.Balance

	return s.store.Atomically(ctx, func(tx repository.Store) error {
		if err := tx.Users().AdminSetBalance(ctx, userID, newBalance, adminID, user.Version, time.Now()); err != nil {
			return err
		}
		if reason == "" {
			reason = "管理员调账"
		}
		return tx.Transactions().Create(ctx, &model.Transaction{
			UserID:      userID,
			Type:        model.TransactionTypeAdminAdjustment,
			Amount:      delta,
			Description: reason,
			AdminID:     &adminID,
		})
	})
}

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
