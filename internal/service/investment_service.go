package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"investledger/internal/config"
	"investledger/internal/infrastructure/lock"
	"investledger/internal/model"
	"investledger/internal/repository"
	"investledger/pkg/idgen"
	"investledger/pkg/money"
)

var (
	ErrPackageUnavailable = errors.New("套餐已下架")
	ErrInvalidDuration    = errors.New("套餐期限必须为正数")
)

// InvestmentDetail 投资单详情，附带发放历史
type InvestmentDetail struct {
	Investment *model.Investment    `json:"investment"`
	Payouts    []*model.PayoutEvent `json:"payouts"`
}

// InvestmentService 套餐购买与投资单查询
type InvestmentService struct {
	store repository.Store
	locks lock.Factory
	cfg   *config.Config
}

func NewInvestmentService(store repository.Store, locks lock.Factory, cfg *config.Config) *InvestmentService {
	return &InvestmentService{store: store, locks: locks, cfg: cfg}
}

// Purchase 购买套餐，建立一笔 active 投资单
//
// 预期回报在购买时点按套餐费率快照定格，之后套餐改价不影响存量投资单。
// 扣款带乐观锁版本号，并发的余额变更会让本次购买失败，由客户端重试
func (s *InvestmentService) Purchase(ctx context.Context, userID, packageID int64) (*model.Investment, error) {
	pkg, err := s.store.Packages().GetByID(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if !pkg.IsActive {
		return nil, ErrPackageUnavailable
	}
	// 期限非正的套餐拒绝成单，否则收益引擎的按日均摊无从谈起
	if pkg.DurationDays <= 0 {
		return nil, ErrInvalidDuration
	}

	userLock := s.locks.UserLock(userID, fmt.Sprintf("purchase-%d", packageID))
	if err := userLock.Lock(ctx, lockRetryInterval, lockMaxRetries); err == nil {
		defer userLock.Unlock(ctx)
	}

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Balance < pkg.Amount {
		return nil, repository.ErrBalanceNotEnough
	}

	now := time.Now()
	dailyProfit := money.Percentage(pkg.Amount, pkg.Rate)
	totalProfit := dailyProfit * int64(pkg.DurationDays)

	inv := &model.Investment{
		InvestmentNo:   idgen.GenerateInvestmentNo(),
		UserID:         userID,
		PackageID:      pkg.ID,
		PackageName:    pkg.Name,
		Amount:         pkg.Amount,
		ExpectedReturn: pkg.Amount + totalProfit,
		DurationDays:   pkg.DurationDays,
		Status:         model.InvestmentStatusActive,
		PurchaseDate:   now,
		MaturityDate:   now.Add(time.Duration(pkg.DurationDays) * 24 * time.Hour),
	}

	err = s.store.Atomically(ctx, func(tx repository.Store) error {
		if err := tx.Users().DebitForPurchase(ctx, userID, pkg.Amount, user.Version); err != nil {
			return err
		}
		if err := tx.Investments().Create(ctx, inv); err != nil {
			return err
		}
		return tx.Transactions().Create(ctx, &model.Transaction{
			UserID:      userID,
			Type:        model.TransactionTypeInvestment,
			Amount:      -pkg.Amount,
			Description: fmt.Sprintf("购买套餐-%s", pkg.Name),
			RelatedID:   &inv.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *InvestmentService) ListPackages(ctx context.Context) ([]*model.Package, error) {
	return s.store.Packages().ListActive(ctx)
}

func (s *InvestmentService) ListByUser(ctx context.Context, userID int64, page, pageSize int) ([]*model.Investment, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.store.Investments().ListByUserID(ctx, userID, page, pageSize)
}

// GetDetail 投资单详情与全部发放记录
func (s *InvestmentService) GetDetail(ctx context.Context, userID, investmentID int64) (*InvestmentDetail, error) {
	inv, err := s.store.Investments().GetByID(ctx, investmentID)
	if err != nil {
		return nil, err
	}
	if inv.UserID != userID {
		return nil, repository.ErrInvestmentNotFound
	}
	payouts, err := s.store.Payouts().ListByInvestmentID(ctx, investmentID)
	if err != nil {
		return nil, err
	}
	return &InvestmentDetail{Investment: inv, Payouts: payouts}, nil
}

// AdminCancel 管理员取消投资单并退回本金，已发收益不追回
//
// status 条件更新挡住与收益引擎的竞争：
// 结算赢了就不能取消，取消赢了结算和日收益都不会再发生
func (s *InvestmentService) AdminCancel(ctx context.Context, adminID, investmentID int64) error {
	admin, err := s.store.Users().GetByID(ctx, adminID)
	if err != nil {
		return err
	}
	if admin.Role != model.RoleAdmin {
		return ErrNotAdmin
	}

	inv, err := s.store.Investments().GetByID(ctx, investmentID)
	if err != nil {
		return err
	}

	return s.store.Atomically(ctx, func(tx repository.Store) error {
		cancelled, err := tx.Investments().Cancel(ctx, investmentID)
		if err != nil {
			return err
		}
		if !cancelled {
			return repository.ErrStatusInvalid
		}
		if err := tx.Users().Credit(ctx, inv.UserID, inv.Amount); err != nil {
			return err
		}
		return tx.Transactions().Create(ctx, &model.Transaction{
			UserID:      inv.UserID,
			Type:        model.TransactionTypeAdminAdjustment,
			Amount:      inv.Amount,
			Description: fmt.Sprintf("投资取消退款-%s", inv.InvestmentNo),
			RelatedID:   &inv.ID,
			AdminID:     &adminID,
		})
	})
}
