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

var ErrBelowMinWithdrawal = errors.New("低于最低提现金额")

// WithdrawRequest 提现申请参数
type WithdrawRequest struct {
	Amount        int64  `json:"amount" binding:"required"`
	Method        string `json:"method" binding:"required"`
	AccountNumber string `json:"account_number" binding:"required"`
	AccountName   string `json:"account_name" binding:"required"`
}

// WithdrawService 提现申请与审批
//
// 申请时立即扣减余额（冻结），审批通过只是状态推进；
// 驳回时原额退回。手续费从申请金额中扣除，实际到账为净额
type WithdrawService struct {
	store repository.Store
	locks lock.Factory
	cfg   *config.Config
}

func NewWithdrawService(store repository.Store, locks lock.Factory, cfg *config.Config) *WithdrawService {
	return &WithdrawService{store: store, locks: locks, cfg: cfg}
}

// Fee 手续费：申请金额的固定比例，不低于下限
func (s *WithdrawService) Fee(amount int64) int64 {
	fee := money.Percentage(amount, s.cfg.Business.WithdrawFeeRate)
	if fee < s.cfg.Business.WithdrawMinFee {
		fee = s.cfg.Business.WithdrawMinFee
	}
	return fee
}

// Request 提交提现申请并冻结资金
func (s *WithdrawService) Request(ctx context.Context, userID int64, req *WithdrawRequest) (*model.Withdrawal, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.Amount < s.cfg.Business.MinWithdrawal {
		return nil, ErrBelowMinWithdrawal
	}

	userLock := s.locks.UserLock(userID, "withdraw")
	if err := userLock.Lock(ctx, lockRetryInterval, lockMaxRetries); err == nil {
		defer userLock.Unlock(ctx)
	}

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Balance < req.Amount {
		return nil, repository.ErrBalanceNotEnough
	}

	fee := s.Fee(req.Amount)
	withdrawal := &model.Withdrawal{
		WithdrawalNo:    idgen.GenerateWithdrawalNo(),
		UserID:          userID,
		AmountRequested: req.Amount,
		Fee:             fee,
		NetAmount:       req.Amount - fee,
		Method:          req.Method,
		AccountNumber:   req.AccountNumber,
		AccountName:     req.AccountName,
		Status:          model.WithdrawalStatusPending,
	}

	err = s.store.Atomically(ctx, func(tx repository.Store) error {
		if err := tx.Users().Debit(ctx, userID, req.Amount, user.Version); err != nil {
			return err
		}
		if err := tx.Withdrawals().Create(ctx, withdrawal); err != nil {
			return err
		}
		return tx.Transactions().Create(ctx, &model.Transaction{
			UserID:      userID,
			Type:        model.TransactionTypeWithdrawal,
			Amount:      -req.Amount,
			Description: fmt.Sprintf("提现申请-%s", withdrawal.WithdrawalNo),
			RelatedID:   &withdrawal.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	return withdrawal, nil
}

// Approve 审批通过，资金已在申请时扣减，这里只推进状态
func (s *WithdrawService) Approve(ctx context.Context, adminID, withdrawalID int64) error {
	admin, err := s.store.Users().GetByID(ctx, adminID)
	if err != nil {
		return err
	}
	if admin.Role != model.RoleAdmin {
		return ErrNotAdmin
	}

	approved, err := s.store.Withdrawals().Approve(ctx, withdrawalID, adminID, time.Now())
	if err != nil {
		return err
	}
	if !approved {
		return repository.ErrStatusInvalid
	}
	return nil
}

// Reject 驳回并原额退回，含手续费
func (s *WithdrawService) Reject(ctx context.Context, adminID, withdrawalID int64) error {
	admin, err := s.store.Users().GetByID(ctx, adminID)
	if err != nil {
		return err
	}
	if admin.Role != model.RoleAdmin {
		return ErrNotAdmin
	}

	withdrawal, err := s.store.Withdrawals().GetByID(ctx, withdrawalID)
	if err != nil {
		return err
	}

	return s.store.Atomically(ctx, func(tx repository.Store) error {
		rejected, err := tx.Withdrawals().Reject(ctx, withdrawalID, adminID, time.Now())
		if err != nil {
			return err
		}
		if !rejected {
			return repository.ErrStatusInvalid
		}
		if err := tx.Users().Credit(ctx, withdrawal.UserID, withdrawal.AmountRequested); err != nil {
			return err
		}
		return tx.Transactions().Create(ctx, &model.Transaction{
			UserID:      withdrawal.UserID,
			Type:        model.TransactionTypeWithdrawal,
			Amount:      withdrawal.AmountRequested,
			Description: fmt.Sprintf("提现驳回退款-%s", withdrawal.WithdrawalNo),
			RelatedID:   &withdrawal.ID,
			AdminID:     &adminID,
		})
	})
}

func (s *WithdrawService) ListPending(ctx context.Context, limit int) ([]*model.Withdrawal, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	return s.store.Withdrawals().ListPending(ctx, limit)
}

func (s *WithdrawService) ListByUser(ctx context.Context, userID int64, limit int) ([]*model.Withdrawal, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	return s.store.Withdrawals().ListByUserID(ctx, userID, limit)
}
