package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"investledger/internal/model"
	"investledger/internal/repository"
	"investledger/pkg/idgen"
)

var ErrInvalidAmount = errors.New("金额必须为正数")

// DepositService 充值申请与审批
//
// 入账发生在管理员审批通过的时刻，不是提交的时刻。
// 审批通过后触发首充佣金处理；佣金引擎自带恰好一次保证，
// 审批接口因此可以安全重试
type DepositService struct {
	store      repository.Store
	commission *CommissionService
}

func NewDepositService(store repository.Store, commission *CommissionService) *DepositService {
	return &DepositService{store: store, commission: commission}
}

// Submit 提交充值申请，等待审批
func (s *DepositService) Submit(ctx context.Context, userID, amount int64, method string) (*model.Deposit, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	deposit := &model.Deposit{
		DepositNo: idgen.GenerateDepositNo(),
		UserID:    userID,
		Name:      user.Name,
		Phone:     user.Phone,
		Amount:    amount,
		Method:    method,
		Status:    model.DepositStatusPending,
	}
	if err := s.store.Deposits().Create(ctx, deposit); err != nil {
		return nil, err
	}
	return deposit, nil
}

// Approve 审批通过：入账、留痕，然后处理首充佣金
//
// 入账不置位 has_made_deposit，标记统一由佣金引擎完成，
// 这样重试的审批调用也能把半途失败的佣金补上
func (s *DepositService) Approve(ctx context.Context, adminID, depositID int64) error {
	admin, err := s.store.Users().GetByID(ctx, adminID)
	if err != nil {
		return err
	}
	if admin.Role != model.RoleAdmin {
		return ErrNotAdmin
	}

	deposit, err := s.store.Deposits().GetByID(ctx, depositID)
	if err != nil {
		return err
	}

	err = s.store.Atomically(ctx, func(tx repository.Store) error {
		approved, err := tx.Deposits().Approve(ctx, depositID, adminID, time.Now())
		if err != nil {
			return err
		}
		if !approved {
			// 已被处理过。通过的单子继续走佣金补偿，其余状态拒绝
			if deposit.Status == model.DepositStatusCompleted {
				return nil
			}
			return repository.ErrStatusInvalid
		}
		if err := tx.Users().Credit(ctx, deposit.UserID, deposit.Amount); err != nil {
			return err
		}
		return tx.Transactions().Create(ctx, &model.Transaction{
			UserID:      deposit.UserID,
			Type:        model.TransactionTypeDeposit,
			Amount:      deposit.Amount,
			Description: fmt.Sprintf("充值入账-%s", deposit.DepositNo),
			RelatedID:   &deposit.ID,
			AdminID:     &adminID,
		})
	})
	if err != nil {
		return err
	}

	// 佣金失败不回滚入账，重新调用 Approve 即可补偿
	if _, err := s.commission.ProcessFirstDepositCommission(ctx, deposit.UserID, deposit.Amount); err != nil {
		log.Printf("[DepositService] 充值 %s 的首充佣金处理失败，可重试审批补偿: %v", deposit.DepositNo, err)
		return err
	}
	return nil
}

// Reject 驳回充值申请，不发生资金变动
func (s *DepositService) Reject(ctx context.Context, adminID, depositID int64) error {
	admin, err := s.store.Users().GetByID(ctx, adminID)
	if err != nil {
		return err
	}
	if admin.Role != model.RoleAdmin {
		return ErrNotAdmin
	}

	rejected, err := s.store.Deposits().Reject(ctx, depositID, adminID, time.Now())
	if err != nil {
		return err
	}
	if !rejected {
		return repository.ErrStatusInvalid
	}
	return nil
}

func (s *DepositService) ListPending(ctx context.Context, limit int) ([]*model.Deposit, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	return s.store.Deposits().ListPending(ctx, limit)
}

func (s *DepositService) ListByUser(ctx context.Context, userID int64, limit int) ([]*model.Deposit, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	return s.store.Deposits().ListByUserID(ctx, userID, limit)
}
