package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"investledger/internal/config"
	"investledger/internal/infrastructure/lock"
	"investledger/internal/model"
	"investledger/internal/repository"
	"investledger/pkg/metrics"
	"investledger/pkg/money"
)

// ErrInvalidDepositAmount 充值金额必须为正
var ErrInvalidDepositAmount = errors.New("充值金额必须为正数")

// 用户锁的阻塞获取参数，各资金操作共用
const (
	lockRetryInterval = 50 * time.Millisecond
	lockMaxRetries    = 20
)

// CommissionResult 一次首充佣金处理的结果
type CommissionResult struct {
	Paid   bool  `json:"paid"`   // 本次调用是否真正支付了佣金
	Amount int64 `json:"amount"` // 支付的佣金金额，未支付为 0
}

// CommissionService 推荐佣金引擎
//
// 首充审核通过后调用，向推荐人支付首充金额固定比例的佣金。
// 恰好一次：user 上的 referral_rewarded 标志通过条件更新翻转，
// 翻转成功的那一次调用负责支付，其余并发或重试的调用全部空转。
// 标志翻转、佣金入账、推荐记录推进、流水留痕在同一个事务里提交
type CommissionService struct {
	store     repository.Store
	locks     lock.Factory
	cfg       *config.Config
	collector *metrics.Collector
}

func NewCommissionService(store repository.Store, locks lock.Factory, cfg *config.Config, collector *metrics.Collector) *CommissionService {
	return &CommissionService{
		store:     store,
		locks:     locks,
		cfg:       cfg,
		collector: collector,
	}
}

// ProcessFirstDepositCommission 处理一笔首充的推荐佣金
//
// 无推荐人的用户只标记 has_made_deposit；已处理过首充的用户直接空转。
// 佣金金额按支付时点的费率快照计算，half-up 取整
func (s *CommissionService) ProcessFirstDepositCommission(ctx context.Context, userID int64, depositAmount int64) (*CommissionResult, error) {
	if depositAmount <= 0 {
		return nil, ErrInvalidDepositAmount
	}

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	// 非首充，后续充值不再产生佣金
	if user.HasMadeDeposit {
		return &CommissionResult{}, nil
	}

	// 无推荐人：记下首充事实即可
	if user.ReferredBy == nil {
		if err := s.store.Users().MarkDeposited(ctx, userID); err != nil {
			return nil, err
		}
		return &CommissionResult{}, nil
	}

	referrerID := *user.ReferredBy
	commission := money.Percentage(depositAmount, s.cfg.Business.CommissionRate)

	// 推荐人维度的锁减少同名用户多笔首充审核的事务冲突，
	// 恰好一次由 referral_rewarded 条件翻转保证，不依赖这把锁
	userLock := s.locks.UserLock(referrerID, fmt.Sprintf("commission-%d", userID))
	if err := userLock.Lock(ctx, lockRetryInterval, lockMaxRetries); err != nil {
		log.Printf("[CommissionService] 获取推荐人锁失败，继续执行（条件更新兜底）: %v", err)
	} else {
		defer userLock.Unlock(ctx)
	}

	paid := false
	err = s.store.Atomically(ctx, func(tx repository.Store) error {
		// 推荐人先行校验：推荐人不存在时整个事务回滚，
		// 首充标志保持未置位，数据修复后重试仍可支付
		if _, err := tx.Users().GetByID(ctx, referrerID); err != nil {
			return err
		}

		won, err := tx.Users().MarkFirstDepositRewarded(ctx, userID)
		if err != nil {
			return err
		}
		if !won {
			// 并发调用或重试：标志已被别人翻转，佣金已在路上
			return nil
		}

		if err := tx.Users().CreditReferral(ctx, referrerID, commission); err != nil {
			return err
		}

		// 推荐记录缺失不回滚佣金，佣金支付以 user 标志为准
		ref, err := tx.Referrals().GetByReferredUserID(ctx, userID)
		switch {
		case err == nil:
			if err := tx.Referrals().MarkDeposited(ctx, ref.ID, commission, depositAmount, time.Now()); err != nil &&
				!errors.Is(err, repository.ErrReferralNotFound) {
				return err
			}
		case errors.Is(err, repository.ErrReferralNotFound):
			log.Printf("[CommissionService] 用户 %d 的推荐记录缺失，佣金照常支付", userID)
		default:
			return err
		}

		if err := tx.Transactions().Create(ctx, &model.Transaction{
			UserID:      referrerID,
			Type:        model.TransactionTypeReferral,
			Amount:      commission,
			Description: fmt.Sprintf("推荐佣金-用户%d首充", userID),
			RelatedID:   &userID,
		}); err != nil {
			return err
		}

		payload, _ := json.Marshal(map[string]interface{}{
			"referrer_id":      referrerID,
			"referred_user_id": userID,
			"deposit_amount":   depositAmount,
			"commission":       commission,
		})
		if err := tx.Outbox().Create(ctx, &model.OutboxMessage{
			MessageKey: fmt.Sprintf("commission-%d", userID),
			Topic:      s.cfg.Kafka.Topic.CommissionResult,
			Payload:    string(payload),
			Status:     model.OutboxStatusPending,
		}); err != nil {
			return err
		}

		paid = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !paid {
		return &CommissionResult{}, nil
	}
	if s.collector != nil {
		s.collector.RecordCommission(commission)
	}
	log.Printf("[CommissionService] 用户 %d 首充 %d，向推荐人 %d 支付佣金 %d",
		userID, depositAmount, referrerID, commission)
	return &CommissionResult{Paid: true, Amount: commission}, nil
}
