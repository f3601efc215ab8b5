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

// payoutWindow 日收益发放窗口
const payoutWindow = 24 * time.Hour

// 本轮跳过的原因，不算失败
var (
	errPayoutSuperseded = errors.New("并发轮次已发放，本轮跳过")
	errAlreadySettled   = errors.New("投资单已结算")
)

// AccrualSummary 一轮收益发放的结果
type AccrualSummary struct {
	ProcessedCount int       `json:"processed_count"` // 日收益发放笔数
	MaturedCount   int       `json:"matured_count"`   // 到期结算笔数
	SkippedCount   int       `json:"skipped_count"`   // 跳过笔数（用户缺失、并发轮次已处理等）
	TotalPaid      int64     `json:"total_paid"`      // 本轮入账总额
	Timestamp      time.Time `json:"timestamp"`
}

// AccrualService 收益发放引擎
//
// 由外部调度器按固定周期触发 RunPass，扫描全部 active 投资单：
//   - 距上次发放满 24h 且未到期的，发放一笔日收益
//   - 已到期的，返还本金并补发全部未发收益，投资单转为 completed
//
// 幂等性：每笔投资单的"判定+变更"包在一个存储事务里，条件更新
// （last_payout_date 令牌 / status+earned_so_far 闸门）保证两个并发轮次
// 不可能同时观察到"应发放"并都入账。同一个 24h 窗口内重复触发不会重复发放。
//
// 错过的窗口不逐日补发：差额在到期结算时一次性补齐，
// 所以无论轮次怎么丢，单笔投资单的累计发放恰好等于 expected_return。
type AccrualService struct {
	store     repository.Store
	locks     lock.Factory
	cfg       *config.Config
	collector *metrics.Collector
}

func NewAccrualService(store repository.Store, locks lock.Factory, cfg *config.Config, collector *metrics.Collector) *AccrualService {
	return &AccrualService{
		store:     store,
		locks:     locks,
		cfg:       cfg,
		collector: collector,
	}
}

// RunPass 执行一轮收益发放
//
// 单笔投资单的失败（用户缺失、令牌被并发轮次抢走）跳过并继续；
// 存储层不可用时中止整轮，返回的 summary 记录了中止前已提交的笔数，
// 调用方可以放心重跑——已提交的发放不会被重复执行
func (s *AccrualService) RunPass(ctx context.Context, now time.Time) (*AccrualSummary, error) {
	start := time.Now()
	summary := &AccrualSummary{Timestamp: now}

	// 轮次锁：上一轮还在跑时直接空转。正确性不依赖这把锁，
	// 它只是避免两个轮次做无谓的重复扫描
	passLock := s.locks.AccrualPassLock(fmt.Sprintf("pass-%d", now.UnixMilli()))
	acquired, err := passLock.TryLock(ctx)
	if err != nil {
		log.Printf("[AccrualService] 获取轮次锁失败，继续执行（条件更新兜底）: %v", err)
	} else if !acquired {
		log.Printf("[AccrualService] 上一轮仍在执行，本次触发跳过")
		return summary, nil
	} else {
		defer passLock.Unlock(ctx)
	}

	batchSize := s.cfg.Business.AccrualBatchSize
	if batchSize <= 0 {
		batchSize = 200
	}

	afterID := int64(0)
	for {
		batch, err := s.store.Investments().ListActive(ctx, afterID, batchSize)
		if err != nil {
			s.observePass(start, true)
			return summary, fmt.Errorf("扫描投资单失败（本轮已提交 %d 笔发放）: %w",
				summary.ProcessedCount+summary.MaturedCount, err)
		}
		if len(batch) == 0 {
			break
		}

		for _, inv := range batch {
			afterID = inv.ID
			if err := s.processInvestment(ctx, inv, now, summary); err != nil {
				if isSkippable(err) {
					summary.SkippedCount++
					continue
				}
				s.observePass(start, true)
				return summary, fmt.Errorf("处理投资单 %s 失败（本轮已提交 %d 笔发放）: %w",
					inv.InvestmentNo, summary.ProcessedCount+summary.MaturedCount, err)
			}
		}

		if len(batch) < batchSize {
			break
		}
	}

	s.observePass(start, false)
	log.Printf("[AccrualService] 本轮完成: 日收益 %d 笔, 到期结算 %d 笔, 跳过 %d 笔, 入账 %d",
		summary.ProcessedCount, summary.MaturedCount, summary.SkippedCount, summary.TotalPaid)
	return summary, nil
}

func (s *AccrualService) observePass(start time.Time, failed bool) {
	if s.collector != nil {
		s.collector.ObservePass(time.Since(start), failed)
	}
}

// processInvestment 单笔投资单的日收益与到期结算
//
// 两步在同一轮内独立判定：到期恰逢发放日时，日收益先入账并推进
// earned_so_far，随后的结算按推进后的值计算剩余补发额（不会重复计息）
func (s *AccrualService) processInvestment(ctx context.Context, inv *model.Investment, now time.Time, summary *AccrualSummary) error {
	// 收益口径每轮从本金和预期回报重新推导，不信任任何缓存值；
	// 日收益和到期补发共用同一套 half-up 舍入，误差只会在结算时被一次吸收
	totalProfit := inv.TotalProfit()
	dailyProfit := money.DivRound(totalProfit, int64(inv.DurationDays))

	// earned_so_far 不允许越过总收益：half-up 上取整的日收益
	// 累计可能提前触顶，最后几笔按剩余额发放
	if remaining := totalProfit - inv.EarnedSoFar; dailyProfit > remaining {
		dailyProfit = remaining
	}

	// 上次发放时间缺省为购买前一个窗口，首轮即可发放
	lastPayout := inv.PurchaseDate.Add(-payoutWindow)
	if inv.LastPayoutDate != nil {
		lastPayout = *inv.LastPayoutDate
	}

	// 步骤一：日收益。无论错过了多少个窗口，单轮最多发一笔，
	// 差额留给到期结算补齐
	if dailyProfit > 0 && now.Sub(lastPayout) >= payoutWindow && now.Before(inv.MaturityDate) {
		if err := s.payDailyProfit(ctx, inv, dailyProfit, now); err != nil {
			return err
		}
		inv.EarnedSoFar += dailyProfit
		payoutAt := now
		inv.LastPayoutDate = &payoutAt
		summary.ProcessedCount++
		summary.TotalPaid += dailyProfit
		if s.collector != nil {
			s.collector.RecordPayout(model.PayoutTypeDailyProfit, dailyProfit)
		}
	}

	// 步骤二：到期结算，返还本金并补齐全部未发收益
	if !now.Before(inv.MaturityDate) {
		remainingProfit := totalProfit - inv.EarnedSoFar
		finalPayout := inv.Amount + remainingProfit
		if err := s.settle(ctx, inv, finalPayout, remainingProfit, totalProfit, now); err != nil {
			return err
		}
		summary.MaturedCount++
		summary.TotalPaid += finalPayout
		if s.collector != nil {
			s.collector.RecordPayout(model.PayoutTypePrincipalReturn, finalPayout)
		}
	}

	return nil
}

// payDailyProfit 发放一笔日收益：令牌校验、入账、留痕在同一个事务里
func (s *AccrualService) payDailyProfit(ctx context.Context, inv *model.Investment, dailyProfit int64, now time.Time) error {
	return s.store.Atomically(ctx, func(tx repository.Store) error {
		applied, err := tx.Investments().ApplyDailyPayout(ctx, inv.ID, inv.LastPayoutDate, dailyProfit, now)
		if err != nil {
			return err
		}
		if !applied {
			return errPayoutSuperseded
		}

		if err := tx.Users().CreditEarnings(ctx, inv.UserID, dailyProfit, dailyProfit); err != nil {
			return err
		}

		if err := tx.Payouts().Create(ctx, &model.PayoutEvent{
			InvestmentID: inv.ID,
			UserID:       inv.UserID,
			Amount:       dailyProfit,
			PayoutDate:   now,
			Type:         model.PayoutTypeDailyProfit,
		}); err != nil {
			return err
		}

		if err := tx.Transactions().Create(ctx, &model.Transaction{
			UserID:      inv.UserID,
			Type:        model.TransactionTypeProfit,
			Amount:      dailyProfit,
			Description: fmt.Sprintf("投资日收益-%s", inv.InvestmentNo),
			RelatedID:   &inv.ID,
		}); err != nil {
			return err
		}

		return s.enqueuePayoutEvent(ctx, tx, inv, model.PayoutTypeDailyProfit, dailyProfit, now)
	})
}

// settle 到期结算：earned_so_far 同时充当结算的乐观令牌，
// 如果并发轮次在本轮读取之后又发了一笔日收益，这里会空转，留给下一轮结算
func (s *AccrualService) settle(ctx context.Context, inv *model.Investment, finalPayout, remainingProfit, totalProfit int64, now time.Time) error {
	return s.store.Atomically(ctx, func(tx repository.Store) error {
		settled, err := tx.Investments().Settle(ctx, inv.ID, inv.EarnedSoFar, finalPayout, totalProfit, now)
		if err != nil {
			return err
		}
		if !settled {
			return errAlreadySettled
		}

		if err := tx.Users().CreditEarnings(ctx, inv.UserID, finalPayout, remainingProfit); err != nil {
			return err
		}

		if err := tx.Payouts().Create(ctx, &model.PayoutEvent{
			InvestmentID: inv.ID,
			UserID:       inv.UserID,
			Amount:       finalPayout,
			PayoutDate:   now,
			Type:         model.PayoutTypePrincipalReturn,
		}); err != nil {
			return err
		}

		if err := tx.Transactions().Create(ctx, &model.Transaction{
			UserID:      inv.UserID,
			Type:        model.TransactionTypeProfit,
			Amount:      finalPayout,
			Description: fmt.Sprintf("到期返还-%s", inv.InvestmentNo),
			RelatedID:   &inv.ID,
		}); err != nil {
			return err
		}

		return s.enqueuePayoutEvent(ctx, tx, inv, model.PayoutTypePrincipalReturn, finalPayout, now)
	})
}

// enqueuePayoutEvent 发放事件写入出站表，与入账同事务提交
func (s *AccrualService) enqueuePayoutEvent(ctx context.Context, tx repository.Store, inv *model.Investment, payoutType string, amount int64, now time.Time) error {
	payload, _ := json.Marshal(map[string]interface{}{
		"investment_no": inv.InvestmentNo,
		"user_id":       inv.UserID,
		"amount":        amount,
		"type":          payoutType,
		"payout_date":   now.Format(time.RFC3339),
	})

	return tx.Outbox().Create(ctx, &model.OutboxMessage{
		MessageKey: inv.InvestmentNo,
		Topic:      s.cfg.Kafka.Topic.PayoutResult,
		Payload:    string(payload),
		Status:     model.OutboxStatusPending,
	})
}

// isSkippable 单笔投资单可恢复的失败：跳过继续，不中止整轮
func isSkippable(err error) bool {
	return errors.Is(err, repository.ErrUserNotFound) ||
		errors.Is(err, repository.ErrInvestmentNotFound) ||
		errors.Is(err, errPayoutSuperseded) ||
		errors.Is(err, errAlreadySettled)
}
