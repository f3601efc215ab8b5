package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"investledger/internal/model"
)

func TestRunPass_DailyThenFinalSettlement(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	user := env.seedUser(t, &model.User{Name: "alice", Email: "alice@ledger.test"})
	t0 := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	// 本金 10000，预期回报 25000，3 天期：日收益 5000
	inv := env.seedInvestment(t, user.ID, 10000, 25000, 3, t0)

	// 第一轮：第一天的日收益
	summary, err := env.accrual.RunPass(ctx, t0.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if summary.ProcessedCount != 1 || summary.MaturedCount != 0 {
		t.Fatalf("expected 1 daily payout, got processed=%d matured=%d", summary.ProcessedCount, summary.MaturedCount)
	}
	if got := env.mustUser(t, user.ID).Balance; got != 5000 {
		t.Errorf("balance after day 1: expected 5000, got %d", got)
	}
	if got := env.mustInvestment(t, inv.ID).EarnedSoFar; got != 5000 {
		t.Errorf("earned_so_far after day 1: expected 5000, got %d", got)
	}

	// 第二、三天的轮次丢失，直接在到期时间触发：
	// 到期结算一次性补齐本金 10000 + 未发收益 10000
	summary, err = env.accrual.RunPass(ctx, t0.Add(72*time.Hour))
	if err != nil {
		t.Fatalf("settlement pass: %v", err)
	}
	if summary.MaturedCount != 1 {
		t.Fatalf("expected 1 settlement, got %d", summary.MaturedCount)
	}
	if summary.TotalPaid != 20000 {
		t.Errorf("settlement pass total: expected 20000, got %d", summary.TotalPaid)
	}

	u := env.mustUser(t, user.ID)
	if u.Balance != 25000 {
		t.Errorf("final balance: expected 25000, got %d", u.Balance)
	}
	if u.TotalEarnings != 15000 {
		t.Errorf("total earnings: expected 15000, got %d", u.TotalEarnings)
	}

	settled := env.mustInvestment(t, inv.ID)
	if settled.Status != model.InvestmentStatusCompleted {
		t.Errorf("expected completed, got %s", settled.Status)
	}
	if settled.ActualReturn == nil || *settled.ActualReturn != 20000 {
		t.Errorf("actual_return: expected 20000, got %v", settled.ActualReturn)
	}
	if settled.EarnedSoFar != 15000 {
		t.Errorf("earned_so_far after settlement: expected 15000, got %d", settled.EarnedSoFar)
	}

	// 发放总额守恒：恰好等于 expected_return
	if sum := env.payoutSum(t, inv.ID); sum != 25000 {
		t.Errorf("payout sum: expected 25000, got %d", sum)
	}
}

func TestRunPass_IdempotentWithinWindow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	user := env.seedUser(t, &model.User{Name: "bob", Email: "bob@ledger.test"})
	t0 := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	inv := env.seedInvestment(t, user.ID, 10000, 25000, 3, t0)

	at := t0.Add(24 * time.Hour)
	if _, err := env.accrual.RunPass(ctx, at); err != nil {
		t.Fatalf("first pass: %v", err)
	}

	// 同一窗口内重复触发：令牌已被第一轮推进，第二轮必须空转
	summary, err := env.accrual.RunPass(ctx, at)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if summary.ProcessedCount != 0 {
		t.Errorf("second pass processed: expected 0, got %d", summary.ProcessedCount)
	}
	if got := env.mustUser(t, user.ID).Balance; got != 5000 {
		t.Errorf("balance after duplicate pass: expected 5000, got %d", got)
	}
	if sum := env.payoutSum(t, inv.ID); sum != 5000 {
		t.Errorf("payout sum after duplicate pass: expected 5000, got %d", sum)
	}
}

func TestRunPass_SettlementExactlyOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	user := env.seedUser(t, &model.User{Name: "carol", Email: "carol@ledger.test"})
	t0 := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	inv := env.seedInvestment(t, user.ID, 10000, 13000, 3, t0)

	at := t0.Add(96 * time.Hour)
	if _, err := env.accrual.RunPass(ctx, at); err != nil {
		t.Fatalf("settlement pass: %v", err)
	}
	summary, err := env.accrual.RunPass(ctx, at)
	if err != nil {
		t.Fatalf("repeated settlement pass: %v", err)
	}
	if summary.MaturedCount != 0 {
		t.Errorf("repeated settlement: expected 0 matured, got %d", summary.MaturedCount)
	}
	if got := env.mustUser(t, user.ID).Balance; got != 13000 {
		t.Errorf("balance: expected 13000, got %d", got)
	}
	if sum := env.payoutSum(t, inv.ID); sum != 13000 {
		t.Errorf("payout sum: expected 13000, got %d", sum)
	}
}

func TestRunPass_RoundingAbsorbedAtSettlement(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	user := env.seedUser(t, &model.User{Name: "dave", Email: "dave@ledger.test"})
	t0 := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	// 总收益 100 摊 3 天：日收益 half-up 为 33，余数在结算时吸收
	inv := env.seedInvestment(t, user.ID, 1000, 1100, 3, t0)

	for day := 1; day <= 2; day++ {
		if _, err := env.accrual.RunPass(ctx, t0.Add(time.Duration(day)*24*time.Hour)); err != nil {
			t.Fatalf("pass day %d: %v", day, err)
		}
	}
	if got := env.mustInvestment(t, inv.ID).EarnedSoFar; got != 66 {
		t.Fatalf("earned after 2 days: expected 66, got %d", got)
	}

	if _, err := env.accrual.RunPass(ctx, t0.Add(72*time.Hour)); err != nil {
		t.Fatalf("settlement pass: %v", err)
	}

	// 1000 本金 + 34 剩余收益；全程发放总额精确等于 expected_return
	if got := env.mustUser(t, user.ID).Balance; got != 1100 {
		t.Errorf("final balance: expected 1100, got %d", got)
	}
	if sum := env.payoutSum(t, inv.ID); sum != 1100 {
		t.Errorf("payout sum: expected 1100, got %d", sum)
	}
}

func TestRunPass_SkipsInvestmentWithMissingUser(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	user := env.seedUser(t, &model.User{Name: "erin", Email: "erin@ledger.test"})
	t0 := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	good := env.seedInvestment(t, user.ID, 10000, 25000, 3, t0)
	orphan := env.seedInvestment(t, user.ID+1000, 10000, 25000, 3, t0)

	summary, err := env.accrual.RunPass(ctx, t0.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("pass: %v", err)
	}
	if summary.ProcessedCount != 1 {
		t.Errorf("processed: expected 1, got %d", summary.ProcessedCount)
	}
	if summary.SkippedCount != 1 {
		t.Errorf("skipped: expected 1, got %d", summary.SkippedCount)
	}

	// 孤儿投资单必须原封不动：事务回滚后令牌未被推进
	if got := env.mustInvestment(t, orphan.ID).EarnedSoFar; got != 0 {
		t.Errorf("orphan earned_so_far: expected 0, got %d", got)
	}
	if got := env.mustInvestment(t, good.ID).EarnedSoFar; got != 5000 {
		t.Errorf("good earned_so_far: expected 5000, got %d", got)
	}
}

func TestRunPass_CancelledInvestmentNotAccrued(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	user := env.seedUser(t, &model.User{Name: "finn", Email: "finn@ledger.test"})
	t0 := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	inv := env.seedInvestment(t, user.ID, 10000, 25000, 3, t0)

	if ok, err := env.store.Investments().Cancel(ctx, inv.ID); err != nil || !ok {
		t.Fatalf("cancel: ok=%v err=%v", ok, err)
	}

	summary, err := env.accrual.RunPass(ctx, t0.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("pass: %v", err)
	}
	if summary.ProcessedCount != 0 || summary.MaturedCount != 0 {
		t.Errorf("cancelled investment accrued: %+v", summary)
	}
	if got := env.mustUser(t, user.ID).Balance; got != 0 {
		t.Errorf("balance: expected 0, got %d", got)
	}
}

func TestRunPass_PaginatesThroughAllActive(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv() // AccrualBatchSize = 2

	user := env.seedUser(t, &model.User{Name: "gina", Email: "gina@ledger.test"})
	t0 := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		env.seedInvestment(t, user.ID, 1000, 1300, 3, t0.Add(time.Duration(i)*time.Minute))
	}

	summary, err := env.accrual.RunPass(ctx, t0.Add(25*time.Hour))
	if err != nil {
		t.Fatalf("pass: %v", err)
	}
	if summary.ProcessedCount != 5 {
		t.Errorf("processed: expected 5, got %d", summary.ProcessedCount)
	}
}

func TestRunPass_StoreFailureAbortsAndRecovers(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	user := env.seedUser(t, &model.User{Name: "hank", Email: "hank@ledger.test"})
	t0 := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	inv := env.seedInvestment(t, user.ID, 10000, 25000, 3, t0)

	storeDown := errors.New("storage unavailable")
	env.store.Fail(storeDown)

	summary, err := env.accrual.RunPass(ctx, t0.Add(24*time.Hour))
	if !errors.Is(err, storeDown) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if summary == nil || summary.ProcessedCount != 0 {
		t.Fatalf("expected empty summary on abort, got %+v", summary)
	}

	// 存储恢复后重跑，之前的轮次没有留下半截状态
	env.store.Fail(nil)
	summary, err = env.accrual.RunPass(ctx, t0.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("recovery pass: %v", err)
	}
	if summary.ProcessedCount != 1 {
		t.Errorf("recovery pass processed: expected 1, got %d", summary.ProcessedCount)
	}
	if got := env.mustInvestment(t, inv.ID).EarnedSoFar; got != 5000 {
		t.Errorf("earned_so_far: expected 5000, got %d", got)
	}
}

func TestRunPass_WritesOutboxEvents(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	user := env.seedUser(t, &model.User{Name: "iris", Email: "iris@ledger.test"})
	t0 := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	env.seedInvestment(t, user.ID, 10000, 13000, 1, t0)

	// 到期轮：结算事件入出站表
	if _, err := env.accrual.RunPass(ctx, t0.Add(24*time.Hour)); err != nil {
		t.Fatalf("pass: %v", err)
	}

	msgs, err := env.store.Outbox().GetPendingMessages(ctx, 10)
	if err != nil {
		t.Fatalf("outbox: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 outbox message, got %d", len(msgs))
	}
	if msgs[0].Topic != env.cfg.Kafka.Topic.PayoutResult {
		t.Errorf("topic: expected %s, got %s", env.cfg.Kafka.Topic.PayoutResult, msgs[0].Topic)
	}
	if msgs[0].Status != model.OutboxStatusPending {
		t.Errorf("status: expected pending, got %s", msgs[0].Status)
	}
}
