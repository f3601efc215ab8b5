package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"investledger/internal/model"
	"investledger/internal/repository"
)

func TestAtomically_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	user := &model.User{Name: "u", Email: "u@t", ReferralCode: "C1"}
	if err := s.Users().Create(ctx, user); err != nil {
		t.Fatalf("create: %v", err)
	}

	boom := errors.New("boom")
	err := s.Atomically(ctx, func(tx repository.Store) error {
		if err := tx.Users().Credit(ctx, user.ID, 500); err != nil {
			return err
		}
		if err := tx.Transactions().Create(ctx, &model.Transaction{UserID: user.ID, Type: model.TransactionTypeDeposit, Amount: 500}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, err := s.Users().GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Balance != 0 {
		t.Errorf("balance rolled back: expected 0, got %d", got.Balance)
	}
	if _, total, err := s.Transactions().ListByUserID(ctx, user.ID, 1, 10); err != nil || total != 0 {
		t.Errorf("transactions rolled back: total=%d err=%v", total, err)
	}
}

func TestApplyDailyPayout_TokenSemantics(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	purchase := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	inv := &model.Investment{
		InvestmentNo: "N1",
		UserID:       1,
		Amount:       1000,
		Status:       model.InvestmentStatusActive,
		PurchaseDate: purchase,
		MaturityDate: purchase.Add(72 * time.Hour),
	}
	if err := s.Investments().Create(ctx, inv); err != nil {
		t.Fatalf("create: %v", err)
	}

	now := purchase.Add(24 * time.Hour)

	// nil 令牌（首次发放）
	ok, err := s.Investments().ApplyDailyPayout(ctx, inv.ID, nil, 100, now)
	if err != nil || !ok {
		t.Fatalf("first payout: ok=%v err=%v", ok, err)
	}
	// 相同的 nil 令牌再来一次必须失败
	ok, err = s.Investments().ApplyDailyPayout(ctx, inv.ID, nil, 100, now)
	if err != nil || ok {
		t.Fatalf("stale nil token accepted: ok=%v err=%v", ok, err)
	}
	// 新令牌生效
	ok, err = s.Investments().ApplyDailyPayout(ctx, inv.ID, &now, 100, now.Add(24*time.Hour))
	if err != nil || !ok {
		t.Fatalf("second payout: ok=%v err=%v", ok, err)
	}

	got, err := s.Investments().GetByID(ctx, inv.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.EarnedSoFar != 200 {
		t.Errorf("earned_so_far: expected 200, got %d", got.EarnedSoFar)
	}
}

func TestSettle_GuardedByStatusAndEarned(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	purchase := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	inv := &model.Investment{
		InvestmentNo: "N2",
		UserID:       1,
		Amount:       1000,
		Status:       model.InvestmentStatusActive,
		PurchaseDate: purchase,
		MaturityDate: purchase.Add(24 * time.Hour),
		EarnedSoFar:  100,
	}
	if err := s.Investments().Create(ctx, inv); err != nil {
		t.Fatalf("create: %v", err)
	}
	now := purchase.Add(24 * time.Hour)

	// 过期的 earned 快照：并发轮次已推进，结算必须空转
	ok, err := s.Investments().Settle(ctx, inv.ID, 0, 1200, 300, now)
	if err != nil || ok {
		t.Fatalf("stale settle accepted: ok=%v err=%v", ok, err)
	}

	ok, err = s.Investments().Settle(ctx, inv.ID, 100, 1200, 300, now)
	if err != nil || !ok {
		t.Fatalf("settle: ok=%v err=%v", ok, err)
	}
	// 已结算后不可再结算
	ok, err = s.Investments().Settle(ctx, inv.ID, 300, 1200, 300, now)
	if err != nil || ok {
		t.Fatalf("double settle accepted: ok=%v err=%v", ok, err)
	}
}

func TestMarkFirstDepositRewarded_OnlyOnce(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	user := &model.User{Name: "r", Email: "r@t", ReferralCode: "C2"}
	if err := s.Users().Create(ctx, user); err != nil {
		t.Fatalf("create: %v", err)
	}

	won, err := s.Users().MarkFirstDepositRewarded(ctx, user.ID)
	if err != nil || !won {
		t.Fatalf("first flip: won=%v err=%v", won, err)
	}
	won, err = s.Users().MarkFirstDepositRewarded(ctx, user.ID)
	if err != nil || won {
		t.Fatalf("second flip must lose: won=%v err=%v", won, err)
	}

	got, err := s.Users().GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.HasMadeDeposit || !got.ReferralRewarded {
		t.Errorf("flags: %+v", got)
	}
}

func TestDebit_VersionAndBalanceGuards(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	user := &model.User{Name: "d", Email: "d@t", ReferralCode: "C3", Balance: 1000}
	if err := s.Users().Create(ctx, user); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := s.Users().Debit(ctx, user.ID, 2000, 0); !errors.Is(err, repository.ErrBalanceNotEnough) {
		t.Fatalf("expected ErrBalanceNotEnough, got %v", err)
	}
	if err := s.Users().Debit(ctx, user.ID, 500, 7); !errors.Is(err, repository.ErrOptimisticLock) {
		t.Fatalf("expected ErrOptimisticLock, got %v", err)
	}
	if err := s.Users().Debit(ctx, user.ID, 500, 0); err != nil {
		t.Fatalf("debit: %v", err)
	}

	got, _ := s.Users().GetByID(ctx, user.ID)
	if got.Balance != 500 || got.Version != 1 {
		t.Errorf("balance=%d version=%d, expected 500/1", got.Balance, got.Version)
	}
}
