package service

import (
	"context"
	"errors"
	"testing"

	"investledger/internal/model"
	"investledger/internal/repository"
)

func TestDeposit_ApproveCreditsAndPaysCommission(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	admin := env.seedAdmin(t)
	referrer, referred := seedReferralPair(t, env)

	deposit, err := env.deposits.Submit(ctx, referred.ID, 20000, "bank")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if deposit.Status != model.DepositStatusPending {
		t.Fatalf("expected pending, got %s", deposit.Status)
	}
	// 提交阶段不发生资金变动
	if got := env.mustUser(t, referred.ID).Balance; got != 0 {
		t.Fatalf("balance before approval: expected 0, got %d", got)
	}

	if err := env.deposits.Approve(ctx, admin.ID, deposit.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	u := env.mustUser(t, referred.ID)
	if u.Balance != 20000 {
		t.Errorf("balance: expected 20000, got %d", u.Balance)
	}
	if !u.HasMadeDeposit {
		t.Errorf("expected has_made_deposit=true")
	}
	if got := env.mustUser(t, referrer.ID).Balance; got != 1000 {
		t.Errorf("referrer commission: expected 1000, got %d", got)
	}

	d, err := env.store.Deposits().GetByID(ctx, deposit.ID)
	if err != nil {
		t.Fatalf("get deposit: %v", err)
	}
	if d.Status != model.DepositStatusCompleted {
		t.Errorf("deposit status: expected completed, got %s", d.Status)
	}
}

func TestDeposit_ApproveRetrySafe(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	admin := env.seedAdmin(t)
	referrer, referred := seedReferralPair(t, env)

	deposit, err := env.deposits.Submit(ctx, referred.ID, 20000, "bank")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := env.deposits.Approve(ctx, admin.ID, deposit.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	// 重试审批：入账与佣金都不能重复
	if err := env.deposits.Approve(ctx, admin.ID, deposit.ID); err != nil {
		t.Fatalf("retry approve: %v", err)
	}
	if got := env.mustUser(t, referred.ID).Balance; got != 20000 {
		t.Errorf("balance after retry: expected 20000, got %d", got)
	}
	if got := env.mustUser(t, referrer.ID).Balance; got != 1000 {
		t.Errorf("commission after retry: expected 1000, got %d", got)
	}
}

func TestDeposit_RejectNoFundsMove(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	admin := env.seedAdmin(t)
	user := env.seedUser(t, &model.User{Name: "dep", Email: "dep@ledger.test"})

	deposit, err := env.deposits.Submit(ctx, user.ID, 5000, "bank")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := env.deposits.Reject(ctx, admin.ID, deposit.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}

	if got := env.mustUser(t, user.ID).Balance; got != 0 {
		t.Errorf("balance: expected 0, got %d", got)
	}
	// 驳回后不能再通过
	if err := env.deposits.Approve(ctx, admin.ID, deposit.ID); !errors.Is(err, repository.ErrStatusInvalid) {
		t.Fatalf("expected ErrStatusInvalid, got %v", err)
	}
}

func TestDeposit_ApproveRequiresAdmin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	user := env.seedUser(t, &model.User{Name: "plain", Email: "plain@ledger.test"})

	deposit, err := env.deposits.Submit(ctx, user.ID, 5000, "bank")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := env.deposits.Approve(ctx, user.ID, deposit.ID); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
}

func TestDeposit_SubmitRejectsInvalidAmount(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	user := env.seedUser(t, &model.User{Name: "neg", Email: "neg@ledger.test"})

	if _, err := env.deposits.Submit(ctx, user.ID, 0, "bank"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}
