package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"investledger/internal/model"
	"investledger/internal/repository"
)

func (e *testEnv) seedPackage(t *testing.T, pkg *model.Package) *model.Package {
	t.Helper()
	if err := e.store.Packages().Create(context.Background(), pkg); err != nil {
		t.Fatalf("seed package: %v", err)
	}
	return pkg
}

func TestPurchase_CreatesActiveInvestment(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	user := env.seedUser(t, &model.User{Name: "buyer", Email: "buyer@ledger.test", Balance: 10000})
	// 10000 本金，日利率 5%，3 天期：日收益 500，总收益 1500
	pkg := env.seedPackage(t, &model.Package{
		Name: "starter", Amount: 10000, Rate: 0.05, DurationDays: 3, IsActive: true,
	})

	inv, err := env.investments.Purchase(ctx, user.ID, pkg.ID)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if inv.Status != model.InvestmentStatusActive {
		t.Errorf("status: expected active, got %s", inv.Status)
	}
	if inv.ExpectedReturn != 11500 {
		t.Errorf("expected_return: expected 11500, got %d", inv.ExpectedReturn)
	}
	if inv.LastPayoutDate != nil {
		t.Errorf("last_payout_date must be nil before first accrual")
	}
	if got := env.mustUser(t, user.ID); got.Balance != 0 || got.TotalPurchased != 10000 {
		t.Errorf("balance=%d total_purchased=%d, expected 0/10000", got.Balance, got.TotalPurchased)
	}

	// 预期回报在购买时定格，之后改价不影响存量投资单
	pkg.Rate = 0.50
	if err := env.store.Packages().Create(ctx, pkg); err != nil {
		t.Fatalf("update package: %v", err)
	}
	if got := env.mustInvestment(t, inv.ID).ExpectedReturn; got != 11500 {
		t.Errorf("expected_return after repricing: expected 11500, got %d", got)
	}
}

func TestPurchase_Validations(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	user := env.seedUser(t, &model.User{Name: "poor", Email: "poor@ledger.test", Balance: 100})

	inactive := env.seedPackage(t, &model.Package{Name: "closed", Amount: 100, Rate: 0.05, DurationDays: 3})
	if _, err := env.investments.Purchase(ctx, user.ID, inactive.ID); !errors.Is(err, ErrPackageUnavailable) {
		t.Fatalf("expected ErrPackageUnavailable, got %v", err)
	}

	zeroDays := env.seedPackage(t, &model.Package{Name: "zero", Amount: 100, Rate: 0.05, DurationDays: 0, IsActive: true})
	if _, err := env.investments.Purchase(ctx, user.ID, zeroDays.ID); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}

	expensive := env.seedPackage(t, &model.Package{Name: "big", Amount: 50000, Rate: 0.05, DurationDays: 3, IsActive: true})
	if _, err := env.investments.Purchase(ctx, user.ID, expensive.ID); !errors.Is(err, repository.ErrBalanceNotEnough) {
		t.Fatalf("expected ErrBalanceNotEnough, got %v", err)
	}
}

func TestPurchase_FirstAccrualAfterOneWindow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	user := env.seedUser(t, &model.User{Name: "fresh", Email: "fresh@ledger.test", Balance: 10000})
	pkg := env.seedPackage(t, &model.Package{
		Name: "starter2", Amount: 10000, Rate: 0.05, DurationDays: 3, IsActive: true,
	})

	inv, err := env.investments.Purchase(ctx, user.ID, pkg.ID)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	// last_payout_date 为空时缺省视为购买前一个窗口：首轮即可发放
	summary, err := env.accrual.RunPass(ctx, time.Now())
	if err != nil {
		t.Fatalf("pass: %v", err)
	}
	if summary.ProcessedCount != 1 {
		t.Fatalf("expected first accrual to pay, got %+v", summary)
	}
	if got := env.mustInvestment(t, inv.ID).EarnedSoFar; got != 500 {
		t.Errorf("earned_so_far: expected 500, got %d", got)
	}
}

func TestAdminCancel_RefundsPrincipal(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	admin := env.seedAdmin(t)
	user := env.seedUser(t, &model.User{Name: "cxl", Email: "cxl@ledger.test", Balance: 10000})
	pkg := env.seedPackage(t, &model.Package{
		Name: "cancelme", Amount: 10000, Rate: 0.05, DurationDays: 3, IsActive: true,
	})

	inv, err := env.investments.Purchase(ctx, user.ID, pkg.ID)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if err := env.investments.AdminCancel(ctx, admin.ID, inv.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if got := env.mustUser(t, user.ID).Balance; got != 10000 {
		t.Errorf("balance after cancel: expected 10000, got %d", got)
	}
	if got := env.mustInvestment(t, inv.ID).Status; got != model.InvestmentStatusCancelled {
		t.Errorf("status: expected cancelled, got %s", got)
	}

	// 取消后引擎不再发放
	summary, err := env.accrual.RunPass(ctx, time.Now().Add(24*time.Hour))
	if err != nil {
		t.Fatalf("pass: %v", err)
	}
	if summary.ProcessedCount != 0 || summary.MaturedCount != 0 {
		t.Errorf("cancelled investment accrued: %+v", summary)
	}

	// 终态不可重复取消
	if err := env.investments.AdminCancel(ctx, admin.ID, inv.ID); !errors.Is(err, repository.ErrStatusInvalid) {
		t.Fatalf("expected ErrStatusInvalid, got %v", err)
	}
}
