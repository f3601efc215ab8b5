package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"investledger/internal/model"
	"investledger/internal/repository"
)

func seedReferralPair(t *testing.T, env *testEnv) (referrer, referred *model.User) {
	t.Helper()
	referrer = env.seedUser(t, &model.User{Name: "referrer", Email: "referrer@ledger.test"})
	referred = env.seedUser(t, &model.User{
		Name:       "referred",
		Email:      "referred@ledger.test",
		ReferredBy: &referrer.ID,
	})
	if err := env.store.Referrals().Create(context.Background(), &model.Referral{
		ReferrerID:     referrer.ID,
		ReferredUserID: &referred.ID,
		ReferralCode:   referrer.ReferralCode,
		Status:         model.ReferralStatusSignedUp,
		SignupDate:     time.Now(),
	}); err != nil {
		t.Fatalf("seed referral: %v", err)
	}
	return referrer, referred
}

func TestCommission_PaysReferrerExactlyOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	referrer, referred := seedReferralPair(t, env)

	// 首充 20000，5% 佣金 = 1000
	result, err := env.commission.ProcessFirstDepositCommission(ctx, referred.ID, 20000)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if !result.Paid || result.Amount != 1000 {
		t.Fatalf("expected paid=true amount=1000, got %+v", result)
	}

	r := env.mustUser(t, referrer.ID)
	if r.Balance != 1000 || r.ReferralEarnings != 1000 {
		t.Errorf("referrer balance=%d referral_earnings=%d, expected 1000/1000", r.Balance, r.ReferralEarnings)
	}

	u := env.mustUser(t, referred.ID)
	if !u.HasMadeDeposit || !u.ReferralRewarded {
		t.Errorf("referred flags: has_made_deposit=%v referral_rewarded=%v", u.HasMadeDeposit, u.ReferralRewarded)
	}

	ref, err := env.store.Referrals().GetByReferredUserID(ctx, referred.ID)
	if err != nil {
		t.Fatalf("referral record: %v", err)
	}
	if ref.Status != model.ReferralStatusDeposited {
		t.Errorf("referral status: expected deposited, got %s", ref.Status)
	}
	if ref.CommissionEarned == nil || *ref.CommissionEarned != 1000 {
		t.Errorf("commission_earned: expected 1000, got %v", ref.CommissionEarned)
	}

	// 重试：标志已翻转，必须空转
	result, err = env.commission.ProcessFirstDepositCommission(ctx, referred.ID, 20000)
	if err != nil {
		t.Fatalf("retry call: %v", err)
	}
	if result.Paid || result.Amount != 0 {
		t.Fatalf("retry expected no-op, got %+v", result)
	}
	if got := env.mustUser(t, referrer.ID).Balance; got != 1000 {
		t.Errorf("referrer balance after retry: expected 1000, got %d", got)
	}
}

func TestCommission_NoReferrerOnlyMarksDeposit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	user := env.seedUser(t, &model.User{Name: "solo", Email: "solo@ledger.test"})

	result, err := env.commission.ProcessFirstDepositCommission(ctx, user.ID, 20000)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Paid {
		t.Fatalf("expected no payment, got %+v", result)
	}

	u := env.mustUser(t, user.ID)
	if !u.HasMadeDeposit {
		t.Errorf("expected has_made_deposit=true")
	}
	if u.ReferralRewarded {
		t.Errorf("referral_rewarded must stay false without referrer")
	}
}

func TestCommission_SubsequentDepositsIgnored(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	referrer, referred := seedReferralPair(t, env)

	if _, err := env.commission.ProcessFirstDepositCommission(ctx, referred.ID, 20000); err != nil {
		t.Fatalf("first deposit: %v", err)
	}
	// 第二笔充值金额更大，也不再产生佣金
	result, err := env.commission.ProcessFirstDepositCommission(ctx, referred.ID, 100000)
	if err != nil {
		t.Fatalf("second deposit: %v", err)
	}
	if result.Paid {
		t.Fatalf("second deposit must not pay commission")
	}
	if got := env.mustUser(t, referrer.ID).Balance; got != 1000 {
		t.Errorf("referrer balance: expected 1000, got %d", got)
	}
}

func TestCommission_MissingReferralRecordStillPays(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	referrer := env.seedUser(t, &model.User{Name: "ref2", Email: "ref2@ledger.test"})
	referred := env.seedUser(t, &model.User{
		Name:       "orphanref",
		Email:      "orphanref@ledger.test",
		ReferredBy: &referrer.ID,
	})
	// 不建推荐记录：佣金支付以 user 标志为准，审计缺口只记日志

	result, err := env.commission.ProcessFirstDepositCommission(ctx, referred.ID, 20000)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !result.Paid || result.Amount != 1000 {
		t.Fatalf("expected payment despite missing referral record, got %+v", result)
	}
	if got := env.mustUser(t, referrer.ID).Balance; got != 1000 {
		t.Errorf("referrer balance: expected 1000, got %d", got)
	}
}

func TestCommission_MissingReferrerRollsBack(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	ghostID := int64(99999)
	referred := env.seedUser(t, &model.User{
		Name:       "ghostref",
		Email:      "ghostref@ledger.test",
		ReferredBy: &ghostID,
	})

	_, err := env.commission.ProcessFirstDepositCommission(ctx, referred.ID, 20000)
	if !errors.Is(err, repository.ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}

	// 事务回滚：标志未置位，数据修复后重试仍可支付
	u := env.mustUser(t, referred.ID)
	if u.HasMadeDeposit || u.ReferralRewarded {
		t.Errorf("flags must stay unset after rollback: %+v", u)
	}
}

func TestCommission_RoundsHalfUp(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	referrer, referred := seedReferralPair(t, env)

	// 999 * 0.05 = 49.95，half-up 取 50
	result, err := env.commission.ProcessFirstDepositCommission(ctx, referred.ID, 999)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Amount != 50 {
		t.Errorf("commission: expected 50, got %d", result.Amount)
	}
	if got := env.mustUser(t, referrer.ID).Balance; got != 50 {
		t.Errorf("referrer balance: expected 50, got %d", got)
	}
}

func TestCommission_InvalidAmountRejected(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	user := env.seedUser(t, &model.User{Name: "zero", Email: "zero@ledger.test"})

	if _, err := env.commission.ProcessFirstDepositCommission(ctx, user.ID, 0); !errors.Is(err, ErrInvalidDepositAmount) {
		t.Fatalf("expected ErrInvalidDepositAmount, got %v", err)
	}
	if _, err := env.commission.ProcessFirstDepositCommission(ctx, user.ID, -5); !errors.Is(err, ErrInvalidDepositAmount) {
		t.Fatalf("expected ErrInvalidDepositAmount, got %v", err)
	}
}
