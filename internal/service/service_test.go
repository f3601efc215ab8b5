package service

import (
	"context"
	"testing"
	"time"

	"investledger/internal/config"
	"investledger/internal/infrastructure/lock"
	"investledger/internal/model"
	"investledger/internal/repository/memory"
	"investledger/pkg/metrics"
)

func newTestConfig() *config.Config {
	return &config.Config{
		Kafka: config.KafkaConfig{
			Topic: config.KafkaTopicConfig{
				PayoutResult:     "investledger.payout.result",
				CommissionResult: "investledger.commission.result",
			},
		},
		Business: config.BusinessConfig{
			CommissionRate:      0.05,
			AccrualBatchSize:    2,
			WithdrawFeeRate:     0.15,
			WithdrawMinFee:      500,
			MinWithdrawal:       5000,
			SignupBonus:         2000,
			ReferrerSignupBonus: 500,
			MaxRetryCount:       3,
		},
	}
}

type testEnv struct {
	store       *memory.Store
	cfg         *config.Config
	locks       *lock.LocalFactory
	collector   *metrics.Collector
	accrual     *AccrualService
	commission  *CommissionService
	users       *UserService
	investments *InvestmentService
	deposits    *DepositService
	withdrawals *WithdrawService
}

func newTestEnv() *testEnv {
	store := memory.NewStore()
	cfg := newTestConfig()
	locks := lock.NewLocalFactory()
	collector := metrics.NewCollector()

	env := &testEnv{
		store:     store,
		cfg:       cfg,
		locks:     locks,
		collector: collector,
	}
	env.accrual = NewAccrualService(store, locks, cfg, collector)
	env.commission = NewCommissionService(store, locks, cfg, collector)
	env.users = NewUserService(store, locks, cfg)
	env.investments = NewInvestmentService(store, locks, cfg)
	env.deposits = NewDepositService(store, env.commission)
	env.withdrawals = NewWithdrawService(store, locks, cfg)
	return env
}

func (e *testEnv) seedUser(t *testing.T, u *model.User) *model.User {
	t.Helper()
	if u.ReferralCode == "" {
		u.ReferralCode = "CODE" + u.Email
	}
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	if err := e.store.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func (e *testEnv) seedAdmin(t *testing.T) *model.User {
	t.Helper()
	return e.seedUser(t, &model.User{
		Name:  "admin",
		Email: "admin@ledger.test",
		Role:  model.RoleAdmin,
	})
}

// seedInvestment 建立一笔 active 投资单，首笔发放在 purchaseDate+24h 到期
func (e *testEnv) seedInvestment(t *testing.T, userID int64, amount, expectedReturn int64, durationDays int, purchaseDate time.Time) *model.Investment {
	t.Helper()
	inv := &model.Investment{
		InvestmentNo:   "INVT" + purchaseDate.Format("20060102150405"),
		UserID:         userID,
		PackageID:      1,
		PackageName:    "test package",
		Amount:         amount,
		ExpectedReturn: expectedReturn,
		DurationDays:   durationDays,
		Status:         model.InvestmentStatusActive,
		PurchaseDate:   purchaseDate,
		MaturityDate:   purchaseDate.Add(time.Duration(durationDays) * 24 * time.Hour),
		LastPayoutDate: &purchaseDate,
	}
	if err := e.store.Investments().Create(context.Background(), inv); err != nil {
		t.Fatalf("seed investment: %v", err)
	}
	return inv
}

func (e *testEnv) mustUser(t *testing.T, id int64) *model.User {
	t.Helper()
	u, err := e.store.Users().GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get user %d: %v", id, err)
	}
	return u
}

func (e *testEnv) mustInvestment(t *testing.T, id int64) *model.Investment {
	t.Helper()
	inv, err := e.store.Investments().GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get investment %d: %v", id, err)
	}
	return inv
}

func (e *testEnv) payoutSum(t *testing.T, investmentID int64) int64 {
	t.Helper()
	sum, err := e.store.Payouts().SumByInvestmentID(context.Background(), investmentID)
	if err != nil {
		t.Fatalf("sum payouts: %v", err)
	}
	return sum
}
