package mysql

import (
	"context"

	"investledger/internal/repository"

	"gorm.io/gorm"
)

var _ repository.Store = (*Store)(nil)

// Store 基于 MySQL 的账本存储
type Store struct {
	db          *gorm.DB
	users       *UserRepo
	packages    *PackageRepo
	investments *InvestmentRepo
	payouts     *PayoutRepo
	txns        *TransactionRepo
	referrals   *ReferralRepo
	deposits    *DepositRepo
	withdrawals *WithdrawalRepo
	outbox      *OutboxRepo
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:          db,
		users:       &UserRepo{db: db},
		packages:    &PackageRepo{db: db},
		investments: &InvestmentRepo{db: db},
		payouts:     &PayoutRepo{db: db},
		txns:        &TransactionRepo{db: db},
		referrals:   &ReferralRepo{db: db},
		deposits:    &DepositRepo{db: db},
		withdrawals: &WithdrawalRepo{db: db},
		outbox:      &OutboxRepo{db: db},
	}
}

func (s *Store) Users() repository.UserRepository               { return s.users }
func (s *Store) Packages() repository.PackageRepository         { return s.packages }
func (s *Store) Investments() repository.InvestmentRepository   { return s.investments }
func (s *Store) Payouts() repository.PayoutRepository           { return s.payouts }
func (s *Store) Transactions() repository.TransactionRepository { return s.txns }
func (s *Store) Referrals() repository.ReferralRepository       { return s.referrals }
func (s *Store) Deposits() repository.DepositRepository         { return s.deposits }
func (s *Store) Withdrawals() repository.WithdrawalRepository   { return s.withdrawals }
func (s *Store) Outbox() repository.OutboxRepository            { return s.outbox }

// Atomically 在一个数据库事务中执行 fn，fn 拿到的是绑定事务连接的 Store
func (s *Store) Atomically(ctx context.Context, fn func(repository.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
