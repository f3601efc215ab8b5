// Package memory 提供 repository.Store 的内存实现。
//
// 用于核心引擎的单元测试：条件更新的语义（发放令牌、结算闸门、佣金双标志
// 翻转）与 MySQL 实现保持一致，事务通过整库快照实现回滚。
package memory

import (
	"context"
	"sync"

	"investledger/internal/model"
	"investledger/internal/repository"
)

var _ repository.Store = (*Store)(nil)

type tables struct {
	users       map[int64]*model.User
	packages    map[int64]*model.Package
	investments map[int64]*model.Investment
	payouts     []*model.PayoutEvent
	txns        []*model.Transaction
	referrals   map[int64]*model.Referral
	deposits    map[int64]*model.Deposit
	withdrawals map[int64]*model.Withdrawal
	outbox      []*model.OutboxMessage
	nextID      int64
}

func newTables() *tables {
	return &tables{
		users:       make(map[int64]*model.User),
		packages:    make(map[int64]*model.Package),
		investments: make(map[int64]*model.Investment),
		referrals:   make(map[int64]*model.Referral),
		deposits:    make(map[int64]*model.Deposit),
		withdrawals: make(map[int64]*model.Withdrawal),
	}
}

func (t *tables) clone() *tables {
	c := &tables{
		users:       make(map[int64]*model.User, len(t.users)),
		packages:    make(map[int64]*model.Package, len(t.packages)),
		investments: make(map[int64]*model.Investment, len(t.investments)),
		payouts:     append([]*model.PayoutEvent(nil), t.payouts...),
		txns:        append([]*model.Transaction(nil), t.txns...),
		referrals:   make(map[int64]*model.Referral, len(t.referrals)),
		deposits:    make(map[int64]*model.Deposit, len(t.deposits)),
		withdrawals: make(map[int64]*model.Withdrawal, len(t.withdrawals)),
		outbox:      append([]*model.OutboxMessage(nil), t.outbox...),
		nextID:      t.nextID,
	}
	for id, u := range t.users {
		cp := *u
		c.users[id] = &cp
	}
	for id, p := range t.packages {
		cp := *p
		c.packages[id] = &cp
	}
	for id, inv := range t.investments {
		cp := *inv
		c.investments[id] = &cp
	}
	for id, r := range t.referrals {
		cp := *r
		c.referrals[id] = &cp
	}
	for id, d := range t.deposits {
		cp := *d
		c.deposits[id] = &cp
	}
	for id, w := range t.withdrawals {
		cp := *w
		c.withdrawals[id] = &cp
	}
	return c
}

func (t *tables) allocID() int64 {
	t.nextID++
	return t.nextID
}

// Store 内存账本
type Store struct {
	mu   *sync.Mutex
	data *tables
	inTx bool

	// failErr 非空时所有操作返回该错误，用于模拟存储不可用
	failErr *error
}

func NewStore() *Store {
	var failErr error
	return &Store{
		mu:      &sync.Mutex{},
		data:    newTables(),
		failErr: &failErr,
	}
}

// Fail 让后续所有操作返回 err，传 nil 恢复正常
func (s *Store) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.failErr = err
}

func (s *Store) Users() repository.UserRepository               { return &UserRepo{s: s} }
func (s *Store) Packages() repository.PackageRepository         { return &PackageRepo{s: s} }
func (s *Store) Investments() repository.InvestmentRepository   { return &InvestmentRepo{s: s} }
func (s *Store) Payouts() repository.PayoutRepository           { return &PayoutRepo{s: s} }
func (s *Store) Transactions() repository.TransactionRepository { return &TransactionRepo{s: s} }
func (s *Store) Referrals() repository.ReferralRepository       { return &ReferralRepo{s: s} }
func (s *Store) Deposits() repository.DepositRepository         { return &DepositRepo{s: s} }
func (s *Store) Withdrawals() repository.WithdrawalRepository   { return &WithdrawalRepo{s: s} }
func (s *Store) Outbox() repository.OutboxRepository            { return &OutboxRepo{s: s} }

// Atomically 持锁执行 fn，出错时用事务前的快照整体回滚
func (s *Store) Atomically(ctx context.Context, fn func(repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := *s.failErr; err != nil {
		return err
	}

	snapshot := s.data.clone()
	tx := &Store{mu: s.mu, data: s.data, inTx: true, failErr: s.failErr}
	if err := fn(tx); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// lock 仓库方法的统一入口：事务内复用外层锁，事务外独立加锁
func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) failed() error {
	return *s.failErr
}
