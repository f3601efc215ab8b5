package memory

import (
	"context"
	"time"

	"investledger/internal/model"
	"investledger/internal/repository"
)

type UserRepo struct {
	s *Store
}

func (r *UserRepo) Create(ctx context.Context, user *model.User) error {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return err
	}
	if user.ID == 0 {
		user.ID = r.s.data.allocID()
	}
	user.CreatedAt = time.Now()
	cp := *user
	r.s.data.users[user.ID] = &cp
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return nil, err
	}
	user, exists := r.s.data.users[id]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return nil, err
	}
	for _, user := range r.s.data.users {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *UserRepo) GetByReferralCode(ctx context.Context, code string) (*model.User, error) {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return nil, err
	}
	for _, user := range r.s.data.users {
		if user.ReferralCode == code {
			cp := *user
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *UserRepo) Credit(ctx context.Context, userID int64, amount int64) error {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return err
	}
	user, exists := r.s.data.users[userID]
	if !exists {
		return repository.ErrUserNotFound
	}
	user.Balance += amount
	user.Version++
	return nil
}

func (r *UserRepo) CreditEarnings(ctx context.Context, userID int64, balanceDelta, earningsDelta int64) error {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return err
	}
	user, exists := r.s.data.users[userID]
	if !exists {
		return repository.ErrUserNotFound
	}
	user.Balance += balanceDelta
	user.TotalEarnings += earningsDelta
	user.Version++
	return nil
}

func (r *UserRepo) CreditReferral(ctx context.Context, userID int64, amount int64) error {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return err
	}
	user, exists := r.s.data.users[userID]
	if !exists {
		return repository.ErrUserNotFound
	}
	user.Balance += amount
	user.ReferralEarnings += amount
	user.Version++
	return nil
}

func (r *UserRepo) Debit(ctx context.Context, userID int64, amount int64, version int) error {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return err
	}
	return r.debit(userID, amount, version, false)
}

func (r *UserRepo) DebitForPurchase(ctx context.Context, userID int64, amount int64, version int) error {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return err
	}
	return r.debit(userID, amount, version, true)
}

func (r *UserRepo) debit(userID int64, amount int64, version int, purchase bool) error {
	user, exists := r.s.data.users[userID]
	if !exists {
		return repository.ErrUserNotFound
	}
	if user.Balance < amount {
		return repository.ErrBalanceNotEnough
	}
	if user.Version != version {
		return repository.ErrOptimisticLock
	}
	user.Balance -= amount
	if purchase {
		user.TotalPurchased += amount
	}
	user.Version++
	return nil
}

func (r *UserRepo) MarkDeposited(ctx context.Context, userID int64) error {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return err
	}
	user, exists := r.s.data.users[userID]
	if !exists {
		return repository.ErrUserNotFound
	}
	user.HasMadeDeposit = true
	return nil
}

func (r *UserRepo) MarkFirstDepositRewarded(ctx context.Context, userID int64) (bool, error) {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return false, err
	}
	user, exists := r.s.data.users[userID]
	if !exists {
		return false, nil
	}
	if user.ReferralRewarded {
		return false, nil
	}
	user.HasMadeDeposit = true
	user.ReferralRewarded = true
	return true, nil
}

func (r *UserRepo) AdminSetBalance(ctx context.Context, userID int64, newBalance int64, adminID int64, version int, now time.Time) error {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return err
	}
	user, exists := r.s.data.users[userID]
	if !exists {
		return repository.ErrUserNotFound
	}
	if user.Version != version {
		return repository.ErrOptimisticLock
	}
	user.Balance = newBalance
	user.LastUpdatedBy = &adminID
	user.LastUpdatedAt = &now
	user.Version++
	return nil
}
