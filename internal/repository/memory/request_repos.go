package memory

import (
	"context"
	"sort"
	"time"

	"investledger/internal/model"
	"investledger/internal/repository"
)

type PackageRepo struct {
	s *Store
}

func (r *PackageRepo) Create(ctx context.Context, pkg *model.Package) error {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return err
	}
	if pkg.ID == 0 {
		pkg.ID = r.s.data.allocID()
	}
	cp := *pkg
	r.s.data.packages[pkg.ID] = &cp
	return nil
}

func (r *PackageRepo) GetByID(ctx context.Context, id int64) (*model.Package, error) {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return nil, err
	}
	pkg, exists := r.s.data.packages[id]
	if !exists {
		return nil, repository.ErrPackageNotFound
	}
	cp := *pkg
	return &cp, nil
}

func (r *PackageRepo) ListActive(ctx context.Context) ([]*model.Package, error) {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return nil, err
	}
	var result []*model.Package
	for _, pkg := range r.s.data.packages {
		if pkg.IsActive {
			cp := *pkg
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Amount < result[j].Amount })
	return result, nil
}

type DepositRepo struct {
	s *Store
}

func (r *DepositRepo) Create(ctx context.Context, deposit *model.Deposit) error {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return err
	}
	if deposit.ID == 0 {
		deposit.ID = r.s.data.allocID()
	}
	deposit.CreatedAt = time.Now()
	cp := *deposit
	r.s.data.deposits[deposit.ID] = &cp
	return nil
}

func (r *DepositRepo) GetByID(ctx context.Context, id int64) (*model.Deposit, error) {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return nil, err
	}
	deposit, exists := r.s.data.deposits[id]
	if !exists {
		return nil, repository.ErrDepositNotFound
	}
	cp := *deposit
	return &cp, nil
}

func (r *DepositRepo) ListPending(ctx context.Context, limit int) ([]*model.Deposit, error) {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return nil, err
	}
	var result []*model.Deposit
	for _, d := range r.s.data.deposits {
		if d.Status == model.DepositStatusPending {
			cp := *d
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *DepositRepo) ListByUserID(ctx context.Context, userID int64, limit int) ([]*model.Deposit, error) {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return nil, err
	}
	var result []*model.Deposit
	for _, d := range r.s.data.deposits {
		if d.UserID == userID {
			cp := *d
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *DepositRepo) Approve(ctx context.Context, id int64, adminID int64, now time.Time) (bool, error) {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return false, err
	}
	deposit, exists := r.s.data.deposits[id]
	if !exists || deposit.Status != model.DepositStatusPending {
		return false, nil
	}
	deposit.Status = model.DepositStatusCompleted
	deposit.ApprovedBy = &adminID
	approvedAt := now
	deposit.ApprovedAt = &approvedAt
	deposit.CompletedAt = &approvedAt
	return true, nil
}

func (r *DepositRepo) Reject(ctx context.Context, id int64, adminID int64, now time.Time) (bool, error) {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return false, err
	}
	deposit, exists := r.s.data.deposits[id]
	if !exists || deposit.Status != model.DepositStatusPending {
		return false, nil
	}
	deposit.Status = model.DepositStatusFailed
	deposit.ApprovedBy = &adminID
	approvedAt := now
	deposit.ApprovedAt = &approvedAt
	return true, nil
}

type WithdrawalRepo struct {
	s *Store
}

func (r *WithdrawalRepo) Create(ctx context.Context, withdrawal *model.Withdrawal) error {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return err
	}
	if withdrawal.ID == 0 {
		withdrawal.ID = r.s.data.allocID()
	}
	withdrawal.CreatedAt = time.Now()
	cp := *withdrawal
	r.s.data.withdrawals[withdrawal.ID] = &cp
	return nil
}

func (r *WithdrawalRepo) GetByID(ctx context.Context, id int64) (*model.Withdrawal, error) {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return nil, err
	}
	withdrawal, exists := r.s.data.withdrawals[id]
	if !exists {
		return nil, repository.ErrWithdrawalNotFound
	}
	cp := *withdrawal
	return &cp, nil
}

func (r *WithdrawalRepo) ListPending(ctx context.Context, limit int) ([]*model.Withdrawal, error) {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return nil, err
	}
	var result []*model.Withdrawal
	for _, w := range r.s.data.withdrawals {
		if w.Status == model.WithdrawalStatusPending {
			cp := *w
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *WithdrawalRepo) ListByUserID(ctx context.Context, userID int64, limit int) ([]*model.Withdrawal, error) {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return nil, err
	}
	var result []*model.Withdrawal
	for _, w := range r.s.data.withdrawals {
		if w.UserID == userID {
			cp := *w
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *WithdrawalRepo) Approve(ctx context.Context, id int64, adminID int64, now time.Time) (bool, error) {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return false, err
	}
	withdrawal, exists := r.s.data.withdrawals[id]
	if !exists || withdrawal.Status != model.WithdrawalStatusPending {
		return false, nil
	}
	withdrawal.Status = model.WithdrawalStatusCompleted
	withdrawal.ProcessedBy = &adminID
	processedAt := now
	withdrawal.ProcessedAt = &processedAt
	withdrawal.CompletedAt = &processedAt
	return true, nil
}

func (r *WithdrawalRepo) Reject(ctx context.Context, id int64, adminID int64, now time.Time) (bool, error) {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return false, err
	}
	withdrawal, exists := r.s.data.withdrawals[id]
	if !exists || withdrawal.Status != model.WithdrawalStatusPending {
		return false, nil
	}
	withdrawal.Status = model.WithdrawalStatusRejected
	withdrawal.ProcessedBy = &adminID
	processedAt := now
	withdrawal.ProcessedAt = &processedAt
	return true, nil
}
