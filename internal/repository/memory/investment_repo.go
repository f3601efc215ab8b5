package memory

import (
	"context"
	"sort"
	"time"

	"investledger/internal/model"
	"investledger/internal/repository"
)

type InvestmentRepo struct {
	s *Store
}

func (r *InvestmentRepo) Create(ctx context.Context, inv *model.Investment) error {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return err
	}
	if inv.ID == 0 {
		inv.ID = r.s.data.allocID()
	}
	inv.CreatedAt = time.Now()
	cp := *inv
	r.s.data.investments[inv.ID] = &cp
	return nil
}

func (r *InvestmentRepo) GetByID(ctx context.Context, id int64) (*model.Investment, error) {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return nil, err
	}
	inv, exists := r.s.data.investments[id]
	if !exists {
		return nil, repository.ErrInvestmentNotFound
	}
	cp := *inv
	return &cp, nil
}

func (r *InvestmentRepo) ListActive(ctx context.Context, afterID int64, limit int) ([]*model.Investment, error) {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return nil, err
	}
	var result []*model.Investment
	for _, inv := range r.s.data.investments {
		if inv.Status == model.InvestmentStatusActive && inv.ID > afterID {
			cp := *inv
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *InvestmentRepo) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.Investment, int64, error) {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return nil, 0, err
	}
	var all []*model.Investment
	for _, inv := range r.s.data.investments {
		if inv.UserID == userID {
			cp := *inv
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := int64(len(all))
	start := (page - 1) * pageSize
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

// ApplyDailyPayout 与 MySQL 实现同语义：令牌不匹配或状态非 active 时不生效
func (r *InvestmentRepo) ApplyDailyPayout(ctx context.Context, id int64, prevPayoutDate *time.Time, amount int64, now time.Time) (bool, error) {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return false, err
	}
	inv, exists := r.s.data.investments[id]
	if !exists || inv.Status != model.InvestmentStatusActive {
		return false, nil
	}
	if !payoutTokenMatches(inv.LastPayoutDate, prevPayoutDate) {
		return false, nil
	}
	inv.EarnedSoFar += amount
	payoutAt := now
	inv.LastPayoutDate = &payoutAt
	return true, nil
}

func payoutTokenMatches(current, expected *time.Time) bool {
	if current == nil || expected == nil {
		return current == nil && expected == nil
	}
	return current.Equal(*expected)
}

func (r *InvestmentRepo) Settle(ctx context.Context, id int64, prevEarned int64, actualReturn int64, totalProfit int64, now time.Time) (bool, error) {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return false, err
	}
	inv, exists := r.s.data.investments[id]
	if !exists || inv.Status != model.InvestmentStatusActive || inv.EarnedSoFar != prevEarned {
		return false, nil
	}
	inv.Status = model.InvestmentStatusCompleted
	inv.ActualReturn = &actualReturn
	completedAt := now
	inv.CompletionDate = &completedAt
	inv.EarnedSoFar = totalProfit
	return true, nil
}

func (r *InvestmentRepo) Cancel(ctx context.Context, id int64) (bool, error) {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return false, err
	}
	inv, exists := r.s.data.investments[id]
	if !exists || inv.Status != model.InvestmentStatusActive {
		return false, nil
	}
	inv.Status = model.InvestmentStatusCancelled
	return true, nil
}
