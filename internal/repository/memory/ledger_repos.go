package memory

import (
	"context"
	"sort"
	"time"

	"investledger/internal/model"
	"investledger/internal/repository"
)

type PayoutRepo struct {
	s *Store
}

func (r *PayoutRepo) Create(ctx context.Context, payout *model.PayoutEvent) error {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return err
	}
	if payout.ID == 0 {
		payout.ID = r.s.data.allocID()
	}
	payout.CreatedAt = time.Now()
	cp := *payout
	r.s.data.payouts = append(r.s.data.payouts, &cp)
	return nil
}

func (r *PayoutRepo) ListByUserID(ctx context.Context, userID int64, limit int) ([]*model.PayoutEvent, error) {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return nil, err
	}
	var result []*model.PayoutEvent
	for _, p := range r.s.data.payouts {
		if p.UserID == userID {
			cp := *p
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PayoutDate.After(result[j].PayoutDate) })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *PayoutRepo) ListByInvestmentID(ctx context.Context, investmentID int64) ([]*model.PayoutEvent, error) {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return nil, err
	}
	var result []*model.PayoutEvent
	for _, p := range r.s.data.payouts {
		if p.InvestmentID == investmentID {
			cp := *p
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PayoutDate.Before(result[j].PayoutDate) })
	return result, nil
}

func (r *PayoutRepo) SumByInvestmentID(ctx context.Context, investmentID int64) (int64, error) {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return 0, err
	}
	var sum int64
	for _, p := range r.s.data.payouts {
		if p.InvestmentID == investmentID {
			sum += p.Amount
		}
	}
	return sum, nil
}

type TransactionRepo struct {
	s *Store
}

func (r *TransactionRepo) Create(ctx context.Context, trans *model.Transaction) error {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return err
	}
	if trans.ID == 0 {
		trans.ID = r.s.data.allocID()
	}
	trans.CreatedAt = time.Now()
	cp := *trans
	r.s.data.txns = append(r.s.data.txns, &cp)
	return nil
}

func (r *TransactionRepo) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.Transaction, int64, error) {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return nil, 0, err
	}
	var all []*model.Transaction
	for _, t := range r.s.data.txns {
		if t.UserID == userID {
			cp := *t
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

type ReferralRepo struct {
	s *Store
}

func (r *ReferralRepo) Create(ctx context.Context, referral *model.Referral) error {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return err
	}
	if referral.ID == 0 {
		referral.ID = r.s.data.allocID()
	}
	cp := *referral
	r.s.data.referrals[referral.ID] = &cp
	return nil
}

func (r *ReferralRepo) GetByReferredUserID(ctx context.Context, referredUserID int64) (*model.Referral, error) {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return nil, err
	}
	for _, ref := range r.s.data.referrals {
		if ref.ReferredUserID != nil && *ref.ReferredUserID == referredUserID {
			cp := *ref
			return &cp, nil
		}
	}
	return nil, repository.ErrReferralNotFound
}

func (r *ReferralRepo) ListByReferrerID(ctx context.Context, referrerID int64) ([]*model.Referral, error) {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return nil, err
	}
	var result []*model.Referral
	for _, ref := range r.s.data.referrals {
		if ref.ReferrerID == referrerID {
			cp := *ref
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *ReferralRepo) MarkDeposited(ctx context.Context, id int64, commission, depositAmount int64, now time.Time) error {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return err
	}
	ref, exists := r.s.data.referrals[id]
	if !exists || ref.Status != model.ReferralStatusSignedUp {
		return repository.ErrReferralNotFound
	}
	ref.Status = model.ReferralStatusDeposited
	ref.CommissionEarned = &commission
	ref.DepositAmount = &depositAmount
	commissionAt := now
	ref.CommissionDate = &commissionAt
	return nil
}

type OutboxRepo struct {
	s *Store
}

func (r *OutboxRepo) Create(ctx context.Context, msg *model.OutboxMessage) error {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return err
	}
	if msg.ID == 0 {
		msg.ID = r.s.data.allocID()
	}
	msg.CreatedAt = time.Now()
	cp := *msg
	r.s.data.outbox = append(r.s.data.outbox, &cp)
	return nil
}

func (r *OutboxRepo) GetPendingMessages(ctx context.Context, limit int) ([]*model.OutboxMessage, error) {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return nil, err
	}
	var result []*model.OutboxMessage
	for _, m := range r.s.data.outbox {
		if m.Status == model.OutboxStatusPending {
			cp := *m
			result = append(result, &cp)
			if len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}

func (r *OutboxRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return err
	}
	for _, m := range r.s.data.outbox {
		if m.ID == id {
			m.Status = status
			return nil
		}
	}
	return nil
}

func (r *OutboxRepo) IncrementRetryCount(ctx context.Context, id int64) error {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return err
	}
	for _, m := range r.s.data.outbox {
		if m.ID == id {
			m.RetryCount++
			return nil
		}
	}
	return nil
}

func (r *OutboxRepo) MarkAsFailed(ctx context.Context, id int64) error {
	defer r.s.lock()()
	if err := r.s.failed(); err != nil {
		return err
	}
	for _, m := range r.s.data.outbox {
		if m.ID == id {
			m.Status = model.OutboxStatusFailed
			m.RetryCount++
			return nil
		}
	}
	return nil
}
