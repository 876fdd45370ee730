package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/domain"
)

type InvestmentRequestRepository struct {
	mu   sync.Mutex
	rows map[string]domain.InvestmentRequest
}

func NewInvestmentRequestRepository() *InvestmentRequestRepository {
	return &InvestmentRequestRepository{rows: map[string]domain.InvestmentRequest{}}
}

func (r *InvestmentRequestRepository) Create(_ context.Context, row domain.InvestmentRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[row.RequestID]; ok {
		return domain.ErrConflict
	}
	r.rows[row.RequestID] = row
	return nil
}

func (r *InvestmentRequestRepository) GetByID(_ context.Context, requestID string) (domain.InvestmentRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[requestID]
	if !ok {
		return domain.InvestmentRequest{}, domain.ErrNotFound
	}
	return row, nil
}

func (r *InvestmentRequestRepository) UpdateStatus(_ context.Context, requestID string, fromStatuses []string, change domain.StatusChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[requestID]
	if !ok {
		return domain.ErrNotFound
	}
	matched := false
	for _, from := range fromStatuses {
		if row.Status == from {
			matched = true
			break
		}
	}
	if !matched {
		return domain.ErrInvalidTransition
	}
	row.Status = change.To
	row.StatusChangedAt = change.At
	if change.Actor != "" {
		row.CancelActor = change.Actor
	}
	if change.Reason != "" {
		row.CancelReason = change.Reason
	}
	if change.NeedsReconciliation {
		row.NeedsReconciliation = true
	}
	r.rows[requestID] = row
	return nil
}

func (r *InvestmentRequestRepository) ListByOffering(_ context.Context, offeringID string) ([]domain.InvestmentRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.InvestmentRequest, 0)
	for _, row := range r.rows {
		if row.OfferingID == offeringID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *InvestmentRequestRepository) ListByInvestor(_ context.Context, investorID string) ([]domain.InvestmentRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.InvestmentRequest, 0)
	for _, row := range r.rows {
		if row.InvestorID == investorID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
