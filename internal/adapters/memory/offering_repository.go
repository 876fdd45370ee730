package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/domain"
)

type OfferingRepository struct {
	mu   sync.Mutex
	rows map[string]domain.Offering
}

func NewOfferingRepository() *OfferingRepository {
	return &OfferingRepository{rows: map[string]domain.Offering{}}
}

func (r *OfferingRepository) Create(_ context.Context, row domain.Offering) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[row.OfferingID]; ok {
		return domain.ErrConflict
	}
	r.rows[row.OfferingID] = row
	return nil
}

func (r *OfferingRepository) GetByID(_ context.Context, offeringID string) (domain.Offering, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[offeringID]
	if !ok {
		return domain.Offering{}, domain.ErrNotFound
	}
	return row, nil
}

func (r *OfferingRepository) UpdateStatus(_ context.Context, offeringID, fromStatus, toStatus string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[offeringID]
	if !ok {
		return domain.ErrNotFound
	}
	if row.Status != fromStatus {
		return domain.ErrInvalidTransition
	}
	row.Status = toStatus
	row.UpdatedAt = at
	r.rows[offeringID] = row
	return nil
}

func (r *OfferingRepository) ListByFarmer(_ context.Context, farmerID string) ([]domain.Offering, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Offering, 0)
	for _, row := range r.rows {
		if row.FarmerID == farmerID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ShareLedgerStore keeps the authoritative counters. One mutex covers all
// offerings; the conditional checks below are what the postgres adapter
// expresses as guarded single-statement updates.
type ShareLedgerStore struct {
	mu   sync.Mutex
	rows map[string]domain.ShareCounter
}

func NewShareLedgerStore() *ShareLedgerStore {
	return &ShareLedgerStore{rows: map[string]domain.ShareCounter{}}
}

func (s *ShareLedgerStore) Init(_ context.Context, offeringID string, totalShares int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[offeringID]; ok {
		return domain.ErrConflict
	}
	s.rows[offeringID] = domain.ShareCounter{
		OfferingID:      offeringID,
		TotalShares:     totalShares,
		AvailableShares: totalShares,
		UpdatedAt:       at,
	}
	return nil
}

func (s *ShareLedgerStore) Get(_ context.Context, offeringID string) (domain.ShareCounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[offeringID]
	if !ok {
		return domain.ShareCounter{}, domain.ErrNotFound
	}
	return row, nil
}

func (s *ShareLedgerStore) Reserve(_ context.Context, offeringID string, shares int, at time.Time) (domain.ShareCounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[offeringID]
	if !ok {
		return domain.ShareCounter{}, domain.ErrNotFound
	}
	if row.AvailableShares < shares {
		return domain.ShareCounter{}, domain.ErrInsufficientShares
	}
	row.AvailableShares -= shares
	row.ReservedShares += shares
	row.UpdatedAt = at
	s.rows[offeringID] = row
	return row, nil
}

func (s *ShareLedgerStore) Release(_ context.Context, offeringID string, shares int, at time.Time) (domain.ShareCounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[offeringID]
	if !ok {
		return domain.ShareCounter{}, domain.ErrNotFound
	}
	if row.ReservedShares < shares {
		return domain.ShareCounter{}, domain.ErrConflict
	}
	row.ReservedShares -= shares
	row.AvailableShares += shares
	row.UpdatedAt = at
	s.rows[offeringID] = row
	return row, nil
}

func (s *ShareLedgerStore) Commit(_ context.Context, offeringID string, shares int, at time.Time) (domain.ShareCounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[offeringID]
	if !ok {
		return domain.ShareCounter{}, domain.ErrNotFound
	}
	if row.ReservedShares < shares {
		return domain.ShareCounter{}, domain.ErrConflict
	}
	row.ReservedShares -= shares
	row.AllocatedShares += shares
	row.UpdatedAt = at
	s.rows[offeringID] = row
	return row, nil
}

func (s *ShareLedgerStore) ReleaseAllocated(_ context.Context, offeringID string, shares int, at time.Time) (domain.ShareCounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[offeringID]
	if !ok {
		return domain.ShareCounter{}, domain.ErrNotFound
	}
	if row.AllocatedShares < shares {
		return domain.ShareCounter{}, domain.ErrConflict
	}
	row.AllocatedShares -= shares
	row.AvailableShares += shares
	row.UpdatedAt = at
	s.rows[offeringID] = row
	return row, nil
}
