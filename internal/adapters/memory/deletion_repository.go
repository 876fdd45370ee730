package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/domain"
)

type DeletionRepository struct {
	mu            sync.Mutex
	rows          map[string]domain.DeletionRequest
	confirmations map[string][]domain.DeletionConfirmation
}

func NewDeletionRepository() *DeletionRepository {
	return &DeletionRepository{
		rows:          map[string]domain.DeletionRequest{},
		confirmations: map[string][]domain.DeletionConfirmation{},
	}
}

func (r *DeletionRepository) Create(_ context.Context, row domain.DeletionRequest, confirmations []domain.DeletionConfirmation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[row.DeletionID]; ok {
		return domain.ErrConflict
	}
	if row.Outcome == domain.DeletionOutcomeOpen {
		for _, existing := range r.rows {
			if existing.OfferingID == row.OfferingID && existing.Outcome == domain.DeletionOutcomeOpen {
				return domain.ErrDeletionOpen
			}
		}
	}
	r.rows[row.DeletionID] = row
	r.confirmations[row.DeletionID] = append([]domain.DeletionConfirmation(nil), confirmations...)
	return nil
}

func (r *DeletionRepository) GetByID(_ context.Context, deletionID string) (domain.DeletionRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[deletionID]
	if !ok {
		return domain.DeletionRequest{}, domain.ErrNotFound
	}
	return row, nil
}

func (r *DeletionRepository) GetOpenByOffering(_ context.Context, offeringID string) (domain.DeletionRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.OfferingID == offeringID && row.Outcome == domain.DeletionOutcomeOpen {
			return row, nil
		}
	}
	return domain.DeletionRequest{}, domain.ErrNotFound
}

func (r *DeletionRepository) ListConfirmations(_ context.Context, deletionID string) ([]domain.DeletionConfirmation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows, ok := r.confirmations[deletionID]
	if !ok {
		if _, exists := r.rows[deletionID]; !exists {
			return nil, domain.ErrNotFound
		}
		return []domain.DeletionConfirmation{}, nil
	}
	out := append([]domain.DeletionConfirmation(nil), rows...)
	sort.Slice(out, func(i, j int) bool { return out[i].InvestorID < out[j].InvestorID })
	return out, nil
}

// Confirm is the consensus-critical section: recording the vote, counting the
// round, and completing it happen under one lock so no caller ever observes a
// stale confirmation count during finalize.
func (r *DeletionRepository) Confirm(_ context.Context, deletionID, investorID string, at time.Time) (domain.ConsensusState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[deletionID]
	if !ok {
		return domain.ConsensusState{}, domain.ErrNotFound
	}
	if row.Outcome == domain.DeletionOutcomeAborted {
		return domain.ConsensusState{}, domain.ErrInvalidTransition
	}

	// Membership is checked before the completed no-op so a non-stakeholder
	// is refused regardless of round state.
	rows := r.confirmations[deletionID]
	idx := -1
	for i, c := range rows {
		if c.InvestorID == investorID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.ConsensusState{}, domain.ErrForbidden
	}
	if row.Outcome == domain.DeletionOutcomeCompleted {
		return r.stateLocked(row), nil
	}
	if !rows[idx].Confirmed {
		respondedAt := at
		rows[idx].Confirmed = true
		rows[idx].RespondedAt = &respondedAt
		r.confirmations[deletionID] = rows
	}

	allConfirmed := true
	for _, c := range rows {
		if !c.Confirmed {
			allConfirmed = false
			break
		}
	}
	if allConfirmed {
		closedAt := at
		row.Outcome = domain.DeletionOutcomeCompleted
		row.ClosedAt = &closedAt
		r.rows[deletionID] = row
		state := r.stateLocked(row)
		state.CompletedRound = true
		return state, nil
	}
	return r.stateLocked(row), nil
}

func (r *DeletionRepository) Abort(_ context.Context, deletionID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[deletionID]
	if !ok {
		return domain.ErrNotFound
	}
	if row.Outcome != domain.DeletionOutcomeOpen {
		return domain.ErrInvalidTransition
	}
	closedAt := at
	row.Outcome = domain.DeletionOutcomeAborted
	row.ClosedAt = &closedAt
	r.rows[deletionID] = row
	delete(r.confirmations, deletionID)
	return nil
}

func (r *DeletionRepository) stateLocked(row domain.DeletionRequest) domain.ConsensusState {
	state := domain.ConsensusState{
		DeletionID: row.DeletionID,
		OfferingID: row.OfferingID,
		Outcome:    row.Outcome,
	}
	for _, c := range r.confirmations[row.DeletionID] {
		state.Total++
		if c.Confirmed {
			state.Confirmed++
		}
	}
	return state
}
