package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/domain"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/ports"
)

type IdempotencyRepository struct {
	mu   sync.Mutex
	rows map[string]ports.IdempotencyRecord
}

func NewIdempotencyRepository() *IdempotencyRepository {
	return &IdempotencyRepository{rows: map[string]ports.IdempotencyRecord{}}
}

func (r *IdempotencyRepository) Get(_ context.Context, key string, now time.Time) (*ports.IdempotencyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[key]
	if !ok {
		return nil, nil
	}
	if now.After(row.ExpiresAt) {
		delete(r.rows, key)
		return nil, nil
	}
	c := row
	c.ResponseBody = append([]byte(nil), row.ResponseBody...)
	return &c, nil
}

func (r *IdempotencyRepository) Reserve(_ context.Context, key, requestHash string, now, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[key]; ok && now.Before(row.ExpiresAt) {
		return domain.ErrConflict
	}
	r.rows[key] = ports.IdempotencyRecord{Key: key, RequestHash: requestHash, ExpiresAt: expiresAt}
	return nil
}

func (r *IdempotencyRepository) Complete(_ context.Context, key string, responseCode int, responseBody []byte, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[key]
	if !ok {
		return domain.ErrNotFound
	}
	row.ResponseCode = responseCode
	row.ResponseBody = append([]byte(nil), responseBody...)
	r.rows[key] = row
	return nil
}

type OutboxRepository struct {
	mu    sync.Mutex
	rows  map[string]ports.OutboxRecord
	order []string
}

func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{rows: map[string]ports.OutboxRecord{}, order: []string{}}
}

func (r *OutboxRepository) Enqueue(_ context.Context, record ports.OutboxRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[record.RecordID]; ok {
		return domain.ErrConflict
	}
	r.rows[record.RecordID] = record
	r.order = append(r.order, record.RecordID)
	return nil
}

func (r *OutboxRepository) ListPending(_ context.Context, limit int) ([]ports.OutboxRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	out := make([]ports.OutboxRecord, 0, limit)
	for _, id := range r.order {
		row, ok := r.rows[id]
		if !ok || row.SentAt != nil {
			continue
		}
		out = append(out, row)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *OutboxRepository) MarkSent(_ context.Context, recordID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[recordID]
	if !ok {
		return domain.ErrNotFound
	}
	sentAt := at
	row.SentAt = &sentAt
	r.rows[recordID] = row
	return nil
}

type CatalogStore struct {
	mu   sync.Mutex
	rows map[string]domain.CatalogListing
}

func NewCatalogStore() *CatalogStore {
	return &CatalogStore{rows: map[string]domain.CatalogListing{}}
}

func (s *CatalogStore) Upsert(_ context.Context, listing domain.CatalogListing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[listing.OfferingID] = listing
	return nil
}

func (s *CatalogStore) UpdateAvailability(_ context.Context, offeringID string, availableShares int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[offeringID]
	if !ok {
		// The projection may lag behind offering writes; nothing to update.
		return nil
	}
	row.AvailableShares = availableShares
	row.UpdatedAt = at
	s.rows[offeringID] = row
	return nil
}

func (s *CatalogStore) Remove(_ context.Context, offeringID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, offeringID)
	return nil
}

func (s *CatalogStore) List(_ context.Context, filter domain.CatalogFilter) ([]domain.CatalogListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CatalogListing, 0)
	for _, row := range s.rows {
		if filter.Matches(row) {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OfferingID < out[j].OfferingID })
	return out, nil
}
