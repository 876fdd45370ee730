package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/domain"
)

const (
	catalogListingKeyPrefix = "catalog:listing:"
	catalogIndexKey         = "catalog:index"
)

// RedisCatalogStore holds the browse projection: one JSON value per offering
// plus a set of listed offering IDs. It is rebuildable from the system of
// record, so values carry no TTL and a cold cache only means an empty
// catalog until republish.
type RedisCatalogStore struct {
	client *redis.Client
}

func NewRedisCatalogStore(client *redis.Client) *RedisCatalogStore {
	return &RedisCatalogStore{client: client}
}

type catalogListingRecord struct {
	OfferingID      string    `json:"offering_id"`
	FarmerID        string    `json:"farmer_id"`
	AssetType       string    `json:"asset_type"`
	AssetKind       string    `json:"asset_kind"`
	Region          string    `json:"region"`
	Purpose         string    `json:"purpose"`
	PricePerShare   float64   `json:"price_per_share"`
	TotalShares     int       `json:"total_shares"`
	AvailableShares int       `json:"available_shares"`
	Status          string    `json:"status"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toRecord(l domain.CatalogListing) catalogListingRecord {
	return catalogListingRecord(l)
}

func (r catalogListingRecord) toDomain() domain.CatalogListing {
	return domain.CatalogListing(r)
}

func (s *RedisCatalogStore) Upsert(ctx context.Context, listing domain.CatalogListing) error {
	raw, err := json.Marshal(toRecord(listing))
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, catalogListingKeyPrefix+listing.OfferingID, raw, 0)
		p.SAdd(ctx, catalogIndexKey, listing.OfferingID)
		return nil
	})
	return err
}

func (s *RedisCatalogStore) UpdateAvailability(ctx context.Context, offeringID string, availableShares int, at time.Time) error {
	raw, err := s.client.Get(ctx, catalogListingKeyPrefix+offeringID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}
	var record catalogListingRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return err
	}
	record.AvailableShares = availableShares
	record.UpdatedAt = at
	updated, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, catalogListingKeyPrefix+offeringID, updated, 0).Err()
}

func (s *RedisCatalogStore) Remove(ctx context.Context, offeringID string) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, catalogListingKeyPrefix+offeringID)
		p.SRem(ctx, catalogIndexKey, offeringID)
		return nil
	})
	return err
}

func (s *RedisCatalogStore) List(ctx context.Context, filter domain.CatalogFilter) ([]domain.CatalogListing, error) {
	ids, err := s.client.SMembers(ctx, catalogIndexKey).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.CatalogListing, 0, len(ids))
	for _, id := range ids {
		raw, err := s.client.Get(ctx, catalogListingKeyPrefix+id).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Index drift: the value was dropped without its index entry.
				_ = s.client.SRem(ctx, catalogIndexKey, id).Err()
				continue
			}
			return nil, err
		}
		var record catalogListingRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, err
		}
		listing := record.toDomain()
		if !filter.Matches(listing) {
			continue
		}
		out = append(out, listing)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OfferingID < out[j].OfferingID })
	return out, nil
}
