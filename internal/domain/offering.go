package domain

import "time"

const (
	OfferingStatusPublished       = "published"
	OfferingStatusPendingDeletion = "pending_deletion"
	OfferingStatusRetired         = "retired"
)

// Offering is a farmer-published, share-divisible investment opportunity tied
// to a physical asset. TotalShares is fixed at publish time; the live
// available/reserved/allocated split lives in the ShareCounter owned by the
// ledger.
type Offering struct {
	OfferingID    string
	FarmerID      string
	AssetType     string
	AssetKind     string
	AssetDetails  string
	Region        string
	Purpose       string
	PricePerShare float64
	TotalShares   int
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ShareCounter is the authoritative per-offering share inventory.
// Invariant: AvailableShares + ReservedShares + AllocatedShares == TotalShares
// and 0 <= AvailableShares <= TotalShares.
type ShareCounter struct {
	OfferingID      string
	TotalShares     int
	AvailableShares int
	ReservedShares  int
	AllocatedShares int
	UpdatedAt       time.Time
}

// Reservation is a temporary claim on shares held by a non-final investment
// request. It is releasable until committed.
type Reservation struct {
	Token      string
	OfferingID string
	Shares     int
}

// AvailabilityChange is emitted after every successful ledger operation and
// drives the catalog read projection.
type AvailabilityChange struct {
	OfferingID      string
	TotalShares     int
	AvailableShares int
	ChangedAt       time.Time
}

// CatalogListing is the denormalized read model served to the browsing UI.
type CatalogListing struct {
	OfferingID      string
	FarmerID        string
	AssetType       string
	AssetKind       string
	Region          string
	Purpose         string
	PricePerShare   float64
	TotalShares     int
	AvailableShares int
	Status          string
	UpdatedAt       time.Time
}

// CatalogFilter combines predicates with AND semantics; empty fields match all.
type CatalogFilter struct {
	AssetType string
	Region    string
	Purpose   string
}

func (f CatalogFilter) Matches(l CatalogListing) bool {
	if f.AssetType != "" && l.AssetType != f.AssetType {
		return false
	}
	if f.Region != "" && l.Region != f.Region {
		return false
	}
	if f.Purpose != "" && l.Purpose != f.Purpose {
		return false
	}
	return true
}
