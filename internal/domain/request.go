package domain

import "time"

const (
	RequestStatusPending   = "pending"
	RequestStatusApproved  = "approved"
	RequestStatusRejected  = "rejected"
	RequestStatusPaid      = "paid"
	RequestStatusActive    = "active"
	RequestStatusCancelled = "cancelled"
)

const (
	CancelActorInvestor  = "investor"
	CancelActorAdmin     = "admin"
	CancelActorConsensus = "consensus"
)

// InvestmentRequest is an investor's claim on shares of one offering.
// Amount is frozen at request time (shares x price-per-share) and never
// recomputed from the offering afterwards.
type InvestmentRequest struct {
	RequestID           string
	OfferingID          string
	InvestorID          string
	SharesRequested     int
	Amount              float64
	Status              string
	ReservationToken    string
	CancelActor         string
	CancelReason        string
	NeedsReconciliation bool
	CreatedAt           time.Time
	StatusChangedAt     time.Time
}

// StatusChange carries a request status transition and its audit fields.
// The repository applies it with compare-and-swap semantics against the
// caller-supplied prior statuses.
type StatusChange struct {
	To                  string
	At                  time.Time
	Actor               string
	Reason              string
	NeedsReconciliation bool
}

// RequestHoldsReservation reports whether a request in the given status still
// holds a releasable ledger reservation.
func RequestHoldsReservation(status string) bool {
	return status == RequestStatusPending || status == RequestStatusApproved
}

// RequestHoldsAllocation reports whether the request's shares were committed
// into permanent allocation.
func RequestHoldsAllocation(status string) bool {
	return status == RequestStatusPaid || status == RequestStatusActive
}

// RequestIsStake reports whether the request counts as an unresolved investor
// commitment: it ties up shares and qualifies its investor for deletion
// consensus.
func RequestIsStake(status string) bool {
	return RequestHoldsReservation(status) || RequestHoldsAllocation(status)
}

// RequestIsTerminal reports whether no further transitions are allowed.
func RequestIsTerminal(status string) bool {
	return status == RequestStatusRejected || status == RequestStatusCancelled
}
