package domain

import "time"

const (
	DeletionOutcomeOpen      = "open"
	DeletionOutcomeCompleted = "completed"
	DeletionOutcomeAborted   = "aborted"
)

// DeletionRequest is a farmer-initiated consensus round to retire an offering.
// At most one open round exists per offering.
type DeletionRequest struct {
	DeletionID string
	OfferingID string
	FarmerID   string
	Reason     string
	Outcome    string
	CreatedAt  time.Time
	ClosedAt   *time.Time
}

// DeletionConfirmation is one investor's vote in a consensus round. The row
// set is snapshotted when the round opens and never grows.
type DeletionConfirmation struct {
	ConfirmationID string
	DeletionID     string
	InvestorID     string
	Confirmed      bool
	RespondedAt    *time.Time
	CreatedAt      time.Time
}

// ConsensusState is the result of an atomic confirm-and-check. CompletedRound
// is true for exactly one caller per round: the one whose confirmation made
// the set unanimous and flipped the round open -> completed.
type ConsensusState struct {
	DeletionID     string
	OfferingID     string
	Outcome        string
	Total          int
	Confirmed      int
	CompletedRound bool
}
