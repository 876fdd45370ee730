package postgres

import (
	"time"
)

type offeringModel struct {
	OfferingID    string    `gorm:"column:offering_id;type:uuid;primaryKey"`
	FarmerID      string    `gorm:"column:farmer_id;type:uuid"`
	AssetType     string    `gorm:"column:asset_type"`
	AssetKind     string    `gorm:"column:asset_kind"`
	AssetDetails  string    `gorm:"column:asset_details"`
	Region        string    `gorm:"column:region"`
	Purpose       string    `gorm:"column:purpose"`
	PricePerShare float64   `gorm:"column:price_per_share"`
	TotalShares   int       `gorm:"column:total_shares"`
	Status        string    `gorm:"column:status"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (offeringModel) TableName() string { return "offerings" }

type shareCounterModel struct {
	OfferingID      string    `gorm:"column:offering_id;type:uuid;primaryKey"`
	TotalShares     int       `gorm:"column:total_shares"`
	AvailableShares int       `gorm:"column:available_shares"`
	ReservedShares  int       `gorm:"column:reserved_shares"`
	AllocatedShares int       `gorm:"column:allocated_shares"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

func (shareCounterModel) TableName() string { return "share_counters" }

type investmentRequestModel struct {
	RequestID           string    `gorm:"column:request_id;type:uuid;primaryKey"`
	OfferingID          string    `gorm:"column:offering_id;type:uuid"`
	InvestorID          string    `gorm:"column:investor_id;type:uuid"`
	SharesRequested     int       `gorm:"column:shares_requested"`
	Amount              float64   `gorm:"column:amount"`
	Status              string    `gorm:"column:status"`
	ReservationToken    string    `gorm:"column:reservation_token;type:uuid"`
	CancelActor         string    `gorm:"column:cancel_actor"`
	CancelReason        string    `gorm:"column:cancel_reason"`
	NeedsReconciliation bool      `gorm:"column:needs_reconciliation"`
	CreatedAt           time.Time `gorm:"column:created_at"`
	StatusChangedAt     time.Time `gorm:"column:status_changed_at"`
}

func (investmentRequestModel) TableName() string { return "investment_requests" }

type deletionRequestModel struct {
	DeletionID string     `gorm:"column:deletion_id;type:uuid;primaryKey"`
	OfferingID string     `gorm:"column:offering_id;type:uuid"`
	FarmerID   string     `gorm:"column:farmer_id;type:uuid"`
	Reason     string     `gorm:"column:reason"`
	Outcome    string     `gorm:"column:outcome"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
	ClosedAt   *time.Time `gorm:"column:closed_at"`
}

func (deletionRequestModel) TableName() string { return "deletion_requests" }

type deletionConfirmationModel struct {
	ConfirmationID string     `gorm:"column:confirmation_id;type:uuid;primaryKey"`
	DeletionID     string     `gorm:"column:deletion_id;type:uuid"`
	InvestorID     string     `gorm:"column:investor_id;type:uuid"`
	Confirmed      bool       `gorm:"column:confirmed"`
	RespondedAt    *time.Time `gorm:"column:responded_at"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
}

func (deletionConfirmationModel) TableName() string { return "deletion_confirmations" }

type outboxModel struct {
	RecordID   string     `gorm:"column:record_id;type:uuid;primaryKey"`
	EventClass string     `gorm:"column:event_class"`
	Envelope   string     `gorm:"column:envelope;type:jsonb"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
	SentAt     *time.Time `gorm:"column:sent_at"`
}

func (outboxModel) TableName() string { return "invest_outbox" }

type idempotencyModel struct {
	IdempotencyKey string    `gorm:"column:idempotency_key;primaryKey"`
	RequestHash    string    `gorm:"column:request_hash"`
	ResponseCode   int       `gorm:"column:response_code"`
	ResponseBody   *string   `gorm:"column:response_body;type:jsonb"`
	ExpiresAt      time.Time `gorm:"column:expires_at"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (idempotencyModel) TableName() string { return "invest_idempotency" }
