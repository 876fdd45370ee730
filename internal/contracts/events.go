package contracts

import (
	"encoding/json"
	"time"
)

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	EventClass       string          `json:"event_class,omitempty"`
	OccurredAt       time.Time       `json:"occurred_at"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    string          `json:"schema_version"`
	Data             json.RawMessage `json:"data"`
}

type DLQRecord struct {
	OriginalEvent EventEnvelope `json:"original_event"`
	ErrorSummary  string        `json:"error_summary"`
	RetryCount    int           `json:"retry_count"`
	FirstSeenAt   time.Time     `json:"first_seen_at"`
	LastErrorAt   time.Time     `json:"last_error_at"`
	SourceTopic   string        `json:"source_topic"`
	DLQTopic      string        `json:"dlq_topic"`
	TraceID       string        `json:"trace_id"`
}

type OfferingPublishedPayload struct {
	OfferingID    string  `json:"offering_id"`
	FarmerID      string  `json:"farmer_id"`
	AssetType     string  `json:"asset_type"`
	Region        string  `json:"region"`
	PricePerShare float64 `json:"price_per_share"`
	TotalShares   int     `json:"total_shares"`
	PublishedAt   string  `json:"published_at"`
}

type AvailabilityChangedPayload struct {
	OfferingID      string `json:"offering_id"`
	TotalShares     int    `json:"total_shares"`
	AvailableShares int    `json:"available_shares"`
	ChangedAt       string `json:"changed_at"`
}

type OfferingRetiredPayload struct {
	OfferingID string `json:"offering_id"`
	RetiredAt  string `json:"retired_at"`
}

type RequestEventPayload struct {
	RequestID       string  `json:"request_id"`
	OfferingID      string  `json:"offering_id"`
	InvestorID      string  `json:"investor_id"`
	SharesRequested int     `json:"shares_requested"`
	Amount          float64 `json:"amount"`
	Status          string  `json:"status"`
	Actor           string  `json:"actor,omitempty"`
	Reason          string  `json:"reason,omitempty"`
	OccurredAt      string  `json:"occurred_at"`
}

type DeletionEventPayload struct {
	DeletionID string `json:"deletion_id"`
	OfferingID string `json:"offering_id"`
	FarmerID   string `json:"farmer_id,omitempty"`
	InvestorID string `json:"investor_id,omitempty"`
	Total      int    `json:"total_confirmations,omitempty"`
	Confirmed  int    `json:"confirmed,omitempty"`
	OccurredAt string `json:"occurred_at"`
}
