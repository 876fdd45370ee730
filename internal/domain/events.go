package domain

const (
	CanonicalEventClassDomain        = "domain"
	CanonicalEventClassAnalyticsOnly = "analytics_only"
)

const (
	EventOfferingPublished           = "offering.published"
	EventOfferingAvailabilityChanged = "offering.availability_changed"
	EventOfferingRetired             = "offering.retired"

	EventRequestCreated        = "investment.request_created"
	EventRequestApproved       = "investment.request_approved"
	EventRequestRejected       = "investment.request_rejected"
	EventRequestActivated      = "investment.request_activated"
	EventRequestCancelled      = "investment.request_cancelled"
	EventRequestForceCancelled = "investment.request_force_cancelled"

	EventDeletionOpened    = "deletion.opened"
	EventDeletionConfirmed = "deletion.confirmed"
	EventDeletionCompleted = "deletion.completed"
	EventDeletionAborted   = "deletion.aborted"
)

func IsCanonicalEmittedEvent(eventType string) bool {
	switch eventType {
	case EventOfferingPublished, EventOfferingAvailabilityChanged, EventOfferingRetired,
		EventRequestCreated, EventRequestApproved, EventRequestRejected,
		EventRequestActivated, EventRequestCancelled, EventRequestForceCancelled,
		EventDeletionOpened, EventDeletionConfirmed, EventDeletionCompleted, EventDeletionAborted:
		return true
	default:
		return false
	}
}

// CanonicalEventClass routes events to the domain broker or the analytics
// sink. Availability ticks and non-final confirmations are analytics-only;
// everything that moves money or retires an offering is a domain event.
func CanonicalEventClass(eventType string) string {
	switch eventType {
	case EventOfferingAvailabilityChanged, EventDeletionConfirmed:
		return CanonicalEventClassAnalyticsOnly
	default:
		if IsCanonicalEmittedEvent(eventType) {
			return CanonicalEventClassDomain
		}
		return ""
	}
}

func CanonicalPartitionKeyPath(eventType string) string {
	switch {
	case !IsCanonicalEmittedEvent(eventType):
		return ""
	case eventType == EventRequestCreated, eventType == EventRequestApproved,
		eventType == EventRequestRejected, eventType == EventRequestActivated,
		eventType == EventRequestCancelled, eventType == EventRequestForceCancelled:
		return "data.request_id"
	default:
		return "data.offering_id"
	}
}
