package application

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/domain"
)

// CreateRequest reserves shares and opens a pending investment request. The
// ledger reserve is the serialization point: two investors racing for the
// last shares are decided by the counter's conditional update, not by any
// request-level locking.
func (s *Service) CreateRequest(ctx context.Context, actor Actor, input CreateRequestInput) (domain.InvestmentRequest, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.InvestmentRequest{}, domain.ErrUnauthorized
	}
	if strings.TrimSpace(actor.IdempotencyKey) == "" {
		return domain.InvestmentRequest{}, domain.ErrIdempotencyRequired
	}
	input.OfferingID = strings.TrimSpace(input.OfferingID)
	if input.OfferingID == "" || input.Shares < 1 {
		return domain.InvestmentRequest{}, domain.ErrInvalidInput
	}
	requestHash := hashJSON(input)
	if cached, ok, err := getIdempotent[domain.InvestmentRequest](ctx, s, actor.IdempotencyKey, requestHash); err != nil {
		return domain.InvestmentRequest{}, err
	} else if ok {
		return cached, nil
	}
	if err := s.reserveIdempotency(ctx, actor.IdempotencyKey, requestHash); err != nil {
		return domain.InvestmentRequest{}, err
	}

	offering, err := s.offerings.GetByID(ctx, input.OfferingID)
	if err != nil {
		return domain.InvestmentRequest{}, err
	}
	if offering.Status != domain.OfferingStatusPublished {
		return domain.InvestmentRequest{}, domain.ErrOfferingUnavailable
	}

	reservation, err := s.ledger.Reserve(ctx, input.OfferingID, input.Shares)
	if err != nil {
		return domain.InvestmentRequest{}, err
	}

	now := s.nowFn()
	request := domain.InvestmentRequest{
		RequestID:        uuid.NewString(),
		OfferingID:       input.OfferingID,
		InvestorID:       actor.SubjectID,
		SharesRequested:  input.Shares,
		Amount:           float64(input.Shares) * offering.PricePerShare,
		Status:           domain.RequestStatusPending,
		ReservationToken: reservation.Token,
		CreatedAt:        now,
		StatusChangedAt:  now,
	}
	if err := s.requests.Create(ctx, request); err != nil {
		// Compensate so the failed insert leaves no shares stranded.
		if releaseErr := s.ledger.Release(ctx, reservation); releaseErr != nil {
			s.logger.ErrorContext(ctx, "reservation release after failed insert",
				"module", "application",
				"layer", "service",
				"operation", "create_request",
				"outcome", "failure",
				"offering_id", input.OfferingID,
				"error", releaseErr,
			)
		}
		return domain.InvestmentRequest{}, err
	}
	// A deletion round may have opened between the status check and the
	// insert; its stakeholder snapshot would miss this request. Withdraw it
	// instead of holding a stake that carries no vote.
	if current, checkErr := s.offerings.GetByID(ctx, input.OfferingID); checkErr == nil && current.Status != domain.OfferingStatusPublished {
		change := domain.StatusChange{
			To:     domain.RequestStatusCancelled,
			At:     s.nowFn(),
			Actor:  domain.CancelActorConsensus,
			Reason: "offering left published before the request landed",
		}
		if casErr := s.requests.UpdateStatus(ctx, request.RequestID, []string{domain.RequestStatusPending}, change); casErr == nil {
			if releaseErr := s.ledger.Release(ctx, reservation); releaseErr != nil {
				s.logger.ErrorContext(ctx, "reservation release after withdrawn insert",
					"module", "application",
					"layer", "service",
					"operation", "create_request",
					"outcome", "failure",
					"offering_id", input.OfferingID,
					"error", releaseErr,
				)
			}
		}
		return domain.InvestmentRequest{}, domain.ErrOfferingUnavailable
	}
	if err := s.enqueueRequestEvent(ctx, domain.EventRequestCreated, request, "", "", actor.RequestID, now); err != nil {
		return domain.InvestmentRequest{}, err
	}
	_ = s.completeIdempotencyJSON(ctx, actor.IdempotencyKey, 200, request)
	return request, nil
}

// Approve moves a pending request to approved. Shares stay reserved.
func (s *Service) Approve(ctx context.Context, actor Actor, requestID string) (domain.InvestmentRequest, error) {
	request, _, err := s.loadRequestForFarmer(ctx, actor, requestID)
	if err != nil {
		return domain.InvestmentRequest{}, err
	}
	now := s.nowFn()
	change := domain.StatusChange{To: domain.RequestStatusApproved, At: now}
	if err := s.requests.UpdateStatus(ctx, request.RequestID, []string{domain.RequestStatusPending}, change); err != nil {
		return domain.InvestmentRequest{}, err
	}
	request.Status = domain.RequestStatusApproved
	request.StatusChangedAt = now
	if err := s.enqueueRequestEvent(ctx, domain.EventRequestApproved, request, "", "", actor.RequestID, now); err != nil {
		return domain.InvestmentRequest{}, err
	}
	return request, nil
}

// Reject moves a pending request to rejected and returns its shares to the
// pool.
func (s *Service) Reject(ctx context.Context, actor Actor, requestID string) (domain.InvestmentRequest, error) {
	request, _, err := s.loadRequestForFarmer(ctx, actor, requestID)
	if err != nil {
		return domain.InvestmentRequest{}, err
	}
	now := s.nowFn()
	change := domain.StatusChange{To: domain.RequestStatusRejected, At: now}
	if err := s.requests.UpdateStatus(ctx, request.RequestID, []string{domain.RequestStatusPending}, change); err != nil {
		return domain.InvestmentRequest{}, err
	}
	if err := s.ledger.Release(ctx, reservationOf(request)); err != nil {
		return domain.InvestmentRequest{}, err
	}
	request.Status = domain.RequestStatusRejected
	request.StatusChangedAt = now
	if err := s.enqueueRequestEvent(ctx, domain.EventRequestRejected, request, "", "", actor.RequestID, now); err != nil {
		return domain.InvestmentRequest{}, err
	}
	return request, nil
}

// MarkPaid confirms funds with the payment gateway, commits the reservation
// into permanent allocation, and activates the request. The approved -> paid
// compare-and-swap runs before the gateway call: once money is confirmed the
// request is already out of reach of a concurrent investor cancel, and a
// duplicate call can never double-commit the ledger.
func (s *Service) MarkPaid(ctx context.Context, actor Actor, requestID string) (domain.InvestmentRequest, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.InvestmentRequest{}, domain.ErrUnauthorized
	}
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return domain.InvestmentRequest{}, domain.ErrInvalidInput
	}
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return domain.InvestmentRequest{}, err
	}
	if request.InvestorID != actor.SubjectID {
		return domain.InvestmentRequest{}, domain.ErrForbidden
	}
	if request.Status != domain.RequestStatusApproved {
		return domain.InvestmentRequest{}, domain.ErrInvalidTransition
	}
	now := s.nowFn()
	if err := s.requests.UpdateStatus(ctx, request.RequestID,
		[]string{domain.RequestStatusApproved},
		domain.StatusChange{To: domain.RequestStatusPaid, At: now},
	); err != nil {
		return domain.InvestmentRequest{}, err
	}
	if s.payments != nil {
		if err := s.payments.ConfirmPayment(ctx, request.RequestID, request.Amount); err != nil {
			// No money moved; hand the request back to the investor.
			if revertErr := s.requests.UpdateStatus(ctx, request.RequestID,
				[]string{domain.RequestStatusPaid},
				domain.StatusChange{To: domain.RequestStatusApproved, At: s.nowFn()},
			); revertErr != nil {
				s.logger.ErrorContext(ctx, "revert to approved after failed payment",
					"module", "application",
					"layer", "service",
					"operation", "mark_paid",
					"outcome", "failure",
					"request_id", request.RequestID,
					"error", revertErr,
				)
			}
			return domain.InvestmentRequest{}, err
		}
	}
	if err := s.ledger.Commit(ctx, reservationOf(request)); err != nil {
		return domain.InvestmentRequest{}, err
	}
	if err := s.requests.UpdateStatus(ctx, request.RequestID,
		[]string{domain.RequestStatusPaid},
		domain.StatusChange{To: domain.RequestStatusActive, At: now},
	); err != nil {
		return domain.InvestmentRequest{}, err
	}
	request.Status = domain.RequestStatusActive
	request.StatusChangedAt = now
	if err := s.enqueueRequestEvent(ctx, domain.EventRequestActivated, request, "", "", actor.RequestID, now); err != nil {
		return domain.InvestmentRequest{}, err
	}
	return request, nil
}

// Cancel lets an investor withdraw their own pending or approved request.
func (s *Service) Cancel(ctx context.Context, actor Actor, requestID string) (domain.InvestmentRequest, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.InvestmentRequest{}, domain.ErrUnauthorized
	}
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return domain.InvestmentRequest{}, domain.ErrInvalidInput
	}
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return domain.InvestmentRequest{}, err
	}
	if request.InvestorID != actor.SubjectID {
		return domain.InvestmentRequest{}, domain.ErrForbidden
	}
	now := s.nowFn()
	change := domain.StatusChange{To: domain.RequestStatusCancelled, At: now, Actor: domain.CancelActorInvestor}
	if err := s.requests.UpdateStatus(ctx, request.RequestID,
		[]string{domain.RequestStatusPending, domain.RequestStatusApproved}, change,
	); err != nil {
		return domain.InvestmentRequest{}, err
	}
	if err := s.ledger.Release(ctx, reservationOf(request)); err != nil {
		return domain.InvestmentRequest{}, err
	}
	request.Status = domain.RequestStatusCancelled
	request.StatusChangedAt = now
	request.CancelActor = domain.CancelActorInvestor
	if err := s.enqueueRequestEvent(ctx, domain.EventRequestCancelled, request, domain.CancelActorInvestor, "", actor.RequestID, now); err != nil {
		return domain.InvestmentRequest{}, err
	}
	return request, nil
}

// ForceCancel is the administrative escape hatch. The credential is verified
// before any other precondition; active requests are flagged for manual
// reconciliation when their allocation is clawed back.
func (s *Service) ForceCancel(ctx context.Context, actor Actor, input ForceCancelInput) (domain.InvestmentRequest, error) {
	if s.admin == nil {
		return domain.InvestmentRequest{}, domain.ErrForbidden
	}
	if err := s.admin.Verify(input.AdminCode); err != nil {
		return domain.InvestmentRequest{}, domain.ErrForbidden
	}
	input.RequestID = strings.TrimSpace(input.RequestID)
	if input.RequestID == "" {
		return domain.InvestmentRequest{}, domain.ErrInvalidInput
	}
	request, err := s.requests.GetByID(ctx, input.RequestID)
	if err != nil {
		return domain.InvestmentRequest{}, err
	}
	if domain.RequestIsTerminal(request.Status) {
		return domain.InvestmentRequest{}, domain.ErrInvalidTransition
	}
	priorStatus := request.Status
	wasAllocated := domain.RequestHoldsAllocation(priorStatus)

	now := s.nowFn()
	change := domain.StatusChange{
		To:                  domain.RequestStatusCancelled,
		At:                  now,
		Actor:               domain.CancelActorAdmin,
		Reason:              strings.TrimSpace(input.Reason),
		NeedsReconciliation: priorStatus == domain.RequestStatusActive,
	}
	// Pin the CAS to the status just read so a concurrent transition forces
	// an explicit retry instead of releasing the wrong ledger bucket.
	if err := s.requests.UpdateStatus(ctx, request.RequestID, []string{priorStatus}, change); err != nil {
		return domain.InvestmentRequest{}, err
	}
	if wasAllocated {
		if err := s.ledger.ReleaseCommitted(ctx, reservationOf(request)); err != nil {
			return domain.InvestmentRequest{}, err
		}
	} else {
		if err := s.ledger.Release(ctx, reservationOf(request)); err != nil {
			return domain.InvestmentRequest{}, err
		}
	}
	request.Status = domain.RequestStatusCancelled
	request.StatusChangedAt = now
	request.CancelActor = domain.CancelActorAdmin
	request.CancelReason = change.Reason
	request.NeedsReconciliation = change.NeedsReconciliation
	if err := s.enqueueRequestEvent(ctx, domain.EventRequestForceCancelled, request, domain.CancelActorAdmin, change.Reason, actor.RequestID, now); err != nil {
		return domain.InvestmentRequest{}, err
	}
	return request, nil
}

func (s *Service) GetRequest(ctx context.Context, actor Actor, requestID string) (domain.InvestmentRequest, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.InvestmentRequest{}, domain.ErrUnauthorized
	}
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return domain.InvestmentRequest{}, domain.ErrInvalidInput
	}
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return domain.InvestmentRequest{}, err
	}
	if request.InvestorID == actor.SubjectID {
		return request, nil
	}
	offering, err := s.offerings.GetByID(ctx, request.OfferingID)
	if err != nil {
		return domain.InvestmentRequest{}, err
	}
	if offering.FarmerID != actor.SubjectID {
		return domain.InvestmentRequest{}, domain.ErrForbidden
	}
	return request, nil
}

func (s *Service) ListRequestsByInvestor(ctx context.Context, actor Actor) ([]domain.InvestmentRequest, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return nil, domain.ErrUnauthorized
	}
	return s.requests.ListByInvestor(ctx, actor.SubjectID)
}

func (s *Service) ListRequestsByOffering(ctx context.Context, actor Actor, offeringID string) ([]domain.InvestmentRequest, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return nil, domain.ErrUnauthorized
	}
	offeringID = strings.TrimSpace(offeringID)
	if offeringID == "" {
		return nil, domain.ErrInvalidInput
	}
	offering, err := s.offerings.GetByID(ctx, offeringID)
	if err != nil {
		return nil, err
	}
	if offering.FarmerID != actor.SubjectID {
		return nil, domain.ErrForbidden
	}
	return s.requests.ListByOffering(ctx, offeringID)
}

func (s *Service) loadRequestForFarmer(ctx context.Context, actor Actor, requestID string) (domain.InvestmentRequest, domain.Offering, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.InvestmentRequest{}, domain.Offering{}, domain.ErrUnauthorized
	}
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return domain.InvestmentRequest{}, domain.Offering{}, domain.ErrInvalidInput
	}
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return domain.InvestmentRequest{}, domain.Offering{}, err
	}
	offering, err := s.offerings.GetByID(ctx, request.OfferingID)
	if err != nil {
		return domain.InvestmentRequest{}, domain.Offering{}, err
	}
	if offering.FarmerID != actor.SubjectID {
		return domain.InvestmentRequest{}, domain.Offering{}, domain.ErrForbidden
	}
	return request, offering, nil
}

func reservationOf(request domain.InvestmentRequest) domain.Reservation {
	return domain.Reservation{
		Token:      request.ReservationToken,
		OfferingID: request.OfferingID,
		Shares:     request.SharesRequested,
	}
}
