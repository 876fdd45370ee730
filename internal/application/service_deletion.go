package application

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/domain"
)

// DeletionStatusView is the poll-facing shape of a consensus round. An open
// round with outstanding confirmations is a normal state, not an error.
type DeletionStatusView struct {
	Deletion      domain.DeletionRequest
	Confirmations []domain.DeletionConfirmation
	Total         int
	Confirmed     int
}

func (v DeletionStatusView) Outstanding() int { return v.Total - v.Confirmed }

// OpenDeletionRequest starts a consensus round to retire an offering. The
// offering flips to pending_deletion first, so new requests are refused and
// the catalog stops listing it, and only then is the investor set
// snapshotted; the set never grows afterwards. With zero stakeholders the
// offering retires immediately.
func (s *Service) OpenDeletionRequest(ctx context.Context, actor Actor, input OpenDeletionInput) (DeletionStatusView, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return DeletionStatusView{}, domain.ErrUnauthorized
	}
	if strings.TrimSpace(actor.IdempotencyKey) == "" {
		return DeletionStatusView{}, domain.ErrIdempotencyRequired
	}
	input.OfferingID = strings.TrimSpace(input.OfferingID)
	if input.OfferingID == "" {
		return DeletionStatusView{}, domain.ErrInvalidInput
	}
	requestHash := hashJSON(input)
	if cached, ok, err := getIdempotent[DeletionStatusView](ctx, s, actor.IdempotencyKey, requestHash); err != nil {
		return DeletionStatusView{}, err
	} else if ok {
		return cached, nil
	}
	if err := s.reserveIdempotency(ctx, actor.IdempotencyKey, requestHash); err != nil {
		return DeletionStatusView{}, err
	}

	offering, err := s.offerings.GetByID(ctx, input.OfferingID)
	if err != nil {
		return DeletionStatusView{}, err
	}
	if offering.FarmerID != actor.SubjectID {
		return DeletionStatusView{}, domain.ErrForbidden
	}
	switch offering.Status {
	case domain.OfferingStatusPendingDeletion:
		return DeletionStatusView{}, domain.ErrDeletionOpen
	case domain.OfferingStatusRetired:
		return DeletionStatusView{}, domain.ErrInvalidTransition
	}

	now := s.nowFn()
	// Flip before snapshotting so the stakeholder set is closed: any request
	// arriving after this point is refused and can never hold a stake without
	// a vote in the round.
	if err := s.offerings.UpdateStatus(ctx, input.OfferingID, domain.OfferingStatusPublished, domain.OfferingStatusPendingDeletion, now); err != nil {
		if err == domain.ErrInvalidTransition {
			if current, getErr := s.offerings.GetByID(ctx, input.OfferingID); getErr == nil && current.Status == domain.OfferingStatusPendingDeletion {
				return DeletionStatusView{}, domain.ErrDeletionOpen
			}
		}
		return DeletionStatusView{}, err
	}
	requests, err := s.requests.ListByOffering(ctx, input.OfferingID)
	if err != nil {
		s.reopenAfterFailedDeletionOpen(ctx, input.OfferingID)
		return DeletionStatusView{}, err
	}
	stakeholders := distinctStakeholders(requests)

	deletion := domain.DeletionRequest{
		DeletionID: uuid.NewString(),
		OfferingID: input.OfferingID,
		FarmerID:   actor.SubjectID,
		Reason:     strings.TrimSpace(input.Reason),
		Outcome:    domain.DeletionOutcomeOpen,
		CreatedAt:  now,
	}

	if len(stakeholders) == 0 {
		// No stakeholders to protect: retire without a consensus round,
		// keeping a completed record for audit.
		closedAt := now
		deletion.Outcome = domain.DeletionOutcomeCompleted
		deletion.ClosedAt = &closedAt
		if err := s.deletions.Create(ctx, deletion, nil); err != nil {
			s.reopenAfterFailedDeletionOpen(ctx, input.OfferingID)
			return DeletionStatusView{}, err
		}
		if err := s.offerings.UpdateStatus(ctx, input.OfferingID, domain.OfferingStatusPendingDeletion, domain.OfferingStatusRetired, now); err != nil {
			return DeletionStatusView{}, err
		}
		s.unlistOffering(ctx, input.OfferingID)
		if err := s.enqueueDeletionEvent(ctx, domain.EventDeletionCompleted, deletion, "", 0, 0, actor.RequestID, now); err != nil {
			return DeletionStatusView{}, err
		}
		if err := s.enqueueOfferingRetired(ctx, input.OfferingID, actor.RequestID, now); err != nil {
			return DeletionStatusView{}, err
		}
		view := DeletionStatusView{Deletion: deletion}
		_ = s.completeIdempotencyJSON(ctx, actor.IdempotencyKey, 200, view)
		return view, nil
	}

	confirmations := make([]domain.DeletionConfirmation, 0, len(stakeholders))
	for _, investorID := range stakeholders {
		confirmations = append(confirmations, domain.DeletionConfirmation{
			ConfirmationID: uuid.NewString(),
			DeletionID:     deletion.DeletionID,
			InvestorID:     investorID,
			CreatedAt:      now,
		})
	}
	if err := s.deletions.Create(ctx, deletion, confirmations); err != nil {
		if err != domain.ErrDeletionOpen {
			s.reopenAfterFailedDeletionOpen(ctx, input.OfferingID)
		}
		return DeletionStatusView{}, err
	}
	s.unlistOffering(ctx, input.OfferingID)
	if err := s.enqueueDeletionEvent(ctx, domain.EventDeletionOpened, deletion, "", len(confirmations), 0, actor.RequestID, now); err != nil {
		return DeletionStatusView{}, err
	}

	view := DeletionStatusView{Deletion: deletion, Confirmations: confirmations, Total: len(confirmations)}
	_ = s.completeIdempotencyJSON(ctx, actor.IdempotencyKey, 200, view)
	return view, nil
}

// reopenAfterFailedDeletionOpen undoes the pending_deletion flip when the
// round itself could not be persisted.
func (s *Service) reopenAfterFailedDeletionOpen(ctx context.Context, offeringID string) {
	if err := s.offerings.UpdateStatus(ctx, offeringID, domain.OfferingStatusPendingDeletion, domain.OfferingStatusPublished, s.nowFn()); err != nil {
		s.logger.ErrorContext(ctx, "reopen offering after failed deletion open",
			"module", "application",
			"layer", "service",
			"operation", "open_deletion",
			"outcome", "failure",
			"offering_id", offeringID,
			"error", err,
		)
	}
}

// ConfirmDeletion records one investor's consent. Confirming twice is a
// no-op; the confirmation that makes the round unanimous finalizes it in the
// same atomic step.
func (s *Service) ConfirmDeletion(ctx context.Context, actor Actor, deletionID string) (domain.ConsensusState, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.ConsensusState{}, domain.ErrUnauthorized
	}
	deletionID = strings.TrimSpace(deletionID)
	if deletionID == "" {
		return domain.ConsensusState{}, domain.ErrInvalidInput
	}
	now := s.nowFn()
	state, err := s.deletions.Confirm(ctx, deletionID, actor.SubjectID, now)
	if err != nil {
		return domain.ConsensusState{}, err
	}
	if state.CompletedRound {
		if err := s.finalizeDeletion(ctx, actor, state); err != nil {
			return domain.ConsensusState{}, err
		}
		return state, nil
	}
	switch state.Outcome {
	case domain.DeletionOutcomeOpen:
		deletion := domain.DeletionRequest{DeletionID: state.DeletionID, OfferingID: state.OfferingID}
		if err := s.enqueueDeletionConfirmed(ctx, deletion, actor.SubjectID, state.Total, state.Confirmed, actor.RequestID, now); err != nil {
			return domain.ConsensusState{}, err
		}
	case domain.DeletionOutcomeCompleted:
		// A finalize cut short by a fault leaves the round completed but the
		// offering still pending. Retirement is idempotent, so retry it here.
		offering, err := s.offerings.GetByID(ctx, state.OfferingID)
		if err != nil {
			return domain.ConsensusState{}, err
		}
		if offering.Status == domain.OfferingStatusPendingDeletion {
			if err := s.finalizeDeletion(ctx, actor, state); err != nil {
				return domain.ConsensusState{}, err
			}
		}
	}
	return state, nil
}

// finalizeDeletion cancels every remaining stake, releases reservations,
// hands paid/active requests to the payment collaborator for refunds, and
// retires the offering. Normally it runs once, in the caller that won the
// open -> completed compare-and-swap; every step is idempotent so a later
// confirmation can rerun it after a partial failure.
func (s *Service) finalizeDeletion(ctx context.Context, actor Actor, state domain.ConsensusState) error {
	now := s.nowFn()
	requests, err := s.requests.ListByOffering(ctx, state.OfferingID)
	if err != nil {
		return err
	}
	for _, request := range requests {
		if !domain.RequestIsStake(request.Status) {
			continue
		}
		priorStatus := request.Status
		change := domain.StatusChange{
			To:     domain.RequestStatusCancelled,
			At:     now,
			Actor:  domain.CancelActorConsensus,
			Reason: "offering retired by deletion consensus",
		}
		if err := s.requests.UpdateStatus(ctx, request.RequestID, []string{priorStatus}, change); err != nil {
			if err == domain.ErrInvalidTransition {
				// Raced with another transition; re-read and let the loop's
				// snapshot stay conservative. The request is either terminal
				// now or was force-cancelled.
				continue
			}
			return err
		}
		if domain.RequestHoldsReservation(priorStatus) {
			if err := s.ledger.Release(ctx, reservationOf(request)); err != nil {
				return err
			}
		}
		if domain.RequestHoldsAllocation(priorStatus) && s.payments != nil {
			// Refund processing is delegated; failures are logged, never
			// blocking the retirement.
			if err := s.payments.RequestRefund(ctx, request.RequestID, request.Amount); err != nil {
				s.logger.WarnContext(ctx, "refund request failed",
					"module", "application",
					"layer", "service",
					"operation", "finalize_deletion",
					"outcome", "failure",
					"request_id", request.RequestID,
					"error", err,
				)
			}
		}
		request.Status = domain.RequestStatusCancelled
		request.StatusChangedAt = now
		if err := s.enqueueRequestEvent(ctx, domain.EventRequestCancelled, request, domain.CancelActorConsensus, change.Reason, actor.RequestID, now); err != nil {
			return err
		}
	}

	if err := s.offerings.UpdateStatus(ctx, state.OfferingID, domain.OfferingStatusPendingDeletion, domain.OfferingStatusRetired, now); err != nil {
		if err == domain.ErrInvalidTransition {
			// A concurrent finalize already retired it and owns the events.
			return nil
		}
		return err
	}
	s.unlistOffering(ctx, state.OfferingID)

	deletion := domain.DeletionRequest{DeletionID: state.DeletionID, OfferingID: state.OfferingID}
	if err := s.enqueueDeletionEvent(ctx, domain.EventDeletionCompleted, deletion, "", state.Total, state.Confirmed, actor.RequestID, now); err != nil {
		return err
	}
	return s.enqueueOfferingRetired(ctx, state.OfferingID, actor.RequestID, now)
}

// AbortDeletion withdraws an open round: confirmation rows are discarded and
// the offering returns to normal published behavior, including its catalog
// listing.
func (s *Service) AbortDeletion(ctx context.Context, actor Actor, deletionID string) (domain.DeletionRequest, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.DeletionRequest{}, domain.ErrUnauthorized
	}
	deletionID = strings.TrimSpace(deletionID)
	if deletionID == "" {
		return domain.DeletionRequest{}, domain.ErrInvalidInput
	}
	deletion, err := s.deletions.GetByID(ctx, deletionID)
	if err != nil {
		return domain.DeletionRequest{}, err
	}
	offering, err := s.offerings.GetByID(ctx, deletion.OfferingID)
	if err != nil {
		return domain.DeletionRequest{}, err
	}
	if offering.FarmerID != actor.SubjectID {
		return domain.DeletionRequest{}, domain.ErrForbidden
	}
	now := s.nowFn()
	if err := s.deletions.Abort(ctx, deletionID, now); err != nil {
		return domain.DeletionRequest{}, err
	}
	if err := s.offerings.UpdateStatus(ctx, deletion.OfferingID, domain.OfferingStatusPendingDeletion, domain.OfferingStatusPublished, now); err != nil {
		return domain.DeletionRequest{}, err
	}
	offering.Status = domain.OfferingStatusPublished
	if counter, counterErr := s.ledger.Counter(ctx, deletion.OfferingID); counterErr == nil {
		s.projectListing(ctx, offering, counter.AvailableShares)
	}
	closedAt := now
	deletion.Outcome = domain.DeletionOutcomeAborted
	deletion.ClosedAt = &closedAt
	if err := s.enqueueDeletionEvent(ctx, domain.EventDeletionAborted, deletion, "", 0, 0, actor.RequestID, now); err != nil {
		return domain.DeletionRequest{}, err
	}
	return deletion, nil
}

// GetDeletionStatus returns the round the offering currently owns, or its
// most recent closed one when looked up by deletion id.
func (s *Service) GetDeletionStatus(ctx context.Context, actor Actor, offeringID string) (DeletionStatusView, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return DeletionStatusView{}, domain.ErrUnauthorized
	}
	offeringID = strings.TrimSpace(offeringID)
	if offeringID == "" {
		return DeletionStatusView{}, domain.ErrInvalidInput
	}
	deletion, err := s.deletions.GetOpenByOffering(ctx, offeringID)
	if err != nil {
		return DeletionStatusView{}, err
	}
	confirmations, err := s.deletions.ListConfirmations(ctx, deletion.DeletionID)
	if err != nil {
		return DeletionStatusView{}, err
	}
	view := DeletionStatusView{Deletion: deletion, Confirmations: confirmations, Total: len(confirmations)}
	for _, c := range confirmations {
		if c.Confirmed {
			view.Confirmed++
		}
	}
	return view, nil
}

// distinctStakeholders returns the ordered set of investors holding a
// qualifying request.
func distinctStakeholders(requests []domain.InvestmentRequest) []string {
	seen := map[string]bool{}
	out := make([]string, 0)
	for _, request := range requests {
		if !domain.RequestIsStake(request.Status) {
			continue
		}
		if seen[request.InvestorID] {
			continue
		}
		seen[request.InvestorID] = true
		out = append(out, request.InvestorID)
	}
	return out
}
