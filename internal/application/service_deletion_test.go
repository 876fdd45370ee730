package application_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/application"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/domain"
)

// Walks the unanimous-consent flow end to end: one allocated stake, one
// reserved stake, both investors must consent, and the final confirmation
// retires the offering, cancels the stakes, and returns every share.
func TestDeletionConsensusUnanimousRetire(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	offering := f.publishOffering(t, "farmer-1", 10, 100)

	reqX, err := f.svc.CreateRequest(ctx, actor("investor-x"), application.CreateRequestInput{OfferingID: offering.OfferingID, Shares: 4})
	if err != nil {
		t.Fatalf("request X: %v", err)
	}
	if _, err := f.svc.Approve(ctx, actor("farmer-1"), reqX.RequestID); err != nil {
		t.Fatalf("approve X: %v", err)
	}
	if _, err := f.svc.MarkPaid(ctx, actor("investor-x"), reqX.RequestID); err != nil {
		t.Fatalf("pay X: %v", err)
	}
	reqY, err := f.svc.CreateRequest(ctx, actor("investor-y"), application.CreateRequestInput{OfferingID: offering.OfferingID, Shares: 3})
	if err != nil {
		t.Fatalf("request Y: %v", err)
	}

	view, err := f.svc.OpenDeletionRequest(ctx, actor("farmer-1"), application.OpenDeletionInput{
		OfferingID: offering.OfferingID,
		Reason:     "herd sold",
	})
	if err != nil {
		t.Fatalf("open deletion: %v", err)
	}
	if view.Total != 2 || view.Confirmed != 0 {
		t.Fatalf("expected 2 outstanding votes, got %+v", view)
	}
	deletionID := view.Deletion.DeletionID

	reloaded, err := f.svc.GetOffering(ctx, actor("farmer-1"), offering.OfferingID)
	if err != nil {
		t.Fatalf("reload offering: %v", err)
	}
	if reloaded.Offering.Status != domain.OfferingStatusPendingDeletion {
		t.Fatalf("expected pending_deletion, got %s", reloaded.Offering.Status)
	}
	listings, err := f.svc.BrowseCatalog(ctx, actor("investor-z"), domain.CatalogFilter{})
	if err != nil {
		t.Fatalf("browse: %v", err)
	}
	if len(listings) != 0 {
		t.Fatalf("offering must leave the catalog during the round, got %+v", listings)
	}

	state, err := f.svc.ConfirmDeletion(ctx, actor("investor-x"), deletionID)
	if err != nil {
		t.Fatalf("confirm X: %v", err)
	}
	if state.Confirmed != 1 || state.CompletedRound {
		t.Fatalf("first confirmation must not finalize: %+v", state)
	}

	// Confirming twice is a no-op.
	state, err = f.svc.ConfirmDeletion(ctx, actor("investor-x"), deletionID)
	if err != nil {
		t.Fatalf("repeat confirm X: %v", err)
	}
	if state.Confirmed != 1 || state.CompletedRound {
		t.Fatalf("repeat confirmation must not advance the count: %+v", state)
	}

	state, err = f.svc.ConfirmDeletion(ctx, actor("investor-y"), deletionID)
	if err != nil {
		t.Fatalf("confirm Y: %v", err)
	}
	if !state.CompletedRound {
		t.Fatalf("unanimous confirmation must finalize the round: %+v", state)
	}

	reloaded, err = f.svc.GetOffering(ctx, actor("farmer-1"), offering.OfferingID)
	if err != nil {
		t.Fatalf("reload offering: %v", err)
	}
	if reloaded.Offering.Status != domain.OfferingStatusRetired {
		t.Fatalf("expected retired, got %s", reloaded.Offering.Status)
	}
	for _, id := range []struct{ investor, request string }{
		{"investor-x", reqX.RequestID},
		{"investor-y", reqY.RequestID},
	} {
		request, err := f.svc.GetRequest(ctx, actor(id.investor), id.request)
		if err != nil {
			t.Fatalf("reload %s: %v", id.request, err)
		}
		if request.Status != domain.RequestStatusCancelled || request.CancelActor != domain.CancelActorConsensus {
			t.Fatalf("stake must be cancelled by consensus: %+v", request)
		}
	}
	counter := f.counter(t, offering.OfferingID)
	if counter.AvailableShares != 10 || counter.ReservedShares != 0 || counter.AllocatedShares != 0 {
		t.Fatalf("all shares must return to the pool: %+v", counter)
	}
	// The allocated stake gets a refund request; the reserved one does not.
	if len(f.payments.Refunded) != 1 || f.payments.Refunded[0] != reqX.RequestID {
		t.Fatalf("expected a refund for the paid stake only, got %+v", f.payments.Refunded)
	}
}

func TestDeletionAuthorization(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	offering := f.publishOffering(t, "farmer-1", 10, 100)
	if _, err := f.svc.CreateRequest(ctx, actor("investor-1"), application.CreateRequestInput{OfferingID: offering.OfferingID, Shares: 2}); err != nil {
		t.Fatalf("create request: %v", err)
	}

	if _, err := f.svc.OpenDeletionRequest(ctx, actor("farmer-2"), application.OpenDeletionInput{OfferingID: offering.OfferingID}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("only the owner may open a round, got %v", err)
	}

	view, err := f.svc.OpenDeletionRequest(ctx, actor("farmer-1"), application.OpenDeletionInput{OfferingID: offering.OfferingID})
	if err != nil {
		t.Fatalf("open deletion: %v", err)
	}
	// A second round while one is open is refused.
	if _, err := f.svc.OpenDeletionRequest(ctx, actor("farmer-1"), application.OpenDeletionInput{OfferingID: offering.OfferingID}); !errors.Is(err, domain.ErrDeletionOpen) {
		t.Fatalf("expected ErrDeletionOpen, got %v", err)
	}
	// Non-stakeholders hold no vote.
	if _, err := f.svc.ConfirmDeletion(ctx, actor("investor-2"), view.Deletion.DeletionID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for a non-stakeholder, got %v", err)
	}
	if _, err := f.svc.AbortDeletion(ctx, actor("farmer-2"), view.Deletion.DeletionID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("only the owner may abort, got %v", err)
	}
}

func TestDeletionWithoutStakeholdersRetiresImmediately(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	offering := f.publishOffering(t, "farmer-1", 10, 100)

	// A rejected request holds no stake and no vote.
	request, err := f.svc.CreateRequest(ctx, actor("investor-1"), application.CreateRequestInput{OfferingID: offering.OfferingID, Shares: 2})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if _, err := f.svc.Reject(ctx, actor("farmer-1"), request.RequestID); err != nil {
		t.Fatalf("reject: %v", err)
	}

	view, err := f.svc.OpenDeletionRequest(ctx, actor("farmer-1"), application.OpenDeletionInput{OfferingID: offering.OfferingID})
	if err != nil {
		t.Fatalf("open deletion: %v", err)
	}
	if view.Deletion.Outcome != domain.DeletionOutcomeCompleted || view.Total != 0 {
		t.Fatalf("expected an immediately completed round, got %+v", view)
	}
	reloaded, err := f.svc.GetOffering(ctx, actor("farmer-1"), offering.OfferingID)
	if err != nil {
		t.Fatalf("reload offering: %v", err)
	}
	if reloaded.Offering.Status != domain.OfferingStatusRetired {
		t.Fatalf("expected retired, got %s", reloaded.Offering.Status)
	}
}

func TestAbortDeletionRestoresOffering(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	offering := f.publishOffering(t, "farmer-1", 10, 100)
	if _, err := f.svc.CreateRequest(ctx, actor("investor-1"), application.CreateRequestInput{OfferingID: offering.OfferingID, Shares: 2}); err != nil {
		t.Fatalf("create request: %v", err)
	}

	view, err := f.svc.OpenDeletionRequest(ctx, actor("farmer-1"), application.OpenDeletionInput{OfferingID: offering.OfferingID})
	if err != nil {
		t.Fatalf("open deletion: %v", err)
	}
	if _, err := f.svc.ConfirmDeletion(ctx, actor("investor-1"), view.Deletion.DeletionID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	aborted, err := f.svc.AbortDeletion(ctx, actor("farmer-1"), view.Deletion.DeletionID)
	if err != nil {
		t.Fatalf("abort: %v", err)
	}
	if aborted.Outcome != domain.DeletionOutcomeAborted {
		t.Fatalf("expected aborted, got %s", aborted.Outcome)
	}
	// Late confirmations against the dead round are refused.
	if _, err := f.svc.ConfirmDeletion(ctx, actor("investor-1"), view.Deletion.DeletionID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition after abort, got %v", err)
	}

	reloaded, err := f.svc.GetOffering(ctx, actor("farmer-1"), offering.OfferingID)
	if err != nil {
		t.Fatalf("reload offering: %v", err)
	}
	if reloaded.Offering.Status != domain.OfferingStatusPublished {
		t.Fatalf("expected published after abort, got %s", reloaded.Offering.Status)
	}
	listings, err := f.svc.BrowseCatalog(ctx, actor("investor-2"), domain.CatalogFilter{})
	if err != nil {
		t.Fatalf("browse: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("offering must be relisted after abort, got %+v", listings)
	}

	// A fresh round starts with fresh votes; the old confirmation does not
	// carry over.
	second, err := f.svc.OpenDeletionRequest(ctx, actor("farmer-1"), application.OpenDeletionInput{OfferingID: offering.OfferingID})
	if err != nil {
		t.Fatalf("reopen deletion: %v", err)
	}
	if second.Deletion.DeletionID == view.Deletion.DeletionID {
		t.Fatalf("a new round must get a new identity")
	}
	if second.Confirmed != 0 || second.Total != 1 {
		t.Fatalf("expected a clean vote set, got %+v", second)
	}
}

func TestConcurrentConfirmationsFinalizeOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	offering := f.publishOffering(t, "farmer-1", 12, 100)

	investors := []string{"inv-1", "inv-2", "inv-3", "inv-4"}
	for _, investor := range investors {
		if _, err := f.svc.CreateRequest(ctx, actor(investor), application.CreateRequestInput{OfferingID: offering.OfferingID, Shares: 2}); err != nil {
			t.Fatalf("request for %s: %v", investor, err)
		}
	}
	view, err := f.svc.OpenDeletionRequest(ctx, actor("farmer-1"), application.OpenDeletionInput{OfferingID: offering.OfferingID})
	if err != nil {
		t.Fatalf("open deletion: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	finalized := 0
	for _, investor := range investors {
		wg.Add(1)
		go func(investor string) {
			defer wg.Done()
			state, err := f.svc.ConfirmDeletion(ctx, actor(investor), view.Deletion.DeletionID)
			if err != nil {
				t.Errorf("confirm %s: %v", investor, err)
				return
			}
			if state.CompletedRound {
				mu.Lock()
				finalized++
				mu.Unlock()
			}
		}(investor)
	}
	wg.Wait()

	if finalized != 1 {
		t.Fatalf("exactly one confirmation must finalize the round, got %d", finalized)
	}
	reloaded, err := f.svc.GetOffering(ctx, actor("farmer-1"), offering.OfferingID)
	if err != nil {
		t.Fatalf("reload offering: %v", err)
	}
	if reloaded.Offering.Status != domain.OfferingStatusRetired {
		t.Fatalf("expected retired, got %s", reloaded.Offering.Status)
	}
	counter := f.counter(t, offering.OfferingID)
	if counter.AvailableShares != 12 {
		t.Fatalf("all shares must return to the pool: %+v", counter)
	}
}

func TestConcurrentRequestsNeverOversell(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	const total = 10
	offering := f.publishOffering(t, "farmer-1", total, 100)

	const callers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			caller := application.Actor{SubjectID: fmt.Sprintf("investor-%d", i), IdempotencyKey: uuid.NewString()}
			_, err := f.svc.CreateRequest(ctx, caller, application.CreateRequestInput{OfferingID: offering.OfferingID, Shares: 2})
			switch {
			case err == nil:
				mu.Lock()
				granted += 2
				mu.Unlock()
			case errors.Is(err, domain.ErrInsufficientShares):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if granted != total {
		t.Fatalf("expected exactly %d shares granted, got %d", total, granted)
	}
	counter := f.counter(t, offering.OfferingID)
	if counter.AvailableShares != 0 || counter.ReservedShares != total {
		t.Fatalf("after concurrent requests: %+v", counter)
	}
}
