package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/adapters/memory"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/adapters/security"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/application"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/domain"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/ledger"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/ports"
)

// interceptingGateway lets a test run arbitrary code at the exact moment the
// payment collaborator is asked to confirm.
type interceptingGateway struct {
	confirm func(ctx context.Context, requestID string, amount float64) error
}

func (g *interceptingGateway) ConfirmPayment(ctx context.Context, requestID string, amount float64) error {
	if g.confirm == nil {
		return nil
	}
	return g.confirm(ctx, requestID, amount)
}

func (g *interceptingGateway) RequestRefund(context.Context, string, float64) error { return nil }

// flakyOfferingRepository fails the first retire transition and then behaves.
type flakyOfferingRepository struct {
	ports.OfferingRepository
	mu         sync.Mutex
	failRetire bool
}

func (r *flakyOfferingRepository) UpdateStatus(ctx context.Context, offeringID, fromStatus, toStatus string, at time.Time) error {
	r.mu.Lock()
	if r.failRetire && toStatus == domain.OfferingStatusRetired {
		r.failRetire = false
		r.mu.Unlock()
		return errors.New("connection reset")
	}
	r.mu.Unlock()
	return r.OfferingRepository.UpdateStatus(ctx, offeringID, fromStatus, toStatus, at)
}

// snapshotHookRequests fires a one-shot hook just before a stakeholder
// snapshot is read.
type snapshotHookRequests struct {
	ports.InvestmentRequestRepository
	mu         sync.Mutex
	onSnapshot func()
}

func (r *snapshotHookRequests) ListByOffering(ctx context.Context, offeringID string) ([]domain.InvestmentRequest, error) {
	r.mu.Lock()
	hook := r.onSnapshot
	r.onSnapshot = nil
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	return r.InvestmentRequestRepository.ListByOffering(ctx, offeringID)
}

// A cancel arriving while the gateway confirms funds must lose: the request
// is already paid, so the money can never end up confirmed against a
// cancelled stake.
func TestMarkPaidBlocksConcurrentCancel(t *testing.T) {
	t.Parallel()

	repos := memory.NewRepositories()
	gw := &interceptingGateway{}
	shareLedger := ledger.New(repos.Ledger, nil)
	svc := application.NewService(application.Dependencies{
		Offerings:   repos.Offerings,
		Requests:    repos.Requests,
		Deletions:   repos.Deletions,
		Idempotency: repos.Idempotency,
		Outbox:      repos.Outbox,
		Catalog:     repos.Catalog,
		Ledger:      shareLedger,
		Payments:    gw,
		Admin:       security.NewStaticAdminVerifier(testAdminCode),
	})

	ctx := context.Background()
	view, err := svc.CreateOffering(ctx, actor("farmer-1"), application.CreateOfferingInput{
		AssetType:     "livestock",
		Region:        "krasnodar",
		PricePerShare: 100,
		TotalShares:   10,
	})
	if err != nil {
		t.Fatalf("create offering: %v", err)
	}
	request, err := svc.CreateRequest(ctx, actor("investor-1"), application.CreateRequestInput{
		OfferingID: view.Offering.OfferingID,
		Shares:     3,
	})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if _, err := svc.Approve(ctx, application.Actor{SubjectID: "farmer-1"}, request.RequestID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	var cancelErr error
	gw.confirm = func(ctx context.Context, requestID string, _ float64) error {
		_, cancelErr = svc.Cancel(ctx, application.Actor{SubjectID: "investor-1"}, requestID)
		return nil
	}
	activated, err := svc.MarkPaid(ctx, application.Actor{SubjectID: "investor-1"}, request.RequestID)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if activated.Status != domain.RequestStatusActive {
		t.Fatalf("expected active request, got %s", activated.Status)
	}
	if !errors.Is(cancelErr, domain.ErrInvalidTransition) {
		t.Fatalf("cancel racing the payment must lose, got %v", cancelErr)
	}

	counter, err := shareLedger.Counter(ctx, view.Offering.OfferingID)
	if err != nil {
		t.Fatalf("read counter: %v", err)
	}
	if counter.AllocatedShares != 3 || counter.ReservedShares != 0 || counter.AvailableShares != 7 {
		t.Fatalf("expected 3 allocated and nothing reserved, got %+v", counter)
	}
}

// A declined payment hands the request back: status returns to approved and
// the reservation stays intact for a later retry or cancel.
func TestMarkPaidGatewayFailureRevertsToApproved(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	offering := f.publishOffering(t, "farmer-1", 10, 100)

	request, err := f.svc.CreateRequest(ctx, actor("investor-1"), application.CreateRequestInput{OfferingID: offering.OfferingID, Shares: 3})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if _, err := f.svc.Approve(ctx, application.Actor{SubjectID: "farmer-1"}, request.RequestID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	declined := errors.New("card declined")
	f.payments.ConfirmErr = declined
	if _, err := f.svc.MarkPaid(ctx, application.Actor{SubjectID: "investor-1"}, request.RequestID); !errors.Is(err, declined) {
		t.Fatalf("expected the gateway error surfaced, got %v", err)
	}
	stored, err := f.repos.Requests.GetByID(ctx, request.RequestID)
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	if stored.Status != domain.RequestStatusApproved {
		t.Fatalf("expected approved after declined payment, got %s", stored.Status)
	}
	counter := f.counter(t, offering.OfferingID)
	if counter.ReservedShares != 3 || counter.AllocatedShares != 0 {
		t.Fatalf("reservation must survive a declined payment, got %+v", counter)
	}

	// The investor can still walk away cleanly.
	f.payments.ConfirmErr = nil
	if _, err := f.svc.Cancel(ctx, application.Actor{SubjectID: "investor-1"}, request.RequestID); err != nil {
		t.Fatalf("cancel after declined payment: %v", err)
	}
	if counter := f.counter(t, offering.OfferingID); counter.AvailableShares != 10 {
		t.Fatalf("expected full availability after cancel, got %+v", counter)
	}
}

// A fault between completing the round and retiring the offering must not
// strand it in pending_deletion: a later confirmation call reruns the
// finalize steps.
func TestDeletionFinalizeRetriesAfterFault(t *testing.T) {
	t.Parallel()

	repos := memory.NewRepositories()
	offerings := &flakyOfferingRepository{OfferingRepository: repos.Offerings}
	shareLedger := ledger.New(repos.Ledger, nil)
	svc := application.NewService(application.Dependencies{
		Offerings:   offerings,
		Requests:    repos.Requests,
		Deletions:   repos.Deletions,
		Idempotency: repos.Idempotency,
		Outbox:      repos.Outbox,
		Catalog:     repos.Catalog,
		Ledger:      shareLedger,
		Admin:       security.NewStaticAdminVerifier(testAdminCode),
	})

	ctx := context.Background()
	view, err := svc.CreateOffering(ctx, actor("farmer-1"), application.CreateOfferingInput{
		AssetType:     "livestock",
		Region:        "krasnodar",
		PricePerShare: 100,
		TotalShares:   10,
	})
	if err != nil {
		t.Fatalf("create offering: %v", err)
	}
	offeringID := view.Offering.OfferingID
	if _, err := svc.CreateRequest(ctx, actor("investor-1"), application.CreateRequestInput{OfferingID: offeringID, Shares: 2}); err != nil {
		t.Fatalf("create request: %v", err)
	}
	round, err := svc.OpenDeletionRequest(ctx, actor("farmer-1"), application.OpenDeletionInput{OfferingID: offeringID})
	if err != nil {
		t.Fatalf("open deletion: %v", err)
	}

	offerings.mu.Lock()
	offerings.failRetire = true
	offerings.mu.Unlock()
	if _, err := svc.ConfirmDeletion(ctx, application.Actor{SubjectID: "investor-1"}, round.Deletion.DeletionID); err == nil {
		t.Fatal("expected the faulted finalize to surface an error")
	}
	// The round completed but the offering is stuck mid-retirement.
	stored, err := repos.Deletions.GetByID(ctx, round.Deletion.DeletionID)
	if err != nil {
		t.Fatalf("get deletion: %v", err)
	}
	if stored.Outcome != domain.DeletionOutcomeCompleted {
		t.Fatalf("expected completed round, got %s", stored.Outcome)
	}
	if current, err := repos.Offerings.GetByID(ctx, offeringID); err != nil || current.Status != domain.OfferingStatusPendingDeletion {
		t.Fatalf("expected offering still pending_deletion, got %+v (err %v)", current, err)
	}

	// Retrying the confirmation completes the retirement.
	state, err := svc.ConfirmDeletion(ctx, application.Actor{SubjectID: "investor-1"}, round.Deletion.DeletionID)
	if err != nil {
		t.Fatalf("retry confirm: %v", err)
	}
	if state.Outcome != domain.DeletionOutcomeCompleted || state.CompletedRound {
		t.Fatalf("retry must not re-win the round, got %+v", state)
	}
	if current, err := repos.Offerings.GetByID(ctx, offeringID); err != nil || current.Status != domain.OfferingStatusRetired {
		t.Fatalf("expected retired offering after retry, got %+v (err %v)", current, err)
	}
	counter, err := shareLedger.Counter(ctx, offeringID)
	if err != nil {
		t.Fatalf("read counter: %v", err)
	}
	if counter.AvailableShares != 10 {
		t.Fatalf("expected all shares restored, got %+v", counter)
	}
}

// A request racing the opening of a deletion round is refused rather than
// slipping into a stake that carries no vote: the offering flips to
// pending_deletion before the stakeholder set is read.
func TestRequestDuringDeletionSnapshotIsRefused(t *testing.T) {
	t.Parallel()

	repos := memory.NewRepositories()
	requests := &snapshotHookRequests{InvestmentRequestRepository: repos.Requests}
	shareLedger := ledger.New(repos.Ledger, nil)
	svc := application.NewService(application.Dependencies{
		Offerings:   repos.Offerings,
		Requests:    requests,
		Deletions:   repos.Deletions,
		Idempotency: repos.Idempotency,
		Outbox:      repos.Outbox,
		Catalog:     repos.Catalog,
		Ledger:      shareLedger,
		Admin:       security.NewStaticAdminVerifier(testAdminCode),
	})

	ctx := context.Background()
	view, err := svc.CreateOffering(ctx, actor("farmer-1"), application.CreateOfferingInput{
		AssetType:     "livestock",
		Region:        "krasnodar",
		PricePerShare: 100,
		TotalShares:   10,
	})
	if err != nil {
		t.Fatalf("create offering: %v", err)
	}
	offeringID := view.Offering.OfferingID
	if _, err := svc.CreateRequest(ctx, actor("investor-1"), application.CreateRequestInput{OfferingID: offeringID, Shares: 2}); err != nil {
		t.Fatalf("create request: %v", err)
	}

	var lateErr error
	requests.mu.Lock()
	requests.onSnapshot = func() {
		_, lateErr = svc.CreateRequest(ctx, actor("investor-2"), application.CreateRequestInput{OfferingID: offeringID, Shares: 1})
	}
	requests.mu.Unlock()

	round, err := svc.OpenDeletionRequest(ctx, actor("farmer-1"), application.OpenDeletionInput{OfferingID: offeringID})
	if err != nil {
		t.Fatalf("open deletion: %v", err)
	}
	if !errors.Is(lateErr, domain.ErrOfferingUnavailable) {
		t.Fatalf("expected the racing request refused, got %v", lateErr)
	}
	if round.Total != 1 {
		t.Fatalf("expected one stakeholder in the round, got %d", round.Total)
	}
	counter, err := shareLedger.Counter(ctx, offeringID)
	if err != nil {
		t.Fatalf("read counter: %v", err)
	}
	if counter.ReservedShares != 2 || counter.AvailableShares != 8 {
		t.Fatalf("refused request must not strand shares, got %+v", counter)
	}
}
