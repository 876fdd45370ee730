package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/adapters/memory"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/domain"
)

func TestConfirmChecksMembershipOnCompletedRound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewDeletionRepository()
	now := time.Date(2026, time.August, 30, 10, 0, 0, 0, time.UTC)

	deletion := domain.DeletionRequest{
		DeletionID: "del-1",
		OfferingID: "off-1",
		FarmerID:   "farmer-1",
		Outcome:    domain.DeletionOutcomeOpen,
		CreatedAt:  now,
	}
	confirmations := []domain.DeletionConfirmation{{
		ConfirmationID: "conf-1",
		DeletionID:     "del-1",
		InvestorID:     "investor-1",
		CreatedAt:      now,
	}}
	if err := repo.Create(ctx, deletion, confirmations); err != nil {
		t.Fatalf("create: %v", err)
	}

	state, err := repo.Confirm(ctx, "del-1", "investor-1", now)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !state.CompletedRound || state.Outcome != domain.DeletionOutcomeCompleted {
		t.Fatalf("expected the confirmation to complete the round, got %+v", state)
	}

	// A non-stakeholder is refused even after completion, exactly as with an
	// open round.
	if _, err := repo.Confirm(ctx, "del-1", "stranger", now); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for a non-stakeholder, got %v", err)
	}

	// A stakeholder replay stays a no-op success and never re-wins the round.
	replay, err := repo.Confirm(ctx, "del-1", "investor-1", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("replay confirm: %v", err)
	}
	if replay.CompletedRound || replay.Outcome != domain.DeletionOutcomeCompleted {
		t.Fatalf("replay must not re-win the round, got %+v", replay)
	}
}
