package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/adapters/memory"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/domain"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/ports"
)

func TestIdempotencyKeyLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewIdempotencyRepository()
	// A pinned clock, nowhere near the wall clock: the repository must judge
	// expiry against the time the caller passes in.
	now := time.Date(2100, time.March, 9, 12, 0, 0, 0, time.UTC)

	if err := repo.Reserve(ctx, "key-1", "hash-1", now, now.Add(time.Hour)); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	// A live key cannot be reserved again.
	if err := repo.Reserve(ctx, "key-1", "hash-2", now, now.Add(time.Hour)); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := repo.Complete(ctx, "key-1", 200, []byte(`{"ok":true}`), now); err != nil {
		t.Fatalf("complete: %v", err)
	}
	row, err := repo.Get(ctx, "key-1", now)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if row == nil || row.RequestHash != "hash-1" || row.ResponseCode != 200 {
		t.Fatalf("unexpected record: %+v", row)
	}

	// Past the TTL the key reads as absent.
	if row, err := repo.Get(ctx, "key-1", now.Add(2*time.Hour)); err != nil || row != nil {
		t.Fatalf("expected expired key invisible, got %+v (err %v)", row, err)
	}
	// And it can be reclaimed with a fresh reservation on the same clock.
	if err := repo.Reserve(ctx, "key-1", "hash-3", now.Add(2*time.Hour), now.Add(3*time.Hour)); err != nil {
		t.Fatalf("reclaim expired key: %v", err)
	}
	row, err = repo.Get(ctx, "key-1", now.Add(2*time.Hour))
	if err != nil || row == nil || row.RequestHash != "hash-3" {
		t.Fatalf("expected reclaimed record, got %+v (err %v)", row, err)
	}
	if err := repo.Complete(ctx, "missing", 200, nil, now); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOutboxPendingOrderAndMarkSent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewOutboxRepository()
	now := time.Now().UTC()

	for _, id := range []string{"rec-1", "rec-2", "rec-3"} {
		if err := repo.Enqueue(ctx, ports.OutboxRecord{RecordID: id, CreatedAt: now}); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}
	pending, err := repo.ListPending(ctx, 2)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 || pending[0].RecordID != "rec-1" || pending[1].RecordID != "rec-2" {
		t.Fatalf("expected fifo order with limit, got %+v", pending)
	}

	if err := repo.MarkSent(ctx, "rec-1", now); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	// Re-marking is idempotent.
	if err := repo.MarkSent(ctx, "rec-1", now.Add(time.Second)); err != nil {
		t.Fatalf("re-mark sent: %v", err)
	}
	if err := repo.MarkSent(ctx, "rec-9", now); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown record, got %v", err)
	}

	pending, err = repo.ListPending(ctx, 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 || pending[0].RecordID != "rec-2" {
		t.Fatalf("sent records must drop out, got %+v", pending)
	}
}
