package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/domain"
)

// getIdempotent returns the cached response for a replayed key. A key reuse
// with a different request body is a conflict, never a silent replay.
func getIdempotent[T any](ctx context.Context, s *Service, key, requestHash string) (T, bool, error) {
	var zero T
	if s.idempotency == nil || strings.TrimSpace(key) == "" {
		return zero, false, nil
	}
	rec, err := s.idempotency.Get(ctx, key, s.nowFn())
	if err != nil || rec == nil {
		return zero, false, err
	}
	if rec.RequestHash != requestHash {
		return zero, false, domain.ErrIdempotencyConflict
	}
	if len(rec.ResponseBody) == 0 {
		return zero, false, nil
	}
	var out T
	if err := json.Unmarshal(rec.ResponseBody, &out); err != nil {
		return zero, false, nil
	}
	return out, true, nil
}

func (s *Service) reserveIdempotency(ctx context.Context, key, requestHash string) error {
	if s.idempotency == nil {
		return nil
	}
	now := s.nowFn()
	err := s.idempotency.Reserve(ctx, key, requestHash, now, now.Add(s.cfg.IdempotencyTTL))
	if err == domain.ErrConflict {
		return domain.ErrIdempotencyConflict
	}
	return err
}

func (s *Service) completeIdempotencyJSON(ctx context.Context, key string, code int, payload any) error {
	if s.idempotency == nil || strings.TrimSpace(key) == "" {
		return nil
	}
	b, _ := json.Marshal(payload)
	return s.idempotency.Complete(ctx, key, code, b, s.nowFn())
}

func hashJSON(v any) string {
	b, _ := json.Marshal(v)
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}
