package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/contracts"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/domain"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/ports"
)

type outboxRepository struct {
	db *gorm.DB
}

func (r *outboxRepository) Enqueue(ctx context.Context, record ports.OutboxRecord) error {
	envelope, err := json.Marshal(record.Envelope)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	rec := outboxModel{
		RecordID:   record.RecordID,
		EventClass: record.EventClass,
		Envelope:   string(envelope),
		CreatedAt:  record.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *outboxRepository) ListPending(ctx context.Context, limit int) ([]ports.OutboxRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("sent_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ports.OutboxRecord, 0, len(rows))
	for _, rec := range rows {
		var envelope contracts.EventEnvelope
		if err := json.Unmarshal([]byte(rec.Envelope), &envelope); err != nil {
			return nil, fmt.Errorf("unmarshal outbox envelope %s: %w", rec.RecordID, err)
		}
		out = append(out, ports.OutboxRecord{
			RecordID:   rec.RecordID,
			EventClass: rec.EventClass,
			Envelope:   envelope,
			CreatedAt:  rec.CreatedAt,
			SentAt:     rec.SentAt,
		})
	}
	return out, nil
}

func (r *outboxRepository) MarkSent(ctx context.Context, recordID string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("record_id = ?", recordID).
		Update("sent_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
