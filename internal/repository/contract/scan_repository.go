package contract

import (
	"context"
	"time"

	"ecospectre-be/internal/entity"

	"github.com/google/uuid"
)

// ScanQuery describes a history listing. Empty UserID means every owner.
type ScanQuery struct {
	UserID string
	Start  *time.Time
	End    *time.Time
	Limit  int
}

func (q ScanQuery) Bounds() (from, to *int64) {
	if q.Start != nil {
		ms := q.Start.UnixMilli()
		from = &ms
	}
	if q.End != nil {
		ms := q.End.UnixMilli()
		to = &ms
	}
	return from, to
}

// ScanRepository is implemented by both the durable and the transient backend.
type ScanRepository interface {
	Create(ctx context.Context, scan *entity.Scan) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Scan, error)
	FindByIdempotencyKey(ctx context.Context, userID, key string) (*entity.Scan, error)
	FindAll(ctx context.Context, query ScanQuery) ([]*entity.Scan, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
