package specification

import "gorm.io/gorm"

type ByUserID struct {
	UserID string
}

func (s ByUserID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}

// TimestampBetween is inclusive on both ends. A nil bound is open.
type TimestampBetween struct {
	From *int64
	To   *int64
}

func (s TimestampBetween) Apply(db *gorm.DB) *gorm.DB {
	if s.From != nil {
		db = db.Where("timestamp >= ?", *s.From)
	}
	if s.To != nil {
		db = db.Where("timestamp <= ?", *s.To)
	}
	return db
}

type ByIdempotencyKey struct {
	UserID string
	Key    string
}

func (s ByIdempotencyKey) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ? AND idempotency_key = ?", s.UserID, s.Key)
}
