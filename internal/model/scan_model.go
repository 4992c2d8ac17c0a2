package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ScanBreakdown struct {
	Materials        float64 `json:"materials"`
	Packaging        float64 `json:"packaging"`
	Certifications   float64 `json:"certifications"`
	CategoryBaseline float64 `json:"category_baseline"`
}

type Scan struct {
	Id             uuid.UUID                         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId         string                            `gorm:"type:varchar(64);not null;index"`
	Timestamp      int64                             `gorm:"not null;index"`
	Score          float64                           `gorm:"not null"`
	Breakdown      datatypes.JSONType[ScanBreakdown] `gorm:"type:jsonb;not null"`
	DetectedLabels datatypes.JSONSlice[string]       `gorm:"type:jsonb;not null"`
	PackagingType  string                            `gorm:"type:varchar(255);not null"`
	MaterialHints  string                            `gorm:"type:text;not null"`
	OcrText        *string                           `gorm:"type:text"`
	BrandText      *string                           `gorm:"type:varchar(255)"`
	ImageThumb     *string                           `gorm:"type:text"`
	Action         string                            `gorm:"type:varchar(16);not null"`
	IdempotencyKey *string                           `gorm:"type:varchar(255);index"`
	CreatedAt      time.Time                         `gorm:"autoCreateTime"`
}

func (Scan) TableName() string {
	return "scans"
}
