package entity

import (
	"time"

	"ecospectre-be/pkg/scan"

	"github.com/google/uuid"
)

type Scan struct {
	Id             uuid.UUID
	UserId         string
	Timestamp      int64 // Unix millis
	Score          float64
	Breakdown      scan.Breakdown
	DetectedLabels []string
	PackagingType  string
	MaterialHints  string
	OcrText        *string
	BrandText      *string
	ImageThumb     *string
	Action         scan.Action
	IdempotencyKey *string
	CreatedAt      time.Time
}

type StorageKind string

const (
	StorageDurable StorageKind = "durable"
	StorageMemory  StorageKind = "memory"
)

// ScanReceipt is what the ingestion service reports back for an accepted scan.
type ScanReceipt struct {
	Id      uuid.UUID   `json:"id"`
	Storage StorageKind `json:"storage"`
}
