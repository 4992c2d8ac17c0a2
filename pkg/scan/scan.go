// Package scan holds the scan record model shared by the device and the ingestion service.
package scan

import "time"

const (
	// LocalUserID owns records captured on a device that is not signed in.
	LocalUserID = "local"
	// GuestUserID owns records submitted to the server without any identity.
	GuestUserID = "guest"

	// LocalIDPrefix marks ids minted by a device queue. Server ids are bare UUIDs.
	LocalIDPrefix = "local-"

	MinScore = 0
	MaxScore = 100
)

type Action string

const (
	ActionConsumed Action = "consumed"
	ActionRejected Action = "rejected"
)

func (a Action) Valid() bool {
	return a == ActionConsumed || a == ActionRejected
}

type Impact string

const (
	ImpactPositive Impact = "positive"
	ImpactNegative Impact = "negative"
)

// ScanContext is what the vision collaborator extracted from a product image.
type ScanContext struct {
	DetectedLabels []string `json:"detected_labels"`
	PackagingType  string   `json:"packaging_type"`
	MaterialHints  string   `json:"material_hints"`
	OcrText        *string  `json:"ocr_text,omitempty"`
	BrandText      *string  `json:"brand_text,omitempty"`
	Image          string   `json:"image,omitempty"`
	ImageThumb     string   `json:"image_thumb,omitempty"`
	UserNote       string   `json:"user_note,omitempty"`
}

type Breakdown struct {
	Materials        float64 `json:"materials"`
	Packaging        float64 `json:"packaging"`
	Certifications   float64 `json:"certifications"`
	CategoryBaseline float64 `json:"category_baseline"`
}

type TopFactor struct {
	Factor      string `json:"factor"`
	Explanation string `json:"explanation"`
	Impact      Impact `json:"impact"`
}

type SustainabilityScore struct {
	Score      float64     `json:"score"`
	Breakdown  Breakdown   `json:"breakdown"`
	TopFactors []TopFactor `json:"top_factors"`
	Suggestion string      `json:"suggestion"`
	Disposal   string      `json:"disposal"`
}

// Draft is an analysed scan plus the user's decision, not yet stored anywhere.
type Draft struct {
	UserID    string              `json:"userId,omitempty"`
	Timestamp int64               `json:"timestamp"`
	Context   ScanContext         `json:"context"`
	Score     SustainabilityScore `json:"score"`
	Action    Action              `json:"action"`
}

// Record is a draft after it has been accepted by a store.
type Record struct {
	ID        string              `json:"id"`
	UserID    string              `json:"userId"`
	Timestamp int64               `json:"timestamp"`
	Context   ScanContext         `json:"context"`
	Score     SustainabilityScore `json:"score"`
	Action    Action              `json:"action"`
	Pending   bool                `json:"pending"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// Draft strips the storage fields back off.
func (r Record) Draft() Draft {
	return Draft{
		UserID:    r.UserID,
		Timestamp: r.Timestamp,
		Context:   r.Context,
		Score:     r.Score,
		Action:    r.Action,
	}
}

// Time converts the millisecond timestamp.
func (r Record) Time() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// NowMillis is the timestamp format used on every record.
func NowMillis(now time.Time) int64 {
	return now.UnixMilli()
}

func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
