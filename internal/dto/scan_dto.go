package dto

import (
	"bytes"
	"encoding/json"

	"ecospectre-be/pkg/scan"
)

type BreakdownRequest struct {
	Materials        *float64 `json:"materials" validate:"required"`
	Packaging        *float64 `json:"packaging" validate:"required"`
	Certifications   *float64 `json:"certifications" validate:"required"`
	CategoryBaseline *float64 `json:"category_baseline" validate:"required"`
}

func (b *BreakdownRequest) ToBreakdown() scan.Breakdown {
	if b == nil {
		return scan.Breakdown{}
	}
	deref := func(f *float64) float64 {
		if f == nil {
			return 0
		}
		return *f
	}
	return scan.Breakdown{
		Materials:        deref(b.Materials),
		Packaging:        deref(b.Packaging),
		Certifications:   deref(b.Certifications),
		CategoryBaseline: deref(b.CategoryBaseline),
	}
}

// CreateScanRequest accepts both score conventions: a flat number with a sibling breakdown,
// or an object {score, breakdown}. Field order drives the order of validation messages.
type CreateScanRequest struct {
	Score          *float64          `json:"score" validate:"required,min=0,max=100"`
	Breakdown      *BreakdownRequest `json:"breakdown" validate:"required"`
	DetectedLabels []string          `json:"detected_labels" validate:"required"`
	PackagingType  string            `json:"packaging_type" validate:"required"`
	MaterialHints  string            `json:"material_hints" validate:"required"`
	Action         string            `json:"action" validate:"required,oneof=consumed rejected"`

	UserId     *string `json:"userId,omitempty"`
	OcrText    *string `json:"ocr_text,omitempty"`
	BrandText  *string `json:"brand_text,omitempty"`
	ImageThumb *string `json:"image_thumb,omitempty"`
	Image      *string `json:"image,omitempty"`
}

type nestedScore struct {
	Score     json.RawMessage `json:"score"`
	Breakdown json.RawMessage `json:"breakdown"`
}

// UnmarshalJSON tolerates wrongly typed required fields: they decode as absent so
// validation can name them instead of rejecting the whole body.
func (r *CreateScanRequest) UnmarshalJSON(data []byte) error {
	type plain CreateScanRequest
	var raw struct {
		plain
		Score          json.RawMessage `json:"score"`
		Breakdown      json.RawMessage `json:"breakdown"`
		DetectedLabels json.RawMessage `json:"detected_labels"`
		PackagingType  json.RawMessage `json:"packaging_type"`
		MaterialHints  json.RawMessage `json:"material_hints"`
		Action         json.RawMessage `json:"action"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = CreateScanRequest(raw.plain)
	r.Breakdown = decodeBreakdown(raw.Breakdown)
	r.DetectedLabels = decodeStrings(raw.DetectedLabels)
	r.PackagingType = decodeString(raw.PackagingType)
	r.MaterialHints = decodeString(raw.MaterialHints)
	r.Action = decodeString(raw.Action)
	r.Score = nil

	trimmed := bytes.TrimSpace(raw.Score)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var nested nestedScore
		if err := json.Unmarshal(trimmed, &nested); err != nil {
			return nil
		}
		r.Score = decodeFloat(nested.Score)
		if r.Breakdown == nil {
			r.Breakdown = decodeBreakdown(nested.Breakdown)
		}
		return nil
	}
	r.Score = decodeFloat(trimmed)
	return nil
}

func decodeFloat(raw json.RawMessage) *float64 {
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil || isNull(raw) {
		return nil
	}
	return &v
}

func decodeString(raw json.RawMessage) string {
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return v
}

func decodeStrings(raw json.RawMessage) []string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil
	}
	var v []string
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return nil
	}
	return v
}

func decodeBreakdown(raw json.RawMessage) *BreakdownRequest {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var v BreakdownRequest
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return nil
	}
	return &v
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// ScanResponse is the listing shape clients render directly.
type ScanResponse struct {
	Id        string              `json:"id"`
	Timestamp int64               `json:"timestamp"`
	Score     ScanScoreResponse   `json:"score"`
	Context   ScanContextResponse `json:"context"`
	Action    scan.Action         `json:"action"`
}

type ScanScoreResponse struct {
	Score      float64          `json:"score"`
	Breakdown  scan.Breakdown   `json:"breakdown"`
	TopFactors []scan.TopFactor `json:"top_factors"`
	Suggestion string           `json:"suggestion"`
	Disposal   string           `json:"disposal"`
}

type ScanContextResponse struct {
	DetectedLabels []string `json:"detected_labels"`
	PackagingType  string   `json:"packaging_type"`
	MaterialHints  string   `json:"material_hints"`
	OcrText        *string  `json:"ocr_text,omitempty"`
	BrandText      *string  `json:"brand_text,omitempty"`
	ImageThumb     *string  `json:"image_thumb,omitempty"`
	Image          *string  `json:"image,omitempty"`
	UserNote       string   `json:"user_note"`
}

type CreateScanResponse struct {
	Id      string `json:"id"`
	Storage string `json:"storage,omitempty"`
}

type ListScansQuery struct {
	StartDate string `query:"startDate"`
	EndDate   string `query:"endDate"`
}

// ScanFeedMessage is pushed to a user's other connected devices.
type ScanFeedMessage struct {
	Id        string      `json:"id"`
	Timestamp int64       `json:"timestamp"`
	Action    scan.Action `json:"action"`
	Score     float64     `json:"score"`
	Storage   string      `json:"storage"`
}

// TransientScanMessage carries a memory-only record on the in-process bus.
type TransientScanMessage struct {
	Id string `json:"id"`
}
