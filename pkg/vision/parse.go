package vision

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ecospectre-be/pkg/scan"
)

// ErrMalformedResponse is returned when model output does not match the expected JSON shape.
var ErrMalformedResponse = errors.New("malformed model response")

const ContextPrompt = `You are inspecting a photo of a consumer product.
Return ONLY a JSON object with these fields:
{
  "detected_labels": ["short noun phrases for visible objects and label text"],
  "packaging_type": "main packaging, e.g. plastic bottle, glass jar, cardboard box",
  "material_hints": "materials you can infer, comma separated",
  "ocr_text": "legible text on the product or null",
  "brand_text": "brand name or null"
}
Never omit packaging_type or material_hints; use "unknown" when unsure.`

// ScorePrompt asks for a 0-100 sustainability rating of an analyzed product.
func ScorePrompt(sc scan.ScanContext) string {
	ctxJSON, _ := json.Marshal(struct {
		DetectedLabels []string `json:"detected_labels"`
		PackagingType  string   `json:"packaging_type"`
		MaterialHints  string   `json:"material_hints"`
		OcrText        *string  `json:"ocr_text,omitempty"`
		BrandText      *string  `json:"brand_text,omitempty"`
	}{sc.DetectedLabels, sc.PackagingType, sc.MaterialHints, sc.OcrText, sc.BrandText})

	return `Rate the environmental sustainability of this product from 0 (worst) to 100 (best).
Product context:
` + string(ctxJSON) + `
Return ONLY a JSON object:
{
  "score": number 0-100,
  "breakdown": {"materials": number, "packaging": number, "certifications": number, "category_baseline": number},
  "top_factors": [{"factor": "string", "explanation": "string", "impact": "positive" | "negative"}],
  "suggestion": "one sentence on a greener alternative",
  "disposal": "one sentence on how to dispose of it"
}`
}

// StripFences removes a surrounding markdown code fence, which models add despite instructions.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		// drop the language tag line
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

type rawContext struct {
	DetectedLabels []string `json:"detected_labels"`
	PackagingType  string   `json:"packaging_type"`
	MaterialHints  string   `json:"material_hints"`
	OcrText        *string  `json:"ocr_text"`
	BrandText      *string  `json:"brand_text"`
}

// ParseContext decodes an analysis response. packaging_type and material_hints are required.
func ParseContext(text string) (*scan.ScanContext, error) {
	var raw rawContext
	if err := json.Unmarshal([]byte(StripFences(text)), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var missing []string
	if strings.TrimSpace(raw.PackagingType) == "" {
		missing = append(missing, "packaging_type")
	}
	if strings.TrimSpace(raw.MaterialHints) == "" {
		missing = append(missing, "material_hints")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedResponse, strings.Join(missing, ", "))
	}

	labels := raw.DetectedLabels
	if labels == nil {
		labels = []string{}
	}
	return &scan.ScanContext{
		DetectedLabels: labels,
		PackagingType:  strings.TrimSpace(raw.PackagingType),
		MaterialHints:  strings.TrimSpace(raw.MaterialHints),
		OcrText:        nonEmpty(raw.OcrText),
		BrandText:      nonEmpty(raw.BrandText),
	}, nil
}

type rawScore struct {
	Score     *float64 `json:"score"`
	Breakdown *struct {
		Materials        *float64 `json:"materials"`
		Packaging        *float64 `json:"packaging"`
		Certifications   *float64 `json:"certifications"`
		CategoryBaseline *float64 `json:"category_baseline"`
	} `json:"breakdown"`
	TopFactors []scan.TopFactor `json:"top_factors"`
	Suggestion string           `json:"suggestion"`
	Disposal   string           `json:"disposal"`
}

// ParseScore decodes a scoring response. The score must lie in range and the breakdown must be complete.
func ParseScore(text string) (*scan.SustainabilityScore, error) {
	var raw rawScore
	if err := json.Unmarshal([]byte(StripFences(text)), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if raw.Score == nil {
		return nil, fmt.Errorf("%w: missing score", ErrMalformedResponse)
	}
	if !scan.ValidateScore(*raw.Score) {
		return nil, fmt.Errorf("%w: score %v out of range", ErrMalformedResponse, *raw.Score)
	}
	b := raw.Breakdown
	if b == nil || b.Materials == nil || b.Packaging == nil || b.Certifications == nil || b.CategoryBaseline == nil {
		return nil, fmt.Errorf("%w: incomplete breakdown", ErrMalformedResponse)
	}

	factors := make([]scan.TopFactor, 0, len(raw.TopFactors))
	for _, f := range raw.TopFactors {
		if f.Impact != scan.ImpactPositive && f.Impact != scan.ImpactNegative {
			continue
		}
		factors = append(factors, f)
	}

	return &scan.SustainabilityScore{
		Score: *raw.Score,
		Breakdown: scan.Breakdown{
			Materials:        *b.Materials,
			Packaging:        *b.Packaging,
			Certifications:   *b.Certifications,
			CategoryBaseline: *b.CategoryBaseline,
		},
		TopFactors: factors,
		Suggestion: raw.Suggestion,
		Disposal:   raw.Disposal,
	}, nil
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" || strings.EqualFold(v, "null") {
		return nil
	}
	return &v
}
