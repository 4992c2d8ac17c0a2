// Package vision turns a product photo into scan context and a sustainability score
// by prompting a multimodal model.
package vision

import (
	"context"

	"ecospectre-be/pkg/scan"
)

// ContextAnalyzer extracts product context from an image reference.
type ContextAnalyzer interface {
	AnalyzeImage(ctx context.Context, imageRef string) (*scan.ScanContext, error)
}

// Scorer rates an analyzed product.
type Scorer interface {
	ScoreContext(ctx context.Context, sc scan.ScanContext) (*scan.SustainabilityScore, error)
}

type Provider interface {
	ContextAnalyzer
	Scorer
	Close() error
}
