package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"ecospectre-be/internal/pkg/logger"
	"ecospectre-be/pkg/scan"
	"ecospectre-be/pkg/vision"
)

var errIncompleteContext = errors.New("analysis result lacks packaging_type or material_hints")

type Thumbnailer interface {
	Thumbnail(ctx context.Context, imageRef string) (string, error)
}

// AnalysisPipeline runs analyze, score and thumbnail strictly in order and assembles a draft.
// It holds no per-call state, so one instance serves any number of sequential or concurrent runs.
type AnalysisPipeline struct {
	analyzer vision.ContextAnalyzer
	scorer   vision.Scorer
	thumbs   Thumbnailer
	logger   logger.ILogger
	now      func() time.Time
}

func NewAnalysisPipeline(analyzer vision.ContextAnalyzer, scorer vision.Scorer, thumbs Thumbnailer, log logger.ILogger) *AnalysisPipeline {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &AnalysisPipeline{
		analyzer: analyzer,
		scorer:   scorer,
		thumbs:   thumbs,
		logger:   log,
		now:      time.Now,
	}
}

// Run analyzes imageRef. Once ctx is cancelled no further collaborator is called and
// any in-flight result is discarded.
func (p *AnalysisPipeline) Run(ctx context.Context, imageRef string) (*scan.Draft, error) {
	start := p.now()

	// Stage 1: context
	if err := ctx.Err(); err != nil {
		return nil, &scan.AnalysisError{Stage: scan.StageContext, Err: err}
	}
	p.logger.Debug("AnalysisPipeline", "Analyzing image", map[string]interface{}{"image": imageRef})
	sc, err := p.analyzer.AnalyzeImage(ctx, imageRef)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, &scan.AnalysisError{Stage: scan.StageContext, Err: ctxErr}
	}
	if err != nil {
		p.logger.Warn("AnalysisPipeline", "Context stage failed", map[string]interface{}{"error": err})
		return nil, &scan.AnalysisError{Stage: scan.StageContext, Err: err}
	}
	if sc == nil || strings.TrimSpace(sc.PackagingType) == "" || strings.TrimSpace(sc.MaterialHints) == "" {
		return nil, &scan.AnalysisError{Stage: scan.StageContext, Err: errIncompleteContext}
	}
	if sc.DetectedLabels == nil {
		sc.DetectedLabels = []string{}
	}

	// Stage 2: score
	if err := ctx.Err(); err != nil {
		return nil, &scan.AnalysisError{Stage: scan.StageScore, Err: err}
	}
	p.logger.Debug("AnalysisPipeline", "Scoring context", map[string]interface{}{"packaging_type": sc.PackagingType})
	score, err := p.scorer.ScoreContext(ctx, *sc)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, &scan.AnalysisError{Stage: scan.StageScore, Err: ctxErr}
	}
	if err != nil {
		p.logger.Warn("AnalysisPipeline", "Score stage failed", map[string]interface{}{"error": err})
		return nil, &scan.AnalysisError{Stage: scan.StageScore, Err: err}
	}
	if score == nil || !scan.ValidateScore(score.Score) {
		return nil, &scan.AnalysisError{Stage: scan.StageScore, Err: vision.ErrMalformedResponse}
	}
	if score.TopFactors == nil {
		score.TopFactors = []scan.TopFactor{}
	}

	// Stage 3: thumbnail, falling back to the original image
	if err := ctx.Err(); err != nil {
		return nil, &scan.AnalysisError{Stage: scan.StageThumbnail, Err: err}
	}
	thumb := imageRef
	if p.thumbs != nil {
		ref, err := p.thumbs.Thumbnail(ctx, imageRef)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &scan.AnalysisError{Stage: scan.StageThumbnail, Err: ctxErr}
		}
		if err != nil {
			p.logger.Warn("AnalysisPipeline", "Thumbnail failed, using original image", map[string]interface{}{"error": err})
		} else {
			thumb = ref
		}
	}

	sc.Image = imageRef
	sc.ImageThumb = thumb

	draft := &scan.Draft{
		Timestamp: scan.NowMillis(p.now()),
		Context:   *sc,
		Score:     *score,
		Action:    scan.ActionConsumed,
	}
	p.logger.Info("AnalysisPipeline", "Analysis complete", map[string]interface{}{
		"score":       score.Score,
		"duration_ms": p.now().Sub(start).Milliseconds(),
	})
	return draft, nil
}
