package mapper

import (
	"ecospectre-be/internal/entity"
	"ecospectre-be/internal/model"
	"ecospectre-be/pkg/scan"

	"gorm.io/datatypes"
)

type ScanMapper struct{}

func NewScanMapper() *ScanMapper {
	return &ScanMapper{}
}

func (m *ScanMapper) ToEntity(s *model.Scan) *entity.Scan {
	if s == nil {
		return nil
	}
	b := s.Breakdown.Data()
	labels := []string(s.DetectedLabels)
	if labels == nil {
		labels = []string{}
	}
	return &entity.Scan{
		Id:        s.Id,
		UserId:    s.UserId,
		Timestamp: s.Timestamp,
		Score:     s.Score,
		Breakdown: scan.Breakdown{
			Materials:        b.Materials,
			Packaging:        b.Packaging,
			Certifications:   b.Certifications,
			CategoryBaseline: b.CategoryBaseline,
		},
		DetectedLabels: labels,
		PackagingType:  s.PackagingType,
		MaterialHints:  s.MaterialHints,
		OcrText:        s.OcrText,
		BrandText:      s.BrandText,
		ImageThumb:     s.ImageThumb,
		Action:         scan.Action(s.Action),
		IdempotencyKey: s.IdempotencyKey,
		CreatedAt:      s.CreatedAt,
	}
}

func (m *ScanMapper) ToModel(s *entity.Scan) *model.Scan {
	if s == nil {
		return nil
	}
	return &model.Scan{
		Id:        s.Id,
		UserId:    s.UserId,
		Timestamp: s.Timestamp,
		Score:     s.Score,
		Breakdown: datatypes.NewJSONType(model.ScanBreakdown{
			Materials:        s.Breakdown.Materials,
			Packaging:        s.Breakdown.Packaging,
			Certifications:   s.Breakdown.Certifications,
			CategoryBaseline: s.Breakdown.CategoryBaseline,
		}),
		DetectedLabels: datatypes.NewJSONSlice(s.DetectedLabels),
		PackagingType:  s.PackagingType,
		MaterialHints:  s.MaterialHints,
		OcrText:        s.OcrText,
		BrandText:      s.BrandText,
		ImageThumb:     s.ImageThumb,
		Action:         string(s.Action),
		IdempotencyKey: s.IdempotencyKey,
		CreatedAt:      s.CreatedAt,
	}
}

func (m *ScanMapper) ToEntities(models []*model.Scan) []*entity.Scan {
	out := make([]*entity.Scan, 0, len(models))
	for _, s := range models {
		out = append(out, m.ToEntity(s))
	}
	return out
}
