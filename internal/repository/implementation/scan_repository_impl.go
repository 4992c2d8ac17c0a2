package implementation

import (
	"context"
	"errors"

	"ecospectre-be/internal/entity"
	"ecospectre-be/internal/mapper"
	"ecospectre-be/internal/model"
	"ecospectre-be/internal/repository/contract"
	"ecospectre-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ScanRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ScanMapper
}

func NewScanRepository(db *gorm.DB) contract.ScanRepository {
	return &ScanRepositoryImpl{
		db:     db,
		mapper: mapper.NewScanMapper(),
	}
}

func (r *ScanRepositoryImpl) Create(ctx context.Context, scan *entity.Scan) error {
	m := r.mapper.ToModel(scan)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*scan = *r.mapper.ToEntity(m)
	return nil
}

func (r *ScanRepositoryImpl) findOne(ctx context.Context, specs ...specification.Specification) (*entity.Scan, error) {
	var m model.Scan
	if err := applySpecifications(r.db.WithContext(ctx), specs...).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *ScanRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*entity.Scan, error) {
	return r.findOne(ctx, specification.ByID{ID: id})
}

func (r *ScanRepositoryImpl) FindByIdempotencyKey(ctx context.Context, userID, key string) (*entity.Scan, error) {
	return r.findOne(ctx, specification.ByIdempotencyKey{UserID: userID, Key: key})
}

func (r *ScanRepositoryImpl) FindAll(ctx context.Context, query contract.ScanQuery) ([]*entity.Scan, error) {
	specs := []specification.Specification{}
	if query.UserID != "" {
		specs = append(specs, specification.ByUserID{UserID: query.UserID})
	}
	from, to := query.Bounds()
	specs = append(specs,
		specification.TimestampBetween{From: from, To: to},
		specification.OrderBy{Field: "timestamp", Desc: true},
	)
	if query.Limit > 0 {
		specs = append(specs, specification.Pagination{Limit: query.Limit})
	}

	var models []*model.Scan
	if err := applySpecifications(r.db.WithContext(ctx), specs...).Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *ScanRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Scan{}).Error
}
