package implementation

import (
	"context"
	"errors"

	"trade-intel-be/internal/entity"
	"trade-intel-be/internal/mapper"
	"trade-intel-be/internal/model"
	"trade-intel-be/internal/repository/contract"
	"trade-intel-be/internal/repository/specification"

	"gorm.io/gorm"
)

type HsCodeRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.HsCodeMapper
}

func NewHsCodeRepository(db *gorm.DB) contract.HsCodeRepository {
	return &HsCodeRepositoryImpl{
		db:     db,
		mapper: mapper.NewHsCodeMapper(),
	}
}

func (r *HsCodeRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *HsCodeRepositoryImpl) Create(ctx context.Context, code *entity.HsCode) error {
	m := r.mapper.ToModel(code)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*code = *r.mapper.ToEntity(m)
	return nil
}

func (r *HsCodeRepositoryImpl) CreateBulk(ctx context.Context, codes []*entity.HsCode) error {
	models := make([]*model.HsCode, len(codes))
	for i, c := range codes {
		models[i] = r.mapper.ToModel(c)
	}

	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}

	for i, m := range models {
		*codes[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *HsCodeRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.HsCode, error) {
	var m model.HsCode
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *HsCodeRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.HsCode, error) {
	var models []*model.HsCode
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.HsCode, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *HsCodeRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.HsCode{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
