package contract

import (
	"context"

	"trade-intel-be/internal/entity"
	"trade-intel-be/internal/repository/specification"
)

type HsCodeRepository interface {
	Create(ctx context.Context, code *entity.HsCode) error
	CreateBulk(ctx context.Context, codes []*entity.HsCode) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.HsCode, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.HsCode, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
