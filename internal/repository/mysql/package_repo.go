package mysql

import (
	"context"
	"errors"

	"investledger/internal/model"
	"investledger/internal/repository"

	"gorm.io/gorm"
)

type PackageRepo struct {
	db *gorm.DB
}

func (r *PackageRepo) Create(ctx context.Context, pkg *model.Package) error {
	return r.db.WithContext(ctx).Create(pkg).Error
}

func (r *PackageRepo) GetByID(ctx context.Context, id int64) (*model.Package, error) {
	var pkg model.Package
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&pkg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrPackageNotFound
		}
		return nil, err
	}
	return &pkg, nil
}

func (r *PackageRepo) ListActive(ctx context.Context) ([]*model.Package, error) {
	var packages []*model.Package
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("amount ASC").
		Find(&packages).Error
	return packages, err
}
