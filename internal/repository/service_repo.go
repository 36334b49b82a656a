package repository

import (
	"context"

	"github.com/AngelAdrianVR/WashApp/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ServiceRepository interface {
	FindActiveByIDs(ctx context.Context, ids []uint) ([]models.Service, error)
	ListActive(ctx context.Context) ([]models.Service, error)
	Upsert(ctx context.Context, svc *models.Service) error
}

type serviceRepository struct {
	db *gorm.DB
}

func NewServiceRepository(db *gorm.DB) ServiceRepository {
	return &serviceRepository{db: db}
}

func (r *serviceRepository) FindActiveByIDs(ctx context.Context, ids []uint) ([]models.Service, error) {
	var services []models.Service
	if len(ids) == 0 {
		return services, nil
	}
	err := r.db.WithContext(ctx).
		Where("id IN ? AND is_active = ?", ids, true).
		Find(&services).Error
	return services, err
}

func (r *serviceRepository) ListActive(ctx context.Context) ([]models.Service, error) {
	var services []models.Service
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&services).Error
	return services, err
}

// Upsert inserts or overwrites a service keyed by the catalog's ID.
func (r *serviceRepository) Upsert(ctx context.Context, svc *models.Service) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "price", "duration_minutes", "type", "is_active", "updated_at"}),
	}).Create(svc).Error
}
