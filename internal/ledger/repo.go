package ledger

import (
	"context"

	"github.com/angelmondragon/recruitment-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages persistence for application status history rows.
// Rows are append-only: there is no update or delete.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.ApplicationStatusHistory) error
	ListByApplicationID(ctx context.Context, applicationID uuid.UUID) ([]models.ApplicationStatusHistory, error)
	CountByApplicationID(ctx context.Context, applicationID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.ApplicationStatusHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByApplicationID(ctx context.Context, applicationID uuid.UUID) ([]models.ApplicationStatusHistory, error) {
	var entries []models.ApplicationStatusHistory
	if err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) CountByApplicationID(ctx context.Context, applicationID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ApplicationStatusHistory{}).
		Where("application_id = ?", applicationID).
		Count(&count).Error
	return count, err
}
