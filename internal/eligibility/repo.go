package eligibility

import (
	"context"
	"errors"

	"github.com/angelmondragon/recruitment-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists the latest eligibility snapshot per application.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, result *models.EligibilityResult) error
	FindByApplicationID(ctx context.Context, applicationID uuid.UUID) (*models.EligibilityResult, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an eligibility repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Upsert inserts the snapshot or replaces the existing row for the application.
func (r *repository) Upsert(ctx context.Context, result *models.EligibilityResult) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "application_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_eligible", "checks", "checked_at", "updated_at"}),
		}).
		Create(result).Error
}

func (r *repository) FindByApplicationID(ctx context.Context, applicationID uuid.UUID) (*models.EligibilityResult, error) {
	var result models.EligibilityResult
	err := r.db.WithContext(ctx).Where("application_id = ?", applicationID).First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}
