package repository

import (
	"context"
	"errors"

	"fad-monitoring-backend/internal/models"

	"gorm.io/gorm"
)

type AreaRepository struct {
	db *gorm.DB
}

func NewAreaRepo(db *gorm.DB) *AreaRepository {
	return &AreaRepository{db: db}
}

// GetAllAreas retrieves every area ordered by name
func (r *AreaRepository) GetAllAreas(ctx context.Context) ([]models.Area, error) {
	var areas []models.Area
	err := r.db.WithContext(ctx).Order("name ASC").Find(&areas).Error
	return areas, err
}

// GetAreaByID retrieves an area by ID
func (r *AreaRepository) GetAreaByID(ctx context.Context, id uint) (*models.Area, error) {
	var area models.Area
	if err := r.db.WithContext(ctx).First(&area, id).Error; err != nil {
		return nil, translate(err)
	}
	return &area, nil
}

// GetAreaByName retrieves an area by its exact name
func (r *AreaRepository) GetAreaByName(ctx context.Context, name string) (*models.Area, error) {
	var area models.Area
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&area).Error; err != nil {
		return nil, translate(err)
	}
	return &area, nil
}

// UpsertAreaByName returns the area with the given name, creating it when absent.
// A concurrent insert that loses the unique index race re-reads the winner's row.
func (r *AreaRepository) UpsertAreaByName(ctx context.Context, name string) (*models.Area, error) {
	area, err := r.GetAreaByName(ctx, name)
	if err == nil {
		return area, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	area = &models.Area{Name: name}
	if err := r.db.WithContext(ctx).Create(area).Error; err != nil {
		if isDuplicate(err) {
			return r.GetAreaByName(ctx, name)
		}
		return nil, err
	}
	return area, nil
}

// CreateArea creates a new area
func (r *AreaRepository) CreateArea(ctx context.Context, area *models.Area) error {
	return translate(r.db.WithContext(ctx).Create(area).Error)
}

// RenameArea changes an area's name
func (r *AreaRepository) RenameArea(ctx context.Context, id uint, name string) error {
	if _, err := r.GetAreaByID(ctx, id); err != nil {
		return err
	}
	err := r.db.WithContext(ctx).Model(&models.Area{}).Where("id = ?", id).Update("name", name).Error
	return translate(err)
}

// DeleteArea removes an area row and detaches comparison groups that referenced it
func (r *AreaRepository) DeleteArea(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ComparisonGroup{}).Where("area_id = ?", id).Update("area_id", nil).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Area{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// CountPhotosInArea returns how many photos reference the area
func (r *AreaRepository) CountPhotosInArea(ctx context.Context, id uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Photo{}).Where("area_id = ?", id).Count(&count).Error
	return count, err
}
