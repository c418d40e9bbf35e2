package repository

import (
	"context"

	"fad-monitoring-backend/internal/models"

	"gorm.io/gorm"
)

type GroupRepository struct {
	db *gorm.DB
}

func NewGroupRepo(db *gorm.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// GroupFilter narrows comparison group listings
type GroupFilter struct {
	AreaID *uint
	Query  string
}

func photosByCategory(db *gorm.DB) *gorm.DB {
	return db.Order("category ASC").Order("taken_at ASC")
}

// CreateGroup creates a new comparison group
func (r *GroupRepository) CreateGroup(ctx context.Context, group *models.ComparisonGroup) error {
	return translate(r.db.WithContext(ctx).Create(group).Error)
}

// GetGroupByID retrieves a group with its area and member photos
func (r *GroupRepository) GetGroupByID(ctx context.Context, id uint) (*models.ComparisonGroup, error) {
	var group models.ComparisonGroup
	err := r.db.WithContext(ctx).
		Preload("Area").
		Preload("Photos", photosByCategory).
		First(&group, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &group, nil
}

// ListGroups returns a page of groups, newest first, with their photos preloaded
func (r *GroupRepository) ListGroups(ctx context.Context, filter GroupFilter, page Page) ([]models.ComparisonGroup, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ComparisonGroup{})
	if filter.AreaID != nil {
		query = query.Where("area_id = ?", *filter.AreaID)
	}
	if filter.Query != "" {
		like := "%" + filter.Query + "%"
		query = query.Where("title LIKE ? OR description LIKE ? OR keterangan LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var groups []models.ComparisonGroup
	err := query.
		Preload("Area").
		Preload("Photos", photosByCategory).
		Scopes(paginate(page)).
		Order("created_at DESC").
		Order("id DESC").
		Find(&groups).Error
	return groups, total, err
}

// UpdateGroup applies column values to a group
func (r *GroupRepository) UpdateGroup(ctx context.Context, id uint, fields map[string]interface{}) error {
	var group models.ComparisonGroup
	if err := r.db.WithContext(ctx).First(&group, id).Error; err != nil {
		return translate(err)
	}
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&group).Updates(fields).Error
}

// DeleteGroupWithPhotos deletes the group and its member photo rows in one transaction.
// It returns the deleted photos so the caller can remove their files.
func (r *GroupRepository) DeleteGroupWithPhotos(ctx context.Context, id uint) ([]models.Photo, error) {
	var photos []models.Photo
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group models.ComparisonGroup
		if err := tx.First(&group, id).Error; err != nil {
			return translate(err)
		}
		if err := tx.Where("comparison_group_id = ?", id).Find(&photos).Error; err != nil {
			return err
		}
		if err := tx.Where("comparison_group_id = ?", id).Delete(&models.Photo{}).Error; err != nil {
			return err
		}
		return tx.Delete(&group).Error
	})
	if err != nil {
		return nil, err
	}
	return photos, nil
}
