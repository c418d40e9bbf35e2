package repository

import (
	"context"
	"time"

	"fad-monitoring-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PhotoRepository struct {
	db *gorm.DB
}

func NewPhotoRepo(db *gorm.DB) *PhotoRepository {
	return &PhotoRepository{db: db}
}

// PhotoFilter narrows photo listings. From/To bound created_at inclusively.
type PhotoFilter struct {
	AreaID            *uint
	Category          string
	ComparisonGroupID *uint
	From              *time.Time
	To                *time.Time
}

// BatchGuard inspects the locked group's current category counts and may veto the insert
type BatchGuard func(counts models.CategoryCounts) error

// GetPhotoByID retrieves a photo by ID
func (r *PhotoRepository) GetPhotoByID(ctx context.Context, id uint) (*models.Photo, error) {
	var photo models.Photo
	if err := r.db.WithContext(ctx).Preload("Area").First(&photo, id).Error; err != nil {
		return nil, translate(err)
	}
	return &photo, nil
}

// ListPhotos returns a page of photos matching the filter, newest first
func (r *PhotoRepository) ListPhotos(ctx context.Context, filter PhotoFilter, page Page) ([]models.Photo, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Photo{})
	if filter.AreaID != nil {
		query = query.Where("area_id = ?", *filter.AreaID)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.ComparisonGroupID != nil {
		query = query.Where("comparison_group_id = ?", *filter.ComparisonGroupID)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var photos []models.Photo
	err := query.
		Preload("Area").
		Scopes(paginate(page)).
		Order("created_at DESC").
		Order("id DESC").
		Find(&photos).Error
	return photos, total, err
}

// GroupCategoryCounts tallies the categories already stored in a group
func (r *PhotoRepository) GroupCategoryCounts(ctx context.Context, groupID uint) (models.CategoryCounts, error) {
	return groupCounts(r.db.WithContext(ctx), groupID)
}

func groupCounts(db *gorm.DB, groupID uint) (models.CategoryCounts, error) {
	var categories []string
	err := db.Model(&models.Photo{}).
		Where("comparison_group_id = ? AND category IS NOT NULL", groupID).
		Pluck("category", &categories).Error

	var counts models.CategoryCounts
	for _, c := range categories {
		counts.Add(c)
	}
	return counts, err
}

// CreatePhotoBatch inserts photos in a single transaction.
// When newGroup is non-nil it is created first and the photos join it. Otherwise, when groupID is
// non-nil, the group row is locked and guard is called with the stored category counts so that
// concurrent uploads to one group serialize. The unique (group, category) index backs this up on
// stores without row locks.
func (r *PhotoRepository) CreatePhotoBatch(ctx context.Context, newGroup *models.ComparisonGroup, groupID *uint, photos []models.Photo, guard BatchGuard) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch {
		case newGroup != nil:
			if err := tx.Create(newGroup).Error; err != nil {
				return translate(err)
			}
			groupID = &newGroup.ID
		case groupID != nil:
			var group models.ComparisonGroup
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&group, *groupID).Error
			if err != nil {
				return translate(err)
			}
			if guard != nil {
				counts, err := groupCounts(tx, *groupID)
				if err != nil {
					return err
				}
				if err := guard(counts); err != nil {
					return err
				}
			}
		}

		for i := range photos {
			photos[i].ComparisonGroupID = groupID
		}
		if len(photos) == 0 {
			return nil
		}
		return translate(tx.Omit(clause.Associations).Create(&photos).Error)
	})
}

// UpdatePhotoKeterangan sets a photo's free-text annotation
func (r *PhotoRepository) UpdatePhotoKeterangan(ctx context.Context, id uint, keterangan *string) error {
	result := r.db.WithContext(ctx).Model(&models.Photo{}).Where("id = ?", id).Update("keterangan", keterangan)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetPhotoByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// DeletePhoto removes a photo row
func (r *PhotoRepository) DeletePhoto(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Photo{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReferencedFilenames returns every file and thumbnail name still referenced by a photo
func (r *PhotoRepository) ReferencedFilenames(ctx context.Context) ([]string, error) {
	var rows []struct {
		Filename      string
		ThumbFilename *string
	}
	err := r.db.WithContext(ctx).Model(&models.Photo{}).Select("filename", "thumb_filename").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(rows)*2)
	for _, row := range rows {
		names = append(names, row.Filename)
		if row.ThumbFilename != nil {
			names = append(names, *row.ThumbFilename)
		}
	}
	return names, nil
}
