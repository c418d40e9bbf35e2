package repository

import (
	"context"

	"fad-monitoring-backend/internal/models"

	"gorm.io/gorm"
)

type ProgramInfoRepository struct {
	db *gorm.DB
}

func NewProgramInfoRepo(db *gorm.DB) *ProgramInfoRepository {
	return &ProgramInfoRepository{db: db}
}

// GetAllImages retrieves images in display order
func (r *ProgramInfoRepository) GetAllImages(ctx context.Context) ([]models.ProgramInfoImage, error) {
	var images []models.ProgramInfoImage
	err := r.db.WithContext(ctx).
		Order("display_order ASC").
		Order("created_at ASC").
		Order("id ASC").
		Find(&images).Error
	return images, err
}

// GetImageByID retrieves an image by ID
func (r *ProgramInfoRepository) GetImageByID(ctx context.Context, id uint) (*models.ProgramInfoImage, error) {
	var image models.ProgramInfoImage
	if err := r.db.WithContext(ctx).First(&image, id).Error; err != nil {
		return nil, translate(err)
	}
	return &image, nil
}

// NextDisplayOrder returns one past the highest display order in use
func (r *ProgramInfoRepository) NextDisplayOrder(ctx context.Context) (int, error) {
	var highest *int
	err := r.db.WithContext(ctx).Model(&models.ProgramInfoImage{}).Select("MAX(display_order)").Scan(&highest).Error
	if err != nil {
		return 0, err
	}
	if highest == nil {
		return 1, nil
	}
	return *highest + 1, nil
}

// CreateImage creates a new image row
func (r *ProgramInfoRepository) CreateImage(ctx context.Context, image *models.ProgramInfoImage) error {
	return translate(r.db.WithContext(ctx).Create(image).Error)
}

// UpdateImage applies column values to an image
func (r *ProgramInfoRepository) UpdateImage(ctx context.Context, id uint, fields map[string]interface{}) error {
	if _, err := r.GetImageByID(ctx, id); err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.ProgramInfoImage{}).Where("id = ?", id).Updates(fields).Error
}

// DeleteImage removes an image row
func (r *ProgramInfoRepository) DeleteImage(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.ProgramInfoImage{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Reorder sets display_order for each id in one transaction; an unknown id aborts the whole update
func (r *ProgramInfoRepository) Reorder(ctx context.Context, orders map[uint]int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for id, order := range orders {
			result := tx.Model(&models.ProgramInfoImage{}).Where("id = ?", id).Update("display_order", order)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				var count int64
				if err := tx.Model(&models.ProgramInfoImage{}).Where("id = ?", id).Count(&count).Error; err != nil {
					return err
				}
				if count == 0 {
					return ErrNotFound
				}
			}
		}
		return nil
	})
}

// ReferencedFilenames returns every file and thumbnail name still referenced by an image
func (r *ProgramInfoRepository) ReferencedFilenames(ctx context.Context) ([]string, error) {
	var images []models.ProgramInfoImage
	if err := r.db.WithContext(ctx).Select("filename", "thumb_filename").Find(&images).Error; err != nil {
		return nil, err
	}
	names := make([]string, 0, len(images)*2)
	for _, img := range images {
		names = append(names, img.Filename)
		if img.ThumbFilename != nil {
			names = append(names, *img.ThumbFilename)
		}
	}
	return names, nil
}
