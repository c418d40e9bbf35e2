package repository

import (
	"context"
	"time"

	"fad-monitoring-backend/internal/models"

	"gorm.io/gorm"
)

type FadRepository struct {
	db *gorm.DB
}

func NewFadRepo(db *gorm.DB) *FadRepository {
	return &FadRepository{db: db}
}

// FadFilter narrows FAD listings.
// Search matches text columns; when DateFrom/DateTo are set the search also matches any
// date column falling inside that range.
type FadFilter struct {
	Search   string
	DateFrom *time.Time
	DateTo   *time.Time
	Status   string
}

var fadTextColumns = []string{"no_fad", "item", "plant", "vendor", "status", "deskripsi", "keterangan"}
var fadDateColumns = []string{"terima_fad", "terima_bbm", "bast"}

// ListFads returns a page of FAD records, most recently received first
func (r *FadRepository) ListFads(ctx context.Context, filter FadFilter, page Page) ([]models.Fad, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Fad{})

	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		search := r.db.Where("vendor_id IN (?)", r.db.Model(&models.Vendor{}).Select("id").Where("name LIKE ?", like))
		for _, col := range fadTextColumns {
			search = search.Or(col+" LIKE ?", like)
		}
		if filter.DateFrom != nil && filter.DateTo != nil {
			for _, col := range fadDateColumns {
				search = search.Or(col+" BETWEEN ? AND ?", *filter.DateFrom, *filter.DateTo)
			}
		}
		query = query.Where(search)
	}
	if filter.Status != "" {
		query = query.Where("status LIKE ?", "%"+filter.Status+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var fads []models.Fad
	err := query.
		Preload("VendorRel").
		Scopes(paginate(page)).
		Order("terima_fad DESC").
		Order("id DESC").
		Find(&fads).Error
	return fads, total, err
}

// GetFadByID retrieves a FAD record by ID
func (r *FadRepository) GetFadByID(ctx context.Context, id uint) (*models.Fad, error) {
	var fad models.Fad
	if err := r.db.WithContext(ctx).Preload("VendorRel").First(&fad, id).Error; err != nil {
		return nil, translate(err)
	}
	return &fad, nil
}

// CreateFad creates a new FAD record
func (r *FadRepository) CreateFad(ctx context.Context, fad *models.Fad) error {
	return translate(r.db.WithContext(ctx).Omit("VendorRel").Create(fad).Error)
}

// UpdateFad applies column values to a FAD record
func (r *FadRepository) UpdateFad(ctx context.Context, id uint, fields map[string]interface{}) error {
	if _, err := r.GetFadByID(ctx, id); err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	return translate(r.db.WithContext(ctx).Model(&models.Fad{}).Where("id = ?", id).Updates(fields).Error)
}

// DeleteFad removes a FAD record
func (r *FadRepository) DeleteFad(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Fad{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
