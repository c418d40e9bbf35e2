package repository

import (
	"context"

	"fad-monitoring-backend/internal/models"

	"gorm.io/gorm"
)

type VendorRepository struct {
	db *gorm.DB
}

func NewVendorRepo(db *gorm.DB) *VendorRepository {
	return &VendorRepository{db: db}
}

// GetAllVendors retrieves vendors ordered by name, optionally only active ones
func (r *VendorRepository) GetAllVendors(ctx context.Context, activeOnly bool) ([]models.Vendor, error) {
	query := r.db.WithContext(ctx)
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var vendors []models.Vendor
	err := query.Order("name ASC").Find(&vendors).Error
	return vendors, err
}

// GetVendorByID retrieves a vendor by ID
func (r *VendorRepository) GetVendorByID(ctx context.Context, id uint) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).First(&vendor, id).Error; err != nil {
		return nil, translate(err)
	}
	return &vendor, nil
}

// CreateVendor creates a new vendor
func (r *VendorRepository) CreateVendor(ctx context.Context, vendor *models.Vendor) error {
	return translate(r.db.WithContext(ctx).Create(vendor).Error)
}

// UpdateVendor applies column values to a vendor
func (r *VendorRepository) UpdateVendor(ctx context.Context, id uint, fields map[string]interface{}) error {
	if _, err := r.GetVendorByID(ctx, id); err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	return translate(r.db.WithContext(ctx).Model(&models.Vendor{}).Where("id = ?", id).Updates(fields).Error)
}

// DeleteVendor removes a vendor and detaches it from FAD records
func (r *VendorRepository) DeleteVendor(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Fad{}).Where("vendor_id = ?", id).Update("vendor_id", nil).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Vendor{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
