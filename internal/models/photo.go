package models

import (
	"strings"
	"time"
)

// Photo categories. Each comparison group holds at most one photo per category.
const (
	CategoryBefore = "BEFORE"
	CategoryAction = "ACTION"
	CategoryAfter  = "AFTER"
)

// Categories lists the comparison slots in display order
var Categories = []string{CategoryBefore, CategoryAction, CategoryAfter}

// NormalizeCategory maps a case-insensitive category name to its canonical form
func NormalizeCategory(raw string) (string, bool) {
	c := strings.ToUpper(strings.TrimSpace(raw))
	for _, known := range Categories {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// ComparisonGroup represents a before/action/after set of photos for an area
type ComparisonGroup struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	AreaID      *uint     `gorm:"index" json:"area_id"`
	Description *string   `gorm:"type:text" json:"description"`
	Keterangan  *string   `gorm:"type:text" json:"keterangan"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relationships
	Area   *Area   `gorm:"foreignKey:AreaID" json:"area,omitempty"`
	Photos []Photo `gorm:"foreignKey:ComparisonGroupID" json:"photos,omitempty"`
}

// TableName specifies the table name for ComparisonGroup model
func (ComparisonGroup) TableName() string {
	return "comparison_groups"
}

// Photo represents an uploaded image and its thumbnail
type Photo struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	AreaID            uint      `gorm:"not null;index" json:"area_id"`
	ComparisonGroupID *uint     `gorm:"uniqueIndex:idx_photos_group_category" json:"comparison_group_id"`
	Category          *string   `gorm:"size:16;uniqueIndex:idx_photos_group_category" json:"category"`
	Filename          string    `gorm:"size:255;not null" json:"filename"`
	ThumbFilename     *string   `gorm:"size:255" json:"thumb_filename"`
	OriginalName      string    `gorm:"size:255" json:"original_name"`
	Mime              string    `gorm:"size:64" json:"mime"`
	Size              int64     `json:"size"`
	URL               string    `gorm:"size:512" json:"url"`
	ThumbURL          *string   `gorm:"size:512" json:"thumb_url"`
	TakenAt           time.Time `json:"taken_at"`
	Keterangan        *string   `gorm:"type:text" json:"keterangan"`
	CreatedAt         time.Time `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	// Relationships
	Area *Area `gorm:"foreignKey:AreaID" json:"area,omitempty"`
}

// TableName specifies the table name for Photo model
func (Photo) TableName() string {
	return "photos"
}

// CategoryCounts holds the number of photos per category in a group
type CategoryCounts struct {
	Before int `json:"before"`
	Action int `json:"action"`
	After  int `json:"after"`
}

// CountCategories tallies the categories of a group's photos
func CountCategories(photos []Photo) CategoryCounts {
	var counts CategoryCounts
	for _, p := range photos {
		if p.Category == nil {
			continue
		}
		counts.Add(*p.Category)
	}
	return counts
}

// Add increments the counter for a canonical category
func (c *CategoryCounts) Add(category string) {
	switch category {
	case CategoryBefore:
		c.Before++
	case CategoryAction:
		c.Action++
	case CategoryAfter:
		c.After++
	}
}

// Has reports whether the category slot is occupied
func (c CategoryCounts) Has(category string) bool {
	switch category {
	case CategoryBefore:
		return c.Before > 0
	case CategoryAction:
		return c.Action > 0
	case CategoryAfter:
		return c.After > 0
	}
	return false
}

// Complete is true once every category holds at least one photo
func (c CategoryCounts) Complete() bool {
	return c.Before > 0 && c.Action > 0 && c.After > 0
}
