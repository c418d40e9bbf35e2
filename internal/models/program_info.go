package models

import "time"

// ProgramInfoImage is an ordered informational image shown to all signed-in users
type ProgramInfoImage struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Title         *string   `gorm:"size:255" json:"title"`
	Filename      string    `gorm:"size:255;not null" json:"filename"`
	ThumbFilename *string   `gorm:"size:255" json:"thumb_filename"`
	OriginalName  string    `gorm:"size:255" json:"original_name"`
	Mime          string    `gorm:"size:64" json:"mime"`
	Size          int64     `json:"size"`
	URL           string    `gorm:"size:512" json:"url"`
	ThumbURL      *string   `gorm:"size:512" json:"thumb_url"`
	DisplayOrder  int       `gorm:"not null;default:0;index" json:"display_order"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName specifies the table name for ProgramInfoImage model
func (ProgramInfoImage) TableName() string {
	return "program_info_images"
}
