package models

import "time"

// Area is a named site location that photos and comparison groups belong to
type Area struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null;size:191" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Area model
func (Area) TableName() string {
	return "areas"
}
