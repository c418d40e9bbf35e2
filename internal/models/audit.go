package models

import "time"

// AuditLog is one change log row. Data holds the JSON snapshot of the affected record.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Entity    string    `gorm:"size:64;not null;index" json:"entity"`
	Operation string    `gorm:"size:64;not null;index" json:"operation"`
	UserID    *uint     `gorm:"index" json:"user_id"`
	Data      string    `gorm:"type:text" json:"data"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "change_logs"
}
