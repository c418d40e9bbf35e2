package models

import "time"

// RefreshSession is one node of a login's rotation chain.
// A session is ACTIVE while Revoked is false; revocation is terminal.
type RefreshSession struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	Revoked      bool      `gorm:"not null;default:false;index" json:"revoked"`
	ReplacedByID *string   `gorm:"size:36;index" json:"replaced_by_id,omitempty"`
	ExpiresAt    time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	User         User      `gorm:"foreignKey:UserID" json:"-"`
}

// TableName specifies the table name for RefreshSession model
func (RefreshSession) TableName() string {
	return "refresh_sessions"
}
