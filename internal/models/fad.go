package models

import "time"

// Fad is a facility/asset document tracked from receipt to BAST
type Fad struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	NoFad      string     `gorm:"size:100;index" json:"no_fad"`
	Item       string     `gorm:"size:255" json:"item"`
	Plant      string     `gorm:"size:100" json:"plant"`
	TerimaFad  *time.Time `gorm:"index" json:"terima_fad"`
	TerimaBbm  *time.Time `json:"terima_bbm"`
	Bast       *time.Time `json:"bast"`
	Vendor     string     `gorm:"size:255" json:"vendor"`
	VendorID   *uint      `gorm:"index" json:"vendor_id"`
	Status     string     `gorm:"size:100;index" json:"status"`
	Deskripsi  string     `gorm:"type:text" json:"deskripsi"`
	Keterangan string     `gorm:"type:text" json:"keterangan"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	// Relationships
	VendorRel *Vendor `gorm:"foreignKey:VendorID" json:"vendor_rel"`
}

// TableName specifies the table name for Fad model
func (Fad) TableName() string {
	return "fads"
}

// Vendor is a supplier referenced by FAD records
type Vendor struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:191;not null" json:"name"`
	Active    bool      `gorm:"not null" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Vendor model
func (Vendor) TableName() string {
	return "vendors"
}
