package models

import (
	"gorm.io/gorm"
)

// CoverageArea is a company service region.
type CoverageArea struct {
	gorm.Model

	Name string `json:"name" binding:"required"`

	// Geometry stored as a WKB POLYGON (SRID 4326)
	Geometry []byte `gorm:"type:bytea;not null"`
}
