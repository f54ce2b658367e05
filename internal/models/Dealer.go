// internal/models/dealer.go
package models

import (
	"time"

	"gorm.io/gorm"
)

type Dealer struct {
	gorm.Model
	UserID    uint    `json:"user_id" gorm:"unique"` // account in the identity service
	Name      string  `json:"name"`
	Phone     string  `json:"phone"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Available bool    `json:"available" gorm:"default:true"`

	// Written only by the route frequency aggregator. RouteLastUpdated is set iff
	// MostFrequentRoute is non-empty; RouteVersion guards compare-and-swap writes.
	MostFrequentRoute []byte     `gorm:"type:bytea" json:"-"`
	RouteLastUpdated  *time.Time `json:"route_last_updated"`
	RouteVersion      uint       `json:"route_version" gorm:"not null;default:0"`
}
